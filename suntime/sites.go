// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package suntime

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// A Site is a sampling site,
// with the coordinates and timezone
// used for the solar ephemeris,
// and the habitat type
// used as a grouping factor by the count models.
type Site struct {
	ID        string
	Latitude  float64
	Longitude float64
	Timezone  string // IANA timezone name
	Type      string // habitat type
}

// Sites is a collection of sampling sites,
// indexed by site identifier.
type Sites map[string]Site

// ReadSites reads a site table from a TSV file.
//
// The TSV file must contain the following fields:
//
//   - site, the site identifier
//   - latitude, in decimal degrees
//   - longitude, in decimal degrees
//   - timezone, the IANA timezone of the site
//
// The field "type",
// with the habitat type of the site,
// is optional.
//
// Here is an example file:
//
//	site	latitude	longitude	timezone	type
//	VAL04	10.2712	77.3715	Asia/Kolkata	shola
//	SEN02	10.1687	77.2923	Asia/Kolkata	plantation
func ReadSites(r io.Reader) (Sites, error) {
	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'

	head, err := tab.Read()
	if err != nil {
		return nil, fmt.Errorf("while reading header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(h)
		fields[h] = i
	}
	for _, h := range []string{"site", "latitude", "longitude", "timezone"} {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	sites := make(Sites)
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		id := strings.Join(strings.Fields(row[fields["site"]]), "")
		if id == "" {
			continue
		}
		if _, ok := sites[id]; ok {
			return nil, fmt.Errorf("on row %d: site %q already defined", ln, id)
		}

		f := "latitude"
		lat, err := strconv.ParseFloat(row[fields[f]], 64)
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}
		if lat < -90 || lat > 90 {
			return nil, fmt.Errorf("on row %d: field %q: invalid latitude %.6f", ln, f, lat)
		}

		f = "longitude"
		lon, err := strconv.ParseFloat(row[fields[f]], 64)
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}
		if lon < -180 || lon > 180 {
			return nil, fmt.Errorf("on row %d: field %q: invalid longitude %.6f", ln, f, lon)
		}

		f = "timezone"
		tz := row[fields[f]]
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		var tp string
		if c, ok := fields["type"]; ok {
			tp = strings.Join(strings.Fields(strings.ToLower(row[c])), " ")
		}

		sites[id] = Site{
			ID:        id,
			Latitude:  lat,
			Longitude: lon,
			Timezone:  tz,
			Type:      tp,
		}
	}
	return sites, nil
}
