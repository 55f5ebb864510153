// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package detection

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ReadObservations reads a raw acoustic detection table
// from a TSV file.
//
// The TSV file must contain the following fields:
//
//   - site, the site identifier
//   - date, the sampling date, in YYYY-MM-DD format
//   - start, the local clock time of the segment start, as HH:MM or HH:MM:SS
//   - timeofday, the diel stratum, "dawn" or "dusk"
//   - code, the eBird species code
//   - count, the number of detections in the segment
//
// The field "end",
// with the local clock time of the segment end,
// is optional;
// if absent the segment end is taken as its start.
//
// Here is an example file:
//
//	site	date	start	end	timeofday	code	count
//	VAL04	2021-01-12	06:15	06:30	dawn	inbrob1	3
//	VAL04	2021-01-12	18:10	18:25	dusk	inbrob1	1
//	SEN02	2021-01-13	06:02	06:17	dawn	inrob1	2
func ReadObservations(r io.Reader) ([]Observation, error) {
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
	for _, h := range []string{"site", "date", "start", "timeofday", "code", "count"} {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	var obs []Observation
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		f := "date"
		date, err := time.Parse("2006-01-02", row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		f = "start"
		start, err := parseClock(row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		end := start
		if e, ok := fields["end"]; ok && row[e] != "" {
			end, err = parseClock(row[e])
			if err != nil {
				return nil, fmt.Errorf("on row %d: field %q: %v", ln, "end", err)
			}
		}

		f = "timeofday"
		tod, err := ParseTimeOfDay(row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		f = "count"
		count, err := strconv.Atoi(row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}
		if count < 0 {
			return nil, fmt.Errorf("on row %d: field %q: negative count", ln, f)
		}

		obs = append(obs, Observation{
			Site:      strings.Join(strings.Fields(row[fields["site"]]), ""),
			Date:      date,
			Start:     start,
			End:       end,
			TimeOfDay: tod,
			Code:      strings.ToLower(strings.Join(strings.Fields(row[fields["code"]]), "")),
			Count:     count,
		})
	}
	return obs, nil
}

func parseClock(s string) (time.Duration, error) {
	var h, m, sec int
	switch strings.Count(s, ":") {
	case 1:
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("invalid clock time %q", s)
		}
	case 2:
		if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
			return 0, fmt.Errorf("invalid clock time %q", s)
		}
	default:
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}

var activityHeader = []string{
	"code",
	"name",
	"timeofday",
	"detections",
	"total",
	"percent",
	"normalized",
	"totalnormalized",
	"percentnormalized",
	"medianstart",
	"peakfreq",
	"territory",
	"sociality",
	"niche",
}

// ReadActivity reads a vocal activity table
// from a TSV file,
// as written by the TSV method of a Table.
func ReadActivity(r io.Reader) (Table, error) {
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
	for _, h := range activityHeader {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	var t Table
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		tod, err := ParseTimeOfDay(row[fields["timeofday"]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		ints := make(map[string]int, 4)
		for _, f := range []string{"detections", "total", "territory", "sociality"} {
			v, err := strconv.Atoi(row[fields[f]])
			if err != nil {
				return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
			}
			ints[f] = v
		}

		floats := make(map[string]float64, 6)
		for _, f := range []string{"percent", "normalized", "totalnormalized", "percentnormalized", "medianstart", "peakfreq"} {
			v, err := strconv.ParseFloat(row[fields[f]], 64)
			if err != nil {
				return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
			}
			floats[f] = v
		}

		t = append(t, Record{
			Code:              row[fields["code"]],
			Name:              row[fields["name"]],
			TimeOfDay:         tod,
			Detections:        ints["detections"],
			Total:             ints["total"],
			Percent:           floats["percent"],
			Normalized:        floats["normalized"],
			TotalNormalized:   floats["totalnormalized"],
			PercentNormalized: floats["percentnormalized"],
			MedianStart:       floats["medianstart"],
			PeakFreq:          floats["peakfreq"],
			Territory:         ints["territory"],
			Sociality:         ints["sociality"],
			Niche:             row[fields["niche"]],
		})
	}
	return t, nil
}

// TSV writes a vocal activity table as a TSV file.
func (t Table) TSV(w io.Writer) error {
	tab := csv.NewWriter(w)
	tab.Comma = '\t'
	tab.UseCRLF = true

	if err := tab.Write(activityHeader); err != nil {
		return fmt.Errorf("unable to write header: %v", err)
	}

	for _, r := range t {
		row := []string{
			r.Code,
			r.Name,
			string(r.TimeOfDay),
			strconv.Itoa(r.Detections),
			strconv.Itoa(r.Total),
			strconv.FormatFloat(r.Percent, 'f', 6, 64),
			strconv.FormatFloat(r.Normalized, 'f', 6, 64),
			strconv.FormatFloat(r.TotalNormalized, 'f', 6, 64),
			strconv.FormatFloat(r.PercentNormalized, 'f', 6, 64),
			strconv.FormatFloat(r.MedianStart, 'f', 6, 64),
			strconv.FormatFloat(r.PeakFreq, 'f', 6, 64),
			strconv.Itoa(r.Territory),
			strconv.Itoa(r.Sociality),
			r.Niche,
		}
		if err := tab.Write(row); err != nil {
			return fmt.Errorf("when writing data: %v", err)
		}
	}

	tab.Flush()
	if err := tab.Error(); err != nil {
		return fmt.Errorf("when writing data: %v", err)
	}
	return nil
}
