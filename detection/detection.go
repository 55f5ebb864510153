// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package detection provides the raw acoustic detection records
// and the derived vocal activity table,
// the central dataset of a diel vocal activity analysis.
package detection

import (
	"fmt"
	"slices"
	"time"
)

// TimeOfDay is a diel sampling stratum.
type TimeOfDay string

// Valid time of day strata.
const (
	Dawn TimeOfDay = "dawn"
	Dusk TimeOfDay = "dusk"
)

// ParseTimeOfDay returns a time of day stratum
// from a string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	switch t := TimeOfDay(s); t {
	case Dawn, Dusk:
		return t, nil
	}
	return "", fmt.Errorf("invalid time of day %q", s)
}

// An Observation is a single row
// of the raw acoustic detection data:
// the number of detections of a species
// in a fixed length audio segment
// recorded at a site,
// on a date,
// at a given local clock time.
type Observation struct {
	Site      string
	Date      time.Time
	Start     time.Duration // local clock time, from midnight
	End       time.Duration
	TimeOfDay TimeOfDay
	Code      string // eBird species code
	Count     int
}

// Visits is the number of independent sampling visits
// per time of day stratum.
// A visit is a distinct site-date-stratum triple.
type Visits map[TimeOfDay]int

// CountVisits counts the independent sampling visits
// in a set of observations.
func CountVisits(obs []Observation) Visits {
	type stratum struct {
		site string
		date time.Time
		tod  TimeOfDay
	}
	seen := make(map[stratum]bool)
	v := make(Visits)
	for _, o := range obs {
		s := stratum{o.Site, o.Date, o.TimeOfDay}
		if seen[s] {
			continue
		}
		seen[s] = true
		v[o.TimeOfDay]++
	}
	return v
}

// A Record is a row of the vocal activity table,
// keyed by species code and time of day stratum.
// The detection fields are set when the table is built;
// the predictor fields are added
// by the later stages of the pipeline.
type Record struct {
	Code      string
	Name      string // scientific name
	TimeOfDay TimeOfDay

	Detections        int
	Total             int // across both strata
	Percent           float64
	Normalized        float64 // detections per visit
	TotalNormalized   float64
	PercentNormalized float64

	MedianStart float64 // median hours from the twilight boundary
	PeakFreq    float64 // median peak frequency, in Hz
	Territory   int     // 1 (none), 2 (weak), 3 (high)
	Sociality   int     // 0 (solo), 1 (communal)
	Niche       string  // collapsed trophic niche
}

// Key is the identity of an activity record.
func (r Record) Key() string {
	return r.Code + ":" + string(r.TimeOfDay)
}

// A Table is a vocal activity table,
// with two rows per species,
// one for each time of day stratum,
// sorted by species code.
type Table []Record

// Build builds the vocal activity table
// from a set of observations
// and the sampling visit counts.
//
// A species detected at only one stratum
// gets an explicit zero detection row
// for the missing stratum,
// so that its detection percentages
// are computed over both strata.
func Build(obs []Observation, v Visits) (Table, error) {
	for _, tod := range []TimeOfDay{Dawn, Dusk} {
		if v[tod] == 0 {
			return nil, fmt.Errorf("no sampling visits at %s", tod)
		}
	}

	sum := make(map[string]map[TimeOfDay]int)
	for _, o := range obs {
		s, ok := sum[o.Code]
		if !ok {
			s = make(map[TimeOfDay]int, 2)
			sum[o.Code] = s
		}
		s[o.TimeOfDay] += o.Count
	}

	codes := make([]string, 0, len(sum))
	for c := range sum {
		codes = append(codes, c)
	}
	slices.Sort(codes)

	t := make(Table, 0, 2*len(sum))
	for _, c := range codes {
		s := sum[c]
		total := s[Dawn] + s[Dusk]
		if total == 0 {
			// surveyed but never detected
			continue
		}
		totNorm := float64(s[Dawn])/float64(v[Dawn]) + float64(s[Dusk])/float64(v[Dusk])
		for _, tod := range []TimeOfDay{Dawn, Dusk} {
			norm := float64(s[tod]) / float64(v[tod])
			t = append(t, Record{
				Code:              c,
				TimeOfDay:         tod,
				Detections:        s[tod],
				Total:             total,
				Percent:           100 * float64(s[tod]) / float64(total),
				Normalized:        norm,
				TotalNormalized:   totNorm,
				PercentNormalized: 100 * norm / totNorm,
			})
		}
	}
	return t, nil
}

// Codes returns the species codes in the table.
func (t Table) Codes() []string {
	seen := make(map[string]bool)
	var codes []string
	for _, r := range t {
		if seen[r.Code] {
			continue
		}
		seen[r.Code] = true
		codes = append(codes, r.Code)
	}
	slices.Sort(codes)
	return codes
}

// Names returns the scientific names in the table.
func (t Table) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range t {
		if r.Name == "" || seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		names = append(names, r.Name)
	}
	slices.Sort(names)
	return names
}

// Stratum returns the rows of the table
// for a time of day stratum,
// preserving the species code order.
func (t Table) Stratum(tod TimeOfDay) Table {
	var s Table
	for _, r := range t {
		if r.TimeOfDay == tod {
			s = append(s, r)
		}
	}
	return s
}
