// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package regress

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/evosong/dielvox/detection"
	"github.com/evosong/dielvox/suntime"
)

// A Dataset is the column oriented view
// of an assembled vocal activity table,
// ready for a design matrix.
type Dataset struct {
	// Species of each row.
	Species []string

	Numeric map[string][]float64
	Factor  map[string][]string
}

// Len returns the number of rows of the dataset.
func (d *Dataset) Len() int {
	return len(d.Species)
}

// FromTable extracts the dataset of a time of day stratum
// from an assembled vocal activity table.
// Rows without timing observations
// (a NaN median start time)
// are excluded,
// and the excluded species are returned
// for reporting.
func FromTable(tab detection.Table, tod detection.TimeOfDay) (*Dataset, []string, error) {
	d := &Dataset{
		Numeric: map[string][]float64{
			"detections":        nil,
			"percent":           nil,
			"normalized":        nil,
			"percentnormalized": nil,
			"medianstart":       nil,
			"peakfreq":          nil,
		},
		Factor: map[string][]string{
			"territory": nil,
			"sociality": nil,
			"niche":     nil,
		},
	}

	var dropped []string
	for _, r := range tab.Stratum(tod) {
		if r.Name == "" {
			return nil, nil, fmt.Errorf("row %s: activity table without species names", r.Key())
		}
		if r.Niche == "" {
			return nil, nil, fmt.Errorf("row %s: activity table without covariates", r.Key())
		}
		if math.IsNaN(r.MedianStart) {
			dropped = append(dropped, r.Name)
			continue
		}

		d.Species = append(d.Species, r.Name)
		d.Numeric["detections"] = append(d.Numeric["detections"], float64(r.Detections))
		d.Numeric["percent"] = append(d.Numeric["percent"], r.Percent)
		d.Numeric["normalized"] = append(d.Numeric["normalized"], r.Normalized)
		d.Numeric["percentnormalized"] = append(d.Numeric["percentnormalized"], r.PercentNormalized)
		d.Numeric["medianstart"] = append(d.Numeric["medianstart"], r.MedianStart)
		d.Numeric["peakfreq"] = append(d.Numeric["peakfreq"], r.PeakFreq)
		d.Factor["territory"] = append(d.Factor["territory"], fmt.Sprintf("%d", r.Territory))
		d.Factor["sociality"] = append(d.Factor["sociality"], fmt.Sprintf("%d", r.Sociality))
		d.Factor["niche"] = append(d.Factor["niche"], r.Niche)
	}
	if len(d.Species) == 0 {
		return nil, nil, fmt.Errorf("no rows at %s", tod)
	}
	return d, dropped, nil
}

// CountData is the dataset of the Poisson count model:
// one row per species,
// time of day stratum,
// and habitat type,
// with the summed detections,
// a log visit offset for the sampling effort,
// and the predictor columns of the species.
type CountData struct {
	*Dataset

	// Group of each row,
	// for the habitat type random intercept.
	Groups []string

	// Response counts.
	Y []int

	// Log of the number of sampling visits
	// behind each row.
	Offset []float64
}

// FromCounts builds the count dataset
// from the raw observations,
// the site table,
// and an assembled activity table
// restricted to the species of the analysis.
// Rows of species-stratum pairs
// without timing observations are skipped.
func FromCounts(obs []detection.Observation, sites suntime.Sites, tab detection.Table) (*CountData, error) {
	rec := make(map[string]detection.Record, len(tab))
	for _, r := range tab {
		if r.Name == "" {
			return nil, fmt.Errorf("row %s: activity table without species names", r.Key())
		}
		rec[r.Key()] = r
	}

	type cell struct {
		code  string
		tod   detection.TimeOfDay
		group string
	}
	counts := make(map[cell]int)
	type visit struct {
		site string
		date time.Time
		tod  detection.TimeOfDay
	}
	visits := make(map[visit]bool)
	effort := make(map[detection.TimeOfDay]map[string]int)

	for _, o := range obs {
		s, ok := sites[o.Site]
		if !ok {
			return nil, fmt.Errorf("site %q not defined", o.Site)
		}
		g := s.Type
		if g == "" {
			g = "unknown"
		}

		vk := visit{o.Site, o.Date, o.TimeOfDay}
		if !visits[vk] {
			visits[vk] = true
			e, ok := effort[o.TimeOfDay]
			if !ok {
				e = make(map[string]int)
				effort[o.TimeOfDay] = e
			}
			e[g]++
		}

		if _, ok := rec[o.Code+":"+string(o.TimeOfDay)]; !ok {
			// species not retained by the analysis
			continue
		}
		counts[cell{o.Code, o.TimeOfDay, g}] += o.Count
	}

	cells := make([]cell, 0, len(counts))
	for c := range counts {
		cells = append(cells, c)
	}
	slices.SortFunc(cells, func(a, b cell) int {
		if a.code != b.code {
			if a.code < b.code {
				return -1
			}
			return 1
		}
		if a.tod != b.tod {
			if a.tod < b.tod {
				return -1
			}
			return 1
		}
		if a.group < b.group {
			return -1
		}
		if a.group > b.group {
			return 1
		}
		return 0
	})

	cd := &CountData{
		Dataset: &Dataset{
			Numeric: map[string][]float64{
				"medianstart": nil,
				"peakfreq":    nil,
			},
			Factor: map[string][]string{
				"territory": nil,
				"sociality": nil,
				"niche":     nil,
				"timeofday": nil,
			},
		},
	}
	for _, c := range cells {
		r := rec[c.code+":"+string(c.tod)]
		if math.IsNaN(r.MedianStart) {
			continue
		}

		cd.Species = append(cd.Species, r.Name)
		cd.Groups = append(cd.Groups, c.group)
		cd.Y = append(cd.Y, counts[c])
		cd.Offset = append(cd.Offset, math.Log(float64(effort[c.tod][c.group])))

		cd.Numeric["medianstart"] = append(cd.Numeric["medianstart"], r.MedianStart)
		cd.Numeric["peakfreq"] = append(cd.Numeric["peakfreq"], r.PeakFreq)
		cd.Factor["territory"] = append(cd.Factor["territory"], fmt.Sprintf("%d", r.Territory))
		cd.Factor["sociality"] = append(cd.Factor["sociality"], fmt.Sprintf("%d", r.Sociality))
		cd.Factor["niche"] = append(cd.Factor["niche"], r.Niche)
		cd.Factor["timeofday"] = append(cd.Factor["timeofday"], string(c.tod))
	}
	if len(cd.Species) == 0 {
		return nil, fmt.Errorf("no count rows for the analysis species")
	}
	return cd, nil
}
