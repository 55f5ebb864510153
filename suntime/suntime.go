// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package suntime annotates acoustic observations
// with their offset from the local twilight boundaries,
// using a solar ephemeris
// at the coordinates of each sampling site.
package suntime

import (
	"fmt"
	"slices"
	"time"

	"github.com/evosong/dielvox/detection"
	"github.com/sj14/astral/pkg/astral"
	"gonum.org/v1/gonum/stat"
)

// Twilight holds the solar event times
// of a site and date,
// in the local time of the site.
type Twilight struct {
	NauticalDawn time.Time
	Sunrise      time.Time
	Sunset       time.Time
	NauticalDusk time.Time
}

type twilightKey struct {
	site string
	date time.Time
}

// A Calc computes twilight boundaries
// for the sampling sites of a study.
// Events are cached per site and date,
// as a study samples the same site-date pair
// many times.
type Calc struct {
	sites Sites
	cache map[twilightKey]Twilight
}

// NewCalc creates a twilight calculator
// for a set of sites.
func NewCalc(sites Sites) *Calc {
	return &Calc{
		sites: sites,
		cache: make(map[twilightKey]Twilight),
	}
}

// Twilight returns the twilight boundaries
// for a site and a date.
func (c *Calc) Twilight(site string, date time.Time) (Twilight, error) {
	k := twilightKey{site, date}
	if tw, ok := c.cache[k]; ok {
		return tw, nil
	}

	s, ok := c.sites[site]
	if !ok {
		return Twilight{}, fmt.Errorf("site %q not defined", site)
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return Twilight{}, fmt.Errorf("site %q: %v", site, err)
	}

	obs := astral.Observer{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
	}
	// anchor the ephemeris date at local noon
	d := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, loc)

	dawn, err := astral.Dawn(obs, d, astral.DepressionNautical)
	if err != nil {
		return Twilight{}, fmt.Errorf("site %q: nautical dawn: %v", site, err)
	}
	sunrise, err := astral.Sunrise(obs, d)
	if err != nil {
		return Twilight{}, fmt.Errorf("site %q: sunrise: %v", site, err)
	}
	sunset, err := astral.Sunset(obs, d)
	if err != nil {
		return Twilight{}, fmt.Errorf("site %q: sunset: %v", site, err)
	}
	dusk, err := astral.Dusk(obs, d, astral.DepressionNautical)
	if err != nil {
		return Twilight{}, fmt.Errorf("site %q: nautical dusk: %v", site, err)
	}

	tw := Twilight{
		NauticalDawn: dawn.In(loc),
		Sunrise:      sunrise.In(loc),
		Sunset:       sunset.In(loc),
		NauticalDusk: dusk.In(loc),
	}
	c.cache[k] = tw
	return tw, nil
}

// An Annotated observation is an observation
// with its offset,
// in fractional hours,
// from the twilight boundary of its stratum:
// the time from nautical dawn
// to the start of the recording segment
// for dawn observations,
// and the time from the end of the segment
// to nautical dusk
// for dusk observations.
// In both cases a positive offset means
// the segment is on the day side of the boundary.
type Annotated struct {
	detection.Observation
	Offset float64
}

// Annotate computes the twilight offset
// of every observation.
//
// If window is greater than zero,
// observations farther than window hours
// from their twilight boundary are dropped,
// so that both strata are comparably sampled
// in elapsed time;
// the dropped observations are returned
// for reporting.
// Windowing happens before any effort counting,
// so callers must count visits
// on the kept observations only.
func Annotate(obs []detection.Observation, c *Calc, window float64) (kept []Annotated, dropped []detection.Observation, err error) {
	for _, o := range obs {
		tw, err := c.Twilight(o.Site, o.Date)
		if err != nil {
			return nil, nil, err
		}

		s, ok := c.sites[o.Site]
		if !ok {
			return nil, nil, fmt.Errorf("site %q not defined", o.Site)
		}
		loc, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return nil, nil, fmt.Errorf("site %q: %v", o.Site, err)
		}
		midnight := time.Date(o.Date.Year(), o.Date.Month(), o.Date.Day(), 0, 0, 0, 0, loc)

		var off float64
		switch o.TimeOfDay {
		case detection.Dawn:
			start := midnight.Add(o.Start)
			off = start.Sub(tw.NauticalDawn).Hours()
		case detection.Dusk:
			end := midnight.Add(o.End)
			off = tw.NauticalDusk.Sub(end).Hours()
		default:
			return nil, nil, fmt.Errorf("observation at %q: invalid time of day %q", o.Site, o.TimeOfDay)
		}

		if window > 0 && (off < -window || off > window) {
			dropped = append(dropped, o)
			continue
		}
		kept = append(kept, Annotated{Observation: o, Offset: off})
	}
	return kept, dropped, nil
}

// A Key identifies a species and time of day stratum.
type Key struct {
	Code      string
	TimeOfDay detection.TimeOfDay
}

// Medians aggregates the twilight offsets
// per species and stratum,
// taking the median across all observations
// of the species in the stratum.
// The median,
// not the mean,
// resists outlier recording sessions.
func Medians(ann []Annotated) map[Key]float64 {
	byKey := make(map[Key][]float64)
	for _, a := range ann {
		k := Key{a.Code, a.TimeOfDay}
		byKey[k] = append(byKey[k], a.Offset)
	}

	med := make(map[Key]float64, len(byKey))
	for k, off := range byKey {
		slices.Sort(off)
		med[k] = stat.Quantile(0.5, stat.Empirical, off, nil)
	}
	return med
}

// Observations returns the raw observations
// of an annotated set.
func Observations(ann []Annotated) []detection.Observation {
	obs := make([]detection.Observation, 0, len(ann))
	for _, a := range ann {
		obs = append(obs, a.Observation)
	}
	return obs
}
