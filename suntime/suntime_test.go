// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package suntime_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/evosong/dielvox/detection"
	"github.com/evosong/dielvox/suntime"
)

func newSites() suntime.Sites {
	return suntime.Sites{
		"VAL04": {
			ID:        "VAL04",
			Latitude:  10.2712,
			Longitude: 0,
			Timezone:  "UTC",
			Type:      "shola",
		},
	}
}

func TestTwilight(t *testing.T) {
	c := suntime.NewCalc(newSites())

	date := time.Date(2021, 1, 12, 0, 0, 0, 0, time.UTC)
	tw, err := c.Twilight("VAL04", date)
	if err != nil {
		t.Fatalf("unable to compute twilight: %v", err)
	}

	if !tw.NauticalDawn.Before(tw.Sunrise) {
		t.Errorf("nautical dawn %v is not before sunrise %v", tw.NauticalDawn, tw.Sunrise)
	}
	if !tw.Sunset.Before(tw.NauticalDusk) {
		t.Errorf("sunset %v is not before nautical dusk %v", tw.Sunset, tw.NauticalDusk)
	}

	// at 10°N the sun rises around 06:30 solar time
	if h := tw.Sunrise.Hour(); h < 5 || h > 7 {
		t.Errorf("sunrise hour: got %d, want 5-7", h)
	}
	if h := tw.NauticalDusk.Hour(); h < 17 || h > 19 {
		t.Errorf("nautical dusk hour: got %d, want 17-19", h)
	}

	if _, err := c.Twilight("NX99", date); err == nil {
		t.Errorf("expecting error for an undefined site")
	}
}

func TestAnnotate(t *testing.T) {
	c := suntime.NewCalc(newSites())
	date := time.Date(2021, 1, 12, 0, 0, 0, 0, time.UTC)

	obs := []detection.Observation{
		{Site: "VAL04", Date: date, Start: 6 * time.Hour, End: 6 * time.Hour, TimeOfDay: detection.Dawn, Code: "inbrob1", Count: 1},
		{Site: "VAL04", Date: date, Start: 7 * time.Hour, End: 7 * time.Hour, TimeOfDay: detection.Dawn, Code: "inbrob1", Count: 1},
		{Site: "VAL04", Date: date, Start: 17 * time.Hour, End: 17*time.Hour + 15*time.Minute, TimeOfDay: detection.Dusk, Code: "inbrob1", Count: 1},
		{Site: "VAL04", Date: date, Start: 11 * time.Hour, End: 11 * time.Hour, TimeOfDay: detection.Dawn, Code: "inrob1", Count: 1},
	}

	ann, dropped, err := suntime.Annotate(obs, c, 0)
	if err != nil {
		t.Fatalf("unable to annotate: %v", err)
	}
	if len(dropped) != 0 {
		t.Fatalf("without a window no observation should drop: got %d", len(dropped))
	}
	if len(ann) != len(obs) {
		t.Fatalf("annotated: got %d, want %d", len(ann), len(obs))
	}

	// one hour later at dawn is one hour more from the boundary
	if d := ann[1].Offset - ann[0].Offset; math.Abs(d-1) > 1e-6 {
		t.Errorf("dawn offsets one hour apart: got difference %.6f, want 1", d)
	}

	// a mid morning segment is far after nautical dawn
	if ann[3].Offset < 3 {
		t.Errorf("mid morning offset: got %.6f, want > 3", ann[3].Offset)
	}

	// a dusk segment ending before nautical dusk has a positive offset
	if ann[2].Offset < 0 {
		t.Errorf("dusk offset: got %.6f, want > 0", ann[2].Offset)
	}

	// windowing drops exactly the observations
	// farther than the window from their boundary
	window := 1.5
	var wantKept int
	for _, a := range ann {
		if a.Offset >= -window && a.Offset <= window {
			wantKept++
		}
	}
	kept, dropped, err := suntime.Annotate(obs, c, window)
	if err != nil {
		t.Fatalf("unable to annotate with window: %v", err)
	}
	if len(kept) != wantKept {
		t.Errorf("windowed: kept %d, want %d", len(kept), wantKept)
	}
	if len(kept)+len(dropped) != len(obs) {
		t.Errorf("windowed: kept %d + dropped %d != %d", len(kept), len(dropped), len(obs))
	}
	for _, a := range kept {
		if a.Offset < -window || a.Offset > window {
			t.Errorf("windowed: offset %.6f outside window", a.Offset)
		}
	}
}

func TestAnnotateUnknownSite(t *testing.T) {
	c := suntime.NewCalc(newSites())
	date := time.Date(2021, 1, 12, 0, 0, 0, 0, time.UTC)

	obs := []detection.Observation{
		{Site: "NX99", Date: date, Start: 6 * time.Hour, TimeOfDay: detection.Dawn, Code: "inbrob1", Count: 1},
	}
	if _, _, err := suntime.Annotate(obs, c, 0); err == nil {
		t.Errorf("expecting error for an undefined site")
	}
}

func TestMedians(t *testing.T) {
	date := time.Date(2021, 1, 12, 0, 0, 0, 0, time.UTC)
	o := detection.Observation{Site: "VAL04", Date: date, TimeOfDay: detection.Dawn, Code: "inbrob1"}

	var ann []suntime.Annotated
	// an outlier session should not move the median
	for _, off := range []float64{0.25, 0.50, 0.75, 6.00} {
		ann = append(ann, suntime.Annotated{Observation: o, Offset: off})
	}
	d := o
	d.TimeOfDay = detection.Dusk
	ann = append(ann, suntime.Annotated{Observation: d, Offset: -0.4})

	med := suntime.Medians(ann)
	if len(med) != 2 {
		t.Fatalf("keys: got %d, want %d", len(med), 2)
	}

	g := med[suntime.Key{Code: "inbrob1", TimeOfDay: detection.Dawn}]
	if g < 0.25 || g > 0.75 {
		t.Errorf("dawn median: got %.6f, want within [0.25, 0.75]", g)
	}
	g = med[suntime.Key{Code: "inbrob1", TimeOfDay: detection.Dusk}]
	if math.Abs(g+0.4) > 1e-9 {
		t.Errorf("dusk median: got %.6f, want -0.4", g)
	}
}

func TestReadSites(t *testing.T) {
	data := "" +
		"site\tlatitude\tlongitude\ttimezone\ttype\n" +
		"VAL04\t10.2712\t77.3715\tUTC\tshola\n" +
		"SEN02\t10.1687\t77.2923\tUTC\tplantation\n"
	sites, err := suntime.ReadSites(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unable to read TSV data: %v", err)
	}
	if len(sites) != 2 {
		t.Fatalf("sites: got %d, want %d", len(sites), 2)
	}
	s := sites["SEN02"]
	if s.Latitude != 10.1687 || s.Longitude != 77.2923 || s.Type != "plantation" {
		t.Errorf("site SEN02: got %+v", s)
	}

	bad := "site\tlatitude\tlongitude\ttimezone\nVAL04\t100.0\t77.3715\tUTC\n"
	if _, err := suntime.ReadSites(strings.NewReader(bad)); err == nil {
		t.Errorf("expecting error for an invalid latitude")
	}
}
