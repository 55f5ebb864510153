// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package regress

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/evosong/dielvox/detection"
	"github.com/evosong/dielvox/suntime"
)

func testTable() detection.Table {
	return detection.Table{
		{
			Code: "asikoe2", Name: "Eudynamys scolopaceus", TimeOfDay: detection.Dawn,
			Detections: 30, Total: 40, PercentNormalized: 60,
			MedianStart: 0.52, PeakFreq: 850, Territory: 1, Sociality: 0, Niche: "frugivore",
		},
		{
			Code: "asikoe2", Name: "Eudynamys scolopaceus", TimeOfDay: detection.Dusk,
			Detections: 10, Total: 40, PercentNormalized: 40,
			MedianStart: 1.10, PeakFreq: 850, Territory: 1, Sociality: 0, Niche: "frugivore",
		},
		{
			Code: "purher1", Name: "Ardea purpurea", TimeOfDay: detection.Dawn,
			Detections: 12, Total: 12, PercentNormalized: 100,
			MedianStart: 0.31, PeakFreq: 620, Territory: 2, Sociality: 0, Niche: "predator",
		},
		{
			Code: "purher1", Name: "Ardea purpurea", TimeOfDay: detection.Dusk,
			Detections: 0, Total: 12, PercentNormalized: 0,
			MedianStart: math.NaN(), PeakFreq: 620, Territory: 2, Sociality: 0, Niche: "predator",
		},
	}
}

func TestFromTable(t *testing.T) {
	tab := testTable()

	d, dropped, err := FromTable(tab, detection.Dawn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dropped) > 0 {
		t.Errorf("dawn: dropped %v, want none", dropped)
	}
	species := []string{"Eudynamys scolopaceus", "Ardea purpurea"}
	if !reflect.DeepEqual(d.Species, species) {
		t.Errorf("dawn species: got %v, want %v", d.Species, species)
	}
	pn := []float64{60, 100}
	if !reflect.DeepEqual(d.Numeric["percentnormalized"], pn) {
		t.Errorf("percent normalized: got %v, want %v", d.Numeric["percentnormalized"], pn)
	}
	niche := []string{"frugivore", "predator"}
	if !reflect.DeepEqual(d.Factor["niche"], niche) {
		t.Errorf("niche: got %v, want %v", d.Factor["niche"], niche)
	}

	// a row without timing observations is excluded and reported
	d, dropped, err = FromTable(tab, detection.Dusk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(dropped, []string{"Ardea purpurea"}) {
		t.Errorf("dusk dropped: got %v", dropped)
	}
	if !reflect.DeepEqual(d.Species, []string{"Eudynamys scolopaceus"}) {
		t.Errorf("dusk species: got %v", d.Species)
	}
}

func TestFromCounts(t *testing.T) {
	sites := suntime.Sites{
		"P1": {ID: "P1", Latitude: 10.2, Longitude: 76.3, Type: "wetland"},
		"P2": {ID: "P2", Latitude: 10.3, Longitude: 76.4, Type: "garden"},
	}
	d1 := time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2023, 3, 11, 0, 0, 0, 0, time.UTC)
	obs := []detection.Observation{
		{Site: "P1", Date: d1, TimeOfDay: detection.Dawn, Code: "asikoe2", Count: 2},
		{Site: "P1", Date: d2, TimeOfDay: detection.Dawn, Code: "asikoe2", Count: 3},
		{Site: "P2", Date: d1, TimeOfDay: detection.Dawn, Code: "asikoe2", Count: 1},
		{Site: "P1", Date: d1, TimeOfDay: detection.Dusk, Code: "asikoe2", Count: 4},
		// a species not kept by the analysis
		{Site: "P1", Date: d1, TimeOfDay: detection.Dawn, Code: "kitern9", Count: 7},
	}

	cd, err := FromCounts(obs, sites, testTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(cd.Y, []int{1, 5, 4}) {
		t.Errorf("counts: got %v, want [1 5 4]", cd.Y)
	}
	groups := []string{"garden", "wetland", "wetland"}
	if !reflect.DeepEqual(cd.Groups, groups) {
		t.Errorf("groups: got %v, want %v", cd.Groups, groups)
	}

	// the offset is the log of the visits per stratum and habitat
	want := []float64{math.Log(1), math.Log(2), math.Log(1)}
	for i, o := range cd.Offset {
		about(t, "offset", o, want[i], 1e-10)
	}
	tods := []string{"dawn", "dawn", "dusk"}
	if !reflect.DeepEqual(cd.Factor["timeofday"], tods) {
		t.Errorf("time of day: got %v, want %v", cd.Factor["timeofday"], tods)
	}

	obs = append(obs, detection.Observation{Site: "P9", Date: d1, TimeOfDay: detection.Dawn, Code: "asikoe2", Count: 1})
	if _, err := FromCounts(obs, sites, testTable()); err == nil {
		t.Errorf("undefined site: expecting error")
	}
}
