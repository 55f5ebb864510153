// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package covariate_test

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/evosong/dielvox/covariate"
	"github.com/evosong/dielvox/detection"
	"github.com/evosong/dielvox/species"
	"github.com/evosong/dielvox/suntime"
	"github.com/evosong/dielvox/taxonomy"
)

func TestNichePolicy(t *testing.T) {
	merge := map[string]string{
		"frugivore":        "other",
		"granivore":        "other",
		"nectarivore":      "other",
		"aquatic predator": "other",
		"invertivore":      "invertivore",
		"omnivore":         "omnivore",
	}
	for fine, want := range merge {
		b, keep, err := covariate.NicheMerge.Collapse(fine)
		if err != nil {
			t.Fatalf("merge policy: niche %q: %v", fine, err)
		}
		if !keep || b != want {
			t.Errorf("merge policy: niche %q: got %q (keep %v), want %q", fine, b, keep, want)
		}
	}

	dropped := []string{"aquatic predator", "granivore", "nectarivore"}
	for _, fine := range dropped {
		_, keep, err := covariate.NicheDrop.Collapse(fine)
		if err != nil {
			t.Fatalf("drop policy: niche %q: %v", fine, err)
		}
		if keep {
			t.Errorf("drop policy: niche %q: should drop", fine)
		}
	}
	for _, fine := range []string{"frugivore", "invertivore", "omnivore"} {
		b, keep, err := covariate.NicheDrop.Collapse(fine)
		if err != nil {
			t.Fatalf("drop policy: niche %q: %v", fine, err)
		}
		if !keep || b != fine {
			t.Errorf("drop policy: niche %q: got %q (keep %v)", fine, b, keep)
		}
	}

	// an unmapped category must raise,
	// not become a missing value
	for _, p := range []covariate.NichePolicy{covariate.NicheMerge, covariate.NicheDrop} {
		if _, _, err := p.Collapse("scavenger"); err == nil {
			t.Errorf("policy %q: expecting error for an unmapped niche", p)
		}
	}

	if _, err := covariate.ParseNichePolicy("merge"); err != nil {
		t.Errorf("parse: unexpected error: %v", err)
	}
	if _, err := covariate.ParseNichePolicy("keep-all"); err == nil {
		t.Errorf("parse: expecting error for an invalid policy")
	}
}

func TestTemplates(t *testing.T) {
	tp := covariate.NewTemplates()
	for _, f := range []float64{2250, 2410, 2180} {
		tp.Add("Turdus simillimus", detection.Dawn, f)
	}
	tp.Add("Turdus simillimus", detection.Dusk, 2100)

	if g := tp.Count("Turdus simillimus"); g != 4 {
		t.Errorf("count: got %d, want %d", g, 4)
	}

	m, ok := tp.Median("Turdus simillimus", detection.Dawn)
	if !ok {
		t.Fatalf("expecting a dawn median")
	}
	if m != 2250 {
		t.Errorf("dawn median: got %.1f, want 2250", m)
	}

	// a stratum without templates falls back
	// to the species level median
	tp.Add("Copsychus fulicatus", detection.Dawn, 3000)
	m, ok = tp.Median("Copsychus fulicatus", detection.Dusk)
	if !ok {
		t.Fatalf("expecting a fallback median")
	}
	if m != 3000 {
		t.Errorf("fallback median: got %.1f, want 3000", m)
	}

	if _, ok := tp.Median("Argya affinis", detection.Dawn); ok {
		t.Errorf("unexpected median for a species without templates")
	}
}

func TestAssemble(t *testing.T) {
	tab := newTable(t)
	p := newParams(t)

	out, audit, err := covariate.Assemble(tab, p)
	if err != nil {
		t.Fatalf("unable to assemble: %v", err)
	}

	if audit.Before != 4 {
		t.Errorf("audit: before: got %d, want %d", audit.Before, 4)
	}
	if audit.After != 2 {
		t.Errorf("audit: after: got %d, want %d", audit.After, 2)
	}
	if audit.Dropped() != 2 {
		t.Errorf("audit: dropped: got %d, want %d", audit.Dropped(), 2)
	}

	if w := []string{"kitern9"}; !reflect.DeepEqual(audit.Unmatched["species"], w) {
		t.Errorf("audit: unmatched species: got %v, want %v", audit.Unmatched["species"], w)
	}
	if w := []string{"Saxicoloides fulicatus"}; !reflect.DeepEqual(audit.TemplateExcluded, w) {
		t.Errorf("audit: template exclusions: got %v, want %v", audit.TemplateExcluded, w)
	}
	if w := []string{"Cinnyris asiaticus (dusk)"}; !reflect.DeepEqual(audit.NoTiming, w) {
		t.Errorf("audit: rows without timing: got %v, want %v", audit.NoTiming, w)
	}

	names := []string{"Cinnyris asiaticus", "Turdus simillimus"}
	if g := out.Names(); !reflect.DeepEqual(g, names) {
		t.Errorf("names: got %v, want %v", g, names)
	}

	for _, r := range out {
		if r.Code != "inbrob1" {
			continue
		}
		if r.Territory != 3 || r.Sociality != 0 || r.Niche != "invertivore" {
			t.Errorf("inbrob1 %s: covariates: got %+v", r.TimeOfDay, r)
		}
		if r.PeakFreq <= 0 {
			t.Errorf("inbrob1 %s: peak frequency: got %.1f", r.TimeOfDay, r.PeakFreq)
		}
		if math.IsNaN(r.MedianStart) {
			t.Errorf("inbrob1 %s: missing median start", r.TimeOfDay)
		}
	}

	// nectarivore collapses into the merged bucket
	for _, r := range out {
		if r.Code == "purher1" && r.Niche != "other" {
			t.Errorf("purher1: niche: got %q, want %q", r.Niche, "other")
		}
	}
}

func TestAssembleDropPolicy(t *testing.T) {
	tab := newTable(t)
	p := newParams(t)
	p.Policy = covariate.NicheDrop

	out, audit, err := covariate.Assemble(tab, p)
	if err != nil {
		t.Fatalf("unable to assemble: %v", err)
	}

	if w := []string{"Cinnyris asiaticus"}; !reflect.DeepEqual(audit.NicheDropped, w) {
		t.Errorf("audit: niche drops: got %v, want %v", audit.NicheDropped, w)
	}
	if audit.After != 1 {
		t.Errorf("audit: after: got %d, want %d", audit.After, 1)
	}
	if g := out.Names(); !reflect.DeepEqual(g, []string{"Turdus simillimus"}) {
		t.Errorf("names: got %v", g)
	}
}

func TestAssembleLumpedCodes(t *testing.T) {
	tab := newTable(t)
	p := newParams(t)

	// a synonym that lumps two codes onto one accepted name
	if err := p.Species.Add("painas1", "Anthus rufulus", ""); err != nil {
		t.Fatalf("unable to add species: %v", err)
	}
	if err := p.Species.Add("ricpip1", "Anthus richardi", ""); err != nil {
		t.Fatalf("unable to add species: %v", err)
	}
	p.Synonyms.Add("Anthus rufulus", "Anthus richardi")

	_, _, err := covariate.Assemble(tab, p)
	if err == nil {
		t.Fatalf("expecting error for codes lumped by a synonym")
	}
	for _, code := range []string{"painas1", "ricpip1"} {
		if !strings.Contains(err.Error(), code) {
			t.Errorf("error %q: expecting code %q", err, code)
		}
	}
}

func TestAssembleDegenerateRecoding(t *testing.T) {
	tab := newTable(t)
	p := newParams(t)
	p.Traits["Turdus simillimus"] = "scavenger"

	if _, _, err := covariate.Assemble(tab, p); err == nil {
		t.Errorf("expecting error for an unmapped niche category")
	}
}

func TestReadTables(t *testing.T) {
	terr, err := covariate.ReadTerritory(strings.NewReader("name\tterritory\nTurdus simillimus\t3\npycnonotus jocosus\t1\n"))
	if err != nil {
		t.Fatalf("territory: %v", err)
	}
	if w := (covariate.Territory{"Turdus simillimus": 3, "Pycnonotus jocosus": 1}); !reflect.DeepEqual(terr, w) {
		t.Errorf("territory: got %v, want %v", terr, w)
	}
	if _, err := covariate.ReadTerritory(strings.NewReader("name\tterritory\nTurdus simillimus\t4\n")); err == nil {
		t.Errorf("territory: expecting error for an out of range value")
	}

	soc, err := covariate.ReadSociality(strings.NewReader("name\tsociality\nArgya affinis\t1\n"))
	if err != nil {
		t.Fatalf("sociality: %v", err)
	}
	if soc["Argya affinis"] != 1 {
		t.Errorf("sociality: got %v", soc)
	}
	if _, err := covariate.ReadSociality(strings.NewReader("name\tsociality\nArgya affinis\t2\n")); err == nil {
		t.Errorf("sociality: expecting error for an invalid value")
	}

	tr, err := covariate.ReadTraits(strings.NewReader("name\tniche\nTurdus simillimus\tInvertivore\n"))
	if err != nil {
		t.Fatalf("traits: %v", err)
	}
	if tr["Turdus simillimus"] != "invertivore" {
		t.Errorf("traits: got %v", tr)
	}

	tp, err := covariate.ReadTemplates(strings.NewReader("name\ttimeofday\tfrequency\nTurdus simillimus\tdawn\t2250\nTurdus simillimus\tdusk\t2100\n"))
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	if g := tp.Count("Turdus simillimus"); g != 2 {
		t.Errorf("templates: count: got %d, want %d", g, 2)
	}
	if _, err := covariate.ReadTemplates(strings.NewReader("name\tfrequency\nTurdus simillimus\t-5\n")); err == nil {
		t.Errorf("templates: expecting error for an invalid frequency")
	}
}

func newTable(t testing.TB) detection.Table {
	t.Helper()

	d1 := time.Date(2021, 1, 12, 0, 0, 0, 0, time.UTC)
	obs := []detection.Observation{
		{Site: "VAL04", Date: d1, TimeOfDay: detection.Dawn, Code: "inbrob1", Count: 3},
		{Site: "VAL04", Date: d1, TimeOfDay: detection.Dusk, Code: "inbrob1", Count: 2},
		{Site: "VAL04", Date: d1, TimeOfDay: detection.Dawn, Code: "purher1", Count: 4},
		{Site: "VAL04", Date: d1, TimeOfDay: detection.Dawn, Code: "inrob1", Count: 1},
		{Site: "VAL04", Date: d1, TimeOfDay: detection.Dusk, Code: "inrob1", Count: 1},
		{Site: "VAL04", Date: d1, TimeOfDay: detection.Dawn, Code: "kitern9", Count: 1},
	}
	tab, err := detection.Build(obs, detection.CountVisits(obs))
	if err != nil {
		t.Fatalf("unable to build activity table: %v", err)
	}
	return tab
}

func newParams(t testing.TB) covariate.Params {
	t.Helper()

	ls := species.New()
	for _, tx := range []struct{ code, name string }{
		{"inbrob1", "Turdus simillimus"},
		{"purher1", "Cinnyris asiaticus"},
		{"inrob1", "Copsychus fulicatus"},
	} {
		if err := ls.Add(tx.code, tx.name, ""); err != nil {
			t.Fatalf("unable to add species: %v", err)
		}
	}

	syn := taxonomy.NewSynonyms()
	syn.Add("Copsychus fulicatus", "Saxicoloides fulicatus")

	tp := covariate.NewTemplates()
	for _, f := range []float64{2250, 2410, 2180, 2300, 2350, 2275} {
		tp.Add("Turdus simillimus", detection.Dawn, f)
	}
	for _, f := range []float64{5200, 5350, 5280, 5400, 5150} {
		tp.Add("Cinnyris asiaticus", detection.Dawn, f)
	}
	// below the threshold
	for _, f := range []float64{3000, 3100, 2950} {
		tp.Add("Saxicoloides fulicatus", detection.Dawn, f)
	}

	med := map[suntime.Key]float64{
		{Code: "inbrob1", TimeOfDay: detection.Dawn}: 0.4,
		{Code: "inbrob1", TimeOfDay: detection.Dusk}: -0.2,
		{Code: "purher1", TimeOfDay: detection.Dawn}: 1.1,
		{Code: "inrob1", TimeOfDay: detection.Dawn}:  0.7,
		{Code: "inrob1", TimeOfDay: detection.Dusk}:  0.1,
	}

	return covariate.Params{
		Synonyms: syn,
		Species:  ls,
		Territory: covariate.Territory{
			"Turdus simillimus":   3,
			"Cinnyris asiaticus":  2,
			"Copsychus fulicatus": 1,
		},
		Sociality: covariate.Sociality{
			"Turdus simillimus":      0,
			"Cinnyris asiaticus":     0,
			"Saxicoloides fulicatus": 0,
		},
		Traits: covariate.Traits{
			"Turdus simillimus":      "invertivore",
			"Cinnyris asiaticus":     "nectarivore",
			"Saxicoloides fulicatus": "invertivore",
		},
		Templates: tp,
		Policy:    covariate.NicheMerge,
		Medians:   med,
	}
}
