// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package covariate provides the per species predictor tables
// of a diel vocal activity analysis,
// and the joiner that merges them
// into the vocal activity table.
//
// All tables are keyed by scientific name,
// and every join is audited:
// unmatched names,
// threshold exclusions,
// and policy drops are reported,
// never silently lost.
package covariate

import (
	"fmt"
	"math"
	"slices"

	"github.com/evosong/dielvox/detection"
	"github.com/evosong/dielvox/species"
	"github.com/evosong/dielvox/suntime"
	"github.com/evosong/dielvox/taxonomy"
	"gonum.org/v1/gonum/stat"
)

// Territory is the ordinal territoriality of each species:
// 1 for non-territorial,
// 2 for weakly territorial,
// and 3 for highly territorial species.
type Territory map[string]int

// Sociality is the communal signalling class of each species:
// 0 for solo singers,
// and 1 for communal
// (duetting or chorusing)
// species.
type Sociality map[string]int

// Traits is the trophic niche of each species,
// in the fine categories of the source trait table.
type Traits map[string]string

// Templates is the collection of peak frequency measurements,
// one per reference vocalization template,
// for each species.
type Templates struct {
	freq map[string]map[detection.TimeOfDay][]float64
}

// NewTemplates creates an empty template collection.
func NewTemplates() *Templates {
	return &Templates{
		freq: make(map[string]map[detection.TimeOfDay][]float64),
	}
}

// Add adds a template measurement for a species.
// The time of day may be empty
// for templates without a diel stratum.
func (t *Templates) Add(name string, tod detection.TimeOfDay, freq float64) {
	name = taxonomy.Canon(name)
	if name == "" || freq <= 0 {
		return
	}
	byTod, ok := t.freq[name]
	if !ok {
		byTod = make(map[detection.TimeOfDay][]float64)
		t.freq[name] = byTod
	}
	byTod[tod] = append(byTod[tod], freq)
}

// Count returns the total number of templates
// for a species,
// across all strata.
func (t *Templates) Count(name string) int {
	var n int
	for _, f := range t.freq[taxonomy.Canon(name)] {
		n += len(f)
	}
	return n
}

// Median returns the median peak frequency
// of a species at a time of day stratum.
// If the species has no template at that stratum,
// the median over all its templates is used.
// The second value is false
// if the species has no template at all.
func (t *Templates) Median(name string, tod detection.TimeOfDay) (float64, bool) {
	byTod, ok := t.freq[taxonomy.Canon(name)]
	if !ok {
		return 0, false
	}

	freq := byTod[tod]
	if len(freq) == 0 {
		for _, f := range byTod {
			freq = append(freq, f...)
		}
	}
	if len(freq) == 0 {
		return 0, false
	}

	freq = slices.Clone(freq)
	slices.Sort(freq)
	return stat.Quantile(0.5, stat.Empirical, freq, nil), true
}

// Names returns the species with templates.
func (t *Templates) Names() []string {
	names := make([]string, 0, len(t.freq))
	for n := range t.freq {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// NichePolicy is the rule used to collapse
// the fine trophic niche categories
// of the source trait table
// into the analysis level buckets.
type NichePolicy string

// Valid collapsing policies.
const (
	// NicheMerge merges frugivore,
	// granivore,
	// nectarivore,
	// and aquatic predator species
	// into a single "other" bucket,
	// keeping invertivores and omnivores distinct.
	NicheMerge NichePolicy = "merge"

	// NicheDrop removes aquatic predator,
	// granivore,
	// and nectarivore species
	// from the analysis,
	// keeping the remaining categories distinct.
	NicheDrop NichePolicy = "drop"
)

// ParseNichePolicy returns a collapsing policy
// from a string.
func ParseNichePolicy(s string) (NichePolicy, error) {
	switch p := NichePolicy(s); p {
	case NicheMerge, NicheDrop:
		return p, nil
	}
	return "", fmt.Errorf("invalid niche policy %q", s)
}

// Collapse maps a fine trophic niche category
// to its analysis bucket under the policy.
// If keep is false the species is excluded
// by the policy.
// A category unknown to the policy is an error:
// an unmapped category must not become
// a silent missing value.
func (p NichePolicy) Collapse(fine string) (bucket string, keep bool, err error) {
	switch p {
	case NicheMerge:
		switch fine {
		case "frugivore", "granivore", "nectarivore", "aquatic predator":
			return "other", true, nil
		case "invertivore", "omnivore":
			return fine, true, nil
		}
	case NicheDrop:
		switch fine {
		case "aquatic predator", "granivore", "nectarivore":
			return "", false, nil
		case "frugivore", "invertivore", "omnivore":
			return fine, true, nil
		}
	default:
		return "", false, fmt.Errorf("invalid niche policy %q", p)
	}
	return "", false, fmt.Errorf("niche %q: no bucket under policy %q", fine, p)
}

// An Audit records every exclusion
// made while assembling the analysis table,
// so that each lost species is attributable
// to a join failure,
// a threshold rule,
// or a policy decision.
type Audit struct {
	// Distinct species before and after all drops.
	Before, After int

	// Unmatched join keys per covariate table.
	Unmatched map[string][]string

	// Species with fewer templates than the threshold.
	TemplateExcluded []string

	// Species removed by the niche collapsing policy.
	NicheDropped []string

	// Stratum rows without timing observations,
	// as "name (stratum)".
	NoTiming []string
}

func (a *Audit) unmatched(table, name string) {
	if slices.Contains(a.Unmatched[table], name) {
		return
	}
	a.Unmatched[table] = append(a.Unmatched[table], name)
}

// Dropped returns the total number of species
// excluded during assembly.
func (a *Audit) Dropped() int {
	return a.Before - a.After
}

// Params collects the inputs of the joiner.
type Params struct {
	// Synonym table,
	// applied to every covariate key
	// before the join.
	Synonyms *taxonomy.Synonyms

	// Species code lookup,
	// already normalized.
	Species *species.List

	Territory Territory
	Sociality Sociality
	Traits    Traits
	Templates *Templates

	// Collapsing policy for the trophic niche.
	Policy NichePolicy

	// Minimum number of templates required
	// to keep a species.
	// Species below the threshold are excluded entirely,
	// not imputed.
	// If zero,
	// a threshold of 5 is used.
	MinTemplates int

	// Median twilight offsets per species and stratum.
	Medians map[suntime.Key]float64
}

// DefaultMinTemplates is the default minimum number
// of reference templates per species.
const DefaultMinTemplates = 5

// Assemble left-joins the vocal activity table
// with every covariate table,
// applying the synonym normalization
// and the niche collapsing policy,
// and drops the species without a complete
// set of species level predictors.
// Every exclusion is recorded in the audit.
//
// A stratum row of a kept species
// without timing observations
// gets a NaN median start time;
// such rows are excluded per stratum
// at model fitting.
//
// Two species codes resolving to the same
// accepted name is an error,
// not a silent merge.
func Assemble(t detection.Table, p Params) (detection.Table, *Audit, error) {
	if p.Policy == "" {
		return nil, nil, fmt.Errorf("undefined niche policy")
	}
	minTemp := p.MinTemplates
	if minTemp == 0 {
		minTemp = DefaultMinTemplates
	}
	syn := p.Synonyms
	if syn == nil {
		syn = taxonomy.NewSynonyms()
	}

	audit := &Audit{
		Unmatched: make(map[string][]string),
	}
	audit.Before = len(t.Codes())

	// the code to name mapping must stay a bijection
	// after the synonym normalization
	if p.Species != nil {
		byName := make(map[string]string)
		for _, code := range p.Species.Codes() {
			name := syn.Apply(p.Species.Name(code))
			if c, ok := byName[name]; ok {
				return nil, nil, fmt.Errorf("name %q: codes %q and %q resolve to the same species", name, c, code)
			}
			byName[name] = code
		}
	}

	territory := rekey(p.Territory, syn)
	sociality := rekey(p.Sociality, syn)
	traits := rekey(p.Traits, syn)

	var out detection.Table
	drop := make(map[string]bool)
	for _, r := range t {
		name := ""
		if p.Species != nil {
			name = p.Species.Name(r.Code)
		}
		if name == "" {
			audit.unmatched("species", r.Code)
			drop[r.Code] = true
			continue
		}
		r.Name = syn.Apply(name)

		keep := true

		if v, ok := territory[r.Name]; ok {
			r.Territory = v
		} else {
			audit.unmatched("territory", r.Name)
			keep = false
		}

		if v, ok := sociality[r.Name]; ok {
			r.Sociality = v
		} else {
			audit.unmatched("sociality", r.Name)
			keep = false
		}

		if fine, ok := traits[r.Name]; ok {
			bucket, kp, err := p.Policy.Collapse(fine)
			if err != nil {
				return nil, nil, fmt.Errorf("species %q: %v", r.Name, err)
			}
			if !kp {
				if r.TimeOfDay == detection.Dawn {
					audit.NicheDropped = append(audit.NicheDropped, r.Name)
				}
				keep = false
			}
			r.Niche = bucket
		} else {
			audit.unmatched("traits", r.Name)
			keep = false
		}

		if p.Templates == nil || p.Templates.Count(r.Name) == 0 {
			audit.unmatched("templates", r.Name)
			keep = false
		} else if p.Templates.Count(r.Name) < minTemp {
			if r.TimeOfDay == detection.Dawn {
				audit.TemplateExcluded = append(audit.TemplateExcluded, r.Name)
			}
			keep = false
		} else {
			r.PeakFreq, _ = p.Templates.Median(r.Name, r.TimeOfDay)
		}

		if m, ok := p.Medians[suntime.Key{Code: r.Code, TimeOfDay: r.TimeOfDay}]; ok {
			r.MedianStart = m
		} else {
			r.MedianStart = math.NaN()
		}

		if !keep {
			drop[r.Code] = true
			continue
		}
		out = append(out, r)
	}

	// complete cases: both rows of a dropped species go
	kept := out[:0]
	names := make(map[string]bool)
	for _, r := range out {
		if drop[r.Code] {
			continue
		}
		names[r.Name] = true
		kept = append(kept, r)
		if math.IsNaN(r.MedianStart) {
			audit.NoTiming = append(audit.NoTiming, fmt.Sprintf("%s (%s)", r.Name, r.TimeOfDay))
		}
	}
	audit.After = len(names)

	for _, u := range audit.Unmatched {
		slices.Sort(u)
	}
	slices.Sort(audit.TemplateExcluded)
	slices.Sort(audit.NicheDropped)
	slices.Sort(audit.NoTiming)

	return kept, audit, nil
}

func rekey[V comparable](m map[string]V, syn *taxonomy.Synonyms) map[string]V {
	out := make(map[string]V, len(m))
	for name, v := range m {
		out[syn.Apply(name)] = v
	}
	return out
}
