// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package covariate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/evosong/dielvox/detection"
	"github.com/evosong/dielvox/taxonomy"
)

func readTable(r io.Reader, want []string, row func(ln int, get func(string) string) error) error {
	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'

	head, err := tab.Read()
	if err != nil {
		return fmt.Errorf("while reading header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(h)
		fields[h] = i
	}
	for _, h := range want {
		if _, ok := fields[h]; !ok {
			return fmt.Errorf("expecting field %q", h)
		}
	}

	for {
		cols, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return fmt.Errorf("on row %d: %v", ln, err)
		}

		get := func(f string) string {
			i, ok := fields[f]
			if !ok {
				return ""
			}
			return cols[i]
		}
		if err := row(ln, get); err != nil {
			return err
		}
	}
	return nil
}

// ReadTerritory reads a territoriality table from a TSV file.
//
// The TSV file must contain the following fields:
//
//   - name, the scientific name of the species
//   - territory, the ordinal territoriality, 1, 2, or 3
//
// Here is an example file:
//
//	name	territory
//	Turdus simillimus	3
//	Cinnyris asiaticus	2
//	Pycnonotus jocosus	1
func ReadTerritory(r io.Reader) (Territory, error) {
	t := make(Territory)
	err := readTable(r, []string{"name", "territory"}, func(ln int, get func(string) string) error {
		name := taxonomy.Canon(get("name"))
		if name == "" {
			return nil
		}
		v, err := strconv.Atoi(get("territory"))
		if err != nil {
			return fmt.Errorf("on row %d: field %q: %v", ln, "territory", err)
		}
		if v < 1 || v > 3 {
			return fmt.Errorf("on row %d: field %q: invalid value %d", ln, "territory", v)
		}
		t[name] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ReadSociality reads a communal signalling table from a TSV file.
//
// The TSV file must contain the following fields:
//
//   - name, the scientific name of the species
//   - sociality, 0 for solo singers, 1 for communal species
//
// Here is an example file:
//
//	name	sociality
//	Turdus simillimus	0
//	Argya affinis	1
func ReadSociality(r io.Reader) (Sociality, error) {
	s := make(Sociality)
	err := readTable(r, []string{"name", "sociality"}, func(ln int, get func(string) string) error {
		name := taxonomy.Canon(get("name"))
		if name == "" {
			return nil
		}
		v, err := strconv.Atoi(get("sociality"))
		if err != nil {
			return fmt.Errorf("on row %d: field %q: %v", ln, "sociality", err)
		}
		if v != 0 && v != 1 {
			return fmt.Errorf("on row %d: field %q: invalid value %d", ln, "sociality", v)
		}
		s[name] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ReadTraits reads a trophic niche table from a TSV file.
//
// The TSV file must contain the following fields:
//
//   - name, the scientific name of the species
//   - niche, the fine trophic niche of the source taxonomy
//
// Here is an example file:
//
//	name	niche
//	Turdus simillimus	Invertivore
//	Cinnyris asiaticus	Nectarivore
//	Psittacula columboides	Frugivore
func ReadTraits(r io.Reader) (Traits, error) {
	t := make(Traits)
	err := readTable(r, []string{"name", "niche"}, func(ln int, get func(string) string) error {
		name := taxonomy.Canon(get("name"))
		if name == "" {
			return nil
		}
		niche := strings.Join(strings.Fields(strings.ToLower(get("niche"))), " ")
		if niche == "" {
			return fmt.Errorf("on row %d: field %q: empty value", ln, "niche")
		}
		t[name] = niche
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ReadTemplates reads a peak frequency template table
// from a TSV file.
// Each row is a single reference template.
//
// The TSV file must contain the following fields:
//
//   - name, the scientific name of the species
//   - frequency, the peak frequency of the template, in Hz
//
// The field "timeofday",
// with the diel stratum of the template,
// is optional.
//
// Here is an example file:
//
//	name	timeofday	frequency
//	Turdus simillimus	dawn	2250
//	Turdus simillimus	dawn	2410
//	Turdus simillimus	dusk	2180
func ReadTemplates(r io.Reader) (*Templates, error) {
	t := NewTemplates()
	err := readTable(r, []string{"name", "frequency"}, func(ln int, get func(string) string) error {
		name := taxonomy.Canon(get("name"))
		if name == "" {
			return nil
		}
		freq, err := strconv.ParseFloat(get("frequency"), 64)
		if err != nil {
			return fmt.Errorf("on row %d: field %q: %v", ln, "frequency", err)
		}
		if freq <= 0 {
			return fmt.Errorf("on row %d: field %q: invalid frequency %.3f", ln, "frequency", freq)
		}

		var tod detection.TimeOfDay
		if s := get("timeofday"); s != "" {
			tod, err = detection.ParseTimeOfDay(s)
			if err != nil {
				return fmt.Errorf("on row %d: %v", ln, err)
			}
		}
		t.Add(name, tod, freq)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
