// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package species provides the lookup table
// between eBird species codes,
// scientific names,
// and common names.
package species

import (
	"fmt"
	"slices"
	"strings"

	"github.com/evosong/dielvox/taxonomy"
)

// A Taxon is a single species
// with its eBird code,
// scientific name,
// and common name.
type Taxon struct {
	Code   string
	Name   string
	Common string
}

// List is a species lookup table.
// Within a list the mapping between codes
// and scientific names is a bijection.
type List struct {
	byCode map[string]Taxon
	byName map[string]string
}

// New creates a new empty species list.
func New() *List {
	return &List{
		byCode: make(map[string]Taxon),
		byName: make(map[string]string),
	}
}

// Add adds a species to the list.
// It is an error to repeat a code
// or a scientific name,
// as either repetition breaks the code-name bijection.
func (l *List) Add(code, name, common string) error {
	code = strings.ToLower(strings.Join(strings.Fields(code), ""))
	name = taxonomy.Canon(name)
	if code == "" {
		return fmt.Errorf("species %q: empty code", name)
	}
	if name == "" {
		return fmt.Errorf("species code %q: empty scientific name", code)
	}

	if tx, ok := l.byCode[code]; ok {
		return fmt.Errorf("code %q already defined for %q", code, tx.Name)
	}
	if c, ok := l.byName[name]; ok {
		return fmt.Errorf("name %q already defined for code %q", name, c)
	}

	l.byCode[code] = Taxon{
		Code:   code,
		Name:   name,
		Common: strings.Join(strings.Fields(common), " "),
	}
	l.byName[name] = code
	return nil
}

// Name returns the scientific name for an eBird code,
// or an empty string if the code is not in the list.
func (l *List) Name(code string) string {
	code = strings.ToLower(strings.Join(strings.Fields(code), ""))
	return l.byCode[code].Name
}

// Code returns the eBird code for a scientific name,
// or an empty string if the name is not in the list.
func (l *List) Code(name string) string {
	name = taxonomy.Canon(name)
	return l.byName[name]
}

// Common returns the common name for an eBird code.
func (l *List) Common(code string) string {
	code = strings.ToLower(strings.Join(strings.Fields(code), ""))
	return l.byCode[code].Common
}

// Len returns the number of species in the list.
func (l *List) Len() int {
	return len(l.byCode)
}

// Codes returns the eBird codes in the list.
func (l *List) Codes() []string {
	codes := make([]string, 0, len(l.byCode))
	for c := range l.byCode {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return codes
}

// Normalize applies a synonym table
// to every scientific name of the list.
// It is an error if two species resolve
// to the same accepted name.
func (l *List) Normalize(s *taxonomy.Synonyms) error {
	byName := make(map[string]string, len(l.byName))
	for code, tx := range l.byCode {
		name := s.Apply(tx.Name)
		if c, ok := byName[name]; ok {
			return fmt.Errorf("name %q: codes %q and %q resolve to the same species", name, c, code)
		}
		byName[name] = code
		tx.Name = name
		l.byCode[code] = tx
	}
	l.byName = byName
	return nil
}
