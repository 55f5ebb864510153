// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package taxonomy provides the name normalization tables
// used to reconcile scientific names
// across data sources of different taxonomic vintages.
package taxonomy

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Synonyms is a collection of taxonomic synonyms,
// mapping out of date scientific names
// to the name accepted by the analysis.
type Synonyms struct {
	pairs map[string]string
}

// NewSynonyms creates a new empty synonym table.
func NewSynonyms() *Synonyms {
	return &Synonyms{
		pairs: make(map[string]string),
	}
}

// Add adds a synonym pair to the table.
// Chains are resolved at insertion,
// so that Apply is always idempotent:
// if the accepted name of a previous pair
// is added as a synonym,
// the previous pair is updated
// to point to the new accepted name.
func (s *Synonyms) Add(synonym, accepted string) {
	synonym = Canon(synonym)
	accepted = Canon(accepted)
	if synonym == "" || accepted == "" || synonym == accepted {
		return
	}

	if acc, ok := s.pairs[accepted]; ok {
		accepted = acc
	}
	s.pairs[synonym] = accepted
	for old, acc := range s.pairs {
		if acc == synonym {
			s.pairs[old] = accepted
		}
	}
}

// Apply returns the accepted name
// for a given scientific name.
// Names without a defined synonym
// pass through unchanged
// (in canonical form).
func (s *Synonyms) Apply(name string) string {
	name = Canon(name)
	if acc, ok := s.pairs[name]; ok {
		return acc
	}
	return name
}

// Len returns the number of synonym pairs in the table.
func (s *Synonyms) Len() int {
	return len(s.pairs)
}

// Names returns the synonym names defined in the table.
func (s *Synonyms) Names() []string {
	names := make([]string, 0, len(s.pairs))
	for n := range s.pairs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// TreeNames is the table that reconciles
// the naming convention of the analysis
// (space separated binomials)
// with the tip labels of a phylogenetic tree
// (underscore separated labels,
// possibly under a different species concept).
type TreeNames struct {
	pairs map[string]string
}

// NewTreeNames creates a new empty tree name table.
func NewTreeNames() *TreeNames {
	return &TreeNames{
		pairs: make(map[string]string),
	}
}

// Add adds an explicit name-tip pair to the table.
func (t *TreeNames) Add(name, tip string) {
	name = Canon(name)
	tip = strings.Join(strings.Fields(tip), "_")
	if name == "" || tip == "" {
		return
	}
	t.pairs[name] = tip
}

// TipLabel returns the tree tip label
// for an analysis scientific name.
// If the name has no explicit pair,
// spaces are replaced by underscores.
func (t *TreeNames) TipLabel(name string) string {
	name = Canon(name)
	if tip, ok := t.pairs[name]; ok {
		return tip
	}
	return strings.ReplaceAll(name, " ", "_")
}

// Len returns the number of explicit pairs in the table.
func (t *TreeNames) Len() int {
	return len(t.pairs)
}

// Canon returns a scientific name
// in its canonical form:
// internal spaces collapsed,
// and the first rune capitalized.
func Canon(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	name = strings.ToLower(name)
	r, n := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[n:]
}
