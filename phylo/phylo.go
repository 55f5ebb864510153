// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package phylo aligns a phylogenetic tree
// with the species of an analysis table,
// and derives the phylogenetic covariance
// used by the regression models.
package phylo

import (
	"fmt"
	"strings"

	"github.com/evosong/dielvox/taxonomy"
	"github.com/js-arias/timetree"
	"gonum.org/v1/gonum/mat"
)

// millionYears is the age unit of the tree files.
const millionYears = 1_000_000

// A CoverageError reports a mismatch
// between the tips of a tree
// and the species of an analysis table.
// It is fatal:
// no regression may run on misaligned data.
type CoverageError struct {
	// Analysis species without a tree tip.
	Missing []string

	// Tree tips without an analysis species
	// after pruning.
	Extra []string
}

func (e *CoverageError) Error() string {
	var b strings.Builder
	b.WriteString("tree-species coverage")
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": species without tip: %s", strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		fmt.Fprintf(&b, ": tips without species: %s", strings.Join(e.Extra, ", "))
	}
	return b.String()
}

// Prune removes from a tree
// every tip that is not a species
// of the analysis,
// and asserts that the remaining tip set
// is exactly the analysis species set.
// Branch lengths of the kept tips
// are preserved.
//
// Names are analysis scientific names;
// the tree name table maps them
// to the tip labels of the tree.
// An analysis species without a tip
// is a coverage error:
// the aligner cannot repair the input tree.
func Prune(t *timetree.Tree, names []string, tn *taxonomy.TreeNames) error {
	if tn == nil {
		tn = taxonomy.NewTreeNames()
	}

	want := make(map[string]bool, len(names))
	var missing []string
	for _, n := range names {
		tip := tn.TipLabel(n)
		if _, ok := t.TaxNode(tip); !ok {
			missing = append(missing, n)
			continue
		}
		want[tip] = true
	}
	if len(missing) > 0 {
		return &CoverageError{Missing: missing}
	}

	for _, term := range t.Terms() {
		if want[term] {
			continue
		}
		id, ok := t.TaxNode(term)
		if !ok {
			continue
		}
		if err := t.Delete(id); err != nil {
			return fmt.Errorf("unable to remove tip %q of tree %q: %v", term, t.Name(), err)
		}
	}

	// the pruned tip set must equal the species set
	got := make(map[string]bool)
	var extra []string
	for _, term := range t.Terms() {
		got[term] = true
		if !want[term] {
			extra = append(extra, term)
		}
	}
	for tip := range want {
		if !got[tip] {
			missing = append(missing, tip)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		return &CoverageError{Missing: missing, Extra: extra}
	}
	return nil
}

// VCV returns the phylogenetic covariance matrix
// of a set of species on a tree,
// under a Brownian motion model of evolution:
// the covariance of two species
// is the branch length,
// in million years,
// shared between the root and their most recent
// common ancestor,
// and the variance of a species
// is its root to tip length.
// Rows and columns follow the given name order.
func VCV(t *timetree.Tree, names []string, tn *taxonomy.TreeNames) (*mat.SymDense, error) {
	if tn == nil {
		tn = taxonomy.NewTreeNames()
	}

	tips := make([]int, len(names))
	for i, n := range names {
		tip := tn.TipLabel(n)
		id, ok := t.TaxNode(tip)
		if !ok {
			return nil, &CoverageError{Missing: []string{n}}
		}
		tips[i] = id
	}

	root := t.Root()
	rootAge := t.Age(root)

	v := mat.NewSymDense(len(names), nil)
	for i, a := range tips {
		v.SetSym(i, i, float64(rootAge-t.Age(a))/millionYears)
		for j := i + 1; j < len(tips); j++ {
			mrca := mrca(t, a, tips[j])
			v.SetSym(i, j, float64(rootAge-t.Age(mrca))/millionYears)
		}
	}
	return v, nil
}

// Lambda returns a copy of a phylogenetic covariance matrix
// with its off diagonal elements scaled
// by Pagel's lambda,
// the strength of the phylogenetic signal:
// at zero the species are independent,
// at one the full Brownian motion covariance holds.
func Lambda(v *mat.SymDense, lambda float64) *mat.SymDense {
	n := v.SymmetricDim()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, v.At(i, i))
		for j := i + 1; j < n; j++ {
			s.SetSym(i, j, lambda*v.At(i, j))
		}
	}
	return s
}

// mrca returns the most recent common ancestor
// of two nodes.
func mrca(t *timetree.Tree, a, b int) int {
	root := t.Root()

	anc := make(map[int]bool)
	for n := a; ; n = t.Parent(n) {
		anc[n] = true
		if n == root {
			break
		}
	}
	for n := b; ; n = t.Parent(n) {
		if anc[n] {
			return n
		}
		if n == root {
			break
		}
	}
	return root
}
