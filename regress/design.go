// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package regress

import (
	"fmt"
	"slices"

	"github.com/evosong/dielvox/model"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// A Design is the design matrix of a regression model:
// an intercept column,
// the z-scored numeric predictors,
// and the dummy coded categorical predictors
// against their reference levels.
type Design struct {
	X     *mat.Dense
	Names []string // column names

	terms  []model.Term
	levels map[string][]string // observed levels per categorical term
	mean   map[string]float64
	sd     map[string]float64
}

// Intercept is the name of the intercept column.
const Intercept = "(intercept)"

// NewDesign builds the design matrix of a model
// over a dataset.
//
// Numeric predictors are z-scored
// (centered to mean zero,
// scaled to unit standard deviation)
// so that coefficient magnitudes are comparable
// across predictors.
// A categorical predictor whose reference level
// is not observed in the data is an error,
// as is a constant numeric predictor.
func NewDesign(d *Dataset, terms []model.Term) (*Design, error) {
	n := d.Len()
	if n == 0 {
		return nil, fmt.Errorf("empty dataset")
	}

	ds := &Design{
		terms:  terms,
		levels: make(map[string][]string),
		mean:   make(map[string]float64),
		sd:     make(map[string]float64),
	}

	cols := [][]float64{ones(n)}
	ds.Names = []string{Intercept}

	for _, t := range terms {
		if !t.Categorical {
			v, ok := d.Numeric[t.Name]
			if !ok || v == nil {
				return nil, fmt.Errorf("term %q: no numeric column", t.Name)
			}
			m := stat.Mean(v, nil)
			sd := stat.StdDev(v, nil)
			if sd == 0 {
				return nil, fmt.Errorf("term %q: constant predictor", t.Name)
			}
			z := make([]float64, n)
			for i, x := range v {
				z[i] = (x - m) / sd
			}
			cols = append(cols, z)
			ds.Names = append(ds.Names, t.Name)
			ds.mean[t.Name] = m
			ds.sd[t.Name] = sd
			continue
		}

		f, ok := d.Factor[t.Name]
		if !ok || f == nil {
			return nil, fmt.Errorf("term %q: no categorical column", t.Name)
		}
		levels := distinct(f)
		if !slices.Contains(levels, t.Reference) {
			return nil, fmt.Errorf("term %q: reference level %q not observed", t.Name, t.Reference)
		}
		ds.levels[t.Name] = levels

		for _, lv := range levels {
			if lv == t.Reference {
				continue
			}
			dummy := make([]float64, n)
			for i, x := range f {
				if x == lv {
					dummy[i] = 1
				}
			}
			cols = append(cols, dummy)
			ds.Names = append(ds.Names, t.Name+":"+lv)
		}
	}

	x := mat.NewDense(n, len(cols), nil)
	for j, c := range cols {
		x.SetCol(j, c)
	}
	ds.X = x
	return ds, nil
}

// N returns the number of rows of the design.
func (d *Design) N() int {
	r, _ := d.X.Dims()
	return r
}

// K returns the number of columns of the design.
func (d *Design) K() int {
	_, c := d.X.Dims()
	return c
}

// Term returns the model term with a given name.
func (d *Design) Term(name string) (model.Term, bool) {
	for _, t := range d.terms {
		if t.Name == name {
			return t, true
		}
	}
	return model.Term{}, false
}

// Levels returns the observed levels
// of a categorical term.
func (d *Design) Levels(name string) []string {
	return d.levels[name]
}

// Row builds a prediction row vector
// with every numeric term at its mean,
// every categorical term at its reference level,
// except the indicated term,
// set to the given level.
func (d *Design) Row(term, level string) ([]float64, error) {
	t, ok := d.Term(term)
	if !ok {
		return nil, fmt.Errorf("term %q not in model", term)
	}
	if !t.Categorical {
		return nil, fmt.Errorf("term %q is not categorical", term)
	}
	if !slices.Contains(d.levels[term], level) {
		return nil, fmt.Errorf("term %q: level %q not observed", term, level)
	}

	row := make([]float64, d.K())
	row[0] = 1
	for j, n := range d.Names {
		if n == term+":"+level {
			row[j] = 1
		}
	}
	return row, nil
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func distinct(f []string) []string {
	seen := make(map[string]bool)
	var levels []string
	for _, x := range f {
		if seen[x] {
			continue
		}
		seen[x] = true
		levels = append(levels, x)
	}
	slices.Sort(levels)
	return levels
}
