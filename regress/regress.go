// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package regress implements the phylogenetic regression models
// of a diel vocal activity analysis:
// a generalized least squares fit
// for the effort normalized detection percentages,
// and a Poisson mixed model
// for the raw detection counts,
// both with a residual covariance structured
// by an evolutionary model on a phylogenetic tree.
package regress

import (
	"fmt"
	"strconv"
	"strings"
)

// A Coefficient is a fitted regression coefficient
// with its standard error
// and significance test.
type Coefficient struct {
	Term     string
	Estimate float64
	StdErr   float64
	Stat     float64 // t or z value
	P        float64
}

// A ConvergenceError reports an iterative fit
// that did not reach its tolerance
// within the iteration budget.
// The last parameter estimates are kept
// so the failure is diagnosable,
// but they must never be read
// as a converged result.
type ConvergenceError struct {
	What string
	Iter int
	Last []float64
}

func (e *ConvergenceError) Error() string {
	last := make([]string, 0, len(e.Last))
	for _, v := range e.Last {
		last = append(last, strconv.FormatFloat(v, 'f', 6, 64))
	}
	return fmt.Sprintf("%s: no convergence after %d iterations [last: %s]", e.What, e.Iter, strings.Join(last, " "))
}
