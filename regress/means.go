// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package regress

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// A Mean is the model predicted response
// at a level of a categorical predictor,
// with every numeric predictor at its mean
// and every other categorical predictor
// at its reference level.
type Mean struct {
	Level    string
	Estimate float64
	StdErr   float64
}

// A Contrast is the pairwise difference
// between two levels of a categorical predictor,
// with its standard error,
// significance test,
// and standardized effect size
// (the difference in residual standard deviations).
type Contrast struct {
	Levels   [2]string
	Estimate float64
	StdErr   float64
	Stat     float64
	P        float64
	Effect   float64
}

// MarginalMeans returns the predicted means
// at each observed level of a categorical predictor.
func (g *GLS) MarginalMeans(term string) ([]Mean, error) {
	return marginalMeans(g.design, g.Coef, g.cov, term)
}

// Contrasts returns the pairwise differences
// between the levels of a categorical predictor.
// Significance is a t test
// on the residual degrees of freedom,
// and the effect size divides each difference
// by the residual standard deviation.
func (g *GLS) Contrasts(term string) ([]Contrast, error) {
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(g.N - g.K)}
	return contrasts(g.design, g.Coef, g.cov, term, math.Sqrt(g.Sigma2), tDist.CDF)
}

// MarginalMeans returns the predicted means,
// on the link scale,
// at each observed level of a categorical predictor.
func (g *GLMM) MarginalMeans(term string) ([]Mean, error) {
	return marginalMeans(g.design, g.Coef, g.cov, term)
}

// Contrasts returns the pairwise differences,
// on the link scale,
// between the levels of a categorical predictor.
// Significance is a normal z test.
func (g *GLMM) Contrasts(term string) ([]Contrast, error) {
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	return contrasts(g.design, g.Coef, g.cov, term, 0, norm.CDF)
}

func marginalMeans(d *Design, coef []Coefficient, cov *mat.Dense, term string) ([]Mean, error) {
	beta := betaVec(coef)

	var means []Mean
	for _, lv := range d.Levels(term) {
		row, err := d.Row(term, lv)
		if err != nil {
			return nil, err
		}
		r := mat.NewVecDense(len(row), row)
		means = append(means, Mean{
			Level:    lv,
			Estimate: mat.Dot(r, beta),
			StdErr:   math.Sqrt(quadForm(r, cov)),
		})
	}
	return means, nil
}

func contrasts(d *Design, coef []Coefficient, cov *mat.Dense, term string, residSD float64, cdf func(float64) float64) ([]Contrast, error) {
	beta := betaVec(coef)
	levels := d.Levels(term)

	var cs []Contrast
	for i := 0; i < len(levels); i++ {
		for j := i + 1; j < len(levels); j++ {
			ri, err := d.Row(term, levels[i])
			if err != nil {
				return nil, err
			}
			rj, err := d.Row(term, levels[j])
			if err != nil {
				return nil, err
			}
			diff := mat.NewVecDense(len(ri), nil)
			diff.SubVec(mat.NewVecDense(len(ri), ri), mat.NewVecDense(len(rj), rj))

			est := mat.Dot(diff, beta)
			se := math.Sqrt(quadForm(diff, cov))
			stat := est / se
			c := Contrast{
				Levels:   [2]string{levels[i], levels[j]},
				Estimate: est,
				StdErr:   se,
				Stat:     stat,
				P:        2 * cdf(-math.Abs(stat)),
			}
			if residSD > 0 {
				c.Effect = est / residSD
			}
			cs = append(cs, c)
		}
	}
	return cs, nil
}

func betaVec(coef []Coefficient) *mat.VecDense {
	b := mat.NewVecDense(len(coef), nil)
	for j, c := range coef {
		b.SetVec(j, c.Estimate)
	}
	return b
}

// quadForm returns the quadratic form r' C r.
func quadForm(r *mat.VecDense, c *mat.Dense) float64 {
	cr := mat.NewVecDense(r.Len(), nil)
	cr.MulVec(c, r)
	return mat.Dot(r, cr)
}
