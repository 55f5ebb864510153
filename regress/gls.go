// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package regress

import (
	"fmt"
	"math"

	"github.com/evosong/dielvox/model"
	"github.com/evosong/dielvox/phylo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// A GLS is a fitted phylogenetic
// generalized least squares model.
type GLS struct {
	Coef []Coefficient

	N, K int

	// Pagel's lambda of the residual covariance;
	// one under Brownian motion.
	Lambda float64

	// Residual variance scale
	// (the unbiased estimate used for standard errors).
	Sigma2 float64

	// Maximum likelihood statistics.
	LogLike float64
	AIC     float64

	// Likelihood ratio pseudo R squared
	// against the intercept only model.
	R2 float64

	design *Design
	cov    *mat.Dense // coefficient covariance
}

// maximum profile evaluations
// of the lambda search.
const maxLambdaEval = 200

// FitGLS fits a generalized least squares model
// of a response over a design matrix,
// with residual covariance v
// (the Brownian motion phylogenetic covariance
// of the species,
// in row order)
// under the indicated evolutionary model:
// model.Brownian holds lambda at one,
// model.PagelLambda estimates lambda in [0, 1]
// by maximum likelihood,
// jointly with the coefficients.
func FitGLS(y []float64, d *Design, v *mat.SymDense, evo string) (*GLS, error) {
	if len(y) != d.N() {
		return nil, fmt.Errorf("response length %d does not match design rows %d", len(y), d.N())
	}
	if v.SymmetricDim() != d.N() {
		return nil, fmt.Errorf("covariance order %d does not match design rows %d", v.SymmetricDim(), d.N())
	}
	if d.N() <= d.K() {
		return nil, fmt.Errorf("%d rows for %d coefficients", d.N(), d.K())
	}

	var lambda float64
	var nParam int
	switch evo {
	case model.Brownian:
		lambda = 1
		nParam = d.K() + 1
	case model.PagelLambda:
		l, err := searchLambda(y, d, v)
		if err != nil {
			return nil, err
		}
		lambda = l
		nParam = d.K() + 2
	default:
		return nil, fmt.Errorf("invalid evolutionary model %q", evo)
	}

	g, err := glsAt(y, d.X, v, lambda)
	if err != nil {
		return nil, err
	}

	// intercept only fit at the same lambda,
	// for the likelihood ratio pseudo R squared
	n := d.N()
	nullX := mat.NewDense(n, 1, ones(n))
	g0, err := glsAt(y, nullX, v, lambda)
	if err != nil {
		return nil, fmt.Errorf("intercept only model: %v", err)
	}

	fit := &GLS{
		N:       n,
		K:       d.K(),
		Lambda:  lambda,
		Sigma2:  g.sigma2,
		LogLike: g.logLike,
		AIC:     -2*g.logLike + 2*float64(nParam),
		R2:      1 - math.Exp(2*(g0.logLike-g.logLike)/float64(n)),
		design:  d,
		cov:     g.cov,
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - d.K())}
	for j, name := range d.Names {
		est := g.beta.AtVec(j)
		se := math.Sqrt(g.cov.At(j, j))
		t := est / se
		fit.Coef = append(fit.Coef, Coefficient{
			Term:     name,
			Estimate: est,
			StdErr:   se,
			Stat:     t,
			P:        2 * tDist.CDF(-math.Abs(t)),
		})
	}
	return fit, nil
}

// Fitted returns the fitted values of the model.
func (g *GLS) Fitted() []float64 {
	n := g.design.N()
	beta := mat.NewVecDense(g.K, nil)
	for j, c := range g.Coef {
		beta.SetVec(j, c.Estimate)
	}
	var f mat.VecDense
	f.MulVec(g.design.X, beta)

	out := make([]float64, n)
	for i := range out {
		out[i] = f.AtVec(i)
	}
	return out
}

// glsFit holds the internals of a single
// generalized least squares solution.
type glsFit struct {
	beta    *mat.VecDense
	sigma2  float64 // unbiased scale, for standard errors
	logLike float64 // maximum likelihood
	cov     *mat.Dense
}

func glsAt(y []float64, x *mat.Dense, v *mat.SymDense, lambda float64) (*glsFit, error) {
	n, k := x.Dims()

	vl := phylo.Lambda(v, lambda)
	var chol mat.Cholesky
	if ok := chol.Factorize(vl); !ok {
		return nil, fmt.Errorf("covariance at lambda %.6f is not positive definite", lambda)
	}

	yv := mat.NewVecDense(n, y)

	vix := mat.NewDense(n, k, nil)
	if err := chol.SolveTo(vix, x); err != nil {
		return nil, fmt.Errorf("covariance solve: %v", err)
	}

	xtvix := mat.NewDense(k, k, nil)
	xtvix.Mul(x.T(), vix)

	xtviy := mat.NewVecDense(k, nil)
	xtviy.MulVec(vix.T(), yv)

	beta := mat.NewVecDense(k, nil)
	if err := beta.SolveVec(xtvix, xtviy); err != nil {
		return nil, fmt.Errorf("singular design matrix: %v", err)
	}

	resid := mat.NewVecDense(n, nil)
	resid.MulVec(x, beta)
	resid.SubVec(yv, resid)

	viR := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(viR, resid); err != nil {
		return nil, fmt.Errorf("covariance solve: %v", err)
	}
	q := mat.Dot(resid, viR)

	s2ml := q / float64(n)
	ll := -0.5 * (float64(n)*math.Log(2*math.Pi) + float64(n)*math.Log(s2ml) + chol.LogDet() + float64(n))

	sigma2 := q / float64(n-k)
	var inv mat.Dense
	if err := inv.Inverse(xtvix); err != nil {
		return nil, fmt.Errorf("singular design matrix: %v", err)
	}
	inv.Scale(sigma2, &inv)

	return &glsFit{
		beta:    beta,
		sigma2:  sigma2,
		logLike: ll,
		cov:     &inv,
	}, nil
}

// searchLambda finds the maximum likelihood value
// of Pagel's lambda in [0, 1]
// with a stepwise search:
// walk with the current step while the likelihood improves,
// then halve the step,
// until the step is below tolerance.
func searchLambda(y []float64, d *Design, v *mat.SymDense) (float64, error) {
	profile := func(l float64) (float64, error) {
		g, err := glsAt(y, d.X, v, l)
		if err != nil {
			return 0, err
		}
		return g.logLike, nil
	}

	best := 0.5
	bestLL, err := profile(best)
	if err != nil {
		return 0, err
	}

	evals := 1
	for step := 0.25; step >= 1e-4; step /= 2 {
		for {
			if evals >= maxLambdaEval {
				return 0, &ConvergenceError{
					What: "lambda search",
					Iter: evals,
					Last: []float64{best},
				}
			}

			moved := false
			for _, l := range []float64{best + step, best - step} {
				if l < 0 || l > 1 {
					continue
				}
				ll, err := profile(l)
				evals++
				if err != nil {
					continue
				}
				if ll > bestLL {
					best = l
					bestLL = ll
					moved = true
					break
				}
			}
			if !moved {
				break
			}
		}
	}
	return best, nil
}
