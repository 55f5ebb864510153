// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package regress

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// A GLMM is a fitted Poisson mixed model
// of raw detection counts
// with a log link,
// a log visit offset,
// a phylogenetic species random effect,
// and a habitat type random intercept.
type GLMM struct {
	Coef []Coefficient

	N, K int

	// Variance of the phylogenetic species effect.
	SigmaSpecies float64

	// Variance of the habitat type intercept.
	SigmaGroup float64

	// Conditional Poisson log likelihood
	// at the fitted means.
	// The model is fitted by penalized quasi-likelihood,
	// so the value is approximate
	// and only comparable between models
	// fitted on the same data.
	LogLike float64
	AIC     float64

	// Likelihood ratio pseudo R2
	// against the intercept and offset only model.
	R2 float64

	design *Design
	cov    *mat.Dense
}

const (
	// outer penalized quasi-likelihood iterations
	maxPQLIter = 50
	pqlTol     = 1e-6
)

// FitPoissonGLMM fits the Poisson mixed model
// of a count dataset over a design matrix,
// with v the phylogenetic covariance
// of the species in vNames order.
//
// The fit is by penalized quasi-likelihood:
// at each outer iteration the model is linearized
// on the working response of the current means,
// the two variance components are estimated
// by Nelder-Mead on the profiled Gaussian likelihood,
// and the linear predictor is updated
// from its best linear unbiased prediction.
func FitPoissonGLMM(cd *CountData, d *Design, vNames []string, v *mat.SymDense) (*GLMM, error) {
	n := cd.Len()
	if n != d.N() {
		return nil, fmt.Errorf("dataset rows %d do not match design rows %d", n, d.N())
	}
	if n <= d.K()+2 {
		return nil, fmt.Errorf("%d rows for %d parameters", n, d.K()+2)
	}

	spID := make(map[string]int, len(vNames))
	for i, nm := range vNames {
		spID[nm] = i
	}
	sp := make([]int, n)
	for i, nm := range cd.Species {
		id, ok := spID[nm]
		if !ok {
			return nil, fmt.Errorf("species %q not in the phylogenetic covariance", nm)
		}
		sp[i] = id
	}

	// row level covariance bases:
	// phylo[i][j] = V[sp(i), sp(j)],
	// group[i][j] = 1 if rows i and j share the habitat type
	phylo := mat.NewSymDense(n, nil)
	group := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			phylo.SetSym(i, j, v.At(sp[i], sp[j]))
			if cd.Groups[i] == cd.Groups[j] {
				group.SetSym(i, j, 1)
			}
		}
	}

	f, err := pqlFit(cd, d.X, phylo, group)
	if err != nil {
		return nil, err
	}

	// intercept and offset only fit for the pseudo R2
	nullX := mat.NewDense(n, 1, ones(n))
	f0, err := pqlFit(cd, nullX, phylo, group)
	if err != nil {
		return nil, fmt.Errorf("null model: %v", err)
	}

	return newGLMM(cd, d, f, condLogLike(cd, f0.t)), nil
}

// pqlFit runs the penalized quasi-likelihood iteration
// at a fixed effect matrix.
func pqlFit(cd *CountData, x *mat.Dense, phylo, group *mat.SymDense) (*workFit, error) {
	n := cd.Len()

	// linear predictor without the offset
	t := make([]float64, n)
	for i, y := range cd.Y {
		t[i] = math.Log(float64(y)+0.5) - cd.Offset[i]
	}

	theta := []float64{math.Log(0.1), math.Log(0.1)}
	for it := 0; it < maxPQLIter; it++ {
		w := newWorking(cd, t)

		obj := func(p []float64) float64 {
			f, err := w.solve(x, phylo, group, math.Exp(p[0]), math.Exp(p[1]))
			if err != nil {
				return math.Inf(1)
			}
			return -f.logLike
		}
		res, err := optimize.Minimize(optimize.Problem{Func: obj}, theta, nil, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("variance components: %v", err)
		}
		theta = res.X

		f, err := w.solve(x, phylo, group, math.Exp(theta[0]), math.Exp(theta[1]))
		if err != nil {
			return nil, fmt.Errorf("variance components: %v", err)
		}

		diff := 0.0
		for i, v := range f.t {
			if s := math.Abs(v - t[i]); s > diff {
				diff = s
			}
		}
		copy(t, f.t)
		if diff < pqlTol {
			return f, nil
		}
	}
	return nil, &ConvergenceError{
		What: "poisson mixed model",
		Iter: maxPQLIter,
		Last: []float64{math.Exp(theta[0]), math.Exp(theta[1])},
	}
}

// condLogLike is the conditional Poisson log likelihood
// at the means of a linear predictor.
func condLogLike(cd *CountData, t []float64) float64 {
	ll := 0.0
	for i, y := range cd.Y {
		mu := math.Exp(t[i] + cd.Offset[i])
		lg, _ := math.Lgamma(float64(y) + 1)
		ll += float64(y)*math.Log(mu) - mu - lg
	}
	return ll
}

func newGLMM(cd *CountData, d *Design, f *workFit, ll0 float64) *GLMM {
	n := cd.Len()

	ll := condLogLike(cd, f.t)
	nParam := float64(d.K() + 2)

	g := &GLMM{
		N:            n,
		K:            d.K(),
		SigmaSpecies: f.sigmaS,
		SigmaGroup:   f.sigmaG,
		LogLike:      ll,
		AIC:          -2*ll + 2*nParam,
		R2:           1 - math.Exp(2*(ll0-ll)/float64(n)),
		design:       d,
		cov:          f.cov,
	}

	norm := distuv.Normal{Mu: 0, Sigma: 1}
	for j, name := range d.Names {
		est := f.beta.AtVec(j)
		se := math.Sqrt(f.cov.At(j, j))
		z := est / se
		g.Coef = append(g.Coef, Coefficient{
			Term:     name,
			Estimate: est,
			StdErr:   se,
			Stat:     z,
			P:        2 * norm.CDF(-math.Abs(z)),
		})
	}
	return g
}

// working holds the linearization of the Poisson model
// at a linear predictor:
// the working response z = t + (y-mu)/mu
// and the working variances 1/mu.
type working struct {
	z    *mat.VecDense
	wInv []float64 // diagonal of the working variance
}

func newWorking(cd *CountData, t []float64) *working {
	n := cd.Len()
	w := &working{
		z:    mat.NewVecDense(n, nil),
		wInv: make([]float64, n),
	}
	for i, y := range cd.Y {
		mu := math.Exp(t[i] + cd.Offset[i])
		w.z.SetVec(i, t[i]+(float64(y)-mu)/mu)
		w.wInv[i] = 1 / mu
	}
	return w
}

// workFit is the Gaussian solution of a working model
// at fixed variance components.
type workFit struct {
	sigmaS, sigmaG float64
	beta           *mat.VecDense
	t              []float64 // updated linear predictor
	logLike        float64   // Gaussian likelihood of the working response
	cov            *mat.Dense
}

func (w *working) solve(x *mat.Dense, phylo, group *mat.SymDense, sigmaS, sigmaG float64) (*workFit, error) {
	n := w.z.Len()
	_, k := x.Dims()

	// marginal covariance of the working response
	sig := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s := sigmaS*phylo.At(i, j) + sigmaG*group.At(i, j)
			if i == j {
				s += w.wInv[i]
			}
			sig.SetSym(i, j, s)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sig); !ok {
		return nil, fmt.Errorf("working covariance is not positive definite")
	}

	six := mat.NewDense(n, k, nil)
	if err := chol.SolveTo(six, x); err != nil {
		return nil, fmt.Errorf("working covariance solve: %v", err)
	}
	xtsix := mat.NewDense(k, k, nil)
	xtsix.Mul(x.T(), six)
	xtsiz := mat.NewVecDense(k, nil)
	xtsiz.MulVec(six.T(), w.z)

	beta := mat.NewVecDense(k, nil)
	if err := beta.SolveVec(xtsix, xtsiz); err != nil {
		return nil, fmt.Errorf("singular design matrix: %v", err)
	}

	fixed := mat.NewVecDense(n, nil)
	fixed.MulVec(x, beta)

	resid := mat.NewVecDense(n, nil)
	resid.SubVec(w.z, fixed)
	siR := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(siR, resid); err != nil {
		return nil, fmt.Errorf("working covariance solve: %v", err)
	}
	q := mat.Dot(resid, siR)
	ll := -0.5 * (float64(n)*math.Log(2*math.Pi) + chol.LogDet() + q)

	// best linear unbiased prediction of the random part:
	// t = X beta + (Sigma - W^-1) Sigma^-1 (z - X beta)
	t := make([]float64, n)
	for i := 0; i < n; i++ {
		c := 0.0
		for j := 0; j < n; j++ {
			s := sigmaS*phylo.At(i, j) + sigmaG*group.At(i, j)
			c += s * siR.AtVec(j)
		}
		t[i] = fixed.AtVec(i) + c
	}

	var cov mat.Dense
	if err := cov.Inverse(xtsix); err != nil {
		return nil, fmt.Errorf("singular design matrix: %v", err)
	}

	return &workFit{
		sigmaS:  sigmaS,
		sigmaG:  sigmaG,
		beta:    beta,
		t:       t,
		logLike: ll,
		cov:     &cov,
	}, nil
}
