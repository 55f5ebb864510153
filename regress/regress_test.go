// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package regress

import (
	"math"
	"reflect"
	"testing"

	"github.com/evosong/dielvox/model"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func about(t testing.TB, name string, got, want, tol float64) {
	t.Helper()

	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.8f, want %.8f", name, got, want)
	}
}

func testDataset() *Dataset {
	return &Dataset{
		Species: []string{"sp1", "sp2", "sp3", "sp4", "sp5", "sp6"},
		Numeric: map[string][]float64{
			"medianstart": {0.10, 0.25, 0.40, 0.55, 0.80, 1.10},
		},
		Factor: map[string][]string{
			"territory": {"1", "1", "2", "2", "1", "2"},
		},
	}
}

func TestDesign(t *testing.T) {
	d := testDataset()
	terms := []model.Term{
		{Name: "medianstart"},
		{Name: "territory", Categorical: true, Reference: "1"},
	}
	ds, err := NewDesign(d, terms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := []string{Intercept, "medianstart", "territory:2"}
	if !reflect.DeepEqual(ds.Names, names) {
		t.Errorf("column names: got %v, want %v", ds.Names, names)
	}
	if ds.N() != 6 || ds.K() != 3 {
		t.Errorf("dimensions: got %d x %d, want 6 x 3", ds.N(), ds.K())
	}

	// the numeric column must be z-scored
	col := make([]float64, ds.N())
	mat.Col(col, 1, ds.X)
	about(t, "z-score mean", stat.Mean(col, nil), 0, 1e-10)
	about(t, "z-score sd", stat.StdDev(col, nil), 1, 1e-10)

	levels := []string{"1", "2"}
	if lv := ds.Levels("territory"); !reflect.DeepEqual(lv, levels) {
		t.Errorf("levels: got %v, want %v", lv, levels)
	}
}

func TestDesignErrors(t *testing.T) {
	d := testDataset()

	terms := []model.Term{
		{Name: "territory", Categorical: true, Reference: "9"},
	}
	if _, err := NewDesign(d, terms); err == nil {
		t.Errorf("unobserved reference level: expecting error")
	}

	d.Numeric["flat"] = []float64{3, 3, 3, 3, 3, 3}
	terms = []model.Term{{Name: "flat"}}
	if _, err := NewDesign(d, terms); err == nil {
		t.Errorf("constant predictor: expecting error")
	}
}

// starTree is the identity covariance
// of a set of unrelated species.
func starTree(n int) *mat.SymDense {
	v := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetSym(i, i, 1)
	}
	return v
}

func TestGLSOrdinary(t *testing.T) {
	// with an identity covariance
	// the fit must reduce to ordinary least squares
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{2, 4, 5, 4, 5, 7}

	d := &Dataset{
		Species: []string{"sp1", "sp2", "sp3", "sp4", "sp5", "sp6"},
		Numeric: map[string][]float64{"medianstart": x},
		Factor:  map[string][]string{},
	}
	ds, err := NewDesign(d, []model.Term{{Name: "medianstart"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fit, err := FitGLS(y, ds, starTree(6), model.Brownian)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	about(t, "intercept", fit.Coef[0].Estimate, stat.Mean(y, nil), 1e-8)
	slope := stat.Covariance(x, y, nil) / stat.StdDev(x, nil)
	about(t, "slope", fit.Coef[1].Estimate, slope, 1e-8)

	if fit.Lambda != 1 {
		t.Errorf("lambda: got %.6f, want 1", fit.Lambda)
	}
	if fit.R2 < 0 || fit.R2 > 1 {
		t.Errorf("pseudo R2 out of range: %.6f", fit.R2)
	}
	for _, c := range fit.Coef {
		if c.P < 0 || c.P > 1 {
			t.Errorf("coefficient %s: p-value out of range: %.6f", c.Term, c.P)
		}
	}
}

func refDataset() (*Dataset, []float64) {
	d := &Dataset{
		Species: []string{"sp1", "sp2", "sp3", "sp4", "sp5", "sp6", "sp7", "sp8"},
		Numeric: map[string][]float64{
			"peakfreq": {1200, 1900, 2400, 3100, 3600, 4100, 4900, 5400},
		},
		Factor: map[string][]string{
			"sociality": {"0", "1", "0", "1", "0", "1", "0", "1"},
		},
	}
	y := []float64{10.2, 14.5, 9.8, 16.1, 11.0, 15.2, 8.9, 17.3}
	return d, y
}

func TestGLSReferenceInvariance(t *testing.T) {
	d, y := refDataset()
	v := starTree(8)

	var fits []*GLS
	for _, ref := range []string{"0", "1"} {
		terms := []model.Term{
			{Name: "peakfreq"},
			{Name: "sociality", Categorical: true, Reference: ref},
		}
		ds, err := NewDesign(d, terms)
		if err != nil {
			t.Fatalf("reference %q: unexpected error: %v", ref, err)
		}
		fit, err := FitGLS(y, ds, v, model.Brownian)
		if err != nil {
			t.Fatalf("reference %q: unexpected error: %v", ref, err)
		}
		fits = append(fits, fit)
	}

	// the reference level is a reparametrization:
	// the fitted model must be the same
	about(t, "logLik", fits[1].LogLike, fits[0].LogLike, 1e-8)
	about(t, "AIC", fits[1].AIC, fits[0].AIC, 1e-8)
	f0 := fits[0].Fitted()
	f1 := fits[1].Fitted()
	for i := range f0 {
		about(t, "fitted value", f1[i], f0[i], 1e-8)
	}
}

func TestGLSLambdaStarTree(t *testing.T) {
	// on a star tree the covariance has no phylogenetic structure
	// and lambda has no effect on the likelihood
	d, y := refDataset()
	v := starTree(8)

	terms := []model.Term{
		{Name: "peakfreq"},
		{Name: "sociality", Categorical: true, Reference: "0"},
	}
	ds, err := NewDesign(d, terms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bm, err := FitGLS(y, ds, v, model.Brownian)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pl, err := FitGLS(y, ds, v, model.PagelLambda)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pl.Lambda < 0 || pl.Lambda > 1 {
		t.Errorf("lambda out of range: %.6f", pl.Lambda)
	}
	about(t, "logLik", pl.LogLike, bm.LogLike, 1e-8)
	about(t, "AIC", pl.AIC, bm.AIC+2, 1e-8)
}

func TestMarginalMeans(t *testing.T) {
	d, y := refDataset()
	terms := []model.Term{
		{Name: "peakfreq"},
		{Name: "sociality", Categorical: true, Reference: "0"},
	}
	ds, err := NewDesign(d, terms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fit, err := FitGLS(y, ds, starTree(8), model.Brownian)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	means, err := fit.MarginalMeans("sociality")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(means) != 2 {
		t.Fatalf("means: got %d levels, want 2", len(means))
	}
	b0 := fit.Coef[0].Estimate
	b1 := fit.Coef[2].Estimate
	about(t, "mean at reference", means[0].Estimate, b0, 1e-8)
	about(t, "mean at level 1", means[1].Estimate, b0+b1, 1e-8)

	cs, err := fit.Contrasts("sociality")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cs) != 1 {
		t.Fatalf("contrasts: got %d, want 1", len(cs))
	}
	c := cs[0]
	if c.Levels != [2]string{"0", "1"} {
		t.Errorf("contrast levels: got %v", c.Levels)
	}
	about(t, "contrast estimate", c.Estimate, -b1, 1e-8)
	about(t, "contrast SE", c.StdErr, fit.Coef[2].StdErr, 1e-8)
	about(t, "effect size", c.Effect, -b1/math.Sqrt(fit.Sigma2), 1e-8)
	if c.P < 0 || c.P > 1 {
		t.Errorf("contrast p-value out of range: %.6f", c.P)
	}

	if _, err := fit.MarginalMeans("peakfreq"); err == nil {
		t.Errorf("means of a numeric predictor: expecting error")
	}
}
