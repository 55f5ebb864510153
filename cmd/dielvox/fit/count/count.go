// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package count implements a command to fit
// a Poisson phylogenetic mixed model
// of the raw detection counts.
package count

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/evosong/dielvox/model"
	"github.com/evosong/dielvox/phylo"
	"github.com/evosong/dielvox/project"
	"github.com/evosong/dielvox/regress"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: `count [--tree <tree-name>] [--def <model-name>]
	[-o|--output <file>] <project-file>`,
	Short: "fit a Poisson mixed model of the raw counts",
	Long: `
Command count reads the raw acoustic detections, the vocal activity table,
and the trees of a dielvox project, and fits a Poisson mixed model of the
detection counts per species, time of day stratum, and habitat type, with a
log link, the log of the sampling visits as offset, a phylogenetic species
random effect, and a habitat type random intercept.

The argument of the command is the name of the project file.

By default the first tree of the project is used; a different tree can be
selected with the flag --tree.

By default the default model definition gives the predictors; a model can be
selected by name with the flag --def. The time of day stratum is always added
as a predictor, with dawn as the reference level.

The model is fitted by penalized quasi-likelihood. If the fit does not
converge within the iteration budget, the last variance component estimates
are reported and the command fails. A likelihood ratio pseudo R2 against an
intercept and offset only model is reported with the fit summary.

The coefficient table is printed in the standard output, or written to the
file given by the flag --output, or -o.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var treeName string
var defName string
var output string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&treeName, "tree", "", "")
	c.Flags().StringVar(&defName, "def", "", "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	defs, err := p.Models()
	if err != nil {
		return err
	}
	def, ok := model.Find(defs, defName)
	if !ok {
		return fmt.Errorf("model %q not defined in project %q", defName, p.Name())
	}

	obs, err := p.Observations()
	if err != nil {
		return err
	}
	sites, err := p.Sites()
	if err != nil {
		return err
	}
	tab, err := p.Activity()
	if err != nil {
		return err
	}

	cd, err := regress.FromCounts(obs, sites, tab)
	if err != nil {
		return err
	}
	ds, err := regress.NewDesign(cd.Dataset, countTerms(def))
	if err != nil {
		return err
	}

	names := distinct(cd.Species)
	tn, err := p.TreeNames()
	if err != nil {
		return err
	}
	coll, err := p.Trees()
	if err != nil {
		return err
	}
	nm := treeName
	if nm == "" {
		ls := coll.Names()
		if len(ls) == 0 {
			return fmt.Errorf("project %q without trees", p.Name())
		}
		nm = ls[0]
	}
	t := coll.Tree(nm)
	if t == nil {
		return fmt.Errorf("tree %q not in project %q", nm, p.Name())
	}
	v, err := phylo.VCV(t, names, tn)
	if err != nil {
		return fmt.Errorf("tree %q: %v", nm, err)
	}

	fit, err := regress.FitPoissonGLMM(cd, ds, names, v)
	if err != nil {
		var conv *regress.ConvergenceError
		if errors.As(err, &conv) {
			fmt.Fprintf(c.Stderr(), "count model: %v\n", conv)
		}
		return err
	}

	w := c.Stdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	report(w, fit)
	return nil
}

// countTerms returns the predictors of the count model:
// the terms of the model definition
// plus the time of day stratum.
func countTerms(def model.Def) []model.Term {
	terms := slices.Clone(def.Terms)
	for _, t := range terms {
		if t.Name == "timeofday" {
			return terms
		}
	}
	return append(terms, model.Term{Name: "timeofday", Categorical: true, Reference: "dawn"})
}

func distinct(names []string) []string {
	seen := make(map[string]bool)
	var ls []string
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		ls = append(ls, n)
	}
	slices.Sort(ls)
	return ls
}

func report(w io.Writer, fit *regress.GLMM) {
	fmt.Fprintf(w, "term\testimate\tstdErr\tz\tp\n")
	for _, cf := range fit.Coef {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", cf.Term,
			strconv.FormatFloat(cf.Estimate, 'f', 6, 64),
			strconv.FormatFloat(cf.StdErr, 'f', 6, 64),
			strconv.FormatFloat(cf.Stat, 'f', 6, 64),
			strconv.FormatFloat(cf.P, 'f', 6, 64))
	}
	fmt.Fprintf(w, "# counts: %d rows, %d coefficients\n", fit.N, fit.K)
	fmt.Fprintf(w, "# species variance: %.6f\n", fit.SigmaSpecies)
	fmt.Fprintf(w, "# habitat variance: %.6f\n", fit.SigmaGroup)
	fmt.Fprintf(w, "# logLik: %.6f\n", fit.LogLike)
	fmt.Fprintf(w, "# AIC: %.6f\n", fit.AIC)
	fmt.Fprintf(w, "# R2: %.6f\n", fit.R2)
}
