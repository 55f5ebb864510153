// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package gls implements a command to fit
// a phylogenetic generalized least squares regression
// of the vocal activity of a stratum.
package gls

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/evosong/dielvox/detection"
	"github.com/evosong/dielvox/model"
	"github.com/evosong/dielvox/phylo"
	"github.com/evosong/dielvox/project"
	"github.com/evosong/dielvox/regress"
	"github.com/js-arias/command"
	"gonum.org/v1/gonum/mat"
)

var Command = &command.Command{
	Usage: `gls --stratum <dawn|dusk> [--tree <tree-name>]
	[--model <bm|lambda>] [--def <model-name>]
	[-o|--output <file>] <project-file>`,
	Short: "fit a phylogenetic regression of a stratum",
	Long: `
Command gls reads the vocal activity table and the trees of a dielvox
project, and fits a generalized least squares regression of the indicated
time of day stratum, with the residual covariance given by the phylogeny.

The argument of the command is the name of the project file.

The flag --stratum is required and indicates the time of day stratum, "dawn"
or "dusk". Species without timing observations in the stratum are excluded
and reported.

By default the first tree of the project is used; a different tree can be
selected with the flag --tree.

By default the model definition sets the evolutionary model of the residual
covariance; the flag --model overrides it with "bm", for plain Brownian
motion, or "lambda", to estimate Pagel's lambda by maximum likelihood.

By default the default model definition is used (percent normalized
detections over the median start time, the peak frequency, territoriality,
sociality, and trophic niche). If the project has a model definition file, a
model can be selected by name with the flag --def.

The coefficient table is printed in the standard output, or written to the
file given by the flag --output, or -o.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var stratum string
var treeName string
var evoFlag string
var defName string
var output string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&stratum, "stratum", "", "")
	c.Flags().StringVar(&treeName, "tree", "", "")
	c.Flags().StringVar(&evoFlag, "model", "", "")
	c.Flags().StringVar(&defName, "def", "", "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}
	if stratum == "" {
		return c.UsageError("flag --stratum must be defined")
	}
	tod, err := detection.ParseTimeOfDay(stratum)
	if err != nil {
		return c.UsageError(err.Error())
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	def, err := readDef(p)
	if err != nil {
		return err
	}
	evo := def.Evolution
	if evoFlag != "" {
		evo = evoFlag
	}

	tab, err := p.Activity()
	if err != nil {
		return err
	}
	d, noTiming, err := regress.FromTable(tab, tod)
	if err != nil {
		return err
	}
	for _, n := range noTiming {
		fmt.Fprintf(c.Stdout(), "without timing observations: %s\n", n)
	}

	y, ok := d.Numeric[def.Response]
	if !ok {
		return fmt.Errorf("model %q: invalid response %q", def.Name, def.Response)
	}
	ds, err := regress.NewDesign(d, def.Terms)
	if err != nil {
		return err
	}

	v, err := readVCV(p, d.Species)
	if err != nil {
		return err
	}

	fit, err := regress.FitGLS(y, ds, v, evo)
	if err != nil {
		var conv *regress.ConvergenceError
		if errors.As(err, &conv) {
			fmt.Fprintf(c.Stderr(), "%s stratum: %v\n", tod, conv)
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
	report(w, tod, fit)
	return nil
}

func readDef(p *project.Project) (model.Def, error) {
	defs, err := p.Models()
	if err != nil {
		return model.Def{}, err
	}
	def, ok := model.Find(defs, defName)
	if !ok {
		return model.Def{}, fmt.Errorf("model %q not defined in project %q", defName, p.Name())
	}
	return def, nil
}

func readVCV(p *project.Project, names []string) (*mat.SymDense, error) {
	tn, err := p.TreeNames()
	if err != nil {
		return nil, err
	}
	coll, err := p.Trees()
	if err != nil {
		return nil, err
	}

	nm := treeName
	if nm == "" {
		ls := coll.Names()
		if len(ls) == 0 {
			return nil, fmt.Errorf("project %q without trees", p.Name())
		}
		nm = ls[0]
	}
	t := coll.Tree(nm)
	if t == nil {
		return nil, fmt.Errorf("tree %q not in project %q", nm, p.Name())
	}

	m, err := phylo.VCV(t, names, tn)
	if err != nil {
		return nil, fmt.Errorf("tree %q: %v", nm, err)
	}
	return m, nil
}

func report(w io.Writer, tod detection.TimeOfDay, fit *regress.GLS) {
	fmt.Fprintf(w, "term\testimate\tstdErr\tt\tp\n")
	for _, cf := range fit.Coef {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", cf.Term,
			strconv.FormatFloat(cf.Estimate, 'f', 6, 64),
			strconv.FormatFloat(cf.StdErr, 'f', 6, 64),
			strconv.FormatFloat(cf.Stat, 'f', 6, 64),
			strconv.FormatFloat(cf.P, 'f', 6, 64))
	}
	fmt.Fprintf(w, "# %s stratum: %d species, %d coefficients\n", tod, fit.N, fit.K)
	fmt.Fprintf(w, "# lambda: %.6f\n", fit.Lambda)
	fmt.Fprintf(w, "# logLik: %.6f\n", fit.LogLike)
	fmt.Fprintf(w, "# AIC: %.6f\n", fit.AIC)
	fmt.Fprintf(w, "# R2: %.6f\n", fit.R2)
}
