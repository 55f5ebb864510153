// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package means implements a command to print
// the marginal means and pairwise contrasts
// of a categorical predictor.
package means

import (
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
)

var Command = &command.Command{
	Usage: `means --term <predictor> --stratum <dawn|dusk>
	[--tree <tree-name>] [--model <bm|lambda>] [--def <model-name>]
	[-o|--output <file>] <project-file>`,
	Short: "print marginal means of a categorical predictor",
	Long: `
Command means fits the phylogenetic regression of a stratum, as the command
'dielvox fit gls' does, and prints the model predicted means at each level of
a categorical predictor, and the pairwise differences between the levels with
their standard errors, significance, and standardized effect sizes.

The means are taken with every numeric predictor at its mean and every other
categorical predictor at its reference level.

The argument of the command is the name of the project file.

The flag --term is required and indicates the categorical predictor. The flag
--stratum is required and indicates the time of day stratum. The flags
--tree, --model, and --def are as in 'dielvox fit gls'.

The tables are printed in the standard output, or written to the file given
by the flag --output, or -o.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var term string
var stratum string
var treeName string
var evoFlag string
var defName string
var output string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&term, "term", "", "")
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
	if term == "" {
		return c.UsageError("flag --term must be defined")
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

	defs, err := p.Models()
	if err != nil {
		return err
	}
	def, ok := model.Find(defs, defName)
	if !ok {
		return fmt.Errorf("model %q not defined in project %q", defName, p.Name())
	}
	evo := def.Evolution
	if evoFlag != "" {
		evo = evoFlag
	}

	tab, err := p.Activity()
	if err != nil {
		return err
	}
	d, _, err := regress.FromTable(tab, tod)
	if err != nil {
		return err
	}
	y, ok := d.Numeric[def.Response]
	if !ok {
		return fmt.Errorf("model %q: invalid response %q", def.Name, def.Response)
	}
	ds, err := regress.NewDesign(d, def.Terms)
	if err != nil {
		return err
	}

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
	v, err := phylo.VCV(t, d.Species, tn)
	if err != nil {
		return fmt.Errorf("tree %q: %v", nm, err)
	}

	fit, err := regress.FitGLS(y, ds, v, evo)
	if err != nil {
		return err
	}

	ms, err := fit.MarginalMeans(term)
	if err != nil {
		return err
	}
	cs, err := fit.Contrasts(term)
	if err != nil {
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
	report(w, tod, ms, cs)
	return nil
}

func report(w io.Writer, tod detection.TimeOfDay, ms []regress.Mean, cs []regress.Contrast) {
	fmt.Fprintf(w, "level\tmean\tstdErr\n")
	for _, m := range ms {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Level,
			strconv.FormatFloat(m.Estimate, 'f', 6, 64),
			strconv.FormatFloat(m.StdErr, 'f', 6, 64))
	}

	fmt.Fprintf(w, "levels\tdifference\tstdErr\tt\tp\teffect\n")
	for _, ct := range cs {
		fmt.Fprintf(w, "%s-%s\t%s\t%s\t%s\t%s\t%s\n", ct.Levels[0], ct.Levels[1],
			strconv.FormatFloat(ct.Estimate, 'f', 6, 64),
			strconv.FormatFloat(ct.StdErr, 'f', 6, 64),
			strconv.FormatFloat(ct.Stat, 'f', 6, 64),
			strconv.FormatFloat(ct.P, 'f', 6, 64),
			strconv.FormatFloat(ct.Effect, 'f', 6, 64))
	}
	fmt.Fprintf(w, "# %s stratum, term %s\n", tod, term)
}
