// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package prep implements a command to build
// the vocal activity table of a dielvox project.
package prep

import (
	"fmt"
	"os"

	"github.com/evosong/dielvox/covariate"
	"github.com/evosong/dielvox/detection"
	"github.com/evosong/dielvox/project"
	"github.com/evosong/dielvox/suntime"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: `prep [--window <hours>] [--min-templates <number>]
	[--niche merge|drop] [-o|--output <file>] <project-file>`,
	Short: "build the vocal activity table of a project",
	Long: `
Command prep reads the raw acoustic detections of a dielvox project and
builds the vocal activity table used by the fitting commands: it computes the
twilight offset of every recording segment, counts the sampling visits per
time of day stratum, normalizes the detections by the sampling effort, and
joins the species level covariates.

The argument of the command is the name of the project file.

If the flag --window is set, observations farther than the given number of
hours from their twilight boundary will be dropped before any effort
counting, so that both strata are comparably sampled.

Species detected by fewer recognition templates than the threshold given by
the flag --min-templates are excluded; the default is 5.

The flag --niche indicates the policy for rare trophic niches. With "merge",
the default, frugivores, granivores, nectarivores, and aquatic predators are
pooled into a single "other" category, while invertivores and omnivores keep
their own categories. With "drop", aquatic predators, granivores, and
nectarivores are removed, and frugivores, invertivores, and omnivores keep
their own categories.

The resulting table is written to the file given by the flag --output, or -o,
"activity.tab" by default, and registered in the project. Every exclusion is
reported in the standard output.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var window float64
var minTemplates int
var nicheFlag string
var output string

func setFlags(c *command.Command) {
	c.Flags().Float64Var(&window, "window", 0, "")
	c.Flags().IntVar(&minTemplates, "min-templates", covariate.DefaultMinTemplates, "")
	c.Flags().StringVar(&nicheFlag, "niche", string(covariate.NicheMerge), "")
	c.Flags().StringVar(&output, "output", "activity.tab", "")
	c.Flags().StringVar(&output, "o", "activity.tab", "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}
	policy, err := covariate.ParseNichePolicy(nicheFlag)
	if err != nil {
		return c.UsageError(err.Error())
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	obs, err := p.Observations()
	if err != nil {
		return err
	}
	sites, err := p.Sites()
	if err != nil {
		return err
	}

	ann, dropped, err := suntime.Annotate(obs, suntime.NewCalc(sites), window)
	if err != nil {
		return err
	}
	if window > 0 {
		fmt.Fprintf(c.Stdout(), "twilight window: %.2f hours, %d observations dropped\n", window, len(dropped))
	}
	kept := suntime.Observations(ann)

	visits := detection.CountVisits(kept)
	for _, tod := range []detection.TimeOfDay{detection.Dawn, detection.Dusk} {
		fmt.Fprintf(c.Stdout(), "%s: %d sampling visits\n", tod, visits[tod])
	}

	tab, err := detection.Build(kept, visits)
	if err != nil {
		return err
	}
	zero := 0
	for _, r := range tab {
		if r.Detections == 0 {
			zero++
		}
	}
	fmt.Fprintf(c.Stdout(), "activity: %d species, %d single stratum rows set to zero\n", len(tab.Codes()), zero)

	params, err := readCovariates(p)
	if err != nil {
		return err
	}
	params.Policy = policy
	params.MinTemplates = minTemplates
	params.Medians = suntime.Medians(ann)

	tab, audit, err := covariate.Assemble(tab, params)
	if err != nil {
		return err
	}
	reportAudit(c, audit)

	if err := writeTable(output, tab); err != nil {
		return err
	}
	if p.Path(project.Activity) != output {
		p.Add(project.Activity, output)
		if err := p.Write(); err != nil {
			return err
		}
	}
	return nil
}

func readCovariates(p *project.Project) (covariate.Params, error) {
	var params covariate.Params
	var err error

	if params.Synonyms, err = p.Synonyms(); err != nil {
		return params, err
	}
	if params.Species, err = p.Species(); err != nil {
		return params, err
	}
	if err := params.Species.Normalize(params.Synonyms); err != nil {
		return params, err
	}
	if params.Territory, err = p.Territory(); err != nil {
		return params, err
	}
	if params.Sociality, err = p.Sociality(); err != nil {
		return params, err
	}
	if params.Traits, err = p.Traits(); err != nil {
		return params, err
	}
	if params.Templates, err = p.Templates(); err != nil {
		return params, err
	}
	return params, nil
}

func reportAudit(c *command.Command, a *covariate.Audit) {
	for _, tab := range []string{"species", "territory", "sociality", "traits", "templates"} {
		for _, n := range a.Unmatched[tab] {
			fmt.Fprintf(c.Stdout(), "unmatched in %s: %s\n", tab, n)
		}
	}
	for _, n := range a.TemplateExcluded {
		fmt.Fprintf(c.Stdout(), "below template threshold: %s\n", n)
	}
	for _, n := range a.NicheDropped {
		fmt.Fprintf(c.Stdout(), "dropped by niche policy: %s\n", n)
	}
	for _, n := range a.NoTiming {
		fmt.Fprintf(c.Stdout(), "without timing observations: %s\n", n)
	}
	fmt.Fprintf(c.Stdout(), "species: %d read, %d kept, %d excluded\n", a.Before, a.After, a.Dropped())
}

func writeTable(name string, tab detection.Table) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	if err := tab.TSV(f); err != nil {
		return fmt.Errorf("while writing %q: %v", name, err)
	}
	return nil
}
