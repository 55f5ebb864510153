// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package add implements a command to add data files
// to a dielvox project.
package add

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/evosong/dielvox/covariate"
	"github.com/evosong/dielvox/detection"
	"github.com/evosong/dielvox/model"
	"github.com/evosong/dielvox/project"
	"github.com/evosong/dielvox/species"
	"github.com/evosong/dielvox/suntime"
	"github.com/evosong/dielvox/taxonomy"
	"github.com/js-arias/command"
	"github.com/js-arias/timetree"
)

var Command = &command.Command{
	Usage: "add --set <dataset> <project-file> <data-file>",
	Short: "add a data file to a project",
	Long: `
Command add validates a data file and adds it to a dielvox project. If the
project file does not exist, a new project will be created.

The flag --set is required and indicates the dataset type of the added file.
Valid dataset types are:

	observations	raw acoustic detections
	species 	eBird code to scientific name lookup
	synonyms	old name to accepted name pairs
	treenames	analysis name to tree tip label pairs
	territory	territoriality scores
	sociality	sociality scores
	templates	recognition template detections
	traits  	trophic niche categories
	sites   	sampling sites
	trees   	time calibrated trees
	models  	regression model definitions

The first argument of the command is the name of the project file. The second
argument is the name of the data file. The file is read in full before it is
added, so an invalid file will be rejected with the offending row.

When a species or synonym file is added to a project that has the other, the
pair is checked together: two species codes resolving to the same accepted
name is an error, and the file is rejected.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var setFlag string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&setFlag, "set", "", "")
}

func run(c *command.Command, args []string) error {
	if setFlag == "" {
		return c.UsageError("flag --set must be defined")
	}
	if len(args) < 2 {
		return c.UsageError("expecting project and data file")
	}

	set := project.Dataset(strings.ToLower(setFlag))
	if err := validate(set, args[1]); err != nil {
		return err
	}

	p, err := project.Read(args[0])
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		p = project.New()
		p.SetName(args[0])
	}

	prev := p.Add(set, args[1])

	// adding a species or synonym file may break
	// the code to name bijection
	if set == project.Species || set == project.Synonyms {
		if err := checkBijection(p); err != nil {
			return err
		}
	}

	if prev != "" && prev != args[1] {
		fmt.Fprintf(c.Stdout(), "replaced %s file %q\n", set, prev)
	}
	return p.Write()
}

func checkBijection(p *project.Project) error {
	if p.Path(project.Species) == "" {
		return nil
	}
	ls, err := p.Species()
	if err != nil {
		return err
	}
	syn, err := p.Synonyms()
	if err != nil {
		return err
	}
	return ls.Normalize(syn)
}

func validate(set project.Dataset, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	switch set {
	case project.Observations:
		_, err = detection.ReadObservations(f)
	case project.Species:
		_, err = species.ReadTSV(f)
	case project.Synonyms:
		_, err = taxonomy.ReadSynonyms(f)
	case project.TreeNames:
		_, err = taxonomy.ReadTreeNames(f)
	case project.Territory:
		_, err = covariate.ReadTerritory(f)
	case project.Sociality:
		_, err = covariate.ReadSociality(f)
	case project.Templates:
		_, err = covariate.ReadTemplates(f)
	case project.Traits:
		_, err = covariate.ReadTraits(f)
	case project.Sites:
		_, err = suntime.ReadSites(f)
	case project.Trees:
		_, err = timetree.ReadTSV(f)
	case project.Activity:
		_, err = detection.ReadActivity(f)
	case project.Models:
		_, err = model.Read(f)
	default:
		return fmt.Errorf("invalid dataset type %q", set)
	}
	if err != nil {
		return fmt.Errorf("when reading %q: %v", name, err)
	}
	return nil
}
