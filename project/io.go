// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package project

import (
	"fmt"
	"os"

	"github.com/evosong/dielvox/covariate"
	"github.com/evosong/dielvox/detection"
	"github.com/evosong/dielvox/model"
	"github.com/evosong/dielvox/species"
	"github.com/evosong/dielvox/suntime"
	"github.com/evosong/dielvox/taxonomy"
	"github.com/js-arias/timetree"
)

// Observations reads the raw acoustic detections
// as defined in a project.
func (p *Project) Observations() ([]detection.Observation, error) {
	name := p.Path(Observations)
	if name == "" {
		return nil, fmt.Errorf("observations not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	obs, err := detection.ReadObservations(f)
	if err != nil {
		return nil, fmt.Errorf("when reading %q: %v", name, err)
	}
	return obs, nil
}

// Species reads the species lookup
// as defined in a project.
func (p *Project) Species() (*species.List, error) {
	name := p.Path(Species)
	if name == "" {
		return nil, fmt.Errorf("species not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ls, err := species.ReadTSV(f)
	if err != nil {
		return nil, fmt.Errorf("when reading %q: %v", name, err)
	}
	return ls, nil
}

// Synonyms reads the taxonomic synonyms
// as defined in a project.
// A project without synonyms is valid
// and returns an empty set.
func (p *Project) Synonyms() (*taxonomy.Synonyms, error) {
	name := p.Path(Synonyms)
	if name == "" {
		return taxonomy.NewSynonyms(), nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	syn, err := taxonomy.ReadSynonyms(f)
	if err != nil {
		return nil, fmt.Errorf("when reading %q: %v", name, err)
	}
	return syn, nil
}

// TreeNames reads the reconciliation
// between analysis names and tree tip labels
// as defined in a project.
// A project without tree names is valid
// and returns an empty set
// (tip labels then default to the analysis names).
func (p *Project) TreeNames() (*taxonomy.TreeNames, error) {
	name := p.Path(TreeNames)
	if name == "" {
		return taxonomy.NewTreeNames(), nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tn, err := taxonomy.ReadTreeNames(f)
	if err != nil {
		return nil, fmt.Errorf("when reading %q: %v", name, err)
	}
	return tn, nil
}

// Territory reads the territoriality scores
// as defined in a project.
func (p *Project) Territory() (covariate.Territory, error) {
	name := p.Path(Territory)
	if name == "" {
		return nil, fmt.Errorf("territory not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tr, err := covariate.ReadTerritory(f)
	if err != nil {
		return nil, fmt.Errorf("when reading %q: %v", name, err)
	}
	return tr, nil
}

// Sociality reads the sociality scores
// as defined in a project.
func (p *Project) Sociality() (covariate.Sociality, error) {
	name := p.Path(Sociality)
	if name == "" {
		return nil, fmt.Errorf("sociality not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	so, err := covariate.ReadSociality(f)
	if err != nil {
		return nil, fmt.Errorf("when reading %q: %v", name, err)
	}
	return so, nil
}

// Templates reads the recognition template detections
// as defined in a project.
func (p *Project) Templates() (*covariate.Templates, error) {
	name := p.Path(Templates)
	if name == "" {
		return nil, fmt.Errorf("templates not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tp, err := covariate.ReadTemplates(f)
	if err != nil {
		return nil, fmt.Errorf("when reading %q: %v", name, err)
	}
	return tp, nil
}

// Traits reads the trophic niche categories
// as defined in a project.
func (p *Project) Traits() (covariate.Traits, error) {
	name := p.Path(Traits)
	if name == "" {
		return nil, fmt.Errorf("traits not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tr, err := covariate.ReadTraits(f)
	if err != nil {
		return nil, fmt.Errorf("when reading %q: %v", name, err)
	}
	return tr, nil
}

// Sites reads the sampling sites
// as defined in a project.
func (p *Project) Sites() (suntime.Sites, error) {
	name := p.Path(Sites)
	if name == "" {
		return nil, fmt.Errorf("sites not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := suntime.ReadSites(f)
	if err != nil {
		return nil, fmt.Errorf("when reading %q: %v", name, err)
	}
	return st, nil
}

// Trees reads a tree collection file
// as defined in a project.
func (p *Project) Trees() (*timetree.Collection, error) {
	name := p.Path(Trees)
	if name == "" {
		return nil, fmt.Errorf("trees not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := timetree.ReadTSV(f)
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", name, err)
	}
	return c, nil
}

// Activity reads the assembled vocal activity table
// as defined in a project.
func (p *Project) Activity() (detection.Table, error) {
	name := p.Path(Activity)
	if name == "" {
		return nil, fmt.Errorf("activity table not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tab, err := detection.ReadActivity(f)
	if err != nil {
		return nil, fmt.Errorf("when reading %q: %v", name, err)
	}
	return tab, nil
}

// Models reads the regression model definitions
// as defined in a project.
// A project without model definitions is valid
// and returns the default model alone.
func (p *Project) Models() ([]model.Def, error) {
	name := p.Path(Models)
	if name == "" {
		return []model.Def{model.Default()}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	defs, err := model.Read(f)
	if err != nil {
		return nil, fmt.Errorf("when reading %q: %v", name, err)
	}
	return defs, nil
}
