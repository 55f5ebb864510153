// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package model provides the model definitions
// of the regression commands:
// the response,
// the predictor terms,
// the reference level of each categorical predictor,
// and the evolutionary model of the residuals.
//
// Definitions are stored in a YAML file,
// so an analysis variant is data,
// not code.
package model

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// A Term is a predictor of a regression model.
type Term struct {
	// Name of the predictor column
	// in the vocal activity table.
	Name string `yaml:"name"`

	// True if the predictor is categorical.
	Categorical bool `yaml:"categorical,omitempty"`

	// Reference level of a categorical predictor.
	// Coefficient interpretation is relative
	// to this level.
	Reference string `yaml:"reference,omitempty"`
}

// A Def is the definition of a regression model.
type Def struct {
	Name string `yaml:"name"`

	// Response column
	// in the vocal activity table.
	Response string `yaml:"response"`

	// Evolutionary model of the residual covariance:
	// "bm" for Brownian motion,
	// or "lambda" for Pagel's lambda
	// (the default).
	Evolution string `yaml:"evolution,omitempty"`

	Terms []Term `yaml:"terms"`
}

type file struct {
	Models []Def `yaml:"models"`
}

// Valid evolutionary models.
const (
	Brownian    = "bm"
	PagelLambda = "lambda"
)

// Read reads a set of model definitions
// from a YAML file.
//
// Here is an example file:
//
//	models:
//	  - name: diel-gls
//	    response: percentnormalized
//	    evolution: lambda
//	    terms:
//	      - name: medianstart
//	      - name: peakfreq
//	      - name: territory
//	        categorical: true
//	        reference: "1"
//	      - name: sociality
//	        categorical: true
//	        reference: "0"
//	      - name: niche
//	        categorical: true
//	        reference: invertivore
func Read(r io.Reader) ([]Def, error) {
	d := yaml.NewDecoder(r)
	var f file
	if err := d.Decode(&f); err != nil {
		return nil, fmt.Errorf("while decoding model file: %v", err)
	}
	if len(f.Models) == 0 {
		return nil, fmt.Errorf("model file without models")
	}

	names := make(map[string]bool, len(f.Models))
	for i, def := range f.Models {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if names[def.Name] {
			return nil, fmt.Errorf("model %q: repeated name", def.Name)
		}
		names[def.Name] = true
		if def.Evolution == "" {
			f.Models[i].Evolution = PagelLambda
		}
	}
	return f.Models, nil
}

// Validate checks a model definition.
func (d Def) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("model without name")
	}
	if d.Response == "" {
		return fmt.Errorf("model %q: undefined response", d.Name)
	}
	switch d.Evolution {
	case "", Brownian, PagelLambda:
	default:
		return fmt.Errorf("model %q: invalid evolutionary model %q", d.Name, d.Evolution)
	}
	if len(d.Terms) == 0 {
		return fmt.Errorf("model %q: model without terms", d.Name)
	}

	seen := make(map[string]bool, len(d.Terms))
	for _, t := range d.Terms {
		if t.Name == "" {
			return fmt.Errorf("model %q: term without name", d.Name)
		}
		if seen[t.Name] {
			return fmt.Errorf("model %q: repeated term %q", d.Name, t.Name)
		}
		seen[t.Name] = true
		if t.Categorical && t.Reference == "" {
			return fmt.Errorf("model %q: term %q: categorical term without reference level", d.Name, t.Name)
		}
		if !t.Categorical && t.Reference != "" {
			return fmt.Errorf("model %q: term %q: reference level on a numeric term", d.Name, t.Name)
		}
	}
	return nil
}

// Find returns a model definition by name.
// With an empty name the first model is returned.
func Find(defs []Def, name string) (Def, bool) {
	if name == "" && len(defs) > 0 {
		return defs[0], true
	}
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return Def{}, false
}

// Default returns the model definition
// used when a project has no model file:
// the full predictor set of the study
// with its conventional reference levels.
func Default() Def {
	return Def{
		Name:      "default",
		Response:  "percentnormalized",
		Evolution: PagelLambda,
		Terms: []Term{
			{Name: "medianstart"},
			{Name: "peakfreq"},
			{Name: "territory", Categorical: true, Reference: "1"},
			{Name: "sociality", Categorical: true, Reference: "0"},
			{Name: "niche", Categorical: true, Reference: "invertivore"},
		},
	}
}
