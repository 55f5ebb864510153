// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package model_test

import (
	"strings"
	"testing"

	"github.com/evosong/dielvox/model"
)

var modelFile = `
models:
  - name: diel-gls
    response: percentnormalized
    evolution: lambda
    terms:
      - name: medianstart
      - name: territory
        categorical: true
        reference: "1"
  - name: diel-count
    response: detections
    evolution: bm
    terms:
      - name: niche
        categorical: true
        reference: invertivore
`

func TestRead(t *testing.T) {
	defs, err := model.Read(strings.NewReader(modelFile))
	if err != nil {
		t.Fatalf("unable to read model file: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("models: got %d, want %d", len(defs), 2)
	}

	d, ok := model.Find(defs, "diel-gls")
	if !ok {
		t.Fatalf("model diel-gls not found")
	}
	if d.Response != "percentnormalized" || d.Evolution != model.PagelLambda {
		t.Errorf("diel-gls: got %+v", d)
	}
	if len(d.Terms) != 2 {
		t.Fatalf("diel-gls: terms: got %d, want %d", len(d.Terms), 2)
	}
	if tm := d.Terms[1]; !tm.Categorical || tm.Reference != "1" {
		t.Errorf("diel-gls: territory term: got %+v", tm)
	}

	// an empty name picks the first model
	d, ok = model.Find(defs, "")
	if !ok || d.Name != "diel-gls" {
		t.Errorf("default model: got %q", d.Name)
	}

	if _, ok := model.Find(defs, "no-such-model"); ok {
		t.Errorf("unexpected model found")
	}
}

func TestReadInvalid(t *testing.T) {
	bad := []string{
		"models: []",
		"models:\n  - name: m\n    response: y\n    terms: []",
		"models:\n  - name: m\n    response: y\n    evolution: ou\n    terms:\n      - name: x",
		"models:\n  - name: m\n    response: y\n    terms:\n      - name: f\n        categorical: true",
		"models:\n  - name: m\n    response: y\n    terms:\n      - name: x\n      - name: x",
	}
	for _, b := range bad {
		if _, err := model.Read(strings.NewReader(b)); err == nil {
			t.Errorf("expecting error for model file:\n%s", b)
		}
	}
}

func TestDefault(t *testing.T) {
	d := model.Default()
	if err := d.Validate(); err != nil {
		t.Errorf("default model: %v", err)
	}
	if len(d.Terms) != 5 {
		t.Errorf("default model: terms: got %d, want %d", len(d.Terms), 5)
	}
}
