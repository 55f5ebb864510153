// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Dielvox is a tool for the analysis
// of diel patterns in acoustic bird surveys.
package main

import (
	"github.com/evosong/dielvox/cmd/dielvox/data"
	"github.com/evosong/dielvox/cmd/dielvox/fit"
	"github.com/evosong/dielvox/cmd/dielvox/plot"
	"github.com/evosong/dielvox/cmd/dielvox/prep"
	"github.com/evosong/dielvox/cmd/dielvox/tree"
	"github.com/js-arias/command"
)

var app = &command.Command{
	Usage: "dielvox <command> [<argument>...]",
	Short: "a tool for diel vocal activity analysis",
}

func init() {
	app.Add(data.Command)
	app.Add(prep.Command)
	app.Add(tree.Command)
	app.Add(fit.Command)
	app.Add(plot.Command)
}

func main() {
	app.Main()
}
