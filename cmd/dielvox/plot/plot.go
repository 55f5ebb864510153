// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package plot is a metapackage for commands
// that draw the results of an analysis.
package plot

import (
	"github.com/evosong/dielvox/cmd/dielvox/plot/coef"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: "plot <command> [<argument>...]",
	Short: "commands for plotting results",
}

func init() {
	Command.Add(coef.Command)
}
