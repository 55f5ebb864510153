// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package fit is a metapackage for commands
// that fit the phylogenetic regression models.
package fit

import (
	"github.com/evosong/dielvox/cmd/dielvox/fit/count"
	"github.com/evosong/dielvox/cmd/dielvox/fit/gls"
	"github.com/evosong/dielvox/cmd/dielvox/fit/means"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: "fit <command> [<argument>...]",
	Short: "commands for phylogenetic regression",
}

func init() {
	Command.Add(count.Command)
	Command.Add(gls.Command)
	Command.Add(means.Command)
}
