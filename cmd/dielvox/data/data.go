// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package data is a metapackage for commands
// that dealt with the data files of a project.
package data

import (
	"github.com/evosong/dielvox/cmd/dielvox/data/add"
	"github.com/evosong/dielvox/cmd/dielvox/data/list"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: "data <command> [<argument>...]",
	Short: "commands for project data files",
}

func init() {
	Command.Add(add.Command)
	Command.Add(list.Command)
}
