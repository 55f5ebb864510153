// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package tree is a metapackage for commands
// that dealt with phylogenetic trees.
package tree

import (
	"github.com/evosong/dielvox/cmd/dielvox/tree/prune"
	"github.com/evosong/dielvox/cmd/dielvox/tree/terms"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: "tree <command> [<argument>...]",
	Short: "commands for phylogenetic trees",
}

func init() {
	Command.Add(prune.Command)
	Command.Add(terms.Command)
}
