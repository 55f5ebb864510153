// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package list implements a command to print
// the data files defined in a dielvox project.
package list

import (
	"fmt"

	"github.com/evosong/dielvox/project"
	"github.com/js-arias/command"
)

var Command = &command.Command{
	Usage: "list <project-file>",
	Short: "print the data files of a project",
	Long: `
Command list reads a dielvox project and prints the defined datasets and
their file paths in the standard output.

The argument of the command is the name of the project file.
	`,
	Run: run,
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	for _, s := range p.Sets() {
		fmt.Fprintf(c.Stdout(), "%s\t%s\n", s, p.Path(s))
	}
	return nil
}
