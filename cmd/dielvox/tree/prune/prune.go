// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package prune implements a command to prune
// the trees of a dielvox project
// to the species of the vocal activity table.
package prune

import (
	"fmt"
	"os"

	"github.com/evosong/dielvox/phylo"
	"github.com/evosong/dielvox/project"
	"github.com/js-arias/command"
	"github.com/js-arias/timetree"
)

var Command = &command.Command{
	Usage: "prune [--tree <tree-name>] [-o|--output <file>] <project-file>",
	Short: "prune trees to the analysis species",
	Long: `
Command prune reads the trees of a dielvox project and removes every terminal
that is not a species of the vocal activity table. A species of the table
without a terminal in a tree is a fatal error: the analysis requires a
complete phylogenetic coverage, and an incomplete tree must be fixed, not
silently reduced.

The argument of the command is the name of the project file.

By default all trees will be pruned. If the flag --tree is set, only the
indicated tree will be pruned and kept.

The pruned trees are written to the file given by the flag --output, or -o,
"pruned-trees.tab" by default, and registered in the project as the tree
file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var treeName string
var output string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&treeName, "tree", "", "")
	c.Flags().StringVar(&output, "output", "pruned-trees.tab", "")
	c.Flags().StringVar(&output, "o", "pruned-trees.tab", "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	tab, err := p.Activity()
	if err != nil {
		return err
	}
	names := tab.Names()

	tn, err := p.TreeNames()
	if err != nil {
		return err
	}
	coll, err := p.Trees()
	if err != nil {
		return err
	}

	ls := coll.Names()
	if treeName != "" {
		if t := coll.Tree(treeName); t == nil {
			return fmt.Errorf("tree %q not in project %q", treeName, args[0])
		}
		ls = []string{treeName}
	}

	out := timetree.NewCollection()
	for _, nm := range ls {
		t := coll.Tree(nm)
		if err := phylo.Prune(t, names, tn); err != nil {
			return fmt.Errorf("tree %q: %v", nm, err)
		}
		if err := out.Add(t); err != nil {
			return fmt.Errorf("tree %q: %v", nm, err)
		}
		fmt.Fprintf(c.Stdout(), "%s: %d terminals\n", nm, len(t.Terms()))
	}

	if err := writeTrees(output, out); err != nil {
		return err
	}
	if p.Path(project.Trees) != output {
		p.Add(project.Trees, output)
		if err := p.Write(); err != nil {
			return err
		}
	}
	return nil
}

func writeTrees(name string, tc *timetree.Collection) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	if err := tc.TSV(f); err != nil {
		return fmt.Errorf("while writing %q: %v", name, err)
	}
	return nil
}
