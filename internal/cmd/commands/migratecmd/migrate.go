// Package migratecmd implements the `basalt migrate` command group.
package migratecmd

import (
	"github.com/mitchellh/cli"

	"github.com/basalt-io/basalt-go/internal/cmd/base"
)

// Command groups the migrate subcommands.
type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Manage schema migrations"
}

func (c *Command) Help() string {
	return `Usage: basalt migrate <subcommand> [options]

  Inspect and run the project's schema migrations.

Subcommands:
    status    List applied and pending migrations
    up        Apply all pending migrations
    down      Revert the most recent migrations`
}

func (c *Command) Run(args []string) int {
	return cli.RunResultHelp
}
