package migratecmd

import (
	"context"
	"fmt"

	"github.com/basalt-io/basalt-go/internal/cmd/base"
)

// DownCommand reverts the most recent migrations.
type DownCommand struct {
	*base.Command
}

func (c *DownCommand) Synopsis() string {
	return "Revert the most recent migrations"
}

func (c *DownCommand) Help() string {
	return `Usage: basalt migrate down [options]

  Reverts the most recently applied migrations. Defaults to one step.

Options:
  -steps=<n>        Number of migrations to revert (default: 1)

` + flagHelp
}

func (c *DownCommand) Run(args []string) int {
	var flags base.ClientFlags
	f := c.FlagSet("migrate down", &flags)
	steps := f.Int("steps", 1, "number of migrations to revert")
	if err := f.Parse(args); err != nil {
		return 1
	}

	client, err := c.Client(&flags)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	defer client.Close()

	result, err := client.Migrate().Down(context.Background(), *steps)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error reverting migrations: %v", err))
		return 1
	}

	if len(result.Reverted) == 0 {
		c.UI.Output("Nothing to revert.")
		return 0
	}
	for _, m := range result.Reverted {
		c.UI.Output(fmt.Sprintf("reverted %d %s", m.Version, m.Name))
	}
	return 0
}
