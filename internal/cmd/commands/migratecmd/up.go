package migratecmd

import (
	"context"
	"fmt"

	"github.com/basalt-io/basalt-go/internal/cmd/base"
)

// UpCommand applies all pending migrations.
type UpCommand struct {
	*base.Command
}

func (c *UpCommand) Synopsis() string {
	return "Apply all pending migrations"
}

func (c *UpCommand) Help() string {
	return `Usage: basalt migrate up [options]

  Applies every pending migration in version order.

` + flagHelp
}

func (c *UpCommand) Run(args []string) int {
	var flags base.ClientFlags
	f := c.FlagSet("migrate up", &flags)
	if err := f.Parse(args); err != nil {
		return 1
	}

	client, err := c.Client(&flags)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	defer client.Close()

	result, err := client.Migrate().Up(context.Background())
	if err != nil {
		c.UI.Error(fmt.Sprintf("error applying migrations: %v", err))
		return 1
	}

	if len(result.Applied) == 0 {
		c.UI.Output("Already up to date.")
		return 0
	}
	for _, m := range result.Applied {
		c.UI.Output(fmt.Sprintf("applied %d %s", m.Version, m.Name))
	}
	return 0
}
