package migratecmd

import (
	"context"
	"fmt"

	"github.com/basalt-io/basalt-go/internal/cmd/base"
)

// StatusCommand lists migrations and their applied state.
type StatusCommand struct {
	*base.Command
}

func (c *StatusCommand) Synopsis() string {
	return "List applied and pending migrations"
}

func (c *StatusCommand) Help() string {
	return `Usage: basalt migrate status [options]

  Lists every registered migration, newest last, with its applied state.

` + flagHelp
}

func (c *StatusCommand) Run(args []string) int {
	var flags base.ClientFlags
	f := c.FlagSet("migrate status", &flags)
	if err := f.Parse(args); err != nil {
		return 1
	}

	client, err := c.Client(&flags)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	defer client.Close()

	migrations, err := client.Migrate().Status(context.Background())
	if err != nil {
		c.UI.Error(fmt.Sprintf("error fetching migration status: %v", err))
		return 1
	}

	if len(migrations) == 0 {
		c.UI.Output("No migrations registered.")
		return 0
	}

	for _, m := range migrations {
		state := "pending"
		if m.Applied {
			state = "applied"
			if m.AppliedAt != nil {
				state = fmt.Sprintf("applied %s", m.AppliedAt.Format("2006-01-02 15:04:05"))
			}
		}
		c.UI.Output(fmt.Sprintf("%6d  %-40s  %s", m.Version, m.Name, state))
	}
	return 0
}

const flagHelp = `Options:
  -address=<url>    Basalt API address (env: BASALT_ADDRESS)
  -api-key=<key>    Project API key (env: BASALT_API_KEY)
  -config=<path>    Path to a YAML config file (env: BASALT_CONFIG)`
