// Package versioncmd implements `basalt version`.
package versioncmd

import (
	"github.com/basalt-io/basalt-go/internal/cmd/base"
	"github.com/basalt-io/basalt-go/internal/version"
)

// Command prints the CLI version.
type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the CLI version"
}

func (c *Command) Help() string {
	return `Usage: basalt version`
}

func (c *Command) Run(args []string) int {
	c.UI.Output("basalt " + version.Version)
	return 0
}
