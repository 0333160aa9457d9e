package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/basalt-io/basalt-go/internal/cmd/base"
	"github.com/basalt-io/basalt-go/internal/cmd/commands/migratecmd"
	"github.com/basalt-io/basalt-go/internal/cmd/commands/versioncmd"
)

// commands builds the CLI command registry.
func commands(log hclog.Logger, ui cli.Ui) map[string]cli.CommandFactory {
	baseCmd := &base.Command{
		UI:  ui,
		Log: log,
	}

	return map[string]cli.CommandFactory{
		"version": func() (cli.Command, error) {
			return &versioncmd.Command{Command: baseCmd}, nil
		},
		"migrate": func() (cli.Command, error) {
			return &migratecmd.Command{Command: baseCmd}, nil
		},
		"migrate status": func() (cli.Command, error) {
			return &migratecmd.StatusCommand{Command: baseCmd}, nil
		},
		"migrate up": func() (cli.Command, error) {
			return &migratecmd.UpCommand{Command: baseCmd}, nil
		},
		"migrate down": func() (cli.Command, error) {
			return &migratecmd.DownCommand{Command: baseCmd}, nil
		},
	}
}
