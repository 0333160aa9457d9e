// Package base carries the pieces every CLI command shares: the UI, the
// logger, and connection flags resolved from flags, environment and an
// optional YAML config file.
package base

import (
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"gopkg.in/yaml.v3"

	basalt "github.com/basalt-io/basalt-go"
)

// Environment variables consulted when flags are not set.
const (
	EnvAddress = "BASALT_ADDRESS"
	EnvAPIKey  = "BASALT_API_KEY"
	EnvConfig  = "BASALT_CONFIG"
)

// Command is embedded by every CLI command.
type Command struct {
	UI  cli.Ui
	Log hclog.Logger
}

// ClientFlags are the connection settings shared by all commands.
type ClientFlags struct {
	Address    string
	APIKey     string
	ConfigPath string
}

// FlagSet builds a flag set with the shared connection flags registered.
func (c *Command) FlagSet(name string, flags *ClientFlags) *flag.FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.SetOutput(os.Stderr)
	f.StringVar(&flags.Address, "address", "", "Basalt API address (env: "+EnvAddress+")")
	f.StringVar(&flags.APIKey, "api-key", "", "Project API key (env: "+EnvAPIKey+")")
	f.StringVar(&flags.ConfigPath, "config", "", "Path to a YAML config file (env: "+EnvConfig+")")
	return f
}

// fileConfig is the YAML config file schema.
type fileConfig struct {
	Address string `yaml:"address"`
	APIKey  string `yaml:"api_key"`
}

// Client resolves the connection settings and builds a client. Precedence:
// flags, then environment, then the config file.
func (c *Command) Client(flags *ClientFlags) (*basalt.Client, error) {
	address := flags.Address
	apiKey := flags.APIKey

	if address == "" {
		address = os.Getenv(EnvAddress)
	}
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}

	if address == "" || apiKey == "" {
		path := flags.ConfigPath
		if path == "" {
			path = os.Getenv(EnvConfig)
		}
		if path != "" {
			fc, err := loadConfigFile(path)
			if err != nil {
				return nil, err
			}
			if address == "" {
				address = fc.Address
			}
			if apiKey == "" {
				apiKey = fc.APIKey
			}
		}
	}

	if address == "" {
		return nil, fmt.Errorf("no API address: set -address, %s, or a config file", EnvAddress)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no API key: set -api-key, %s, or a config file", EnvAPIKey)
	}

	return basalt.New(basalt.Config{
		BaseURL: address,
		APIKey:  apiKey,
		Logger:  c.Log,
	})
}

func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &fc, nil
}
