package base

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommand() *Command {
	return &Command{
		UI:  cli.NewMockUi(),
		Log: hclog.NewNullLogger(),
	}
}

func TestClientFromFlags(t *testing.T) {
	c := testCommand()
	client, err := c.Client(&ClientFlags{Address: "https://api.example.com", APIKey: "k"})
	require.NoError(t, err)
	defer client.Close()
}

func TestClientFromEnv(t *testing.T) {
	t.Setenv(EnvAddress, "https://api.example.com")
	t.Setenv(EnvAPIKey, "env-key")

	c := testCommand()
	client, err := c.Client(&ClientFlags{})
	require.NoError(t, err)
	defer client.Close()
}

func TestClientFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "basalt.yml")
	require.NoError(t, os.WriteFile(path, []byte("address: https://api.example.com\napi_key: file-key\n"), 0o644))

	c := testCommand()
	client, err := c.Client(&ClientFlags{ConfigPath: path})
	require.NoError(t, err)
	defer client.Close()
}

func TestClientFlagBeatsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "basalt.yml")
	require.NoError(t, os.WriteFile(path, []byte("address: https://file.example.com\napi_key: file-key\n"), 0o644))

	c := testCommand()
	client, err := c.Client(&ClientFlags{Address: "https://flag.example.com", APIKey: "flag-key", ConfigPath: path})
	require.NoError(t, err)
	defer client.Close()
}

func TestClientMissingSettings(t *testing.T) {
	t.Setenv(EnvAddress, "")
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvConfig, "")

	c := testCommand()

	_, err := c.Client(&ClientFlags{APIKey: "k"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "no API address")

	_, err = c.Client(&ClientFlags{Address: "https://api.example.com"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "no API key")
}

func TestClientBadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "basalt.yml")
	require.NoError(t, os.WriteFile(path, []byte("address: [broken"), 0o644))

	c := testCommand()
	_, err := c.Client(&ClientFlags{ConfigPath: path})
	require.Error(t, err)
}
