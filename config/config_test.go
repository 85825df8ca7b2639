package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/config"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestFromTomlFile(t *testing.T) {
	path := writeConfigFile(t, `
server-id = 101
servers = [101, 102, 103]
data-dir = "/var/lib/quorumkv"
tick-interval = "20ms"
election-timeout-low = "200ms"
replication-factor = 2
virtual-nodes = 50
`)

	c, err := config.FromTomlFile(path)
	require.NoError(t, err)

	assert.Equal(t, ServerId(101), c.ServerId)
	assert.Equal(t, []ServerId{101, 102, 103}, c.Servers)
	assert.Equal(t, "/var/lib/quorumkv", c.DataDir)
	assert.Equal(t, 2, c.ReplicationFactor)
	assert.Equal(t, 50, c.VirtualNodes)

	ts := c.TimeSettings()
	assert.Equal(t, 20*time.Millisecond, ts.TickerDuration)
	assert.Equal(t, 200*time.Millisecond, ts.ElectionTimeoutLow)
}

func TestFromTomlFile_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server-id = 1
servers = [1]
`)

	c, err := config.FromTomlFile(path)
	require.NoError(t, err)

	assert.Equal(t, config.Duration(config.DefaultTickerDuration), c.TickerDuration)
	assert.Equal(t, config.Duration(config.DefaultElectionTimeoutLow), c.ElectionTimeoutLow)
	assert.Equal(t, config.DefaultReplicationFactor, c.ReplicationFactor)
	assert.Equal(t, config.DefaultVirtualNodes, c.VirtualNodes)
	assert.Equal(t, "", c.DataDir)
}

func TestFromTomlFile_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{
			"missing server-id",
			`servers = [1, 2, 3]`,
		},
		{
			"server not in group",
			"server-id = 4\nservers = [1, 2, 3]",
		},
		{
			"bad duration",
			"server-id = 1\nservers = [1]\ntick-interval = \"fast\"",
		},
		{
			"tick not below election timeout",
			"server-id = 1\nservers = [1]\ntick-interval = \"200ms\"\nelection-timeout-low = \"100ms\"",
		},
		{
			"zero replication factor",
			"server-id = 1\nservers = [1]\nreplication-factor = 0",
		},
		{
			"zero virtual nodes",
			"server-id = 1\nservers = [1]\nvirtual-nodes = 0",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := writeConfigFile(t, test.contents)
			_, err := config.FromTomlFile(path)
			assert.Error(t, err)
		})
	}
}

func TestFromTomlFile_MissingFile(t *testing.T) {
	_, err := config.FromTomlFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
