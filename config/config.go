package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	. "github.com/quorumkv/quorumkv"
)

// Default values used by NewConfig and for fields absent from a parsed
// config file.
const (
	DefaultTickerDuration     = 30 * time.Millisecond
	DefaultElectionTimeoutLow = 150 * time.Millisecond
	DefaultReplicationFactor  = 3
	DefaultVirtualNodes       = 100
)

// Config is the TOML-parsed configuration of a single node.
type Config struct {
	// This node's server id. Must be non-zero.
	ServerId ServerId `toml:"server-id"`

	// Server ids of the whole replication group, including this node.
	Servers []ServerId `toml:"servers"`

	// Directory for durable state (term, vote, log).
	// Empty means in-memory only.
	DataDir string `toml:"data-dir"`

	TickerDuration     Duration `toml:"tick-interval"`
	ElectionTimeoutLow Duration `toml:"election-timeout-low"`

	// Number of replicas per key in a partitioned store.
	ReplicationFactor int `toml:"replication-factor"`

	// Virtual nodes per physical node on the consistent hash ring.
	VirtualNodes int `toml:"virtual-nodes"`
}

// Duration is a time.Duration that parses from a TOML string like "150ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// NewConfig returns a Config with default values.
func NewConfig() Config {
	return Config{
		TickerDuration:     Duration(DefaultTickerDuration),
		ElectionTimeoutLow: Duration(DefaultElectionTimeoutLow),
		ReplicationFactor:  DefaultReplicationFactor,
		VirtualNodes:       DefaultVirtualNodes,
	}
}

// FromTomlFile loads a Config from the TOML file at the given path,
// applying defaults for absent fields, and validates it.
func FromTomlFile(path string) (Config, error) {
	c := NewConfig()
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return c, errors.Wrapf(err, "parsing config file %s", path)
	}
	return c, c.Validate()
}

// Validate checks the Config values.
func (c Config) Validate() error {
	if c.ServerId == 0 {
		return errors.New("server-id must be non-zero")
	}
	if _, err := NewClusterInfo(c.Servers, c.ServerId); err != nil {
		return errors.Wrap(err, "servers")
	}
	if s := ValidateTimeSettings(c.TimeSettings()); s != "" {
		return errors.New(s)
	}
	if c.ReplicationFactor < 1 {
		return errors.New("replication-factor must be at least 1")
	}
	if c.VirtualNodes < 1 {
		return errors.New("virtual-nodes must be at least 1")
	}
	return nil
}

// TimeSettings returns the TimeSettings from this Config.
func (c Config) TimeSettings() TimeSettings {
	return TimeSettings{
		TickerDuration:     time.Duration(c.TickerDuration),
		ElectionTimeoutLow: time.Duration(c.ElectionTimeoutLow),
	}
}
