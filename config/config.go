// Package config loads connection configuration from YAML or TOML files
// into a ConnectionConfig, the input to dialect/sql.Open plus the pool
// tuning parameters *sql.DB itself exposes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ConnectionConfig is the connection parameters a Backend is built from:
// driver name ("postgres"/"mysql"/"sqlite"), data source name, and pool
// tuning. Durations are parsed from their text form ("30s", "5m") by both
// loaders.
type ConnectionConfig struct {
	Driver          string   `yaml:"driver" toml:"driver"`
	DSN             string   `yaml:"dsn" toml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns" toml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime" toml:"conn_max_lifetime"`
	ConnMaxIdleTime Duration `yaml:"conn_max_idle_time" toml:"conn_max_idle_time"`
}

// Duration parses the same text form ("30s", "5m") from either a YAML
// scalar or a TOML string, since neither time.Duration's zero value nor
// the stdlib type itself round-trips through a human-written config file
// without a custom (un)marshaler.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler, which both yaml.v3
// and BurntSushi/toml fall back to for types that define it.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalYAML implements yaml.v3's Unmarshaler for the plain-scalar
// case (BurntSushi/toml needs no equivalent: it already dispatches to
// UnmarshalText for TOML string values).
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads path and parses it as YAML or TOML, selected by file
// extension (.yaml/.yml or .toml); any other extension is an error.
func Load(path string) (*ConnectionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var c ConnectionConfig
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s as yaml: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s as toml: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config: unrecognized extension %q for %s", ext, path)
	}
	return &c, nil
}

// Validate reports the first missing required field.
func (c *ConnectionConfig) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("config: driver is required")
	}
	if c.DSN == "" {
		return fmt.Errorf("config: dsn is required")
	}
	return nil
}
