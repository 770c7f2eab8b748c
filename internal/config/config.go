// Package config handles experiment configuration for the avalanche tool.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config describes one measurement run. Exactly one key source and at most
// one plaintext source should be set.
type Config struct {
	// Mode is "diffusion" or "confusion".
	Mode   string `toml:"mode" yaml:"mode" json:"mode"`
	Cipher string `toml:"cipher" yaml:"cipher" json:"cipher"`

	// Key is hex encoded. When empty, a key of KeyLength bytes is derived
	// from Passphrase, or drawn at random if there is no passphrase.
	Key        string `toml:"key" yaml:"key" json:"key"`
	KeyLength  int    `toml:"key_length" yaml:"key_length" json:"key_length"`
	Passphrase string `toml:"passphrase" yaml:"passphrase" json:"passphrase"`

	// Plaintext is hex encoded. PlaintextFile is read raw. PcapFile supplies
	// the TCP payloads to or from PcapPort.
	Plaintext     string `toml:"plaintext" yaml:"plaintext" json:"plaintext"`
	PlaintextFile string `toml:"plaintext_file" yaml:"plaintext_file" json:"plaintext_file"`
	PcapFile      string `toml:"pcap_file" yaml:"pcap_file" json:"pcap_file"`
	PcapPort      int    `toml:"pcap_port" yaml:"pcap_port" json:"pcap_port"`
	PcapPackets   int    `toml:"pcap_packets" yaml:"pcap_packets" json:"pcap_packets"`

	Iterations int    `toml:"iterations" yaml:"iterations" json:"iterations"`
	Drop       int    `toml:"drop" yaml:"drop" json:"drop"`
	Seed       uint64 `toml:"seed" yaml:"seed" json:"seed"`
	Workers    int    `toml:"workers" yaml:"workers" json:"workers"`

	// Database, if set, is the sqlite file runs are recorded in.
	Database string `toml:"database" yaml:"database" json:"database"`

	Log LogConfig `toml:"log" yaml:"log" json:"log"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`
	Format string `toml:"format" yaml:"format" json:"format"`
}

// DefaultConfig returns the defaults: RC4 confusion over 1000 trials with a
// random 16-byte key and 16 zero bytes of plaintext.
func DefaultConfig() *Config {
	return &Config{
		Mode:       "confusion",
		Cipher:     "rc4",
		KeyLength:  16,
		Plaintext:  strings.Repeat("00", 16),
		Iterations: 1000,
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads the file at path over DefaultConfig, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	default:
		return fmt.Errorf("unknown config format %q", ext)
	}
	return nil
}

// ApplyEnvOverrides applies AVALANCHE_* environment variables.
func (c *Config) ApplyEnvOverrides() error {
	str := map[string]*string{
		"AVALANCHE_MODE":       &c.Mode,
		"AVALANCHE_CIPHER":     &c.Cipher,
		"AVALANCHE_KEY":        &c.Key,
		"AVALANCHE_PASSPHRASE": &c.Passphrase,
		"AVALANCHE_PLAINTEXT":  &c.Plaintext,
		"AVALANCHE_DATABASE":   &c.Database,
		"AVALANCHE_LOG_LEVEL":  &c.Log.Level,
		"AVALANCHE_LOG_FORMAT": &c.Log.Format,
	}
	for name, dst := range str {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"AVALANCHE_KEY_LENGTH": &c.KeyLength,
		"AVALANCHE_ITERATIONS": &c.Iterations,
		"AVALANCHE_DROP":       &c.Drop,
		"AVALANCHE_WORKERS":    &c.Workers,
	}
	for name, dst := range ints {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}

	if v := os.Getenv("AVALANCHE_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return fmt.Errorf("AVALANCHE_SEED: %w", err)
		}
		c.Seed = seed
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	switch c.Mode {
	case "diffusion", "confusion":
	default:
		errs = append(errs, fmt.Errorf("mode must be diffusion or confusion, got %q", c.Mode))
	}
	if c.Cipher == "" {
		errs = append(errs, errors.New("cipher is required"))
	}
	if c.Key == "" && c.KeyLength <= 0 {
		errs = append(errs, errors.New("key or a positive key_length is required"))
	}
	if c.Iterations < 0 {
		errs = append(errs, fmt.Errorf("iterations must be non-negative, got %d", c.Iterations))
	}
	if c.Drop < 0 {
		errs = append(errs, fmt.Errorf("drop must be non-negative, got %d", c.Drop))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be non-negative, got %d", c.Workers))
	}
	if c.PcapPort < 0 || c.PcapPort > 65535 {
		errs = append(errs, fmt.Errorf("pcap_port out of range: %d", c.PcapPort))
	}
	if c.PlaintextFile != "" && c.PcapFile != "" {
		errs = append(errs, errors.New("plaintext_file and pcap_file are mutually exclusive"))
	}
	return errors.Join(errs...)
}
