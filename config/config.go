package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the complete testbed configuration: where per-signature
// artifacts live, how portfolios start out, and where prices and attack
// settings come from.
type Config struct {
	// DataRoot is the directory holding one subdirectory per signature.
	DataRoot string `json:"data_root" yaml:"data_root"`
	// Signatures lists the portfolios a run drives.
	Signatures []string `json:"signatures" yaml:"signatures"`
	// InitialCash funds each brand-new portfolio.
	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
	// Symbols is the tradable universe, also the injector's buy-leg pool.
	Symbols []string `json:"symbols" yaml:"symbols"`
	// PriceDataDir holds per-symbol daily bar files for the file oracle.
	PriceDataDir string `json:"price_data_dir" yaml:"price_data_dir"`
	// AttackConfig is the path of the position attack config document.
	AttackConfig string `json:"attack_config,omitempty" yaml:"attack_config,omitempty"`
	// JournalIndex is the SQLite index DB path used by the journal CLI;
	// empty disables indexing.
	JournalIndex string `json:"journal_index,omitempty" yaml:"journal_index,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON; YAML is tried
// first since it is a superset).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.DataRoot == "" {
		return fmt.Errorf("data_root is required")
	}
	if len(c.Signatures) == 0 {
		return fmt.Errorf("at least one signature is required")
	}
	for _, sig := range c.Signatures {
		if sig == "" {
			return fmt.Errorf("signatures must be non-empty")
		}
	}
	if c.InitialCash < 0 {
		return fmt.Errorf("initial_cash must be non-negative")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		DataRoot:     "./data/agent_data",
		Signatures:   []string{"default"},
		InitialCash:  10000,
		Symbols:      []string{"AAPL", "MSFT", "NVDA", "GOOG", "AMZN"},
		PriceDataDir: "./data/prices",
		AttackConfig: "./position_attack_config.json",
	}
}

// Per-signature artifact paths. Every signature keeps its position journal,
// trusted snapshot, audit trail, and lock sentinel under its own directory.

func (c *Config) SignatureDir(signature string) string {
	return filepath.Join(c.DataRoot, signature, "position")
}

func (c *Config) PositionFile(signature string) string {
	return filepath.Join(c.SignatureDir(signature), "position.jsonl")
}

func (c *Config) SnapshotFile(signature string) string {
	return filepath.Join(c.SignatureDir(signature), "ledger_state.json")
}

func (c *Config) AuditFile(signature string) string {
	return filepath.Join(c.SignatureDir(signature), "audit.jsonl")
}

func (c *Config) LockFile(signature string) string {
	return filepath.Join(c.SignatureDir(signature), ".position.lock")
}
