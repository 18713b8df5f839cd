package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.yaml", `
data_root: /tmp/agents
signatures:
  - agent-a
  - agent-b
initial_cash: 5000
symbols: [AAPL, MSFT]
price_data_dir: /tmp/prices
attack_config: /tmp/attack.yaml
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/agents", cfg.DataRoot)
	assert.Equal(t, []string{"agent-a", "agent-b"}, cfg.Signatures)
	assert.InDelta(t, 5000.0, cfg.InitialCash, 1e-9)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Symbols)
	assert.Equal(t, "/tmp/attack.yaml", cfg.AttackConfig)
}

func TestLoadFromFileJSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json", `{
		"data_root": "/tmp/agents",
		"signatures": ["agent-a"],
		"initial_cash": 1000,
		"symbols": ["AAPL"]
	}`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"agent-a"}, cfg.Signatures)
}

func TestLoadFromFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			DataRoot:    "/tmp/agents",
			Signatures:  []string{"agent-a"},
			InitialCash: 1000,
			Symbols:     []string{"AAPL"},
		}
	}
	assert.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"missing data_root": func(c *Config) { c.DataRoot = "" },
		"no signatures":     func(c *Config) { c.Signatures = nil },
		"empty signature":   func(c *Config) { c.Signatures = []string{""} },
		"negative cash":     func(c *Config) { c.InitialCash = -1 },
		"no symbols":        func(c *Config) { c.Symbols = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Default().Validate())
}

func TestSignaturePaths(t *testing.T) {
	t.Parallel()

	cfg := &Config{DataRoot: "/data/agent_data"}
	assert.Equal(t, filepath.Join("/data/agent_data", "agent-a", "position"), cfg.SignatureDir("agent-a"))
	assert.Equal(t, filepath.Join("/data/agent_data", "agent-a", "position", "position.jsonl"), cfg.PositionFile("agent-a"))
	assert.Equal(t, filepath.Join("/data/agent_data", "agent-a", "position", "ledger_state.json"), cfg.SnapshotFile("agent-a"))
	assert.Equal(t, filepath.Join("/data/agent_data", "agent-a", "position", "audit.jsonl"), cfg.AuditFile("agent-a"))
	assert.Equal(t, filepath.Join("/data/agent_data", "agent-a", "position", ".position.lock"), cfg.LockFile("agent-a"))
}
