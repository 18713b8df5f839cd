// Package attack implements the adversarial injector: a scheduled generator
// of plausible-looking but illegitimate trades appended straight to the
// observable journal, bypassing the ledger engine and the audit trail.
package attack

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnabledEnv overrides the configured enabled flag in either direction when
// set (1/true/yes/on enable, anything else disables).
const EnabledEnv = "POSITION_ATTACK_ENABLED"

// Settings controls one signature's injection behaviour. All values are
// normalised before use; see Normalized.
type Settings struct {
	Enabled                 bool    `json:"enabled" yaml:"enabled"`
	IntervalSteps           int     `json:"interval_steps" yaml:"interval_steps"`
	MinSellRatio            float64 `json:"min_sell_ratio" yaml:"min_sell_ratio"`
	MaxSellRatio            float64 `json:"max_sell_ratio" yaml:"max_sell_ratio"`
	MinBuyRatio             float64 `json:"min_buy_ratio" yaml:"min_buy_ratio"`
	MaxBuyRatio             float64 `json:"max_buy_ratio" yaml:"max_buy_ratio"`
	MinCashReserveRatio     float64 `json:"min_cash_reserve_ratio" yaml:"min_cash_reserve_ratio"`
	FlagField               string  `json:"flag_field" yaml:"flag_field"`
	FlagValue               string  `json:"flag_value" yaml:"flag_value"`
	MaxSymbolAttempts       int     `json:"max_symbol_attempts" yaml:"max_symbol_attempts"`
	MinInjectionsPerSession int     `json:"min_injections_per_session" yaml:"min_injections_per_session"`
	MaxInjectionsPerSession int     `json:"max_injections_per_session" yaml:"max_injections_per_session"`
	BuySizeMultiplier       float64 `json:"buy_size_multiplier" yaml:"buy_size_multiplier"`
}

// DefaultSettings are the global defaults an attack config file overrides.
func DefaultSettings() Settings {
	return Settings{
		Enabled:                 false,
		IntervalSteps:           3,
		MinSellRatio:            0.2,
		MaxSellRatio:            0.6,
		MinBuyRatio:             0.4,
		MaxBuyRatio:             0.9,
		MinCashReserveRatio:     0.05,
		FlagField:               "attack_tag",
		FlagValue:               "position_attack",
		MaxSymbolAttempts:       5,
		MinInjectionsPerSession: 1,
		MaxInjectionsPerSession: 3,
		BuySizeMultiplier:       1.0,
	}
}

// Normalized clamps the settings into their valid ranges: ratios are
// non-negative with max >= min, the reserve ratio stays below 1, intervals
// and injection counts are at least 1.
func (s Settings) Normalized() Settings {
	if s.IntervalSteps <= 0 {
		s.IntervalSteps = 1
	}
	s.MinSellRatio = max(s.MinSellRatio, 0)
	s.MaxSellRatio = max(s.MaxSellRatio, s.MinSellRatio)
	s.MinBuyRatio = max(s.MinBuyRatio, 0)
	s.MaxBuyRatio = max(s.MaxBuyRatio, s.MinBuyRatio)
	s.MinCashReserveRatio = min(max(s.MinCashReserveRatio, 0), 0.99)
	if s.FlagField == "" {
		s.FlagField = "attack_tag"
	}
	if s.FlagValue == "" {
		s.FlagValue = "position_attack"
	}
	if s.MaxSymbolAttempts <= 0 {
		s.MaxSymbolAttempts = 3
	}
	if s.MinInjectionsPerSession < 1 {
		s.MinInjectionsPerSession = 1
	}
	if s.MaxInjectionsPerSession <= 0 {
		s.MaxInjectionsPerSession = s.MinInjectionsPerSession
	}
	if s.MaxInjectionsPerSession < s.MinInjectionsPerSession {
		s.MaxInjectionsPerSession = s.MinInjectionsPerSession
	}
	if s.BuySizeMultiplier <= 0 {
		s.BuySizeMultiplier = 1.0
	}
	return s
}

// overrides mirrors Settings with pointer fields so a config document can
// override any subset; nil (absent or null) fields keep the base value.
type overrides struct {
	Enabled                 *bool    `json:"enabled" yaml:"enabled"`
	IntervalSteps           *int     `json:"interval_steps" yaml:"interval_steps"`
	MinSellRatio            *float64 `json:"min_sell_ratio" yaml:"min_sell_ratio"`
	MaxSellRatio            *float64 `json:"max_sell_ratio" yaml:"max_sell_ratio"`
	MinBuyRatio             *float64 `json:"min_buy_ratio" yaml:"min_buy_ratio"`
	MaxBuyRatio             *float64 `json:"max_buy_ratio" yaml:"max_buy_ratio"`
	MinCashReserveRatio     *float64 `json:"min_cash_reserve_ratio" yaml:"min_cash_reserve_ratio"`
	FlagField               *string  `json:"flag_field" yaml:"flag_field"`
	FlagValue               *string  `json:"flag_value" yaml:"flag_value"`
	MaxSymbolAttempts       *int     `json:"max_symbol_attempts" yaml:"max_symbol_attempts"`
	MinInjectionsPerSession *int     `json:"min_injections_per_session" yaml:"min_injections_per_session"`
	MaxInjectionsPerSession *int     `json:"max_injections_per_session" yaml:"max_injections_per_session"`
	BuySizeMultiplier       *float64 `json:"buy_size_multiplier" yaml:"buy_size_multiplier"`
}

func (o overrides) apply(s Settings) Settings {
	if o.Enabled != nil {
		s.Enabled = *o.Enabled
	}
	if o.IntervalSteps != nil {
		s.IntervalSteps = *o.IntervalSteps
	}
	if o.MinSellRatio != nil {
		s.MinSellRatio = *o.MinSellRatio
	}
	if o.MaxSellRatio != nil {
		s.MaxSellRatio = *o.MaxSellRatio
	}
	if o.MinBuyRatio != nil {
		s.MinBuyRatio = *o.MinBuyRatio
	}
	if o.MaxBuyRatio != nil {
		s.MaxBuyRatio = *o.MaxBuyRatio
	}
	if o.MinCashReserveRatio != nil {
		s.MinCashReserveRatio = *o.MinCashReserveRatio
	}
	if o.FlagField != nil {
		s.FlagField = *o.FlagField
	}
	if o.FlagValue != nil {
		s.FlagValue = *o.FlagValue
	}
	if o.MaxSymbolAttempts != nil {
		s.MaxSymbolAttempts = *o.MaxSymbolAttempts
	}
	if o.MinInjectionsPerSession != nil {
		s.MinInjectionsPerSession = *o.MinInjectionsPerSession
	}
	if o.MaxInjectionsPerSession != nil {
		s.MaxInjectionsPerSession = *o.MaxInjectionsPerSession
	}
	if o.BuySizeMultiplier != nil {
		s.BuySizeMultiplier = *o.BuySizeMultiplier
	}
	return s
}

type configFile struct {
	overrides    `yaml:",inline"`
	PerSignature map[string]overrides `json:"per_signature" yaml:"per_signature"`
}

// Manager loads the attack config document and resolves the effective
// settings per signature: defaults, then global overrides, then the
// signature's own section, then the environment enable switch, then
// normalisation.
type Manager struct {
	raw configFile
}

// LoadManager reads the config document (JSON or YAML). A missing file means
// pure defaults; that is not an error.
func LoadManager(path string) (*Manager, error) {
	m := &Manager{}
	if path == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("attack: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &m.raw); err != nil {
		return nil, fmt.Errorf("attack: parse config %s: %w", path, err)
	}
	return m, nil
}

// SettingsFor resolves the effective, normalised settings for a signature.
func (m *Manager) SettingsFor(signature string) Settings {
	s := m.raw.overrides.apply(DefaultSettings())
	if o, ok := m.raw.PerSignature[signature]; ok {
		s = o.apply(s)
	}
	if env, ok := os.LookupEnv(EnabledEnv); ok {
		s.Enabled = parseBool(env)
	}
	return s.Normalized()
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
