package pricing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSetAndSetOn(t *testing.T) {
	t.Parallel()

	s := NewStatic()
	s.Set("AAPL", 150)
	s.SetOn("2024-03-01", "AAPL", 155)
	s.Set("MSFT", 400)

	prices, err := s.OpenPrices("2024-03-01", []string{"AAPL", "MSFT", "NVDA"})
	require.NoError(t, err)
	assert.InDelta(t, 155.0, prices["AAPL"], 1e-9)
	assert.InDelta(t, 400.0, prices["MSFT"], 1e-9)
	_, ok := prices["NVDA"]
	assert.False(t, ok, "unpriced symbol must be absent, not zero")

	// The date-specific override only applies on its own date.
	prices, err = s.OpenPrices("2024-03-02", []string{"AAPL"})
	require.NoError(t, err)
	assert.InDelta(t, 150.0, prices["AAPL"], 1e-9)
}

func writeBars(t *testing.T, dir, symbol, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, symbol+".json"), []byte(body), 0o644))
}

func TestFileOracleReadsOpenPrices(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeBars(t, dir, "AAPL", `{
		"2024-03-01": {"open": 150.5, "high": 152, "low": 149, "close": 151, "volume": 100000},
		"2024-03-02": {"open": 151.25}
	}`)
	writeBars(t, dir, "MSFT", `{"2024-03-01": {"open": 400}}`)

	o := NewFileOracle(dir, zerolog.Nop())
	prices, err := o.OpenPrices("2024-03-01", []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.InDelta(t, 150.5, prices["AAPL"], 1e-9)
	assert.InDelta(t, 400.0, prices["MSFT"], 1e-9)

	prices, err = o.OpenPrices("2024-03-02", []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.InDelta(t, 151.25, prices["AAPL"], 1e-9)
	_, ok := prices["MSFT"]
	assert.False(t, ok)
}

func TestFileOracleMissingSymbol(t *testing.T) {
	t.Parallel()

	o := NewFileOracle(t.TempDir(), zerolog.Nop())

	// Twice, to exercise the negative cache.
	for i := 0; i < 2; i++ {
		prices, err := o.OpenPrices("2024-03-01", []string{"NOPE"})
		require.NoError(t, err)
		assert.Empty(t, prices)
	}
}

func TestFileOracleSkipsNonPositiveOpens(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeBars(t, dir, "HALT", `{"2024-03-01": {"open": 0}, "2024-03-02": {"open": -1}}`)

	o := NewFileOracle(dir, zerolog.Nop())
	for _, date := range []string{"2024-03-01", "2024-03-02"} {
		prices, err := o.OpenPrices(date, []string{"HALT"})
		require.NoError(t, err)
		assert.Empty(t, prices, date)
	}
}

func TestFileOracleCorruptFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeBars(t, dir, "BAD", `{not json`)

	o := NewFileOracle(dir, zerolog.Nop())
	_, err := o.OpenPrices("2024-03-01", []string{"BAD"})
	assert.Error(t, err)
}
