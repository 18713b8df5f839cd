package session

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yanlewen/TradeTrap/attack"
	"github.com/Yanlewen/TradeTrap/audit"
	"github.com/Yanlewen/TradeTrap/journal"
	"github.com/Yanlewen/TradeTrap/ledger"
	"github.com/Yanlewen/TradeTrap/pricing"
	"github.com/Yanlewen/TradeTrap/position"
)

func TestDetectMarket(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cn", DetectMarket("600519.SH"))
	assert.Equal(t, "cn", DetectMarket("000001.SZ"))
	assert.Equal(t, "us", DetectMarket("AAPL"))
	assert.Equal(t, "us", DetectMarket("BRK.B"))
}

func TestValidateLot(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateLot("cn", 100))
	assert.NoError(t, ValidateLot("cn", 300))
	assert.Error(t, ValidateLot("cn", 150))
	assert.NoError(t, ValidateLot("us", 7))
}

func TestFileSourceReplaysByDate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "orders.jsonl")
	body := `{"order":{"action":"buy","symbol":"AAPL","amount":10,"price":150,"timestamp":"2024-03-01"}}
{"order":{"action":"sell","symbol":"AAPL","amount":5,"price":160,"timestamp":"2024-03-02"}}
{"order":{"action":"buy","symbol":"MSFT","amount":2,"price":400,"timestamp":"2024-03-01"}}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	src, err := OpenFileSource(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2024-03-01", "2024-03-02"}, src.Dates())

	first, ok, err := src.Next("2024-03-01")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "AAPL", first.Order.Symbol)

	second, ok, err := src.Next("2024-03-01")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "MSFT", second.Order.Symbol)

	_, ok, err = src.Next("2024-03-01")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileSourceRejectsMalformedLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "orders.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{broken\n"), 0o644))
	_, err := OpenFileSource(path)
	assert.Error(t, err)
}

type runFixture struct {
	journal *journal.Journal
	audits  *audit.Recorder
	runner  *Runner
}

func newRunFixture(t *testing.T, orders []StagedOrder, dates []string, inj *attack.Injector, j *journal.Journal, oracle pricing.Oracle) *runFixture {
	t.Helper()
	dir := t.TempDir()

	if j == nil {
		var err error
		j, err = journal.Open(filepath.Join(dir, "position.jsonl"))
		require.NoError(t, err)
	}
	snaps, err := ledger.NewSnapshotStore(filepath.Join(dir, "ledger_state.json"))
	require.NoError(t, err)
	audits, err := audit.NewRecorder(filepath.Join(dir, "audit.jsonl"))
	require.NoError(t, err)

	eng := ledger.New("agent-a", ledger.NewGate(), j, snaps, audits, "attack_tag", zerolog.Nop())
	return &runFixture{
		journal: j,
		audits:  audits,
		runner: &Runner{
			Signature:   "agent-a",
			Engine:      eng,
			Journal:     j,
			Source:      NewSliceSource(orders...),
			Oracle:      oracle,
			Injector:    inj,
			Dates:       dates,
			InitialCash: 2000,
			Log:         zerolog.Nop(),
		},
	}
}

func TestRunSettlesAndCountsRejections(t *testing.T) {
	t.Parallel()

	oracle := pricing.NewStatic()
	oracle.Set("AAPL", 150)

	orders := []StagedOrder{
		// Priced by the oracle: 10 * 150 = 1500 of the 2000 funding.
		{Order: position.Order{Action: position.Buy, Symbol: "AAPL", Amount: 10, Timestamp: "2024-03-01"}},
		// CN lot rule rejection.
		{Order: position.Order{Action: position.Buy, Symbol: "600519.SH", Amount: 150, Price: 10, Timestamp: "2024-03-01"}},
		// Insufficient holdings rejection.
		{Order: position.Order{Action: position.Sell, Symbol: "MSFT", Amount: 1, Price: 400, Timestamp: "2024-03-02"}},
		{Order: position.Order{Action: position.Sell, Symbol: "AAPL", Amount: 4, Price: 160, Timestamp: "2024-03-02"}},
	}

	fx := newRunFixture(t, orders, []string{"2024-03-01", "2024-03-02"}, nil, nil, oracle)
	res, err := fx.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Sessions)
	assert.Equal(t, 2, res.Settled)
	assert.Equal(t, 2, res.Rejected)
	assert.Zero(t, res.Injected)
	assert.NotEmpty(t, res.RunID)
	// init + two settled trades.
	assert.Equal(t, int64(3), res.FinalID)

	tail, ok, err := fx.journal.Tail(journal.RoleLedger)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(6), tail.Positions.Quantity("AAPL"))
	assert.InDelta(t, 2000-10*150+4*160, tail.Positions.Cash(), 1e-9)
}

func TestRunDropsUnpricedOrders(t *testing.T) {
	t.Parallel()

	oracle := pricing.NewStatic() // prices nothing
	orders := []StagedOrder{
		{Order: position.Order{Action: position.Buy, Symbol: "AAPL", Amount: 1, Timestamp: "2024-03-01"}},
	}
	fx := newRunFixture(t, orders, []string{"2024-03-01"}, nil, nil, oracle)
	res, err := fx.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Settled)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, int64(1), res.FinalID)
}

func TestRunAgentViewComesFromTamperedJournal(t *testing.T) {
	t.Parallel()

	oracle := pricing.NewStatic()
	oracle.Set("AAPL", 100)
	oracle.Set("MSFT", 100)

	// The injector fires at the end of each session and bases its round
	// trip on the previous session's record, so day 2 is order-free: the
	// forged trade lands there and the day-3 no_trade settles while the
	// agent's journal view is poisoned.
	orders := []StagedOrder{
		{Order: position.Order{Action: position.Buy, Symbol: "AAPL", Amount: 10, Timestamp: "2024-03-01"}},
		{Order: position.Order{Action: position.NoTrade, Timestamp: "2024-03-03"}},
	}

	dir := t.TempDir()
	j, err := journal.Open(filepath.Join(dir, "position.jsonl"))
	require.NoError(t, err)

	s := attack.DefaultSettings()
	s.Enabled = true
	s.IntervalSteps = 1
	s.MinInjectionsPerSession = 1
	s.MaxInjectionsPerSession = 1
	inj := attack.NewInjector("agent-a", s, j, oracle, []string{"MSFT"},
		rand.New(rand.NewSource(7)), zerolog.Nop())

	fx := newRunFixture(t, orders, []string{"2024-03-01", "2024-03-02", "2024-03-03"}, inj, j, oracle)
	res, err := fx.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Settled)
	assert.GreaterOrEqual(t, res.Injected, 1)

	entries, err := fx.audits.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].Delta)
	assert.NotEmpty(t, entries[1].Delta)

	// The forged record never reached the trusted state.
	snap, err := fx.runner.Engine.Trusted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), snap.Positions.Quantity("AAPL"))
	assert.Zero(t, snap.Positions.Quantity("MSFT"))
}

func TestRunRequiresEngineSourceAndDates(t *testing.T) {
	t.Parallel()

	r := &Runner{Log: zerolog.Nop()}
	_, err := r.Run(context.Background())
	assert.Error(t, err)
}
