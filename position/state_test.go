package position

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateRejectsNegativeCash(t *testing.T) {
	t.Parallel()

	_, err := NewState(-1)
	assert.Error(t, err)
}

func TestApplyBuyAndSell(t *testing.T) {
	t.Parallel()

	s, err := NewState(2000)
	require.NoError(t, err)

	require.NoError(t, s.ApplyBuy("AAPL", 10, 150))
	assert.Equal(t, int64(10), s.Quantity("AAPL"))
	assert.InDelta(t, 500.0, s.Cash(), 1e-9)

	require.NoError(t, s.ApplySell("AAPL", 10, 160))
	assert.Equal(t, int64(0), s.Quantity("AAPL"))
	assert.InDelta(t, 2100.0, s.Cash(), 1e-9)

	// Selling everything removes the key entirely.
	assert.NotContains(t, s.Flat(), "AAPL")
}

func TestApplyBuyInsufficientCash(t *testing.T) {
	t.Parallel()

	s, err := NewState(100)
	require.NoError(t, err)

	err = s.ApplyBuy("AAPL", 10, 150)
	var ice *InsufficientCashError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, "AAPL", ice.Symbol)
	assert.InDelta(t, 1500.0, ice.Required, 1e-9)
	assert.InDelta(t, 100.0, ice.Available, 1e-9)

	// Failed application leaves the state untouched.
	assert.InDelta(t, 100.0, s.Cash(), 1e-9)
	assert.Equal(t, int64(0), s.Quantity("AAPL"))
}

func TestApplySellInsufficientHoldings(t *testing.T) {
	t.Parallel()

	s, err := NewState(0)
	require.NoError(t, err)
	require.NoError(t, s.ApplyBuy("AAPL", 1, 0.01))

	err = s.ApplySell("AAPL", 5, 100)
	var ihe *InsufficientHoldingsError
	require.ErrorAs(t, err, &ihe)
	assert.Equal(t, int64(5), ihe.Requested)
	assert.Equal(t, int64(1), ihe.Held)
}

func TestApplyRejectsCashAsSymbol(t *testing.T) {
	t.Parallel()

	s, err := NewState(1000)
	require.NoError(t, err)

	var ioe *InvalidOrderError
	assert.ErrorAs(t, s.ApplyBuy(CashKey, 1, 1), &ioe)
	assert.ErrorAs(t, s.ApplySell("", 1, 1), &ioe)
	assert.ErrorAs(t, s.ApplyBuy("AAPL", 0, 1), &ioe)
	assert.ErrorAs(t, s.ApplyBuy("AAPL", 1, -1), &ioe)
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	s, err := NewState(1000)
	require.NoError(t, err)
	require.NoError(t, s.ApplyBuy("AAPL", 5, 10))

	c := s.Clone()
	require.NoError(t, c.ApplySell("AAPL", 5, 10))

	assert.Equal(t, int64(5), s.Quantity("AAPL"))
	assert.Equal(t, int64(0), c.Quantity("AAPL"))
}

func TestStateJSONShape(t *testing.T) {
	t.Parallel()

	s, err := NewState(500)
	require.NoError(t, err)
	require.NoError(t, s.ApplyBuy("AAPL", 10, 10))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"AAPL":10,"CASH":400}`, string(data))

	var back State
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, int64(10), back.Quantity("AAPL"))
	assert.InDelta(t, 400.0, back.Cash(), 1e-9)
}

func TestFromFlatRejectsBadHoldings(t *testing.T) {
	t.Parallel()

	_, err := FromFlat(map[string]float64{"AAPL": -3, "CASH": 10})
	assert.Error(t, err)

	_, err = FromFlat(map[string]float64{"AAPL": 1.5, "CASH": 10})
	assert.Error(t, err)

	_, err = FromFlat(map[string]float64{"CASH": -10})
	assert.Error(t, err)

	s, err := FromFlat(map[string]float64{"AAPL": 3, "MSFT": 0, "CASH": 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, s.Symbols())
}
