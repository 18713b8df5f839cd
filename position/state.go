package position

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// CashKey is the distinguished entry holding the portfolio's cash balance.
const CashKey = "CASH"

// State is a portfolio position: integer share counts per symbol plus a cash
// balance. Both are non-negative at all times; a holding that reaches zero is
// removed rather than kept at zero. The JSON form is the flat map the rest of
// the system persists, e.g. {"AAPL": 10, "CASH": 500.0}.
type State struct {
	holdings map[string]int64
	cash     float64
}

// NewState returns an empty position with the given starting cash.
func NewState(cash float64) (*State, error) {
	if cash < 0 || math.IsNaN(cash) || math.IsInf(cash, 0) {
		return nil, fmt.Errorf("position: initial cash must be a non-negative number, got %v", cash)
	}
	return &State{holdings: make(map[string]int64), cash: cash}, nil
}

// Cash returns the current cash balance.
func (s *State) Cash() float64 { return s.cash }

// Quantity returns the held share count for symbol, zero if not held.
func (s *State) Quantity(symbol string) int64 { return s.holdings[symbol] }

// Symbols returns the symbols with a positive holding, sorted.
func (s *State) Symbols() []string {
	syms := make([]string, 0, len(s.holdings))
	for sym := range s.holdings {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}

// Clone returns an independent copy.
func (s *State) Clone() *State {
	c := &State{holdings: make(map[string]int64, len(s.holdings)), cash: s.cash}
	for sym, qty := range s.holdings {
		c.holdings[sym] = qty
	}
	return c
}

// Flat returns the position as a flat symbol->value map including CashKey,
// the shape audit deltas are computed over.
func (s *State) Flat() map[string]float64 {
	m := make(map[string]float64, len(s.holdings)+1)
	for sym, qty := range s.holdings {
		m[sym] = float64(qty)
	}
	m[CashKey] = s.cash
	return m
}

// ApplyBuy debits cash by price*amount and credits the holding. It fails with
// InsufficientCashError when the balance cannot cover the cost and leaves the
// state untouched on any failure.
func (s *State) ApplyBuy(symbol string, amount int64, price float64) error {
	if err := checkLeg(symbol, amount, price); err != nil {
		return err
	}
	cost := price * float64(amount)
	if s.cash < cost {
		return &InsufficientCashError{Symbol: symbol, Required: cost, Available: s.cash}
	}
	s.cash -= cost
	s.holdings[symbol] += amount
	return nil
}

// ApplySell debits the holding and credits cash by price*amount. It fails
// with InsufficientHoldingsError when fewer shares are held than requested.
// A holding that reaches zero is removed.
func (s *State) ApplySell(symbol string, amount int64, price float64) error {
	if err := checkLeg(symbol, amount, price); err != nil {
		return err
	}
	held := s.holdings[symbol]
	if held < amount {
		return &InsufficientHoldingsError{Symbol: symbol, Requested: amount, Held: held}
	}
	if held == amount {
		delete(s.holdings, symbol)
	} else {
		s.holdings[symbol] = held - amount
	}
	s.cash += price * float64(amount)
	return nil
}

func checkLeg(symbol string, amount int64, price float64) error {
	if symbol == "" || symbol == CashKey {
		return &InvalidOrderError{Field: "symbol", Reason: fmt.Sprintf("%q is not a tradable symbol", symbol)}
	}
	if amount <= 0 {
		return &InvalidOrderError{Field: "amount", Reason: fmt.Sprintf("must be a positive integer, got %d", amount)}
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return &InvalidOrderError{Field: "price", Reason: fmt.Sprintf("must be positive, got %v", price)}
	}
	return nil
}

func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Flat())
}

// UnmarshalJSON accepts the flat map form. Holdings must be non-negative and
// integral (a small tolerance absorbs float round-trips from external
// writers); CASH must be non-negative.
func (s *State) UnmarshalJSON(data []byte) error {
	var flat map[string]float64
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	st, err := FromFlat(flat)
	if err != nil {
		return err
	}
	*s = *st
	return nil
}

// FromFlat builds a State from the flat persisted map form.
func FromFlat(flat map[string]float64) (*State, error) {
	st := &State{holdings: make(map[string]int64, len(flat))}
	for sym, val := range flat {
		if sym == CashKey {
			if val < 0 {
				return nil, fmt.Errorf("position: negative cash %v", val)
			}
			st.cash = val
			continue
		}
		qty := math.Round(val)
		if math.Abs(val-qty) > 1e-6 {
			return nil, fmt.Errorf("position: non-integral holding %v for %s", val, sym)
		}
		if qty < 0 {
			return nil, fmt.Errorf("position: negative holding %v for %s", val, sym)
		}
		if qty > 0 {
			st.holdings[sym] = int64(qty)
		}
	}
	return st, nil
}
