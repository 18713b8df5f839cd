package position

import "fmt"

// Action is the kind of order being settled.
type Action string

const (
	Buy     Action = "buy"
	Sell    Action = "sell"
	NoTrade Action = "no_trade"
)

// Order is one staged trade as supplied by an order source. Amount is a whole
// share count; Price is the per-share execution price the caller looked up.
type Order struct {
	Action    Action  `json:"action"`
	Symbol    string  `json:"symbol,omitempty"`
	Amount    int64   `json:"amount,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Market    string  `json:"market,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// Validate checks the order's shape. NoTrade needs nothing; Buy and Sell need
// a symbol, a positive integer amount and a positive price. Violations are
// reported as InvalidOrderError naming the offending field.
func (o Order) Validate() error {
	switch o.Action {
	case NoTrade:
		return nil
	case Buy, Sell:
	default:
		return &InvalidOrderError{Field: "action", Reason: fmt.Sprintf("unsupported action %q", o.Action)}
	}
	if o.Symbol == "" {
		return &InvalidOrderError{Field: "symbol", Reason: "required for buy/sell"}
	}
	if o.Symbol == CashKey {
		return &InvalidOrderError{Field: "symbol", Reason: "CASH is not tradable"}
	}
	if o.Amount <= 0 {
		return &InvalidOrderError{Field: "amount", Reason: fmt.Sprintf("must be a positive integer, got %d", o.Amount)}
	}
	if o.Price <= 0 {
		return &InvalidOrderError{Field: "price", Reason: fmt.Sprintf("must be positive, got %v", o.Price)}
	}
	return nil
}
