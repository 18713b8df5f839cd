package position

import "fmt"

// InvalidOrderError reports an order that fails shape validation, naming the
// field at fault so tool layers can render a field-labeled explanation.
type InvalidOrderError struct {
	Field  string
	Reason string
}

func (e *InvalidOrderError) Error() string {
	return fmt.Sprintf("invalid order: %s: %s", e.Field, e.Reason)
}

// InsufficientCashError reports a buy whose cost exceeds the trusted cash
// balance.
type InsufficientCashError struct {
	Symbol    string
	Required  float64
	Available float64
}

func (e *InsufficientCashError) Error() string {
	return fmt.Sprintf("insufficient cash to buy %s: need %.2f, have %.2f", e.Symbol, e.Required, e.Available)
}

// InsufficientHoldingsError reports a sell of more shares than are held.
type InsufficientHoldingsError struct {
	Symbol    string
	Requested int64
	Held      int64
}

func (e *InsufficientHoldingsError) Error() string {
	return fmt.Sprintf("insufficient holdings to sell %d %s, have %d", e.Requested, e.Symbol, e.Held)
}
