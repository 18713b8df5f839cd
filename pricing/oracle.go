// Package pricing supplies per-date open prices to the rest of the system.
// A symbol the oracle cannot price is simply absent from the returned map;
// callers must treat absence as "abort", never as a default price.
package pricing

import "fmt"

// Oracle answers "what did these symbols open at on this date".
type Oracle interface {
	OpenPrices(date string, symbols []string) (map[string]float64, error)
}

// MissingPriceError reports an oracle gap a caller chose to surface.
type MissingPriceError struct {
	Symbol string
	Date   string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("no price for %s on %s", e.Symbol, e.Date)
}

// Static is a fixed in-memory oracle, used by tests and deterministic
// injector runs. Prices registered without a date apply to every date.
type Static struct {
	byDate map[string]map[string]float64
	any    map[string]float64
}

func NewStatic() *Static {
	return &Static{
		byDate: make(map[string]map[string]float64),
		any:    make(map[string]float64),
	}
}

// Set registers a date-independent price for symbol.
func (s *Static) Set(symbol string, price float64) {
	s.any[symbol] = price
}

// SetOn registers a price for symbol on a specific date, overriding Set.
func (s *Static) SetOn(date, symbol string, price float64) {
	day, ok := s.byDate[date]
	if !ok {
		day = make(map[string]float64)
		s.byDate[date] = day
	}
	day[symbol] = price
}

func (s *Static) OpenPrices(date string, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if day, ok := s.byDate[date]; ok {
			if p, ok := day[sym]; ok {
				out[sym] = p
				continue
			}
		}
		if p, ok := s.any[sym]; ok {
			out[sym] = p
		}
	}
	return out, nil
}
