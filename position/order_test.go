package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		order Order
		field string // empty means valid
	}{
		{"no_trade", Order{Action: NoTrade}, ""},
		{"valid buy", Order{Action: Buy, Symbol: "AAPL", Amount: 10, Price: 150}, ""},
		{"valid sell", Order{Action: Sell, Symbol: "AAPL", Amount: 10, Price: 150}, ""},
		{"unknown action", Order{Action: "hold"}, "action"},
		{"missing symbol", Order{Action: Buy, Amount: 10, Price: 150}, "symbol"},
		{"cash symbol", Order{Action: Buy, Symbol: CashKey, Amount: 10, Price: 150}, "symbol"},
		{"zero amount", Order{Action: Buy, Symbol: "AAPL", Price: 150}, "amount"},
		{"negative amount", Order{Action: Sell, Symbol: "AAPL", Amount: -5, Price: 150}, "amount"},
		{"missing price", Order{Action: Buy, Symbol: "AAPL", Amount: 10}, "price"},
		{"negative price", Order{Action: Buy, Symbol: "AAPL", Amount: 10, Price: -1}, "price"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.order.Validate()
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var ioe *InvalidOrderError
			assert.ErrorAs(t, err, &ioe)
			assert.Equal(t, tc.field, ioe.Field)
		})
	}
}
