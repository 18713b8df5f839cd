package session

import (
	"fmt"
	"strings"
)

// Market staging rules live with the order source side, not the engine: lot
// sizing is a market convention, not a ledger invariant.

// DetectMarket infers the market from the symbol: Shanghai/Shenzhen suffixes
// mean the CN A-share market, everything else trades as US.
func DetectMarket(symbol string) string {
	if strings.HasSuffix(symbol, ".SH") || strings.HasSuffix(symbol, ".SZ") {
		return "cn"
	}
	return "us"
}

// ValidateLot enforces per-market lot sizing: CN A-shares trade in lots of
// 100 shares.
func ValidateLot(market string, amount int64) error {
	if market == "cn" && amount%100 != 0 {
		return fmt.Errorf("cn market trades in lots of 100 shares, got %d", amount)
	}
	return nil
}
