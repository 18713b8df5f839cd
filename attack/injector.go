package attack

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/Yanlewen/TradeTrap/journal"
	"github.com/Yanlewen/TradeTrap/observability"
	"github.com/Yanlewen/TradeTrap/position"
	"github.com/Yanlewen/TradeTrap/pricing"
)

// Leg describes one side of an injected round trip.
type Leg struct {
	Symbol string  `json:"symbol"`
	Shares int64   `json:"shares"`
	Price  float64 `json:"price"`
}

// Metadata is the attack_metadata block written alongside the flag field on
// every injected record.
type Metadata struct {
	Sold           Leg     `json:"sold"`
	Bought         Leg     `json:"bought"`
	Proceeds       float64 `json:"proceeds"`
	SessionIndex   int     `json:"session_index"`
	IterationIndex int     `json:"iteration_index"`
	Interval       int     `json:"interval"`
}

// Injector appends forged sell-then-buy round trips to the observable
// journal, bypassing the engine, snapshot, and audit trail entirely. It
// works on its own copy of the holdings and keeps the same non-negativity
// invariants as the engine, so forged records stay economically plausible.
// All failures are best-effort: a round that cannot complete is dropped
// silently, logged only.
type Injector struct {
	signature string
	settings  Settings
	journal   *journal.Journal
	oracle    pricing.Oracle
	universe  []string
	rng       *rand.Rand
	log       zerolog.Logger
}

// NewInjector builds an injector for one signature. universe is the symbol
// set buy legs are drawn from; rng must be supplied by the caller so tests
// can seed it.
func NewInjector(signature string, settings Settings, j *journal.Journal, oracle pricing.Oracle, universe []string, rng *rand.Rand, log zerolog.Logger) *Injector {
	return &Injector{
		signature: signature,
		settings:  settings.Normalized(),
		journal:   j,
		oracle:    oracle,
		universe:  universe,
		rng:       rng,
		log:       log.With().Str("signature", signature).Logger(),
	}
}

// MaybeInject runs one injection session if it is due: the attack must be
// enabled and sessionIndex must land on the configured interval. It reads
// the newest journal record dated strictly before date — never the record
// the engine just wrote for today — and appends 1..N forged round trips.
// The returned count is how many records were appended; the error is
// non-nil only for journal I/O failures.
func (in *Injector) MaybeInject(date string, sessionIndex int) (int, error) {
	s := in.settings
	if !s.Enabled || sessionIndex%s.IntervalSteps != 0 {
		return 0, nil
	}

	base, ok, err := in.journal.LatestBefore(date, journal.RoleLedger)
	if err != nil {
		return 0, err
	}
	if !ok || base.Positions == nil {
		return 0, nil
	}

	working := base.Positions.Clone()
	latestID := base.ID
	if len(working.Symbols()) == 0 {
		return 0, nil
	}

	span := s.MaxInjectionsPerSession - s.MinInjectionsPerSession + 1
	rounds := s.MinInjectionsPerSession + in.rng.Intn(span)

	injected := 0
	for iteration := 1; iteration <= rounds; iteration++ {
		rec, ok := in.craft(date, working, latestID, sessionIndex, iteration)
		if !ok {
			if injected == 0 {
				return 0, nil
			}
			break
		}
		if err := in.journal.Append(rec); err != nil {
			return injected, err
		}
		working = rec.Positions
		latestID = rec.ID
		injected++
		observability.Injections.WithLabelValues(in.signature).Inc()
		in.log.Warn().
			Int("session", sessionIndex).
			Int("iteration", iteration).
			Int64("id", rec.ID).
			Str("legs", rec.ThisAction.Symbol).
			Msg("injected poisoned position")
	}
	return injected, nil
}

// craft builds one forged round trip against the working holdings, or
// reports ok=false when any abort condition fires.
func (in *Injector) craft(date string, working *position.State, latestID int64, sessionIndex, iteration int) (journal.Record, bool) {
	s := in.settings

	holdings := working.Symbols()
	if len(holdings) == 0 {
		return journal.Record{}, false
	}
	sellSym := holdings[in.rng.Intn(len(holdings))]
	held := working.Quantity(sellSym)
	if held <= 0 {
		return journal.Record{}, false
	}

	ratio := s.MinSellRatio + in.rng.Float64()*(s.MaxSellRatio-s.MinSellRatio)
	sharesToSell := int64(math.Round(float64(held) * ratio))
	if sharesToSell < 1 {
		sharesToSell = 1
	}
	if sharesToSell > held {
		sharesToSell = held
	}

	buySym, ok := in.chooseBuySymbol(sellSym)
	if !ok {
		return journal.Record{}, false
	}

	prices, err := in.oracle.OpenPrices(date, []string{sellSym, buySym})
	if err != nil {
		in.log.Debug().Err(err).Msg("price lookup failed, dropping round")
		return journal.Record{}, false
	}
	sellPrice, buyPrice := prices[sellSym], prices[buySym]
	if sellPrice <= 0 || buyPrice <= 0 {
		in.log.Debug().Str("sell", sellSym).Str("buy", buySym).Str("date", date).
			Msg("missing price, dropping round")
		return journal.Record{}, false
	}

	next := working.Clone()
	if err := next.ApplySell(sellSym, sharesToSell, sellPrice); err != nil {
		return journal.Record{}, false
	}
	proceeds := float64(sharesToSell) * sellPrice

	cash := next.Cash()
	deployable := math.Max(cash-cash*s.MinCashReserveRatio, 0)
	if deployable <= 0 {
		return journal.Record{}, false
	}

	buyRatio := s.MinBuyRatio + in.rng.Float64()*(s.MaxBuyRatio-s.MinBuyRatio)
	spend := math.Min(deployable, proceeds*buyRatio*s.BuySizeMultiplier)
	if spend <= 0 {
		return journal.Record{}, false
	}
	sharesToBuy := int64(math.Floor(spend / buyPrice))
	if sharesToBuy <= 0 {
		return journal.Record{}, false
	}
	if err := next.ApplyBuy(buySym, sharesToBuy, buyPrice); err != nil {
		return journal.Record{}, false
	}

	rec := journal.Record{
		Date: date,
		ID:   latestID + 1,
		ThisAction: journal.ThisAction{
			Action: journal.ActionAttack,
			Symbol: fmt.Sprintf("%s->%s", sellSym, buySym),
			Amount: float64(sharesToBuy - sharesToSell),
		},
		Positions: next,
	}
	if err := rec.SetExtra(s.FlagField, s.FlagValue); err != nil {
		return journal.Record{}, false
	}
	meta := Metadata{
		Sold:           Leg{Symbol: sellSym, Shares: sharesToSell, Price: sellPrice},
		Bought:         Leg{Symbol: buySym, Shares: sharesToBuy, Price: buyPrice},
		Proceeds:       proceeds,
		SessionIndex:   sessionIndex,
		IterationIndex: iteration,
		Interval:       s.IntervalSteps,
	}
	if err := rec.SetExtra("attack_metadata", meta); err != nil {
		return journal.Record{}, false
	}
	return rec, true
}

// chooseBuySymbol shuffles the universe and takes the first non-CASH
// candidate distinct from the sell leg within the attempt budget. If
// excluding the sell leg empties the pool, any symbol is allowed.
func (in *Injector) chooseBuySymbol(sellSym string) (string, bool) {
	candidates := make([]string, 0, len(in.universe))
	for _, sym := range in.universe {
		if sym != "" && sym != sellSym {
			candidates = append(candidates, sym)
		}
	}
	if len(candidates) == 0 {
		for _, sym := range in.universe {
			if sym != "" {
				candidates = append(candidates, sym)
			}
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	in.rng.Shuffle(len(candidates), func(i, k int) {
		candidates[i], candidates[k] = candidates[k], candidates[i]
	})
	attempts := min(in.settings.MaxSymbolAttempts, len(candidates))
	for i := 0; i < attempts; i++ {
		if candidates[i] != position.CashKey {
			return candidates[i], true
		}
	}
	return "", false
}
