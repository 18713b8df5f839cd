// Package session drives one signature's portfolio through a sequence of
// trading sessions: settle the day's staged orders through the ledger
// engine, then hand the session boundary to the adversarial injector.
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/Yanlewen/TradeTrap/attack"
	"github.com/Yanlewen/TradeTrap/journal"
	"github.com/Yanlewen/TradeTrap/ledger"
	"github.com/Yanlewen/TradeTrap/pricing"
)

// Result summarises one run.
type Result struct {
	RunID    string
	Sessions int
	Settled  int
	Rejected int
	Injected int
	FinalID  int64
}

// Runner executes sessions for a single signature.
type Runner struct {
	Signature string
	Engine    *ledger.Engine
	Journal   *journal.Journal
	Source    OrderSource
	Oracle    pricing.Oracle
	// Injector fires at session boundaries; nil disables injection.
	Injector *attack.Injector
	// Dates are the session dates in order.
	Dates []string
	// InitialCash funds the portfolio if it does not exist yet.
	InitialCash float64
	Log         zerolog.Logger
}

// Run recovers any torn commit, funds a fresh portfolio, then walks the
// session dates: each staged order is priced (when the source left the price
// to us), checked against market staging rules, and settled. A rejected
// order never stops the session. After each date the injector gets its
// chance.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Engine == nil {
		return Result{}, fmt.Errorf("session: Engine is required")
	}
	if r.Source == nil {
		return Result{}, fmt.Errorf("session: Source is required")
	}
	if len(r.Dates) == 0 {
		return Result{}, fmt.Errorf("session: at least one date is required")
	}
	defer r.Source.Close()

	res := Result{RunID: ulid.Make().String()}
	log := r.Log.With().Str("run_id", res.RunID).Str("signature", r.Signature).Logger()

	if err := r.Engine.Recover(ctx); err != nil {
		return res, err
	}
	if err := r.Engine.EnsureFunded(ctx, r.InitialCash, r.Dates[0]); err != nil {
		return res, err
	}

	for i, date := range r.Dates {
		sessionIndex := i + 1
		log.Info().Str("date", date).Int("session", sessionIndex).Msg("session start")

		for {
			staged, ok, err := r.Source.Next(date)
			if err != nil {
				return res, err
			}
			if !ok {
				break
			}
			if r.settleOne(ctx, date, staged, log) {
				res.Settled++
			} else {
				res.Rejected++
			}
		}

		if r.Injector != nil {
			n, err := r.Injector.MaybeInject(date, sessionIndex)
			if err != nil {
				return res, err
			}
			res.Injected += n
		}
		res.Sessions++
	}

	snap, err := r.Engine.Trusted(ctx)
	if err != nil {
		return res, err
	}
	res.FinalID = snap.ID
	log.Info().
		Int("settled", res.Settled).
		Int("rejected", res.Rejected).
		Int("injected", res.Injected).
		Int64("final_id", res.FinalID).
		Msg("run complete")
	return res, nil
}

// settleOne stages and settles a single order, reporting whether it
// committed. Rejections are logged, never fatal.
func (r *Runner) settleOne(ctx context.Context, date string, staged StagedOrder, log zerolog.Logger) bool {
	ord := staged.Order
	if ord.Timestamp == "" {
		ord.Timestamp = date
	}
	if ord.Market == "" && ord.Symbol != "" {
		ord.Market = DetectMarket(ord.Symbol)
	}

	if ord.Symbol != "" {
		if err := ValidateLot(ord.Market, ord.Amount); err != nil {
			log.Warn().Err(err).Str("symbol", ord.Symbol).Msg("order rejected by market rules")
			return false
		}
	}

	// Price the order from the oracle when the source did not. A missing
	// price aborts this order, never substitutes a default.
	if ord.Price == 0 && ord.Symbol != "" && r.Oracle != nil {
		prices, err := r.Oracle.OpenPrices(date, []string{ord.Symbol})
		if err != nil {
			log.Warn().Err(err).Str("symbol", ord.Symbol).Msg("price lookup failed")
			return false
		}
		p, ok := prices[ord.Symbol]
		if !ok || p <= 0 {
			err := &pricing.MissingPriceError{Symbol: ord.Symbol, Date: date}
			log.Warn().Err(err).Msg("order dropped")
			return false
		}
		ord.Price = p
	}

	view := staged.PositionBefore
	if view == nil && r.Journal != nil {
		// The agent's belief is whatever the journal shows an agent-role
		// reader, tampering included.
		if tail, ok, err := r.Journal.Tail(journal.RoleAgent); err == nil && ok && tail.Positions != nil {
			view = tail.Positions.Flat()
		}
	}

	_, err := r.Engine.Settle(ctx, ledger.Staged{
		Order:     ord,
		AgentView: view,
		Ref:       uuid.NewString(),
	})
	if err != nil {
		log.Warn().Err(err).
			Str("action", string(ord.Action)).
			Str("symbol", ord.Symbol).
			Msg("settlement rejected")
		return false
	}
	return true
}
