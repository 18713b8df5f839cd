package ledger

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Yanlewen/TradeTrap/audit"
	"github.com/Yanlewen/TradeTrap/journal"
	"github.com/Yanlewen/TradeTrap/observability"
	"github.com/Yanlewen/TradeTrap/position"
)

// Staged is one order plus the caller's believed pre-trade position, exactly
// what an order source hands to Settle. AgentView is kept verbatim for the
// audit trail; the engine never trades on it. Ref is an optional caller
// reference (a UUID in practice) carried into the audit entry.
type Staged struct {
	Order     position.Order
	AgentView map[string]float64
	Ref       string
}

// Engine is the single source of financial truth for one signature. It
// settles orders against the trusted state, appends the journal record,
// overwrites the snapshot, and records the audit drift, in that fixed
// order, under the signature's gate.
type Engine struct {
	signature string
	gate      *Gate
	journal   *journal.Journal
	snapshots *SnapshotStore
	audits    *audit.Recorder
	flagField string
	log       zerolog.Logger
}

// New assembles an engine. flagField is the attack flag name used to
// recognise injected journal records during recovery and replay; pass the
// configured value even when attacks are disabled so forged history from
// earlier runs is still recognised.
func New(signature string, gate *Gate, j *journal.Journal, snaps *SnapshotStore, audits *audit.Recorder, flagField string, log zerolog.Logger) *Engine {
	return &Engine{
		signature: signature,
		gate:      gate,
		journal:   j,
		snapshots: snaps,
		audits:    audits,
		flagField: flagField,
		log:       log.With().Str("signature", signature).Logger(),
	}
}

// Settle validates the staged order against the trusted state, applies its
// economics, and commits journal record, snapshot, and audit entry. Any
// validation or economic failure returns before the first write; the three
// files are untouched on error. At most one Settle per signature is in
// flight at a time.
func (e *Engine) Settle(ctx context.Context, staged Staged) (journal.Record, error) {
	release, err := e.gate.Acquire(ctx, e.signature)
	if err != nil {
		return journal.Record{}, err
	}
	defer release()

	trusted, latestID, _, err := e.loadTrusted()
	if err != nil {
		return journal.Record{}, err
	}

	order := staged.Order
	if err := order.Validate(); err != nil {
		observability.SettlementFailures.WithLabelValues(e.signature, failureReason(err)).Inc()
		return journal.Record{}, err
	}

	next := trusted.Clone()
	switch order.Action {
	case position.Buy:
		err = next.ApplyBuy(order.Symbol, order.Amount, order.Price)
	case position.Sell:
		err = next.ApplySell(order.Symbol, order.Amount, order.Price)
	case position.NoTrade:
		// state unchanged
	}
	if err != nil {
		observability.SettlementFailures.WithLabelValues(e.signature, failureReason(err)).Inc()
		return journal.Record{}, err
	}

	// Ids are always recomputed here, never trusted from the caller, so a
	// replayed or colliding order id cannot fork the sequence.
	rec := journal.Record{
		Date: order.Timestamp,
		ID:   latestID + 1,
		ThisAction: journal.ThisAction{
			Action: string(order.Action),
			Symbol: order.Symbol,
			Amount: float64(order.Amount),
			Price:  order.Price,
			Market: order.Market,
		},
		Positions: next,
	}

	if err := e.journal.Append(rec); err != nil {
		return journal.Record{}, err
	}
	if err := e.snapshots.Save(Snapshot{Positions: next, ID: rec.ID, Date: rec.Date}); err != nil {
		return journal.Record{}, err
	}

	agentView := staged.AgentView
	if agentView == nil {
		agentView = map[string]float64{}
	}
	entry := audit.Entry{
		Date:                 rec.Date,
		ID:                   rec.ID,
		OrderRef:             staged.Ref,
		Order:                order,
		AgentPositionView:    agentView,
		LedgerPositionBefore: trusted.Flat(),
		LedgerPositionAfter:  next.Flat(),
		Delta:                audit.Delta(agentView, trusted.Flat()),
	}
	if err := e.audits.Record(entry); err != nil {
		return journal.Record{}, err
	}
	if len(entry.Delta) > 0 {
		observability.AuditDrift.WithLabelValues(e.signature).Inc()
	}
	observability.Settlements.WithLabelValues(e.signature, string(order.Action)).Inc()

	e.log.Info().
		Str("action", string(order.Action)).
		Str("symbol", order.Symbol).
		Int64("amount", order.Amount).
		Int64("id", rec.ID).
		Int("drift_symbols", len(entry.Delta)).
		Msg("settled order")
	return rec, nil
}

// EnsureFunded seeds a brand-new portfolio with its starting cash: a single
// init journal record plus the first snapshot. It does nothing when any
// trusted state already exists, so it is safe to call at every run start.
func (e *Engine) EnsureFunded(ctx context.Context, cash float64, date string) error {
	release, err := e.gate.Acquire(ctx, e.signature)
	if err != nil {
		return err
	}
	defer release()

	snap, err := e.snapshots.Load()
	if err != nil && !corrupt(err) {
		return err
	}
	if snap != nil {
		return nil
	}
	if _, ok, err := e.journal.Tail(journal.RoleLedger); err != nil {
		return err
	} else if ok {
		return nil
	}

	state, err := position.NewState(cash)
	if err != nil {
		return err
	}
	rec := journal.Record{
		Date:       date,
		ID:         1,
		ThisAction: journal.ThisAction{Action: journal.ActionInit},
		Positions:  state,
	}
	if err := e.journal.Append(rec); err != nil {
		return err
	}
	if err := e.snapshots.Save(Snapshot{Positions: state, ID: rec.ID, Date: rec.Date}); err != nil {
		return err
	}
	e.log.Info().Float64("cash", cash).Str("date", date).Msg("funded portfolio")
	return nil
}

// Recover repairs a torn commit: a crash between the journal append and the
// snapshot overwrite leaves the journal one legitimate record ahead of the
// snapshot. If the journal tail is well-formed, untagged, and its id is
// exactly snapshot id + 1, it is replayed into the snapshot. A missing or
// corrupt snapshot is rebuilt from an untagged tail the same way. Anything
// else (gaps, forged tails) is left alone.
func (e *Engine) Recover(ctx context.Context) error {
	release, err := e.gate.Acquire(ctx, e.signature)
	if err != nil {
		return err
	}
	defer release()

	tail, ok, err := e.journal.Tail(journal.RoleLedger)
	if err != nil {
		return err
	}
	if !ok || tail.Positions == nil || tail.Tagged(e.flagField) {
		return nil
	}

	snap, err := e.snapshots.Load()
	if err != nil {
		if !corrupt(err) {
			return err
		}
		e.log.Warn().Err(err).Msg("snapshot corrupt, rebuilding from journal tail")
		snap = nil
	}
	switch {
	case snap == nil:
	case tail.ID == snap.ID+1:
		e.log.Warn().Int64("snapshot_id", snap.ID).Int64("journal_id", tail.ID).
			Msg("replaying torn commit from journal tail")
	default:
		return nil
	}
	return e.snapshots.Save(Snapshot{Positions: tail.Positions, ID: tail.ID, Date: tail.Date})
}

// Trusted returns the current trusted state under the gate, for inspection
// tooling.
func (e *Engine) Trusted(ctx context.Context) (Snapshot, error) {
	release, err := e.gate.Acquire(ctx, e.signature)
	if err != nil {
		return Snapshot{}, err
	}
	defer release()

	state, id, date, err := e.loadTrusted()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Positions: state, ID: id, Date: date}, nil
}

// loadTrusted resolves the trusted state: the snapshot when present and
// decodable, the last well-formed journal record otherwise, and an empty
// zero-cash position with id 0 when neither exists.
func (e *Engine) loadTrusted() (*position.State, int64, string, error) {
	snap, err := e.snapshots.Load()
	if err != nil {
		if !corrupt(err) {
			return nil, 0, "", err
		}
		e.log.Warn().Err(err).Msg("snapshot corrupt, falling back to journal")
	}
	if snap != nil {
		return snap.Positions.Clone(), snap.ID, snap.Date, nil
	}

	tail, ok, err := e.journal.Tail(journal.RoleLedger)
	if err != nil {
		return nil, 0, "", err
	}
	if ok && tail.Positions != nil {
		return tail.Positions.Clone(), tail.ID, tail.Date, nil
	}

	empty, err := position.NewState(0)
	if err != nil {
		return nil, 0, "", err
	}
	return empty, 0, "", nil
}

func corrupt(err error) bool {
	var ce *CorruptSnapshotError
	return errors.As(err, &ce)
}

func failureReason(err error) string {
	var (
		invalid  *position.InvalidOrderError
		cash     *position.InsufficientCashError
		holdings *position.InsufficientHoldingsError
	)
	switch {
	case errors.As(err, &invalid):
		return "invalid_order"
	case errors.As(err, &cash):
		return "insufficient_cash"
	case errors.As(err, &holdings):
		return "insufficient_holdings"
	default:
		return "other"
	}
}
