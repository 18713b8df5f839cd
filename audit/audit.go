// Package audit persists the measured divergence between what a caller
// believed about a position and what the ledger's trusted state actually
// held at each legitimate settlement. Injected journal records never pass
// through here, so forged trades only surface once a later settlement's
// trusted pre-trade state reflects them.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/Yanlewen/TradeTrap/position"
)

// deltaEpsilon is the magnitude below which a per-symbol difference is
// considered noise and dropped from the entry.
const deltaEpsilon = 1e-9

// Entry is one audit trail line.
type Entry struct {
	Date                 string             `json:"date"`
	ID                   int64              `json:"id"`
	OrderRef             string             `json:"order_ref,omitempty"`
	Order                position.Order     `json:"order"`
	AgentPositionView    map[string]float64 `json:"agent_position_view"`
	LedgerPositionBefore map[string]float64 `json:"ledger_position_before"`
	LedgerPositionAfter  map[string]float64 `json:"ledger_position_after"`
	Delta                map[string]float64 `json:"agent_vs_ledger_delta"`
}

// Delta computes agentView - ledgerBefore per symbol over the union of keys,
// keeping only differences whose magnitude exceeds the epsilon.
func Delta(agentView, ledgerBefore map[string]float64) map[string]float64 {
	delta := make(map[string]float64)
	for sym, a := range agentView {
		if d := a - ledgerBefore[sym]; math.Abs(d) > deltaEpsilon {
			delta[sym] = d
		}
	}
	for sym, l := range ledgerBefore {
		if _, seen := agentView[sym]; seen {
			continue
		}
		if math.Abs(l) > deltaEpsilon {
			delta[sym] = -l
		}
	}
	return delta
}

// Recorder appends entries to a per-signature JSONL audit trail.
type Recorder struct {
	path string
}

// NewRecorder returns a recorder writing to the given file, creating parent
// directories as needed.
func NewRecorder(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("audit: create dir: %w", err)
	}
	return &Recorder{path: path}, nil
}

// Record derives the drift delta and appends the completed entry.
func (r *Recorder) Record(e Entry) error {
	if e.Delta == nil {
		e.Delta = Delta(e.AgentPositionView, e.LedgerPositionBefore)
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: encode entry: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: open for append: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// Entries returns every well-formed entry in file order; malformed lines are
// skipped. A missing file yields an empty slice.
func (r *Recorder) Entries() ([]Entry, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}
