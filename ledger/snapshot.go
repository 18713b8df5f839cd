package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Yanlewen/TradeTrap/position"
)

// Snapshot is the protected checkpoint: the one trusted (positions, id, date)
// triple. It is overwritten in full on every legitimate commit and read in
// preference to the journal. Its trustworthiness rests entirely on nothing
// but the ledger engine having write access to this file.
type Snapshot struct {
	Positions *position.State `json:"positions"`
	ID        int64           `json:"id"`
	Date      string          `json:"date"`
}

// SnapshotStore reads and overwrites the snapshot file for one signature.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore returns a store for the given file, creating parent
// directories as needed.
func NewSnapshotStore(path string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create snapshot dir: %w", err)
	}
	return &SnapshotStore{path: path}, nil
}

// Path returns the backing file path.
func (s *SnapshotStore) Path() string { return s.path }

// Load reads the snapshot. A missing file returns (nil, nil); a present but
// undecodable file returns a CorruptSnapshotError so the caller can fall
// back to the journal.
func (s *SnapshotStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &CorruptSnapshotError{Path: s.path, Err: err}
	}
	if snap.Positions == nil {
		return nil, &CorruptSnapshotError{Path: s.path, Err: fmt.Errorf("missing positions")}
	}
	return &snap, nil
}

// Save overwrites the snapshot in full. Last writer wins; there is no
// write-ahead step here, recovery of a torn commit happens in Engine.Recover.
func (s *SnapshotStore) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: encode snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("ledger: write snapshot: %w", err)
	}
	return nil
}
