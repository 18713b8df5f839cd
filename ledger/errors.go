package ledger

import (
	"errors"
	"fmt"
)

// ErrLockUnavailable wraps a failed gate acquisition: the per-signature lock
// could not be taken before the caller's context expired.
var ErrLockUnavailable = errors.New("ledger: signature lock unavailable")

// CorruptSnapshotError reports a snapshot file that exists but cannot be
// decoded. The engine recovers by tailing the journal; the error is only
// surfaced when that fallback is impossible too.
type CorruptSnapshotError struct {
	Path string
	Err  error
}

func (e *CorruptSnapshotError) Error() string {
	return fmt.Sprintf("ledger: corrupt snapshot %s: %v", e.Path, e.Err)
}

func (e *CorruptSnapshotError) Unwrap() error { return e.Err }
