package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Gate serialises settlements per signature: at most one caller holds a
// signature's slot at a time, and acquisition is context-aware so an
// indefinitely held lock can be given a deadline by the caller. Waiters are
// served in best-effort FIFO order, not a strict queue.
//
// Mutual exclusion is in-process. The sentinel file written alongside each
// portfolio only advertises the current holder for external observers; it is
// not what enforces the lock.
type Gate struct {
	mu    sync.Mutex
	slots map[string]chan struct{}

	// sentinelFor maps a signature to its lock sentinel path; nil disables
	// sentinel writes.
	sentinelFor func(signature string) string
}

// NewGate returns a gate with no sentinel files.
func NewGate() *Gate {
	return &Gate{slots: make(map[string]chan struct{})}
}

// NewGateWithSentinel returns a gate that records the holder token at the
// path sentinelFor yields for each signature.
func NewGateWithSentinel(sentinelFor func(signature string) string) *Gate {
	g := NewGate()
	g.sentinelFor = sentinelFor
	return g
}

type sentinel struct {
	Owner      string `json:"owner"`
	PID        int    `json:"pid"`
	AcquiredAt string `json:"acquired_at"`
}

// Acquire blocks until the signature's slot is free or ctx is done. On
// success it returns a release function; the caller must invoke it exactly
// once. On context expiry the error wraps ErrLockUnavailable.
func (g *Gate) Acquire(ctx context.Context, signature string) (func(), error) {
	g.mu.Lock()
	slot, ok := g.slots[signature]
	if !ok {
		slot = make(chan struct{}, 1)
		g.slots[signature] = slot
	}
	g.mu.Unlock()

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w for %s: %v", ErrLockUnavailable, signature, ctx.Err())
	}

	g.writeSentinel(signature)
	var once sync.Once
	release := func() {
		once.Do(func() {
			g.clearSentinel(signature)
			<-slot
		})
	}
	return release, nil
}

func (g *Gate) writeSentinel(signature string) {
	if g.sentinelFor == nil {
		return
	}
	data, err := json.Marshal(sentinel{
		Owner:      ulid.Make().String(),
		PID:        os.Getpid(),
		AcquiredAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	// Observability only: a failed sentinel write never blocks a settlement.
	_ = os.WriteFile(g.sentinelFor(signature), append(data, '\n'), 0o644)
}

func (g *Gate) clearSentinel(signature string) {
	if g.sentinelFor == nil {
		return
	}
	_ = os.WriteFile(g.sentinelFor(signature), nil, 0o644)
}
