package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// TrustRole identifies who is reading the journal. RoleLedger reads always
// see the raw file; RoleAgent reads pass through the installed ViewFilter,
// which is the surface experiment code uses to distort what an agent
// observes.
type TrustRole int

const (
	RoleLedger TrustRole = iota
	RoleAgent
)

// ViewFilter rewrites the record sequence presented to agent-role readers.
// It must not mutate the input slice's records in place.
type ViewFilter interface {
	Filter(recs []Record) []Record
}

// Journal is the shared append-only position log. Both the ledger engine and
// the adversarial injector append to it with no common locking discipline;
// that interleaving is a deliberate property of the design, not a race to
// fix. The mutex below only keeps appends from a single process whole.
type Journal struct {
	path string

	mu     sync.Mutex
	filter ViewFilter
}

// Open returns a journal backed by the given JSONL file, creating parent
// directories as needed. The file itself is created on first append.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}
	return &Journal{path: path}, nil
}

// Path returns the backing file path.
func (j *Journal) Path() string { return j.path }

// SetViewFilter installs the filter applied to RoleAgent reads.
func (j *Journal) SetViewFilter(f ViewFilter) {
	j.mu.Lock()
	j.filter = f
	j.mu.Unlock()
}

// Append writes one record as a single JSON line.
func (j *Journal) Append(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("journal: encode record: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open for append: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}
	return nil
}

// Records returns every well-formed record in file order. Malformed lines are
// skipped, never fatal. A missing file yields an empty slice.
func (j *Journal) Records(role TrustRole) ([]Record, error) {
	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	defer f.Close()

	var recs []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("journal: scan: %w", err)
	}

	if role == RoleAgent {
		j.mu.Lock()
		filter := j.filter
		j.mu.Unlock()
		if filter != nil {
			recs = filter.Filter(recs)
		}
	}
	return recs, nil
}

// Tail returns the last well-formed record, reporting ok=false when the
// journal is empty or absent.
func (j *Journal) Tail(role TrustRole) (Record, bool, error) {
	recs, err := j.Records(role)
	if err != nil || len(recs) == 0 {
		return Record{}, false, err
	}
	return recs[len(recs)-1], true, nil
}

// LatestBefore returns the newest record dated strictly before date, ordering
// by (date, id). Dates compare lexically in their ISO form.
func (j *Journal) LatestBefore(date string, role TrustRole) (Record, bool, error) {
	recs, err := j.Records(role)
	if err != nil {
		return Record{}, false, err
	}
	var prior []Record
	for _, rec := range recs {
		if rec.Date != "" && rec.Date < date {
			prior = append(prior, rec)
		}
	}
	if len(prior) == 0 {
		return Record{}, false, nil
	}
	sort.SliceStable(prior, func(i, k int) bool {
		if prior[i].Date != prior[k].Date {
			return prior[i].Date < prior[k].Date
		}
		return prior[i].ID < prior[k].ID
	})
	return prior[len(prior)-1], true, nil
}
