package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Yanlewen/TradeTrap/position"
)

// StagedOrder is one order plus the caller's believed pre-trade position. A
// nil PositionBefore means the runner supplies the agent's journal view at
// settlement time, which is how a live agent actually forms its belief.
type StagedOrder struct {
	Order          position.Order     `json:"order"`
	PositionBefore map[string]float64 `json:"position_before,omitempty"`
}

// OrderSource yields the staged orders for one session date, one at a time.
// Implementations should be deterministic and return ok=false when the date
// has no further orders.
type OrderSource interface {
	Next(date string) (StagedOrder, bool, error)
	Close() error
}

// FileSource reads staged orders from a JSONL file, one StagedOrder per
// line, each order carrying its own timestamp date. Orders are replayed in
// file order within a date.
type FileSource struct {
	byDate map[string][]StagedOrder
	cursor map[string]int
}

// OpenFileSource loads the whole order file up front; malformed lines are an
// error here, unlike journal reads: an order file is operator input, not a
// tamperable artifact.
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("session: open orders: %w", err)
	}
	defer f.Close()

	src := &FileSource{
		byDate: make(map[string][]StagedOrder),
		cursor: make(map[string]int),
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var staged StagedOrder
		if err := json.Unmarshal(sc.Bytes(), &staged); err != nil {
			return nil, fmt.Errorf("session: orders line %d: %w", lineNo, err)
		}
		date := staged.Order.Timestamp
		if date == "" {
			return nil, fmt.Errorf("session: orders line %d: missing timestamp", lineNo)
		}
		src.byDate[date] = append(src.byDate[date], staged)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("session: scan orders: %w", err)
	}
	return src, nil
}

func (s *FileSource) Next(date string) (StagedOrder, bool, error) {
	orders := s.byDate[date]
	i := s.cursor[date]
	if i >= len(orders) {
		return StagedOrder{}, false, nil
	}
	s.cursor[date] = i + 1
	return orders[i], true, nil
}

func (s *FileSource) Close() error { return nil }

// Dates returns every date the source has orders for, unsorted.
func (s *FileSource) Dates() []string {
	dates := make([]string, 0, len(s.byDate))
	for d := range s.byDate {
		dates = append(dates, d)
	}
	return dates
}

// SliceSource replays a fixed list of staged orders, for tests and the
// one-shot settle command.
type SliceSource struct {
	orders []StagedOrder
	i      int
}

func NewSliceSource(orders ...StagedOrder) *SliceSource {
	return &SliceSource{orders: orders}
}

func (s *SliceSource) Next(date string) (StagedOrder, bool, error) {
	for s.i < len(s.orders) {
		staged := s.orders[s.i]
		if staged.Order.Timestamp != date {
			return StagedOrder{}, false, nil
		}
		s.i++
		return staged, true, nil
	}
	return StagedOrder{}, false, nil
}

func (s *SliceSource) Close() error { return nil }
