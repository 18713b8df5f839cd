package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS records (
	date TEXT NOT NULL,
	id INTEGER NOT NULL,
	action TEXT NOT NULL,
	symbol TEXT NOT NULL,
	amount REAL NOT NULL,
	cash REAL NOT NULL,
	tagged INTEGER NOT NULL,
	raw TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_date ON records(date, id);
`

// Index is a rebuildable SQLite mirror of one journal file, for offline
// queries. It is derived data only; the JSONL file stays authoritative.
type Index struct {
	db *sql.DB
}

// OpenIndex opens (creating if needed) an index database.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

// Rebuild drops and re-ingests every well-formed journal record. flagField is
// the attack flag used to mark rows as tagged. Returns the row count.
func (ix *Index) Rebuild(j *Journal, flagField string) (int, error) {
	recs, err := j.Records(RoleLedger)
	if err != nil {
		return 0, err
	}

	tx, err := ix.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM records`); err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO records (date, id, action, symbol, amount, cash, tagged, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, rec := range recs {
		raw, err := json.Marshal(rec)
		if err != nil {
			return 0, err
		}
		tagged := 0
		if rec.Tagged(flagField) {
			tagged = 1
		}
		cash := 0.0
		if rec.Positions != nil {
			cash = rec.Positions.Cash()
		}
		if _, err := stmt.Exec(rec.Date, rec.ID, rec.ThisAction.Action, rec.ThisAction.Symbol,
			rec.ThisAction.Amount, cash, tagged, string(raw)); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Day returns the records dated exactly date, in id order.
func (ix *Index) Day(date string) ([]Record, error) {
	return ix.query(`SELECT raw FROM records WHERE date = ? ORDER BY id`, date)
}

// Tagged returns every record marked with the attack flag, in (date, id)
// order.
func (ix *Index) Tagged() ([]Record, error) {
	return ix.query(`SELECT raw FROM records WHERE tagged = 1 ORDER BY date, id`)
}

// LastN returns the newest n records by (date, id), oldest first.
func (ix *Index) LastN(n int) ([]Record, error) {
	recs, err := ix.query(`SELECT raw FROM records ORDER BY date DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	for i, k := 0, len(recs)-1; i < k; i, k = i+1, k-1 {
		recs[i], recs[k] = recs[k], recs[i]
	}
	return recs, nil
}

func (ix *Index) query(q string, args ...any) ([]Record, error) {
	rows, err := ix.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("journal: corrupt index row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (ix *Index) Close() error {
	return ix.db.Close()
}
