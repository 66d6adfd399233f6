// Package ledger records generation outcomes: which strategies were asked
// for, how many oracle attempts it took and how the run ended. It never stores
// property, seller or offer content.
package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/offerdraft/internal/offer"
)

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	generation_id TEXT PRIMARY KEY,
	started_ms    INTEGER NOT NULL,
	strategy_a    TEXT NOT NULL DEFAULT '',
	strategy_b    TEXT NOT NULL DEFAULT '',
	weight_a      REAL NOT NULL DEFAULT 0,
	model         TEXT NOT NULL DEFAULT '',
	attempts      INTEGER NOT NULL DEFAULT 0,
	elapsed_ms    INTEGER NOT NULL DEFAULT 0,
	stage         TEXT NOT NULL DEFAULT '',
	error_code    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS generations_started_ms ON generations (started_ms);
`

type SQLiteLedger struct {
	db *sqlx.DB
}

func Open(dbPath string) (*SQLiteLedger, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) RecordOutcome(ctx context.Context, o offer.Outcome) error {
	_, err := l.db.ExecContext(ctx, `INSERT OR REPLACE INTO generations
		(generation_id, started_ms, strategy_a, strategy_b, weight_a, model, attempts, elapsed_ms, stage, error_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.GenerationID, o.StartedAt.UnixMilli(),
		string(o.StrategyA), string(o.StrategyB), o.WeightA, o.Model,
		o.Attempts, o.Elapsed.Milliseconds(), o.Stage, o.ErrorCode)
	if err != nil {
		return fmt.Errorf("record generation %s: %w", o.GenerationID, err)
	}
	return nil
}

type StrategyCount struct {
	StrategyA string `db:"strategy_a" json:"strategy_a"`
	StrategyB string `db:"strategy_b" json:"strategy_b"`
	Count     int    `db:"n" json:"count"`
}

type CodeCount struct {
	Code  string `db:"error_code" json:"code"`
	Count int    `db:"n" json:"count"`
}

type Summary struct {
	Total         int             `json:"total"`
	Succeeded     int             `json:"succeeded"`
	AvgAttempts   float64         `json:"avg_attempts"`
	AvgElapsedMS  float64         `json:"avg_elapsed_ms"`
	Failures      []CodeCount     `json:"failures"`
	TopPairings   []StrategyCount `json:"top_pairings"`
	LastStartedAt string          `json:"last_started_at,omitempty"`
}

// Summary aggregates outcomes recorded since the given time; a zero time
// covers everything.
func (l *SQLiteLedger) Summary(ctx context.Context, since time.Time) (Summary, error) {
	from := int64(math.MinInt64)
	if !since.IsZero() {
		from = since.UnixMilli()
	}

	var totals struct {
		Total       int     `db:"total"`
		Succeeded   int     `db:"succeeded"`
		AvgAttempts float64 `db:"avg_attempts"`
		AvgElapsed  float64 `db:"avg_elapsed"`
		Last        int64   `db:"last"`
	}
	if err := l.db.GetContext(ctx, &totals, `SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN error_code = '' THEN 1 ELSE 0 END), 0) AS succeeded,
			COALESCE(AVG(attempts), 0) AS avg_attempts,
			COALESCE(AVG(elapsed_ms), 0) AS avg_elapsed,
			COALESCE(MAX(started_ms), 0) AS last
		FROM generations WHERE started_ms >= ?`, from); err != nil {
		return Summary{}, fmt.Errorf("summary totals: %w", err)
	}

	s := Summary{
		Total:        totals.Total,
		Succeeded:    totals.Succeeded,
		AvgAttempts:  totals.AvgAttempts,
		AvgElapsedMS: totals.AvgElapsed,
		Failures:     []CodeCount{},
		TopPairings:  []StrategyCount{},
	}
	if totals.Total > 0 {
		s.LastStartedAt = time.UnixMilli(totals.Last).UTC().Format(time.RFC3339Nano)
	}
	if err := l.db.SelectContext(ctx, &s.Failures, `SELECT error_code, COUNT(*) AS n
		FROM generations WHERE started_ms >= ? AND error_code != ''
		GROUP BY error_code ORDER BY n DESC, error_code`, from); err != nil {
		return Summary{}, fmt.Errorf("summary failures: %w", err)
	}
	if err := l.db.SelectContext(ctx, &s.TopPairings, `SELECT strategy_a, strategy_b, COUNT(*) AS n
		FROM generations WHERE started_ms >= ? AND strategy_a != ''
		GROUP BY strategy_a, strategy_b ORDER BY n DESC, strategy_a, strategy_b LIMIT 5`, from); err != nil {
		return Summary{}, fmt.Errorf("summary pairings: %w", err)
	}
	return s, nil
}
