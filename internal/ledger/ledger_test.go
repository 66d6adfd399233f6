package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/joelkehle/offerdraft/internal/offer"
	"github.com/joelkehle/offerdraft/internal/strategy"
)

func newTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedgerRecordsOutcomes(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 17, 9, 0, 0, 0, time.UTC)

	outcomes := []offer.Outcome{
		{GenerationID: "g1", StartedAt: base, StrategyA: strategy.SubjectTo, StrategyB: strategy.AllCash, WeightA: 80, Model: "m", Attempts: 1, Elapsed: 4 * time.Second},
		{GenerationID: "g2", StartedAt: base.Add(time.Minute), StrategyA: strategy.SubjectTo, StrategyB: strategy.AllCash, WeightA: 60, Model: "m", Attempts: 3, Elapsed: 8 * time.Second, Stage: offer.StageOracle, ErrorCode: offer.CodeOracleUnavailable},
		{GenerationID: "g3", StartedAt: base.Add(2 * time.Minute), Stage: offer.StageNormalize, ErrorCode: offer.CodeValidation},
	}
	for _, o := range outcomes {
		if err := l.RecordOutcome(ctx, o); err != nil {
			t.Fatalf("record %s: %v", o.GenerationID, err)
		}
	}

	s, err := l.Summary(ctx, time.Time{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.Total != 3 || s.Succeeded != 1 {
		t.Fatalf("total=%d succeeded=%d", s.Total, s.Succeeded)
	}
	if len(s.Failures) != 2 {
		t.Fatalf("failures=%+v", s.Failures)
	}
	if len(s.TopPairings) != 1 || s.TopPairings[0].Count != 2 || s.TopPairings[0].StrategyA != "SubjectTo" {
		t.Fatalf("pairings=%+v", s.TopPairings)
	}
	if s.AvgAttempts < 1.3 || s.AvgAttempts > 1.4 {
		t.Errorf("avg attempts=%v", s.AvgAttempts)
	}

	recent, err := l.Summary(ctx, base.Add(90*time.Second))
	if err != nil {
		t.Fatalf("summary since: %v", err)
	}
	if recent.Total != 1 {
		t.Errorf("recent total=%d", recent.Total)
	}
}

func TestLedgerOrdersSubSecondStarts(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 17, 9, 0, 0, 0, time.UTC)

	for _, o := range []offer.Outcome{
		{GenerationID: "whole", StartedAt: base},
		{GenerationID: "half", StartedAt: base.Add(500 * time.Millisecond)},
	} {
		if err := l.RecordOutcome(ctx, o); err != nil {
			t.Fatalf("record %s: %v", o.GenerationID, err)
		}
	}

	s, err := l.Summary(ctx, base.Add(250*time.Millisecond))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.Total != 1 {
		t.Fatalf("expected only the later start, total=%d", s.Total)
	}
	if s.LastStartedAt != "2026-02-17T09:00:00.5Z" {
		t.Fatalf("last started at %q", s.LastStartedAt)
	}

	all, err := l.Summary(ctx, base)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if all.Total != 2 {
		t.Fatalf("total=%d", all.Total)
	}
}

func TestLedgerPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.RecordOutcome(context.Background(), offer.Outcome{GenerationID: "g1", StartedAt: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	l.Close()

	l, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l.Close()
	s, err := l.Summary(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.Total != 1 {
		t.Fatalf("total=%d", s.Total)
	}
}
