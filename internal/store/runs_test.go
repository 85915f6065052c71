package store

import (
	"context"
	"testing"
	"time"

	"pm-sandbox/internal/backtest"
	"pm-sandbox/internal/config"
	"pm-sandbox/internal/market"
	"pm-sandbox/internal/risk"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.InitRunSchema(); err != nil {
		t.Fatalf("InitRunSchema failed: %v", err)
	}
	return s
}

func sampleResult() backtest.Result {
	return backtest.Result{
		StrategyName:  "ou_arb",
		InitialCash:   10000,
		FinalCash:     10100,
		FinalEquity:   10100,
		TotalReturn:   0.01,
		TotalTrades:   2,
		WinningTrades: 1,
		MaxDrawdown:   0.02,
		Trades: []backtest.Trade{
			{
				Tick:          3,
				Timestamp:     time.Now(),
				Side:          market.SideBuy,
				Price:         0.40,
				Size:          100,
				Cost:          40,
				PositionAfter: 100,
				CashAfter:     9960,
				Meta:          map[string]any{"routed_by": "router"},
			},
			{
				Tick:          7,
				Side:          market.SideSell,
				Price:         0.45,
				Size:          100,
				Cost:          45,
				CashAfter:     10005,
			},
		},
	}
}

func TestSaveRunAndListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	events := []risk.Event{
		{OccurredAt: time.Now().UTC(), Type: risk.EventReject, Message: "单笔名义超限"},
	}

	runID, err := s.SaveRun(ctx, sampleResult(), events)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if runID == "" {
		t.Fatalf("expected non-empty run id")
	}

	records, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	record := records[0]
	if record.ID != runID || record.StrategyName != "ou_arb" {
		t.Errorf("unexpected record: %+v", record)
	}
	if record.TotalTrades != 2 || record.InitialCash != 10000 {
		t.Errorf("summary fields mismatch: %+v", record)
	}
	if record.CreatedAt.IsZero() {
		t.Errorf("created_at should be parsed")
	}

	var tradeCount int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM backtest_trades WHERE run_id = ?`, runID).Scan(&tradeCount); err != nil {
		t.Fatalf("count trades failed: %v", err)
	}
	if tradeCount != 2 {
		t.Errorf("expected 2 persisted trades, got %d", tradeCount)
	}

	var meta string
	if err := s.DB().QueryRow(`SELECT meta FROM backtest_trades WHERE run_id = ? AND tick = 3`, runID).Scan(&meta); err != nil {
		t.Fatalf("read meta failed: %v", err)
	}
	if meta != `{"routed_by":"router"}` {
		t.Errorf("meta should round-trip as JSON, got %q", meta)
	}

	var eventCount int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM risk_activity_log WHERE run_id = ?`, runID).Scan(&eventCount); err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if eventCount != 1 {
		t.Errorf("expected 1 risk event, got %d", eventCount)
	}
}

func TestListRuns_OrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.SaveRun(ctx, sampleResult(), nil); err != nil {
			t.Fatalf("SaveRun %d failed: %v", i, err)
		}
	}

	records, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("limit should cap results, got %d", len(records))
	}

	all, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns with default limit failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("default limit should return all 3, got %d", len(all))
	}
}
