package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pm-sandbox/internal/backtest"
	"pm-sandbox/internal/risk"
)

// RunRecord 是一次回测运行的落库摘要。核心引擎不依赖存储，
// 落库发生在运行结束之后，由调用方（cmd 层）决定是否持久化。
type RunRecord struct {
	ID           string
	StrategyName string
	InitialCash  float64
	FinalEquity  float64
	TotalReturn  float64
	TotalTrades  int
	MaxDrawdown  float64
	CreatedAt    time.Time
}

// InitRunSchema 创建回测运行相关的表结构。
func (s *Store) InitRunSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id TEXT PRIMARY KEY,
			strategy_name TEXT NOT NULL,
			initial_cash REAL NOT NULL,
			final_equity REAL NOT NULL,
			total_return REAL NOT NULL,
			total_trades INTEGER NOT NULL,
			max_drawdown REAL NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS backtest_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES backtest_runs(id),
			tick INTEGER NOT NULL,
			side TEXT NOT NULL,
			price REAL NOT NULL,
			size REAL NOT NULL,
			cost REAL NOT NULL,
			position_after REAL NOT NULL,
			cash_after REAL NOT NULL,
			meta TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_trades_run ON backtest_trades(run_id);`,
		`CREATE TABLE IF NOT EXISTS risk_activity_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			occurred_at TEXT NOT NULL,
			event_type TEXT NOT NULL,
			message TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_risk_activity_run ON risk_activity_log(run_id);`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("初始化回测表结构失败: %w", err)
		}
	}

	return nil
}

// SaveRun 持久化一次回测结果（摘要、成交明细与风控日志），返回运行 ID。
func (s *Store) SaveRun(ctx context.Context, result backtest.Result, riskEvents []risk.Event) (string, error) {
	runID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("开启事务失败: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO backtest_runs
		 (id, strategy_name, initial_cash, final_equity, total_return, total_trades, max_drawdown, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, result.StrategyName, result.InitialCash, result.FinalEquity,
		result.TotalReturn, result.TotalTrades, result.MaxDrawdown, now,
	)
	if err != nil {
		return "", fmt.Errorf("写入回测摘要失败: %w", err)
	}

	for _, trade := range result.Trades {
		metaJSON := ""
		if trade.Meta != nil {
			if raw, marshalErr := json.Marshal(trade.Meta); marshalErr == nil {
				metaJSON = string(raw)
			}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO backtest_trades
			 (run_id, tick, side, price, size, cost, position_after, cash_after, meta)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, trade.Tick, string(trade.Side), trade.Price, trade.Size,
			trade.Cost, trade.PositionAfter, trade.CashAfter, metaJSON,
		)
		if err != nil {
			return "", fmt.Errorf("写入成交明细失败: %w", err)
		}
	}

	for _, event := range riskEvents {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO risk_activity_log (run_id, occurred_at, event_type, message)
			 VALUES (?, ?, ?, ?)`,
			runID, event.OccurredAt.Format(time.RFC3339), string(event.Type), event.Message,
		)
		if err != nil {
			return "", fmt.Errorf("写入风控日志失败: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("提交事务失败: %w", err)
	}

	return runID, nil
}

// ListRuns 按时间倒序返回最近的回测运行摘要。
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy_name, initial_cash, final_equity, total_return, total_trades, max_drawdown, created_at
		 FROM backtest_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询回测记录失败: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var record RunRecord
		var createdAt string
		if err := rows.Scan(&record.ID, &record.StrategyName, &record.InitialCash,
			&record.FinalEquity, &record.TotalReturn, &record.TotalTrades,
			&record.MaxDrawdown, &createdAt); err != nil {
			return nil, fmt.Errorf("扫描回测记录失败: %w", err)
		}
		if parsed, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
			record.CreatedAt = parsed
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
