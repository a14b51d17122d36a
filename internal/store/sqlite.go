package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ducminhle1904/regime-backtester/internal/backtest"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	created_at       INTEGER NOT NULL,
	strategy         TEXT NOT NULL,
	regime           TEXT NOT NULL DEFAULT '',
	regime_mode      TEXT NOT NULL DEFAULT '',
	params           TEXT NOT NULL DEFAULT '{}',
	risk_fraction    REAL NOT NULL,
	stop_multiplier  REAL NOT NULL,
	initial_capital  REAL NOT NULL,
	final_equity     REAL NOT NULL,
	total_return     REAL NOT NULL,
	max_drawdown     REAL NOT NULL,
	sharpe_ratio     REAL,
	win_rate         REAL NOT NULL,
	profit_factor    REAL,
	total_trades     INTEGER NOT NULL,
	skipped          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy);
`

const insertRun = `
INSERT OR REPLACE INTO runs
(id, created_at, strategy, regime, regime_mode, params, risk_fraction, stop_multiplier,
 initial_capital, final_equity, total_return, max_drawdown, sharpe_ratio, win_rate,
 profit_factor, total_trades, skipped)
VALUES
(:id, :created_at, :strategy, :regime, :regime_mode, :params, :risk_fraction, :stop_multiplier,
 :initial_capital, :final_equity, :total_return, :max_drawdown, :sharpe_ratio, :win_rate,
 :profit_factor, :total_trades, :skipped)`

// runRow is the on-disk schema
type runRow struct {
	ID             string          `db:"id"`
	CreatedAt      int64           `db:"created_at"` // Unix ms
	Strategy       string          `db:"strategy"`
	Regime         string          `db:"regime"`
	RegimeMode     string          `db:"regime_mode"`
	Params         string          `db:"params"`
	RiskFraction   float64         `db:"risk_fraction"`
	StopMultiplier float64         `db:"stop_multiplier"`
	InitialCapital float64         `db:"initial_capital"`
	FinalEquity    float64         `db:"final_equity"`
	TotalReturn    float64         `db:"total_return"`
	MaxDrawdown    float64         `db:"max_drawdown"`
	SharpeRatio    sql.NullFloat64 `db:"sharpe_ratio"`
	WinRate        float64         `db:"win_rate"`
	ProfitFactor   sql.NullFloat64 `db:"profit_factor"`
	TotalTrades    int             `db:"total_trades"`
	Skipped        int             `db:"skipped"`
}

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and creates
// the runs table when missing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts or replaces a run summary.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec RunRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, insertRun, row)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", rec.ID, err)
	}
	return nil
}

// SaveSweep stores every successful sweep result in one transaction
func (s *SQLiteStore) SaveSweep(ctx context.Context, report *backtest.SweepReport) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	saved := 0
	for _, res := range report.Results {
		if res.Error != nil || res.Results == nil {
			continue
		}
		row, err := toRow(NewRunRecord(res.ID, res.Results, res.Params, res.Risk))
		if err != nil {
			return 0, err
		}
		if _, err := tx.NamedExecContext(ctx, insertRun, row); err != nil {
			return 0, fmt.Errorf("saving sweep run %s: %w", res.ID, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return saved, nil
}

// GetRun retrieves a single run by its ID; sql.ErrNoRows when absent.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var row runRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, id); err != nil {
		return nil, err
	}
	rec, err := fromRow(row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRuns returns runs ordered by total return, best first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := `SELECT * FROM runs`
	var args []any
	if filter.Strategy != "" {
		query += ` WHERE strategy = ?`
		args = append(args, filter.Strategy)
	}
	query += ` ORDER BY total_return DESC, max_drawdown ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	out := make([]RunRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toRow(rec RunRecord) (runRow, error) {
	params := rec.Params
	if params == nil {
		params = map[string]any{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return runRow{}, fmt.Errorf("encoding params of run %s: %w", rec.ID, err)
	}

	return runRow{
		ID:             rec.ID,
		CreatedAt:      rec.CreatedAt.UnixMilli(),
		Strategy:       rec.Strategy,
		Regime:         rec.Regime,
		RegimeMode:     rec.RegimeMode,
		Params:         string(encoded),
		RiskFraction:   rec.Risk.RiskFraction,
		StopMultiplier: rec.Risk.StopMultiplier,
		InitialCapital: rec.InitialCapital,
		FinalEquity:    rec.FinalEquity,
		TotalReturn:    rec.TotalReturn,
		MaxDrawdown:    rec.MaxDrawdown,
		SharpeRatio:    nullable(rec.SharpeRatio),
		WinRate:        rec.WinRate,
		ProfitFactor:   nullable(rec.ProfitFactor),
		TotalTrades:    rec.TotalTrades,
		Skipped:        rec.Skipped,
	}, nil
}

func fromRow(row runRow) (RunRecord, error) {
	var params map[string]any
	if err := json.Unmarshal([]byte(row.Params), &params); err != nil {
		return RunRecord{}, fmt.Errorf("decoding params of run %s: %w", row.ID, err)
	}

	rec := RunRecord{
		ID:             row.ID,
		CreatedAt:      time.UnixMilli(row.CreatedAt).UTC(),
		Strategy:       row.Strategy,
		Regime:         row.Regime,
		RegimeMode:     row.RegimeMode,
		Params:         params,
		InitialCapital: row.InitialCapital,
		FinalEquity:    row.FinalEquity,
		TotalReturn:    row.TotalReturn,
		MaxDrawdown:    row.MaxDrawdown,
		SharpeRatio:    row.SharpeRatio.Float64,
		WinRate:        row.WinRate,
		ProfitFactor:   math.Inf(1),
		TotalTrades:    row.TotalTrades,
		Skipped:        row.Skipped,
	}
	rec.Risk.RiskFraction = row.RiskFraction
	rec.Risk.StopMultiplier = row.StopMultiplier
	if row.ProfitFactor.Valid {
		rec.ProfitFactor = row.ProfitFactor.Float64
	}
	return rec, nil
}

// nullable maps non-finite values to NULL
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
