package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists digest history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logrus.Entry
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger logrus.FieldLogger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger.WithField("component", "recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS capm_runs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			trigger_type    TEXT,
			ticker          TEXT NOT NULL,
			benchmark       TEXT,
			risk_free_rate  REAL,
			alpha           REAL,
			beta            REAL,
			r_squared       REAL,
			beta_p_value    REAL,
			expected_return REAL,
			observations    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_capm_ticker_ts ON capm_runs(ticker, timestamp)`,

		`CREATE TABLE IF NOT EXISTS forecast_runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			trigger_type TEXT,
			ticker       TEXT NOT NULL,
			model        TEXT,
			horizon      INTEGER,
			last_date    TEXT,
			end_date     TEXT,
			end_value    REAL,
			end_lower    REAL,
			end_upper    REAL,
			rmse         REAL,
			r_squared    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_forecast_ticker_ts ON forecast_runs(ticker, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// nullable stores NaN and ±Inf as NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nullablePtr(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return nullable(*v)
}

func (r *SQLiteRecorder) RecordCAPM(run *CAPMRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO capm_runs
		(timestamp, trigger_type, ticker, benchmark, risk_free_rate,
		 alpha, beta, r_squared, beta_p_value, expected_return, observations)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		run.RunAt.Unix(), run.Trigger, run.Ticker, run.Benchmark, run.RiskFreeRate,
		nullable(run.Alpha), nullable(run.Beta), nullable(run.RSquared),
		nullable(run.BetaPValue), nullable(run.ExpectedReturn), run.Observations,
	)
	return err
}

func (r *SQLiteRecorder) RecordForecast(run *ForecastRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO forecast_runs
		(timestamp, trigger_type, ticker, model, horizon, last_date, end_date,
		 end_value, end_lower, end_upper, rmse, r_squared)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.RunAt.Unix(), run.Trigger, run.Ticker, run.Model, run.Horizon,
		run.LastDate.Format("2006-01-02"), run.EndDate.Format("2006-01-02"),
		nullable(run.EndValue), nullable(run.EndLower), nullable(run.EndUpper),
		nullablePtr(run.RMSE), nullablePtr(run.RSquared),
	)
	return err
}

// RecentCAPM returns up to limit runs for ticker, newest first.
func (r *SQLiteRecorder) RecentCAPM(ticker string, limit int) ([]CAPMRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT timestamp, trigger_type, ticker, benchmark, risk_free_rate,
		alpha, beta, r_squared, beta_p_value, expected_return, observations
		FROM capm_runs WHERE ticker = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("query capm runs: %w", err)
	}
	defer rows.Close()

	var out []CAPMRun
	for rows.Next() {
		var (
			run                             CAPMRun
			ts                              int64
			alpha, beta, r2, pval, expected sql.NullFloat64
		)
		if err := rows.Scan(&ts, &run.Trigger, &run.Ticker, &run.Benchmark, &run.RiskFreeRate,
			&alpha, &beta, &r2, &pval, &expected, &run.Observations); err != nil {
			return nil, fmt.Errorf("scan capm run: %w", err)
		}
		run.RunAt = time.Unix(ts, 0).UTC()
		run.Alpha, run.Beta, run.RSquared = orNaN(alpha), orNaN(beta), orNaN(r2)
		run.BetaPValue, run.ExpectedReturn = orNaN(pval), orNaN(expected)
		out = append(out, run)
	}
	return out, rows.Err()
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
