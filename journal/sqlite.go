package journal

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(r Run) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, created, trades_path, prices_path, config, start_date, end_date,
		 trades, skipped, days, wins, losses,
		 net_pl, win_rate, max_dd_pct, max_dd_days, k_ratio, gpr, expectancy,
		 hhi_daily, hhi_trade, mc90_mdd_pct, mc90_car_mdd, mc50_end_equity, mc_iterations,
		 org_path, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.TradesPath, r.PricesPath, r.Config, r.Start, r.End,
		r.Trades, r.Skipped, r.Days, r.Wins, r.Losses,
		r.NetPL, r.WinRate, r.MaxDDPct, r.MaxDDDays, r.KRatio, r.GPR, r.Expectancy,
		r.HHIDaily, r.HHITrade, r.MC90MDDPct, r.MC90CARMDD, r.MC50EndEq, r.MCIteration,
		r.OrgPath, strings.Join(r.Notes, "\n"),
	)
	return err
}

func (j *SQLite) RecordDaily(runID string, daily []DailyPnL) error {
	return j.insertAll(`INSERT OR REPLACE INTO daily_pnl (run_id, date, pnl) VALUES (?, ?, ?)`,
		len(daily), func(i int) []any {
			return []any{runID, daily[i].Date, daily[i].PnL}
		})
}

func (j *SQLite) RecordMetrics(runID string, rows []MetricRow) error {
	return j.insertAll(`INSERT OR REPLACE INTO risk_metrics (run_id, seq, name, value) VALUES (?, ?, ?, ?)`,
		len(rows), func(i int) []any {
			return []any{runID, i, rows[i].Name, rows[i].Value}
		})
}

func (j *SQLite) RecordPercentiles(runID string, rows []PercentileRow) error {
	return j.insertAll(`
		INSERT OR REPLACE INTO percentiles (run_id, seq, series, year, metric, percentile, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []any {
			r := rows[i]
			return []any{runID, i, r.Series, r.Year, r.Metric, r.Percentile, r.Value}
		})
}

// insertAll runs stmt for n rows in one transaction.
func (j *SQLite) insertAll(stmt string, n int, args func(i int) []any) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	ps, err := tx.Prepare(stmt)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer ps.Close()

	for i := 0; i < n; i++ {
		if _, err := ps.Exec(args(i)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
