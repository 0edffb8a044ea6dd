package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
)

const runColumns = `
	run_id, created, trades_path, prices_path, config, start_date, end_date,
	trades, skipped, days, wins, losses,
	net_pl, win_rate, max_dd_pct, max_dd_days, k_ratio, gpr, expectancy,
	hhi_daily, hhi_trade, mc90_mdd_pct, mc90_car_mdd, mc50_end_equity, mc_iterations,
	org_path, notes`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var notes string
	err := s.Scan(
		&r.RunID, &r.Created, &r.TradesPath, &r.PricesPath, &r.Config, &r.Start, &r.End,
		&r.Trades, &r.Skipped, &r.Days, &r.Wins, &r.Losses,
		&r.NetPL, &r.WinRate, &r.MaxDDPct, &r.MaxDDDays, &r.KRatio, &r.GPR, &r.Expectancy,
		&r.HHIDaily, &r.HHITrade, &r.MC90MDDPct, &r.MC90CARMDD, &r.MC50EndEq, &r.MCIteration,
		&r.OrgPath, &notes,
	)
	if err != nil {
		return Run{}, err
	}
	if notes != "" {
		r.Notes = strings.Split(notes, "\n")
	}
	return r, nil
}

// GetRun returns a single run summary by ID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
		}
		return Run{}, err
	}
	return r, nil
}

// ListRuns returns every run, newest first.
func (j *SQLite) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDaily returns a run's daily PnL series ordered by date.
func (j *SQLite) ListDaily(ctx context.Context, runID string) ([]DailyPnL, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT date, pnl
		FROM daily_pnl
		WHERE run_id = ?
		ORDER BY date ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyPnL
	for rows.Next() {
		var d DailyPnL
		if err := rows.Scan(&d.Date, &d.PnL); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMetrics returns a run's metric rows in recorded order. NULL values
// (NaN when written) come back as NaN.
func (j *SQLite) ListMetrics(ctx context.Context, runID string) ([]MetricRow, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT name, value
		FROM risk_metrics
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MetricRow
	for rows.Next() {
		var m MetricRow
		var v sql.NullFloat64
		if err := rows.Scan(&m.Name, &v); err != nil {
			return nil, err
		}
		m.Value = nullNaN(v)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPercentiles returns a run's percentile tables in recorded order.
func (j *SQLite) ListPercentiles(ctx context.Context, runID string) ([]PercentileRow, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT series, year, metric, percentile, value
		FROM percentiles
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PercentileRow
	for rows.Next() {
		var p PercentileRow
		var v sql.NullFloat64
		if err := rows.Scan(&p.Series, &p.Year, &p.Metric, &p.Percentile, &v); err != nil {
			return nil, err
		}
		p.Value = nullNaN(v)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
