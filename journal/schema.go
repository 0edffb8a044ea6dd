// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	trades_path TEXT NOT NULL,
	prices_path TEXT NOT NULL,
	config BLOB,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	trades INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	days INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	net_pl REAL NOT NULL,
	win_rate REAL NOT NULL,
	max_dd_pct REAL NOT NULL,
	max_dd_days INTEGER NOT NULL,
	k_ratio REAL NOT NULL,
	gpr REAL NOT NULL,
	expectancy REAL NOT NULL,
	hhi_daily REAL NOT NULL,
	hhi_trade REAL NOT NULL,
	mc90_mdd_pct REAL NOT NULL,
	mc90_car_mdd REAL NOT NULL,
	mc50_end_equity REAL NOT NULL,
	mc_iterations INTEGER NOT NULL,
	org_path TEXT NOT NULL,
	notes TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_pnl (
	run_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	pnl REAL NOT NULL,
	PRIMARY KEY (run_id, date)
);

CREATE TABLE IF NOT EXISTS risk_metrics (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	name TEXT NOT NULL,
	value REAL,
	PRIMARY KEY (run_id, name)
);

CREATE TABLE IF NOT EXISTS percentiles (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	series TEXT NOT NULL,
	year INTEGER NOT NULL,
	metric TEXT NOT NULL,
	percentile TEXT NOT NULL,
	value REAL,
	PRIMARY KEY (run_id, series, year, metric, percentile)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);
`
