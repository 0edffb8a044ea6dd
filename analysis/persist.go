package analysis

import (
	"fmt"

	"github.com/rustyeddy/pnlrisk/config"
	"github.com/rustyeddy/pnlrisk/journal"
)

// OpenJournal opens the journal the config names. It returns nil for
// type "none".
func OpenJournal(cfg config.JournalConfig) (journal.Journal, error) {
	var (
		j   journal.Journal
		err error
	)
	switch cfg.Type {
	case "csv":
		j, err = journal.NewCSV(cfg.OutputDir)
	case "sqlite":
		j, err = journal.NewSQLite(cfg.DBPath)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s journal: %w", cfg.Type, err)
	}
	return j, nil
}

// Record writes the report's flat outputs to j, then the Org report and the
// metrics textfile when the config names them. A nil j skips the journal.
func (p *Pipeline) Record(rep *Report, j journal.Journal) error {
	if j != nil {
		runID := rep.Run.RunID
		if err := j.RecordRun(rep.Run); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		if err := j.RecordDaily(runID, rep.Attribution.Daily); err != nil {
			return fmt.Errorf("record daily pnl: %w", err)
		}
		if err := j.RecordMetrics(runID, rep.Metrics.Rows()); err != nil {
			return fmt.Errorf("record metrics: %w", err)
		}
		if err := j.RecordPercentiles(runID, rep.PercentileRows()); err != nil {
			return fmt.Errorf("record percentiles: %w", err)
		}
	}

	if rep.Run.OrgPath != "" {
		if err := rep.Run.WriteOrg(); err != nil {
			return fmt.Errorf("write org report: %w", err)
		}
	}
	if path := p.Config.Journal.MetricsFile; path != "" && p.Obs != nil {
		if err := p.Obs.WriteTextfile(path); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}
	return nil
}
