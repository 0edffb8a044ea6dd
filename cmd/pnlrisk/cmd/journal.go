package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pnlrisk/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query recorded runs",
	Long: `Query runs recorded in a SQLite journal.

Subcommands:
  runs     - List recorded runs, newest first
  show     - Print a run as an Org-mode report
  daily    - Print a run's daily PnL series
  metrics  - Print a run's risk metrics

Examples:
  pnlrisk journal runs
  pnlrisk journal show 01HQ3Z...
  pnlrisk journal daily 01HQ3Z... > daily_pnl.csv`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a run as an Org-mode report",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalDailyCmd = &cobra.Command{
	Use:   "daily <run-id>",
	Short: "Print a run's daily PnL as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDaily,
}

var journalMetricsCmd = &cobra.Command{
	Use:   "metrics <run-id>",
	Short: "Print a run's risk metrics as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalMetrics,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalDailyCmd)
	journalCmd.AddCommand(journalMetricsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default journal.db_path)")
}

func openJournalDB() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		path = cfg.Journal.DBPath
	}
	if path == "" {
		return nil, fmt.Errorf("no journal database: pass --db or set journal.db_path")
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tSTART\tEND\tDAYS\tNET P/L\tMAX DD %\tK RATIO")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.2f\t%.2f\t%.2f\n",
			r.RunID, r.Created.Format("2006-01-02 15:04"),
			r.Start.Format(journal.DateLayout), r.End.Format(journal.DateLayout),
			r.Days, r.NetPL, r.MaxDDPct*100, r.KRatio)
	}
	return tw.Flush()
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	r, err := j.GetRun(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	s, err := r.FormatOrg()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), s)
	return nil
}

func runJournalDaily(cmd *cobra.Command, args []string) error {
	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	daily, err := j.ListDaily(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("query daily pnl: %w", err)
	}
	return journal.WriteDailyCSV(cmd.OutOrStdout(), daily)
}

func runJournalMetrics(cmd *cobra.Command, args []string) error {
	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	rows, err := j.ListMetrics(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("query metrics: %w", err)
	}
	return journal.WriteMetricsCSV(cmd.OutOrStdout(), rows)
}
