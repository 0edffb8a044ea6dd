package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

const DateLayout = "2006-01-02"

// Percentile column labels in the order they are written.
var PercentileLabels = []string{"90", "70", "50", "30", "10"}

const (
	SummaryMean = "mean"
	SummaryStd  = "std"
)

type dailyRow struct {
	Date string  `csv:"Date"`
	PnL  float64 `csv:"PnL"`
}

type metricRow struct {
	Name  string `csv:"Name"`
	Value string `csv:"Value"`
}

// percentileRow is one metric of a percentile table, pivoted wide.
type percentileRow struct {
	Metric string `csv:"Metric"`
	P90    string `csv:"90%"`
	P70    string `csv:"70%"`
	P50    string `csv:"50%"`
	P30    string `csv:"30%"`
	P10    string `csv:"10%"`
	Mean   string `csv:"Mean"`
	Std    string `csv:"Std"`
}

type runRow struct {
	RunID      string `csv:"run_id"`
	Created    string `csv:"created"`
	TradesPath string `csv:"trades_path"`
	PricesPath string `csv:"prices_path"`
	Start      string `csv:"start"`
	End        string `csv:"end"`
	Trades     int    `csv:"trades"`
	Skipped    int    `csv:"skipped"`
	Days       int    `csv:"days"`
	Wins       int    `csv:"wins"`
	Losses     int    `csv:"losses"`
	NetPL      string `csv:"net_pl"`
	WinRate    string `csv:"win_rate"`
	MaxDDPct   string `csv:"max_dd_pct"`
	MaxDDDays  int    `csv:"max_dd_days"`
	KRatio     string `csv:"k_ratio"`
	GPR        string `csv:"gpr"`
	Expectancy string `csv:"expectancy"`
	HHIDaily   string `csv:"hhi_daily"`
	HHITrade   string `csv:"hhi_trade"`
	MC90MDDPct string `csv:"mc90_mdd_pct"`
	MC90CARMDD string `csv:"mc90_car_mdd"`
	MC50EndEq  string `csv:"mc50_end_equity"`
	MCIter     int    `csv:"mc_iterations"`
}

// CSVJournal writes each run's outputs into <dir>/<run id>/ and appends a
// summary row to <dir>/runs.csv.
type CSVJournal struct {
	dir string
}

func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &CSVJournal{dir: dir}, nil
}

// RunDir is where a run's files are written.
func (j *CSVJournal) RunDir(runID string) string {
	return filepath.Join(j.dir, runID)
}

func (j *CSVJournal) create(runID, name string) (*os.File, error) {
	dir := j.RunDir(runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(dir, name))
}

func (j *CSVJournal) RecordRun(r Run) error {
	path := filepath.Join(j.dir, "runs.csv")
	_, statErr := os.Stat(path)
	exists := statErr == nil

	fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	rows := []*runRow{toRunRow(r)}
	if exists {
		err = gocsv.MarshalWithoutHeaders(rows, fh)
	} else {
		err = gocsv.Marshal(rows, fh)
	}
	if err != nil {
		fh.Close()
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}
	return fh.Close()
}

func (j *CSVJournal) RecordDaily(runID string, daily []DailyPnL) error {
	fh, err := j.create(runID, "daily_pnl.csv")
	if err != nil {
		return err
	}
	if err := WriteDailyCSV(fh, daily); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func (j *CSVJournal) RecordMetrics(runID string, rows []MetricRow) error {
	fh, err := j.create(runID, "metrics.csv")
	if err != nil {
		return err
	}
	if err := WriteMetricsCSV(fh, rows); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// RecordPercentiles writes one montecarlo_<series>[_<year>].csv per table.
func (j *CSVJournal) RecordPercentiles(runID string, rows []PercentileRow) error {
	for _, key := range tableKeys(rows) {
		name := "montecarlo_" + key.Series
		if key.Year != 0 {
			name += "_" + strconv.Itoa(key.Year)
		}
		fh, err := j.create(runID, name+".csv")
		if err != nil {
			return err
		}
		if err := WritePercentilesCSV(fh, filterTable(rows, key)); err != nil {
			fh.Close()
			return err
		}
		if err := fh.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (j *CSVJournal) Close() error { return nil }

// WriteDailyCSV writes a Date,PnL series.
func WriteDailyCSV(w io.Writer, daily []DailyPnL) error {
	rows := make([]*dailyRow, len(daily))
	for i, d := range daily {
		rows[i] = &dailyRow{Date: d.Date.Format(DateLayout), PnL: d.PnL}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write daily pnl: %w", err)
	}
	return nil
}

// ReadDailyCSV reads a series written by WriteDailyCSV.
func ReadDailyCSV(r io.Reader) ([]DailyPnL, error) {
	var rows []*dailyRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("read daily pnl: %w", err)
	}
	out := make([]DailyPnL, len(rows))
	for i, row := range rows {
		d, err := time.Parse(DateLayout, strings.TrimSpace(row.Date))
		if err != nil {
			return nil, fmt.Errorf("read daily pnl line %d: %w", i+2, err)
		}
		out[i] = DailyPnL{Date: d, PnL: row.PnL}
	}
	return out, nil
}

// LoadDailyFile opens path and calls ReadDailyCSV.
func LoadDailyFile(path string) ([]DailyPnL, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDailyCSV(f)
}

// WriteMetricsCSV writes a Name,Value table.
func WriteMetricsCSV(w io.Writer, rows []MetricRow) error {
	out := make([]*metricRow, len(rows))
	for i, m := range rows {
		out[i] = &metricRow{Name: m.Name, Value: f(m.Value)}
	}
	if err := gocsv.Marshal(out, w); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// WritePercentilesCSV pivots one table's rows to metric x percentile.
// Rows are written in first-seen metric order.
func WritePercentilesCSV(w io.Writer, rows []PercentileRow) error {
	var order []string
	byMetric := map[string]*percentileRow{}
	for _, r := range rows {
		pr, ok := byMetric[r.Metric]
		if !ok {
			pr = &percentileRow{Metric: r.Metric}
			byMetric[r.Metric] = pr
			order = append(order, r.Metric)
		}
		v := f(r.Value)
		switch r.Percentile {
		case "90":
			pr.P90 = v
		case "70":
			pr.P70 = v
		case "50":
			pr.P50 = v
		case "30":
			pr.P30 = v
		case "10":
			pr.P10 = v
		case SummaryMean:
			pr.Mean = v
		case SummaryStd:
			pr.Std = v
		}
	}

	out := make([]*percentileRow, len(order))
	for i, m := range order {
		out[i] = byMetric[m]
	}
	if err := gocsv.Marshal(out, w); err != nil {
		return fmt.Errorf("write percentiles: %w", err)
	}
	return nil
}

type tableKey struct {
	Series string
	Year   int
}

func tableKeys(rows []PercentileRow) []tableKey {
	var keys []tableKey
	seen := map[tableKey]bool{}
	for _, r := range rows {
		k := tableKey{r.Series, r.Year}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func filterTable(rows []PercentileRow, k tableKey) []PercentileRow {
	var out []PercentileRow
	for _, r := range rows {
		if r.Series == k.Series && r.Year == k.Year {
			out = append(out, r)
		}
	}
	return out
}

func toRunRow(r Run) *runRow {
	return &runRow{
		RunID:      r.RunID,
		Created:    r.Created.Format(time.RFC3339),
		TradesPath: r.TradesPath,
		PricesPath: r.PricesPath,
		Start:      r.Start.Format(DateLayout),
		End:        r.End.Format(DateLayout),
		Trades:     r.Trades,
		Skipped:    r.Skipped,
		Days:       r.Days,
		Wins:       r.Wins,
		Losses:     r.Losses,
		NetPL:      f(r.NetPL),
		WinRate:    f(r.WinRate),
		MaxDDPct:   f(r.MaxDDPct),
		MaxDDDays:  r.MaxDDDays,
		KRatio:     f(r.KRatio),
		GPR:        f(r.GPR),
		Expectancy: f(r.Expectancy),
		HHIDaily:   f(r.HHIDaily),
		HHITrade:   f(r.HHITrade),
		MC90MDDPct: f(r.MC90MDDPct),
		MC90CARMDD: f(r.MC90CARMDD),
		MC50EndEq:  f(r.MC50EndEq),
		MCIter:     r.MCIteration,
	}
}

// f formats floats for CSV output; infinities are written as +Inf/-Inf.
func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
