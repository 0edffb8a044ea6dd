package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
)

// TimestampLayouts are tried in order when parsing ledger times. Month-first
// layouts come before day-first ones, so an ambiguous "03/04/2019" is read as
// March 4th.
var TimestampLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04",
	"2/1/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ledgerRow mirrors the platform's trade list export. Numbers are kept as
// strings because the export uses thousands separators.
type ledgerRow struct {
	Symbol  string `csv:"Symbol"`
	Trade   string `csv:"Trade"`
	Date    string `csv:"Date"`
	Price   string `csv:"Price"`
	ExDate  string `csv:"Ex. Date"`
	ExPrice string `csv:"Ex. Price"`
	Profit  string `csv:"Profit"`
	Shares  string `csv:"Shares"`
}

var requiredLedgerColumns = []string{"Symbol", "Trade", "Date", "Price", "Ex. Date", "Ex. Price", "Profit", "Shares"}

// headerAliases maps alternate spellings found in older exports.
var headerAliases = map[string]string{
	"Ex.Date":  "Ex. Date",
	"Ex.Price": "Ex. Price",
}

// SkippedRow records a ledger row that was dropped during ingestion.
type SkippedRow struct {
	Line int
	Err  error
}

// LoadReport describes what LoadTrades kept and dropped.
type LoadReport struct {
	Rows    int
	Skipped []SkippedRow
}

// ParseTimestamp parses a ledger time using TimestampLayouts in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range TimestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, s)
}

func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(s, 64)
}

// LoadTradesFile opens path and calls LoadTrades.
func LoadTradesFile(path string, loc *time.Location, log *zap.SugaredLogger) ([]TradeRecord, *LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return LoadTrades(f, loc, log)
}

// LoadTrades reads a trade list CSV. Rows with unparseable timestamps or
// numbers, or that fail TradeRecord.Validate, are skipped with a warning and
// listed in the report; only a malformed file (bad header, CSV syntax) is an
// error. Trades are returned sorted by open time.
func LoadTrades(r io.Reader, loc *time.Location, log *zap.SugaredLogger) ([]TradeRecord, *LoadReport, error) {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	in, err := normalizeHeader(r)
	if err != nil {
		return nil, nil, err
	}

	var rows []*ledgerRow
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, &LoadReport{}, nil
		}
		return nil, nil, fmt.Errorf("decode trades: %w", err)
	}

	report := &LoadReport{Rows: len(rows)}
	trades := make([]TradeRecord, 0, len(rows))
	for i, row := range rows {
		line := i + 2 // header is line 1
		t, err := row.toTrade(loc)
		if err == nil {
			err = t.Validate()
		}
		if err != nil {
			log.Warnw("skipping trade row", "line", line, "symbol", row.Symbol, "error", err)
			report.Skipped = append(report.Skipped, SkippedRow{Line: line, Err: err})
			continue
		}
		trades = append(trades, t)
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].OpenTime.Before(trades[j].OpenTime)
	})
	return trades, report, nil
}

func (row *ledgerRow) toTrade(loc *time.Location) (TradeRecord, error) {
	dir, err := ParseDirection(row.Trade)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("%w: %v", ErrInvalidTrade, err)
	}
	open, err := ParseTimestamp(row.Date, loc)
	if err != nil {
		return TradeRecord{}, err
	}
	closeT, err := ParseTimestamp(row.ExDate, loc)
	if err != nil {
		return TradeRecord{}, err
	}

	var nums [4]float64
	for i, s := range []string{row.Price, row.ExPrice, row.Profit, row.Shares} {
		v, err := parseNumber(s)
		if err != nil {
			return TradeRecord{}, fmt.Errorf("%w: number %q", ErrInvalidTrade, s)
		}
		nums[i] = v
	}

	return TradeRecord{
		Symbol:     strings.TrimSpace(row.Symbol),
		Direction:  dir,
		OpenTime:   open,
		OpenPrice:  nums[0],
		CloseTime:  closeT,
		ClosePrice: nums[1],
		Profit:     nums[2],
		Shares:     nums[3],
	}, nil
}

// normalizeHeader rewrites header aliases and checks required columns.
func normalizeHeader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	if strings.TrimSpace(header) == "" {
		return strings.NewReader(""), nil
	}

	eol := ""
	trimmed := strings.TrimRight(header, "\r\n")
	if len(trimmed) != len(header) {
		eol = header[len(trimmed):]
	}
	trimmed = strings.TrimPrefix(trimmed, "\ufeff")

	cols := strings.Split(trimmed, ",")
	seen := map[string]bool{}
	for i, c := range cols {
		c = strings.Trim(strings.TrimSpace(c), `"`)
		if alias, ok := headerAliases[c]; ok {
			c = alias
		}
		cols[i] = c
		seen[c] = true
	}
	for _, want := range requiredLedgerColumns {
		if !seen[want] {
			return nil, fmt.Errorf("trades csv: missing column %q", want)
		}
	}

	return io.MultiReader(strings.NewReader(strings.Join(cols, ",")+eol), br), nil
}
