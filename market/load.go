package market

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// DateLayouts are tried in order for the Dates column.
var DateLayouts = []string{
	"2/1/2006",
	"2006-01-02",
}

type priceRow struct {
	Dates string `csv:"Dates"`
	Last  string `csv:"PX_LAST"`
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable price date %q", s)
}

// LoadPrices reads a Dates,PX_LAST close series. Unlike the trade ledger,
// a bad price row fails the load: the series must be complete to mark
// positions.
func LoadPrices(r io.Reader, loc *time.Location) (*PriceSeries, error) {
	if loc == nil {
		loc = time.UTC
	}

	var rows []*priceRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, ErrEmptySeries
		}
		return nil, fmt.Errorf("decode prices: %w", err)
	}

	closes := make([]DailyClose, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		d, err := parseDate(row.Dates, loc)
		if err != nil {
			return nil, fmt.Errorf("prices line %d: %w", line, err)
		}
		c, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(row.Last), ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("prices line %d: %w: %q", line, ErrInvalidPrice, row.Last)
		}
		closes = append(closes, DailyClose{Date: d, Close: c})
	}
	return NewPriceSeries(closes)
}

// LoadPricesFile opens path and calls LoadPrices.
func LoadPricesFile(path string, loc *time.Location) (*PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadPrices(f, loc)
}
