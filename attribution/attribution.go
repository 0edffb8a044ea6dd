// Package attribution turns closed trades into a day-by-day PnL series.
//
// A trade that is open across a session cutoff is marked to the session
// close, so a multi-day trade contributes to every session it overlaps while
// its contributions still sum to its realized profit.
package attribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/pnlrisk/config"
	"github.com/rustyeddy/pnlrisk/internal/logger"
	"github.com/rustyeddy/pnlrisk/internal/observability"
	"github.com/rustyeddy/pnlrisk/journal"
	"github.com/rustyeddy/pnlrisk/market"
)

// ErrMissingPriceData is returned when a trade's open or close falls
// outside the sessions the price series can mark.
var ErrMissingPriceData = errors.New("missing price data")

// ResidualSplit is the share of a boundary trade's residual (realized
// profit minus its mark-to-market move) charged to each boundary day.
// Pending owner confirmation; do not change without sign-off.
const ResidualSplit = 0.5

var residualSplit = decimal.NewFromFloat(ResidualSplit)

// Case classifies how a trade overlaps one session.
type Case int

const (
	Inside     Case = iota + 1 // opens and closes in the session
	CarriesOut                 // opens in the session, closes after it
	CarriesIn                  // opened before the session, closes in it
	Spans                      // open for the whole session
)

func (c Case) String() string {
	switch c {
	case Inside:
		return "inside"
	case CarriesOut:
		return "carries-out"
	case CarriesIn:
		return "carries-in"
	case Spans:
		return "spans"
	}
	return fmt.Sprintf("Case(%d)", int(c))
}

// Leg is the slice of a trade attributed to one session. For boundary
// cases it is the synthetic mark-to-market trade the session books.
type Leg struct {
	Date       time.Time
	Symbol     string
	Direction  journal.Direction
	Case       Case
	OpenTime   time.Time
	OpenPrice  float64
	CloseTime  time.Time
	ClosePrice float64
	Shares     float64
	PnL        float64
}

// Result is the output of one attribution run.
type Result struct {
	Daily   []journal.DailyPnL
	Legs    []Leg // only when Engine.Legs is set
	Skipped int
}

type Engine struct {
	Cutoff  time.Duration
	Workers int
	Legs    bool

	Log *zap.SugaredLogger
	Obs *observability.Metrics
}

// FromConfig builds an engine from the attribution config section.
func FromConfig(cfg config.AttributionConfig) (*Engine, error) {
	cutoff, err := cfg.Cutoff()
	if err != nil {
		return nil, err
	}
	return &Engine{Cutoff: cutoff, Workers: cfg.Workers}, nil
}

type span struct {
	trade      journal.TradeRecord
	open, last int // session indexes
}

// Attribute builds the daily PnL series for every session from the first
// trade's open to the last trade's close. Trades failing Validate are
// skipped with a warning. A trade time outside the series, or on a weekday
// the series has no close for, fails the whole run with ErrMissingPriceData.
func (e *Engine) Attribute(ctx context.Context, trades []journal.TradeRecord, prices *market.PriceSeries) (*Result, error) {
	log := logger.OrNop(e.Log)
	defer e.Obs.ObserveStage("attribution", time.Now())

	res := &Result{}
	if prices == nil || prices.Len() == 0 {
		return nil, fmt.Errorf("%w: empty price series", ErrMissingPriceData)
	}
	cutoff := e.Cutoff
	if cutoff == 0 {
		cutoff = market.DefaultCutoff
	}
	sessions := market.NewSessions(prices, cutoff)

	spans := make([]span, 0, len(trades))
	first, last := -1, -1
	for _, t := range trades {
		if err := t.Validate(); err != nil {
			log.Warnw("skipping trade", "symbol", t.Symbol, "open", t.OpenTime, "error", err)
			e.Obs.IncSkipped("invalid")
			res.Skipped++
			continue
		}
		oi, err := sessions.Resolve(t.OpenTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %s open: %v", ErrMissingPriceData, t.Symbol, err)
		}
		ci, err := sessions.Resolve(t.CloseTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %s close: %v", ErrMissingPriceData, t.Symbol, err)
		}
		spans = append(spans, span{trade: t, open: oi, last: ci})
		if first < 0 || oi < first {
			first = oi
		}
		if ci > last {
			last = ci
		}
	}
	if len(spans) == 0 {
		return res, nil
	}

	n := last - first + 1
	byDay := make([][]int, n)
	for k, s := range spans {
		for i := s.open; i <= s.last; i++ {
			byDay[i-first] = append(byDay[i-first], k)
		}
	}

	daily := make([]journal.DailyPnL, n)
	var legs [][]Leg
	if e.Legs {
		legs = make([][]Leg, n)
	}

	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for d := 0; d < n; d++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			i := first + d
			total := decimal.Zero
			var dayLegs []Leg
			for _, k := range byDay[d] {
				leg := attributeDay(sessions, spans[k], i)
				total = total.Add(leg.pnl)
				if legs != nil {
					leg.Leg.PnL = leg.pnl.InexactFloat64()
					dayLegs = append(dayLegs, leg.Leg)
				}
			}
			daily[d] = journal.DailyPnL{Date: prices.Date(i), PnL: total.InexactFloat64()}
			if legs != nil {
				legs[d] = dayLegs
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Daily = daily
	for _, l := range legs {
		res.Legs = append(res.Legs, l...)
	}
	e.Obs.AddDays(n)
	log.Infow("attributed trades", "trades", len(spans), "skipped", res.Skipped, "days", n)
	return res, nil
}

type dayLeg struct {
	Leg
	pnl decimal.Decimal
}

// attributeDay returns trade s's contribution to session i.
func attributeDay(sessions *market.Sessions, s span, i int) dayLeg {
	t := s.trade
	prices := sessions.Series()
	dir := decimal.NewFromInt(int64(t.Direction))
	shares := decimal.NewFromFloat(t.Shares)
	open := decimal.NewFromFloat(t.OpenPrice)
	exit := decimal.NewFromFloat(t.ClosePrice)
	profit := decimal.NewFromFloat(t.Profit)

	leg := dayLeg{Leg: Leg{
		Date:      prices.Date(i),
		Symbol:    t.Symbol,
		Direction: t.Direction,
		Shares:    t.Shares,
	}}

	// residual is the realized profit not explained by the price move,
	// split between the open and close sessions.
	residual := func() decimal.Decimal {
		move := dir.Mul(exit.Sub(open))
		return move.Sub(profit).Mul(residualSplit)
	}

	switch {
	case s.open == i && s.last == i:
		leg.Case = Inside
		leg.OpenTime, leg.OpenPrice = t.OpenTime, t.OpenPrice
		leg.CloseTime, leg.ClosePrice = t.CloseTime, t.ClosePrice
		leg.pnl = profit.Mul(shares)

	case s.open == i:
		today := decimal.NewFromFloat(prices.Close(i))
		leg.Case = CarriesOut
		leg.OpenTime, leg.OpenPrice = t.OpenTime, t.OpenPrice
		leg.CloseTime, leg.ClosePrice = sessions.DayEnd(i), prices.Close(i)
		leg.pnl = dir.Mul(today.Sub(open)).Sub(residual()).Mul(shares)

	case s.last == i:
		yest := decimal.NewFromFloat(prices.Close(i - 1))
		leg.Case = CarriesIn
		leg.OpenTime, leg.OpenPrice = sessions.DayStart(i), prices.Close(i-1)
		leg.CloseTime, leg.ClosePrice = t.CloseTime, t.ClosePrice
		leg.pnl = dir.Mul(exit.Sub(yest)).Sub(residual()).Mul(shares)

	default:
		today := decimal.NewFromFloat(prices.Close(i))
		yest := decimal.NewFromFloat(prices.Close(i - 1))
		leg.Case = Spans
		leg.OpenTime, leg.OpenPrice = sessions.DayStart(i), prices.Close(i-1)
		leg.CloseTime, leg.ClosePrice = sessions.DayEnd(i), prices.Close(i)
		leg.pnl = dir.Mul(today.Sub(yest)).Mul(shares)
	}
	return leg
}
