package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bingolead/retracement-engine/internal/hours"
	"github.com/bingolead/retracement-engine/internal/ladder"
	"github.com/bingolead/retracement-engine/internal/strategy"
)

// BuildStrategyConfig converts one YAML strategy definition into the
// strategy.Config and static ladder levels New/LoadLevels expect. The
// date window applied is long_date_ranges or short_date_ranges depending
// on is_trading_long, since one strategy instance trades a single side.
func (d StrategyDefinition) BuildStrategyConfig() (strategy.Config, []decimal.Decimal, error) {
	if d.Name == "" {
		return strategy.Config{}, nil, fmt.Errorf("config: strategy definition missing name")
	}
	if len(d.StaticLevels) == 0 {
		return strategy.Config{}, nil, fmt.Errorf("config: strategy %s has no static_levels", d.Name)
	}

	levels := make([]decimal.Decimal, len(d.StaticLevels))
	for i, v := range d.StaticLevels {
		levels[i] = decimal.NewFromFloat(v)
	}

	window, err := d.dateWindow()
	if err != nil {
		return strategy.Config{}, nil, fmt.Errorf("config: strategy %s: %w", d.Name, err)
	}

	earlyClose := hours.EarlyClose{}
	for date, hm := range d.EarlyCloseCalendar {
		earlyClose[date] = hm
	}

	cfg := strategy.Config{
		Name:                  d.Name,
		EntryOffsetTicks:      d.EntryOffset,
		TakeProfitOffsetTicks: d.TakeProfitOffset,
		StopLossOffsetTicks:   d.StopLossOffset,
		TrailTrigger:          d.TrailTrigger,
		ReEntryDistance:       d.ReEntryDistance,
		MaxOpenTrades:         d.MaxOpenTrades,
		MaxContractsPerTrade:  d.MaxContractsPerTrade,
		SymbolSize:            decimal.NewFromFloat(d.SymbolSize),
		IsTradingLong:         d.IsTradingLong,
		UseTradingHours:       d.UseTradingHours,
		EarlyCloseCalendar:    earlyClose,
		DateWindow:            window,
		MinEntryInterval:      d.MinEntryInterval,
	}
	return cfg, levels, nil
}

func (d StrategyDefinition) dateWindow() (ladder.DateWindow, error) {
	ranges := d.ShortDateRanges
	if d.IsTradingLong {
		ranges = d.LongDateRanges
	}
	if len(ranges) == 0 {
		return ladder.DateWindow{}, nil
	}

	// Only the first range supplies Start/End; any additional ranges are
	// folded in as excluded sub-windows, matching the original's
	// "trading window plus excluded holidays" shape.
	start, err := parseDate(ranges[0].Start)
	if err != nil {
		return ladder.DateWindow{}, err
	}
	end, err := parseDate(ranges[0].End)
	if err != nil {
		return ladder.DateWindow{}, err
	}

	window := ladder.DateWindow{Start: start, End: end}
	for _, r := range ranges[1:] {
		exStart, err := parseDate(r.Start)
		if err != nil {
			return ladder.DateWindow{}, err
		}
		exEnd, err := parseDate(r.End)
		if err != nil {
			return ladder.DateWindow{}, err
		}
		window.Excluded = append(window.Excluded, ladder.DateRange{Start: exStart, End: exEnd})
	}
	return window, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
