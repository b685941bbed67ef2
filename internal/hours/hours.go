// Package hours implements the CME equity-index futures trading calendar:
// the daily close/reopen window, the pre-close flatten window, and optional
// early-close overrides, all evaluated in exchange (America/Chicago) time.
package hours

import (
	"fmt"
	"time"
)

// Standard CME equity-index futures session times, in minutes since
// midnight Chicago local time.
const (
	dailyCloseMinutes  = 16 * 60       // 4:00 PM CT
	dailyReopenMinutes = 17 * 60       // 5:00 PM CT
	flattenLeadMinutes = 20            // flatten 20 minutes before close
)

// EarlyClose maps a "YYYY-MM-DD" date string to an early close time
// (hour, minute), for half-day sessions (day after Thanksgiving, Christmas
// Eve, and similar holiday-adjacent sessions).
type EarlyClose map[string][2]int

// Clock is the trading-hours oracle for one CME product calendar. It holds
// no mutable state past construction and is safe for concurrent use.
type Clock struct {
	location   *time.Location
	earlyClose EarlyClose
}

// NewClock builds a Clock against America/Chicago. earlyClose may be nil.
func NewClock(earlyClose EarlyClose) (*Clock, error) {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		return nil, fmt.Errorf("hours: load America/Chicago: %w", err)
	}
	if earlyClose == nil {
		earlyClose = EarlyClose{}
	}
	return &Clock{location: loc, earlyClose: earlyClose}, nil
}

// inChicago converts t to exchange time. A timestamp with no zone attached
// (the common case for historical bar data fed through the backtester) is
// treated as already being Chicago local time rather than UTC, matching
// the convention the original Python implementation relied on.
func (c *Clock) inChicago(t time.Time) time.Time {
	if t.Location() == time.UTC {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), c.location)
	}
	return t.In(c.location)
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d:00", m/60, m%60)
}

func (c *Clock) closeMinutesFor(t time.Time) int {
	key := t.Format("2006-01-02")
	if hm, ok := c.earlyClose[key]; ok {
		return hm[0]*60 + hm[1]
	}
	return dailyCloseMinutes
}

func (c *Clock) flattenMinutesFor(t time.Time) int {
	return c.closeMinutesFor(t) - flattenLeadMinutes
}

// IsMarketClosed reports whether the exchange is closed at t: all day
// Saturday, Sunday before the 5pm CT reopen, and Mon-Fri between the
// (possibly early) close time and the 5pm CT reopen.
func (c *Clock) IsMarketClosed(t time.Time) bool {
	ct := c.inChicago(t)
	now := minutesOfDay(ct)

	switch ct.Weekday() {
	case time.Saturday:
		return true
	case time.Sunday:
		return now < dailyReopenMinutes
	}

	close := c.closeMinutesFor(ct)
	return now >= close && now < dailyReopenMinutes
}

// ShouldFlattenPositions reports whether t falls in the pre-close flatten
// window (20 minutes before that day's close, up to close itself).
func (c *Clock) ShouldFlattenPositions(t time.Time) bool {
	ct := c.inChicago(t)
	now := minutesOfDay(ct)

	if ct.Weekday() == time.Saturday {
		return false
	}
	if ct.Weekday() == time.Sunday && now < dailyReopenMinutes {
		return false
	}

	flatten := c.flattenMinutesFor(ct)
	close := c.closeMinutesFor(ct)
	return now >= flatten && now < close
}

// IsTradingAllowed reports whether new entries may be taken at t: the
// market must be open and outside the flatten window.
func (c *Clock) IsTradingAllowed(t time.Time) bool {
	return !c.IsMarketClosed(t) && !c.ShouldFlattenPositions(t)
}

// Status describes trading-hours state in the same shape as the original
// get_trading_status: an allowed flag plus a human-readable reason string
// suitable for logging.
type Status struct {
	Allowed bool
	Reason  string
}

var weekdayNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// TradingStatus returns the detailed (allowed, reason) pair for t.
func (c *Clock) TradingStatus(t time.Time) Status {
	ct := c.inChicago(t)
	now := minutesOfDay(ct)

	if ct.Weekday() == time.Saturday {
		return Status{false, "Market closed (Saturday)"}
	}
	if ct.Weekday() == time.Sunday && now < dailyReopenMinutes {
		return Status{false, fmt.Sprintf("Market closed (Sunday, opens at %s)", formatMinutes(dailyReopenMinutes))}
	}

	close := c.closeMinutesFor(ct)
	flatten := c.flattenMinutesFor(ct)

	if now >= close && now < dailyReopenMinutes {
		return Status{false, fmt.Sprintf("Market closed (%s - %s CT)", formatMinutes(close), formatMinutes(dailyReopenMinutes))}
	}
	if now >= flatten && now < close {
		return Status{false, fmt.Sprintf("Flatten window (%s - %s CT)", formatMinutes(flatten), formatMinutes(close))}
	}

	return Status{true, fmt.Sprintf("Trading allowed (%s %s CT)", weekdayNames[ct.Weekday()], ct.Format("15:04:05"))}
}
