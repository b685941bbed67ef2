// Package ladder holds the static price-level ladder a retracement
// strategy trades against, and the per-level retrace annotations it
// accumulates as price crosses each rung.
package ladder

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Retrace records the direction price last crossed a given level in.
type Retrace int

const (
	// RetraceNone means the level has not been crossed, or its crossing
	// has been consumed by an entry and cleared.
	RetraceNone Retrace = iota
	// RetraceUp means price last crossed the level moving upward.
	RetraceUp
	// RetraceDown means price last crossed the level moving downward.
	RetraceDown
)

func (r Retrace) String() string {
	switch r {
	case RetraceUp:
		return "up"
	case RetraceDown:
		return "down"
	default:
		return "none"
	}
}

// Ladder is a sorted, immutable set of static price levels plus the
// mutable per-level retrace direction accumulated from bar-to-bar price
// movement.
type Ladder struct {
	levels   []decimal.Decimal
	retraces map[int]Retrace
}

// New builds a Ladder from an unsorted slice of levels, sorting them
// ascending and initializing every level's retrace to RetraceNone.
func New(levels []decimal.Decimal) *Ladder {
	sorted := make([]decimal.Decimal, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	retraces := make(map[int]Retrace, len(sorted))
	for i := range sorted {
		retraces[i] = RetraceNone
	}
	return &Ladder{levels: sorted, retraces: retraces}
}

// Len returns the number of static levels.
func (l *Ladder) Len() int { return len(l.levels) }

// Level returns the price at index idx. Callers must keep idx in range;
// the state machine only ever derives idx from Ladder itself.
func (l *Ladder) Level(idx int) decimal.Decimal { return l.levels[idx] }

// IndexOf returns the index of a level value, or -1 if not present.
// Levels are compared by value, matching the original static_levels.index
// lookup.
func (l *Ladder) IndexOf(level decimal.Decimal) int {
	for i, v := range l.levels {
		if v.Equal(level) {
			return i
		}
	}
	return -1
}

// Retrace returns the retrace direction recorded at idx, or RetraceNone
// if idx is out of range or was never set.
func (l *Ladder) Retrace(idx int) Retrace {
	if r, ok := l.retraces[idx]; ok {
		return r
	}
	return RetraceNone
}

// SetRetrace records the retrace direction at idx.
func (l *Ladder) SetRetrace(idx int, r Retrace) {
	l.retraces[idx] = r
}

// ClearRetrace resets idx to RetraceNone, consuming a prior crossing (done
// after an entry fires off that level's retrace).
func (l *Ladder) ClearRetrace(idx int) {
	l.retraces[idx] = RetraceNone
}

// UpdateCrossings walks every level and records which direction price
// crossed it in, given the current bar's price and the high/low since the
// last observation. A level crossed downward (price <= level < high) is
// marked RetraceDown; crossed upward (price >= level > low) is marked
// RetraceUp. Returns true if any level was crossed this bar, whether or
// not its recorded direction changed.
func (l *Ladder) UpdateCrossings(price, high, low decimal.Decimal) bool {
	crossed := false
	for i, level := range l.levels {
		switch {
		case price.LessThanOrEqual(level) && level.LessThan(high):
			l.retraces[i] = RetraceDown
			crossed = true
		case price.GreaterThanOrEqual(level) && level.GreaterThan(low):
			l.retraces[i] = RetraceUp
			crossed = true
		}
	}
	return crossed
}

// Levels returns a copy of the sorted level slice.
func (l *Ladder) Levels() []decimal.Decimal {
	out := make([]decimal.Decimal, len(l.levels))
	copy(out, l.levels)
	return out
}

// ActiveRetraceCount returns the number of levels whose retrace is not
// RetraceNone, used for diagnostics/logging.
func (l *Ladder) ActiveRetraceCount() int {
	n := 0
	for _, r := range l.retraces {
		if r != RetraceNone {
			n++
		}
	}
	return n
}

// DateRange is a half-open [Start, End) interval of excluded dates.
type DateRange struct {
	Start, End time.Time
}

func (d DateRange) contains(t time.Time) bool {
	return !t.Before(d.Start) && t.Before(d.End)
}

// DateWindow gates when a strategy is permitted to act on a given side
// (long or short), as an optional pre-filter outside the core state
// machine: a [Start, End) trading window with zero or more excluded
// sub-ranges carved out of it.
type DateWindow struct {
	Start, End time.Time
	Excluded   []DateRange
}

// Allows reports whether t falls inside the window and outside every
// excluded sub-range. A zero-value DateWindow (Start and End both zero)
// always allows, matching "no date restriction configured".
func (w DateWindow) Allows(t time.Time) bool {
	if w.Start.IsZero() && w.End.IsZero() {
		return true
	}
	if t.Before(w.Start) || !t.Before(w.End) {
		return false
	}
	for _, ex := range w.Excluded {
		if ex.contains(t) {
			return false
		}
	}
	return true
}
