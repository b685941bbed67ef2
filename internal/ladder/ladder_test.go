// Package ladder_test provides tests for the static level ladder.
package ladder_test

import (
	"testing"
	"time"

	"github.com/bingolead/retracement-engine/internal/ladder"
	"github.com/shopspring/decimal"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestNewSortsLevels(t *testing.T) {
	l := ladder.New([]decimal.Decimal{dec(100), dec(50), dec(75)})
	if l.Level(0).String() != "50" || l.Level(1).String() != "75" || l.Level(2).String() != "100" {
		t.Fatalf("levels not sorted: %v", l.Levels())
	}
}

func TestUpdateCrossingsDownThenUp(t *testing.T) {
	l := ladder.New([]decimal.Decimal{dec(100)})

	// Price drops through 100 from above: price<=level<high
	crossed := l.UpdateCrossings(dec(99), dec(101), dec(99))
	if !crossed {
		t.Fatal("expected a crossing")
	}
	if l.Retrace(0) != ladder.RetraceDown {
		t.Errorf("expected RetraceDown, got %v", l.Retrace(0))
	}

	// Price rises back through 100: price>=level>low
	l.UpdateCrossings(dec(101), dec(101), dec(99))
	if l.Retrace(0) != ladder.RetraceUp {
		t.Errorf("expected RetraceUp, got %v", l.Retrace(0))
	}
}

func TestClearRetrace(t *testing.T) {
	l := ladder.New([]decimal.Decimal{dec(100)})
	l.SetRetrace(0, ladder.RetraceDown)
	l.ClearRetrace(0)
	if l.Retrace(0) != ladder.RetraceNone {
		t.Errorf("expected RetraceNone after clear, got %v", l.Retrace(0))
	}
}

func TestIndexOf(t *testing.T) {
	l := ladder.New([]decimal.Decimal{dec(10), dec(20), dec(30)})
	if idx := l.IndexOf(dec(20)); idx != 1 {
		t.Errorf("expected index 1, got %d", idx)
	}
	if idx := l.IndexOf(dec(999)); idx != -1 {
		t.Errorf("expected -1 for missing level, got %d", idx)
	}
}

func TestDateWindowAllowsWithExclusion(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	excludedStart := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	excludedEnd := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	w := ladder.DateWindow{
		Start:    start,
		End:      end,
		Excluded: []ladder.DateRange{{Start: excludedStart, End: excludedEnd}},
	}

	inside := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	if !w.Allows(inside) {
		t.Error("expected inside-window date to be allowed")
	}

	excluded := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)
	if w.Allows(excluded) {
		t.Error("expected excluded sub-range date to be disallowed")
	}

	outside := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if w.Allows(outside) {
		t.Error("expected outside-window date to be disallowed")
	}
}

func TestZeroValueDateWindowAllowsEverything(t *testing.T) {
	var w ladder.DateWindow
	if !w.Allows(time.Now()) {
		t.Error("expected zero-value DateWindow to allow unconditionally")
	}
}
