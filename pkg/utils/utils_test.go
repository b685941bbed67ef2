package utils_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bingolead/retracement-engine/pkg/utils"
)

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func TestRoundToTickSize(t *testing.T) {
	got := utils.RoundToTickSize(dec(5003.37), dec(0.25))
	if !got.Equal(dec(5003.25)) {
		t.Fatalf("expected 5003.25, got %s", got)
	}
}

func TestCalculateMeanEmpty(t *testing.T) {
	if !utils.CalculateMean(nil).IsZero() {
		t.Fatal("expected zero mean for empty input")
	}
}

func TestCalculateProfitFactor(t *testing.T) {
	pnls := []decimal.Decimal{dec(100), dec(-40), dec(50), dec(-10)}
	got := utils.CalculateProfitFactor(pnls)
	if !got.Equal(dec(3)) {
		t.Fatalf("expected profit factor 3, got %s", got)
	}
}

func TestCalculateProfitFactorNoLosses(t *testing.T) {
	got := utils.CalculateProfitFactor([]decimal.Decimal{dec(50)})
	if !got.Equal(dec(100)) {
		t.Fatalf("expected capped profit factor of 100, got %s", got)
	}
}

func TestCalculateMaxDrawdown(t *testing.T) {
	equity := []decimal.Decimal{dec(1000), dec(1200), dec(900), dec(1100)}
	got := utils.CalculateMaxDrawdown(equity)
	want := dec(300).Div(dec(1200))
	if !got.Equal(want) {
		t.Fatalf("expected drawdown %s, got %s", want, got)
	}
}

func TestCalculateStdDev(t *testing.T) {
	got := utils.CalculateStdDev([]decimal.Decimal{dec(2), dec(4), dec(6)})
	want := dec(2)
	if !got.Equal(want) {
		t.Fatalf("expected stddev %s, got %s", want, got)
	}
}

func TestCalculateStdDevTooFewValues(t *testing.T) {
	if !utils.CalculateStdDev([]decimal.Decimal{dec(1)}).IsZero() {
		t.Fatal("expected zero stddev for fewer than two values")
	}
}

func TestCalculateSharpeRatioRewardsHigherMeanLowerSpread(t *testing.T) {
	steady := []decimal.Decimal{dec(8), dec(10), dec(12), dec(10)}
	volatile := []decimal.Decimal{dec(30), dec(-10), dec(30), dec(-10)}

	steadySharpe := utils.CalculateSharpeRatio(steady, decimal.Zero, 1)
	volatileSharpe := utils.CalculateSharpeRatio(volatile, decimal.Zero, 1)

	if steadySharpe.LessThanOrEqual(volatileSharpe) {
		t.Fatalf("expected steady returns to score higher Sharpe than volatile ones: steady=%s volatile=%s", steadySharpe, volatileSharpe)
	}
}

func TestCalculateSharpeRatioZeroStdDev(t *testing.T) {
	got := utils.CalculateSharpeRatio([]decimal.Decimal{dec(5), dec(5)}, decimal.Zero, 1)
	if !got.IsZero() {
		t.Fatalf("expected zero Sharpe ratio when returns have no variance, got %s", got)
	}
}

func TestParseTimeRange(t *testing.T) {
	d, err := utils.ParseTimeRange("4h")
	if err != nil {
		t.Fatalf("ParseTimeRange: %v", err)
	}
	if d != 4*time.Hour {
		t.Fatalf("expected 4h, got %s", d)
	}
}

func TestParseTimeRangeInvalidUnit(t *testing.T) {
	if _, err := utils.ParseTimeRange("4x"); err == nil {
		t.Fatal("expected an error for an unknown unit")
	}
}

func TestClampDecimal(t *testing.T) {
	got := utils.ClampDecimal(dec(15), dec(0), dec(10))
	if !got.Equal(dec(10)) {
		t.Fatalf("expected clamp to 10, got %s", got)
	}
}

func TestGenerateOrderIDHasPrefix(t *testing.T) {
	id := utils.GenerateOrderID()
	if len(id) < 5 || id[:4] != "ord_" {
		t.Fatalf("expected ord_ prefix, got %s", id)
	}
}
