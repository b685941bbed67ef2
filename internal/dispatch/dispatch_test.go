package dispatch_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bingolead/retracement-engine/internal/dispatch"
	"github.com/bingolead/retracement-engine/internal/strategy"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func newStrategy(t *testing.T, name string) *strategy.LevelRetracementStrategy {
	t.Helper()
	s, err := strategy.New(strategy.Config{
		Name:                  name,
		EntryOffsetTicks:      4,
		TakeProfitOffsetTicks: 40,
		StopLossOffsetTicks:   20,
		TrailTrigger:          2,
		ReEntryDistance:       1,
		MaxOpenTrades:         1,
		MaxContractsPerTrade:  1,
		SymbolSize:            decimal.NewFromInt(50),
		IsTradingLong:         true,
	}, nil, nil, nil)
	if err != nil {
		t.Fatalf("strategy.New: %v", err)
	}
	s.LoadLevels([]decimal.Decimal{dec(495), dec(500), dec(505), dec(510)})
	return s
}

func TestFirstBarOnlyPrimesLastPrice(t *testing.T) {
	s := newStrategy(t, "only")
	d := dispatch.New([]*strategy.LevelRetracementStrategy{s}, nil)

	d.Ingest(context.Background(), dispatch.Bar{Open: dec(500), High: dec(505), Low: dec(495), Close: dec(500)})

	if s.State().OpenTradeCount != 0 {
		t.Fatalf("expected no dispatch on the first bar, got %d open trades", s.State().OpenTradeCount)
	}
}

func TestDispatchesToEveryStrategyInOrder(t *testing.T) {
	s1 := newStrategy(t, "first")
	s2 := newStrategy(t, "second")
	d := dispatch.New([]*strategy.LevelRetracementStrategy{s1, s2}, nil)
	ctx := context.Background()

	d.Ingest(ctx, dispatch.Bar{Open: dec(500), High: dec(505), Low: dec(495), Close: dec(500)})
	d.Ingest(ctx, dispatch.Bar{Open: dec(500), High: dec(503), Low: dec(498), Close: dec(501)})

	order := d.Strategies()
	if len(order) != 2 || order[0].Name() != "first" || order[1].Name() != "second" {
		t.Fatalf("unexpected registration order: %v", order)
	}
	for _, s := range []*strategy.LevelRetracementStrategy{s1, s2} {
		if !s.State().Price.Equal(dec(501)) || !s.State().LastPrice.Equal(dec(500)) {
			t.Fatalf("strategy %s did not receive the second bar: price=%s prev=%s", s.Name(), s.State().Price, s.State().LastPrice)
		}
	}
}

func TestReadyReflectsRegisteredStrategies(t *testing.T) {
	empty := dispatch.New(nil, nil)
	if empty.Ready() {
		t.Fatal("expected an empty dispatcher to report not ready")
	}

	withOne := dispatch.New([]*strategy.LevelRetracementStrategy{newStrategy(t, "x")}, nil)
	if !withOne.Ready() {
		t.Fatal("expected a dispatcher with one strategy to report ready")
	}
}
