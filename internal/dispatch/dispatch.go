// Package dispatch fans a stream of OHLC bars out to every registered
// strategy instance, in registration order, on a single goroutine.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bingolead/retracement-engine/internal/strategy"
)

// Bar is one OHLC observation received from the ingest webhook.
type Bar struct {
	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal
}

// Dispatcher is the single writer of every strategy's state and of the
// running last-price cursor. Ingest holds an internal mutex, so
// concurrent calls are applied one at a time; in the server every call
// comes from api.Server's single ingest goroutine.
type Dispatcher struct {
	mu         sync.Mutex
	strategies []*strategy.LevelRetracementStrategy
	lastPrice  *decimal.Decimal
	logger     *zap.Logger
}

// New builds a Dispatcher over strategies, preserving registration order.
func New(strategies []*strategy.LevelRetracementStrategy, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		strategies: strategies,
		logger:     logger.Named("dispatch"),
	}
}

// Ingest processes one bar. The very first bar only primes last_price and
// returns without dispatching, since there is no prior close yet to hand
// strategies as their prev_close.
func (d *Dispatcher) Ingest(ctx context.Context, bar Bar) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastPrice == nil {
		price := bar.Close
		d.lastPrice = &price
		d.logger.Debug("primed last price, no strategies dispatched", zap.String("price", price.String()))
		return
	}

	now := time.Now()
	prevClose := *d.lastPrice
	for _, s := range d.strategies {
		d.safeUpdate(ctx, s, now, bar, prevClose)
	}

	price := bar.Close
	d.lastPrice = &price
}

// safeUpdate recovers a panic or logs an error from one strategy's Update
// so that a single misbehaving strategy never blocks dispatch to its
// siblings.
func (d *Dispatcher) safeUpdate(ctx context.Context, s *strategy.LevelRetracementStrategy, now time.Time, bar Bar, prevClose decimal.Decimal) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("strategy update panicked, skipping", zap.String("strategy", s.Name()), zap.Any("panic", r))
		}
	}()

	if err := s.Update(ctx, now, bar.Close, prevClose, bar.High, bar.Low); err != nil {
		d.logger.Error("strategy update failed, skipping", zap.String("strategy", s.Name()), zap.Error(err))
	}
}

// ErrNotInitialized describes a bar arriving before any strategy has been
// registered. Ingest does not return it; the HTTP handler checks Ready and
// writes its own 500 response instead.
var ErrNotInitialized = fmt.Errorf("dispatch: no strategies registered")

// Ready reports whether the dispatcher has at least one strategy to feed.
func (d *Dispatcher) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.strategies) > 0
}

// Strategies returns the registered strategies in dispatch order, for
// callers (the HTTP status feed, graceful shutdown) that need to read
// per-strategy state without driving ingestion themselves.
func (d *Dispatcher) Strategies() []*strategy.LevelRetracementStrategy {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*strategy.LevelRetracementStrategy, len(d.strategies))
	copy(out, d.strategies)
	return out
}
