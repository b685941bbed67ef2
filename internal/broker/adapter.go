// Package broker implements the exchange-facing side of a strategy: an
// Adapter that places and flattens orders, a TokenManager keeping a
// Tradovate bearer token fresh, and a paper-trading stub for backtests
// and dry runs (the teacher's --paper flag, but as an interface
// implementation rather than a boolean threaded through a live client).
package broker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/bingolead/retracement-engine/internal/strategy"
)

// Adapter is the order-placement surface a strategy needs: open one
// contract in a direction, and read the net signed position to decide
// which side closes an exit or flatten.
type Adapter interface {
	EnterPosition(ctx context.Context, quantity int, side strategy.Side) error
	NetPosition(ctx context.Context) (int, error)
}

// NoopAdapter is the paper-trading / backtest stub: every order "fills"
// immediately and net position is tracked purely in memory.
type NoopAdapter struct {
	mu     sync.Mutex
	net    int
	logger *zap.Logger
}

// NewNoopAdapter builds a paper-trading adapter.
func NewNoopAdapter(logger *zap.Logger) *NoopAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopAdapter{logger: logger.Named("broker.noop")}
}

func (a *NoopAdapter) EnterPosition(ctx context.Context, quantity int, side strategy.Side) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if side == strategy.Long {
		a.net += quantity
	} else {
		a.net -= quantity
	}
	a.logger.Debug("paper order filled", zap.String("side", side.String()), zap.Int("quantity", quantity), zap.Int("net", a.net))
	return nil
}

func (a *NoopAdapter) NetPosition(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.net, nil
}
