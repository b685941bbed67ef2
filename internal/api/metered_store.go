package api

import (
	"context"
	"sync"
	"time"

	"github.com/bingolead/retracement-engine/internal/strategy"
)

// meteredStore decorates a strategy.PersistenceStore so every Save
// observes persistence latency and, by diffing the trade-history length
// against what was last seen for that strategy, increments the entry/exit
// counters without strategy itself knowing prometheus exists.
type meteredStore struct {
	next    strategy.PersistenceStore
	metrics *Metrics

	mu      sync.Mutex
	seenLen map[string]int
}

// WrapStore decorates store so every Save observes latency and updates
// the entry/exit/open-trade gauges on m.
func WrapStore(store strategy.PersistenceStore, m *Metrics) strategy.PersistenceStore {
	return &meteredStore{next: store, metrics: m, seenLen: make(map[string]int)}
}

func (s *meteredStore) Save(ctx context.Context, name string, state *strategy.State) error {
	start := time.Now()
	err := s.next.Save(ctx, name, state)
	s.metrics.saveLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	s.mu.Lock()
	prevLen := s.seenLen[name]
	s.seenLen[name] = len(state.History)
	s.mu.Unlock()

	for _, rec := range state.History[min(prevLen, len(state.History)):] {
		switch rec.Kind {
		case strategy.Buy, strategy.Sell:
			s.metrics.entries.WithLabelValues(name).Inc()
		case strategy.Exit, strategy.Flatten:
			s.metrics.exits.WithLabelValues(name).Inc()
		}
	}
	s.metrics.openTrades.WithLabelValues(name).Set(float64(state.OpenTradeCount))
	return nil
}

func (s *meteredStore) Load(ctx context.Context, name string) (*strategy.State, error) {
	return s.next.Load(ctx, name)
}
