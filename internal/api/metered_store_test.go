package api_test

import (
	"context"
	"testing"

	"github.com/bingolead/retracement-engine/internal/api"
	"github.com/bingolead/retracement-engine/internal/strategy"
)

type recordingStore struct {
	saved map[string]*strategy.State
}

func (r *recordingStore) Save(ctx context.Context, name string, state *strategy.State) error {
	if r.saved == nil {
		r.saved = make(map[string]*strategy.State)
	}
	r.saved[name] = state
	return nil
}

func (r *recordingStore) Load(ctx context.Context, name string) (*strategy.State, error) {
	return r.saved[name], nil
}

func TestWrapStorePassesSaveAndLoadThrough(t *testing.T) {
	inner := &recordingStore{}
	wrapped := api.WrapStore(inner, api.NewMetrics())

	state := &strategy.State{
		OpenTradeCount: 1,
		History: []strategy.HistoryRecord{
			{Kind: strategy.Buy},
			{Kind: strategy.Exit},
		},
	}

	if err := wrapped.Save(context.Background(), "es-1", state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if inner.saved["es-1"] != state {
		t.Fatal("expected the inner store to receive the saved state")
	}

	got, err := wrapped.Load(context.Background(), "es-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != state {
		t.Fatal("expected Load to pass through to the inner store")
	}
}
