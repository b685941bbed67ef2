package api_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bingolead/retracement-engine/internal/api"
	"github.com/bingolead/retracement-engine/internal/dispatch"
	"github.com/bingolead/retracement-engine/internal/strategy"
)

func newTestStrategy(t *testing.T) *strategy.LevelRetracementStrategy {
	t.Helper()
	s, err := strategy.New(strategy.Config{
		Name:                  "es-test",
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
	s.LoadLevels([]decimal.Decimal{decimal.NewFromInt(495), decimal.NewFromInt(500), decimal.NewFromInt(505)})
	return s
}

func TestWebhookRejectsWhenDispatcherNotReady(t *testing.T) {
	d := dispatch.New(nil, nil)
	srv := api.NewServer(nil, "localhost", 0, d, nil)

	body, _ := json.Marshal(map[string]string{"open": "500", "high": "501", "low": "499", "close": "500"})
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != 500 {
		t.Fatalf("expected 500 when no strategies registered, got %d", w.Code)
	}
}

func TestWebhookAcceptsValidBar(t *testing.T) {
	d := dispatch.New([]*strategy.LevelRetracementStrategy{newTestStrategy(t)}, nil)
	srv := api.NewServer(nil, "localhost", 0, d, nil)

	body, _ := json.Marshal(map[string]string{"open": "500", "high": "501", "low": "499", "close": "500"})
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "success" {
		t.Fatalf("expected status success, got %+v", resp)
	}
}

func TestWebhookRejectsInvalidBody(t *testing.T) {
	d := dispatch.New([]*strategy.LevelRetracementStrategy{newTestStrategy(t)}, nil)
	srv := api.NewServer(nil, "localhost", 0, d, nil)

	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != 400 {
		t.Fatalf("expected 400 for invalid body, got %d", w.Code)
	}
}
