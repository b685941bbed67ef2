package persistence

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/bingolead/retracement-engine/internal/ladder"
	"github.com/bingolead/retracement-engine/internal/strategy"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return &Store{db: gormDB}, mock
}

func TestSaveRunsAsSingleTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `strategy_state`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT count").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `trade_history`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM `open_trades`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `open_trades`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `retrace_levels`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT count").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `cumulative_pnl`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT count").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `static_levels`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	stop := decimal.NewFromInt(510)
	state := &strategy.State{
		TotalPnL:       decimal.NewFromInt(700),
		OpenTradeCount: 1,
		OpenTrades: []strategy.OpenTrade{{
			EntryTime:            time.Now(),
			EntryPrice:           decimal.NewFromInt(500),
			StopLevel:            decimal.NewFromInt(495),
			TrailingStop:         &stop,
			TriggeringLevelPrice: decimal.NewFromInt(500),
			TakeProfitLevel:      decimal.NewFromInt(550),
		}},
		History: []strategy.HistoryRecord{
			{Timestamp: time.Now(), Kind: strategy.Buy, Price: decimal.NewFromInt(500)},
		},
		Retraces:      map[int]ladder.Retrace{0: ladder.RetraceDown},
		CumulativePnL: []decimal.Decimal{decimal.NewFromInt(700)},
		StaticLevels:  []decimal.Decimal{decimal.NewFromInt(500)},
	}

	if err := store.Save(context.Background(), "es-long", state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLoadReturnsNilOnAbsentStrategy(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM `strategy_state`").WillReturnRows(sqlmock.NewRows(nil))

	state, err := store.Load(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state != nil {
		t.Fatalf("expected nil state for an absent strategy, got %+v", state)
	}
}

func TestTableNames(t *testing.T) {
	cases := []struct {
		model interface{ TableName() string }
		want  string
	}{
		{strategyRow{}, "strategy_state"},
		{historyRow{}, "trade_history"},
		{cumulativePnLRow{}, "cumulative_pnl"},
		{staticLevelRow{}, "static_levels"},
		{openTradeRow{}, "open_trades"},
		{retraceLevelRow{}, "retrace_levels"},
	}
	for _, c := range cases {
		if got := c.model.TableName(); got != c.want {
			t.Errorf("TableName() = %q, want %q", got, c.want)
		}
	}
}
