package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/bingolead/retracement-engine/internal/ladder"
	"github.com/bingolead/retracement-engine/internal/strategy"
)

// ErrNoState is returned by Verify (and may be tested for with
// errors.Is) when a strategy has never been saved. Load itself returns
// (nil, nil) on absence, matching the strategy.PersistenceStore contract.
var ErrNoState = errors.New("persistence: no saved state for strategy")

// Store is a MySQL-backed strategy.PersistenceStore. All operations on one
// Store are serialized behind its mutex. The mutex covers only this
// process: a tradectl run opens its own Store, and its reads are ordered
// against the server's writes only by the database's transactions.
type Store struct {
	db     *gorm.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// Open connects to dsn ("user:pass@tcp(host:port)/db?parseTime=True"),
// migrates the schema, and returns a ready Store.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("persistence: connect: %w", err)
	}
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("persistence: migrate: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, logger: log.Named("persistence")}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save persists state for the named strategy using the transaction
// protocol: upsert scalar row, append history/cumulative-pnl suffixes,
// replace open trades, upsert retrace annotations, and write static
// levels once.
func (s *Store) Save(ctx context.Context, name string, state *strategy.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := strategyRow{
			StrategyName:    name,
			TotalPnL:        state.TotalPnL.String(),
			Price:           state.Price.String(),
			LastPrice:       state.LastPrice.String(),
			HighPrice:       state.HighPrice.String(),
			LowPrice:        state.LowPrice.String(),
			BarIndex:        state.Index,
			WinRate:         state.WinRate.String(),
			AvgWinner:       state.AvgWinner.String(),
			AvgLoser:        state.AvgLoser.String(),
			TotalTrade:      state.TotalTrade,
			RewardToRisk:    state.RewardToRisk.String(),
			MaxLosingStreak: state.MaxLosingStreak,
			OpenTradeCount:  state.OpenTradeCount,
			LastEntryTime:   state.LastEntryTime,
			LastBarIndex:    state.LastBarIndex,
			FlattenedToday:  state.FlattenedToday,
			FlattenedDate:   state.FlattenedDate,
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("upsert scalar row: %w", err)
		}

		var historyCount int64
		if err := tx.Model(&historyRow{}).Where("strategy_name = ?", name).Count(&historyCount).Error; err != nil {
			return fmt.Errorf("count history: %w", err)
		}
		if int(historyCount) < len(state.History) {
			suffix := state.History[historyCount:]
			rows := make([]historyRow, len(suffix))
			for i, h := range suffix {
				rows[i] = historyRow{
					StrategyName: name,
					Seq:          int(historyCount) + i,
					Timestamp:    h.Timestamp,
					Kind:         int(h.Kind),
					Price:        h.Price.String(),
					RealizedPnL:  h.RealizedPnL.String(),
				}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("append history: %w", err)
			}
		}

		if err := tx.Where("strategy_name = ?", name).Delete(&openTradeRow{}).Error; err != nil {
			return fmt.Errorf("clear open trades: %w", err)
		}
		if len(state.OpenTrades) > 0 {
			rows := make([]openTradeRow, len(state.OpenTrades))
			for i, t := range state.OpenTrades {
				var trail *string
				if t.TrailingStop != nil {
					v := t.TrailingStop.String()
					trail = &v
				}
				rows[i] = openTradeRow{
					StrategyName:         name,
					EntryTime:            t.EntryTime,
					EntryPrice:           t.EntryPrice.String(),
					StopLevel:            t.StopLevel.String(),
					TrailingStop:         trail,
					TriggeringLevelPrice: t.TriggeringLevelPrice.String(),
					TakeProfitLevel:      t.TakeProfitLevel.String(),
				}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert open trades: %w", err)
			}
		}

		for idx, dir := range state.Retraces {
			r := retraceLevelRow{StrategyName: name, LevelIndex: idx, Direction: int(dir)}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&r).Error; err != nil {
				return fmt.Errorf("upsert retrace level %d: %w", idx, err)
			}
		}

		var pnlCount int64
		if err := tx.Model(&cumulativePnLRow{}).Where("strategy_name = ?", name).Count(&pnlCount).Error; err != nil {
			return fmt.Errorf("count cumulative pnl: %w", err)
		}
		if int(pnlCount) < len(state.CumulativePnL) {
			suffix := state.CumulativePnL[pnlCount:]
			rows := make([]cumulativePnLRow, len(suffix))
			for i, v := range suffix {
				rows[i] = cumulativePnLRow{StrategyName: name, Seq: int(pnlCount) + i, Value: v.String()}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("append cumulative pnl: %w", err)
			}
		}

		var levelCount int64
		if err := tx.Model(&staticLevelRow{}).Where("strategy_name = ?", name).Count(&levelCount).Error; err != nil {
			return fmt.Errorf("count static levels: %w", err)
		}
		if levelCount == 0 && len(state.StaticLevels) > 0 {
			rows := make([]staticLevelRow, len(state.StaticLevels))
			for i, lvl := range state.StaticLevels {
				rows[i] = staticLevelRow{StrategyName: name, LevelIndex: i, Price: lvl.String()}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert static levels: %w", err)
			}
		}

		return nil
	})
}

// Load returns the fully reconstructed state for name, or (nil, nil) if
// the strategy has never been saved.
func (s *Store) Load(ctx context.Context, name string) (*strategy.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row strategyRow
	err := s.db.WithContext(ctx).Where("strategy_name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load scalar row: %w", err)
	}

	state := &strategy.State{
		TotalPnL:        mustDecimal(row.TotalPnL),
		Price:           mustDecimal(row.Price),
		LastPrice:       mustDecimal(row.LastPrice),
		HighPrice:       mustDecimal(row.HighPrice),
		LowPrice:        mustDecimal(row.LowPrice),
		Index:           row.BarIndex,
		WinRate:         mustDecimal(row.WinRate),
		AvgWinner:       mustDecimal(row.AvgWinner),
		AvgLoser:        mustDecimal(row.AvgLoser),
		TotalTrade:      row.TotalTrade,
		RewardToRisk:    mustDecimal(row.RewardToRisk),
		MaxLosingStreak: row.MaxLosingStreak,
		OpenTradeCount:  row.OpenTradeCount,
		LastEntryTime:   row.LastEntryTime,
		LastBarIndex:    row.LastBarIndex,
		FlattenedToday:  row.FlattenedToday,
		FlattenedDate:   row.FlattenedDate,
		EntriesThisBar:  make(map[int]struct{}),
		Retraces:        make(map[int]ladder.Retrace),
	}

	var histRows []historyRow
	if err := s.db.WithContext(ctx).Where("strategy_name = ?", name).Order("seq ASC").Find(&histRows).Error; err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, h := range histRows {
		state.History = append(state.History, strategy.HistoryRecord{
			Timestamp:   h.Timestamp,
			Kind:        strategy.HistoryKind(h.Kind),
			Price:       mustDecimal(h.Price),
			RealizedPnL: mustDecimal(h.RealizedPnL),
		})
	}

	var pnlRows []cumulativePnLRow
	if err := s.db.WithContext(ctx).Where("strategy_name = ?", name).Order("seq ASC").Find(&pnlRows).Error; err != nil {
		return nil, fmt.Errorf("load cumulative pnl: %w", err)
	}
	for _, p := range pnlRows {
		state.CumulativePnL = append(state.CumulativePnL, mustDecimal(p.Value))
	}

	var levelRows []staticLevelRow
	if err := s.db.WithContext(ctx).Where("strategy_name = ?", name).Order("level_index ASC").Find(&levelRows).Error; err != nil {
		return nil, fmt.Errorf("load static levels: %w", err)
	}
	for _, l := range levelRows {
		state.StaticLevels = append(state.StaticLevels, mustDecimal(l.Price))
	}

	var retraceRows []retraceLevelRow
	if err := s.db.WithContext(ctx).Where("strategy_name = ?", name).Find(&retraceRows).Error; err != nil {
		return nil, fmt.Errorf("load retrace levels: %w", err)
	}
	for _, r := range retraceRows {
		state.Retraces[r.LevelIndex] = ladder.Retrace(r.Direction)
	}

	var tradeRows []openTradeRow
	if err := s.db.WithContext(ctx).Where("strategy_name = ?", name).Order("id ASC").Find(&tradeRows).Error; err != nil {
		return nil, fmt.Errorf("load open trades: %w", err)
	}
	for _, t := range tradeRows {
		var trail *decimal.Decimal
		if t.TrailingStop != nil {
			v := mustDecimal(*t.TrailingStop)
			trail = &v
		}
		state.OpenTrades = append(state.OpenTrades, strategy.OpenTrade{
			EntryTime:            t.EntryTime,
			EntryPrice:           mustDecimal(t.EntryPrice),
			StopLevel:            mustDecimal(t.StopLevel),
			TrailingStop:         trail,
			TriggeringLevelPrice: mustDecimal(t.TriggeringLevelPrice),
			TakeProfitLevel:      mustDecimal(t.TakeProfitLevel),
		})
	}

	return state, nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ListNames returns every strategy name with a saved scalar row, ordered
// alphabetically, for `tradectl list`.
func (s *Store) ListNames(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	err := s.db.WithContext(ctx).Model(&strategyRow{}).Order("strategy_name ASC").Pluck("strategy_name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	return names, nil
}

// Delete removes every row belonging to a strategy across all six tables,
// for `tradectl delete`.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range AllModels() {
			if err := tx.Where("strategy_name = ?", name).Delete(model).Error; err != nil {
				return fmt.Errorf("delete %T rows: %w", model, err)
			}
		}
		return nil
	})
}

// ResetAll truncates every strategy table, for `tradectl reset-all`.
func (s *Store) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range AllModels() {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("reset %T: %w", model, err)
			}
		}
		return nil
	})
}

// Verify re-derives the official invariants (open-trade count matches the
// list length, PnL bookkeeping matches history, cumulative PnL length
// matches closing events) against the persisted rows for name, without
// constructing a live strategy instance. It supplements db_utility.py's
// list/show/delete/reset-all with a read-only reconciliation diagnostic
// inspired by strategy.py's check_trade_to_remove self-heal.
func (s *Store) Verify(ctx context.Context, name string) ([]string, error) {
	state, err := s.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrNoState
	}

	var problems []string
	if state.OpenTradeCount != len(state.OpenTrades) {
		problems = append(problems, fmt.Sprintf("open_trade_count=%d but %d open trade rows", state.OpenTradeCount, len(state.OpenTrades)))
	}

	var closingEvents int
	sumRealized := decimal.Zero
	for _, h := range state.History {
		if h.Kind == strategy.Exit || h.Kind == strategy.Flatten {
			closingEvents++
			sumRealized = sumRealized.Add(h.RealizedPnL)
		}
	}
	if closingEvents != len(state.CumulativePnL) {
		problems = append(problems, fmt.Sprintf("%d closing history events but %d cumulative_pnl rows", closingEvents, len(state.CumulativePnL)))
	}
	if !sumRealized.Equal(state.TotalPnL) {
		problems = append(problems, fmt.Sprintf("sum of realized pnl %s does not match total_pnl %s", sumRealized, state.TotalPnL))
	}

	for _, t := range state.OpenTrades {
		if t.IsLong() && !t.StopLevel.LessThan(t.EntryPrice) {
			problems = append(problems, fmt.Sprintf("long trade entered at %s has stop %s not below entry", t.EntryPrice, t.StopLevel))
		}
		if !t.IsLong() && !t.StopLevel.GreaterThan(t.EntryPrice) {
			problems = append(problems, fmt.Sprintf("short trade entered at %s has stop %s not above entry", t.EntryPrice, t.StopLevel))
		}
	}

	return problems, nil
}
