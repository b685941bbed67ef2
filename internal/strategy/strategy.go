// Package strategy implements the level-retracement trading strategy: a
// single-direction (long-only or short-only) state machine that enters on
// a retrace-and-reclaim of a static price ladder, manages stops/targets
// with an arming trailing stop, and force-flattens ahead of the exchange
// close.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bingolead/retracement-engine/internal/hours"
	"github.com/bingolead/retracement-engine/internal/ladder"
	"github.com/bingolead/retracement-engine/pkg/utils"
)

var fourTicks = decimal.NewFromInt(4)

// ticksToPrice converts an offset expressed in ticks (quarter-point for
// ES/MES) to a price delta.
func ticksToPrice(ticks int) decimal.Decimal {
	return decimal.NewFromInt(int64(ticks)).Div(fourTicks)
}

// Side identifies the direction of a position or order.
type Side int

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	if s == Long {
		return "long"
	}
	return "short"
}

// HistoryKind tags a trade-history record.
type HistoryKind int

const (
	Buy HistoryKind = iota
	Sell
	Exit
	Flatten
)

func (k HistoryKind) String() string {
	switch k {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case Exit:
		return "EXIT"
	case Flatten:
		return "FLATTEN"
	default:
		return "UNKNOWN"
	}
}

// HistoryRecord is one append-only entry in a strategy's trade history.
type HistoryRecord struct {
	Timestamp   time.Time
	Kind        HistoryKind
	Price       decimal.Decimal
	RealizedPnL decimal.Decimal
}

// OpenTrade is a single live position leg.
type OpenTrade struct {
	EntryTime            time.Time
	EntryPrice           decimal.Decimal
	StopLevel            decimal.Decimal
	TrailingStop         *decimal.Decimal
	TriggeringLevelPrice decimal.Decimal
	TakeProfitLevel      decimal.Decimal
}

// IsLong reports the trade's derived side: long iff entry price sits below
// its take-profit level. Kept as a derived check (not a stored field) per
// the invariant that the two must always agree.
func (t OpenTrade) IsLong() bool {
	return t.EntryPrice.LessThan(t.TakeProfitLevel)
}

// State is the full persistable state of one strategy instance.
type State struct {
	TotalPnL        decimal.Decimal
	Price           decimal.Decimal
	LastPrice       decimal.Decimal
	HighPrice       decimal.Decimal
	LowPrice        decimal.Decimal
	Index           time.Time
	WinRate         decimal.Decimal
	AvgWinner       decimal.Decimal
	AvgLoser        decimal.Decimal
	TotalTrade      int
	RewardToRisk    decimal.Decimal
	MaxLosingStreak int
	OpenTradeCount  int
	ProfitFactor    decimal.Decimal
	MaxDrawdown     decimal.Decimal
	PnLStdDev       decimal.Decimal
	SharpeRatio     decimal.Decimal

	History       []HistoryRecord
	OpenTrades    []OpenTrade
	Retraces      map[int]ladder.Retrace
	CumulativePnL []decimal.Decimal
	StaticLevels  []decimal.Decimal

	EntriesThisBar map[int]struct{}
	LastEntryTime  time.Time
	LastBarIndex   time.Time
	FlattenedToday bool
	FlattenedDate  time.Time
}

// BrokerAdapter is the subset of broker behavior the state machine needs:
// placing a market order and reading current net position (used to decide
// the closing side on an exit/flatten). Defined here, not in package
// broker, so broker can depend on strategy without a cycle.
type BrokerAdapter interface {
	EnterPosition(ctx context.Context, quantity int, side Side) error
	NetPosition(ctx context.Context) (int, error)
}

// PersistenceStore is the subset of store behavior the state machine
// needs to snapshot and restore itself.
type PersistenceStore interface {
	Save(ctx context.Context, name string, state *State) error
	Load(ctx context.Context, name string) (*State, error)
}

// ErrLadderExhausted is returned when a trailing stop cannot be armed
// because the ladder has no level trail_trigger steps beyond the
// triggering level. This is a fatal configuration error for the one
// strategy instance, not a panic.
type ErrLadderExhausted struct {
	Strategy string
	Side     Side
}

func (e *ErrLadderExhausted) Error() string {
	return fmt.Sprintf("strategy %s: ladder too short to arm %s trailing stop", e.Strategy, e.Side)
}

// Config carries the construction-time parameters of a
// LevelRetracementStrategy, with offsets expressed in ticks as they arrive
// from strategy-configuration JSON.
type Config struct {
	Name                  string
	EntryOffsetTicks      int
	TakeProfitOffsetTicks int
	StopLossOffsetTicks   int
	TrailTrigger          int
	ReEntryDistance       int
	MaxOpenTrades         int
	MaxContractsPerTrade  int
	SymbolSize            decimal.Decimal
	IsTradingLong         bool
	UseTradingHours       bool
	EarlyCloseCalendar    hours.EarlyClose
	DateWindow            ladder.DateWindow
	MinEntryInterval      time.Duration
}

// LevelRetracementStrategy is the per-instrument, single-direction state
// machine described by the retracement strategy.
type LevelRetracementStrategy struct {
	name                 string
	entryOffset          decimal.Decimal
	takeProfitOffset     decimal.Decimal
	stopLossOffset       decimal.Decimal
	trailTrigger         int
	reEntryDistance      int
	maxOpenTrades        int
	maxContractsPerTrade int
	symbolSize           decimal.Decimal
	isTradingLong        bool
	useTradingHours      bool
	dateWindow           ladder.DateWindow
	minEntryInterval     time.Duration

	ladder *ladder.Ladder
	clock  *hours.Clock
	broker BrokerAdapter
	store  PersistenceStore
	logger *zap.Logger

	state State
}

const defaultMinEntryInterval = 5 * time.Minute

// New constructs a strategy from cfg. Levels must be supplied via
// LoadLevels before the first Update call. broker and store may both be
// nil (paper-trading / persistence-disabled modes).
func New(cfg Config, broker BrokerAdapter, store PersistenceStore, logger *zap.Logger) (*LevelRetracementStrategy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	minInterval := cfg.MinEntryInterval
	if minInterval == 0 {
		minInterval = defaultMinEntryInterval
	}

	s := &LevelRetracementStrategy{
		name:                 cfg.Name,
		entryOffset:          ticksToPrice(cfg.EntryOffsetTicks),
		takeProfitOffset:     ticksToPrice(cfg.TakeProfitOffsetTicks),
		stopLossOffset:       ticksToPrice(cfg.StopLossOffsetTicks),
		trailTrigger:         cfg.TrailTrigger,
		reEntryDistance:      cfg.ReEntryDistance,
		maxOpenTrades:        cfg.MaxOpenTrades,
		maxContractsPerTrade: cfg.MaxContractsPerTrade,
		symbolSize:           cfg.SymbolSize,
		isTradingLong:        cfg.IsTradingLong,
		useTradingHours:      cfg.UseTradingHours,
		dateWindow:           cfg.DateWindow,
		minEntryInterval:     minInterval,
		broker:               broker,
		store:                store,
		logger:               logger.Named("strategy").With(zap.String("strategy", cfg.Name)),
		state: State{
			EntriesThisBar: make(map[int]struct{}),
			Retraces:       make(map[int]ladder.Retrace),
		},
	}

	if cfg.UseTradingHours {
		clock, err := hours.NewClock(cfg.EarlyCloseCalendar)
		if err != nil {
			return nil, err
		}
		s.clock = clock
	}

	return s, nil
}

// Name returns the strategy's configured name, used as its persistence key.
func (s *LevelRetracementStrategy) Name() string { return s.name }

// LoadLevels installs the static price ladder. Must be called before the
// first Update. Calling it again replaces the ladder and resets every
// level's retrace to RetraceNone.
func (s *LevelRetracementStrategy) LoadLevels(levels []decimal.Decimal) {
	s.ladder = ladder.New(levels)
	s.state.StaticLevels = s.ladder.Levels()
	for i := 0; i < s.ladder.Len(); i++ {
		s.state.Retraces[i] = ladder.RetraceNone
	}
}

// State returns a pointer to the strategy's live state, for inspection or
// persistence plumbing.
func (s *LevelRetracementStrategy) State() *State { return &s.state }

// Update drives the state machine forward by one bar. It implements,
// strictly in order: the trading-hours gate, the per-bar entry-tracking
// reset, ladder annotation, entry evaluation, exit evaluation, and
// persistence snapshot.
func (s *LevelRetracementStrategy) Update(ctx context.Context, barTime time.Time, close, prevClose, high, low decimal.Decimal) error {
	s.state.Price = close
	s.state.LastPrice = prevClose
	s.state.HighPrice = high
	s.state.LowPrice = low
	s.state.Index = barTime

	if s.useTradingHours && s.clock != nil {
		currentDate := dateOnly(barTime)
		if !sameDate(s.state.FlattenedDate, currentDate) {
			s.state.FlattenedToday = false
		}

		if s.clock.ShouldFlattenPositions(barTime) {
			if !s.state.FlattenedToday && s.state.OpenTradeCount > 0 {
				s.FlattenAll(ctx, close, "CME daily close approaching")
				s.state.FlattenedToday = true
				s.state.FlattenedDate = currentDate
			}
			if err := s.checkExits(ctx, barTime, close); err != nil {
				return err
			}
			s.maybeSave(ctx)
			return nil
		}

		if s.clock.IsMarketClosed(barTime) {
			if err := s.checkExits(ctx, barTime, close); err != nil {
				return err
			}
			s.maybeSave(ctx)
			return nil
		}
	}

	// Phase B: per-bar entry-tracking reset.
	if !barTime.Equal(s.state.LastBarIndex) {
		s.state.EntriesThisBar = make(map[int]struct{})
		s.state.LastBarIndex = barTime
	}

	// Phase C: ladder annotation.
	s.ladder.UpdateCrossings(close, high, low)
	for i := 0; i < s.ladder.Len(); i++ {
		s.state.Retraces[i] = s.ladder.Retrace(i)
	}

	// Phase D: entry evaluation, gated by an optional date-range pre-filter.
	if s.dateWindow.Allows(barTime) {
		if s.isTradingLong {
			s.tryEnterLong(ctx, barTime, close, prevClose)
		} else {
			s.tryEnterShort(ctx, barTime, close, prevClose)
		}
	}

	// Phase E: exit evaluation.
	if err := s.checkExits(ctx, barTime, close); err != nil {
		return err
	}

	s.maybeSave(ctx)
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	return dateOnly(a).Equal(dateOnly(b))
}

func (s *LevelRetracementStrategy) tryEnterLong(ctx context.Context, barTime time.Time, close, prevClose decimal.Decimal) {
	if s.state.OpenTradeCount >= s.maxOpenTrades {
		return
	}

	for i := 0; i < s.ladder.Len(); i++ {
		level := s.ladder.Level(i)
		threshold := level.Add(s.entryOffset)

		cond1 := close.LessThanOrEqual(threshold) && threshold.LessThan(prevClose)
		reEntryIdx := i + s.reEntryDistance
		validReEntry := reEntryIdx >= 0 && reEntryIdx < s.ladder.Len()
		cond3 := validReEntry && s.ladder.Retrace(reEntryIdx) == ladder.RetraceDown

		if !(cond1 && validReEntry && cond3) {
			continue
		}
		if _, already := s.state.EntriesThisBar[i]; already {
			continue
		}
		if !s.state.LastEntryTime.IsZero() && barTime.Sub(s.state.LastEntryTime) < s.minEntryInterval {
			continue
		}

		s.ladder.ClearRetrace(reEntryIdx)
		s.state.Retraces[reEntryIdx] = ladder.RetraceNone

		for c := 0; c < s.maxContractsPerTrade; c++ {
			stopLevel := close.Sub(s.stopLossOffset)
			takeProfit := close.Add(s.takeProfitOffset)
			s.fillEntry(ctx, barTime, close, stopLevel, takeProfit, level, i, Long)
		}
	}
}

func (s *LevelRetracementStrategy) tryEnterShort(ctx context.Context, barTime time.Time, close, prevClose decimal.Decimal) {
	if s.state.OpenTradeCount >= s.maxOpenTrades {
		return
	}

	for i := 0; i < s.ladder.Len(); i++ {
		level := s.ladder.Level(i)
		threshold := level.Sub(s.entryOffset)

		cond1 := close.GreaterThan(threshold) && threshold.GreaterThanOrEqual(prevClose)
		reEntryIdx := i - s.reEntryDistance
		validReEntry := reEntryIdx >= 0 && reEntryIdx < s.ladder.Len()
		cond3 := validReEntry && s.ladder.Retrace(reEntryIdx) == ladder.RetraceUp

		if !(cond1 && validReEntry && cond3) {
			continue
		}
		if _, already := s.state.EntriesThisBar[i]; already {
			continue
		}
		if !s.state.LastEntryTime.IsZero() && barTime.Sub(s.state.LastEntryTime) < s.minEntryInterval {
			continue
		}

		s.ladder.ClearRetrace(reEntryIdx)
		s.state.Retraces[reEntryIdx] = ladder.RetraceNone

		for c := 0; c < s.maxContractsPerTrade; c++ {
			stopLevel := close.Add(s.stopLossOffset)
			takeProfit := close.Sub(s.takeProfitOffset)
			s.fillEntry(ctx, barTime, close, stopLevel, takeProfit, level, i, Short)
		}
	}
}

func (s *LevelRetracementStrategy) fillEntry(ctx context.Context, barTime time.Time, entryPrice, stopLevel, takeProfit, level decimal.Decimal, levelIdx int, side Side) {
	ok := true
	if s.broker != nil {
		if err := s.broker.EnterPosition(ctx, 1, side); err != nil {
			s.logger.Warn("order failed, trade not opened", zap.Error(err), zap.String("side", side.String()))
			ok = false
		}
	}
	if !ok {
		return
	}

	trade := OpenTrade{
		EntryTime:            barTime,
		EntryPrice:           entryPrice,
		StopLevel:            stopLevel,
		TrailingStop:         nil,
		TriggeringLevelPrice: level,
		TakeProfitLevel:      takeProfit,
	}
	s.state.OpenTrades = append(s.state.OpenTrades, trade)
	s.state.OpenTradeCount++

	kind := Buy
	if side == Short {
		kind = Sell
	}
	s.state.History = append(s.state.History, HistoryRecord{
		Timestamp:   barTime,
		Kind:        kind,
		Price:       entryPrice,
		RealizedPnL: decimal.Zero,
	})

	s.state.EntriesThisBar[levelIdx] = struct{}{}
	s.state.LastEntryTime = barTime

	s.logger.Info("entry triggered",
		zap.String("side", side.String()),
		zap.String("price", entryPrice.String()),
		zap.String("level", level.String()),
	)
}

// checkExits evaluates every open trade's stop/trail/target rules and
// closes any that fire, then reconciles OpenTradeCount against the list
// length as a defensive invariant repair.
func (s *LevelRetracementStrategy) checkExits(ctx context.Context, barTime time.Time, close decimal.Decimal) error {
	if len(s.state.OpenTrades) == 0 {
		s.reconcileOpenCount()
		return nil
	}

	remaining := s.state.OpenTrades[:0:0]
	for _, trade := range s.state.OpenTrades {
		exited, err := s.evaluateTradeExit(ctx, &trade, barTime, close)
		if err != nil {
			return err
		}
		if !exited {
			remaining = append(remaining, trade)
		}
	}
	s.state.OpenTrades = remaining
	s.reconcileOpenCount()
	return nil
}

func (s *LevelRetracementStrategy) evaluateTradeExit(ctx context.Context, trade *OpenTrade, barTime time.Time, close decimal.Decimal) (bool, error) {
	if trade.IsLong() {
		if trade.TrailingStop == nil {
			j := s.ladder.IndexOf(trade.TriggeringLevelPrice)
			if j == -1 || j+s.trailTrigger >= s.ladder.Len() {
				return false, &ErrLadderExhausted{Strategy: s.name, Side: Long}
			}
			triggerPrice := s.ladder.Level(j + s.trailTrigger)
			if close.GreaterThan(triggerPrice) {
				trade.TrailingStop = &triggerPrice
			}
		}
		if trade.TrailingStop != nil {
			floor := close.Sub(s.stopLossOffset)
			ratcheted := decimalMax(*trade.TrailingStop, floor)
			trade.TrailingStop = &ratcheted
		}

		exit := close.LessThanOrEqual(trade.StopLevel) ||
			(trade.TrailingStop != nil && close.LessThanOrEqual(*trade.TrailingStop)) ||
			close.GreaterThanOrEqual(trade.TakeProfitLevel)
		if !exit {
			return false, nil
		}

		pnl := close.Sub(trade.EntryPrice).Mul(s.symbolSize)
		s.recordClose(barTime, close, pnl, Exit)
		s.closeBrokerSide(ctx, Short)
		return true, nil
	}

	// Short trade.
	if trade.TrailingStop == nil {
		j := s.ladder.IndexOf(trade.TriggeringLevelPrice)
		if j == -1 || j-s.trailTrigger < 0 {
			return false, &ErrLadderExhausted{Strategy: s.name, Side: Short}
		}
		triggerPrice := s.ladder.Level(j - s.trailTrigger)
		if close.LessThanOrEqual(triggerPrice) {
			trade.TrailingStop = &triggerPrice
		}
	}
	if trade.TrailingStop != nil {
		ceiling := close.Add(s.stopLossOffset)
		ratcheted := decimalMin(*trade.TrailingStop, ceiling)
		trade.TrailingStop = &ratcheted
	}

	exit := close.GreaterThanOrEqual(trade.StopLevel) ||
		(trade.TrailingStop != nil && close.GreaterThanOrEqual(*trade.TrailingStop)) ||
		close.LessThanOrEqual(trade.TakeProfitLevel)
	if !exit {
		return false, nil
	}

	pnl := trade.EntryPrice.Sub(close).Mul(s.symbolSize)
	s.recordClose(barTime, close, pnl, Exit)
	s.closeBrokerSide(ctx, Long)
	return true, nil
}

func (s *LevelRetracementStrategy) closeBrokerSide(ctx context.Context, closingSide Side) {
	if s.broker == nil {
		return
	}
	net, err := s.broker.NetPosition(ctx)
	if err != nil {
		s.logger.Warn("failed to read net position on exit", zap.Error(err))
		return
	}
	if (closingSide == Short && net > 0) || (closingSide == Long && net < 0) {
		if err := s.broker.EnterPosition(ctx, 1, closingSide); err != nil {
			s.logger.Warn("flattening order failed", zap.Error(err))
		}
	}
}

func (s *LevelRetracementStrategy) recordClose(barTime time.Time, price, pnl decimal.Decimal, kind HistoryKind) {
	s.state.TotalPnL = s.state.TotalPnL.Add(pnl)
	s.state.History = append(s.state.History, HistoryRecord{
		Timestamp:   barTime,
		Kind:        kind,
		Price:       price,
		RealizedPnL: pnl,
	})
	s.state.CumulativePnL = append(s.state.CumulativePnL, s.state.TotalPnL)
}

func (s *LevelRetracementStrategy) reconcileOpenCount() {
	if s.state.OpenTradeCount != len(s.state.OpenTrades) {
		s.logger.Warn("open trade count mismatch, reconciling",
			zap.Int("counted", s.state.OpenTradeCount),
			zap.Int("actual", len(s.state.OpenTrades)),
		)
		s.state.OpenTradeCount = len(s.state.OpenTrades)
	}
}

// FlattenAll closes every open trade at the current close price, logging
// the given human-readable reason. Idempotent when there is nothing open.
func (s *LevelRetracementStrategy) FlattenAll(ctx context.Context, close decimal.Decimal, reason string) {
	if s.state.OpenTradeCount == 0 {
		return
	}
	s.logger.Info("flattening all positions", zap.String("reason", reason), zap.Int("count", s.state.OpenTradeCount))

	for _, trade := range s.state.OpenTrades {
		var pnl decimal.Decimal
		var closingSide Side
		if trade.IsLong() {
			pnl = close.Sub(trade.EntryPrice).Mul(s.symbolSize)
			closingSide = Short
		} else {
			pnl = trade.EntryPrice.Sub(close).Mul(s.symbolSize)
			closingSide = Long
		}
		s.state.TotalPnL = s.state.TotalPnL.Add(pnl)
		s.state.History = append(s.state.History, HistoryRecord{
			Timestamp:   s.state.Index,
			Kind:        Flatten,
			Price:       close,
			RealizedPnL: pnl,
		})
		s.state.CumulativePnL = append(s.state.CumulativePnL, s.state.TotalPnL)

		if s.broker != nil {
			if err := s.broker.EnterPosition(ctx, 1, closingSide); err != nil {
				s.logger.Warn("flatten order failed", zap.Error(err))
			}
		}
	}

	s.state.OpenTrades = nil
	s.state.OpenTradeCount = 0
}

func decimalMax(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func decimalMin(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func (s *LevelRetracementStrategy) maybeSave(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, s.name, &s.state); err != nil {
		s.logger.Error("failed to save state", zap.Error(err))
	}
}

// SaveState explicitly persists the strategy's current state, used on
// graceful shutdown in addition to the automatic per-update snapshot.
func (s *LevelRetracementStrategy) SaveState(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(ctx, s.name, &s.state)
}

// LoadState restores the strategy's state from its store, if any exists.
// Returns false with no error when no saved state is found (fresh start).
func (s *LevelRetracementStrategy) LoadState(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	loaded, err := s.store.Load(ctx, s.name)
	if err != nil {
		return false, err
	}
	if loaded == nil {
		s.logger.Info("starting fresh, no saved state found")
		return false, nil
	}
	s.state = *loaded
	if s.state.EntriesThisBar == nil {
		s.state.EntriesThisBar = make(map[int]struct{})
	}
	if s.state.Retraces == nil {
		s.state.Retraces = make(map[int]ladder.Retrace)
	}
	if s.ladder == nil && len(s.state.StaticLevels) > 0 {
		s.ladder = ladder.New(s.state.StaticLevels)
	}
	for i := 0; i < s.ladder.Len(); i++ {
		if r, ok := s.state.Retraces[i]; ok {
			s.ladder.SetRetrace(i, r)
		}
	}
	s.logger.Info("state loaded",
		zap.Int("openTrades", s.state.OpenTradeCount),
		zap.Int("activeRetraces", s.ladder.ActiveRetraceCount()),
	)
	return true, nil
}

// PrintTradeStats computes and logs summary statistics over the full
// trade history, mirroring the original strategy's end-of-run report.
func (s *LevelRetracementStrategy) PrintTradeStats() {
	var wins, losses, closed []decimal.Decimal
	for _, h := range s.state.History {
		if h.Kind != Exit && h.Kind != Flatten {
			continue
		}
		closed = append(closed, h.RealizedPnL)
		if h.RealizedPnL.GreaterThan(decimal.Zero) {
			wins = append(wins, h.RealizedPnL)
		} else {
			losses = append(losses, h.RealizedPnL)
		}
	}

	total := len(wins) + len(losses)
	s.state.TotalTrade = total
	if total > 0 {
		s.state.WinRate = decimal.NewFromInt(int64(len(wins))).Div(decimal.NewFromInt(int64(total))).Mul(decimal.NewFromInt(100))
	}
	s.state.AvgWinner = utils.CalculateMean(wins)
	s.state.AvgLoser = utils.CalculateMean(losses)
	if !s.state.AvgLoser.IsZero() {
		s.state.RewardToRisk = s.state.AvgWinner.Div(s.state.AvgLoser.Abs())
	}
	s.state.ProfitFactor = utils.CalculateProfitFactor(closed)
	s.state.MaxDrawdown = utils.CalculateMaxDrawdown(s.state.CumulativePnL)
	s.state.PnLStdDev = utils.CalculateStdDev(closed)
	// Per-trade, not annualized: the engine has no fixed bar/calendar period
	// to scale by, so periodsPerYear is 1 and this is a raw reward-to-
	// variability ratio over realized trade PnL.
	s.state.SharpeRatio = utils.CalculateSharpeRatio(closed, decimal.Zero, 1)

	streak := 0
	for _, h := range s.state.History {
		if h.Kind != Exit {
			continue
		}
		if h.RealizedPnL.LessThanOrEqual(decimal.Zero) {
			streak++
			if streak > s.state.MaxLosingStreak {
				s.state.MaxLosingStreak = streak
			}
		} else {
			streak = 0
		}
	}

	s.logger.Info("trade statistics",
		zap.String("totalPnL", s.state.TotalPnL.String()),
		zap.Int("totalTrades", total),
		zap.String("winRate", s.state.WinRate.String()),
		zap.String("avgWinner", s.state.AvgWinner.String()),
		zap.String("avgLoser", s.state.AvgLoser.String()),
		zap.Int("maxLosingStreak", s.state.MaxLosingStreak),
		zap.String("profitFactor", s.state.ProfitFactor.String()),
		zap.String("maxDrawdown", s.state.MaxDrawdown.String()),
		zap.String("pnlStdDev", s.state.PnLStdDev.String()),
		zap.String("sharpeRatio", s.state.SharpeRatio.String()),
	)
}
