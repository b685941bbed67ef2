// Package persistence is the durable state store for strategy instances:
// a six-table relational schema (one scalar row per strategy plus five
// child tables) written through a single GORM transaction per save.
package persistence

import "time"

// strategyRow is the main table: one row per strategy holding every
// scalar field of strategy.State.
type strategyRow struct {
	StrategyName    string    `gorm:"primaryKey;type:varchar(128)"`
	TotalPnL        string    `gorm:"type:varchar(64);not null"`
	Price           string    `gorm:"type:varchar(64);not null"`
	LastPrice       string    `gorm:"type:varchar(64);not null"`
	HighPrice       string    `gorm:"type:varchar(64);not null"`
	LowPrice        string    `gorm:"type:varchar(64);not null"`
	BarIndex        time.Time `gorm:"index"`
	WinRate         string    `gorm:"type:varchar(64);not null"`
	AvgWinner       string    `gorm:"type:varchar(64);not null"`
	AvgLoser        string    `gorm:"type:varchar(64);not null"`
	TotalTrade      int       `gorm:"not null"`
	RewardToRisk    string    `gorm:"type:varchar(64);not null"`
	MaxLosingStreak int       `gorm:"not null"`
	OpenTradeCount  int       `gorm:"not null"`
	LastEntryTime   time.Time
	LastBarIndex    time.Time
	FlattenedToday  bool
	FlattenedDate   time.Time
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (strategyRow) TableName() string { return "strategy_state" }

// historyRow is one append-only trade-history entry.
type historyRow struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	StrategyName string    `gorm:"index;type:varchar(128);not null"`
	Seq          int       `gorm:"not null"`
	Timestamp    time.Time `gorm:"not null"`
	Kind         int       `gorm:"not null"`
	Price        string    `gorm:"type:varchar(64);not null"`
	RealizedPnL  string    `gorm:"type:varchar(64);not null"`
}

func (historyRow) TableName() string { return "trade_history" }

// cumulativePnLRow is one append-only running-total entry.
type cumulativePnLRow struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	StrategyName string `gorm:"index;type:varchar(128);not null"`
	Seq          int    `gorm:"not null"`
	Value        string `gorm:"type:varchar(64);not null"`
}

func (cumulativePnLRow) TableName() string { return "cumulative_pnl" }

// staticLevelRow is written once per strategy; the ladder is immutable
// thereafter.
type staticLevelRow struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	StrategyName string `gorm:"index;type:varchar(128);not null"`
	LevelIndex   int    `gorm:"not null"`
	Price        string `gorm:"type:varchar(64);not null"`
}

func (staticLevelRow) TableName() string { return "static_levels" }

// openTradeRow is replace-on-write: every save deletes and reinserts the
// full open-trade set for a strategy.
type openTradeRow struct {
	ID                   uint      `gorm:"primaryKey;autoIncrement"`
	StrategyName         string    `gorm:"index;type:varchar(128);not null"`
	EntryTime            time.Time `gorm:"not null"`
	EntryPrice           string    `gorm:"type:varchar(64);not null"`
	StopLevel            string    `gorm:"type:varchar(64);not null"`
	TrailingStop         *string   `gorm:"type:varchar(64)"`
	TriggeringLevelPrice string    `gorm:"type:varchar(64);not null"`
	TakeProfitLevel      string    `gorm:"type:varchar(64);not null"`
}

func (openTradeRow) TableName() string { return "open_trades" }

// retraceLevelRow is upserted by composite key (strategy, level index).
type retraceLevelRow struct {
	StrategyName string `gorm:"primaryKey;type:varchar(128)"`
	LevelIndex   int    `gorm:"primaryKey"`
	Direction    int    `gorm:"not null"`
}

func (retraceLevelRow) TableName() string { return "retrace_levels" }

// AllModels lists every table for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&strategyRow{},
		&historyRow{},
		&cumulativePnLRow{},
		&staticLevelRow{},
		&openTradeRow{},
		&retraceLevelRow{},
	}
}
