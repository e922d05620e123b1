package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Position struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	BuyPrice  decimal.Decimal `json:"buy_price"`
	BuyTime   time.Time       `json:"buy_time"`
	Quantity  int             `json:"quantity"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type PortfolioOverview struct {
	TotalInvestment            decimal.Decimal `json:"total_investment"`
	TotalCurrentValue          decimal.Decimal `json:"total_current_value"`
	TotalUnrealizedGain        decimal.Decimal `json:"total_unrealized_gain"`
	TotalUnrealizedGainPercent decimal.Decimal `json:"total_unrealized_gain_percent"`
	SellSignals                int             `json:"sell_signals"`
	BuySignals                 int             `json:"buy_signals"`
	TotalPositions             int             `json:"total_positions"`
	TotalSecurities            int             `json:"total_securities"`
	MeanReturnRate             float64         `json:"mean_return_rate"`
	ReturnRateStdDev           float64         `json:"return_rate_std_dev"`
}

// SecuritySummary aggregates all positions of one security code.
type SecuritySummary struct {
	Code                  string           `json:"code"`
	Name                  string           `json:"name"`
	TotalQuantity         int              `json:"total_quantity"`
	AveragePrice          decimal.Decimal  `json:"average_price"`
	CurrentPrice          decimal.Decimal  `json:"current_price"`
	TotalValue            decimal.Decimal  `json:"total_value"`
	UnrealizedGain        decimal.Decimal  `json:"unrealized_gain"`
	UnrealizedGainPercent decimal.Decimal  `json:"unrealized_gain_percent"`
	Signals               []PositionSignal `json:"signals,omitempty"`
}

type PositionSignal struct {
	PositionID  int64       `json:"position_id"`
	Signal      AlertSignal `json:"signal"`
	TargetPrice float64     `json:"target_price"`
}

// PositionPerformance is the per-position part of the analysis.
type PositionPerformance struct {
	Position         Position   `json:"position"`
	Evaluation       Evaluation `json:"evaluation"`
	ReturnRate       float64    `json:"return_rate"`
	ProfitAmount     float64    `json:"profit_amount"`
	AnnualizedReturn float64    `json:"annualized_return"`
}

type PortfolioAnalysis struct {
	Overview  PortfolioOverview     `json:"overview"`
	Summaries []SecuritySummary     `json:"summaries"`
	Positions []PositionPerformance `json:"positions"`
}
