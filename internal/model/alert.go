package model

import "fmt"

// AlertSignal is the outcome of comparing a live price against the targets.
type AlertSignal int

const (
	SignalNone AlertSignal = iota
	SignalSell
	SignalBuy
)

func (s AlertSignal) String() string {
	switch s {
	case SignalSell:
		return "sell"
	case SignalBuy:
		return "buy"
	default:
		return "none"
	}
}

func (s AlertSignal) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *AlertSignal) UnmarshalText(text []byte) error {
	switch string(text) {
	case "sell":
		*s = SignalSell
	case "buy":
		*s = SignalBuy
	case "none":
		*s = SignalNone
	default:
		return fmt.Errorf("unknown alert signal %q", text)
	}
	return nil
}

type TargetThresholds struct {
	SellTarget float64 `json:"sell_target"`
	BuyTarget  float64 `json:"buy_target"`
}

// ScanSettings are the fractions used by the target price formulas.
type ScanSettings struct {
	BuyStep          float64 `json:"buy_step_percentage"`
	AnnualReturnRate float64 `json:"annual_return_rate"`
}

// Evaluation is the result of evaluating one position against its targets.
type Evaluation struct {
	TargetThresholds
	DaysHeld     int64       `json:"days_held"`
	CurrentPrice *float64    `json:"current_price,omitempty"`
	Signal       AlertSignal `json:"signal"`
}

// AlertEvent lives for one scan only and is never persisted.
type AlertEvent struct {
	Position Position    `json:"position"`
	Signal   AlertSignal `json:"signal"`
	Target   float64     `json:"target"`
	Price    float64     `json:"price"`
	Message  string      `json:"message"`
}

func (e AlertEvent) Title() string {
	if e.Signal == SignalSell {
		return "🔔 Sell alert"
	}
	return "🔔 Buy alert"
}

func AlertMessage(p Position, signal AlertSignal, target, price float64) string {
	return fmt.Sprintf("%s(%s) reached %s target ¥%.2f, current price ¥%.2f", p.Name, p.Code, signal, target, price)
}
