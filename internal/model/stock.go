package model

import "time"

// Quote is a market snapshot of one security. Change and ChangePercent are
// always derived from Price and PrevClose.
type Quote struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	PrevClose float64   `json:"prev_close"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Volume    int64     `json:"volume"`
	Turnover  int64     `json:"turnover"`
	Timestamp time.Time `json:"timestamp"`
}

func (q Quote) Change() float64 {
	return q.Price - q.PrevClose
}

func (q Quote) ChangePercent() float64 {
	if q.PrevClose <= 0 {
		return 0
	}
	return q.Change() / q.PrevClose * 100
}

type Market string

const (
	MarketShanghai Market = "SH"
	MarketShenzhen Market = "SZ"
	MarketOther    Market = "OTHER"
)

// Security is a directory entry returned by the security search.
type Security struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market Market `json:"market"`
	Type   string `json:"type,omitempty"`
}
