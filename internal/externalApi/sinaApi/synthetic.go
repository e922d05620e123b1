package sinaApi

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/KotFed0t/price_alert_bot/internal/model"
)

const (
	maxFluctuation   = 0.05
	unknownBaseMin   = 10.0
	unknownBaseRange = 5.0
	unknownName      = "Unknown security"
)

type seedQuote struct {
	name  string
	price float64
	open  float64
	high  float64
	low   float64
}

var seedQuotes = map[string]seedQuote{
	"000001": {"平安银行", 12.50, 12.30, 12.80, 12.20},
	"000002": {"万科A", 8.80, 8.75, 8.95, 8.70},
	"600036": {"招商银行", 35.20, 35.00, 35.50, 34.80},
	"000858": {"五粮液", 168.50, 167.20, 170.30, 166.80},
	"600519": {"贵州茅台", 1680.00, 1675.50, 1695.20, 1670.30},
	"002415": {"海康威视", 42.30, 42.10, 43.20, 41.80},
	"600276": {"恒瑞医药", 58.90, 58.50, 59.80, 58.20},
}

var unknownSeed = seedQuote{name: unknownName, open: 10.0, high: 11.0, low: 9.5}

// SyntheticQuoteGenerator fabricates plausible quotes while the feed is down.
// Safe for concurrent use.
type SyntheticQuoteGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewSyntheticQuoteGenerator() *SyntheticQuoteGenerator {
	seed := uint64(time.Now().UnixNano())
	return &SyntheticQuoteGenerator{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: time.Now,
	}
}

func (g *SyntheticQuoteGenerator) float() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Float64()
}

// Quote returns a quote for code. The price deviates from the seed by at most 5%.
func (g *SyntheticQuoteGenerator) Quote(code string) model.Quote {
	seed, ok := seedQuotes[code]
	if !ok {
		seed = unknownSeed
		seed.price = unknownBaseMin + g.float()*unknownBaseRange
	}

	price := seed.price * (1 + (g.float()-0.5)*2*maxFluctuation)

	return model.Quote{
		Code:      code,
		Name:      seed.name,
		Price:     price,
		PrevClose: seed.price,
		Open:      seed.open,
		High:      math.Max(seed.high, price),
		Low:       math.Min(seed.low, price),
		Volume:    int64(g.float() * 1_000_000),
		Turnover:  int64(g.float() * 100_000_000),
		Timestamp: g.now(),
	}
}
