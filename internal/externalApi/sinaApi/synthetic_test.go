package sinaApi

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticQuote_SeededWithinBounds(t *testing.T) {
	g := NewSyntheticQuoteGenerator()

	for code, seed := range seedQuotes {
		for range 50 {
			q := g.Quote(code)

			assert.Equal(t, code, q.Code)
			assert.Equal(t, seed.name, q.Name)
			assert.Equal(t, seed.price, q.PrevClose)
			assert.GreaterOrEqual(t, q.Price, seed.price*(1-maxFluctuation))
			assert.LessOrEqual(t, q.Price, seed.price*(1+maxFluctuation))
			assert.GreaterOrEqual(t, q.High, q.Price)
			assert.LessOrEqual(t, q.Low, q.Price)
		}
	}
}

func TestSyntheticQuote_UnknownCode(t *testing.T) {
	g := NewSyntheticQuoteGenerator()

	for range 100 {
		q := g.Quote("123456")

		assert.Equal(t, unknownName, q.Name)
		assert.GreaterOrEqual(t, q.PrevClose, unknownBaseMin)
		assert.Less(t, q.PrevClose, unknownBaseMin+unknownBaseRange)
		assert.Greater(t, q.Price, 0.0)
		assert.LessOrEqual(t, q.Price, (unknownBaseMin+unknownBaseRange)*(1+maxFluctuation))
	}
}

func TestSyntheticQuote_RoundTrip(t *testing.T) {
	g := NewSyntheticQuoteGenerator()
	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	g.now = func() time.Time { return ts }

	for _, code := range []string{"600519", "000001", "300750"} {
		q := g.Quote(code)

		decoded, err := DecodeQuote(code, EncodeQuote(q), ts)
		require.NoError(t, err)

		assert.Equal(t, q.Name, decoded.Name)
		assert.InDelta(t, q.Price, decoded.Price, 1e-9)
		assert.InDelta(t, q.Open, decoded.Open, 1e-9)
		assert.InDelta(t, q.PrevClose, decoded.PrevClose, 1e-9)
		assert.InDelta(t, q.High, decoded.High, 1e-9)
		assert.InDelta(t, q.Low, decoded.Low, 1e-9)
		assert.Equal(t, q.Volume, decoded.Volume)
		assert.Equal(t, q.Turnover, decoded.Turnover)
	}
}

func TestSyntheticQuote_Concurrent(t *testing.T) {
	g := NewSyntheticQuoteGenerator()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				assert.Greater(t, g.Quote("600036").Price, 0.0)
			}
		}()
	}
	wg.Wait()
}
