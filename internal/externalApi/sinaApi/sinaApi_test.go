package sinaApi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KotFed0t/price_alert_bot/config"
	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const testUserAgent = "price-alert-test"

type mockQuoteCache struct {
	mu     sync.Mutex
	quotes map[string]model.Quote
	sets   int
}

func newMockQuoteCache() *mockQuoteCache {
	return &mockQuoteCache{quotes: make(map[string]model.Quote)}
}

func (m *mockQuoteCache) GetQuote(_ context.Context, code string) (model.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[code]
	if !ok {
		return model.Quote{}, errors.New("miss")
	}
	return q, nil
}

func (m *mockQuoteCache) SetQuote(_ context.Context, q model.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[q.Code] = q
	m.sets++
	return nil
}

func newTestApi(t *testing.T, handler http.HandlerFunc, cache QuoteCache) (*SinaApi, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		API: config.API{
			Timeout: 2 * time.Second,
			SinaApi: config.SinaApi{
				Url:       srv.URL,
				Referer:   "https://finance.sina.com.cn",
				UserAgent: testUserAgent,
			},
		},
	}

	return New(cfg, NewSyntheticQuoteGenerator(), cache), srv
}

func gbkBody(t *testing.T, s string) []byte {
	t.Helper()
	b, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestFetch_Live(t *testing.T) {
	body := gbkBody(t, `var hq_str_sh600519="贵州茅台,1675.50,1670.00,1688.00,1695.20,1670.30,1687.9,1688.0,32000,54000000.000,2024-01-15,15:00:00";`)

	var gotPath, gotUA, gotReferer string
	api, _ := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		_, _ = w.Write(body)
	}, nil)

	q := api.Fetch(context.Background(), "600519")

	assert.Equal(t, "/list=sh600519", gotPath)
	assert.Equal(t, testUserAgent, gotUA)
	assert.Equal(t, "https://finance.sina.com.cn", gotReferer)
	assert.Equal(t, "贵州茅台", q.Name)
	assert.Equal(t, 1688.00, q.Price)
	assert.Equal(t, 1670.00, q.PrevClose)
	assert.Equal(t, int64(32000), q.Volume)
}

func TestFetch_FallbackOnServerError(t *testing.T) {
	api, _ := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	q := api.Fetch(context.Background(), "600519")

	assert.Equal(t, "600519", q.Code)
	assert.Equal(t, "贵州茅台", q.Name)
	assert.InDelta(t, 1680.0, q.Price, 1680.0*maxFluctuation)
}

func TestFetch_FallbackOnMalformedBody(t *testing.T) {
	api, _ := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("no quotes here"))
	}, nil)

	q := api.Fetch(context.Background(), "999999")

	assert.Equal(t, unknownName, q.Name)
	assert.Greater(t, q.Price, 0.0)
}

func TestFetch_FallbackOnEmptyQuote(t *testing.T) {
	api, _ := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`var hq_str_sh999999="";`))
	}, nil)

	q := api.Fetch(context.Background(), "999999")

	assert.Equal(t, "999999", q.Code)
	assert.Greater(t, q.Price, 0.0)
}

func TestFetch_FallbackOnUnreachableHost(t *testing.T) {
	api, srv := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
	srv.Close()

	q := api.Fetch(context.Background(), "000001")

	assert.Equal(t, "平安银行", q.Name)
	assert.InDelta(t, 12.50, q.Price, 12.50*maxFluctuation)
}

func TestFetch_CacheHit(t *testing.T) {
	var calls atomic.Int32
	cache := newMockQuoteCache()
	cache.quotes["600036"] = model.Quote{Code: "600036", Name: "cached", Price: 36.6}

	api, _ := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, cache)

	q := api.Fetch(context.Background(), "600036")

	assert.Equal(t, "cached", q.Name)
	assert.Equal(t, 36.6, q.Price)
	assert.Equal(t, int32(0), calls.Load())
}

func TestFetch_LiveQuoteIsCached(t *testing.T) {
	body := gbkBody(t, `var hq_str_sz000002="万科A,8.75,8.70,8.80,8.95,8.70,8.79,8.80,100,880.000,2024-01-15,15:00:00";`)

	var calls atomic.Int32
	cache := newMockQuoteCache()
	api, _ := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(body)
	}, cache)

	first := api.Fetch(context.Background(), "000002")
	second := api.Fetch(context.Background(), "000002")

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, cache.sets)
}

func TestFetch_SyntheticQuoteIsNotCached(t *testing.T) {
	cache := newMockQuoteCache()
	api, _ := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, cache)

	_ = api.Fetch(context.Background(), "600276")

	assert.Equal(t, 0, cache.sets)
}

func TestFetchPrice(t *testing.T) {
	api, _ := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(gbkBody(t, `var hq_str_sz000858="五粮液,167.20,168.00,170.10";`))
	}, nil)

	assert.Equal(t, 170.10, api.FetchPrice(context.Background(), "000858"))
}

func TestFetchPrice_Fallback(t *testing.T) {
	api, _ := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`var hq_str_sz000858="五粮液,167.20,168.00,abc";`))
	}, nil)

	price := api.FetchPrice(context.Background(), "000858")

	assert.InDelta(t, 168.50, price, 168.50*maxFluctuation)
}

func TestValidate(t *testing.T) {
	api := &SinaApi{}

	tests := []struct {
		code string
		want bool
	}{
		{"600519", true},
		{"000001", true},
		{"60051", false},
		{"6005190", false},
		{"60051a", false},
		{"", false},
		{"６００５１９", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, api.Validate(tt.code))
		})
	}
}

func TestFetch_RateLimitedFallsBack(t *testing.T) {
	var calls atomic.Int32
	body := gbkBody(t, `var hq_str_sh600036="招商银行,35.00,35.10,35.20,35.50,34.80,35.19,35.20,100,3520.000,2024-01-15,15:00:00";`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{API: config.API{
		Timeout: 2 * time.Second,
		SinaApi: config.SinaApi{Url: srv.URL, UserAgent: testUserAgent, RateLimit: 0.001, RateBurst: 1},
	}}
	api := New(cfg, NewSyntheticQuoteGenerator(), nil)

	first := api.Fetch(context.Background(), "600036")
	assert.Equal(t, 35.20, first.Price)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	second := api.Fetch(ctx, "600036")
	assert.Equal(t, "招商银行", second.Name)
	assert.Equal(t, 35.20, second.PrevClose)
	assert.Equal(t, int32(1), calls.Load())
}
