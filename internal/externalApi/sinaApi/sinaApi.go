package sinaApi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/price_alert_bot/config"
	"github.com/KotFed0t/price_alert_bot/internal/externalApi"
	"github.com/KotFed0t/price_alert_bot/internal/metrics"
	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/go-resty/resty/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/time/rate"
)

const codeLength = 6

type QuoteCache interface {
	GetQuote(ctx context.Context, code string) (model.Quote, error)
	SetQuote(ctx context.Context, quote model.Quote) error
}

// SinaApi serves quotes from the sina text feed. Feed failures never reach
// the caller: a synthetic quote is returned instead.
type SinaApi struct {
	client    *resty.Client
	synthetic *SyntheticQuoteGenerator
	cache     QuoteCache
	limiter   *rate.Limiter
	now       func() time.Time
}

// New builds the client. cache may be nil.
func New(cfg *config.Config, synthetic *SyntheticQuoteGenerator, cache QuoteCache) *SinaApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.SinaApi.Url).
		SetHeader("User-Agent", cfg.API.SinaApi.UserAgent)

	if cfg.API.SinaApi.Referer != "" {
		client.SetHeader("Referer", cfg.API.SinaApi.Referer)
	}

	limit := rate.Inf
	if cfg.API.SinaApi.RateLimit > 0 {
		limit = rate.Limit(cfg.API.SinaApi.RateLimit)
	}

	return &SinaApi{
		client:    client,
		synthetic: synthetic,
		cache:     cache,
		limiter:   rate.NewLimiter(limit, max(cfg.API.SinaApi.RateBurst, 1)),
		now:       time.Now,
	}
}

// Validate reports whether code is exactly six ASCII digits. No I/O.
func (a *SinaApi) Validate(code string) bool {
	return ValidCode(code)
}

func ValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func (a *SinaApi) Fetch(ctx context.Context, code string) model.Quote {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SinaApi.Fetch"

	if q, ok := a.cachedQuote(ctx, code); ok {
		return q
	}

	raw, err := a.fetchRaw(ctx, code)
	var q model.Quote
	if err == nil {
		q, err = DecodeQuote(code, raw, a.now())
	}
	if err != nil {
		slog.Warn("quote feed failed, using synthetic quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", code), slog.String("err", err.Error()))
		metrics.QuoteFetches.WithLabelValues(metrics.SourceSynthetic).Inc()
		return a.synthetic.Quote(code)
	}

	metrics.QuoteFetches.WithLabelValues(metrics.SourceLive).Inc()

	if a.cache != nil {
		if err := a.cache.SetQuote(ctx, q); err != nil {
			slog.Warn("can't cache quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", code), slog.String("err", err.Error()))
		}
	}

	return q
}

// FetchPrice returns only the current price, using the price-only decoding.
func (a *SinaApi) FetchPrice(ctx context.Context, code string) float64 {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SinaApi.FetchPrice"

	if q, ok := a.cachedQuote(ctx, code); ok {
		return q.Price
	}

	raw, err := a.fetchRaw(ctx, code)
	var price float64
	if err == nil {
		price, err = DecodePrice(raw)
	}
	if err != nil {
		slog.Warn("price feed failed, using synthetic price", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", code), slog.String("err", err.Error()))
		metrics.QuoteFetches.WithLabelValues(metrics.SourceSynthetic).Inc()
		return a.synthetic.Quote(code).Price
	}

	metrics.QuoteFetches.WithLabelValues(metrics.SourceLive).Inc()

	return price
}

func (a *SinaApi) cachedQuote(ctx context.Context, code string) (model.Quote, bool) {
	if a.cache == nil {
		return model.Quote{}, false
	}

	q, err := a.cache.GetQuote(ctx, code)
	if err != nil {
		slog.Debug("quote cache miss", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("code", code), slog.String("err", err.Error()))
		return model.Quote{}, false
	}

	metrics.QuoteFetches.WithLabelValues(metrics.SourceCache).Inc()
	return q, true
}

// fetchRaw performs the GET and returns the body decoded from GBK.
func (a *SinaApi) fetchRaw(ctx context.Context, code string) (string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start SinaApi request", slog.String("rqID", rqID), slog.String("code", code))

	if err := a.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %w", externalApi.ErrNetworkFailure, err)
	}

	resp, err := a.client.R().
		SetContext(ctx).
		Get("/list=" + VenueCode(code))
	if err != nil {
		return "", fmt.Errorf("%w: %w", externalApi.ErrNetworkFailure, err)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: unexpected status %d", externalApi.ErrNetworkFailure, resp.StatusCode())
	}

	body, err := simplifiedchinese.GBK.NewDecoder().Bytes(resp.Body())
	if err != nil {
		return "", fmt.Errorf("%w: %w", externalApi.ErrMalformedFeed, err)
	}

	slog.Debug("SinaApi request complete", slog.String("rqID", rqID), slog.String("code", code))

	return string(body), nil
}
