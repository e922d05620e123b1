package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const quoteKeyPrefix = "quote:"

// RedisCache keeps recently fetched live quotes for a short time.
type RedisCache struct {
	redis      *redis.Client
	expiration time.Duration
}

func NewRedisCache(redisClient *redis.Client, expiration time.Duration) *RedisCache {
	return &RedisCache{redis: redisClient, expiration: expiration}
}

func QuoteKey(code string) string {
	return quoteKeyPrefix + code
}

func (r *RedisCache) SetQuote(ctx context.Context, quote model.Quote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetQuote start", slog.String("rqID", rqID), slog.String("code", quote.Code))

	raw, err := EncodeQuote(quote)
	if err != nil {
		slog.Error("can't marshall quote in SetQuote", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.Any("quote", quote))
		return err
	}

	err = r.redis.Set(ctx, QuoteKey(quote.Code), raw, r.expiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetQuote completed", slog.String("rqID", rqID))

	return nil
}

// GetQuote returns redis.Nil when the quote is not cached.
func (r *RedisCache) GetQuote(ctx context.Context, code string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("code", code))

	raw, err := r.redis.Get(ctx, QuoteKey(code)).Bytes()
	if err != nil {
		return model.Quote{}, err
	}

	quote, err := DecodeQuote(raw)
	if err != nil {
		slog.Error("can't unmarshall quote in GetQuote", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	slog.Debug("GetQuote finished", slog.String("rqID", rqID))

	return quote, nil
}

func EncodeQuote(quote model.Quote) ([]byte, error) {
	raw, err := msgpack.Marshal(quote)
	if err != nil {
		return nil, fmt.Errorf("marshal quote %s: %w", quote.Code, err)
	}
	return raw, nil
}

func DecodeQuote(raw []byte) (model.Quote, error) {
	quote := model.Quote{}
	if err := msgpack.Unmarshal(raw, &quote); err != nil {
		return model.Quote{}, fmt.Errorf("unmarshal quote: %w", err)
	}
	return quote, nil
}
