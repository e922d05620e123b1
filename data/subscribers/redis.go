package subscribers

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/KotFed0t/price_alert_bot/data/repository"
	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/redis/go-redis/v9"
)

const subscribersKey = "alert_subscribers"

// RedisSubscribers is the set of Telegram chats that receive alerts.
type RedisSubscribers struct {
	redis *redis.Client
}

func NewRedisSubscribers(redisClient *redis.Client) *RedisSubscribers {
	return &RedisSubscribers{redis: redisClient}
}

func (r *RedisSubscribers) Add(ctx context.Context, chatID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("Subscribers.Add start", slog.String("rqID", rqID), slog.Int64("chatID", chatID))

	added, err := r.redis.SAdd(ctx, subscribersKey, chatID).Result()
	if err != nil {
		slog.Error("failed on redis.SAdd", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}
	if added == 0 {
		return repository.ErrAlreadyExists
	}

	slog.Debug("Subscribers.Add completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisSubscribers) Remove(ctx context.Context, chatID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("Subscribers.Remove start", slog.String("rqID", rqID), slog.Int64("chatID", chatID))

	removed, err := r.redis.SRem(ctx, subscribersKey, chatID).Result()
	if err != nil {
		slog.Error("failed on redis.SRem", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}
	if removed == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *RedisSubscribers) List(ctx context.Context) ([]int64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	members, err := r.redis.SMembers(ctx, subscribersKey).Result()
	if err != nil {
		slog.Error("failed on redis.SMembers", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil, err
	}

	return ParseChatIDs(members), nil
}

// ParseChatIDs skips members that are not integers.
func ParseChatIDs(members []string) []int64 {
	res := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			slog.Warn("bad subscriber id in redis", slog.String("member", m))
			continue
		}
		res = append(res, id)
	}
	return res
}
