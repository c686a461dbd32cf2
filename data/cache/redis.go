package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"aegis/config"
	"aegis/internal/model/marketModel"
	"aegis/utils"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("error not found")

const quoteKeyPrefix = "quote:"

// RedisCache keeps recently fetched market quotes. Only live quotes are
// cached, never derived ledger state - that is always recomputed from the
// event logs.
type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) SetQuote(ctx context.Context, quote marketModel.Quote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetQuote start", slog.String("rqID", rqID))

	quoteJson, err := json.Marshal(quote)
	if err != nil {
		slog.Error(
			"can't marshall quote in SetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.Any("quote", quote),
		)
		return errors.New("can't marshall quote")
	}

	_, err = r.redis.Set(ctx, quoteKeyPrefix+quote.Ticker, quoteJson, r.cfg.Cache.QuotesExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("ticker", quote.Ticker))
		return err
	}

	slog.Debug("SetQuote completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetQuote(ctx context.Context, ticker string) (marketModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuote start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, quoteKeyPrefix+ticker).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return marketModel.Quote{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("ticker", ticker))
		return marketModel.Quote{}, err
	}

	quote := marketModel.Quote{}
	err = json.Unmarshal([]byte(res), &quote)
	if err != nil {
		slog.Error(
			"can't unmarshall quote in GetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return marketModel.Quote{}, errors.New("can't unmarshall quote")
	}

	slog.Debug("GetQuote finished", slog.String("rqID", rqID))

	return quote, nil
}
