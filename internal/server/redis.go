package server

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

// NewRedisClient connects to the configured Redis server. It returns nil when
// no address is configured or the server does not answer, which disables
// response caching.
func NewRedisClient(log zerolog.Logger, cfg *domain.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, response cache disabled")
		client.Close()
		return nil
	}

	log.Info().Str("addr", cfg.RedisAddr).Msg("Response cache enabled")
	return client
}
