package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/yungbote/identity-backend/internal/clients/redis"
	"github.com/yungbote/identity-backend/internal/platform/logger"
)

type Clients struct {
	Redis  *goredis.Client
	Locker redisclient.Locker
}

func wireClients(ctx context.Context, log *logger.Logger, cfg RedisConfig) (Clients, error) {
	log.Info("Wiring clients...")

	rdb, err := redisclient.NewClient(ctx, log, redisclient.ClientConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	if rdb == nil {
		log.Info("redis not configured, observation locks disabled")
		return Clients{Locker: redisclient.NoopLocker{}}, nil
	}
	return Clients{
		Redis:  rdb,
		Locker: redisclient.NewLocker(rdb, log, redisclient.LockConfig{TTL: cfg.LockTTL, Wait: cfg.LockWait}),
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
