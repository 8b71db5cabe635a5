package ioc

import (
	"context"
	"fmt"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/config"
	"github.com/redis/go-redis/v9"
)

func InitRedis(cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Errorf("connect redis %s: %w", cfg.Addr, err))
	}
	return client
}
