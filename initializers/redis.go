package initializers

import (
	"context"

	"proposal-pipeline-backend/config"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func InitRedis(ctx context.Context, cfg *config.Configuration) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.RedisDialTimeout(),
	})
	pingCtx, cancel := context.WithTimeout(ctx, cfg.RedisDialTimeout())
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ошибка подключения к redis")
	}
	log.WithField("addr", cfg.Redis.Addr).Info("Сервис успешно подключен к redis")
	return client, nil
}
