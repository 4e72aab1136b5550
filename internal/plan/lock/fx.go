package lock

import (
	"github.com/railzwaylabs/plansync/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("plan.lock",
	fx.Provide(Provide),
)

func Provide(cfg config.Config, client *redis.Client, log *zap.Logger) Locker {
	if client == nil {
		log.Named("plan.lock").Info("redis not configured, sync runs are not serialized")
		return NopLocker{}
	}
	return NewRedisLocker(client, cfg.Redis.LockTTL)
}
