package persistence

import (
	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/config"
	"github.com/spec-kit/diagnostic-login/internal/repository"
)

// Stores bundles the repositories the auth service runs on.
type Stores struct {
	Users     repository.UserRepository
	Exchanges repository.ExchangeRepository
}

// NewStores picks a backend per repository: users live in Postgres when a pool
// exists; codes live in Redis first, then Postgres. Anything else falls back to
// process memory.
func NewStores(pg *Postgres, rdb *Redis, cfg config.RedisConfig, logger *zap.Logger) Stores {
	var stores Stores

	if pg.Configured() {
		stores.Users = repository.NewUserRepository(pg.PoolHandle())
	} else {
		logger.Warn("using in-memory user repository")
		stores.Users = repository.NewMemoryUserRepository()
	}

	switch {
	case rdb.Configured():
		stores.Exchanges = repository.NewRedisExchangeRepository(rdb.Client, cfg.KeyPrefix)
	case pg.Configured():
		stores.Exchanges = repository.NewPostgresExchangeRepository(pg.PoolHandle())
	default:
		logger.Warn("using in-memory exchange code repository")
		stores.Exchanges = repository.NewMemoryExchangeRepository()
	}

	return stores
}
