package main

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/velocity-backend/internal/cart"
	"github.com/angelmondragon/velocity-backend/internal/catalog"
	"github.com/angelmondragon/velocity-backend/pkg/config"
	"github.com/angelmondragon/velocity-backend/pkg/db"
	"github.com/angelmondragon/velocity-backend/pkg/logger"
	"github.com/angelmondragon/velocity-backend/pkg/migrate"
	"github.com/angelmondragon/velocity-backend/pkg/redis"
)

// stack is the storage side of the service, chosen once at startup.
type stack struct {
	backend string
	store   cart.Store
	catalog catalog.Reader
	locker  cart.Locker
	db      *db.Client
	redis   *redis.Client
}

func buildStack(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*stack, error) {
	s := &stack{}

	switch cfg.Cart.StoreBackend {
	case config.StoreBackendMemory:
		if err := s.useMemory(ctx, cfg, logg); err != nil {
			return nil, err
		}
	case config.StoreBackendPostgres:
		if err := s.useDatabase(ctx, cfg, logg); err != nil {
			return nil, err
		}
	default:
		if err := s.useDatabase(ctx, cfg, logg); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "cart database unavailable, falling back to in-memory carts")
			if err := s.useMemory(ctx, cfg, logg); err != nil {
				return nil, err
			}
		}
	}

	if err := s.useLocker(ctx, cfg, logg); err != nil {
		_ = s.close()
		return nil, err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"store": s.backend,
		"lock":  cfg.Cart.LockBackend,
	}), "cart stack ready")
	return s, nil
}

func (s *stack) useDatabase(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
		_ = client.Close()
		return fmt.Errorf("run dev migrations: %w", err)
	}
	s.db = client
	s.backend = cfg.DB.Driver
	s.store = cart.NewGormStore(client.DB())
	s.catalog = catalog.NewRepository(client.DB())
	return nil
}

func (s *stack) useMemory(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	var products []catalog.Product
	if path := cfg.Cart.CatalogSeedFile; path != "" {
		seeded, err := catalog.LoadSeedFile(path)
		if err != nil {
			return fmt.Errorf("load catalog seed: %w", err)
		}
		products = seeded
		logg.Info(logg.WithFields(ctx, map[string]any{"path": path, "products": len(products)}), "catalog seeded")
	}
	s.backend = config.StoreBackendMemory
	s.store = cart.NewMemoryStore()
	s.catalog = catalog.NewMemoryReader(products...)
	return nil
}

func (s *stack) useLocker(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	if cfg.Cart.LockBackend != config.LockBackendRedis {
		s.locker = cart.NewLocalLocker()
		return nil
	}
	client, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	locker, err := cart.NewRedisLocker(client, cfg.Cart.LockTTL)
	if err != nil {
		_ = client.Close()
		return err
	}
	s.redis = client
	s.locker = locker
	return nil
}

// optionalRedis connects to redis for idempotent replays when it is
// configured but not already in use for locks. Failure only disables replays.
func (s *stack) optionalRedis(ctx context.Context, cfg *config.Config, logg *logger.Logger) {
	if s.redis != nil || !cfg.Redis.Enabled() {
		return
	}
	client, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "redis unavailable, idempotent replays disabled")
		return
	}
	s.redis = client
}

func (s *stack) close() error {
	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return multierr.Combine(errs...)
}
