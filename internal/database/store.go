package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Store owns the process's storage connections. It is built once in main and
// handed to every component that needs storage.
type Store struct {
	Postgres *pgxpool.Pool
	Redis    *redis.Client
}

// Open connects to Postgres and Redis, failing if either is unreachable.
func Open(ctx context.Context, databaseURL, redisURL string, opts Options, log *slog.Logger) (*Store, error) {
	pool, err := NewPostgresPool(ctx, databaseURL, opts)
	if err != nil {
		return nil, err
	}
	log.Info("postgres pool created", "max_conns", pool.Config().MaxConns)

	client, err := NewRedisClient(ctx, redisURL, opts)
	if err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("redis client created")

	return &Store{Postgres: pool, Redis: client}, nil
}

// Health pings both backends and returns the first failure.
func (s *Store) Health(ctx context.Context) error {
	if err := s.Postgres.Ping(ctx); err != nil {
		return fmt.Errorf("postgres unavailable: %w", err)
	}
	if err := s.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s.Redis != nil {
		s.Redis.Close()
	}
	if s.Postgres != nil {
		s.Postgres.Close()
	}
}
