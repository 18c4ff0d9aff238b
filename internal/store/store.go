// Package store is the persistent key/value collaborator used by command
// handlers (per-user greetings). The bridge core never touches it.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownBackend = errors.New("store: unknown backend")
	ErrEmptyKey       = errors.New("store: empty key")
)

// Store is a string key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open picks a backend from the DSN scheme:
//
//	""  | memory:                 in-process map
//	sqlite:<path>                 SQLite file
//	postgres:// | postgresql://   PostgreSQL pool
//	redis:// | rediss://          Redis
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "" || dsn == "memory:" || dsn == "memory":
		return NewMemory(), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return NewSQLite(ctx, strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//"))
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgres(ctx, dsn)
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return NewRedis(ctx, dsn)
	default:
		scheme, _, _ := strings.Cut(dsn, ":")
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, scheme)
	}
}

// Backend names the store implementation for logs and status output.
func Backend(s Store) string {
	switch s.(type) {
	case *Memory:
		return "memory"
	case *SQLite:
		return "sqlite"
	case *Postgres:
		return "postgres"
	case *Redis:
		return "redis"
	case nil:
		return "none"
	default:
		return "custom"
	}
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}
