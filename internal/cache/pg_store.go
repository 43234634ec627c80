package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrCacheMiss is returned when a key is not found in cache
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheExpired is returned when a cached value has expired
	ErrCacheExpired = errors.New("cache expired")
)

// DB is satisfied by pgxpool.Pool and pgxmock.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// PGStore keeps encoded embeddings in the cache_entries table.
type PGStore struct {
	db DB
}

func NewPGStore(db DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value, expires_at
		FROM cache_entries
		WHERE key = $1
	`

	var value []byte
	var expiresAt time.Time

	err := s.db.QueryRow(ctx, query, key).Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	if time.Now().After(expiresAt) {
		_ = s.Delete(ctx, key)
		return nil, ErrCacheExpired
	}

	return value, nil
}

func (s *PGStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
	`

	_, err := s.db.Exec(ctx, query, key, value, time.Now().Add(ttl))
	return err
}

func (s *PGStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, key)
	return err
}

// DeleteAll removes every embedding entry and returns how many were dropped.
func (s *PGStore) DeleteAll(ctx context.Context) (int64, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM cache_entries WHERE key LIKE $1`, keyPrefix+"%")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (s *PGStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Janitor periodically purges expired durable entries.
type Janitor struct {
	store    *PGStore
	logger   *slog.Logger
	interval time.Duration
	done     chan struct{}
}

func NewJanitor(store *PGStore, logger *slog.Logger, interval time.Duration) *Janitor {
	if interval == 0 {
		interval = time.Hour
	}
	return &Janitor{
		store:    store,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("cache janitor started", "interval", j.interval)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cache janitor stopped")
			return
		case <-j.done:
			j.logger.Info("cache janitor stopped")
			return
		case <-ticker.C:
			deleted, err := j.store.CleanupExpired(ctx)
			if err != nil {
				j.logger.Error("failed to purge expired cache entries", "error", err)
			} else if deleted > 0 {
				j.logger.Info("purged expired cache entries", "count", deleted)
			}
		}
	}
}

func (j *Janitor) Stop() {
	close(j.done)
}
