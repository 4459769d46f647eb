// Package badger persists translated queries in an embedded Badger database.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/shelfchat/shelfchat/internal/config"
	"github.com/shelfchat/shelfchat/internal/observability"
)

const keyPrefix = "nl2gql/"

type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

func Open(cfg config.CacheConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	var options badger.Options
	if cfg.InMemory {
		options = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir := strings.TrimSpace(cfg.Dir)
		if dir == "" {
			return nil, fmt.Errorf("cache dir is required")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		options = badger.DefaultOptions(dir)
	}
	options = options.WithLogger(nil)

	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	logger.Debug("translation cache opened", slog.Bool("in_memory", cfg.InMemory), slog.String("dir", cfg.Dir), slog.Duration("ttl", cfg.TTL))
	return &Store{db: db, ttl: cfg.TTL, logger: logger}, nil
}

// Get returns the cached value for key. Expired entries report a miss.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cache entry: %w", err)
	}
	return string(value), true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(keyPrefix+key), []byte(value))
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("write cache entry: %w", err)
		}
		return nil
	})
}

// Purge drops every cached translation, e.g. after a schema change.
func (s *Store) Purge() error {
	if err := s.db.DropPrefix([]byte(keyPrefix)); err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
