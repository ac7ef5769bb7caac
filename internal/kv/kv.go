// Package kv is the client-local key/value store behind the movie history
// and enrichment caches.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Store holds whole values under string keys. Set overwrites.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Options selects a backend: Redis when RedisURL is set, then SQLite when
// SQLitePath is set, otherwise memory.
type Options struct {
	RedisURL   string
	SQLitePath string
	Log        *zap.Logger
}

// Open returns the backend chosen by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	switch {
	case opts.RedisURL != "":
		s, err := OpenRedis(ctx, opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis kv: %w", err)
		}
		log.Info("kv store: redis")
		return s, nil
	case opts.SQLitePath != "":
		s, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite kv: %w", err)
		}
		log.Info("kv store: sqlite", zap.String("path", opts.SQLitePath))
		return s, nil
	}
	log.Warn("kv store: in-memory, cached data is lost on restart")
	return NewMemory(), nil
}

// GetJSON decodes the value at key into dest. It reports false when the key
// is absent.
func GetJSON(ctx context.Context, s Store, key string, dest any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, b)
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
