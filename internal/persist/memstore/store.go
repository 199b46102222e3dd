// Package memstore is an in-process key/value store for persisted drawing state.
package memstore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/observability"
)

type Store struct {
	cache *expirable.LRU[string, []byte]
}

// New bounds the store to size entries; entries expire after ttl (0 disables expiry).
func New(size int, ttl time.Duration) *Store {
	if size <= 0 {
		size = 10000
	}
	return &Store{cache: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observability.ObserveStorageOp("get", err, time.Since(start).Seconds())
		return nil, false, err
	}
	v, ok := s.cache.Get(key)
	observability.ObserveStorageOp("get", nil, time.Since(start).Seconds())
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// MGet returns copies of the values found for keys.
func (s *Store) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observability.ObserveStorageOp("mget", err, time.Since(start).Seconds())
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := s.cache.Get(k); ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	observability.ObserveStorageOp("mget", nil, time.Since(start).Seconds())
	return out, nil
}

// Set ignores ttl; the store-wide expiry applies.
func (s *Store) Set(ctx context.Context, key string, val []byte, _ time.Duration) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observability.ObserveStorageOp("set", err, time.Since(start).Seconds())
		return err
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	s.cache.Add(key, cp)
	observability.ObserveStorageOp("set", nil, time.Since(start).Seconds())
	return nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observability.ObserveStorageOp("del", err, time.Since(start).Seconds())
		return err
	}
	for _, k := range keys {
		s.cache.Remove(k)
	}
	observability.ObserveStorageOp("del", nil, time.Since(start).Seconds())
	return nil
}

func (s *Store) Len() int { return s.cache.Len() }
