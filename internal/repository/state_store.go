package repository

import (
	"context"
	"errors"

	"QuantDesk/internal/domain/repository"
	"QuantDesk/pkg/cache"
)

// CacheStateStore persists dashboard state in a cache backend. Entries never expire.
type CacheStateStore struct {
	c cache.Service
}

var _ repository.StateStore = (*CacheStateStore)(nil)

func NewCacheStateStore(c cache.Service) *CacheStateStore {
	return &CacheStateStore{c: c}
}

func (s *CacheStateStore) Load(ctx context.Context, key string) (string, bool, error) {
	var v string
	if err := s.c.Get(ctx, key, &v); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (s *CacheStateStore) Save(ctx context.Context, key, value string) error {
	return s.c.Set(ctx, key, value, 0)
}

func (s *CacheStateStore) Remove(ctx context.Context, key string) error {
	return s.c.Delete(ctx, key)
}
