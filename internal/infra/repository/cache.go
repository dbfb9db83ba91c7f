package repository

import (
	"time"

	Irepository "dispute-assistant/internal/domain/interfaces/repository"

	gocache "github.com/patrickmn/go-cache"
)

var _ Irepository.Store[any] = (*CacheStore[any])(nil)

// CacheStore is a TTL-bound in-memory store. Conversations are ephemeral by
// contract, so entry expiry doubles as the release path for whatever the entry
// owns: the eviction hook fires on both explicit Delete and TTL expiry.
type CacheStore[T any] struct {
	cache *gocache.Cache
}

func NewCacheStore[T any](ttl time.Duration, onEvicted func(id string, entity T)) *CacheStore[T] {
	cleanup := ttl / 2
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}

	c := gocache.New(ttl, cleanup)
	if onEvicted != nil {
		c.OnEvicted(func(key string, value interface{}) {
			if entity, ok := value.(T); ok {
				onEvicted(key, entity)
			}
		})
	}
	return &CacheStore[T]{cache: c}
}

// Put stores the entity under id with a fresh TTL. Re-putting an existing id
// extends its lifetime.
func (s *CacheStore[T]) Put(id string, entity T) {
	s.cache.Set(id, entity, gocache.DefaultExpiration)
}

func (s *CacheStore[T]) Get(id string) (T, bool) {
	var zero T
	value, ok := s.cache.Get(id)
	if !ok {
		return zero, false
	}
	entity, ok := value.(T)
	if !ok {
		return zero, false
	}
	return entity, true
}

func (s *CacheStore[T]) Delete(id string) {
	s.cache.Delete(id)
}

func (s *CacheStore[T]) Len() int {
	return s.cache.ItemCount()
}
