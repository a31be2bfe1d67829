package guard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Memory is a single-process Guard backed by an expiring cache. It runs no
// background janitor; expired claims are swept by Acquire at most once per
// TTL.
type Memory struct {
	mu        sync.Mutex
	items     *cache.Cache
	ttl       time.Duration
	lastSweep time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{items: cache.New(ttl, cache.NoExpiration), ttl: ttl}
}

func (m *Memory) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	token := uuid.NewString()
	m.mu.Lock()
	if now := time.Now(); now.Sub(m.lastSweep) >= m.ttl {
		m.items.DeleteExpired()
		m.lastSweep = now
	}
	err := m.items.Add(key, token, m.ttl)
	m.mu.Unlock()
	if err != nil {
		return nil, ErrBusy
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if v, ok := m.items.Get(key); ok && v == token {
				m.items.Delete(key)
			}
		})
	}, nil
}
