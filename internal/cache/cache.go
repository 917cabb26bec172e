package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"golang.org/x/sync/singleflight"
)

type Cache interface {
	Get(ctx context.Context, key string, value any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

func Key(prefix string, id string) string {
	return prefix + ":" + id
}

const (
	CartKeyPrefix  = "cart"
	OrderKeyPrefix = "order"
)

// Loader is a Cache that coordinates read-through loads with invalidation.
// A load that overlaps a Delete of its key still returns its value but does
// not leave it cached. Only loads in this process are tracked.
type Loader struct {
	Cache

	group    singleflight.Group
	mu       sync.Mutex
	inflight map[string][]*pendingLoad
}

type pendingLoad struct {
	invalidated bool
}

// NewLoader wraps c. Wrapping a Loader returns it unchanged so every service
// built on one cache shares the same in-flight bookkeeping.
func NewLoader(c Cache) *Loader {
	if l, ok := c.(*Loader); ok {
		return l
	}

	return &Loader{Cache: c, inflight: make(map[string][]*pendingLoad)}
}

// Delete marks in-flight loads of keys stale before removing the entries.
func (l *Loader) Delete(ctx context.Context, keys ...string) error {
	l.mu.Lock()
	for _, key := range keys {
		for _, p := range l.inflight[key] {
			p.invalidated = true
		}

		// later readers must not join a load that started before the change
		l.group.Forget(key)
	}
	l.mu.Unlock()

	return l.Cache.Delete(ctx, keys...)
}

func (l *Loader) begin(key string) *pendingLoad {
	p := &pendingLoad{}

	l.mu.Lock()
	l.inflight[key] = append(l.inflight[key], p)
	l.mu.Unlock()

	return p
}

// finish reports whether p was invalidated while it ran.
func (l *Loader) finish(key string, p *pendingLoad) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending := l.inflight[key]
	for i, q := range pending {
		if q == p {
			pending = append(pending[:i], pending[i+1:]...)

			break
		}
	}

	if len(pending) == 0 {
		delete(l.inflight, key)
	} else {
		l.inflight[key] = pending
	}

	return p.invalidated
}

// GetOrLoad serves key from l, falling back to load on a miss. Concurrent
// misses for the same key share a single load. Cache failures are logged and
// never fail the read.
func GetOrLoad[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	logger := middleware.LoggerFromContext(ctx)

	var cached T

	found, err := l.Get(ctx, key, &cached)
	if err != nil {
		logger.Warn("Cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	} else if found {
		return cached, nil
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		pending := l.begin(key)

		value, err := load(ctx)
		if err != nil {
			l.finish(key, pending)

			return nil, err
		}

		if err := l.Set(ctx, key, value, ttl); err != nil {
			logger.Warn("Cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}

		if l.finish(key, pending) {
			if err := l.Cache.Delete(ctx, key); err != nil {
				logger.Warn("Stale cache entry not removed", slog.String("key", key), slog.String("error", err.Error()))
			}
		}

		return value, nil
	})
	if err != nil {
		var zero T

		return zero, err
	}

	return v.(T), nil
}
