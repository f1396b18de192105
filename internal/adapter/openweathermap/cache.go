package openweathermap

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/weather-tracker/internal/domain"
	"github.com/jonboulle/clockwork"
)

// CachedLookup wraps a WeatherLookup with a bounded, time-limited cache keyed
// by coordinate. OpenWeatherMap refreshes observations roughly every ten
// minutes, so repeated adds of the same city inside that window reuse the
// last answer.
type CachedLookup struct {
	inner  domain.WeatherLookup
	ttl    time.Duration
	clock  clockwork.Clock
	logger *slog.Logger

	mu      sync.Mutex
	max     int
	order   *list.List // front is most recently used
	entries map[string]*list.Element
}

type cacheEntry struct {
	key     string
	snap    domain.WeatherSnapshot
	fetched time.Time
	expires time.Time
}

// NewCachedLookup creates a cache decorator. A nil clock uses the real clock.
func NewCachedLookup(inner domain.WeatherLookup, maxEntries int, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *CachedLookup {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedLookup{
		inner:   inner,
		ttl:     ttl,
		clock:   clock,
		logger:  logger,
		max:     maxEntries,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Current returns a cached snapshot when one is fresh, otherwise asks the
// inner lookup. Failures are never cached. A hit hands back the observation
// as it was when first fetched; its age is logged at debug level.
func (c *CachedLookup) Current(ctx context.Context, coord domain.Coordinate) (domain.WeatherSnapshot, error) {
	key := fmt.Sprintf("%.4f,%.4f", coord.Lat, coord.Lon)
	if snap, age, ok := c.get(key); ok {
		c.logger.Debug("weather cache hit", "key", key, "location_id", snap.ProviderLocationID, "age", age)
		return snap, nil
	}

	snap, err := c.inner.Current(ctx, coord)
	if err != nil {
		return snap, err
	}
	c.put(key, snap)
	return snap, nil
}

func (c *CachedLookup) get(key string) (domain.WeatherSnapshot, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.WeatherSnapshot{}, 0, false
	}
	e := el.Value.(*cacheEntry)
	now := c.clock.Now()
	if !now.Before(e.expires) {
		c.order.Remove(el)
		delete(c.entries, key)
		return domain.WeatherSnapshot{}, 0, false
	}
	c.order.MoveToFront(el)
	return e.snap, now.Sub(e.fetched), true
}

func (c *CachedLookup) put(key string, snap domain.WeatherSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	expires := now.Add(c.ttl)
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*cacheEntry)
		e.snap, e.fetched, e.expires = snap, now, expires
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, snap: snap, fetched: now, expires: expires})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Len reports the number of cached entries, fresh or not.
func (c *CachedLookup) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
