package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-tracker/internal/domain"
	"github.com/couchcryptid/weather-tracker/internal/observability"
	json "github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
)

// KeySelectedCities is the durable store key holding the collection snapshot.
const KeySelectedCities = "selectedCities"

// SoundGate reports whether audible cues are currently enabled.
// Implementations must read the persisted value, not a cached one.
type SoundGate interface {
	SoundEffectsEnabled(ctx context.Context) bool
}

// Collection is the in-memory list of tracked cities, mirrored to the durable
// store after every mutation. Identities are unique within the list.
type Collection struct {
	kv      domain.KeyValueStore
	lookup  domain.WeatherLookup
	sound   SoundGate
	cues    domain.CuePlayer
	clock   clockwork.Clock
	loc     *time.Location
	logger  *slog.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	cities []domain.TrackedCity
	loaded atomic.Bool

	tasks sync.WaitGroup
}

// Option customizes a Collection.
type Option func(*Collection)

// WithClock sets the time source used to stamp captured date and time.
func WithClock(c clockwork.Clock) Option {
	return func(col *Collection) { col.clock = c }
}

// WithLocation sets the time zone captured date and time are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(col *Collection) { col.loc = loc }
}

// New creates a Collection. A nil cue player disables audible cues; a nil
// sound gate plays every cue.
func New(kv domain.KeyValueStore, lookup domain.WeatherLookup, sound SoundGate, cues domain.CuePlayer, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Collection {
	c := &Collection{
		kv:      kv,
		lookup:  lookup,
		sound:   sound,
		cues:    cues,
		clock:   clockwork.NewRealClock(),
		loc:     time.Local,
		logger:  logger,
		metrics: metrics,
		cities:  []domain.TrackedCity{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load re-reads the snapshot and replaces the in-memory list. A missing key,
// a read error, or an unparsable payload all yield an empty list.
func (c *Collection) Load(ctx context.Context) []domain.TrackedCity {
	c.mu.Lock()
	defer c.mu.Unlock()
	cities, err := c.readSnapshot(ctx)
	if err != nil {
		c.logger.Warn("read tracked cities failed, starting empty", "error", err)
	}
	c.replaceLocked(cities)
	return c.snapshotLocked()
}

// refreshLocked re-reads the snapshot before a mutation so writes made by
// another process sharing the store are folded in. If the store cannot be
// read the in-memory list is used as is.
func (c *Collection) refreshLocked(ctx context.Context) {
	cities, err := c.readSnapshot(ctx)
	if err != nil {
		c.logger.Warn("read tracked cities failed, using in-memory list", "count", len(c.cities), "error", err)
		c.loaded.Store(true)
		return
	}
	c.replaceLocked(cities)
}

func (c *Collection) replaceLocked(cities []domain.TrackedCity) {
	c.cities = cities
	c.loaded.Store(true)
	c.metrics.TrackedCities.Set(float64(len(c.cities)))
}

// readSnapshot returns an error only when the store itself fails. A missing
// key or a corrupt payload reads as an empty list.
func (c *Collection) readSnapshot(ctx context.Context) ([]domain.TrackedCity, error) {
	raw, ok, err := c.kv.Get(ctx, KeySelectedCities)
	if err != nil {
		return []domain.TrackedCity{}, err
	}
	if !ok || raw == "" {
		return []domain.TrackedCity{}, nil
	}

	var stored []domain.TrackedCity
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		c.logger.Warn("tracked cities snapshot is corrupt, starting empty", "error", err)
		return []domain.TrackedCity{}, nil
	}
	return dedupe(stored), nil
}

// AddFromFetch looks up current weather for ref and folds the result into the
// collection. A lookup failure returns *domain.FetchError and changes nothing.
// If the provider identity is already tracked the existing entry is returned
// untouched: no write, no cue. A persist failure after a successful append
// returns the new city together with an error wrapping domain.ErrPersist.
// The uniqueness check runs against a snapshot re-read under the lock.
func (c *Collection) AddFromFetch(ctx context.Context, ref domain.CityRef) (domain.TrackedCity, error) {
	snap, err := c.lookup.Current(ctx, ref.Coord)
	if err != nil {
		c.metrics.FetchErrors.Inc()
		c.logger.Warn("weather lookup failed", "city", ref.Name, "catalog_id", ref.ID, "error", err)
		return domain.TrackedCity{}, &domain.FetchError{Reason: err.Error(), Err: err}
	}

	city := domain.NewTrackedCity(ref, snap, c.clock.Now().In(c.loc))

	c.mu.Lock()
	c.refreshLocked(ctx)
	if existing, ok := c.findLocked(city.ID); ok {
		c.mu.Unlock()
		c.metrics.DuplicateAdds.Inc()
		c.logger.Debug("city already tracked", "city_id", city.ID, "city", city.Name)
		return existing, nil
	}

	next := append(c.snapshotLocked(), city)
	c.cities = next
	c.metrics.TrackedCities.Set(float64(len(next)))
	persistErr := c.Persist(ctx, next)
	c.mu.Unlock()

	c.metrics.CitiesAdded.Inc()
	c.logger.Info("city added", "city_id", city.ID, "city", city.Name, "temp_c", city.TemperatureCelsius)
	c.signal(ctx, domain.CueAdd, city.ID)

	return city, persistErr
}

// Remove drops id from the collection and persists the result, whether or
// not id was present. The filter runs against a snapshot re-read under the lock.
func (c *Collection) Remove(ctx context.Context, id int64) error {
	c.mu.Lock()
	c.refreshLocked(ctx)
	next := make([]domain.TrackedCity, 0, len(c.cities))
	for _, city := range c.cities {
		if city.ID != id {
			next = append(next, city)
		}
	}
	removed := len(next) != len(c.cities)
	c.cities = next
	c.metrics.TrackedCities.Set(float64(len(next)))
	err := c.Persist(ctx, next)
	c.mu.Unlock()

	c.metrics.CitiesRemoved.Inc()
	c.logger.Info("city removed", "city_id", id, "matched", removed)
	c.signal(ctx, domain.CueDelete, id)

	return err
}

// Persist writes list as the full snapshot in one durable store write. On
// failure the caller's in-memory state is left as is.
func (c *Collection) Persist(ctx context.Context, list []domain.TrackedCity) error {
	if list == nil {
		list = []domain.TrackedCity{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("%w: encode tracked cities: %w", domain.ErrPersist, err)
	}
	if err := c.kv.Set(ctx, KeySelectedCities, string(data)); err != nil {
		c.metrics.PersistFailures.WithLabelValues(KeySelectedCities).Inc()
		c.logger.Warn("persist tracked cities failed, keeping in-memory list", "count", len(list), "error", err)
		return fmt.Errorf("%w: %w", domain.ErrPersist, err)
	}
	return nil
}

// Cities returns a copy of the in-memory list.
func (c *Collection) Cities() []domain.TrackedCity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// CheckReadiness returns nil once the collection has been loaded.
func (c *Collection) CheckReadiness(_ context.Context) error {
	if !c.loaded.Load() {
		return errors.New("tracked cities have not been loaded yet")
	}
	return nil
}

// Close waits for in-flight cue tasks.
func (c *Collection) Close() {
	c.tasks.Wait()
}

func (c *Collection) findLocked(id int64) (domain.TrackedCity, bool) {
	for _, city := range c.cities {
		if city.ID == id {
			return city, true
		}
	}
	return domain.TrackedCity{}, false
}

func (c *Collection) snapshotLocked() []domain.TrackedCity {
	out := make([]domain.TrackedCity, len(c.cities))
	copy(out, c.cities)
	return out
}

// signal plays a cue without waiting for it. The sound preference is read at
// the moment of the event.
func (c *Collection) signal(ctx context.Context, kind domain.CueKind, id int64) {
	if c.cues == nil {
		return
	}
	if c.sound != nil && !c.sound.SoundEffectsEnabled(ctx) {
		c.metrics.Cues.WithLabelValues(string(kind), "muted").Inc()
		return
	}

	cue := domain.Cue{Kind: kind, CityID: id, At: c.clock.Now()}
	ctx = context.WithoutCancel(ctx)
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		if err := c.cues.Play(ctx, cue); err != nil {
			c.metrics.Cues.WithLabelValues(string(kind), "failed").Inc()
			c.logger.Debug("play cue failed", "kind", kind, "city_id", id, "error", err)
			return
		}
		c.metrics.Cues.WithLabelValues(string(kind), "played").Inc()
	}()
}

// dedupe keeps the first entry for each identity, preserving order.
func dedupe(cities []domain.TrackedCity) []domain.TrackedCity {
	seen := make(map[int64]struct{}, len(cities))
	out := make([]domain.TrackedCity, 0, len(cities))
	for _, city := range cities {
		if _, ok := seen[city.ID]; ok {
			continue
		}
		seen[city.ID] = struct{}{}
		out = append(out, city)
	}
	return out
}
