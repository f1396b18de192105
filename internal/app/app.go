// Package app wires configuration, adapters, and the tracker into one
// runnable unit shared by the CLI and the daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/weather-tracker/internal/adapter/backlight"
	"github.com/couchcryptid/weather-tracker/internal/adapter/catalog"
	kafkaadapter "github.com/couchcryptid/weather-tracker/internal/adapter/kafka"
	"github.com/couchcryptid/weather-tracker/internal/adapter/openweathermap"
	"github.com/couchcryptid/weather-tracker/internal/adapter/sound"
	"github.com/couchcryptid/weather-tracker/internal/adapter/sqlite"
	"github.com/couchcryptid/weather-tracker/internal/config"
	"github.com/couchcryptid/weather-tracker/internal/domain"
	"github.com/couchcryptid/weather-tracker/internal/observability"
	"github.com/couchcryptid/weather-tracker/internal/preferences"
	"github.com/couchcryptid/weather-tracker/internal/tracker"
	"github.com/jonboulle/clockwork"
)

// App owns every long-lived component of a session.
type App struct {
	Catalog     *catalog.Catalog
	Preferences *preferences.Store
	Tracker     *tracker.Collection

	store   *sqlite.Store
	closers []io.Closer
	logger  *slog.Logger
}

// Deps overrides collaborators that New would otherwise build from config.
// Nil fields are built normally.
type Deps struct {
	Lookup     domain.WeatherLookup
	Cues       domain.CuePlayer
	Brightness domain.BrightnessController
	Clock      clockwork.Clock
	BellOutput io.Writer
}

// New opens the durable store and catalog and wires the stores to their
// collaborators. Nothing is loaded yet; call Load.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, deps Deps) (*App, error) {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &App{Catalog: cat, store: store, logger: logger}

	lookup := deps.Lookup
	if lookup == nil {
		if cfg.OWMAPIKey == "" {
			logger.Warn("OWM_API_KEY is not set; weather lookups will be rejected")
		}
		lookup = openweathermap.NewClient(cfg.OWMAPIKey, openweathermap.Options{
			BaseURL:   cfg.OWMBaseURL,
			Timeout:   cfg.OWMTimeout,
			RateLimit: cfg.OWMRateLimit,
			Burst:     cfg.OWMBurst,
		}, logger, metrics)
		if cfg.OWMCacheSize > 0 {
			lookup = openweathermap.NewCachedLookup(lookup, cfg.OWMCacheSize, cfg.OWMCacheTTL, deps.Clock, logger)
		}
	}

	brightness := deps.Brightness
	if brightness == nil {
		if cfg.BacklightDir != "" {
			brightness = backlight.NewDevice(cfg.BacklightDir, logger)
			logger.Info("backlight enabled", "dir", cfg.BacklightDir)
		} else {
			brightness = backlight.Noop{Logger: logger}
		}
	}

	cues := deps.Cues
	if cues == nil {
		cues = a.buildCues(cfg, deps)
	}

	a.Preferences = preferences.New(store, brightness, logger, metrics)

	opts := []tracker.Option{tracker.WithLocation(cfg.TimeZone)}
	if deps.Clock != nil {
		opts = append(opts, tracker.WithClock(deps.Clock))
	}
	a.Tracker = tracker.New(store, lookup, a.Preferences, cues, logger, metrics, opts...)

	return a, nil
}

func (a *App) buildCues(cfg *config.Config, deps Deps) domain.CuePlayer {
	var players sound.Multi
	if cfg.BellEnabled {
		out := deps.BellOutput
		if out == nil {
			out = os.Stderr
		}
		players = append(players, sound.NewBell(out))
	}
	if cfg.KafkaEnabled {
		w := kafkaadapter.NewCueWriter(cfg, a.logger)
		a.closers = append(a.closers, w)
		players = append(players, w)
		a.logger.Info("kafka cue publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaCueTopic)
	}
	if len(players) == 0 {
		return nil
	}
	return players
}

// Load reads preferences and the tracked collection from the durable store.
func (a *App) Load(ctx context.Context) {
	p := a.Preferences.Load(ctx)
	cities := a.Tracker.Load(ctx)
	a.logger.Info("session loaded", "cities", len(cities), "unit", p.TemperatureUnit, "text_size", p.TextSize)
}

// SearchCatalog filters the catalog by name.
func (a *App) SearchCatalog(query string) []domain.CityRef {
	return a.Catalog.Search(query)
}

// AddByName resolves name in the catalog and adds it to the collection.
func (a *App) AddByName(ctx context.Context, name string) (domain.TrackedCity, error) {
	ref, ok := a.Catalog.FindByName(name)
	if !ok {
		return domain.TrackedCity{}, fmt.Errorf("%w: %q", domain.ErrUnknownCity, name)
	}
	return a.Tracker.AddFromFetch(ctx, ref)
}

// Remove drops id from the collection.
func (a *App) Remove(ctx context.Context, id int64) error {
	return a.Tracker.Remove(ctx, id)
}

// LoadCities re-reads the tracked collection from the durable store.
func (a *App) LoadCities(ctx context.Context) []domain.TrackedCity {
	return a.Tracker.Load(ctx)
}

// LoadPreferences re-reads the preferences record from the durable store.
func (a *App) LoadPreferences(ctx context.Context) domain.Preferences {
	return a.Preferences.Load(ctx)
}

// SetPreferences merges patch into the preferences record.
func (a *App) SetPreferences(ctx context.Context, patch domain.PreferencesPatch) (domain.Preferences, error) {
	return a.Preferences.Set(ctx, patch)
}

// ResetPreferences restores the default preferences.
func (a *App) ResetPreferences(ctx context.Context) (domain.Preferences, error) {
	return a.Preferences.Reset(ctx)
}

// Wipe clears every stored key and reloads, leaving an empty collection and
// default preferences.
func (a *App) Wipe(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	a.Load(ctx)
	a.logger.Info("storage wiped")
	return nil
}

// CheckReadiness reports ready once the collection is loaded and the
// durable store answers.
func (a *App) CheckReadiness(ctx context.Context) error {
	if err := a.Tracker.CheckReadiness(ctx); err != nil {
		return err
	}
	return a.store.Ping(ctx)
}

// Close waits for side effects in flight, then releases adapters.
func (a *App) Close() error {
	a.Tracker.Close()
	a.Preferences.Close()

	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
