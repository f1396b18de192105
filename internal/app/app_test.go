package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/weather-tracker/internal/adapter/sqlite"
	"github.com/couchcryptid/weather-tracker/internal/config"
	"github.com/couchcryptid/weather-tracker/internal/domain"
	"github.com/couchcryptid/weather-tracker/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLookup struct{}

func (stubLookup) Current(_ context.Context, coord domain.Coordinate) (domain.WeatherSnapshot, error) {
	return domain.WeatherSnapshot{
		ProviderLocationID: int64(coord.Lat*1000) + 1,
		TemperatureCelsius: 11.4,
		IconCode:           "04d",
		Description:        "broken clouds",
	}, nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig() *config.Config {
	return &config.Config{
		DBPath:      sqlite.MemoryPath,
		TimeZone:    time.UTC,
		BellEnabled: true,
	}
}

func newTestApp(t *testing.T, bell io.Writer) *App {
	t.Helper()
	return newTestAppWithConfig(t, testConfig(), bell)
}

func newTestAppWithConfig(t *testing.T, cfg *config.Config, bell io.Writer) *App {
	t.Helper()
	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting(), Deps{
		Lookup:     stubLookup{},
		Clock:      clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)),
		BellOutput: bell,
	})
	require.NoError(t, err)
	return a
}

func TestApp_AddByName(t *testing.T) {
	ctx := context.Background()
	bell := &syncBuffer{}
	a := newTestApp(t, bell)
	a.Load(ctx)

	city, err := a.AddByName(ctx, "London")
	require.NoError(t, err)
	assert.Equal(t, "London", city.Name)
	assert.Equal(t, "GB", city.CountryCode)
	assert.Equal(t, 11.0, city.TemperatureCelsius)
	assert.Equal(t, "09:30 AM", city.CapturedTime)

	assert.Len(t, a.LoadCities(ctx), 1)
	require.NoError(t, a.Close())
	assert.Equal(t, "\a", bell.String())
}

func TestApp_AddByName_Unknown(t *testing.T) {
	a := newTestApp(t, io.Discard)
	defer a.Close()

	_, err := a.AddByName(context.Background(), "Atlantis")
	require.ErrorIs(t, err, domain.ErrUnknownCity)
	assert.Empty(t, a.LoadCities(context.Background()))
}

func TestApp_SoundPreferenceMutesBell(t *testing.T) {
	ctx := context.Background()
	bell := &syncBuffer{}
	a := newTestApp(t, bell)
	a.Load(ctx)

	off := false
	_, err := a.SetPreferences(ctx, domain.PreferencesPatch{SoundEffectsEnabled: &off})
	require.NoError(t, err)

	_, err = a.AddByName(ctx, "Oslo")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.Empty(t, bell.String())
}

func TestApp_ResetKeepsCities(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, io.Discard)
	defer a.Close()
	a.Load(ctx)

	_, err := a.AddByName(ctx, "Paris")
	require.NoError(t, err)
	unit := domain.Fahrenheit
	_, err = a.SetPreferences(ctx, domain.PreferencesPatch{TemperatureUnit: &unit})
	require.NoError(t, err)

	p, err := a.ResetPreferences(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultPreferences(), p)
	assert.Equal(t, domain.DefaultPreferences(), a.LoadPreferences(ctx))
	assert.Len(t, a.Tracker.Load(ctx), 1)
}

func TestApp_Wipe(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, io.Discard)
	defer a.Close()
	a.Load(ctx)

	_, err := a.AddByName(ctx, "Tokyo")
	require.NoError(t, err)
	size := domain.TextSizeLarge
	_, err = a.SetPreferences(ctx, domain.PreferencesPatch{TextSize: &size})
	require.NoError(t, err)

	require.NoError(t, a.Wipe(ctx))

	assert.Empty(t, a.LoadCities(ctx))
	assert.Equal(t, domain.DefaultPreferences(), a.LoadPreferences(ctx))
	_, ok, err := a.store.Get(ctx, "selectedCities")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApp_SharedDatabaseSeesWritesFromAnotherApp(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "weather.db")

	daemon := newTestAppWithConfig(t, cfg, io.Discard)
	defer daemon.Close()
	daemon.Load(ctx)

	cli := newTestAppWithConfig(t, cfg, io.Discard)
	cli.Load(ctx)
	unit := domain.Fahrenheit
	_, err := cli.SetPreferences(ctx, domain.PreferencesPatch{TemperatureUnit: &unit})
	require.NoError(t, err)
	_, err = cli.AddByName(ctx, "London")
	require.NoError(t, err)
	require.NoError(t, cli.Close())

	assert.Equal(t, domain.Fahrenheit, daemon.LoadPreferences(ctx).TemperatureUnit)
	require.Len(t, daemon.LoadCities(ctx), 1)

	// Writes from the long-running app must not clobber the other app's changes.
	cli = newTestAppWithConfig(t, cfg, io.Discard)
	large := domain.TextSizeLarge
	_, err = cli.SetPreferences(ctx, domain.PreferencesPatch{TextSize: &large})
	require.NoError(t, err)
	_, err = cli.AddByName(ctx, "Oslo")
	require.NoError(t, err)
	require.NoError(t, cli.Close())

	brightness := 0.8
	p, err := daemon.SetPreferences(ctx, domain.PreferencesPatch{Brightness: &brightness})
	require.NoError(t, err)
	assert.Equal(t, domain.Fahrenheit, p.TemperatureUnit)
	assert.Equal(t, domain.TextSizeLarge, p.TextSize)
	_, err = daemon.AddByName(ctx, "Paris")
	require.NoError(t, err)

	fresh := newTestAppWithConfig(t, cfg, io.Discard)
	defer fresh.Close()
	fresh.Load(ctx)
	got := fresh.LoadPreferences(ctx)
	assert.Equal(t, domain.Fahrenheit, got.TemperatureUnit)
	assert.Equal(t, domain.TextSizeLarge, got.TextSize)
	assert.Equal(t, 0.8, got.Brightness)
	names := make([]string, 0, 3)
	for _, c := range fresh.LoadCities(ctx) {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"London", "Oslo", "Paris"}, names)
}

func TestApp_CheckReadiness(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, io.Discard)
	defer a.Close()

	require.Error(t, a.CheckReadiness(ctx))
	a.Load(ctx)
	require.NoError(t, a.CheckReadiness(ctx))
}

func TestNew_BadCatalogPath(t *testing.T) {
	cfg := testConfig()
	cfg.CatalogPath = "/nonexistent/cities.json"

	_, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting(), Deps{})
	require.Error(t, err)
}

func TestNew_DefaultCollaborators(t *testing.T) {
	cfg := testConfig()
	cfg.OWMCacheSize = 8
	cfg.OWMCacheTTL = time.Minute
	cfg.BellEnabled = false

	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting(), Deps{})
	require.NoError(t, err)
	require.NoError(t, a.Close())
}
