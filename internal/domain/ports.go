package domain

import (
	"context"
	"time"
)

// KeyValueStore is durable string-keyed persistence. Each call is atomic on
// its own; there are no multi-key transactions.
type KeyValueStore interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Clear removes every key.
	Clear(ctx context.Context) error
}

// WeatherSnapshot is the result of a successful remote weather lookup.
type WeatherSnapshot struct {
	ProviderLocationID int64
	TemperatureCelsius float64
	IconCode           string
	Description        string
}

// WeatherLookup fetches current weather for a coordinate.
type WeatherLookup interface {
	Current(ctx context.Context, coord Coordinate) (WeatherSnapshot, error)
}

// CueKind identifies the audible cue played after a collection change.
type CueKind string

const (
	CueAdd    CueKind = "add"
	CueDelete CueKind = "delete"
)

// Cue describes one audible-cue request.
type Cue struct {
	Kind   CueKind   `json:"kind"`
	CityID int64     `json:"city_id"`
	At     time.Time `json:"at"`
}

// CuePlayer plays audible cues. Failures are never fatal to the caller.
type CuePlayer interface {
	Play(ctx context.Context, cue Cue) error
}

// BrightnessController applies a screen brightness level in [0.1, 1.0].
type BrightnessController interface {
	Apply(ctx context.Context, level float64) error
}
