package preferences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"github.com/couchcryptid/weather-tracker/internal/domain"
	"github.com/couchcryptid/weather-tracker/internal/observability"
	"github.com/go-playground/validator/v10"
)

// Durable store keys.
const (
	KeyUnit         = "unit"
	KeyTextSize     = "textSize"
	KeySoundEffects = "soundEffects"
	KeyBrightness   = "brightness"
)

// Store owns the preferences record for a session and mirrors every change
// to the durable store.
type Store struct {
	kv         domain.KeyValueStore
	brightness domain.BrightnessController
	validate   *validator.Validate
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu      sync.Mutex
	current domain.Preferences

	tasks sync.WaitGroup
}

// New creates a Store. A nil brightness controller disables brightness application.
func New(kv domain.KeyValueStore, brightness domain.BrightnessController, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{
		kv:         kv,
		brightness: brightness,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
		metrics:    metrics,
		current:    domain.DefaultPreferences(),
	}
}

// Load re-reads all four keys. Each missing, malformed or unreadable key
// falls back to its default on its own; Load never fails.
func (s *Store) Load(ctx context.Context) domain.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, domain.DefaultPreferences())
}

// loadLocked re-reads the record. Missing or malformed keys take their
// default; keys that cannot be read keep the value from fallback.
func (s *Store) loadLocked(ctx context.Context, fallback domain.Preferences) domain.Preferences {
	p := domain.DefaultPreferences()

	if v, ok, err := s.read(ctx, KeyUnit); err != nil {
		p.TemperatureUnit = fallback.TemperatureUnit
	} else if ok {
		if u, valid := domain.ParseTemperatureUnit(v); valid {
			p.TemperatureUnit = u
		} else {
			s.logger.Warn("ignoring stored preference", "key", KeyUnit, "value", v)
		}
	}
	if v, ok, err := s.read(ctx, KeyTextSize); err != nil {
		p.TextSize = fallback.TextSize
	} else if ok {
		if ts, valid := domain.ParseTextSize(v); valid {
			p.TextSize = ts
		} else {
			s.logger.Warn("ignoring stored preference", "key", KeyTextSize, "value", v)
		}
	}
	if v, ok, err := s.read(ctx, KeySoundEffects); err != nil {
		p.SoundEffectsEnabled = fallback.SoundEffectsEnabled
	} else if ok {
		if b, valid := parseSound(v); valid {
			p.SoundEffectsEnabled = b
		} else {
			s.logger.Warn("ignoring stored preference", "key", KeySoundEffects, "value", v)
		}
	}
	if v, ok, err := s.read(ctx, KeyBrightness); err != nil {
		p.Brightness = fallback.Brightness
	} else if ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			p.Brightness = domain.ClampBrightness(f)
		} else {
			s.logger.Warn("ignoring stored preference", "key", KeyBrightness, "value", v)
		}
	}

	s.current = p
	return p
}

// read returns the stored value. Read errors are logged and returned.
func (s *Store) read(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.Warn("read preference failed", "key", key, "error", err)
		return "", false, err
	}
	return v, ok, nil
}

// Set re-reads the stored record, merges patch into it and writes all four keys.
// Brightness is clamped into [0.1, 1.0]; enum values outside their closed set
// are rejected with ErrInvalidPreference and nothing changes. On a write
// failure the merged record is still returned and kept, alongside an error
// wrapping ErrPersist.
func (s *Store) Set(ctx context.Context, patch domain.PreferencesPatch) (domain.Preferences, error) {
	if err := s.validate.Struct(patch); err != nil {
		return s.Current(), fmt.Errorf("%w: %v", domain.ErrInvalidPreference, err)
	}
	if patch.Brightness != nil && math.IsNaN(*patch.Brightness) {
		return s.Current(), fmt.Errorf("%w: brightness is not a number", domain.ErrInvalidPreference)
	}

	s.mu.Lock()
	prev := s.loadLocked(ctx, s.current)
	next := prev.Apply(patch)
	s.current = next
	err := s.writeLocked(ctx, next)
	s.mu.Unlock()

	if next.Brightness != prev.Brightness {
		s.applyBrightness(ctx, next.Brightness)
	}
	return next, err
}

// Reset restores and persists the defaults, then applies the default brightness.
func (s *Store) Reset(ctx context.Context) (domain.Preferences, error) {
	def := domain.DefaultPreferences()

	s.mu.Lock()
	s.current = def
	err := s.writeLocked(ctx, def)
	s.mu.Unlock()

	s.applyBrightness(ctx, def.Brightness)
	return def, err
}

// Current returns the in-memory record.
func (s *Store) Current() domain.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SoundEffectsEnabled reads the persisted sound preference at call time.
func (s *Store) SoundEffectsEnabled(ctx context.Context) bool {
	v, ok, err := s.read(ctx, KeySoundEffects)
	if err != nil || !ok {
		return domain.DefaultPreferences().SoundEffectsEnabled
	}
	b, valid := parseSound(v)
	if !valid {
		return domain.DefaultPreferences().SoundEffectsEnabled
	}
	return b
}

// Close waits for in-flight brightness updates.
func (s *Store) Close() {
	s.tasks.Wait()
}

// writeLocked writes every key, even unchanged ones. Writes are independent;
// a failure on one key does not stop the others.
func (s *Store) writeLocked(ctx context.Context, p domain.Preferences) error {
	writes := []struct{ key, value string }{
		{KeyUnit, string(p.TemperatureUnit)},
		{KeyTextSize, string(p.TextSize)},
		{KeySoundEffects, strconv.FormatBool(p.SoundEffectsEnabled)},
		{KeyBrightness, strconv.FormatFloat(p.Brightness, 'g', -1, 64)},
	}

	var errs []error
	for _, w := range writes {
		if err := s.kv.Set(ctx, w.key, w.value); err != nil {
			s.logger.Warn("persist preference failed", "key", w.key, "error", err)
			s.metrics.PersistFailures.WithLabelValues(w.key).Inc()
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		s.metrics.PreferenceWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %w", domain.ErrPersist, errors.Join(errs...))
	}
	s.metrics.PreferenceWrites.WithLabelValues("success").Inc()
	return nil
}

// applyBrightness hands the level to the device without waiting for it.
func (s *Store) applyBrightness(ctx context.Context, level float64) {
	if s.brightness == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		if err := s.brightness.Apply(ctx, level); err != nil {
			s.logger.Debug("apply brightness failed", "level", level, "error", err)
		}
	}()
}

func parseSound(v string) (bool, bool) {
	switch v {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
