// Package backlight applies the brightness preference to a Linux backlight
// device exposed under /sys/class/backlight.
package backlight

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Device writes brightness levels to a sysfs backlight directory containing
// max_brightness and brightness files.
type Device struct {
	dir    string
	logger *slog.Logger

	mu  sync.Mutex
	max int
}

// NewDevice creates a Device for dir. The directory is not read until the
// first Apply.
func NewDevice(dir string, logger *slog.Logger) *Device {
	return &Device{dir: dir, logger: logger}
}

// Apply scales level in [0.1, 1.0] to the device range and writes it.
func (d *Device) Apply(ctx context.Context, level float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.max == 0 {
		maxRaw, err := readMax(filepath.Join(d.dir, "max_brightness"))
		if err != nil {
			return err
		}
		d.max = maxRaw
	}

	raw := int(math.Round(level * float64(d.max)))
	if raw < 1 {
		raw = 1
	}
	if raw > d.max {
		raw = d.max
	}

	path := filepath.Join(d.dir, "brightness")
	if err := os.WriteFile(path, []byte(strconv.Itoa(raw)), 0o644); err != nil {
		return fmt.Errorf("write brightness: %w", err)
	}
	d.logger.Debug("brightness applied", "level", level, "raw", raw, "max", d.max)
	return nil
}

func readMax(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read max_brightness: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse max_brightness %q: %w", data, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("max_brightness must be positive, got %d", n)
	}
	return n, nil
}

// Noop logs the requested level and does nothing else.
type Noop struct {
	Logger *slog.Logger
}

// Apply implements domain.BrightnessController.
func (n Noop) Apply(_ context.Context, level float64) error {
	if n.Logger != nil {
		n.Logger.Debug("brightness requested, no backlight configured", "level", level)
	}
	return nil
}
