// Package sound plays audible cues for collection changes.
package sound

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/couchcryptid/weather-tracker/internal/domain"
)

// bell is the ASCII BEL control character. Add rings once, delete twice.
const bell = "\a"

// Bell rings the terminal bell on a writer, usually os.Stderr.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBell creates a Bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

// Play writes one bell for an add and two for a delete.
func (b *Bell) Play(_ context.Context, cue domain.Cue) error {
	rings := 1
	if cue.Kind == domain.CueDelete {
		rings = 2
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for range rings {
		if _, err := io.WriteString(b.w, bell); err != nil {
			return fmt.Errorf("ring bell: %w", err)
		}
	}
	return nil
}

// Multi fans a cue out to every player. All players are attempted; their
// errors are joined.
type Multi []domain.CuePlayer

// Play implements domain.CuePlayer.
func (m Multi) Play(ctx context.Context, cue domain.Cue) error {
	var errs []error
	for _, p := range m {
		if err := p.Play(ctx, cue); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
