// Package disguise implements the covert exit gestures of duress mode. Each
// disguise gets its own ExitDetector; all of them consume the same raw input
// stream and answer one question: did the user just request the real UI back?
package disguise

import (
	"strings"
	"time"

	"github.com/veilchat/veilchat/internal/client/models"
)

// Input is one raw UI event inside a disguise: a typed string for keyboard
// surfaces, an empty Text for a tap.
type Input struct {
	Text string
	At   time.Time
}

// ExitDetector recognizes a disguise's covert exit gesture. Observe returns
// true when the gesture completes; Reset discards accumulated state (used
// when a gesture attempt is abandoned or exit confirmation is declined).
type ExitDetector interface {
	Observe(in Input) bool
	Reset()
}

// Exit gesture parameters. Deliberately unremarkable values: the gestures
// must be impossible to hit by accident but survive in muscle memory.
const (
	calculatorExitSuffix = "0*0="
	notesExitSuffix      = "..exit"
	weatherTapCount      = 5
	weatherTapWindow     = 2 * time.Second
)

// ForDisguise returns the detector matching the selected disguise.
func ForDisguise(d models.Disguise) ExitDetector {
	switch d {
	case models.DisguiseCalculator:
		return &suffixDetector{suffix: calculatorExitSuffix}
	case models.DisguiseWeather:
		return &tapDetector{need: weatherTapCount, window: weatherTapWindow}
	default:
		return &suffixDetector{suffix: notesExitSuffix}
	}
}

// suffixDetector fires when the accumulated typed text ends with its suffix.
// Used by the calculator and notes disguises.
type suffixDetector struct {
	suffix string
	typed  strings.Builder
}

func (d *suffixDetector) Observe(in Input) bool {
	if in.Text == "" {
		return false
	}
	d.typed.WriteString(in.Text)

	// Bound the buffer so a long disguise session cannot grow it unbounded.
	if d.typed.Len() > 4*len(d.suffix) {
		tail := d.typed.String()
		tail = tail[len(tail)-len(d.suffix):]
		d.typed.Reset()
		d.typed.WriteString(tail)
	}

	return strings.HasSuffix(d.typed.String(), d.suffix)
}

func (d *suffixDetector) Reset() {
	d.typed.Reset()
}

// tapDetector fires on N taps within a sliding time window. Used by the
// weather disguise, which has no text input surface.
type tapDetector struct {
	need   int
	window time.Duration
	taps   []time.Time
}

func (d *tapDetector) Observe(in Input) bool {
	if in.Text != "" {
		return false
	}

	cutoff := in.At.Add(-d.window)
	kept := d.taps[:0]
	for _, t := range d.taps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	d.taps = append(kept, in.At)

	return len(d.taps) >= d.need
}

func (d *tapDetector) Reset() {
	d.taps = nil
}
