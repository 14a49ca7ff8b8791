// internal/story/tts/tts.go
package tts

import "errors"

var (
	// ErrSpeechUnavailable means the host has no usable speech capability.
	ErrSpeechUnavailable = errors.New("speech synthesis is not available on this system")
	// ErrPauseUnsupported is returned by drivers that cannot suspend an utterance.
	ErrPauseUnsupported = errors.New("pause is not supported by this speech driver")
)

type Config struct {
	Type      string
	Volume    float64
	Voice     string
	CachePath string
}

// Utterance is one speech request: the full text, its locale (e.g. fr-FR) and a rate multiplier.
type Utterance struct {
	Text   string
	Locale string
	Rate   float64
}

type EventKind int

const (
	EventProgress EventKind = iota
	EventComplete
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventComplete:
		return "complete"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is emitted by a driver while an utterance is spoken.
// CharIndex is a rune offset into Utterance.Text and is only meaningful for progress events.
type Event struct {
	Kind      EventKind
	CharIndex int
	Err       error
}

// Listener receives the events of a single utterance. Drivers call it from their own goroutines.
type Listener func(Event)

// Driver is a platform speech synthesizer that speaks one utterance at a time.
//
// Submit replaces any active utterance; the replaced utterance emits no further events.
// Cancel stops the active utterance without emitting completion or error.
// IsSpeaking is true while an utterance is active, including while it is paused.
type Driver interface {
	Submit(u Utterance, l Listener) error
	Cancel() error
	Pause() error
	Resume() error
	IsSpeaking() bool
	IsPaused() bool
}

// VoiceLister is implemented by drivers that can enumerate installed voices
type VoiceLister interface {
	Voices() ([]string, error)
}
