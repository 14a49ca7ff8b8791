package playback

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"linguanest/internal/domain/story"
	"linguanest/internal/story/tts"
)

var (
	// ErrInvalidStartIndex is reported when playback is requested from a negative sentence index.
	ErrInvalidStartIndex = errors.New("playback start index must not be negative")
	// ErrSpeechFailed stands in for a driver error that carried no detail.
	ErrSpeechFailed = errors.New("speech synthesis failed")
)

const (
	DefaultRate        = 0.9
	DefaultSubmitDelay = 100 * time.Millisecond
)

// Handlers receive the events of one playback session. They are called from a
// session goroutine, one at a time, and must not call back into the Engine.
//
// OnBoundary reports the global sentence being spoken, or story.NoSentence once the
// session has ended, together with the character position within the utterance.
type Handlers struct {
	OnBoundary func(sentence, charIndex, totalChars int)
	OnEnd      func()
	OnError    func(err error)
}

func (h Handlers) fail(err error) {
	if err == nil {
		err = ErrSpeechFailed
	}
	if h.OnError != nil {
		h.OnError(err)
	}
}

type Option func(*Engine)

// WithRate sets the speech rate multiplier passed to the driver.
func WithRate(rate float64) Option {
	return func(e *Engine) {
		if rate > 0 {
			e.rate = rate
		}
	}
}

// WithSubmitDelay sets the pause between cancelling an utterance and submitting the next.
func WithSubmitDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.submitDelay = d
		}
	}
}

// Engine owns the single active utterance and translates driver progress into
// sentence indices.
type Engine struct {
	driver      tts.Driver
	rate        float64
	submitDelay time.Duration

	mu      sync.Mutex
	current *session
}

// NewEngine creates an engine on top of driver. A nil driver is allowed and makes
// every SpeakFrom report tts.ErrSpeechUnavailable.
func NewEngine(driver tts.Driver, opts ...Option) *Engine {
	e := &Engine{
		driver:      driver,
		rate:        DefaultRate,
		submitDelay: DefaultSubmitDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SpeakFrom speaks every sentence of paragraphs from the global index start onwards.
// Any previous session is detached and cancelled first. Failures are reported through
// h.OnError, never returned.
func (e *Engine) SpeakFrom(paragraphs story.Paragraphs, locale string, start int, h Handlers) {
	if e.driver == nil {
		h.fail(tts.ErrSpeechUnavailable)
		return
	}
	if start < 0 {
		h.fail(fmt.Errorf("%w: %d", ErrInvalidStartIndex, start))
		return
	}

	sentences := paragraphs.Flatten()
	if start >= len(sentences) {
		if h.OnEnd != nil {
			h.OnEnd()
		}
		return
	}

	table := BuildOffsets(sentences[start:])
	s := newSession(start, table, h)

	e.mu.Lock()
	prev := e.current
	e.current = s
	e.mu.Unlock()

	if prev != nil {
		prev.detach()
		metricOutcomes.WithLabelValues("superseded").Inc()
		prev.log().Debug("Utterance superseded")
	}
	if e.driver.IsSpeaking() || e.driver.IsPaused() {
		if err := e.driver.Cancel(); err != nil {
			logrus.WithError(err).Warn("Failed to cancel previous utterance")
		}
	}

	metricSessions.Inc()
	s.log().WithFields(logrus.Fields{
		"sentences": len(table.Offsets),
		"chars":     table.TotalChars,
		"locale":    locale,
	}).Debug("Starting utterance")

	go s.run(e)

	u := tts.Utterance{Text: table.Text, Locale: locale, Rate: e.rate}
	time.AfterFunc(e.submitDelay, func() { e.submit(s, u) })
}

func (e *Engine) submit(s *session, u tts.Utterance) {
	e.mu.Lock()
	if e.current != s {
		e.mu.Unlock()
		return
	}
	err := e.driver.Submit(u, s.post)
	if err == nil {
		s.submitted = true
	}
	e.mu.Unlock()

	if err != nil {
		s.post(tts.Event{Kind: tts.EventError, Err: fmt.Errorf("submit utterance: %w", err)})
	}
}

// finish forgets s once the driver has reported its end.
func (e *Engine) finish(s *session, kind tts.EventKind) {
	e.mu.Lock()
	if e.current == s {
		e.current = nil
	}
	e.mu.Unlock()

	outcome := "end"
	if kind == tts.EventError {
		outcome = "error"
	}
	metricOutcomes.WithLabelValues(outcome).Inc()
}

// Stop detaches the active session and cancels the driver. It does nothing when no
// session is active.
func (e *Engine) Stop() {
	e.mu.Lock()
	s := e.current
	e.current = nil
	e.mu.Unlock()

	if s == nil {
		return
	}

	s.detach()
	metricOutcomes.WithLabelValues("stopped").Inc()
	s.log().Debug("Utterance stopped")

	if err := e.driver.Cancel(); err != nil {
		logrus.WithError(err).Warn("Failed to cancel utterance")
	}
}

// Pause suspends speech if the driver is speaking and not already paused.
func (e *Engine) Pause() {
	if e.driver == nil {
		return
	}
	if e.driver.IsSpeaking() && !e.driver.IsPaused() {
		if err := e.driver.Pause(); err != nil {
			logrus.WithError(err).Warn("Failed to pause speech")
		}
	}
}

// Resume continues speech if the driver is paused.
func (e *Engine) Resume() {
	if e.driver == nil {
		return
	}
	if e.driver.IsPaused() {
		if err := e.driver.Resume(); err != nil {
			logrus.WithError(err).Warn("Failed to resume speech")
		}
	}
}

// IsSpeaking reports what the driver says, not what the application believes.
func (e *Engine) IsSpeaking() bool {
	return e.driver != nil && e.driver.IsSpeaking()
}

func (e *Engine) IsPaused() bool {
	return e.driver != nil && e.driver.IsPaused()
}

// Pending reports whether a session has been requested but not yet handed to the driver.
func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil && !e.current.submitted
}

// Available reports whether the engine has a speech driver at all.
func (e *Engine) Available() bool {
	return e.driver != nil
}
