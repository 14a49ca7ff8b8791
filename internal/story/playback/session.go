package playback

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"linguanest/internal/domain/story"
	"linguanest/internal/story/tts"
)

const sessionBuffer = 64

// session is one utterance in flight. Driver events are posted onto its channel and
// handed to the caller's handlers by a single dispatcher goroutine.
type session struct {
	id       string
	start    int
	table    Table
	handlers Handlers

	events   chan tts.Event
	quit     chan struct{}
	quitOnce sync.Once

	// mu is held while handlers run so detach waits for an in-flight callback.
	mu       sync.Mutex
	detached bool
	lastChar int

	// guarded by Engine.mu
	submitted bool
}

func newSession(start int, table Table, h Handlers) *session {
	return &session{
		id:       uuid.NewString(),
		start:    start,
		table:    table,
		handlers: h,
		events:   make(chan tts.Event, sessionBuffer),
		quit:     make(chan struct{}),
	}
}

func (s *session) log() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"session": s.id,
		"start":   s.start,
	})
}

// post is the driver listener. It never blocks once the session is closed.
func (s *session) post(ev tts.Event) {
	select {
	case <-s.quit:
		return
	default:
	}

	select {
	case s.events <- ev:
	case <-s.quit:
	}
}

func (s *session) close() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// detach guarantees no handler runs after it returns.
func (s *session) detach() {
	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
	s.close()
}

// run dispatches events until the session ends or is detached.
func (s *session) run(e *Engine) {
	for {
		select {
		case <-s.quit:
			return
		case ev := <-s.events:
			if ev.Kind == tts.EventProgress {
				s.boundary(ev.CharIndex)
				continue
			}
			s.close()
			e.finish(s, ev.Kind)
			s.terminate(ev)
			return
		}
	}
}

func (s *session) boundary(charIndex int) {
	local, ok := s.table.Resolve(charIndex)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}

	s.lastChar = charIndex
	metricBoundaries.Inc()
	if s.handlers.OnBoundary != nil {
		s.handlers.OnBoundary(s.start+local, charIndex, s.table.TotalChars)
	}
}

func (s *session) terminate(ev tts.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}
	s.detached = true

	total := s.table.TotalChars
	switch ev.Kind {
	case tts.EventComplete:
		s.log().Debug("Utterance finished")
		if s.handlers.OnBoundary != nil {
			s.handlers.OnBoundary(story.NoSentence, total, total)
		}
		if s.handlers.OnEnd != nil {
			s.handlers.OnEnd()
		}
	case tts.EventError:
		s.log().WithError(ev.Err).Debug("Utterance failed")
		if s.handlers.OnBoundary != nil {
			s.handlers.OnBoundary(story.NoSentence, s.lastChar, total)
		}
		s.handlers.fail(ev.Err)
	}
}
