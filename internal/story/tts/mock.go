package tts

import (
	"sync"
	"time"
	"unicode/utf8"
)

const defaultMockCharsPerSecond = 15

// MockDriver is an in-memory driver. In manual mode nothing happens until the caller
// drives it with Progress, Complete, Fail or Interrupt; in auto mode it pretends to speak
// one word at a time.
type MockDriver struct {
	mu             sync.Mutex
	auto           bool
	charsPerSecond float64

	speaking bool
	paused   bool
	current  *mockUtterance
	history  []*mockUtterance

	submitted chan Utterance
	SubmitErr error

	cancels int
	pauses  int
	resumes int
}

type mockUtterance struct {
	*eventGate
	utterance Utterance
	stop      chan struct{}
}

var _ Driver = (*MockDriver)(nil)

// NewMockDriver creates a manually driven mock.
func NewMockDriver() *MockDriver {
	return &MockDriver{submitted: make(chan Utterance, 64)}
}

// NewAutoMockDriver creates a mock that simulates speech at the given speed.
func NewAutoMockDriver(charsPerSecond float64) *MockDriver {
	m := NewMockDriver()
	m.auto = true
	m.charsPerSecond = charsPerSecond
	return m
}

func (m *MockDriver) Submit(u Utterance, l Listener) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SubmitErr != nil {
		return m.SubmitErr
	}

	m.dropLocked()

	cur := &mockUtterance{eventGate: newEventGate(l), utterance: u, stop: make(chan struct{})}
	m.current = cur
	m.history = append(m.history, cur)
	m.speaking = true
	m.paused = false

	select {
	case m.submitted <- u:
	default:
	}

	if m.auto {
		go m.simulate(cur)
	}
	return nil
}

// dropLocked forgets the current utterance without emitting anything.
func (m *MockDriver) dropLocked() {
	if m.current != nil {
		m.current.close()
		close(m.current.stop)
		m.current = nil
	}
	m.speaking = false
	m.paused = false
}

func (m *MockDriver) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels++
	m.dropLocked()
	return nil
}

func (m *MockDriver) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.speaking && !m.paused {
		m.paused = true
		m.pauses++
	}
	return nil
}

func (m *MockDriver) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused {
		m.paused = false
		m.resumes++
	}
	return nil
}

func (m *MockDriver) IsSpeaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

func (m *MockDriver) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *MockDriver) Voices() ([]string, error) {
	return []string{"mock-voice"}, nil
}

// Progress emits a progress event for the current utterance.
func (m *MockDriver) Progress(charIndex int) {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()
	if cur != nil {
		cur.emit(Event{Kind: EventProgress, CharIndex: charIndex})
	}
}

// Complete finishes the current utterance normally.
func (m *MockDriver) Complete() {
	if cur := m.finish(); cur != nil {
		cur.emit(Event{Kind: EventComplete})
	}
}

// Fail finishes the current utterance with err.
func (m *MockDriver) Fail(err error) {
	if cur := m.finish(); cur != nil {
		cur.emit(Event{Kind: EventError, Err: err})
	}
}

// Interrupt stops speaking without telling anyone, like a platform that silently drops audio.
func (m *MockDriver) Interrupt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked()
}

func (m *MockDriver) finish() *mockUtterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.current
	if cur == nil {
		return nil
	}
	m.current = nil
	m.speaking = false
	m.paused = false
	close(cur.stop)
	return cur
}

// Replay delivers ev straight to the listener of the n-th submission, even if that
// utterance was cancelled. It models a driver that keeps firing events late.
func (m *MockDriver) Replay(n int, ev Event) {
	m.mu.Lock()
	if n < 0 || n >= len(m.history) {
		m.mu.Unlock()
		return
	}
	l := m.history[n].listener
	m.mu.Unlock()
	l(ev)
}

// WaitForSubmit blocks until an utterance is submitted or the timeout expires.
func (m *MockDriver) WaitForSubmit(timeout time.Duration) (Utterance, bool) {
	select {
	case u := <-m.submitted:
		return u, true
	case <-time.After(timeout):
		return Utterance{}, false
	}
}

// Submissions returns every utterance submitted so far.
func (m *MockDriver) Submissions() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Utterance, len(m.history))
	for i, h := range m.history {
		out[i] = h.utterance
	}
	return out
}

func (m *MockDriver) CancelCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels
}

func (m *MockDriver) PauseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauses
}

func (m *MockDriver) ResumeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resumes
}

func (m *MockDriver) simulate(cur *mockUtterance) {
	starts := wordStarts(cur.utterance.Text)
	total := utf8.RuneCountInString(cur.utterance.Text)

	rate := cur.utterance.Rate
	if rate <= 0 {
		rate = 1
	}
	cps := m.charsPerSecond * rate

	for i, start := range starts {
		cur.emit(Event{Kind: EventProgress, CharIndex: start})

		end := total
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if !m.sleep(cur, time.Duration(float64(end-start)/cps*float64(time.Second))) {
			return
		}
	}

	m.mu.Lock()
	if m.current != cur {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.speaking = false
	m.paused = false
	close(cur.stop)
	m.mu.Unlock()

	cur.emit(Event{Kind: EventComplete})
}

// sleep waits for d of unpaused time; it reports false if the utterance was dropped.
func (m *MockDriver) sleep(cur *mockUtterance, d time.Duration) bool {
	const step = 10 * time.Millisecond
	for d > 0 {
		select {
		case <-cur.stop:
			return false
		case <-time.After(step):
		}
		m.mu.Lock()
		paused := m.paused && m.current == cur
		m.mu.Unlock()
		if !paused {
			d -= step
		}
	}
	return true
}
