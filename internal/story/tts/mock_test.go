package tts

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
	done   chan struct{}
	once   sync.Once
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{done: make(chan struct{})}
}

func (r *eventRecorder) listen(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if ev.Kind != EventProgress {
		r.once.Do(func() { close(r.done) })
	}
}

func (r *eventRecorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestMockDriverManual(t *testing.T) {
	m := NewMockDriver()
	rec := newEventRecorder()

	if err := m.Submit(Utterance{Text: "Ab C", Locale: "fr-FR", Rate: 0.9}, rec.listen); err != nil {
		t.Fatal(err)
	}
	if u, ok := m.WaitForSubmit(time.Second); !ok || u.Locale != "fr-FR" {
		t.Fatalf("WaitForSubmit() = %+v, %v", u, ok)
	}
	if !m.IsSpeaking() || m.IsPaused() {
		t.Fatal("driver should be speaking and not paused after Submit")
	}

	m.Pause()
	m.Pause()
	if !m.IsSpeaking() || !m.IsPaused() {
		t.Error("a paused driver still reports speaking")
	}
	if m.PauseCount() != 1 {
		t.Errorf("PauseCount() = %d, want 1", m.PauseCount())
	}
	m.Resume()

	m.Progress(3)
	m.Complete()
	m.Progress(4)

	events := rec.snapshot()
	if len(events) != 2 || events[0].CharIndex != 3 || events[1].Kind != EventComplete {
		t.Errorf("unexpected events: %+v", events)
	}
	if m.IsSpeaking() {
		t.Error("driver still speaking after Complete")
	}
}

func TestMockDriverCancelIsSilent(t *testing.T) {
	m := NewMockDriver()
	rec := newEventRecorder()

	m.Submit(Utterance{Text: "Hello there"}, rec.listen)
	m.Cancel()
	m.Complete()
	m.Fail(errors.New("late"))

	if events := rec.snapshot(); len(events) != 0 {
		t.Errorf("cancelled utterance emitted %+v", events)
	}
	if m.CancelCount() != 1 {
		t.Errorf("CancelCount() = %d", m.CancelCount())
	}

	// Replay bypasses cancellation on purpose.
	m.Replay(0, Event{Kind: EventProgress, CharIndex: 6})
	if events := rec.snapshot(); len(events) != 1 {
		t.Errorf("Replay() should reach the old listener, got %+v", events)
	}
}

func TestMockDriverInterrupt(t *testing.T) {
	m := NewMockDriver()
	rec := newEventRecorder()

	m.Submit(Utterance{Text: "Hello"}, rec.listen)
	m.Pause()
	m.Interrupt()

	if m.IsSpeaking() || m.IsPaused() {
		t.Error("interrupted driver should report idle")
	}
	if events := rec.snapshot(); len(events) != 0 {
		t.Errorf("Interrupt() emitted %+v", events)
	}
}

func TestMockDriverSubmitError(t *testing.T) {
	m := NewMockDriver()
	m.SubmitErr = errors.New("device busy")

	if err := m.Submit(Utterance{Text: "x"}, func(Event) {}); err == nil {
		t.Fatal("expected Submit error")
	}
	if m.IsSpeaking() {
		t.Error("failed Submit must not start speaking")
	}
}

func TestMockDriverAuto(t *testing.T) {
	m := NewAutoMockDriver(1000)
	rec := newEventRecorder()

	m.Submit(Utterance{Text: "Ab C Def", Rate: 1}, rec.listen)

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("auto mock never completed")
	}

	events := rec.snapshot()
	want := []int{0, 3, 5}
	if len(events) != len(want)+1 {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want)+1, events)
	}
	for i, idx := range want {
		if events[i].Kind != EventProgress || events[i].CharIndex != idx {
			t.Errorf("event %d = %+v, want progress at %d", i, events[i], idx)
		}
	}
	if events[len(events)-1].Kind != EventComplete {
		t.Errorf("last event = %+v, want complete", events[len(events)-1])
	}
}
