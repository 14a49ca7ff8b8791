package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"linguanest/internal/domain/story"
	"linguanest/internal/story/tts"
)

const waitTimeout = 2 * time.Second

type call struct {
	Kind      string
	Sentence  int
	CharIndex int
	Total     int
	Err       error
}

type recorder struct {
	calls chan call
}

func newRecorder() *recorder {
	return &recorder{calls: make(chan call, 64)}
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnBoundary: func(sentence, charIndex, totalChars int) {
			r.calls <- call{Kind: "boundary", Sentence: sentence, CharIndex: charIndex, Total: totalChars}
		},
		OnEnd: func() {
			r.calls <- call{Kind: "end"}
		},
		OnError: func(err error) {
			r.calls <- call{Kind: "error", Err: err}
		},
	}
}

func (r *recorder) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-r.calls:
		return c
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a callback")
		return call{}
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case c := <-r.calls:
		t.Fatalf("unexpected callback: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitSubmit(t *testing.T, m *tts.MockDriver) tts.Utterance {
	t.Helper()
	u, ok := m.WaitForSubmit(waitTimeout)
	if !ok {
		t.Fatal("timed out waiting for the utterance to be submitted")
	}
	return u
}

var sample = story.Paragraphs{{"Hello.", "Bye."}, {"Ok."}}

func TestSpeakFromReportsGlobalIndex(t *testing.T) {
	mock := tts.NewMockDriver()
	engine := NewEngine(mock, WithSubmitDelay(0))
	rec := newRecorder()

	engine.SpeakFrom(sample, "fr-FR", 1, rec.handlers())

	u := waitSubmit(t, mock)
	want := tts.Utterance{Text: "Bye. Ok.", Locale: "fr-FR", Rate: DefaultRate}
	if diff := cmp.Diff(want, u); diff != "" {
		t.Fatalf("utterance mismatch (-want +got):\n%s", diff)
	}

	mock.Progress(0)
	mock.Progress(5)
	mock.Complete()

	wantCalls := []call{
		{Kind: "boundary", Sentence: 1, CharIndex: 0, Total: 8},
		{Kind: "boundary", Sentence: 2, CharIndex: 5, Total: 8},
		{Kind: "boundary", Sentence: story.NoSentence, CharIndex: 8, Total: 8},
		{Kind: "end"},
	}
	for i, w := range wantCalls {
		if diff := cmp.Diff(w, rec.next(t)); diff != "" {
			t.Errorf("callback %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	rec.none(t)

	if engine.Pending() {
		t.Error("Pending() = true after the session ended")
	}
}

func TestSpeakFromDriverError(t *testing.T) {
	mock := tts.NewMockDriver()
	engine := NewEngine(mock, WithSubmitDelay(0))
	rec := newRecorder()
	boom := errors.New("boom")

	engine.SpeakFrom(sample, "es-ES", 0, rec.handlers())
	waitSubmit(t, mock)

	mock.Progress(7)
	mock.Fail(boom)

	if got := rec.next(t); got.Sentence != 1 || got.CharIndex != 7 {
		t.Errorf("first boundary = %+v, want sentence 1 at 7", got)
	}
	if got := rec.next(t); got.Kind != "boundary" || got.Sentence != story.NoSentence || got.CharIndex != 7 || got.Total != 15 {
		t.Errorf("terminal boundary = %+v, want NoSentence at 7 of 15", got)
	}
	got := rec.next(t)
	if got.Kind != "error" || !errors.Is(got.Err, boom) {
		t.Errorf("last callback = %+v, want error wrapping boom", got)
	}
	rec.none(t)
}

func TestSpeakFromSubmitFailure(t *testing.T) {
	mock := tts.NewMockDriver()
	mock.SubmitErr = errors.New("device busy")
	engine := NewEngine(mock, WithSubmitDelay(0))
	rec := newRecorder()

	engine.SpeakFrom(sample, "fr-FR", 2, rec.handlers())

	if got := rec.next(t); got.Sentence != story.NoSentence || got.CharIndex != 0 || got.Total != 3 {
		t.Errorf("terminal boundary = %+v", got)
	}
	got := rec.next(t)
	if got.Kind != "error" || !errors.Is(got.Err, mock.SubmitErr) {
		t.Errorf("callback = %+v, want error wrapping the submit failure", got)
	}
}

func TestSpeakFromPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		driver  bool
		start   int
		wantErr error
		wantEnd bool
	}{
		{name: "no speech capability", driver: false, start: 0, wantErr: tts.ErrSpeechUnavailable},
		{name: "negative start", driver: true, start: -1, wantErr: ErrInvalidStartIndex},
		{name: "nothing left to speak", driver: true, start: 3, wantEnd: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := tts.NewMockDriver()
			var engine *Engine
			if tt.driver {
				engine = NewEngine(mock, WithSubmitDelay(0))
			} else {
				engine = NewEngine(nil)
			}

			var gotErr error
			var gotEnd bool
			engine.SpeakFrom(sample, "fr-FR", tt.start, Handlers{
				OnEnd:   func() { gotEnd = true },
				OnError: func(err error) { gotErr = err },
			})

			// reported synchronously
			if tt.wantErr != nil && !errors.Is(gotErr, tt.wantErr) {
				t.Errorf("error = %v, want %v", gotErr, tt.wantErr)
			}
			if gotEnd != tt.wantEnd {
				t.Errorf("ended = %v, want %v", gotEnd, tt.wantEnd)
			}
			if n := len(mock.Submissions()); n != 0 {
				t.Errorf("driver received %d submissions, want none", n)
			}
			if engine.Pending() {
				t.Error("Pending() = true, want false")
			}
		})
	}
}

func TestStopThenSpeakDropsStaleEvents(t *testing.T) {
	mock := tts.NewMockDriver()
	engine := NewEngine(mock, WithSubmitDelay(0))
	first := newRecorder()
	second := newRecorder()

	engine.SpeakFrom(sample, "fr-FR", 0, first.handlers())
	waitSubmit(t, mock)

	engine.Stop()
	engine.SpeakFrom(sample, "fr-FR", 1, second.handlers())
	waitSubmit(t, mock)

	// the first utterance's listener keeps firing after cancellation
	mock.Replay(0, tts.Event{Kind: tts.EventProgress, CharIndex: 0})
	mock.Replay(0, tts.Event{Kind: tts.EventComplete})
	mock.Replay(0, tts.Event{Kind: tts.EventError, Err: errors.New("interrupted")})
	first.none(t)

	mock.Progress(0)
	if got := second.next(t); got.Sentence != 1 {
		t.Errorf("boundary = %+v, want sentence 1", got)
	}
	if n := mock.CancelCount(); n != 1 {
		t.Errorf("CancelCount() = %d, want 1", n)
	}
}

func TestSpeakFromSupersedesActiveSession(t *testing.T) {
	mock := tts.NewMockDriver()
	engine := NewEngine(mock, WithSubmitDelay(0))
	first := newRecorder()
	second := newRecorder()

	engine.SpeakFrom(sample, "fr-FR", 0, first.handlers())
	waitSubmit(t, mock)
	mock.Progress(0)
	if got := first.next(t); got.Sentence != 0 {
		t.Fatalf("boundary = %+v, want sentence 0", got)
	}

	engine.SpeakFrom(sample, "fr-FR", 2, second.handlers())
	if n := mock.CancelCount(); n != 1 {
		t.Errorf("CancelCount() = %d, want the active utterance cancelled once", n)
	}
	u := waitSubmit(t, mock)
	if u.Text != "Ok." {
		t.Errorf("second utterance text = %q, want %q", u.Text, "Ok.")
	}

	mock.Replay(0, tts.Event{Kind: tts.EventComplete})
	first.none(t)

	mock.Complete()
	if got := second.next(t); got.Sentence != story.NoSentence || got.CharIndex != 3 {
		t.Errorf("terminal boundary = %+v", got)
	}
	if got := second.next(t); got.Kind != "end" {
		t.Errorf("callback = %+v, want end", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	mock := tts.NewMockDriver()
	engine := NewEngine(mock, WithSubmitDelay(0))
	rec := newRecorder()

	engine.Stop()
	if n := mock.CancelCount(); n != 0 {
		t.Fatalf("Stop() with no session cancelled the driver %d times", n)
	}

	engine.SpeakFrom(sample, "fr-FR", 0, rec.handlers())
	waitSubmit(t, mock)

	engine.Stop()
	engine.Stop()

	if n := mock.CancelCount(); n != 1 {
		t.Errorf("CancelCount() = %d, want 1", n)
	}
	if engine.IsSpeaking() {
		t.Error("IsSpeaking() = true after Stop()")
	}
	rec.none(t)
}

func TestPauseResumeForwarding(t *testing.T) {
	mock := tts.NewMockDriver()
	engine := NewEngine(mock, WithSubmitDelay(0))

	engine.Pause()
	engine.Resume()
	if mock.PauseCount() != 0 || mock.ResumeCount() != 0 {
		t.Fatal("Pause()/Resume() reached the driver with nothing spoken")
	}

	engine.SpeakFrom(sample, "fr-FR", 0, newRecorder().handlers())
	waitSubmit(t, mock)

	engine.Resume()
	engine.Pause()
	engine.Pause()
	if n := mock.PauseCount(); n != 1 {
		t.Errorf("PauseCount() = %d, want 1", n)
	}
	if !engine.IsPaused() || !engine.IsSpeaking() {
		t.Errorf("IsPaused() = %v, IsSpeaking() = %v, want both true", engine.IsPaused(), engine.IsSpeaking())
	}

	engine.Resume()
	engine.Resume()
	if n := mock.ResumeCount(); n != 1 {
		t.Errorf("ResumeCount() = %d, want 1", n)
	}
	if engine.IsPaused() {
		t.Error("IsPaused() = true after Resume()")
	}
}

func TestPendingUntilSubmitted(t *testing.T) {
	mock := tts.NewMockDriver()
	engine := NewEngine(mock, WithSubmitDelay(time.Hour))
	rec := newRecorder()

	engine.SpeakFrom(sample, "fr-FR", 0, rec.handlers())
	if !engine.Pending() {
		t.Error("Pending() = false while waiting out the submit delay")
	}

	engine.Stop()
	if engine.Pending() {
		t.Error("Pending() = true after Stop()")
	}
	if n := len(mock.Submissions()); n != 0 {
		t.Errorf("driver received %d submissions, want none", n)
	}
	rec.none(t)
}

func TestSpeakFromWithSimulatedSpeech(t *testing.T) {
	mock := tts.NewAutoMockDriver(1000)
	engine := NewEngine(mock, WithSubmitDelay(0), WithRate(1))
	rec := newRecorder()

	engine.SpeakFrom(story.Paragraphs{{"Ab", "C"}}, "fr-FR", 0, rec.handlers())

	want := []call{
		{Kind: "boundary", Sentence: 0, CharIndex: 0, Total: 4},
		{Kind: "boundary", Sentence: 1, CharIndex: 3, Total: 4},
		{Kind: "boundary", Sentence: story.NoSentence, CharIndex: 4, Total: 4},
		{Kind: "end"},
	}
	for i, w := range want {
		if diff := cmp.Diff(w, rec.next(t)); diff != "" {
			t.Errorf("callback %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}
