package nest

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"

	"linguanest/internal/domain/library/generator"
	"linguanest/internal/domain/story"
	"linguanest/internal/story/playback"
	"linguanest/internal/story/tts"
)

func init() {
	color.NoColor = true
}

func newTestApp(input string) (*LinguaNest, *tts.MockDriver, *bytes.Buffer) {
	driver := tts.NewMockDriver()
	out := &bytes.Buffer{}
	ctx, cancel := context.WithCancel(context.Background())
	ln := &LinguaNest{
		language:    story.Spanish,
		level:       story.Beginner,
		driver:      driver,
		ctrl:        NewController(generator.NewSample(), playback.NewEngine(driver, playback.WithSubmitDelay(0))),
		showEnglish: true,
		in:          strings.NewReader(input),
		out:         out,
		ctx:         ctx,
		Cancel:      cancel,
	}
	return ln, driver, out
}

func TestRenderStory(t *testing.T) {
	content := &story.Content{
		EnglishParagraphs: story.Paragraphs{{"Hi.", "Bye."}, {"Yes."}},
		TargetParagraphs:  story.Paragraphs{{"Hola.", "Adiós."}, {"Sí."}},
	}

	tests := []struct {
		name        string
		showEnglish bool
		want        string
	}{
		{
			name:        "with translation",
			showEnglish: true,
			want:        "[1] Hola. [2] Adiós.\n    Hi. Bye.\n\n[3] Sí.\n    Yes.\n\n",
		},
		{
			name:        "translation hidden",
			showEnglish: false,
			want:        "[1] Hola. [2] Adiós.\n\n[3] Sí.\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderStory(&buf, content, 1, tt.showEnglish)
			if buf.String() != tt.want {
				t.Errorf("renderStory() =\n%q\nwant\n%q", buf.String(), tt.want)
			}
		})
	}
}

func TestProgressBar(t *testing.T) {
	tests := map[int]string{
		0:   "[--------------------]",
		50:  "[##########----------]",
		100: "[####################]",
		140: "[####################]",
		-5:  "[--------------------]",
	}
	for pct, want := range tests {
		if got := progressBar(pct); got != want {
			t.Errorf("progressBar(%d) = %q, want %q", pct, got, want)
		}
	}
}

func TestGenerateAndPrint(t *testing.T) {
	ln, _, out := newTestApp("")

	ln.GenerateStory(nil, []string{"the", "lost", "cat"})

	got := out.String()
	for _, want := range []string{
		"[1] Tom tiene un gato gris pequeño.",
		"[6] Tom se ríe y lo levanta.",
		"Tom has a small grey cat.",
		"6 sentences",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestGenerateAsksForTopic(t *testing.T) {
	ln, _, out := newTestApp("market\n")

	snap, ok := ln.generate(nil)
	if !ok {
		t.Fatalf("generate() failed:\n%s", out.String())
	}
	if snap.Topic != "market" || snap.Story == nil {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestGenerateWithoutTopic(t *testing.T) {
	ln, _, out := newTestApp("\n")

	if _, ok := ln.generate(nil); ok {
		t.Fatal("generate() succeeded without a topic")
	}
	if !strings.Contains(out.String(), "A topic is needed") {
		t.Errorf("output = %q", out.String())
	}
}

func TestExecute(t *testing.T) {
	ln, driver, out := newTestApp("")
	if _, ok := ln.generate([]string{"market"}); !ok {
		t.Fatalf("generate() failed:\n%s", out.String())
	}

	if quit := ln.execute(command{kind: cmdJump, sentence: 5}); quit {
		t.Fatal("jump ended the session")
	}
	snap := ln.ctrl.Snapshot()
	if snap.State != playback.Playing || snap.Highlight != 4 {
		t.Errorf("after jump: state %v highlight %d", snap.State, snap.Highlight)
	}
	u, ok := driver.WaitForSubmit(waitTimeout)
	if !ok {
		t.Fatal("nothing was submitted")
	}
	if u.Locale != "es-ES" || !strings.HasPrefix(u.Text, "María abre su paraguas rojo.") {
		t.Errorf("utterance = %+v", u)
	}

	ln.execute(command{kind: cmdClick, paragraph: 3, sentence: 1})
	if !strings.Contains(out.String(), ErrSentenceOutOfRange.Error()) {
		t.Errorf("out of range click not reported:\n%s", out.String())
	}

	ln.execute(command{kind: cmdEnglish})
	if ln.showEnglish {
		t.Error("English still shown after toggling")
	}

	ln.execute(command{kind: cmdStop})
	if got := ln.ctrl.Snapshot().State; got != playback.Idle {
		t.Errorf("state after stop = %v", got)
	}

	if quit := ln.execute(command{kind: cmdQuit}); !quit {
		t.Error("quit did not end the session")
	}
}

func TestFollowPrintsSpokenSentence(t *testing.T) {
	ln, _, out := newTestApp("")
	if _, ok := ln.generate([]string{"market"}); !ok {
		t.Fatal("generate() failed")
	}
	out.Reset()

	follow := ln.follow()
	snap := ln.ctrl.Snapshot()
	snap.State = playback.Playing
	snap.Highlight = 1
	snap.Progress = 20
	follow(snap)

	got := out.String()
	if !strings.Contains(got, "Compra manzanas y pan.") || !strings.Contains(got, "She buys apples and bread.") {
		t.Errorf("sentence not printed:\n%s", got)
	}
	if !strings.Contains(got, "playing") || !strings.Contains(got, "sentence 2/6") {
		t.Errorf("status not printed:\n%s", got)
	}
}
