package nest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"linguanest/internal/domain/library/generator"
	"linguanest/internal/domain/story"
	"linguanest/internal/story/playback"
)

var (
	ErrGenerationDisabled = errors.New("story generation is disabled until the configuration issue is resolved")
	ErrBusy               = errors.New("a story is already being generated")
	ErrNoStory            = errors.New("no story loaded")
	ErrSentenceOutOfRange = errors.New("sentence is out of range")
)

// Player is the part of the playback engine the controller drives.
type Player interface {
	SpeakFrom(paragraphs story.Paragraphs, locale string, start int, h playback.Handlers)
	Stop()
	Pause()
	Resume()
	IsSpeaking() bool
	IsPaused() bool
	Pending() bool
}

// Snapshot is the controller's view of the reader at one instant.
type Snapshot struct {
	State       playback.AudioState
	Highlight   int // global sentence index or story.NoSentence
	Progress    int // 0-100
	Error       string
	ConfigIssue bool
	Loading     bool

	Topic    string
	Language story.Language
	Level    story.Level
	Story    *story.Content
}

// HighlightCoord locates the highlighted sentence within the story.
func (s Snapshot) HighlightCoord() (story.Coord, bool) {
	if s.Story == nil {
		return story.Coord{}, false
	}
	return story.FromGlobalIndex(s.Highlight, s.Story.TargetParagraphs)
}

// HighlightedPair returns the highlighted sentence in both languages.
func (s Snapshot) HighlightedPair() (target, english string, ok bool) {
	coord, ok := s.HighlightCoord()
	if !ok {
		return "", "", false
	}
	target = s.Story.TargetParagraphs[coord.Paragraph][coord.Sentence]
	english = s.Story.EnglishParagraphs[coord.Paragraph][coord.Sentence]
	return target, english, true
}

type ControllerOption func(*Controller)

// WithReconcileInterval sets how often Run checks the driver for silent stops.
func WithReconcileInterval(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.pollInterval = d
	}
}

// WithDefaults sets the language and level shown before any story is generated.
func WithDefaults(lang story.Language, level story.Level) ControllerOption {
	return func(c *Controller) {
		c.snap.Language = lang
		c.snap.Level = level
	}
}

// Controller owns the believed playback state and turns user actions into engine calls.
// It never holds its lock while calling the player.
type Controller struct {
	generator    generator.StoryGenerator
	player       Player
	pollInterval time.Duration

	mu   sync.Mutex
	snap Snapshot
	// token identifies the playback request whose callbacks are still wanted
	token       uint64
	charsBefore []int
	storyChars  int
	listeners   []func(Snapshot)
}

func NewController(gen generator.StoryGenerator, player Player, opts ...ControllerOption) *Controller {
	c := &Controller{
		generator:    gen,
		player:       player,
		pollInterval: playback.DefaultPollInterval,
		snap: Snapshot{
			State:     playback.Idle,
			Highlight: story.NoSentence,
			Language:  story.French,
			Level:     story.DefaultLevel,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers fn to be called with every new snapshot. fn may run on a
// playback goroutine and must not block.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// CanGenerate reports whether Generate would be attempted.
func (c *Controller) CanGenerate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.snap.ConfigIssue && !c.snap.Loading
}

func (c *Controller) notify() {
	c.mu.Lock()
	snap := c.snap
	listeners := append([]func(Snapshot){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// Generate stops playback and fetches a new story. The error is also recorded in the snapshot.
func (c *Controller) Generate(ctx context.Context, topic string, lang story.Language, level story.Level) error {
	c.mu.Lock()
	if c.snap.ConfigIssue {
		c.mu.Unlock()
		return ErrGenerationDisabled
	}
	if c.snap.Loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.token++
	c.snap.State = playback.LoadingSpeech
	c.snap.Loading = true
	c.snap.Error = ""
	c.snap.Story = nil
	c.snap.Highlight = story.NoSentence
	c.snap.Progress = 0
	c.snap.Topic = topic
	c.snap.Language = lang
	c.snap.Level = level
	c.charsBefore, c.storyChars = nil, 0
	c.mu.Unlock()

	c.player.Stop()
	c.notify()

	req := generator.Request{Topic: topic, Language: lang, Level: level}
	logrus.WithField("request", req.String()).Debug("Generating story")
	content, err := c.generator.Generate(ctx, req)

	c.mu.Lock()
	c.snap.Loading = false
	if err != nil {
		c.snap.State = playback.Error
		c.snap.Error = err.Error()
		if generator.IsConfigurationIssue(err) {
			c.snap.ConfigIssue = true
		}
	} else {
		c.snap.State = playback.Idle
		c.snap.Story = content
		c.charsBefore, c.storyChars = sentenceOffsets(content.TargetParagraphs)
	}
	c.mu.Unlock()
	c.notify()

	if err != nil {
		logrus.WithError(err).WithField("request", req.String()).Warn("Story generation failed")
		return err
	}
	return nil
}

// sentenceOffsets returns the rune offset of each sentence within the whole story
// read aloud, and the length of that text.
func sentenceOffsets(paragraphs story.Paragraphs) ([]int, int) {
	sentences := paragraphs.Flatten()
	before := make([]int, len(sentences))
	pos := 0
	for i, s := range sentences {
		before[i] = pos
		pos += utf8.RuneCountInString(s) + 1
	}
	if pos > 0 {
		pos--
	}
	return before, pos
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	p := int(math.Round(float64(part) / float64(whole) * 100))
	return min(max(p, 0), 100)
}

// PlayPauseResume starts playback from the highlighted sentence when idle, pauses
// while playing and resumes while paused. It is ignored while loading.
func (c *Controller) PlayPauseResume() error {
	c.mu.Lock()
	state := c.snap.State
	start := c.snap.Highlight
	total := c.snap.Story.TotalSentences()
	c.mu.Unlock()

	switch state {
	case playback.Idle, playback.Error:
		if start < 0 || start >= total {
			start = 0
		}
		return c.playFrom(start, percent(start, total))
	case playback.Playing:
		c.player.Pause()
		c.transition(playback.Playing, playback.Paused)
	case playback.Paused:
		c.player.Resume()
		c.transition(playback.Paused, playback.Playing)
	}
	return nil
}

func (c *Controller) transition(from, to playback.AudioState) {
	c.mu.Lock()
	if c.snap.State != from {
		c.mu.Unlock()
		return
	}
	c.snap.State = to
	c.mu.Unlock()
	c.notify()
}

// Stop ends playback and clears the highlight. It does nothing unless playing or paused.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.snap.State != playback.Playing && c.snap.State != playback.Paused {
		c.mu.Unlock()
		return
	}
	c.token++
	c.snap.State = playback.Idle
	c.snap.Highlight = story.NoSentence
	c.snap.Progress = 0
	c.mu.Unlock()

	c.player.Stop()
	c.notify()
}

// ClickSentence starts playback at a sentence given by paragraph and position.
func (c *Controller) ClickSentence(paragraph, sentence int) error {
	c.mu.Lock()
	content := c.snap.Story
	loading := c.snap.State == playback.LoadingSpeech
	c.mu.Unlock()

	if content == nil {
		return ErrNoStory
	}
	if loading {
		return nil
	}
	paragraphs := content.TargetParagraphs
	if paragraph < 0 || paragraph >= len(paragraphs) || sentence < 0 || sentence >= len(paragraphs[paragraph]) {
		return fmt.Errorf("%w: paragraph %d sentence %d", ErrSentenceOutOfRange, paragraph+1, sentence+1)
	}

	global := story.ToGlobalIndex(paragraph, sentence, paragraphs)
	return c.playFrom(global, percent(global, content.TotalSentences()))
}

// PlayFrom starts playback at a global sentence index.
func (c *Controller) PlayFrom(global int) error {
	c.mu.Lock()
	content := c.snap.Story
	loading := c.snap.State == playback.LoadingSpeech
	c.mu.Unlock()

	if content == nil {
		return ErrNoStory
	}
	if loading {
		return nil
	}
	return c.playFrom(global, percent(global, content.TotalSentences()))
}

// Seek starts playback at the sentence found pct percent of the way through the story.
func (c *Controller) Seek(pct float64) error {
	c.mu.Lock()
	content := c.snap.Story
	loading := c.snap.State == playback.LoadingSpeech
	c.mu.Unlock()

	if content == nil {
		return ErrNoStory
	}
	if loading {
		return nil
	}
	total := content.TotalSentences()

	pct = math.Min(math.Max(pct, 0), 100)
	target := int(math.Floor(pct / 100 * float64(total)))
	target = min(max(target, 0), total-1)

	return c.playFrom(target, int(math.Round(pct)))
}

func (c *Controller) playFrom(start, progress int) error {
	c.mu.Lock()
	content := c.snap.Story
	total := content.TotalSentences()
	if total == 0 {
		c.mu.Unlock()
		return ErrNoStory
	}
	if start < 0 || start >= total {
		c.mu.Unlock()
		return fmt.Errorf("%w: sentence %d of %d", ErrSentenceOutOfRange, start+1, total)
	}

	c.token++
	token := c.token
	c.snap.State = playback.LoadingSpeech
	c.snap.Highlight = start
	c.snap.Progress = progress
	c.snap.Error = ""
	locale := c.snap.Language.Locale()
	c.mu.Unlock()
	c.notify()

	c.player.Stop()
	c.player.SpeakFrom(content.TargetParagraphs, locale, start, c.handlers(token, start))

	// the engine reports failures to start through OnError, which may already have run
	c.mu.Lock()
	if c.token == token && c.snap.State == playback.LoadingSpeech {
		c.snap.State = playback.Playing
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Controller) handlers(token uint64, start int) playback.Handlers {
	return playback.Handlers{
		OnBoundary: func(sentence, charIndex, totalChars int) {
			c.update(token, func(s *Snapshot) {
				s.Highlight = sentence
				if start < len(c.charsBefore) {
					s.Progress = percent(c.charsBefore[start]+charIndex, c.storyChars)
				}
			})
		},
		OnEnd: func() {
			c.update(token, func(s *Snapshot) {
				s.State = playback.Idle
				s.Highlight = story.NoSentence
				s.Progress = 100
			})
		},
		OnError: func(err error) {
			c.update(token, func(s *Snapshot) {
				s.State = playback.Error
				s.Highlight = story.NoSentence
				s.Progress = 0
				s.Error = fmt.Sprintf("Speech synthesis error: %v", err)
			})
		},
	}
}

// update applies fn if token still names the current playback request.
func (c *Controller) update(token uint64, fn func(*Snapshot)) {
	c.mu.Lock()
	if c.token != token {
		c.mu.Unlock()
		return
	}
	fn(&c.snap)
	c.mu.Unlock()
	c.notify()
}

// Reconcile resets playback to Idle when the driver stopped without telling anyone.
func (c *Controller) Reconcile() {
	c.mu.Lock()
	state := c.snap.State
	token := c.token
	c.mu.Unlock()

	if state != playback.Playing && state != playback.Paused {
		return
	}

	speaking := c.player.IsSpeaking() || c.player.Pending()
	paused := c.player.IsPaused()
	if !playback.Diverged(state, speaking, paused) {
		return
	}

	c.mu.Lock()
	if c.token != token || c.snap.State != state {
		c.mu.Unlock()
		return
	}
	c.token++
	c.snap.State = playback.Idle
	c.snap.Highlight = story.NoSentence
	c.mu.Unlock()

	playback.MetricDivergenceResets.Inc()
	logrus.WithField("believed", state.String()).Debug("Speech stopped silently, resetting playback")

	c.player.Stop()
	c.notify()
}

// Run reconciles playback until ctx is done, then stops any active session.
func (c *Controller) Run(ctx context.Context) {
	monitor := playback.NewMonitor(c, playback.WithPollInterval(c.pollInterval))
	monitor.Run(ctx)

	c.mu.Lock()
	c.token++
	if c.snap.State == playback.Playing || c.snap.State == playback.Paused {
		c.snap.State = playback.Idle
		c.snap.Highlight = story.NoSentence
	}
	c.mu.Unlock()
	c.player.Stop()
}
