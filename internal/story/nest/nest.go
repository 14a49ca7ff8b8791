package nest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"linguanest/internal/cli/scheme/colours"
	"linguanest/internal/config"
	"linguanest/internal/domain/library/generator"
	"linguanest/internal/domain/story"
	"linguanest/internal/story/playback"
	"linguanest/internal/story/tts"
)

// LinguaNest main application structure
type LinguaNest struct {
	settings config.Settings
	language story.Language
	level    story.Level

	driver tts.Driver
	cache  *generator.StoryCache
	ctrl   *Controller

	mu          sync.Mutex
	showEnglish bool

	in     io.Reader
	lines  *bufio.Scanner
	out    io.Writer
	ctx    context.Context
	Cancel context.CancelFunc
}

func NewLinguaNest() *LinguaNest {
	ctx, cancel := context.WithCancel(context.Background())
	return &LinguaNest{
		showEnglish: true,
		in:          os.Stdin,
		out:         os.Stdout,
		ctx:         ctx,
		Cancel:      cancel,
	}
}

// Setup builds the speech driver, story generator and controller from the current settings.
func (ln *LinguaNest) Setup() error {
	ln.settings = config.Current()

	lang, err := story.ParseLanguage(ln.settings.Story.Language)
	if err != nil {
		return err
	}
	level, err := story.ParseLevel(ln.settings.Story.Level)
	if err != nil {
		return err
	}
	ln.language, ln.level = lang, level

	gen, err := ln.newGenerator()
	if err != nil {
		return err
	}

	ln.driver = newDriver(ln.settings.TTS)
	engine := playback.NewEngine(ln.driver,
		playback.WithRate(ln.settings.TTS.Rate),
		playback.WithSubmitDelay(ln.settings.TTS.SubmitDelay),
	)
	ln.ctrl = NewController(gen, engine,
		WithReconcileInterval(ln.settings.Playback.PollInterval),
		WithDefaults(lang, level),
	)
	return nil
}

func newDriver(s config.TTSSettings) tts.Driver {
	driver, err := tts.NewDriver(tts.Config{
		Type:      s.Type,
		Volume:    s.Volume,
		Voice:     s.Voice,
		CachePath: s.CachePath,
	})
	if err != nil {
		logrus.WithError(err).Warn("Speech is not available, stories can be read but not played")
		return nil
	}
	return driver
}

func (ln *LinguaNest) newGenerator() (generator.StoryGenerator, error) {
	s := ln.settings.Story
	switch strings.ToLower(s.Provider) {
	case "sample":
		return generator.NewSample(), nil

	case "gemini", "":
		cfg, err := generator.LoadGeminiConfig()
		if err != nil {
			return nil, err
		}
		if s.APIKey != "" {
			cfg.APIKey = s.APIKey
		}
		if s.Model != "" {
			cfg.Model = s.Model
		}
		if s.RequestsPerMinute > 0 {
			cfg.RequestsPerMinute = s.RequestsPerMinute
		}
		gemini := generator.NewGemini(cfg)

		cache, err := generator.NewStoryCache(gemini, s.CacheDir, s.CacheMaxAge)
		if err != nil {
			logrus.WithError(err).Warn("Story cache disabled")
			return gemini, nil
		}
		ln.cache = cache
		return cache, nil

	default:
		return nil, fmt.Errorf("unknown story provider %q (use gemini or sample)", s.Provider)
	}
}

// Shutdown stops playback and cancels everything in flight.
func (ln *LinguaNest) Shutdown() {
	ln.Cancel()
	if ln.ctrl != nil {
		ln.ctrl.Stop()
	}
}

func (ln *LinguaNest) ShowWelcome(cmd *cobra.Command, args []string) {
	fmt.Fprintln(ln.out)
	colours.Title.Fprintln(ln.out, "🌍 Welcome to LinguaNest! 🌍")
	fmt.Fprintln(ln.out)
	colours.Info.Fprintln(ln.out, "📚 Available commands:")
	fmt.Fprintln(ln.out, "  • linguanest generate [topic] - Write a new story and print it")
	fmt.Fprintln(ln.out, "  • linguanest play [topic]     - Write a story and listen to it")
	fmt.Fprintln(ln.out, "  • linguanest languages        - Show languages and levels")
	fmt.Fprintln(ln.out, "  • linguanest voices           - Show speech engines and voices")
	fmt.Fprintln(ln.out, "  • linguanest settings         - Show the effective configuration")
	fmt.Fprintln(ln.out, "  • linguanest cache status     - Inspect generated stories on disk")
	fmt.Fprintln(ln.out)
	colours.Prompt.Fprintln(ln.out, "✨ Ready to learn through stories? ✨")
}

func (ln *LinguaNest) GenerateStory(cmd *cobra.Command, args []string) {
	snap, ok := ln.generate(args)
	if !ok {
		return
	}
	ln.printStory(snap)
}

// generate fetches a story for the topic in args, asking for one when args is empty.
func (ln *LinguaNest) generate(args []string) (Snapshot, bool) {
	topic := strings.TrimSpace(strings.Join(args, " "))
	if topic == "" {
		colours.Prompt.Fprint(ln.out, "🌟 What should the story be about? ")
		if ln.scanner().Scan() {
			topic = strings.TrimSpace(ln.scanner().Text())
		}
	}
	if topic == "" {
		colours.Error.Fprintln(ln.out, "❌ A topic is needed to write a story.")
		return Snapshot{}, false
	}

	colours.Info.Fprintf(ln.out, "✍️  Writing a %s story (%s) about %q...\n",
		ln.language.FullName(), ln.level.Label(), topic)

	err := ln.ctrl.Generate(ln.ctx, topic, ln.language, ln.level)
	snap := ln.ctrl.Snapshot()
	if err != nil {
		colours.Error.Fprintf(ln.out, "❌ %v\n", err)
		if snap.ConfigIssue {
			colours.Warning.Fprintln(ln.out, "🔑 Set GEMINI_API_KEY (or API_KEY), or try --provider sample.")
		}
		return snap, false
	}
	return snap, true
}

func (ln *LinguaNest) printStory(snap Snapshot) {
	fmt.Fprintln(ln.out)
	colours.Title.Fprintf(ln.out, "📖 %s\n", snap.Topic)
	colours.Topic.Fprintf(ln.out, "%s (%s) · %s · %d sentences\n\n",
		snap.Language.FullName(), snap.Language.NativeName(), snap.Level.Label(), snap.Story.TotalSentences())

	ln.mu.Lock()
	showEnglish := ln.showEnglish
	ln.mu.Unlock()
	renderStory(ln.out, snap.Story, snap.Highlight, showEnglish)
}

func (ln *LinguaNest) PlayStory(cmd *cobra.Command, args []string) {
	if _, ok := ln.generate(args); !ok {
		return
	}
	ln.printStory(ln.ctrl.Snapshot())
	if ln.driver == nil {
		colours.Warning.Fprintln(ln.out, "🔇 No speech engine found, playback will report an error.")
	}

	ctx, cancel := context.WithCancel(ln.ctx)
	done := make(chan struct{})
	go func() {
		ln.ctrl.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	ln.ctrl.OnChange(ln.follow())
	ln.printHelp()
	ln.interact()
}

// follow returns a listener that prints state changes and each newly spoken sentence.
func (ln *LinguaNest) follow() func(Snapshot) {
	var mu sync.Mutex
	lastState := playback.Idle
	lastHighlight := story.NoSentence

	return func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()

		if snap.Highlight != lastHighlight && snap.State == playback.Playing {
			ln.mu.Lock()
			showEnglish := ln.showEnglish
			ln.mu.Unlock()
			renderSentence(ln.out, snap, showEnglish)
		}
		if snap.State != lastState {
			fmt.Fprintln(ln.out, statusLine(snap))
			if snap.State == playback.Error && snap.Error != "" {
				colours.Error.Fprintf(ln.out, "❌ %s\n", snap.Error)
			}
		}
		lastState, lastHighlight = snap.State, snap.Highlight
	}
}

func (ln *LinguaNest) printHelp() {
	fmt.Fprintln(ln.out)
	colours.Info.Fprintln(ln.out, "🎧 Controls:")
	fmt.Fprintln(ln.out, "  p          play / pause / resume")
	fmt.Fprintln(ln.out, "  s          stop")
	fmt.Fprintln(ln.out, "  <n>, j <n> jump to sentence n")
	fmt.Fprintln(ln.out, "  at <p> <s> jump to sentence s of paragraph p")
	fmt.Fprintln(ln.out, "  seek <pct> jump to a point in the story")
	fmt.Fprintln(ln.out, "  e          show / hide the English translation")
	fmt.Fprintln(ln.out, "  c          copy the current sentence pair")
	fmt.Fprintln(ln.out, "  r          show the story again")
	fmt.Fprintln(ln.out, "  q          quit")
	fmt.Fprintln(ln.out)
}

func (ln *LinguaNest) scanner() *bufio.Scanner {
	if ln.lines == nil {
		ln.lines = bufio.NewScanner(ln.in)
	}
	return ln.lines
}

func (ln *LinguaNest) interact() {
	scanner := ln.scanner()
	for {
		select {
		case <-ln.ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			return
		}
		cmd, err := parseCommand(scanner.Text())
		if err != nil {
			colours.Warning.Fprintf(ln.out, "ℹ️  %v (h for help)\n", err)
			continue
		}
		if quit := ln.execute(cmd); quit {
			ln.ctrl.Stop()
			colours.Warning.Fprintln(ln.out, "👋 À bientôt! ¡Hasta pronto!")
			return
		}
	}
}

// execute runs one interactive command and reports whether the session should end.
func (ln *LinguaNest) execute(cmd command) bool {
	var err error
	switch cmd.kind {
	case cmdPlayPause:
		err = ln.ctrl.PlayPauseResume()
	case cmdStop:
		ln.ctrl.Stop()
	case cmdJump:
		err = ln.ctrl.PlayFrom(cmd.sentence - 1)
	case cmdClick:
		err = ln.ctrl.ClickSentence(cmd.paragraph-1, cmd.sentence-1)
	case cmdSeek:
		err = ln.ctrl.Seek(cmd.percent)
	case cmdEnglish:
		ln.mu.Lock()
		ln.showEnglish = !ln.showEnglish
		shown := ln.showEnglish
		ln.mu.Unlock()
		if shown {
			colours.Info.Fprintln(ln.out, "👀 English translation shown")
		} else {
			colours.Info.Fprintln(ln.out, "🙈 English translation hidden")
		}
	case cmdCopy:
		err = ln.copySentence()
	case cmdShow:
		ln.printStory(ln.ctrl.Snapshot())
	case cmdHelp:
		ln.printHelp()
	case cmdQuit:
		return true
	}

	if err != nil {
		colours.Error.Fprintf(ln.out, "❌ %v\n", err)
	}
	return false
}

func (ln *LinguaNest) copySentence() error {
	target, english, ok := ln.ctrl.Snapshot().HighlightedPair()
	if !ok {
		return errors.New("no sentence is highlighted")
	}
	if clipboard.Unsupported {
		return errors.New("clipboard is not supported on this system")
	}
	if err := clipboard.WriteAll(target + "\n" + english); err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}
	colours.Success.Fprintln(ln.out, "📋 Copied to clipboard")
	return nil
}

func (ln *LinguaNest) ListLanguages(cmd *cobra.Command, args []string) {
	fmt.Fprintln(ln.out)
	colours.Title.Fprintln(ln.out, "🗣️  Languages")
	for _, lang := range story.SupportedLanguages {
		fmt.Fprintf(ln.out, "  %-3s %-8s %-10s %s\n", lang, lang.FullName(), lang.NativeName(), lang.Locale())
	}
	fmt.Fprintln(ln.out)
	colours.Title.Fprintln(ln.out, "🎯 Levels")
	for _, level := range story.Levels {
		marker := " "
		if level == story.DefaultLevel {
			marker = "*"
		}
		fmt.Fprintf(ln.out, "  %s %s\n", marker, level.Label())
	}
}

func (ln *LinguaNest) ListVoices(cmd *cobra.Command, args []string) {
	fmt.Fprintln(ln.out)
	colours.Title.Fprintln(ln.out, "🎤 Speech engines")
	for _, engine := range tts.GetAvailableEngines() {
		fmt.Fprintf(ln.out, "  • %s\n", engine)
	}
	fmt.Fprintln(ln.out)

	if ln.driver == nil {
		colours.Warning.Fprintln(ln.out, "🔇 No speech engine could be started.")
		return
	}
	lister, ok := ln.driver.(tts.VoiceLister)
	if !ok {
		colours.Info.Fprintln(ln.out, "ℹ️  This engine cannot list its voices.")
		return
	}
	voices, err := lister.Voices()
	if err != nil {
		colours.Error.Fprintf(ln.out, "❌ Failed to list voices: %v\n", err)
		return
	}
	colours.Title.Fprintf(ln.out, "🎙️  %d voices\n", len(voices))
	for _, v := range voices {
		fmt.Fprintf(ln.out, "  • %s\n", v)
	}
}

func (ln *LinguaNest) ShowSettings(cmd *cobra.Command, args []string) {
	fmt.Fprintln(ln.out)
	colours.Title.Fprintln(ln.out, "⚙️  Settings")
	if file := config.FileUsed(); file != "" {
		colours.Info.Fprintf(ln.out, "📁 %s\n", file)
	} else {
		colours.Info.Fprintln(ln.out, "📁 No config file, using defaults")
	}
	fmt.Fprintln(ln.out)

	out, err := config.Current().YAML()
	if err != nil {
		colours.Error.Fprintf(ln.out, "❌ %v\n", err)
		return
	}
	fmt.Fprint(ln.out, out)
}

// storyCache returns the cache in use, or opens the configured cache directory.
func (ln *LinguaNest) storyCache() (*generator.StoryCache, error) {
	if ln.cache != nil {
		return ln.cache, nil
	}
	return generator.NewStoryCache(nil, ln.settings.Story.CacheDir, ln.settings.Story.CacheMaxAge)
}

// ShowCacheStatus displays information about the story cache
func (ln *LinguaNest) ShowCacheStatus(cmd *cobra.Command, args []string) {
	colours.Title.Fprintln(ln.out, "📊 Story Cache Status")

	cache, err := ln.storyCache()
	if err != nil {
		colours.Error.Fprintf(ln.out, "❌ %v\n", err)
		return
	}
	info, err := cache.Info()
	if err != nil {
		colours.Error.Fprintf(ln.out, "❌ Failed to get cache info: %v\n", err)
		return
	}

	colours.Info.Fprintf(ln.out, "📁 Location: %s\n", info.Dir)
	if info.Entries == 0 {
		colours.Warning.Fprintln(ln.out, "📭 No stories cached yet")
		return
	}
	colours.Info.Fprintf(ln.out, "📚 Stories: %d\n", info.Entries)
	colours.Info.Fprintf(ln.out, "📏 Size: %s\n", humanize.Bytes(uint64(info.Bytes)))
	colours.Info.Fprintf(ln.out, "🕐 Newest: %s, oldest: %s\n", humanize.Time(info.Newest), humanize.Time(info.Oldest))
	colours.Info.Fprintf(ln.out, "⏳ Stories are reused for %s\n", info.MaxAge)
}

func (ln *LinguaNest) ListCachedStories(cmd *cobra.Command, args []string) {
	cache, err := ln.storyCache()
	if err != nil {
		colours.Error.Fprintf(ln.out, "❌ %v\n", err)
		return
	}
	lib, err := cache.List()
	if err != nil {
		colours.Error.Fprintf(ln.out, "❌ %v\n", err)
		return
	}

	colours.Title.Fprintf(ln.out, "📚 %s\n\n", lib.Name)
	for i, entry := range lib.Entries {
		fmt.Fprintf(ln.out, "  %d. ", i+1)
		colours.Title.Fprint(ln.out, entry.Topic)
		fmt.Fprintf(ln.out, " · %s · %s\n", entry.Language.FullName(), entry.Level.Label())
		colours.Info.Fprintf(ln.out, "     %d sentences, written %s, ID: %s\n",
			entry.Content.TotalSentences(), humanize.Time(entry.CreatedAt), entry.ID)
	}
	if len(lib.Entries) == 0 {
		colours.Warning.Fprintln(ln.out, "🔍 No stories cached yet.")
	}
}

func (ln *LinguaNest) ClearCache(cmd *cobra.Command, args []string) {
	cache, err := ln.storyCache()
	if err != nil {
		colours.Error.Fprintf(ln.out, "❌ %v\n", err)
		return
	}
	if err := cache.Clear(); err != nil {
		colours.Error.Fprintf(ln.out, "❌ %v\n", err)
		return
	}
	colours.Success.Fprintln(ln.out, "✅ Story cache cleared")
}

// AddCacheCommands adds the cache command group to rootCmd
func (ln *LinguaNest) AddCacheCommands(rootCmd *cobra.Command) {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "🗄️ Manage generated stories",
		Long:  "Inspect, list and clear the stories kept on disk",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "📊 Show cache status",
		Run:   ln.ShowCacheStatus,
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "📋 List cached stories",
		Run:   ln.ListCachedStories,
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "🧹 Remove every cached story",
		Run:   ln.ClearCache,
	}

	cacheCmd.AddCommand(statusCmd, listCmd, clearCmd)
	rootCmd.AddCommand(cacheCmd)
}
