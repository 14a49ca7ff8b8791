package tts

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/texttospeech/apiv1"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

// maxChunkRunes keeps each synthesis request a little under the 5000 byte limit for plain text
const maxChunkRunes = 4800

type GoogleClassicDriver struct {
	client   *texttospeech.Client
	voice    string
	volume   float64
	cacheDir string

	speakerOnce sync.Once
	speakerErr  error
	sampleRate  beep.SampleRate

	mu     sync.Mutex
	active *googleRun
}

type googleRun struct {
	*eventGate
	cancel    context.CancelFunc
	ctrl      *beep.Ctrl
	paused    bool
	cancelled bool
}

func newGoogleClassicDriver(config Config) (*GoogleClassicDriver, error) {
	client, err := texttospeech.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	cacheDir := config.CachePath
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "linguanest-tts")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	volume := config.Volume
	if volume <= 0 {
		volume = 1
	}

	return &GoogleClassicDriver{
		client:   client,
		voice:    config.Voice,
		volume:   volume,
		cacheDir: cacheDir,
	}, nil
}

func (g *GoogleClassicDriver) Submit(u Utterance, l Listener) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	run := &googleRun{eventGate: newEventGate(l), cancel: cancel}
	g.active = run

	go g.speak(ctx, run, u)
	return nil
}

func (g *GoogleClassicDriver) speak(ctx context.Context, run *googleRun, u Utterance) {
	chunks := splitIntoChunks(u.Text, maxChunkRunes)

	paths, err := g.synthesize(ctx, u, chunks)
	if err != nil {
		g.fail(ctx, run, err)
		return
	}

	offset := 0
	for i, path := range paths {
		n := len([]rune(chunks[i]))
		if err := g.playChunk(ctx, run, path, offset, n); err != nil {
			g.fail(ctx, run, err)
			return
		}
		if ctx.Err() != nil {
			return
		}
		offset += n
	}

	g.finish(run)
	run.emit(Event{Kind: EventComplete})
}

func (g *GoogleClassicDriver) fail(ctx context.Context, run *googleRun, err error) {
	if ctx.Err() != nil {
		return
	}
	logrus.WithError(err).Warn("Google speech playback failed")
	g.finish(run)
	run.emit(Event{Kind: EventError, Err: err})
}

func (g *GoogleClassicDriver) finish(run *googleRun) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == run {
		g.active = nil
	}
	run.cancel()
}

// synthesize returns one cached MP3 file per chunk, calling the API for chunks not on disk yet.
func (g *GoogleClassicDriver) synthesize(ctx context.Context, u Utterance, chunks []string) ([]string, error) {
	voice := g.voiceFor(u.Locale)
	contentHash := md5Sum(fmt.Sprintf("%s|%s|%s|%.2f", u.Text, voice, u.Locale, u.Rate))[:12]

	paths := make([]string, len(chunks))
	for i, chunk := range chunks {
		paths[i] = filepath.Join(g.cacheDir, fmt.Sprintf("%s_%d.mp3", contentHash, i))
		if _, err := os.Stat(paths[i]); err == nil {
			continue
		}

		audioCfg := &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		}
		// Chirp voices don't support speakingRate or volume gain
		if !strings.Contains(strings.ToLower(voice), "chirp") {
			if u.Rate > 0 {
				audioCfg.SpeakingRate = u.Rate
			}
			audioCfg.VolumeGainDb = 20 * math.Log10(g.volume)
		}

		resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: u.Locale,
				Name:         voice,
			},
			AudioConfig: audioCfg,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to synthesize chunk %d: %w", i, err)
		}

		if err := os.WriteFile(paths[i], resp.AudioContent, 0644); err != nil {
			return nil, fmt.Errorf("failed to write MP3 chunk %d to %s: %w", i, paths[i], err)
		}

		logrus.WithFields(logrus.Fields{
			"chunk": fmt.Sprintf("%d/%d", i+1, len(chunks)),
			"file":  paths[i],
		}).Debug("Cached audio chunk")
	}

	return paths, nil
}

// voiceFor uses the configured voice only when it belongs to the locale, otherwise the API default.
func (g *GoogleClassicDriver) voiceFor(locale string) string {
	if g.voice == "" || g.voice == "default" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(g.voice), strings.ToLower(locale)) {
		return g.voice
	}
	return ""
}

func (g *GoogleClassicDriver) initSpeaker(format beep.Format) error {
	g.speakerOnce.Do(func() {
		g.sampleRate = format.SampleRate
		g.speakerErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	return g.speakerErr
}

// playChunk plays one MP3 file and reports progress as offset plus the share of the chunk played.
func (g *GoogleClassicDriver) playChunk(ctx context.Context, run *googleRun, path string, offset, runes int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cached MP3 %s: %w", path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode MP3 %s: %w", path, err)
	}
	defer streamer.Close()

	if err := g.initSpeaker(format); err != nil {
		return fmt.Errorf("failed to initialise speaker: %w", err)
	}

	var source beep.Streamer = streamer
	if format.SampleRate != g.sampleRate {
		source = beep.Resample(4, format.SampleRate, g.sampleRate, streamer)
	}

	done := make(chan struct{})
	ctrl := &beep.Ctrl{Streamer: source}

	g.mu.Lock()
	if run.cancelled {
		g.mu.Unlock()
		return nil
	}
	ctrl.Paused = run.paused
	run.ctrl = ctrl
	g.mu.Unlock()

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		close(done)
	})))

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	total := streamer.Len()
	last := -1
	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		speaker.Lock()
		pos := streamer.Position()
		speaker.Unlock()

		if total <= 0 {
			continue
		}
		char := offset + int(float64(pos)/float64(total)*float64(runes))
		if char != last {
			last = char
			run.emit(Event{Kind: EventProgress, CharIndex: char})
		}
	}
}

func (g *GoogleClassicDriver) stopLocked() {
	run := g.active
	if run == nil {
		return
	}
	run.cancelled = true
	run.close()
	run.cancel()
	g.active = nil

	if run.ctrl != nil {
		speaker.Lock()
		run.ctrl.Streamer = nil
		speaker.Unlock()
	}
}

func (g *GoogleClassicDriver) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
	return nil
}

func (g *GoogleClassicDriver) Pause() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	run := g.active
	if run == nil || run.paused {
		return nil
	}
	run.paused = true
	if run.ctrl != nil {
		speaker.Lock()
		run.ctrl.Paused = true
		speaker.Unlock()
	}
	return nil
}

func (g *GoogleClassicDriver) Resume() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	run := g.active
	if run == nil || !run.paused {
		return nil
	}
	run.paused = false
	if run.ctrl != nil {
		speaker.Lock()
		run.ctrl.Paused = false
		speaker.Unlock()
	}
	return nil
}

func (g *GoogleClassicDriver) IsSpeaking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active != nil
}

func (g *GoogleClassicDriver) IsPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active != nil && g.active.paused
}

func (g *GoogleClassicDriver) Voices() ([]string, error) {
	resp, err := g.client.ListVoices(context.Background(), &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		return nil, err
	}
	voices := []string{}
	for _, v := range resp.Voices {
		voices = append(voices, fmt.Sprintf("%s (%s)", v.Name, strings.Join(v.LanguageCodes, ", ")))
	}
	return voices, nil
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	runes := []rune(text) // safe for UTF-8
	for i := 0; i < len(runes); i += limit {
		end := i + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
