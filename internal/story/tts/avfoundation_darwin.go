//go:build darwin

package tts

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
)

// AVFoundationDriver speaks through the macOS built-in 'say' command
type AVFoundationDriver struct {
	*processDriver
	config Config

	voicesOnce sync.Once
	voices     []sayVoice
}

type sayVoice struct {
	Name   string
	Locale string
}

// newAVFoundationDriver creates a new macOS speech driver
func newAVFoundationDriver(config Config) (Driver, error) {
	if _, err := exec.LookPath("say"); err != nil {
		return nil, fmt.Errorf("say not found: %w", err)
	}

	driver := &AVFoundationDriver{config: config}
	driver.processDriver = newProcessDriver("say", driver.command)
	return driver, nil
}

func (av *AVFoundationDriver) command(u Utterance) (*exec.Cmd, error) {
	args := []string{}

	// Set voice if specified, otherwise the first installed voice for the locale
	if av.config.Voice != "" && av.config.Voice != "default" {
		args = append(args, "-v", av.config.Voice)
	} else if voice := av.voiceFor(u.Locale); voice != "" {
		args = append(args, "-v", voice)
	}

	// Set rate (words per minute, default is ~175)
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	args = append(args, "-r", fmt.Sprintf("%.0f", defaultWordsPerMinute*rate))

	args = append(args, "--", u.Text)
	return exec.Command("say", args...), nil
}

func (av *AVFoundationDriver) voiceFor(locale string) string {
	av.voicesOnce.Do(func() {
		output, err := exec.Command("say", "-v", "?").Output()
		if err == nil {
			av.voices = parseSayVoices(string(output))
		}
	})

	want := strings.ReplaceAll(strings.ToLower(locale), "-", "_")
	for _, v := range av.voices {
		if strings.ToLower(v.Locale) == want {
			return v.Name
		}
	}
	return ""
}

func (av *AVFoundationDriver) Voices() ([]string, error) {
	output, err := exec.Command("say", "-v", "?").Output()
	if err != nil {
		return nil, err
	}

	voices := []string{}
	for _, v := range parseSayVoices(string(output)) {
		voices = append(voices, fmt.Sprintf("%s (%s)", v.Name, v.Locale))
	}
	return voices, nil
}

// "Amélie              fr_CA    # Bonjour, je m’appelle Amélie."
var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}_[A-Za-z0-9]+)\s+#`)

func parseSayVoices(output string) []sayVoice {
	var voices []sayVoice
	for _, line := range strings.Split(output, "\n") {
		m := sayVoiceLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		voices = append(voices, sayVoice{Name: strings.TrimSpace(m[1]), Locale: m[2]})
	}
	return voices
}
