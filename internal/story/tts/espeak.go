// Cross-platform eSpeak implementation
package tts

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ESpeakDriver implements Driver using eSpeak/eSpeak-NG
type ESpeakDriver struct {
	*processDriver
	path   string
	config Config
}

// newESpeakDriver creates a new eSpeak speech driver
func newESpeakDriver(config Config) (*ESpeakDriver, error) {
	// Check if eSpeak is available
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	// Test the installation
	if err := exec.Command(espeakPath, "--version").Run(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}

	driver := &ESpeakDriver{
		path:   espeakPath,
		config: config,
	}
	driver.processDriver = newProcessDriver("espeak", driver.command)

	return driver, nil
}

func findESpeakExecutable() (string, error) {
	// Try different possible eSpeak executables
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

func (e *ESpeakDriver) command(u Utterance) (*exec.Cmd, error) {
	return exec.Command(e.path, espeakArgs(e.config, u)...), nil
}

func espeakArgs(config Config, u Utterance) []string {
	args := []string{}

	// An explicit voice wins, otherwise speak with the language of the utterance
	if config.Voice != "" && config.Voice != "default" {
		args = append(args, "-v", config.Voice)
	} else if lang := localeLanguage(u.Locale); lang != "" {
		args = append(args, "-v", lang)
	}

	// Words per minute, default is 175
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	args = append(args, "-s", strconv.Itoa(int(defaultWordsPerMinute*rate)))

	// Amplitude 0-200, default is 100
	volume := config.Volume
	if volume <= 0 {
		volume = 1
	}
	args = append(args, "-a", strconv.Itoa(int(100*volume)))

	return append(args, u.Text)
}

// localeLanguage returns the lowercase language part of a locale, "fr-FR" -> "fr".
func localeLanguage(locale string) string {
	lang, _, _ := strings.Cut(locale, "-")
	lang, _, _ = strings.Cut(lang, "_")
	return strings.ToLower(strings.TrimSpace(lang))
}

func (e *ESpeakDriver) Voices() ([]string, error) {
	output, err := exec.Command(e.path, "--voices").Output()
	if err != nil {
		return nil, err
	}

	return parseESpeakVoices(string(output)), nil
}

func parseESpeakVoices(output string) []string {
	lines := strings.Split(output, "\n")
	voices := make([]string, 0)

	for i, line := range lines {
		// Skip header line
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		// Pty Language Age/Gender VoiceName          File          Other Languages
		fields := strings.Fields(line)
		if len(fields) >= 4 {
			voices = append(voices, fmt.Sprintf("%s (%s)", fields[3], fields[1]))
		}
	}

	return voices
}
