//go:build windows

package tts

import (
	"fmt"
	"os/exec"
	"strings"
)

// SAPIDriver implements Windows SAPI speech through PowerShell and System.Speech
type SAPIDriver struct {
	*processDriver
	config Config
}

// newSAPIDriver creates a new Windows SAPI speech driver
func newSAPIDriver(config Config) (Driver, error) {
	if _, err := exec.LookPath("powershell"); err != nil {
		return nil, fmt.Errorf("powershell not found: %w", err)
	}

	driver := &SAPIDriver{config: config}
	driver.processDriver = newProcessDriver("sapi", driver.command)
	return driver, nil
}

func (s *SAPIDriver) command(u Utterance) (*exec.Cmd, error) {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	volume := s.config.Volume
	if volume <= 0 || volume > 1 {
		volume = 1
	}

	selectVoice := fmt.Sprintf("try { $synth.SelectVoiceByHints('NotSet', 'NotSet', 0, [System.Globalization.CultureInfo]'%s') } catch {}", u.Locale)
	if s.config.Voice != "" && s.config.Voice != "default" {
		selectVoice = fmt.Sprintf("$synth.SelectVoice('%s')", strings.ReplaceAll(s.config.Voice, "'", "''"))
	}

	// The text is read from stdin so it never needs quoting
	script := fmt.Sprintf(`Add-Type -AssemblyName System.Speech;
$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;
$synth.Rate = %d;
$synth.Volume = %d;
%s;
$synth.Speak([Console]::In.ReadToEnd())`,
		int(rate*10)-10, // SAPI range -10 to 10
		int(volume*100), // SAPI range 0 to 100
		selectVoice)

	cmd := exec.Command("powershell", "-NoProfile", "-Command", script)
	cmd.Stdin = strings.NewReader(u.Text)
	return cmd, nil
}

func (s *SAPIDriver) Voices() ([]string, error) {
	output, err := exec.Command("powershell", "-NoProfile", "-Command",
		`Add-Type -AssemblyName System.Speech; (New-Object System.Speech.Synthesis.SpeechSynthesizer).GetInstalledVoices() | ForEach-Object { $_.VoiceInfo.Name + ' (' + $_.VoiceInfo.Culture.Name + ')' }`).Output()
	if err != nil {
		return nil, err
	}

	voices := []string{}
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			voices = append(voices, line)
		}
	}
	return voices, nil
}
