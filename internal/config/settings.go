package config

import (
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Log      LogSettings      `yaml:"log"`
	TTS      TTSSettings      `yaml:"tts"`
	Playback PlaybackSettings `yaml:"playback"`
	Story    StorySettings    `yaml:"story"`
	Metrics  MetricsSettings  `yaml:"metrics"`
}

type LogSettings struct {
	Level string `yaml:"level"`
}

type TTSSettings struct {
	Type        string        `yaml:"type"`
	Voice       string        `yaml:"voice"`
	Volume      float64       `yaml:"volume"`
	Rate        float64       `yaml:"rate"`
	SubmitDelay time.Duration `yaml:"submit_delay"`
	CachePath   string        `yaml:"cache_path"`
}

type PlaybackSettings struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type StorySettings struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	CacheDir          string        `yaml:"cache_dir"`
	CacheMaxAge       time.Duration `yaml:"cache_max_age"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Language          string        `yaml:"language"`
	Level             string        `yaml:"level"`
}

type MetricsSettings struct {
	Addr string `yaml:"addr"`
}

// Current returns the effective settings with paths expanded.
func Current() Settings {
	return Settings{
		Log: LogSettings{Level: viper.GetString("log.level")},
		TTS: TTSSettings{
			Type:        viper.GetString("tts.type"),
			Voice:       viper.GetString("tts.voice"),
			Volume:      viper.GetFloat64("tts.volume"),
			Rate:        viper.GetFloat64("tts.rate"),
			SubmitDelay: viper.GetDuration("tts.submit_delay"),
			CachePath:   ExpandPath(viper.GetString("tts.cache_path")),
		},
		Playback: PlaybackSettings{
			PollInterval: viper.GetDuration("playback.poll_interval"),
		},
		Story: StorySettings{
			Provider:          viper.GetString("story.provider"),
			Model:             viper.GetString("story.model"),
			APIKey:            viper.GetString("story.api_key"),
			CacheDir:          ExpandPath(viper.GetString("story.cache_dir")),
			CacheMaxAge:       viper.GetDuration("story.cache_max_age"),
			RequestsPerMinute: viper.GetInt("story.requests_per_minute"),
			Language:          viper.GetString("story.language"),
			Level:             viper.GetString("story.level"),
		},
		Metrics: MetricsSettings{Addr: viper.GetString("metrics.addr")},
	}
}

// YAML renders s for display with the API key masked.
func (s Settings) YAML() (string, error) {
	if s.Story.APIKey != "" {
		s.Story.APIKey = "********"
	}
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
