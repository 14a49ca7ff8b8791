package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const AppName = "linguanest"

// SetDefaults registers the default value of every setting.
func SetDefaults() {
	viper.SetDefault("log.level", "warn")

	viper.SetDefault("tts.type", "auto") // Auto-select best engine
	viper.SetDefault("tts.voice", "")
	viper.SetDefault("tts.volume", 0.8)
	viper.SetDefault("tts.rate", 0.9)
	viper.SetDefault("tts.submit_delay", 100*time.Millisecond)
	viper.SetDefault("tts.cache_path", "~/.linguanest/tts")

	viper.SetDefault("playback.poll_interval", 500*time.Millisecond)

	viper.SetDefault("story.provider", "gemini")
	viper.SetDefault("story.model", "gemini-2.5-flash")
	viper.SetDefault("story.cache_dir", "~/.linguanest/stories")
	viper.SetDefault("story.cache_max_age", 24*time.Hour)
	viper.SetDefault("story.requests_per_minute", 10)
	viper.SetDefault("story.language", "fr")
	viper.SetDefault("story.level", "Intermediate")

	viper.SetDefault("metrics.addr", "")
}

// Load reads .env, binds environment variables and reads linguanest.yaml from the
// given directories, or from ~/.linguanest and the working directory when none are given.
// A missing config file is not an error.
func Load(paths ...string) error {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("No .env file loaded")
	}

	viper.SetConfigName(AppName)
	viper.SetConfigType("yaml")
	if len(paths) == 0 {
		if dir, err := Dir(); err == nil {
			paths = append(paths, dir)
		}
		paths = append(paths, ".")
	}
	for _, p := range paths {
		viper.AddConfigPath(p)
	}

	viper.SetEnvPrefix(strings.ToUpper(AppName))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("story.api_key", "GEMINI_API_KEY", "API_KEY"); err != nil {
		return fmt.Errorf("failed to bind api key: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		logrus.Debug("No config file found, using defaults")
	}
	return nil
}

// Dir is the per-user configuration directory, ~/.linguanest.
func Dir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, "."+AppName), nil
}

// ExpandPath resolves a leading ~ in p. Unresolvable paths are returned unchanged.
func ExpandPath(p string) string {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return expanded
}

// Watch calls onChange whenever the config file in use is written.
// It does nothing when no config file was found.
func Watch(onChange func(fsnotify.Event)) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		logrus.WithField("file", e.Name).Info("Config file changed")
		onChange(e)
	})
	viper.WatchConfig()
}

// LogLevel parses log.level, falling back to warn.
func LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}

// FileUsed is the path of the config file that was read, or "".
func FileUsed() string {
	return viper.ConfigFileUsed()
}
