package tts

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
)

type EngineType string

const (
	EngineTypeMock          EngineType = "mock"
	EngineTypeESpeak        EngineType = "espeak"
	EngineTypeSAPI          EngineType = "sapi"         // Windows only
	EngineTypeAVFoundation  EngineType = "avfoundation" // macOS only, speaks with 'say'
	EngineTypeGoogleClassic EngineType = "googleclassic"
	EngineTypeAuto          EngineType = "auto" // Automatically choose best for platform
)

func (e EngineType) String() string {
	return string(e)
}

// NewDriver creates a speech driver based on the provided config. When nothing
// usable is found the returned error wraps ErrSpeechUnavailable.
func NewDriver(config Config) (Driver, error) {
	if config.Type == "" || config.Type == EngineTypeAuto.String() {
		return autoDriver(config)
	}

	driver, err := newDriver(EngineType(config.Type), config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpeechUnavailable, err)
	}
	return driver, nil
}

func newDriver(engineType EngineType, config Config) (Driver, error) {
	switch engineType {
	case EngineTypeMock:
		return NewAutoMockDriver(defaultMockCharsPerSecond), nil

	case EngineTypeGoogleClassic:
		return newGoogleClassicDriver(config)

	case EngineTypeESpeak:
		return newESpeakDriver(config)

	case EngineTypeSAPI:
		if runtime.GOOS != "windows" {
			return nil, fmt.Errorf("SAPI engine only supports Windows")
		}
		return newSAPIDriver(config)

	case EngineTypeAVFoundation, "say":
		if runtime.GOOS != "darwin" {
			return nil, fmt.Errorf("AVFoundation engine only supports macOS")
		}
		return newAVFoundationDriver(config)

	default:
		return nil, fmt.Errorf("unsupported TTS engine type: %s", engineType)
	}
}

// autoDriver tries the recommended engines for the platform in order.
func autoDriver(config Config) (Driver, error) {
	var errs []error
	for _, candidate := range candidatesForPlatform() {
		driver, err := newDriver(candidate, config)
		if err == nil {
			logrus.WithField("engine", candidate).Debug("Selected speech engine")
			return driver, nil
		}
		logrus.WithError(err).WithField("engine", candidate).Debug("Speech engine not usable")
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %v", ErrSpeechUnavailable, errors.Join(errs...))
}

// candidatesForPlatform returns the engines worth trying on the current platform, best first
func candidatesForPlatform() []EngineType {
	var engines []EngineType

	if hasGoogleCredentials() {
		engines = append(engines, EngineTypeGoogleClassic)
	}

	switch runtime.GOOS {
	case "windows":
		engines = append(engines, EngineTypeSAPI)
	case "darwin":
		engines = append(engines, EngineTypeAVFoundation)
	}

	// Cross-platform fallback
	return append(engines, EngineTypeESpeak)
}

// GetAvailableEngines returns engines available on the current platform
func GetAvailableEngines() []EngineType {
	return append([]EngineType{EngineTypeMock}, candidatesForPlatform()...)
}

// hasGoogleCredentials checks if Google Cloud credentials are available
func hasGoogleCredentials() bool {
	// Check for service account key file
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}
