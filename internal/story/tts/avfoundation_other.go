//go:build !darwin

package tts

import "fmt"

func newAVFoundationDriver(config Config) (Driver, error) {
	return nil, fmt.Errorf("AVFoundation driver only supports macOS")
}
