//go:build !windows

package tts

import "fmt"

func newSAPIDriver(config Config) (Driver, error) {
	return nil, fmt.Errorf("SAPI driver only supports Windows")
}
