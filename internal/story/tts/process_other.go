//go:build !unix

package tts

import "os"

// Windows has no SIGSTOP/SIGCONT equivalent for a child process, so
// command line synthesizers cannot be paused there.
func suspendProcess(p *os.Process) error {
	return ErrPauseUnsupported
}

func resumeProcess(p *os.Process) error {
	return ErrPauseUnsupported
}
