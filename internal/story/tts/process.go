package tts

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type commandFunc func(u Utterance) (*exec.Cmd, error)

// processDriver speaks each utterance with one synthesizer subprocess. The command line
// synthesizers report nothing while speaking, so progress comes from a speechClock.
type processDriver struct {
	name    string
	command commandFunc
	wpm     float64
	tick    time.Duration

	mu     sync.Mutex
	active *processRun
}

type processRun struct {
	*eventGate
	cmd       *exec.Cmd
	clock     *speechClock
	paused    bool
	cancelled bool
	done      chan struct{}
}

// eventGate delivers the events of one utterance and drops everything after the
// first terminal event or after close.
type eventGate struct {
	mu       sync.Mutex
	listener Listener
	closed   bool
}

func newEventGate(l Listener) *eventGate {
	return &eventGate{listener: l}
}

func newProcessDriver(name string, command commandFunc) *processDriver {
	return &processDriver{
		name:    name,
		command: command,
		wpm:     defaultWordsPerMinute,
		tick:    100 * time.Millisecond,
	}
}

func (g *eventGate) emit(ev Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	if ev.Kind != EventProgress {
		g.closed = true
	}
	g.listener(ev)
}

func (g *eventGate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

func (d *processDriver) Submit(u Utterance, l Listener) error {
	cmd, err := d.command(u)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", d.name, err)
	}

	run := &processRun{
		eventGate: newEventGate(l),
		cmd:       cmd,
		clock:     newSpeechClock(u.Text, d.wpm, u.Rate, nil),
		done:      make(chan struct{}),
	}
	run.clock.Start()
	d.active = run

	logrus.WithFields(logrus.Fields{
		"driver": d.name,
		"pid":    cmd.Process.Pid,
		"locale": u.Locale,
	}).Debug("Speech process started")

	go d.wait(run)
	go d.report(run)
	return nil
}

func (d *processDriver) wait(run *processRun) {
	err := run.cmd.Wait()
	close(run.done)

	d.mu.Lock()
	cancelled := run.cancelled
	if d.active == run {
		d.active = nil
	}
	d.mu.Unlock()

	if cancelled {
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("driver", d.name).Warn("Speech process failed")
		run.emit(Event{Kind: EventError, Err: fmt.Errorf("%s exited: %w", d.name, err)})
		return
	}
	run.emit(Event{Kind: EventComplete})
}

func (d *processDriver) report(run *processRun) {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-run.done:
			return
		case <-ticker.C:
		}

		d.mu.Lock()
		if run.cancelled {
			d.mu.Unlock()
			return
		}
		pos := -1
		if !run.paused {
			pos = run.clock.Position()
		}
		d.mu.Unlock()

		if pos >= 0 && pos != last {
			last = pos
			run.emit(Event{Kind: EventProgress, CharIndex: pos})
		}
	}
}

func (d *processDriver) stopLocked() {
	run := d.active
	if run == nil {
		return
	}
	run.cancelled = true
	run.close()
	d.active = nil

	if run.cmd.Process != nil {
		if err := run.cmd.Process.Kill(); err != nil {
			logrus.WithError(err).WithField("driver", d.name).Debug("Failed to kill speech process")
		}
	}
}

func (d *processDriver) Cancel() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	return nil
}

func (d *processDriver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	run := d.active
	if run == nil || run.paused {
		return nil
	}
	if err := suspendProcess(run.cmd.Process); err != nil {
		return err
	}
	run.paused = true
	run.clock.Pause()
	return nil
}

func (d *processDriver) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	run := d.active
	if run == nil || !run.paused {
		return nil
	}
	if err := resumeProcess(run.cmd.Process); err != nil {
		return err
	}
	run.paused = false
	run.clock.Start()
	return nil
}

func (d *processDriver) IsSpeaking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active != nil
}

func (d *processDriver) IsPaused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active != nil && d.active.paused
}
