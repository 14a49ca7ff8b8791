package playback

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is how often the monitor compares believed and observed state.
const DefaultPollInterval = 500 * time.Millisecond

// Reconciler corrects believed playback state from what the driver reports.
type Reconciler interface {
	Reconcile()
}

// MonitorOption configures the monitor.
type MonitorOption func(*Monitor)

// WithPollInterval sets how often the monitor reconciles.
func WithPollInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// Monitor periodically asks a Reconciler to check for divergence.
type Monitor struct {
	target   Reconciler
	interval time.Duration
}

// NewMonitor creates a monitor for target.
func NewMonitor(target Reconciler, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		target:   target,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the reconciliation loop. Blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	logrus.WithField("interval", m.interval).Debug("Reconciliation monitor started")

	for {
		select {
		case <-ctx.Done():
			logrus.Debug("Reconciliation monitor stopped")
			return
		case <-ticker.C:
			m.target.Reconcile()
		}
	}
}
