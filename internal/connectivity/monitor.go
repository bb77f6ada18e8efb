// Package connectivity tracks whether the remote service is reachable.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/existflow/ironhabit/internal/logger"
)

// ProbeFunc checks reachability. A nil error means online.
type ProbeFunc func(ctx context.Context) error

// Monitor probes the remote service periodically and reports transitions.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration
	timeout  time.Duration

	mu       sync.RWMutex
	online   bool
	restored chan struct{}
}

// NewMonitor creates a monitor that starts in the online state, like a
// freshly loaded page. The first probe corrects it.
func NewMonitor(probe ProbeFunc, interval, timeout time.Duration) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Monitor{
		probe:    probe,
		interval: interval,
		timeout:  timeout,
		online:   true,
		restored: make(chan struct{}, 1),
	}
}

// Online reports the last known state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Restored receives a value after every offline to online transition.
// Signals are coalesced when nobody is listening.
func (m *Monitor) Restored() <-chan struct{} {
	return m.restored
}

// SetOnline forces the state.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	was := m.online
	m.online = online
	m.mu.Unlock()

	if was == online {
		return
	}
	if online {
		logger.Info("Connectivity restored")
		select {
		case m.restored <- struct{}{}:
		default:
		}
		return
	}
	logger.Warn("Connectivity lost")
}

// Check runs one probe and updates the state.
func (m *Monitor) Check(ctx context.Context) bool {
	if m.probe == nil {
		return m.Online()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.probe(ctx)
	if err != nil {
		logger.Debug("Connectivity probe failed", logger.F("error", err))
	}
	m.SetOnline(err == nil)
	return err == nil
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
