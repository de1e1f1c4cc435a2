// Package connectivity watches server reachability by pinging periodically.
// It reports transitions, most importantly offline-to-online, which is the
// cue to start a sync cycle.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/Psheikomaniac/cashcow-go/internal/logging"
)

// Pinger probes server reachability. The gateway satisfies this.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor polls the server and tracks the online/offline mode. Probes are
// advisory: a failed probe never blocks or fails any user operation.
type Monitor struct {
	pinger   Pinger
	log      logging.Logger
	interval time.Duration
	timeout  time.Duration

	// onOnline fires on every offline-to-online transition.
	onOnline func()

	mu     sync.Mutex
	online bool
}

// NewMonitor builds a monitor. onOnline may be nil.
func NewMonitor(p Pinger, log logging.Logger, interval time.Duration, onOnline func()) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		pinger:   p,
		log:      log,
		interval: interval,
		timeout:  3 * time.Second,
		onOnline: onOnline,
	}
}

// Online reports the last observed reachability.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Run probes immediately and then on every tick until ctx is cancelled.
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

// Check performs one probe and settles the mode. It returns the observed
// reachability and may be called outside Run, e.g. before a manual sync.
func (m *Monitor) Check(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(pctx)
	cancel()
	return m.observe(ctx, err == nil)
}

func (m *Monitor) observe(ctx context.Context, online bool) bool {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	m.mu.Unlock()

	if online == wasOnline {
		return online
	}
	if online {
		m.log.Info(ctx, "server reachable, switching to online mode")
		if m.onOnline != nil {
			m.onOnline()
		}
	} else {
		m.log.Info(ctx, "server unreachable, switching to offline mode")
	}
	return online
}
