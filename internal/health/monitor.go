// Package health detects silent connection failures that the socket layer
// does not surface, via an application-level ping/pong heartbeat.
package health

import (
	"log/slog"
	"sync"
	"time"
)

// Defaults for a zero-valued Config.
const (
	DefaultPingInterval  = 15 * time.Second
	DefaultCheckInterval = 5 * time.Second
	DefaultPongTimeout   = 10 * time.Second
	DefaultFailureLimit  = 3
)

// Health is a snapshot of the heartbeat state. It is mutated only by the
// Monitor; callers read it via Snapshot or the change subscription.
type Health struct {
	Latency             time.Duration
	LastPingAt          time.Time
	LastPongAt          time.Time
	ConsecutiveFailures int
	Healthy             bool
}

// Config tunes the heartbeat cadence. Ping emission and failure detection run
// on separate timers so a slow but still-alive link does not trip false
// positives.
type Config struct {
	PingInterval  time.Duration
	CheckInterval time.Duration
	PongTimeout   time.Duration
	FailureLimit  int
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = DefaultPongTimeout
	}
	if c.FailureLimit <= 0 {
		c.FailureLimit = DefaultFailureLimit
	}
	return c
}

// Monitor emits pings while the connection is up and tracks pong latency and
// missed replies. The change callback fires exactly once per healthy
// transition, not once per missed beat.
type Monitor struct {
	cfg      Config
	sendPing func() error
	onChange func(Health)
	logger   *slog.Logger

	mu      sync.Mutex
	h       Health
	stop    chan struct{}
	running bool
}

// NewMonitor creates a monitor. sendPing writes a ping envelope to the
// transport; onChange is invoked on every healthy/unhealthy transition.
// Either may be nil.
func NewMonitor(cfg Config, sendPing func() error, onChange func(Health), logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:      cfg.withDefaults(),
		sendPing: sendPing,
		onChange: onChange,
		logger:   logger,
		h:        Health{Healthy: true},
	}
}

// Start launches the ping and check timers. Starting a running monitor is a
// no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	go m.pingLoop(stop)
	go m.checkLoop(stop)
}

// Stop cancels both timers. Safe to call repeatedly.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stop)
}

// Reset clears failure tracking after a successful (re)connect.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.h.ConsecutiveFailures = 0
	changed := !m.h.Healthy
	m.h.Healthy = true
	snap := m.h
	m.mu.Unlock()

	if changed {
		m.notify(snap)
	}
}

// HandlePong records a heartbeat reply. echoedTimestamp is the unix-ms value
// the ping carried; latency is measured against it.
func (m *Monitor) HandlePong(echoedTimestamp int64) {
	now := time.Now()

	m.mu.Lock()
	m.h.LastPongAt = now
	m.h.Latency = time.Duration(now.UnixMilli()-echoedTimestamp) * time.Millisecond
	m.h.ConsecutiveFailures = 0
	changed := !m.h.Healthy
	m.h.Healthy = true
	snap := m.h
	m.mu.Unlock()

	if changed {
		m.notify(snap)
	}
}

// RecordFailure counts a transport-level error against the failure budget.
func (m *Monitor) RecordFailure() {
	m.mu.Lock()
	m.h.ConsecutiveFailures++
	snap, changed := m.evaluateLocked()
	m.mu.Unlock()

	if changed {
		m.notify(snap)
	}
}

// MarkUnhealthy forces the unhealthy state, used when reconnection attempts
// are exhausted.
func (m *Monitor) MarkUnhealthy() {
	m.mu.Lock()
	changed := m.h.Healthy
	m.h.Healthy = false
	snap := m.h
	m.mu.Unlock()

	if changed {
		m.notify(snap)
	}
}

// Snapshot returns a copy of the current health record.
func (m *Monitor) Snapshot() Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.h
}

func (m *Monitor) pingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			m.h.LastPingAt = time.Now()
			m.mu.Unlock()

			if m.sendPing == nil {
				continue
			}
			if err := m.sendPing(); err != nil {
				m.logger.Debug("heartbeat ping failed", "error", err)
			}
		}
	}
}

func (m *Monitor) checkLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			snap, changed := m.checkLocked()
			m.mu.Unlock()

			if changed {
				m.notify(snap)
			}
		}
	}
}

// checkLocked increments the failure count when a ping is outstanding past
// the pong timeout. Caller holds mu.
func (m *Monitor) checkLocked() (Health, bool) {
	if m.h.LastPingAt.IsZero() {
		return m.h, false
	}

	// A ping is outstanding when it postdates the last pong.
	if !m.h.LastPingAt.After(m.h.LastPongAt) {
		return m.h, false
	}

	reference := m.h.LastPongAt
	if reference.IsZero() {
		reference = m.h.LastPingAt
	}
	if time.Since(reference) <= m.cfg.PongTimeout {
		return m.h, false
	}

	m.h.ConsecutiveFailures++
	m.logger.Warn("heartbeat missed",
		"consecutive_failures", m.h.ConsecutiveFailures,
		"last_pong", m.h.LastPongAt,
	)
	return m.evaluateLocked()
}

// evaluateLocked flips Healthy once the failure ceiling is reached. Caller
// holds mu.
func (m *Monitor) evaluateLocked() (Health, bool) {
	if m.h.ConsecutiveFailures >= m.cfg.FailureLimit && m.h.Healthy {
		m.h.Healthy = false
		return m.h, true
	}
	return m.h, false
}

func (m *Monitor) notify(snap Health) {
	if m.onChange != nil {
		m.onChange(snap)
	}
}
