// Package mobile adapts the channel to constrained devices: network-quality
// and battery signals scale reconnect backoff, shrink the outbound queue, and
// pace queue drains. The signals are consumed read-only and are never
// required for correctness; an absent provider simply disables adaptation.
package mobile

import (
	"time"

	"github.com/fikri2992/remote-coding-extension-sub009/internal/channel"
)

// Defaults for a zero-valued Config.
const (
	DefaultLowBatteryLevel   = 0.2
	DefaultSlowNetworkFactor = 2.0
	DefaultLowBatteryFactor  = 1.5

	// Queue shrink fraction on a constrained link.
	DefaultConstrainedQueueFraction = 0.5

	// Drain pacing per link grade.
	DefaultDegradedPace = 150 * time.Millisecond
	DefaultModeratePace = 50 * time.Millisecond
)

// NetworkStatus mirrors the host's connection readings.
type NetworkStatus struct {
	// EffectiveType is one of "slow-2g", "2g", "3g", "4g".
	EffectiveType string
	DownlinkMbps  float64
	RTT           time.Duration
}

// NetworkProvider reports the current network reading. ok is false when the
// host exposes no such signal.
type NetworkProvider interface {
	Network() (NetworkStatus, bool)
}

// BatteryProvider reports the battery level in [0, 1]. ok is false when the
// host exposes no such signal.
type BatteryProvider interface {
	BatteryLevel() (float64, bool)
}

// Config tunes the adaptation thresholds.
type Config struct {
	LowBatteryLevel          float64
	SlowNetworkFactor        float64
	LowBatteryFactor         float64
	ConstrainedQueueFraction float64
	DegradedPace             time.Duration
	ModeratePace             time.Duration
}

func (c Config) withDefaults() Config {
	if c.LowBatteryLevel <= 0 {
		c.LowBatteryLevel = DefaultLowBatteryLevel
	}
	if c.SlowNetworkFactor <= 1 {
		c.SlowNetworkFactor = DefaultSlowNetworkFactor
	}
	if c.LowBatteryFactor <= 1 {
		c.LowBatteryFactor = DefaultLowBatteryFactor
	}
	if c.ConstrainedQueueFraction <= 0 || c.ConstrainedQueueFraction > 1 {
		c.ConstrainedQueueFraction = DefaultConstrainedQueueFraction
	}
	if c.DegradedPace <= 0 {
		c.DegradedPace = DefaultDegradedPace
	}
	if c.ModeratePace <= 0 {
		c.ModeratePace = DefaultModeratePace
	}
	return c
}

// Adapter derives channel tuning from device signals. Nil providers are
// allowed and leave the corresponding adjustment neutral.
type Adapter struct {
	cfg Config
	net NetworkProvider
	bat BatteryProvider
}

// New creates an adapter over the given providers.
func New(cfg Config, net NetworkProvider, bat BatteryProvider) *Adapter {
	return &Adapter{cfg: cfg.withDefaults(), net: net, bat: bat}
}

// QualityFactor returns the multiplier composed onto reconnect delays:
// >1 on a slow network, multiplied again by >1 on low battery, 1 otherwise.
func (a *Adapter) QualityFactor() float64 {
	factor := 1.0

	if a.net != nil {
		if st, ok := a.net.Network(); ok && slowNetwork(st) {
			factor *= a.cfg.SlowNetworkFactor
		}
	}
	if a.bat != nil {
		if level, ok := a.bat.BatteryLevel(); ok && level < a.cfg.LowBatteryLevel {
			factor *= a.cfg.LowBatteryFactor
		}
	}
	return factor
}

// QueueCapacity shrinks the base queue bound on constrained links.
func (a *Adapter) QueueCapacity(base int) int {
	if a.net == nil {
		return base
	}
	st, ok := a.net.Network()
	if !ok || !slowNetwork(st) {
		return base
	}

	scaled := int(float64(base) * a.cfg.ConstrainedQueueFraction)
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}

// DrainPace returns the delay inserted between queued sends during a flush:
// zero on a good link, tens to hundreds of milliseconds when degraded.
func (a *Adapter) DrainPace() time.Duration {
	if a.net == nil {
		return 0
	}
	st, ok := a.net.Network()
	if !ok {
		return 0
	}

	switch {
	case slowNetwork(st):
		return a.cfg.DegradedPace
	case st.EffectiveType == "3g" || st.RTT > 300*time.Millisecond || (st.DownlinkMbps > 0 && st.DownlinkMbps < 1):
		return a.cfg.ModeratePace
	default:
		return 0
	}
}

// Apply wires the adapter into a channel config: the backoff quality factor
// composes onto the base policy, the queue capacity shrinks, and drains are
// paced. The base config is not otherwise changed.
func (a *Adapter) Apply(cfg channel.Config) channel.Config {
	cfg.Backoff.Quality = a.QualityFactor
	cfg.QueueCapacity = a.QueueCapacity(cfg.QueueCapacity)
	cfg.DrainPace = a.DrainPace
	return cfg
}

func slowNetwork(st NetworkStatus) bool {
	return st.EffectiveType == "slow-2g" || st.EffectiveType == "2g"
}

// StaticSignals is a fixed provider, useful for tests and for deployments
// that pin their link profile through configuration.
type StaticSignals struct {
	Net      NetworkStatus
	HasNet   bool
	Level    float64
	HasLevel bool
}

func (s StaticSignals) Network() (NetworkStatus, bool) { return s.Net, s.HasNet }
func (s StaticSignals) BatteryLevel() (float64, bool)  { return s.Level, s.HasLevel }
