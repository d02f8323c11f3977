package mobile

import (
	"testing"
	"time"

	"github.com/fikri2992/remote-coding-extension-sub009/internal/channel"
)

func TestQualityFactorComposition(t *testing.T) {
	tests := []struct {
		name    string
		signals StaticSignals
		want    float64
	}{
		{
			name:    "good network, good battery",
			signals: StaticSignals{Net: NetworkStatus{EffectiveType: "4g"}, HasNet: true, Level: 0.9, HasLevel: true},
			want:    1.0,
		},
		{
			name:    "slow network only",
			signals: StaticSignals{Net: NetworkStatus{EffectiveType: "2g"}, HasNet: true, Level: 0.9, HasLevel: true},
			want:    2.0,
		},
		{
			name:    "low battery only",
			signals: StaticSignals{Net: NetworkStatus{EffectiveType: "4g"}, HasNet: true, Level: 0.1, HasLevel: true},
			want:    1.5,
		},
		{
			name:    "slow network and low battery compose",
			signals: StaticSignals{Net: NetworkStatus{EffectiveType: "slow-2g"}, HasNet: true, Level: 0.1, HasLevel: true},
			want:    3.0,
		},
		{
			name:    "absent signals are neutral",
			signals: StaticSignals{},
			want:    1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(Config{}, tt.signals, tt.signals)
			if got := a.QualityFactor(); got != tt.want {
				t.Errorf("QualityFactor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNilProvidersAreNeutral(t *testing.T) {
	a := New(Config{}, nil, nil)
	if got := a.QualityFactor(); got != 1.0 {
		t.Errorf("QualityFactor() = %v, want 1.0", got)
	}
	if got := a.QueueCapacity(100); got != 100 {
		t.Errorf("QueueCapacity(100) = %d, want 100", got)
	}
	if got := a.DrainPace(); got != 0 {
		t.Errorf("DrainPace() = %v, want 0", got)
	}
}

func TestQueueCapacityShrinksOnConstrainedLink(t *testing.T) {
	slow := StaticSignals{Net: NetworkStatus{EffectiveType: "2g"}, HasNet: true}
	a := New(Config{}, slow, nil)

	if got := a.QueueCapacity(100); got != 50 {
		t.Errorf("QueueCapacity(100) = %d, want 50", got)
	}
	if got := a.QueueCapacity(1); got != 1 {
		t.Errorf("QueueCapacity(1) = %d, want at least 1", got)
	}

	fast := StaticSignals{Net: NetworkStatus{EffectiveType: "4g"}, HasNet: true}
	a = New(Config{}, fast, nil)
	if got := a.QueueCapacity(100); got != 100 {
		t.Errorf("QueueCapacity(100) on 4g = %d, want 100", got)
	}
}

func TestDrainPaceGrades(t *testing.T) {
	tests := []struct {
		name string
		net  NetworkStatus
		want time.Duration
	}{
		{"2g", NetworkStatus{EffectiveType: "2g"}, DefaultDegradedPace},
		{"slow-2g", NetworkStatus{EffectiveType: "slow-2g"}, DefaultDegradedPace},
		{"3g", NetworkStatus{EffectiveType: "3g"}, DefaultModeratePace},
		{"high rtt", NetworkStatus{EffectiveType: "4g", RTT: 400 * time.Millisecond}, DefaultModeratePace},
		{"thin downlink", NetworkStatus{EffectiveType: "4g", DownlinkMbps: 0.5}, DefaultModeratePace},
		{"good", NetworkStatus{EffectiveType: "4g", DownlinkMbps: 20}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(Config{}, StaticSignals{Net: tt.net, HasNet: true}, nil)
			if got := a.DrainPace(); got != tt.want {
				t.Errorf("DrainPace() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	signals := StaticSignals{
		Net:      NetworkStatus{EffectiveType: "2g"},
		HasNet:   true,
		Level:    0.1,
		HasLevel: true,
	}
	a := New(Config{}, signals, signals)

	base := channel.DefaultConfig("wss://example.test/channel")
	cfg := a.Apply(base)

	if cfg.QueueCapacity != base.QueueCapacity/2 {
		t.Errorf("QueueCapacity = %d, want %d", cfg.QueueCapacity, base.QueueCapacity/2)
	}
	if cfg.Backoff.Quality == nil || cfg.Backoff.Quality() != 3.0 {
		t.Error("backoff quality factor not wired")
	}
	if cfg.DrainPace == nil || cfg.DrainPace() != DefaultDegradedPace {
		t.Error("drain pacing not wired")
	}

	// The composed policy stretches delays; the base formula is unchanged.
	baseDelay := base.Backoff.Delay(1)
	adapted := cfg.Backoff.Delay(1)
	if adapted <= baseDelay {
		t.Errorf("adapted delay %v not longer than base %v", adapted, baseDelay)
	}
}
