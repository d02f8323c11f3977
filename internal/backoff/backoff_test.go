package backoff

import (
	"testing"
	"time"
)

func fixedJitter() float64 { return 1.0 }

func TestDelayMonotonic(t *testing.T) {
	p := Policy{
		Base:   time.Second,
		Max:    60 * time.Second,
		Jitter: fixedJitter,
	}

	prev := time.Duration(0)
	for attempt := 1; attempt <= 6; attempt++ {
		d := p.Delay(attempt)
		if d < prev {
			t.Errorf("attempt %d: delay %v decreased from %v", attempt, d, prev)
		}
		prev = d
	}

	// Doubling stops at 2^5.
	if got, want := p.Delay(6), 32*time.Second; got != want {
		t.Errorf("Delay(6) = %v, want %v", got, want)
	}
	if got := p.Delay(7); got != prev {
		t.Errorf("Delay(7) = %v, want exponent capped at %v", got, prev)
	}
}

func TestDelayCappedAtMax(t *testing.T) {
	p := Policy{
		Base:   time.Second,
		Max:    5 * time.Second,
		Jitter: fixedJitter,
	}

	for attempt := 4; attempt <= 10; attempt++ {
		if d := p.Delay(attempt); d != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want cap %v", attempt, d, 5*time.Second)
		}
	}
}

func TestDelayJitterBounds(t *testing.T) {
	p := Policy{Base: time.Second, Max: time.Minute}

	for i := 0; i < 200; i++ {
		d := p.Delay(1)
		if d < 850*time.Millisecond || d > 1150*time.Millisecond {
			t.Fatalf("Delay(1) = %v, outside jitter bounds [850ms, 1150ms]", d)
		}
	}
}

func TestDelayQualityFactor(t *testing.T) {
	p := Policy{
		Base:    time.Second,
		Max:     time.Minute,
		Jitter:  fixedJitter,
		Quality: func() float64 { return 3.0 },
	}

	if got, want := p.Delay(1), 3*time.Second; got != want {
		t.Errorf("Delay(1) with quality 3.0 = %v, want %v", got, want)
	}

	// Quality below 1 never shortens the delay.
	p.Quality = func() float64 { return 0.5 }
	if got, want := p.Delay(1), time.Second; got != want {
		t.Errorf("Delay(1) with quality 0.5 = %v, want %v", got, want)
	}
}

func TestDelayZeroValueDefaults(t *testing.T) {
	var p Policy
	d := p.Delay(1)
	if d < time.Duration(float64(DefaultBase)*jitterMin) || d > time.Duration(float64(DefaultBase)*(jitterMin+jitterRange)) {
		t.Errorf("zero-value Delay(1) = %v, want around %v", d, DefaultBase)
	}
}

func TestExhausted(t *testing.T) {
	p := Policy{MaxAttempts: 3}
	if p.Exhausted(2) {
		t.Error("attempt 2 of 3 should not be exhausted")
	}
	if !p.Exhausted(3) {
		t.Error("attempt 3 of 3 should be exhausted")
	}

	var zero Policy
	if !zero.Exhausted(DefaultMaxAttempts) {
		t.Errorf("default limit should exhaust at %d", DefaultMaxAttempts)
	}
	if zero.Limit() != DefaultMaxAttempts {
		t.Errorf("Limit() = %d, want %d", zero.Limit(), DefaultMaxAttempts)
	}
}
