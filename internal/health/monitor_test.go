package health

import (
	"sync"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		PingInterval:  10 * time.Millisecond,
		CheckInterval: 5 * time.Millisecond,
		PongTimeout:   15 * time.Millisecond,
		FailureLimit:  3,
	}
}

// changeRecorder collects health transitions.
type changeRecorder struct {
	mu      sync.Mutex
	changes []Health
}

func (r *changeRecorder) record(h Health) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, h)
}

func (r *changeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func (r *changeRecorder) last() (Health, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return Health{}, false
	}
	return r.changes[len(r.changes)-1], true
}

func TestMissedPongsMarkUnhealthyOnce(t *testing.T) {
	rec := &changeRecorder{}
	pings := make(chan struct{}, 100)

	m := NewMonitor(testConfig(), func() error {
		pings <- struct{}{}
		return nil
	}, rec.record, nil)

	m.Start()
	defer m.Stop()

	// Never answer any ping; wait for well past three check windows.
	deadline := time.After(500 * time.Millisecond)
	for {
		if h := m.Snapshot(); !h.Healthy && h.ConsecutiveFailures >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("monitor never became unhealthy: %+v", m.Snapshot())
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Exactly one transition despite repeated missed beats.
	time.Sleep(50 * time.Millisecond)
	if n := rec.count(); n != 1 {
		t.Errorf("health change fired %d times, want 1", n)
	}
	if last, ok := rec.last(); !ok || last.Healthy {
		t.Errorf("last change = %+v, want unhealthy", last)
	}

	if len(pings) == 0 {
		t.Error("expected pings to have been emitted")
	}
}

func TestHandlePongResetsFailures(t *testing.T) {
	rec := &changeRecorder{}
	m := NewMonitor(testConfig(), nil, rec.record, nil)

	m.RecordFailure()
	m.RecordFailure()
	m.RecordFailure()

	if h := m.Snapshot(); h.Healthy {
		t.Fatal("expected unhealthy after three failures")
	}
	if n := rec.count(); n != 1 {
		t.Fatalf("change fired %d times, want 1", n)
	}

	sent := time.Now().UnixMilli() - 40
	m.HandlePong(sent)

	h := m.Snapshot()
	if !h.Healthy {
		t.Error("expected healthy after pong")
	}
	if h.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", h.ConsecutiveFailures)
	}
	if h.Latency < 40*time.Millisecond {
		t.Errorf("Latency = %v, want >= 40ms", h.Latency)
	}
	if n := rec.count(); n != 2 {
		t.Errorf("change fired %d times, want 2 (down then up)", n)
	}
}

func TestRecordFailureBelowLimitKeepsHealthy(t *testing.T) {
	rec := &changeRecorder{}
	m := NewMonitor(testConfig(), nil, rec.record, nil)

	m.RecordFailure()
	m.RecordFailure()

	if h := m.Snapshot(); !h.Healthy {
		t.Error("two failures of three should still be healthy")
	}
	if rec.count() != 0 {
		t.Errorf("change fired %d times, want 0", rec.count())
	}
}

func TestAnsweredPingsStayHealthy(t *testing.T) {
	rec := &changeRecorder{}

	var m *Monitor
	m = NewMonitor(testConfig(), func() error {
		// Answer every ping promptly.
		go m.HandlePong(time.Now().UnixMilli())
		return nil
	}, rec.record, nil)

	m.Start()
	defer m.Stop()

	time.Sleep(100 * time.Millisecond)

	if h := m.Snapshot(); !h.Healthy {
		t.Errorf("expected healthy link, got %+v", h)
	}
	if rec.count() != 0 {
		t.Errorf("change fired %d times, want 0", rec.count())
	}
}

func TestMarkUnhealthyAndReset(t *testing.T) {
	rec := &changeRecorder{}
	m := NewMonitor(testConfig(), nil, rec.record, nil)

	m.MarkUnhealthy()
	m.MarkUnhealthy() // second call is a no-op

	if rec.count() != 1 {
		t.Fatalf("change fired %d times, want 1", rec.count())
	}

	m.Reset()
	if h := m.Snapshot(); !h.Healthy || h.ConsecutiveFailures != 0 {
		t.Errorf("after Reset: %+v, want healthy with zero failures", h)
	}
	if rec.count() != 2 {
		t.Errorf("change fired %d times, want 2", rec.count())
	}
}

func TestStopHaltsTimers(t *testing.T) {
	var mu sync.Mutex
	pings := 0

	cfg := testConfig()
	m := NewMonitor(cfg, func() error {
		mu.Lock()
		pings++
		mu.Unlock()
		return nil
	}, nil, nil)

	m.Start()
	time.Sleep(30 * time.Millisecond)
	m.Stop()
	m.Stop() // idempotent

	mu.Lock()
	after := pings
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	final := pings
	mu.Unlock()

	if final != after {
		t.Errorf("pings continued after Stop: %d -> %d", after, final)
	}
}
