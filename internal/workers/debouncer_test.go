package workers

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { runs.Add(1) })

	// ten rapid resets must collapse into a single run
	for i := 0; i < 10; i++ {
		d.Reset()
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
}

func TestDebouncer_ResetPostpones(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func() { runs.Add(1) })

	d.Reset()
	time.Sleep(30 * time.Millisecond)
	d.Reset() // countdown restarts, the original deadline must not fire

	time.Sleep(30 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Fatalf("runs = %d before the postponed deadline, want 0", got)
	}

	time.Sleep(50 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d after the postponed deadline, want 1", got)
	}
}

func TestDebouncer_StopCancels(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { runs.Add(1) })

	d.Reset()
	d.Stop()

	time.Sleep(60 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Fatalf("runs = %d after Stop, want 0", got)
	}
	if d.Pending() {
		t.Fatalf("Pending() = true after Stop")
	}
}

func TestDebouncer_StopWithoutReset(t *testing.T) {
	d := NewDebouncer(time.Millisecond, func() {})

	// must not panic when nothing is scheduled
	d.Stop()
	d.Stop()
}

func TestDebouncer_ReusableAfterRun(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(10*time.Millisecond, func() { runs.Add(1) })

	d.Reset()
	time.Sleep(50 * time.Millisecond)
	d.Reset()
	time.Sleep(50 * time.Millisecond)

	if got := runs.Load(); got != 2 {
		t.Fatalf("runs = %d after two separate cycles, want 2", got)
	}
}

func TestIdleTimer_FiresAfterQuietPeriod(t *testing.T) {
	var fired atomic.Int32
	it := NewIdleTimer(30*time.Millisecond, func() { fired.Add(1) })

	it.Touch()
	time.Sleep(100 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Fatalf("fired = %d, want 1", got)
	}
}

func TestIdleTimer_TouchPostpones(t *testing.T) {
	var fired atomic.Int32
	it := NewIdleTimer(50*time.Millisecond, func() { fired.Add(1) })

	it.Touch()
	for i := 0; i < 4; i++ {
		time.Sleep(20 * time.Millisecond)
		it.Touch() // steady activity keeps the timer from firing
	}
	if got := fired.Load(); got != 0 {
		t.Fatalf("fired = %d while active, want 0", got)
	}

	time.Sleep(120 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired = %d after going quiet, want 1", got)
	}
}

func TestIdleTimer_StopDisarms(t *testing.T) {
	var fired atomic.Int32
	it := NewIdleTimer(20*time.Millisecond, func() { fired.Add(1) })

	it.Touch()
	it.Stop()

	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("fired = %d after Stop, want 0", got)
	}
}
