// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"sync"
	"time"
)

// Debouncer runs a function once after a quiet period. Every Reset
// restarts the countdown, so a burst of calls produces a single run
// after the burst ends.
//
// The function runs on a timer goroutine. It must do its own
// synchronization with the rest of the application.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a debouncer that runs fn delay after the most
// recent Reset. The debouncer is idle until Reset is called.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Reset starts the countdown, or restarts it if one is already pending.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels a pending run. Safe to call when nothing is pending.
// A run that has already started is not interrupted.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a run is currently scheduled. It can race
// with the timer firing and is meant for tests and status displays.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// IdleTimer locks away an unattended resource: it fires once after a
// fixed period without Touch calls. Mechanically a [Debouncer] with
// activity-tracking vocabulary.
type IdleTimer struct {
	d *Debouncer
}

// NewIdleTimer creates an idle timer that runs onIdle once period has
// passed since the most recent Touch. The timer is idle until the
// first Touch.
func NewIdleTimer(period time.Duration, onIdle func()) *IdleTimer {
	return &IdleTimer{d: NewDebouncer(period, onIdle)}
}

// Touch records activity and postpones the deadline by a full period.
func (t *IdleTimer) Touch() {
	t.d.Reset()
}

// Stop disarms the timer until the next Touch.
func (t *IdleTimer) Stop() {
	t.d.Stop()
}
