// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2024 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

// Package mainloop serializes all mutation of the input core onto a
// single goroutine. Device readers, timers and IPC handlers submit
// closures; the loop dispatches them in order. Timers are cancellable
// by id and never fire inside the callback that armed them.
package mainloop

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"gopkg.in/tomb.v2"

	"github.com/sailfishos/mced/wakelock"
)

// TimerID identifies a pending timeout; the zero id is never handed
// out.
type TimerID int64

type timer struct {
	id        TimerID
	d         time.Duration
	f         func() bool
	wakelock  string
	cancelled bool
	clkTimer  *clock.Timer
}

// Loop is the single-threaded executor.
type Loop struct {
	clk   clock.Clock
	funcs chan func()
	tmb   tomb.Tomb

	mu     sync.Mutex
	timers map[TimerID]*timer
	lastID TimerID
}

var wakelockAcquire = wakelock.Acquire
var wakelockRelease = wakelock.Release

// New returns a loop using the given time source.
func New(clk clock.Clock) *Loop {
	return &Loop{
		clk:    clk,
		funcs:  make(chan func(), 256),
		timers: make(map[TimerID]*timer),
	}
}

// Clock returns the loop's time source.
func (l *Loop) Clock() clock.Clock {
	return l.clk
}

// Now returns the current time of the loop's time source.
func (l *Loop) Now() time.Time {
	return l.clk.Now()
}

// Run processes submitted work until Stop is called.
func (l *Loop) Run() error {
	l.tmb.Go(func() error {
		for {
			select {
			case f := <-l.funcs:
				f()
			case <-l.tmb.Dying():
				return nil
			}
		}
	})
	return l.tmb.Wait()
}

// Stop terminates the loop and waits for it to drain.
func (l *Loop) Stop() error {
	l.tmb.Kill(nil)
	return l.tmb.Wait()
}

// Submit queues f for execution on the loop goroutine; safe to call
// from any goroutine.
func (l *Loop) Submit(f func()) {
	select {
	case l.funcs <- f:
	case <-l.tmb.Dying():
	}
}

// SubmitWait queues f and blocks until it has run; the device readers
// use it so that a handler completes before the next event is read.
func (l *Loop) SubmitWait(f func()) {
	done := make(chan struct{})
	l.Submit(func() {
		defer close(done)
		f()
	})
	select {
	case <-done:
	case <-l.tmb.Dying():
	}
}

// Sync submits a barrier and waits for it; everything submitted
// before Sync has run when it returns. Test suites use it to settle
// the loop.
func (l *Loop) Sync() {
	l.SubmitWait(func() {})
}

// TimeoutAdd arms a timer after d. The callback runs on the loop; a
// true return re-arms the timer for another period.
func (l *Loop) TimeoutAdd(d time.Duration, f func() bool) TimerID {
	return l.timeoutAdd(d, f, "")
}

// WakeupTimeoutAdd is TimeoutAdd with a wakelock held for the
// duration of each callback dispatch, so that the work cannot race
// system suspend.
func (l *Loop) WakeupTimeoutAdd(name string, d time.Duration, f func() bool) TimerID {
	return l.timeoutAdd(d, f, name)
}

func (l *Loop) timeoutAdd(d time.Duration, f func() bool, lockName string) TimerID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastID++
	t := &timer{id: l.lastID, d: d, f: f, wakelock: lockName}
	l.timers[t.id] = t
	t.clkTimer = l.clk.AfterFunc(d, func() {
		if t.wakelock != "" {
			wakelockAcquire(t.wakelock)
		}
		l.Submit(func() { l.dispatchTimer(t) })
	})
	return t.id
}

func (l *Loop) dispatchTimer(t *timer) {
	l.mu.Lock()
	cancelled := t.cancelled
	l.mu.Unlock()

	if t.wakelock != "" {
		defer wakelockRelease(t.wakelock)
	}
	if cancelled {
		return
	}
	again := t.f()

	l.mu.Lock()
	defer l.mu.Unlock()
	if again && !t.cancelled {
		t.clkTimer.Reset(t.d)
	} else {
		delete(l.timers, t.id)
	}
}

// Cancel stops the identified timer; unknown or already-cancelled ids
// are ignored. A dispatch in flight still runs once Cancel returns
// only if it was already dequeued; its re-arm is suppressed either
// way.
func (l *Loop) Cancel(id TimerID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.timers[id]
	if !ok {
		return
	}
	t.cancelled = true
	t.clkTimer.Stop()
	delete(l.timers, id)
}

// Pending reports whether the identified timer is still armed.
func (l *Loop) Pending(id TimerID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.timers[id]
	return ok
}
