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

// Package grab debounces exclusive input device grabs. A grab domain
// may only change its EVIOCGRAB state while nothing is physically
// touching the device and a release window has passed, so that an
// in-progress gesture is never cut in half.
package grab

import (
	"time"

	"github.com/sailfishos/mced/logger"
	"github.com/sailfishos/mced/mainloop"
)

const grabWakelock = "mced_input_grab"

// StateMachine debounces one grab domain. All methods run on the
// main loop.
type StateMachine struct {
	name string
	loop *mainloop.Loop

	touching bool
	touched  bool
	wantGrab bool
	haveGrab bool

	releaseDelay time.Duration
	releaseTimer mainloop.TimerID

	// grabChanged applies the settled state to the devices of the
	// domain.
	grabChanged func(grab bool)
	// releaseVerify, when set, is consulted as the release timer
	// fires; reporting true keeps the window open.
	releaseVerify func() bool
}

// NewStateMachine returns a machine for one grab domain.
func NewStateMachine(name string, loop *mainloop.Loop, releaseDelay time.Duration, grabChanged func(grab bool)) *StateMachine {
	return &StateMachine{
		name:         name,
		loop:         loop,
		releaseDelay: releaseDelay,
		grabChanged:  grabChanged,
	}
}

// SetReleaseVerify installs the extra release gate.
func (sm *StateMachine) SetReleaseVerify(f func() bool) {
	sm.releaseVerify = f
}

// SetReleaseDelay changes the release window length; a window
// already running is not restarted.
func (sm *StateMachine) SetReleaseDelay(d time.Duration) {
	sm.releaseDelay = d
}

// ReleaseDelay returns the current release window length.
func (sm *StateMachine) ReleaseDelay() time.Duration {
	return sm.releaseDelay
}

// Touching reports the current physical contact state.
func (sm *StateMachine) Touching() bool {
	return sm.touching
}

// HaveGrab reports the settled grab state.
func (sm *StateMachine) HaveGrab() bool {
	return sm.haveGrab
}

// WantGrab reports the pending policy request.
func (sm *StateMachine) WantGrab() bool {
	return sm.wantGrab
}

// SetTouching feeds the physical contact state into the machine.
func (sm *StateMachine) SetTouching(touching bool) {
	if sm.touching == touching {
		return
	}
	sm.touching = touching
	if touching {
		sm.cancelReleaseTimer()
		sm.touched = true
		return
	}
	sm.startReleaseTimer()
}

// SetWantGrab feeds the policy request; the change is applied as soon
// as the machine settles.
func (sm *StateMachine) SetWantGrab(want bool) {
	if sm.wantGrab == want {
		return
	}
	sm.wantGrab = want
	sm.rethink()
}

// Reset forces the machine to an untouched state so that a pending
// grab change settles promptly; used when the display blanks.
func (sm *StateMachine) Reset() {
	sm.cancelReleaseTimer()
	sm.touching = false
	sm.touched = false
	sm.rethink()
}

func (sm *StateMachine) cancelReleaseTimer() {
	if sm.releaseTimer != 0 {
		sm.loop.Cancel(sm.releaseTimer)
		sm.releaseTimer = 0
	}
}

func (sm *StateMachine) startReleaseTimer() {
	sm.cancelReleaseTimer()
	sm.releaseTimer = sm.loop.WakeupTimeoutAdd(grabWakelock, sm.releaseDelay, sm.releaseTimerFired)
}

func (sm *StateMachine) releaseTimerFired() bool {
	if sm.releaseVerify != nil && sm.releaseVerify() {
		// something still holds the panel; keep the window open
		return true
	}
	sm.releaseTimer = 0
	sm.touched = false
	sm.rethink()
	return false
}

func (sm *StateMachine) rethink() {
	if sm.touching || sm.touched {
		return
	}
	if sm.haveGrab == sm.wantGrab {
		return
	}
	sm.haveGrab = sm.wantGrab
	logger.Debugf("%s: grab -> %v", sm.name, sm.haveGrab)
	if sm.grabChanged != nil {
		sm.grabChanged(sm.haveGrab)
	}
}
