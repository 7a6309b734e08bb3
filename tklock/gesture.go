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

package tklock

import (
	"github.com/sailfishos/mced/datapipe"
	"github.com/sailfishos/mced/evdev"
	"github.com/sailfishos/mced/settings"
)

// doubletap gesture wire value, part of the downstream contract
const doubletapGestureValue = 0x4

// touchscreenEvent handles the cooked touchscreen pipe; the only
// event the policy itself consumes is the doubletap gesture.
func (t *TkLock) touchscreenEvent(ev evdev.Event) {
	if ev.Type != evdev.EV_MSC || ev.Code != evdev.MSC_GESTURE {
		return
	}
	if ev.Value != doubletapGestureValue {
		return
	}
	t.doubletapGesture()
}

func (t *TkLock) doubletapGesture() {
	policy := t.store.Int(settings.DoubletapGesture)
	if policy == settings.DoubletapDisabled {
		return
	}
	// gestures from a pocketed device are noise; a cover too brief
	// to trip the inhibit is tolerated
	if t.submode().Has(datapipe.SubmodePocket) || t.dtInhibited {
		return
	}
	switch policy {
	case settings.DoubletapShowUnlock:
		t.showVisual()
	case settings.DoubletapUnlockDelay:
		t.startGestureUnlockTimer()
	}
}

// startGestureUnlockTimer releases the lock a beat after the
// gesture, giving a fresh sensor reading the chance to veto a pocket
// wakeup.
func (t *TkLock) startGestureUnlockTimer() {
	if t.dtUnlockTimer != 0 {
		return
	}
	t.dtUnlockTimer = t.loop.WakeupTimeoutAdd(tklockWakelock, gestureUnlockDelay, func() bool {
		t.dtUnlockTimer = 0
		if t.submode().Has(datapipe.SubmodePocket) || t.dtInhibited {
			return false
		}
		t.unlock(false)
		t.bus.DisplayStateRequest.Publish(datapipe.DisplayOn)
		return false
	})
}

func (t *TkLock) cancelGestureUnlockTimer() {
	if t.dtUnlockTimer != 0 {
		t.loop.Cancel(t.dtUnlockTimer)
		t.dtUnlockTimer = 0
	}
}

// orientationChanged debounces the face-up state and emits the
// flip-over feedback on a primed face-up to face-down transition
// while an alarm or incoming call wants attention.
func (t *TkLock) orientationChanged(orientation datapipe.Orientation) {
	switch orientation {
	case datapipe.OrientationFaceUp:
		if t.primeTimer == 0 && !t.facePrimed {
			t.primeTimer = t.loop.TimeoutAdd(orientationPrimeDelay, func() bool {
				t.primeTimer = 0
				if t.bus.Orientation.Value() == datapipe.OrientationFaceUp {
					t.facePrimed = true
				}
				return false
			})
		}
	case datapipe.OrientationFaceDown:
		t.cancelPrimeTimer()
		if t.facePrimed {
			t.facePrimed = false
			t.flipoverGesture()
		}
	default:
		t.cancelPrimeTimer()
		t.facePrimed = false
	}
}

func (t *TkLock) cancelPrimeTimer() {
	if t.primeTimer != 0 {
		t.loop.Cancel(t.primeTimer)
		t.primeTimer = 0
	}
}

func (t *TkLock) flipoverGesture() {
	if t.bus.DisplayState.Value() != datapipe.DisplayOn {
		return
	}
	alarm := t.bus.AlarmUIState.Value()
	switch {
	case alarm == datapipe.AlarmRinging || alarm == datapipe.AlarmVisible:
		t.ui.FlipoverFeedback(FeedbackAlarm)
	case t.bus.CallState.Value() == datapipe.CallRinging:
		t.ui.FlipoverFeedback(FeedbackCall)
	}
}
