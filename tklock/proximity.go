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
)

func (t *TkLock) proximityChanged(state datapipe.CoverState) {
	switch state {
	case datapipe.CoverClosed:
		t.maybeStartPocketTimer()
		t.startDoubletapInhibit()
		if !t.Locked() && t.submode().Has(datapipe.SubmodeAutorelock) &&
			t.autorelockMask&relockOnProximity != 0 &&
			t.bus.DisplayState.Value().IsOff() {
			t.lock(UILocked)
		}
	case datapipe.CoverOpen:
		t.cancelPocketTimer()
		t.cancelDoubletapInhibit()
		t.submodeChange(0, datapipe.SubmodePocket)
	}
	t.rethinkProximityLock()
	t.rethinkGrabs()
}

// rethinkProximityLock engages the proximity lock while a call is
// ringing or active and the sensor is covered, and restores the
// saved state on uncover.
func (t *TkLock) rethinkProximityLock() {
	inCall := t.bus.CallState.Value() == datapipe.CallRinging ||
		t.bus.CallState.Value() == datapipe.CallActive
	covered := t.bus.ProximitySensor.Value() == datapipe.CoverClosed

	engaged := t.submode().Has(datapipe.SubmodeProximityTklock)
	switch {
	case inCall && covered && !engaged:
		t.savedBeforeProximity = t.shown
		t.proximityRestore = true
		t.submodeChange(datapipe.SubmodeProximityTklock, 0)
		t.lock(UILocked)
		t.bus.DisplayStateRequest.Publish(datapipe.DisplayOff)
	case !covered && engaged:
		t.submodeChange(0, datapipe.SubmodeProximityTklock)
		if t.proximityRestore {
			t.proximityRestore = false
			t.restoreAfterProximity(t.savedBeforeProximity)
		}
	}
}

func (t *TkLock) restoreAfterProximity(saved UIVariant) {
	switch saved {
	case UIHidden:
		t.unlock(false)
		t.bus.DisplayStateRequest.Publish(datapipe.DisplayOn)
	case UIVisual:
		t.showVisual()
	default:
		t.lock(saved)
		t.bus.DisplayStateRequest.Publish(datapipe.DisplayOn)
	}
}

// pocket mode: a covered sensor while the display is off means the
// device went into a pocket; the doubletap gesture is inhibited until
// uncovered.
func (t *TkLock) maybeStartPocketTimer() {
	if t.pocketTimer != 0 {
		return
	}
	if t.bus.ProximitySensor.Value() != datapipe.CoverClosed {
		return
	}
	if !t.bus.DisplayState.Value().IsOff() {
		return
	}
	t.pocketTimer = t.loop.WakeupTimeoutAdd(tklockWakelock, pocketModeDelay, func() bool {
		t.pocketTimer = 0
		if t.bus.ProximitySensor.Value() == datapipe.CoverClosed &&
			t.bus.DisplayState.Value().IsOff() {
			t.submodeChange(datapipe.SubmodePocket, 0)
		}
		return false
	})
}

func (t *TkLock) cancelPocketTimer() {
	if t.pocketTimer != 0 {
		t.loop.Cancel(t.pocketTimer)
		t.pocketTimer = 0
	}
}

// doubletap inhibit while the display is on: a proximity cover that
// persists briefly means the device is being pocketed face first.
func (t *TkLock) startDoubletapInhibit() {
	if t.dtInhibitTimer != 0 || t.dtInhibited {
		return
	}
	delay := doubletapInhibitDelay
	if t.bus.CallState.Value() == datapipe.CallActive {
		// during a handset call the sensor is covered by an ear, not
		// a pocket; inhibit at once
		delay = 0
	}
	t.dtInhibitTimer = t.loop.TimeoutAdd(delay, func() bool {
		t.dtInhibitTimer = 0
		if t.bus.ProximitySensor.Value() == datapipe.CoverClosed {
			t.dtInhibited = true
		}
		return false
	})
}

func (t *TkLock) cancelDoubletapInhibit() {
	if t.dtInhibitTimer != 0 {
		t.loop.Cancel(t.dtInhibitTimer)
		t.dtInhibitTimer = 0
	}
	t.dtInhibited = false
}
