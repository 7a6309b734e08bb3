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
	"github.com/sailfishos/mced/settings"
)

// lidChanged applies the lid open/close actions.
func (t *TkLock) lidChanged(state datapipe.CoverState) {
	if !t.store.Bool(settings.LidSensorEnabled) {
		return
	}
	switch state {
	case datapipe.CoverOpen:
		switch t.store.Int(settings.LidOpenActions) {
		case settings.OpenActionUnblank:
			t.bus.DisplayStateRequest.Publish(datapipe.DisplayOn)
		case settings.OpenActionUnlock:
			t.unlock(false)
			t.bus.DisplayStateRequest.Publish(datapipe.DisplayOn)
		}
	case datapipe.CoverClosed:
		switch t.store.Int(settings.LidCloseActions) {
		case settings.CloseActionBlank:
			t.bus.DisplayStateRequest.Publish(datapipe.DisplayOff)
		case settings.CloseActionLock:
			t.lock(UILocked)
			t.bus.DisplayStateRequest.Publish(datapipe.DisplayOff)
		}
	}
}

// slideChanged applies the keyboard slide policy and the autorelock
// trigger.
func (t *TkLock) slideChanged(state datapipe.CoverState) {
	switch state {
	case datapipe.CoverOpen:
		if t.store.Int(settings.KeyboardOpenTrigger) == 0 {
			return
		}
		switch t.store.Int(settings.KeyboardOpenActions) {
		case settings.OpenActionUnblank:
			t.bus.DisplayStateRequest.Publish(datapipe.DisplayOn)
		case settings.OpenActionUnlock:
			t.unlock(false)
			t.bus.DisplayStateRequest.Publish(datapipe.DisplayOn)
		}
	case datapipe.CoverClosed:
		if t.store.Int(settings.KeyboardCloseTrigger) == 0 {
			return
		}
		relock := !t.Locked() && t.submode().Has(datapipe.SubmodeAutorelock) &&
			t.autorelockMask&relockOnKeyboardSlide != 0
		switch t.store.Int(settings.KeyboardCloseActions) {
		case settings.CloseActionBlank:
			t.bus.DisplayStateRequest.Publish(datapipe.DisplayOff)
		case settings.CloseActionLock:
			relock = true
		}
		if relock {
			t.lock(UILocked)
		}
	}
	t.startAutolockRetrigger()
}

// lensCoverChanged applies the camera popout policy and the lens
// autorelock trigger.
func (t *TkLock) lensCoverChanged(state datapipe.CoverState) {
	switch state {
	case datapipe.CoverOpen:
		if t.cfg.CameraPopoutUnlock() {
			t.unlock(false)
			t.bus.DisplayStateRequest.Publish(datapipe.DisplayOn)
		}
	case datapipe.CoverClosed:
		if !t.Locked() && t.submode().Has(datapipe.SubmodeAutorelock) &&
			t.autorelockMask&relockOnLensCover != 0 {
			t.lock(UILocked)
		}
	}
}

// startAutolockRetrigger re-evaluates the pending autolock after a
// slide change: a slide opening may now veto it, a slide closing may
// enable it.
func (t *TkLock) startAutolockRetrigger() {
	if t.bus.DisplayState.Value().IsOff() && !t.Locked() {
		t.startAutolockTimer()
	} else {
		t.cancelAutolockTimer()
	}
}

// usbChanged wakes the visual lock UI on cable events.
func (t *TkLock) usbChanged(state datapipe.CableState) {
	if state == datapipe.CableUndef {
		return
	}
	t.exceptionWake()
}

// jackChanged wakes the visual lock UI on audio jack events.
func (t *TkLock) jackChanged(state datapipe.CoverState) {
	if state == datapipe.CoverUndef {
		return
	}
	t.exceptionWake()
}

// exceptionWake shows the visual lock UI and injects synthetic
// activity, which restarts the visual UI's blank timeout; the
// exception_length_* settings are not consulted.
func (t *TkLock) exceptionWake() {
	if !t.Locked() || !t.bus.DisplayState.Value().IsOff() {
		return
	}
	t.showVisual()
	t.bus.UserActivity.Execute(t.loop.Now())
}
