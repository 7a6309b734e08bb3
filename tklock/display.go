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

func (t *TkLock) displayChanged(state datapipe.DisplayState) {
	switch state {
	case datapipe.DisplayOn, datapipe.DisplayDim:
		t.cancelAutolockTimer()
		t.submodeChange(0, datapipe.SubmodeEventEater|datapipe.SubmodePocket)
		t.cancelPocketTimer()
		if t.Locked() && !t.submode().Has(datapipe.SubmodeVisualTklock) {
			t.requestUI(UILocked)
		}
	case datapipe.DisplayOff:
		t.startAutolockTimer()
		if !t.Locked() {
			// swallow stray input between blank and lock engage
			t.submodeChange(datapipe.SubmodeEventEater, 0)
		}
		t.maybeStartPocketTimer()
	case datapipe.DisplayLpmOn:
		if t.Locked() {
			t.requestUI(UILpmOn)
		}
	case datapipe.DisplayLpmOff:
		if t.Locked() {
			t.requestUI(UILpmOff)
		}
	}
	t.rethinkGrabs()
	t.rethinkDoubletapWakeup()
	t.rethinkGpioKeys()
	t.rethinkInterruptGating()
}

// autolockPossible checks the preconditions of locking after blank.
func (t *TkLock) autolockPossible() bool {
	if !t.store.Bool(settings.AutolockEnabled) {
		return false
	}
	if t.bus.SystemState.Value() != datapipe.SystemUser {
		return false
	}
	if t.bus.AlarmUIState.Value() != datapipe.AlarmOff {
		return false
	}
	if t.bus.CallState.Value() != datapipe.CallNone {
		return false
	}
	if t.submode().Has(datapipe.SubmodeBootup) {
		return false
	}
	if t.bus.KeyboardSlide.Value() == datapipe.CoverOpen &&
		!t.store.Bool(settings.AutolockWithOpenSlide) {
		return false
	}
	return true
}

func (t *TkLock) startAutolockTimer() {
	t.cancelAutolockTimer()
	if t.Locked() || !t.autolockPossible() {
		return
	}
	t.autolockTimer = t.loop.WakeupTimeoutAdd(tklockWakelock,
		t.store.Duration(settings.AutolockDelay), func() bool {
			t.autolockTimer = 0
			if t.bus.DisplayState.Value().IsOff() && t.autolockPossible() {
				t.lock(UILocked)
			}
			return false
		})
}

func (t *TkLock) cancelAutolockTimer() {
	if t.autolockTimer != 0 {
		t.loop.Cancel(t.autolockTimer)
		t.autolockTimer = 0
	}
}

// startDimBlankTimers applies the on-lock display policy: blank at
// once, or dim now and blank a little later.
func (t *TkLock) startDimBlankTimers() {
	t.cancelDimBlankTimer()
	if t.submode().Has(datapipe.SubmodeVisualTklock) {
		return
	}
	switch {
	case t.store.Bool(settings.BlankImmediately):
		t.bus.DisplayStateRequest.Publish(datapipe.DisplayOff)
	case t.store.Bool(settings.DimImmediately):
		t.bus.DisplayStateRequest.Publish(datapipe.DisplayDim)
		t.dimBlankTimer = t.loop.WakeupTimeoutAdd(tklockWakelock,
			t.store.Duration(settings.DimDelay), func() bool {
				t.dimBlankTimer = 0
				t.bus.DisplayStateRequest.Publish(datapipe.DisplayOff)
				return false
			})
	}
}

func (t *TkLock) cancelDimBlankTimer() {
	if t.dimBlankTimer != 0 {
		t.loop.Cancel(t.dimBlankTimer)
		t.dimBlankTimer = 0
	}
}

// rethinkGrabs recomputes the wanted grab state of both domains.
func (t *TkLock) rethinkGrabs() {
	display := t.bus.DisplayState.Value()
	call := t.bus.CallState.Value()

	tsWanted := display.IsOff()
	if t.store.Bool(settings.ProximityBlocksTouch) &&
		t.bus.ProximitySensor.Value() == datapipe.CoverClosed &&
		call != datapipe.CallNone {
		tsWanted = true
	}
	t.bus.TsGrabWanted.Publish(tsWanted)

	kpWanted := display.IsOff() &&
		call == datapipe.CallNone &&
		t.bus.AlarmUIState.Value() == datapipe.AlarmOff &&
		t.store.Int(settings.VolumeKeyInputPolicy) == 0
	t.bus.KpGrabWanted.Publish(kpWanted)
}

func (t *TkLock) callChanged(state datapipe.CallState) {
	t.rethinkGrabs()
	t.rethinkProximityLock()
	t.rethinkInterruptGating()
}
