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

// Package tklock is the touchscreen and keypad lock policy engine. It
// consumes display, call, alarm, proximity, lid, keyboard slide and
// orientation state from the datapipe bus and decides when the lock
// UI is shown, when input is grabbed and when the display should
// change state.
package tklock

import (
	"time"

	"github.com/sailfishos/mced/datapipe"
	"github.com/sailfishos/mced/evdev"
	"github.com/sailfishos/mced/hwprofile"
	"github.com/sailfishos/mced/logger"
	"github.com/sailfishos/mced/mainloop"
	"github.com/sailfishos/mced/mceconf"
	"github.com/sailfishos/mced/settings"
)

// UIVariant is the lock UI the compositor is asked for.
type UIVariant int

const (
	UIHidden UIVariant = iota
	UILocked
	UIVisual
	UILpmOn
	UILpmOff
)

func (v UIVariant) String() string {
	switch v {
	case UILocked:
		return "locked"
	case UIVisual:
		return "visual"
	case UILpmOn:
		return "lpm-on"
	case UILpmOff:
		return "lpm-off"
	}
	return "hidden"
}

// FeedbackTarget selects the flip-over feedback signal.
type FeedbackTarget int

const (
	FeedbackAlarm FeedbackTarget = iota
	FeedbackCall
)

// UI is the outward face of the lock policy: the compositor requests
// and the signals on the system bus. All calls are fire and forget.
type UI interface {
	// RequestLockUI asks the compositor for the given lock UI.
	RequestLockUI(variant UIVariant)
	// TklockModeInd announces a lock mode change.
	TklockModeInd(locked bool)
	// FlipoverFeedback emits the flip-over gesture signal.
	FlipoverFeedback(target FeedbackTarget)
}

// autorelock trigger bits
const (
	relockOnKeyboardSlide = 1 << iota
	relockOnLensCover
	relockOnProximity
)

const (
	tklockWakelock = "mced_tklock"

	pocketModeDelay = 5 * time.Second
	// a proximity cover must persist this long before it inhibits
	// the doubletap gesture while the display is on
	doubletapInhibitDelay = 1200 * time.Millisecond
	// flip-over arming: face up must hold this long
	orientationPrimeDelay = time.Second
	visualBlankDelay      = 3 * time.Second
	// doubletap-to-wake policy 2 releases the lock this long after
	// the gesture
	gestureUnlockDelay = 600 * time.Millisecond
)

// TkLock is the lock policy state machine. One instance exists per
// daemon, owned by the main loop; no methods are goroutine safe.
type TkLock struct {
	loop  *mainloop.Loop
	bus   *datapipe.Bus
	store *settings.Store
	cfg   *mceconf.Config
	prof  *hwprofile.Profile
	ui    UI

	// shown is the UI variant last requested
	shown UIVariant

	// saved lock state for proximity locking
	savedBeforeProximity UIVariant
	proximityRestore     bool

	// autorelock trigger mask; zeroed on manual unlock
	autorelockMask int

	// orientation debounce
	facePrimed bool
	primeTimer mainloop.TimerID

	// timers
	autolockTimer  mainloop.TimerID
	dimBlankTimer  mainloop.TimerID
	pocketTimer    mainloop.TimerID
	visualTimer    mainloop.TimerID
	dtInhibitTimer mainloop.TimerID
	dtUnlockTimer  mainloop.TimerID
	recalTimers    []mainloop.TimerID
	dtInhibited    bool

	// sysfs gate states
	dtWakeupOn bool
	tsGated    bool
	kpGated    bool
	gpioMasked bool
}

// New wires the policy engine into the bus.
func New(loop *mainloop.Loop, bus *datapipe.Bus, store *settings.Store, cfg *mceconf.Config, prof *hwprofile.Profile, ui UI) *TkLock {
	t := &TkLock{
		loop:  loop,
		bus:   bus,
		store: store,
		cfg:   cfg,
		prof:  prof,
		ui:    ui,
		shown: UIHidden,
	}

	bus.DisplayState.AddOutput(t.displayChanged)
	bus.SystemState.AddOutput(func(datapipe.SystemState) { t.rethinkGrabs() })
	bus.CallState.AddOutput(t.callChanged)
	bus.AlarmUIState.AddOutput(func(datapipe.AlarmUIState) {
		t.rethinkGrabs()
		t.rethinkInterruptGating()
	})
	bus.ProximitySensor.AddOutput(t.proximityChanged)
	bus.LidCover.AddOutput(t.lidChanged)
	bus.KeyboardSlide.AddOutput(t.slideChanged)
	bus.LensCover.AddOutput(t.lensCoverChanged)
	bus.Orientation.AddOutput(t.orientationChanged)
	bus.UsbCable.AddOutput(t.usbChanged)
	bus.JackSense.AddOutput(t.jackChanged)
	bus.Heartbeat.AddOutput(t.heartbeat)
	bus.TklockRequest.AddOutput(t.handleLockRequest)
	bus.TouchscreenEvent.AddOutput(t.touchscreenEvent)
	bus.KeypressEvent.AddOutput(t.keypressEvent)
	bus.UserActivity.AddOutput(t.userActivity)

	store.Subscribe(settings.DoubletapGesture, func(string) {
		loop.Submit(func() { t.rethinkDoubletapWakeup() })
	})

	return t
}

// Locked reports whether the full tklock is engaged.
func (t *TkLock) Locked() bool {
	return t.submode().Has(datapipe.SubmodeTklock)
}

// Shown returns the last requested UI variant, for diagnostics.
func (t *TkLock) Shown() UIVariant {
	return t.shown
}

func (t *TkLock) submode() datapipe.Submode {
	return t.bus.Submode.Value()
}

func (t *TkLock) submodeChange(add, remove datapipe.Submode) {
	old := t.submode()
	next := old.Without(remove).With(add)
	if next != old {
		t.bus.Submode.Publish(next)
	}
}

func (t *TkLock) requestUI(variant UIVariant) {
	if t.shown == variant {
		return
	}
	t.shown = variant
	logger.Debugf("tklock: lock ui -> %s", variant)
	t.ui.RequestLockUI(variant)
}

// lock engages the full tklock with the given UI variant.
func (t *TkLock) lock(variant UIVariant) {
	wasLocked := t.Locked()
	add := datapipe.SubmodeTklock | datapipe.SubmodeAutorelock
	var remove datapipe.Submode = datapipe.SubmodeEventEater
	if variant == UIVisual {
		add |= datapipe.SubmodeVisualTklock
	} else {
		remove |= datapipe.SubmodeVisualTklock
	}
	t.submodeChange(add, remove)
	t.requestUI(variant)
	t.armAutorelock()
	if !wasLocked {
		t.ui.TklockModeInd(true)
	}
	t.cancelAutolockTimer()
	t.startDimBlankTimers()
	t.rethinkGrabs()
	t.rethinkGpioKeys()
}

// unlock releases the tklock. Manual releases disarm autorelock.
func (t *TkLock) unlock(manual bool) {
	wasLocked := t.Locked()
	t.submodeChange(0, datapipe.SubmodeTklock|datapipe.SubmodeVisualTklock|
		datapipe.SubmodeEventEater|datapipe.SubmodePocket)
	t.requestUI(UIHidden)
	t.cancelVisualTimer()
	t.cancelDimBlankTimer()
	t.cancelGestureUnlockTimer()
	if manual {
		t.autorelockMask = 0
		t.submodeChange(0, datapipe.SubmodeAutorelock)
	}
	if wasLocked {
		t.ui.TklockModeInd(false)
	}
	t.rethinkGrabs()
	t.rethinkGpioKeys()
}

// armAutorelock records which close events may re-engage the lock.
func (t *TkLock) armAutorelock() {
	t.autorelockMask = 0
	if t.store.Int(settings.KeyboardCloseTrigger) != 0 {
		t.autorelockMask |= relockOnKeyboardSlide
	}
	if t.cfg.CameraPopoutUnlock() {
		t.autorelockMask |= relockOnLensCover
	}
	t.autorelockMask |= relockOnProximity
}

// handleLockRequest serves the datapipe (and hence D-Bus) lock mode
// requests.
func (t *TkLock) handleLockRequest(req datapipe.LockRequest) {
	switch req {
	case datapipe.LockRequestLock:
		t.lock(UILocked)
	case datapipe.LockRequestLockDim:
		t.lock(UILocked)
		t.bus.DisplayStateRequest.Publish(datapipe.DisplayDim)
	case datapipe.LockRequestVisual:
		t.showVisual()
	case datapipe.LockRequestUnlock:
		t.unlock(true)
	}
}

// showVisual shows the lighter lock UI variant and arms its blank
// timeout.
func (t *TkLock) showVisual() {
	t.lock(UIVisual)
	t.bus.DisplayStateRequest.Publish(datapipe.DisplayOn)
	t.startVisualTimer()
}

func (t *TkLock) startVisualTimer() {
	t.cancelVisualTimer()
	t.visualTimer = t.loop.WakeupTimeoutAdd(tklockWakelock, visualBlankDelay, func() bool {
		t.visualTimer = 0
		// the visual variant decays to the full lock and the display
		// blanks
		t.lock(UILocked)
		t.bus.DisplayStateRequest.Publish(datapipe.DisplayOff)
		return false
	})
}

func (t *TkLock) cancelVisualTimer() {
	if t.visualTimer != 0 {
		t.loop.Cancel(t.visualTimer)
		t.visualTimer = 0
	}
}

// userActivity keeps the visual lock UI alive.
func (t *TkLock) userActivity(time.Time) {
	if t.visualTimer != 0 {
		t.startVisualTimer()
	}
}

// keypressEvent reacts to the lock key, and to power or volume key
// presses while locked.
func (t *TkLock) keypressEvent(ev evdev.Event) {
	if ev.Type != evdev.EV_KEY || ev.Value != 1 {
		return
	}
	switch ev.Code {
	case evdev.KEY_SCREENLOCK:
		if t.Locked() {
			t.unlock(true)
			t.bus.DisplayStateRequest.Publish(datapipe.DisplayOn)
		} else {
			t.lock(UILocked)
			t.bus.DisplayStateRequest.Publish(datapipe.DisplayOff)
		}
	case evdev.KEY_POWER, evdev.KEY_VOLUMEUP, evdev.KEY_VOLUMEDOWN:
		if t.Locked() && t.bus.DisplayState.Value().IsOff() {
			t.showVisual()
		}
	}
}

// CompositorGone forces an unlock: with the compositor dead a locked
// device could never be unlocked again.
func (t *TkLock) CompositorGone() {
	if !t.Locked() {
		return
	}
	logger.Noticef("tklock: compositor vanished, forcing unlock")
	t.unlock(true)
}
