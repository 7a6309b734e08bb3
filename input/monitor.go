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

package input

import (
	"io"

	"github.com/sailfishos/mced/datapipe"
	"github.com/sailfishos/mced/evdev"
	"github.com/sailfishos/mced/logger"
	"github.com/sailfishos/mced/settings"
	"github.com/sailfishos/mced/wakelock"
)

const inputWakelock = "mced_input_handler"

// monitorLoop reads the device stream one wire record at a time and
// hands each event to the role handler on the main loop. The handler
// completes before the next record is read. Any read problem,
// including a short read, deregisters the device.
func (r *Registry) monitorLoop(dev *Device) error {
	buf := make([]byte, evdev.EventSize)
	for {
		_, err := io.ReadFull(dev.file, buf)
		if err != nil {
			select {
			case <-dev.tmb.Dying():
				// deliberate close during removal
				return nil
			default:
			}
			logger.Noticef("cannot read %s: %v, removing device", dev.path, err)
			r.loop.Submit(func() { r.removeDevice(dev.path) })
			return nil
		}
		ev, err := evdev.DecodeEvent(buf)
		if err != nil {
			return err
		}
		wakelock.Acquire(inputWakelock)
		r.loop.SubmitWait(func() { r.handleEvent(dev, ev) })
		wakelock.Release(inputWakelock)
	}
}

// handleEvent runs on the main loop.
func (r *Registry) handleEvent(dev *Device, ev evdev.Event) {
	r.mapper.Apply(&ev)

	switch dev.role {
	case RoleTouch:
		r.touchEvent(dev, ev)
	case RoleDoubletap:
		// the panel reports doubletaps as power key events; have the
		// touchscreen handler reinterpret them
		if ev.Type == evdev.EV_KEY && ev.Code == evdev.KEY_POWER {
			r.touchEvent(dev, ev)
		}
	case RoleInput, RoleVolumeKey, RoleKeyboard:
		r.keySwitchEvent(dev, ev)
	case RoleActivity:
		r.activityEvent(dev, ev)
	}
}

// gestureEvent is the synthetic doubletap gesture; the value is a
// wire contract with the lock policy and must stay bit-for-bit
// stable.
func gestureEvent(from evdev.Event) evdev.Event {
	return evdev.Event{
		Sec:   from.Sec,
		Usec:  from.Usec,
		Type:  evdev.EV_MSC,
		Code:  evdev.MSC_GESTURE,
		Value: 0x4,
	}
}

func (r *Registry) displayIsOff() bool {
	return r.bus.DisplayState.Value().IsOff()
}

func (r *Registry) touchEvent(dev *Device, ev evdev.Event) {
	// the grab state machine taps the stream before any policy
	// filtering
	r.bus.TouchscreenRawEvent.Execute(ev)

	switch {
	case ev.Type == evdev.EV_KEY && ev.Code == evdev.KEY_POWER:
		// legacy panels report doubletap as a power key; translate
		// the release unconditionally
		if ev.Value != 0 {
			return
		}
		ev = gestureEvent(ev)
	case dev.doubletap != nil && r.displayIsOff() &&
		(r.bus.TsGrabActive.Value() || r.store.Bool(settings.FakeDoubletapEnabled)):
		if !dev.doubletap.Feed(&ev) {
			break
		}
		if !r.displayIsOff() {
			return
		}
		ev = gestureEvent(ev)
	}

	r.activityPing(r.rawActivity, ev)

	if r.bus.Submode.Value().Has(datapipe.SubmodeEventEater) {
		return
	}

	switch {
	case ev.Type == evdev.EV_KEY && ev.Code == evdev.BTN_TOUCH,
		ev.Type == evdev.EV_ABS && ev.Code == evdev.ABS_PRESSURE,
		ev.Type == evdev.EV_MSC && ev.Code == evdev.MSC_GESTURE:
		r.activityPing(r.cookedActivity, ev)
		r.bus.TouchscreenEvent.Execute(ev)
	}
}

func (r *Registry) keySwitchEvent(dev *Device, ev evdev.Event) {
	switch ev.Type {
	case evdev.EV_KEY:
		r.keyEvent(dev, ev)
	case evdev.EV_SW:
		r.switchEvent(dev, ev)
	}
}

func (r *Registry) keyEvent(dev *Device, ev evdev.Event) {
	if ev.Code == evdev.KEY_VOLUMEUP || ev.Code == evdev.KEY_VOLUMEDOWN {
		// the keypad grab machine needs the raw press state even
		// while the grab swallows the keys from policy
		r.bus.KeypadRawEvent.Execute(ev)
		if r.bus.KpGrabActive.Value() {
			return
		}
	}
	r.activityPing(r.rawActivity, ev)
	r.bus.KeypressEvent.Execute(ev)
}

func (r *Registry) switchEvent(dev *Device, ev evdev.Event) {
	state := datapipe.CoverOpen
	if ev.Value != 0 {
		state = datapipe.CoverClosed
	}
	dev.switchState[ev.Code] = ev.Value != 0

	// closing a lens cover or sliding a keyboard shut must not be
	// mistaken for the user wanting the display on
	closing := state == datapipe.CoverClosed &&
		(ev.Code == evdev.SW_CAMERA_LENS_COVER || ev.Code == evdev.SW_KEYPAD_SLIDE)
	if !closing {
		r.activityPing(r.rawActivity, ev)
	}

	switch ev.Code {
	case evdev.SW_LID:
		r.bus.LidCover.Publish(state)
	case evdev.SW_KEYPAD_SLIDE:
		r.bus.KeyboardSlide.Publish(state)
		r.publishKeyboardAvailable()
	case evdev.SW_CAMERA_LENS_COVER:
		r.bus.LensCover.Publish(state)
	case evdev.SW_FRONT_PROXIMITY:
		r.bus.ProximitySensor.Publish(state)
	case evdev.SW_HEADPHONE_INSERT, evdev.SW_MICROPHONE_INSERT,
		evdev.SW_LINEOUT_INSERT, evdev.SW_VIDEOOUT_INSERT:
		r.publishJackSense()
	}
}

func (r *Registry) activityEvent(dev *Device, ev evdev.Event) {
	switch ev.Type {
	case evdev.EV_SYN, evdev.EV_LED, evdev.EV_SND, evdev.EV_FF, evdev.EV_FF_STATUS, evdev.EV_REP:
		return
	}
	r.activityPing(r.rawActivity, ev)
}

func (r *Registry) activityPing(bucket activityLimiter, ev evdev.Event) {
	if bucket.TakeAvailable(1) == 0 {
		return
	}
	r.bus.UserActivity.Execute(ev.Time())
}
