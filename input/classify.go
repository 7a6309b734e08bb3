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

// Package input monitors the evdev device nodes: it classifies each
// device by capability bitmaps, decodes and remaps its event stream
// and feeds the policy datapipes.
package input

import (
	"github.com/sailfishos/mced/evdev"
)

// Role is what a device is used for. Assigned once at device open and
// immutable for the device lifetime.
type Role int

const (
	// RoleReject devices are closed again right after probing.
	RoleReject Role = iota
	// RoleTouch is a touchscreen or a pointer standing in for one.
	RoleTouch
	// RoleInput devices carry tracked keys or switches.
	RoleInput
	// RoleActivity devices only matter as user activity sources.
	RoleActivity
	// RoleIgnore devices stay open but nothing is done with them.
	RoleIgnore
	// RoleDoubletap is a touch panel reporting doubletaps as key
	// events.
	RoleDoubletap
	// RoleProximitySensor and RoleAmbientLightSensor nodes are
	// handed to the sensor subsystem.
	RoleProximitySensor
	RoleAmbientLightSensor
	// RoleVolumeKey devices are grabbable volume key devices.
	RoleVolumeKey
	// RoleKeyboard devices have a full key set.
	RoleKeyboard
)

func (r Role) String() string {
	switch r {
	case RoleReject:
		return "reject"
	case RoleTouch:
		return "touch"
	case RoleInput:
		return "input"
	case RoleActivity:
		return "activity"
	case RoleDoubletap:
		return "doubletap"
	case RoleProximitySensor:
		return "proximity-sensor"
	case RoleAmbientLightSensor:
		return "als"
	case RoleVolumeKey:
		return "volume-key"
	case RoleKeyboard:
		return "keyboard"
	}
	return "ignore"
}

// ClassifyOptions selects which sensor nodes the sensor subsystem
// takes over; with a sensor disabled the matching node degrades to
// the 1-D sensor reject rule.
type ClassifyOptions struct {
	EvdevALS       bool
	EvdevProximity bool
}

// keys and switches mce tracks on plain input devices
var trackedKeys = []uint16{
	evdev.KEY_POWER,
	evdev.KEY_CAMERA,
	evdev.KEY_CAMERA_FOCUS,
	evdev.KEY_SCREENLOCK,
	evdev.KEY_VOLUMEUP,
	evdev.KEY_VOLUMEDOWN,
}

var trackedSwitches = []uint16{
	evdev.SW_CAMERA_LENS_COVER,
	evdev.SW_FRONT_PROXIMITY,
	evdev.SW_HEADPHONE_INSERT,
	evdev.SW_KEYPAD_SLIDE,
	evdev.SW_LID,
	evdev.SW_LINEOUT_INSERT,
	evdev.SW_MICROPHONE_INSERT,
	evdev.SW_VIDEOOUT_INSERT,
}

// doubletap panels report the gesture through one of these key codes
var doubletapKeys = []uint16{
	evdev.KEY_POWER,
	evdev.KEY_MENU,
	evdev.KEY_BACK,
	evdev.KEY_HOMEPAGE,
}

var volumeKeys = []uint16{
	evdev.KEY_VOLUMEUP,
	evdev.KEY_VOLUMEDOWN,
}

func hasAny(info *evdev.Info, typ uint16, codes []uint16) bool {
	for _, code := range codes {
		if info.HasCode(typ, code) {
			return true
		}
	}
	return false
}

// onlyCodesWithin reports whether the device has at least one code of
// the type and every set code is within allowed.
func onlyCodesWithin(info *evdev.Info, typ uint16, allowed []uint16) bool {
	bits := info.Bits(typ)
	if bits == nil || bits.Empty() {
		return false
	}
	for code := 0; code < bits.Cnt(); code++ {
		if !bits.Test(code) {
			continue
		}
		found := false
		for _, a := range allowed {
			if uint16(code) == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func absOnly(info *evdev.Info) bool {
	return info.MatchTypes([]uint16{evdev.EV_ABS}, []uint16{evdev.EV_SYN})
}

// grabbableVolumeKeyDevice matches devices that report only volume
// keys (autorepeat tolerated), or the known Nexus 5 shape where the
// volume keys share a device with the lid switch.
func grabbableVolumeKeyDevice(info *evdev.Info) bool {
	if info.MatchTypes([]uint16{evdev.EV_KEY}, []uint16{evdev.EV_SYN, evdev.EV_REP}) &&
		info.MatchCodes(evdev.EV_KEY, volumeKeys) {
		return true
	}
	if info.MatchTypes([]uint16{evdev.EV_KEY, evdev.EV_SW}, []uint16{evdev.EV_SYN}) &&
		info.MatchCodes(evdev.EV_KEY, volumeKeys) &&
		info.MatchCodes(evdev.EV_SW, []uint16{evdev.SW_LID}) {
		return true
	}
	return false
}

// Classify maps a capability record to the device role. It is a pure
// function: identical bits yield identical roles.
func Classify(info *evdev.Info, opts ClassifyOptions) Role {
	// 1-D evdev sensors claimed by the sensor subsystem
	if opts.EvdevALS && absOnly(info) && info.MatchCodes(evdev.EV_ABS, []uint16{evdev.ABS_MISC}) {
		return RoleAmbientLightSensor
	}
	if opts.EvdevProximity && absOnly(info) && info.MatchCodes(evdev.EV_ABS, []uint16{evdev.ABS_DISTANCE}) {
		return RoleProximitySensor
	}

	// 3-D sensors would only generate noise
	if info.HasCode(evdev.EV_KEY, evdev.BTN_Z) ||
		info.HasCode(evdev.EV_REL, evdev.REL_Z) ||
		info.HasCode(evdev.EV_ABS, evdev.ABS_Z) {
		return RoleReject
	}

	if info.HasCode(evdev.EV_KEY, evdev.BTN_TOUCH) &&
		info.HasCodes(evdev.EV_ABS, []uint16{evdev.ABS_X, evdev.ABS_Y}) {
		return RoleTouch
	}
	if info.HasCodes(evdev.EV_ABS, []uint16{evdev.ABS_MT_POSITION_X, evdev.ABS_MT_POSITION_Y}) {
		return RoleTouch
	}
	// mouse input is used as touch in the SDK emulator
	if info.HasCode(evdev.EV_KEY, evdev.BTN_MOUSE) &&
		info.HasCodes(evdev.EV_REL, []uint16{evdev.REL_X, evdev.REL_Y}) {
		return RoleTouch
	}

	// touch panels that report doubletap gestures as key events only
	if info.MatchTypes([]uint16{evdev.EV_KEY}, []uint16{evdev.EV_SYN}) &&
		onlyCodesWithin(info, evdev.EV_KEY, doubletapKeys) {
		return RoleDoubletap
	}

	if info.HasCodes(evdev.EV_KEY, []uint16{evdev.KEY_Q, evdev.KEY_P}) {
		return RoleKeyboard
	}

	if grabbableVolumeKeyDevice(info) {
		return RoleVolumeKey
	}

	if hasAny(info, evdev.EV_KEY, trackedKeys) || hasAny(info, evdev.EV_SW, trackedSwitches) {
		return RoleInput
	}

	// 1-D sensors handled outside the input pipeline
	if absOnly(info) &&
		(info.MatchCodes(evdev.EV_ABS, []uint16{evdev.ABS_DISTANCE}) ||
			info.MatchCodes(evdev.EV_ABS, []uint16{evdev.ABS_MISC})) {
		return RoleReject
	}

	// an X axis without a Y axis (or the reverse) is another sensor
	// shape
	if info.HasCode(evdev.EV_REL, evdev.REL_X) != info.HasCode(evdev.EV_REL, evdev.REL_Y) {
		return RoleReject
	}
	if info.HasCode(evdev.EV_ABS, evdev.ABS_X) != info.HasCode(evdev.EV_ABS, evdev.ABS_Y) {
		return RoleReject
	}
	if info.HasCode(evdev.EV_ABS, evdev.ABS_MT_POSITION_X) != info.HasCode(evdev.EV_ABS, evdev.ABS_MT_POSITION_Y) {
		return RoleReject
	}

	for _, typ := range []uint16{evdev.EV_KEY, evdev.EV_REL, evdev.EV_ABS, evdev.EV_MSC, evdev.EV_SW} {
		if info.HasType(typ) {
			return RoleActivity
		}
	}
	return RoleIgnore
}
