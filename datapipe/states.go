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

package datapipe

// DisplayState is the display power state as reported by the display
// plugin.
type DisplayState int

const (
	DisplayUndef DisplayState = iota
	DisplayOff
	DisplayLpmOff
	DisplayLpmOn
	DisplayDim
	DisplayOn
	DisplayPowerUp
	DisplayPowerDown
)

func (s DisplayState) String() string {
	switch s {
	case DisplayOff:
		return "off"
	case DisplayLpmOff:
		return "lpm-off"
	case DisplayLpmOn:
		return "lpm-on"
	case DisplayDim:
		return "dim"
	case DisplayOn:
		return "on"
	case DisplayPowerUp:
		return "power-up"
	case DisplayPowerDown:
		return "power-down"
	}
	return "undef"
}

// IsOff reports whether the state counts as blanked: off, low power
// mode, or powering down.
func (s DisplayState) IsOff() bool {
	switch s {
	case DisplayOff, DisplayLpmOff, DisplayLpmOn, DisplayPowerDown:
		return true
	}
	return false
}

// IsLpm reports whether the state is one of the low power mode
// variants.
func (s DisplayState) IsLpm() bool {
	return s == DisplayLpmOff || s == DisplayLpmOn
}

// SystemState is the overall device state.
type SystemState int

const (
	SystemUndef SystemState = iota
	SystemUser
	SystemActDead
	SystemShutdown
	SystemReboot
	SystemBoot
)

func (s SystemState) String() string {
	switch s {
	case SystemUser:
		return "user"
	case SystemActDead:
		return "act-dead"
	case SystemShutdown:
		return "shutdown"
	case SystemReboot:
		return "reboot"
	case SystemBoot:
		return "boot"
	}
	return "undef"
}

// CallState is the voice call state from the telephony plugin.
type CallState int

const (
	CallNone CallState = iota
	CallRinging
	CallActive
	CallInvalid
)

func (s CallState) String() string {
	switch s {
	case CallRinging:
		return "ringing"
	case CallActive:
		return "active"
	case CallInvalid:
		return "invalid"
	}
	return "none"
}

// AlarmUIState is the alarm dialog state.
type AlarmUIState int

const (
	AlarmOff AlarmUIState = iota
	AlarmVisible
	AlarmRinging
)

func (s AlarmUIState) String() string {
	switch s {
	case AlarmVisible:
		return "visible"
	case AlarmRinging:
		return "ringing"
	}
	return "off"
}

// CoverState models two-position sensors: proximity, lid, keyboard
// slide, lens cover, jack sense.
type CoverState int

const (
	CoverUndef CoverState = iota
	CoverOpen
	CoverClosed
)

func (s CoverState) String() string {
	switch s {
	case CoverOpen:
		return "open"
	case CoverClosed:
		return "closed"
	}
	return "undef"
}

// CableState models the usb cable.
type CableState int

const (
	CableUndef CableState = iota
	CableConnected
	CableDisconnected
)

func (s CableState) String() string {
	switch s {
	case CableConnected:
		return "connected"
	case CableDisconnected:
		return "disconnected"
	}
	return "undef"
}

// Orientation is the accelerometer derived device orientation.
type Orientation int

const (
	OrientationUndefined Orientation = iota
	OrientationFaceUp
	OrientationFaceDown
	OrientationOther
)

func (s Orientation) String() string {
	switch s {
	case OrientationFaceUp:
		return "face-up"
	case OrientationFaceDown:
		return "face-down"
	case OrientationOther:
		return "other"
	}
	return "undefined"
}

// Submode is the bitmask of concurrent policy states. The
// authoritative value lives in the bus; tklock adds and removes bits
// transactionally.
type Submode uint32

const (
	SubmodeTklock Submode = 1 << iota
	SubmodeEventEater
	SubmodeVisualTklock
	SubmodeAutorelock
	SubmodeProximityTklock
	SubmodePocket
	SubmodeBootup
	SubmodeSoftoff
	SubmodeMalf
)

// Has reports whether all bits of m are set.
func (s Submode) Has(m Submode) bool {
	return s&m == m
}

// With returns the submode with the bits of m added.
func (s Submode) With(m Submode) Submode {
	return s | m
}

// Without returns the submode with the bits of m removed.
func (s Submode) Without(m Submode) Submode {
	return s &^ m
}

// LockRequest is a tklock mode change request.
type LockRequest int

const (
	LockRequestNone LockRequest = iota
	LockRequestUnlock
	LockRequestLock
	LockRequestLockDim
	LockRequestVisual
)

func (s LockRequest) String() string {
	switch s {
	case LockRequestUnlock:
		return "unlocked"
	case LockRequestLock:
		return "locked"
	case LockRequestLockDim:
		return "locked-dim"
	case LockRequestVisual:
		return "visual"
	}
	return "none"
}
