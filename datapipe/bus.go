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

import (
	"time"

	"github.com/sailfishos/mced/evdev"
)

// Bus gathers every pipe of the daemon in one record owned by the
// main loop. Components receive it by reference; there are no
// package level pipes.
type Bus struct {
	// states fed by external collaborators
	SystemState  *Pipe[SystemState]
	DisplayState *Pipe[DisplayState]
	CallState    *Pipe[CallState]
	AlarmUIState *Pipe[AlarmUIState]
	UsbCable     *Pipe[CableState]
	Orientation  *Pipe[Orientation]
	Heartbeat    *Pipe[time.Time]

	// the authoritative submode bitmask
	Submode *Pipe[Submode]

	// cover states derived from switches and sensors
	ProximitySensor *Pipe[CoverState]
	LidCover        *Pipe[CoverState]
	KeyboardSlide   *Pipe[CoverState]
	LensCover       *Pipe[CoverState]
	JackSense       *Pipe[CoverState]

	// event pipes fed by the io monitors; not cached. The raw pipes
	// see every decoded event before grab filtering and the event
	// eater, the cooked ones only what policy may consume.
	TouchscreenRawEvent *Pipe[evdev.Event]
	KeypadRawEvent      *Pipe[evdev.Event]
	TouchscreenEvent    *Pipe[evdev.Event]
	KeypressEvent       *Pipe[evdev.Event]
	UserActivity        *Pipe[time.Time]

	// grab state as settled by the grab state machines
	TsGrabActive *Pipe[bool]
	KpGrabActive *Pipe[bool]

	// policy outputs
	TklockRequest       *Pipe[LockRequest]
	DisplayStateRequest *Pipe[DisplayState]
	TsGrabWanted        *Pipe[bool]
	KpGrabWanted        *Pipe[bool]
	KeyboardAvailable   *Pipe[bool]
}

// NewBus returns a bus with every pipe at its startup value.
func NewBus() *Bus {
	return &Bus{
		SystemState:  New("system_state", SystemUndef),
		DisplayState: New("display_state", DisplayUndef),
		CallState:    New("call_state", CallNone),
		AlarmUIState: New("alarm_ui_state", AlarmOff),
		UsbCable:     New("usb_cable", CableUndef),
		Orientation:  New("orientation", OrientationUndefined),
		Heartbeat:    New("heartbeat", time.Time{}),

		Submode: New("submode", Submode(0)),

		ProximitySensor: New("proximity_sensor", CoverUndef),
		LidCover:        New("lid_cover", CoverUndef),
		KeyboardSlide:   New("keyboard_slide", CoverUndef),
		LensCover:       New("lens_cover", CoverUndef),
		JackSense:       New("jack_sense", CoverUndef),

		TouchscreenRawEvent: New("touchscreen_raw_event", evdev.Event{}),
		KeypadRawEvent:      New("keypad_raw_event", evdev.Event{}),
		TouchscreenEvent:    New("touchscreen_event", evdev.Event{}),
		KeypressEvent:       New("keypress_event", evdev.Event{}),
		UserActivity:        New("user_activity", time.Time{}),

		TsGrabActive: New("ts_grab_active", false),
		KpGrabActive: New("kp_grab_active", false),

		TklockRequest:       New("tklock_request", LockRequestNone),
		DisplayStateRequest: New("display_state_request", DisplayUndef),
		TsGrabWanted:        New("ts_grab_wanted", false),
		KpGrabWanted:        New("kp_grab_wanted", false),
		KeyboardAvailable:   New("keyboard_available", false),
	}
}
