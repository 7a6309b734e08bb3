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
	"time"

	"github.com/sailfishos/mced/evdev"
)

const (
	// maximum time from the first press to the final release
	doubletapMaxInterval = 500 * time.Millisecond
	// maximum distance between the two press points, in pixels
	doubletapMaxDistance = 100

	doubletapSlots = 4
)

// click marker nibble shifts; keeping the sources in disjoint nibbles
// lets the peak count of any one source fall out of an OR-reduction
const (
	clickShiftMouse      = 0
	clickShiftPressure   = 4
	clickShiftTouchMajor = 8
	clickShiftTrackingID = 12
)

type doubletapPoint struct {
	when  time.Time
	x, y  int32
	click uint32
}

// points reduces the click accumulators to the number of active
// touch points seen in the frame.
func (p *doubletapPoint) points() uint32 {
	c := p.click
	c |= c >> 8
	c |= c >> 4
	return c & 0xf
}

// DoubletapEmulator reinterprets raw touch and mouse events into a
// synthetic doubletap gesture, for touch hardware without gesture
// support. Press/release transitions accumulate in a four slot ring;
// the gesture fires on a press, release, press, release sequence
// within the time and distance limits.
type DoubletapEmulator struct {
	ring    [doubletapSlots]doubletapPoint
	cur     int
	x, y    int32
	skipSyn bool
}

// Reset drops all accumulated history.
func (e *DoubletapEmulator) Reset() {
	*e = DoubletapEmulator{}
}

func (e *DoubletapEmulator) addClick(shift uint) {
	e.ring[e.cur].click += 1 << shift
}

// Feed consumes one raw event and reports whether a doubletap was
// just detected. On detection all history is dropped.
func (e *DoubletapEmulator) Feed(ev *evdev.Event) bool {
	switch ev.Type {
	case evdev.EV_REL:
		switch ev.Code {
		case evdev.REL_X:
			e.x += ev.Value
		case evdev.REL_Y:
			e.y += ev.Value
		}
	case evdev.EV_KEY:
		switch ev.Code {
		case evdev.BTN_MOUSE:
			if ev.Value != 0 {
				e.addClick(clickShiftMouse)
				e.ring[e.cur].x = e.x
				e.ring[e.cur].y = e.y
				e.skipSyn = false
			}
		case evdev.BTN_TOUCH:
			if ev.Value == 0 {
				// single touch devices do not emit SYN_MT_REPORT;
				// let the release frame finalize anyway
				e.skipSyn = false
			}
		}
	case evdev.EV_ABS:
		switch ev.Code {
		case evdev.ABS_MT_POSITION_X:
			e.ring[e.cur].x = ev.Value
			e.skipSyn = false
		case evdev.ABS_MT_POSITION_Y:
			e.ring[e.cur].y = ev.Value
			e.skipSyn = false
		case evdev.ABS_MT_PRESSURE:
			if ev.Value > 0 {
				e.addClick(clickShiftPressure)
			}
			e.skipSyn = false
		case evdev.ABS_MT_TOUCH_MAJOR:
			if ev.Value > 0 {
				e.addClick(clickShiftTouchMajor)
			}
			e.skipSyn = false
		case evdev.ABS_MT_TRACKING_ID:
			if ev.Value != -1 {
				e.addClick(clickShiftTrackingID)
			}
			e.skipSyn = false
		}
	case evdev.EV_SYN:
		switch ev.Code {
		case evdev.SYN_MT_REPORT:
			e.skipSyn = false
		case evdev.SYN_REPORT:
			if !e.skipSyn {
				return e.finalize(ev.Time())
			}
		}
	}
	return false
}

func (e *DoubletapEmulator) finalize(when time.Time) bool {
	e.skipSyn = true

	cur := &e.ring[e.cur]
	cur.when = when

	prev := &e.ring[(e.cur+doubletapSlots-1)%doubletapSlots]
	if cur.points() == prev.points() {
		// no transition; restart the frame accumulators so a held
		// finger keeps reading as one point per frame
		cur.click = 0
		return false
	}

	if cur.points() == 0 && e.isDoubletap() {
		e.Reset()
		return true
	}

	// advance; the new slot starts from the last seen position
	x, y := cur.x, cur.y
	e.cur = (e.cur + 1) % doubletapSlots
	next := &e.ring[e.cur]
	*next = doubletapPoint{x: x, y: y}
	return false
}

// isDoubletap checks the ring for release, press, release, press
// going backwards from the current slot, within the time and
// distance limits.
func (e *DoubletapEmulator) isDoubletap() bool {
	rel2 := &e.ring[e.cur]
	prs2 := &e.ring[(e.cur+3)%doubletapSlots]
	rel1 := &e.ring[(e.cur+2)%doubletapSlots]
	prs1 := &e.ring[(e.cur+1)%doubletapSlots]

	if rel2.points() != 0 || prs2.points() == 0 || rel1.points() != 0 || prs1.points() == 0 {
		return false
	}
	if rel2.when.Sub(prs1.when) > doubletapMaxInterval {
		return false
	}
	dx := int64(prs2.x - prs1.x)
	dy := int64(prs2.y - prs1.y)
	return dx*dx+dy*dy <= doubletapMaxDistance*doubletapMaxDistance
}
