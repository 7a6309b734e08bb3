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

package grab

import (
	"github.com/sailfishos/mced/datapipe"
	"github.com/sailfishos/mced/evdev"
	"github.com/sailfishos/mced/mainloop"
)

// KpGrab drives the volume key grab domain. "Touching" is either
// volume key being held down.
type KpGrab struct {
	sm  *StateMachine
	bus *datapipe.Bus

	upPressed, downPressed bool
}

// NewKpGrab wires the volume key grab domain. grabFn applies
// EVIOCGRAB to every volume key device.
func NewKpGrab(loop *mainloop.Loop, bus *datapipe.Bus, grabFn func(grab bool)) *KpGrab {
	g := &KpGrab{bus: bus}
	g.sm = NewStateMachine("kpgrab", loop, kpReleaseDelay, func(grab bool) {
		grabFn(grab)
		bus.KpGrabActive.Publish(grab)
	})
	bus.KeypadRawEvent.AddOutput(g.filterEvent)
	bus.KpGrabWanted.AddOutput(g.sm.SetWantGrab)
	return g
}

// StateMachine exposes the underlying machine.
func (g *KpGrab) StateMachine() *StateMachine {
	return g.sm
}

func (g *KpGrab) filterEvent(ev evdev.Event) {
	if ev.Type != evdev.EV_KEY {
		return
	}
	switch ev.Code {
	case evdev.KEY_VOLUMEUP:
		g.upPressed = ev.Value != 0
	case evdev.KEY_VOLUMEDOWN:
		g.downPressed = ev.Value != 0
	default:
		return
	}
	g.sm.SetTouching(g.upPressed || g.downPressed)
}
