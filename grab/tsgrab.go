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
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sailfishos/mced/datapipe"
	"github.com/sailfishos/mced/evdev"
	"github.com/sailfishos/mced/hwprofile"
	"github.com/sailfishos/mced/logger"
	"github.com/sailfishos/mced/mainloop"
)

const (
	tsReleaseDelay = 100 * time.Millisecond
	// after a display power up the grab must survive until real
	// touch input has a chance to appear
	tsPowerUpReleaseDelay = 600 * time.Millisecond

	// a brief grab should not flash the LED pattern
	ledActivateDelay = 200 * time.Millisecond

	kpReleaseDelay = 200 * time.Millisecond

	// TouchBlockedLedPattern names the LED pattern activated while
	// touch input is grabbed.
	TouchBlockedLedPattern = "PatternTouchInputBlocked"
)

var readPalmStatus = func(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(content)))
}

// TsGrab drives the touchscreen grab domain. Touch presence is
// derived from coherent multitouch frames on the raw touchscreen
// pipe; the policy request arrives on the ts_grab_wanted pipe.
type TsGrab struct {
	sm   *StateMachine
	loop *mainloop.Loop
	bus  *datapipe.Bus
	prof *hwprofile.Profile

	// LedPattern activates and deactivates the touch-blocked
	// pattern; left nil the pattern is skipped.
	LedPattern func(name string, activate bool)

	ledTimer mainloop.TimerID

	// per frame accumulation
	sawX, sawY, sawContact bool

	fakeTouch bool
}

// NewTsGrab wires the touchscreen grab domain. grabFn applies
// EVIOCGRAB to every touch device.
func NewTsGrab(loop *mainloop.Loop, bus *datapipe.Bus, prof *hwprofile.Profile, grabFn func(grab bool)) *TsGrab {
	g := &TsGrab{
		loop: loop,
		bus:  bus,
		prof: prof,
	}
	g.sm = NewStateMachine("tsgrab", loop, tsReleaseDelay, func(grab bool) {
		g.grabChanged(grab, grabFn)
	})
	if prof.PalmStatus != "" {
		g.sm.SetReleaseVerify(g.palmHeld)
	}

	bus.TouchscreenRawEvent.AddOutput(g.filterEvent)
	bus.TsGrabWanted.AddOutput(g.sm.SetWantGrab)
	bus.DisplayState.AddOutput(g.displayChanged)
	return g
}

// StateMachine exposes the underlying machine, mostly for
// diagnostics.
func (g *TsGrab) StateMachine() *StateMachine {
	return g.sm
}

func (g *TsGrab) grabChanged(grab bool, grabFn func(bool)) {
	grabFn(grab)
	g.bus.TsGrabActive.Publish(grab)
	if grab {
		if g.ledTimer == 0 && g.LedPattern != nil {
			g.ledTimer = g.loop.TimeoutAdd(ledActivateDelay, func() bool {
				g.ledTimer = 0
				g.LedPattern(TouchBlockedLedPattern, true)
				return false
			})
		}
	} else {
		if g.ledTimer != 0 {
			g.loop.Cancel(g.ledTimer)
			g.ledTimer = 0
		}
		if g.LedPattern != nil {
			g.LedPattern(TouchBlockedLedPattern, false)
		}
	}
}

func (g *TsGrab) palmHeld() bool {
	status, err := readPalmStatus(g.prof.PalmStatus)
	if err != nil {
		logger.Debugf("cannot read palm status: %v", err)
		return false
	}
	return status != 0
}

// filterEvent folds the raw stream into a touching state. A touch is
// present within a SYN_REPORT window iff both multitouch coordinates
// and a positive pressure or touch major were seen; BTN_TOUCH
// releases finalize the frame immediately.
func (g *TsGrab) filterEvent(ev evdev.Event) {
	switch ev.Type {
	case evdev.EV_KEY:
		if ev.Code == evdev.BTN_TOUCH {
			g.sawX, g.sawY, g.sawContact = false, false, false
			g.sm.SetTouching(ev.Value != 0)
		}
	case evdev.EV_ABS:
		switch ev.Code {
		case evdev.ABS_MT_POSITION_X:
			g.sawX = true
		case evdev.ABS_MT_POSITION_Y:
			g.sawY = true
		case evdev.ABS_MT_PRESSURE, evdev.ABS_MT_TOUCH_MAJOR:
			if ev.Value > 0 {
				g.sawContact = true
			}
		}
	case evdev.EV_SYN:
		if ev.Code == evdev.SYN_REPORT {
			g.sm.SetTouching(g.sawX && g.sawY && g.sawContact)
			g.sawX, g.sawY, g.sawContact = false, false, false
		}
	}
}

func (g *TsGrab) displayChanged(state datapipe.DisplayState) {
	switch {
	case state == datapipe.DisplayPowerUp:
		// fake touch: hold the grab open long enough for real touch
		// input to appear
		g.fakeTouch = true
		g.sm.SetReleaseDelay(tsPowerUpReleaseDelay)
		g.sm.SetTouching(true)
		g.sm.SetTouching(false)
	case state == datapipe.DisplayOn || state == datapipe.DisplayDim:
		if g.fakeTouch {
			g.fakeTouch = false
			g.sm.SetReleaseDelay(tsReleaseDelay)
		}
	case state.IsOff():
		// nothing can be touching a blanked panel; settle promptly
		g.fakeTouch = false
		g.sm.SetReleaseDelay(tsReleaseDelay)
		g.sm.Reset()
	}
}
