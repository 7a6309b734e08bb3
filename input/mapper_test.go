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

package input_test

import (
	"os"
	"path/filepath"

	. "gopkg.in/check.v1"

	"github.com/sailfishos/mced/evdev"
	"github.com/sailfishos/mced/input"
	"github.com/sailfishos/mced/logger"
	"github.com/sailfishos/mced/mceconf"
	"github.com/sailfishos/mced/testutil"
)

type mapperSuite struct{}

var _ = Suite(&mapperSuite{})

func loadMapper(c *C, conf string) *input.EventMapper {
	path := filepath.Join(c.MkDir(), "mce.ini")
	c.Assert(os.WriteFile(path, []byte(conf), 0644), IsNil)
	cfg, err := mceconf.Load(path)
	c.Assert(err, IsNil)
	return input.NewEventMapper(cfg)
}

func (s *mapperSuite) TestApplyRewritesFirstMatch(c *C) {
	m := loadMapper(c, `
[EVDEV]
KEY_CAMERA=KEY_CAMERA_FOCUS
SW_LID=SW_FRONT_PROXIMITY
`)
	ev := evdev.Event{Sec: 1, Usec: 2, Type: evdev.EV_KEY, Code: evdev.KEY_CAMERA, Value: 1}
	m.Apply(&ev)
	c.Check(ev.Code, Equals, uint16(evdev.KEY_CAMERA_FOCUS))
	c.Check(ev.Type, Equals, uint16(evdev.EV_KEY))
	// timestamp and value are untouched
	c.Check(ev.Sec, Equals, int64(1))
	c.Check(ev.Usec, Equals, int64(2))
	c.Check(ev.Value, Equals, int32(1))

	sw := evdev.Event{Type: evdev.EV_SW, Code: evdev.SW_LID, Value: 1}
	m.Apply(&sw)
	c.Check(sw.Code, Equals, uint16(evdev.SW_FRONT_PROXIMITY))
}

func (s *mapperSuite) TestApplyLeavesUnmappedAlone(c *C) {
	m := loadMapper(c, "[EVDEV]\nKEY_CAMERA=KEY_CAMERA_FOCUS\n")
	ev := evdev.Event{Type: evdev.EV_KEY, Code: evdev.KEY_POWER, Value: 1}
	m.Apply(&ev)
	c.Check(ev.Code, Equals, uint16(evdev.KEY_POWER))

	abs := evdev.Event{Type: evdev.EV_ABS, Code: evdev.ABS_X, Value: 10}
	m.Apply(&abs)
	c.Check(abs.Code, Equals, uint16(evdev.ABS_X))
}

func (s *mapperSuite) TestBadNamesAreDroppedNotFatal(c *C) {
	logbuf, restore := logger.MockLogger()
	defer restore()

	m := loadMapper(c, `
[EVDEV]
KEY_NO_SUCH=KEY_POWER
ABS_X=KEY_POWER
KEY_CAMERA=KEY_CAMERA_FOCUS
`)
	c.Check(logbuf.String(), testutil.Contains, "dropping event mapping KEY_NO_SUCH=KEY_POWER")
	c.Check(logbuf.String(), testutil.Contains, "dropping event mapping ABS_X=KEY_POWER")

	ev := evdev.Event{Type: evdev.EV_KEY, Code: evdev.KEY_CAMERA}
	m.Apply(&ev)
	c.Check(ev.Code, Equals, uint16(evdev.KEY_CAMERA_FOCUS))
}

func (s *mapperSuite) TestReverseLookupSwitch(c *C) {
	m := loadMapper(c, "[EVDEV]\nSW_LID=SW_FRONT_PROXIMITY\n")

	// rule A -> B: reverse of B is A
	c.Check(m.ReverseLookupSwitch(evdev.SW_FRONT_PROXIMITY), Equals, uint16(evdev.SW_LID))
	// A maps away: probing for A must read absent
	c.Check(m.ReverseLookupSwitch(evdev.SW_LID), Equals, uint16(evdev.SW_MAX))
	// untouched codes are identity
	c.Check(m.ReverseLookupSwitch(evdev.SW_KEYPAD_SLIDE), Equals, uint16(evdev.SW_KEYPAD_SLIDE))
}

func (s *mapperSuite) TestReverseLookupNoRules(c *C) {
	m := loadMapper(c, "")
	c.Check(m.ReverseLookupSwitch(evdev.SW_LID), Equals, uint16(evdev.SW_LID))
}

func (s *mapperSuite) TestMappedStreamKeepsLengthAndPayload(c *C) {
	m := loadMapper(c, "[EVDEV]\nKEY_CAMERA=KEY_CAMERA_FOCUS\nSW_LID=SW_FRONT_PROXIMITY\n")
	stream := []evdev.Event{
		{Sec: 1, Usec: 100, Type: evdev.EV_KEY, Code: evdev.KEY_CAMERA, Value: 1},
		{Sec: 1, Usec: 200, Type: evdev.EV_SYN, Code: evdev.SYN_REPORT, Value: 0},
		{Sec: 2, Usec: 300, Type: evdev.EV_SW, Code: evdev.SW_LID, Value: 1},
		{Sec: 3, Usec: 400, Type: evdev.EV_KEY, Code: evdev.KEY_CAMERA, Value: 0},
	}
	mapped := make([]evdev.Event, len(stream))
	copy(mapped, stream)
	for i := range mapped {
		m.Apply(&mapped[i])
	}
	c.Assert(mapped, HasLen, len(stream))
	for i := range stream {
		c.Check(mapped[i].Sec, Equals, stream[i].Sec)
		c.Check(mapped[i].Usec, Equals, stream[i].Usec)
		c.Check(mapped[i].Value, Equals, stream[i].Value)
	}
}
