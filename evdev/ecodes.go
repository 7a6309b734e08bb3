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

package evdev

import (
	"fmt"
	"strings"
	"sync"

	ecodes "github.com/gvalkov/golang-evdev"
)

// Event types and the codes mced cares about, as defined by the
// kernel's input-event-codes.h. Values are spelled out rather than
// aliased so that this file is the single authority the policy code
// compiles against; the golang-evdev tables are used for the
// name<->code translation below.
const (
	EV_SYN       = 0x00
	EV_KEY       = 0x01
	EV_REL       = 0x02
	EV_ABS       = 0x03
	EV_MSC       = 0x04
	EV_SW        = 0x05
	EV_LED       = 0x11
	EV_SND       = 0x12
	EV_REP       = 0x14
	EV_FF        = 0x15
	EV_PWR       = 0x16
	EV_FF_STATUS = 0x17
	EV_MAX       = 0x1f
	EV_CNT       = EV_MAX + 1

	SYN_REPORT    = 0x00
	SYN_MT_REPORT = 0x02
	SYN_MAX       = 0x0f
	SYN_CNT       = SYN_MAX + 1

	KEY_Q          = 16
	KEY_P          = 25
	KEY_VOLUMEDOWN = 114
	KEY_VOLUMEUP   = 115
	KEY_POWER      = 116
	KEY_MENU       = 139
	KEY_SCREENLOCK = 152
	KEY_BACK       = 158
	KEY_HOMEPAGE   = 172
	KEY_CAMERA     = 212

	BTN_MOUSE = 0x110
	BTN_Z     = 0x135
	BTN_TOUCH = 0x14a

	KEY_CAMERA_FOCUS = 0x210

	KEY_MAX = 0x2ff
	KEY_CNT = KEY_MAX + 1

	REL_X   = 0x00
	REL_Y   = 0x01
	REL_Z   = 0x02
	REL_MAX = 0x0f
	REL_CNT = REL_MAX + 1

	ABS_X              = 0x00
	ABS_Y              = 0x01
	ABS_Z              = 0x02
	ABS_PRESSURE       = 0x18
	ABS_DISTANCE       = 0x19
	ABS_MISC           = 0x28
	ABS_MT_SLOT        = 0x2f
	ABS_MT_TOUCH_MAJOR = 0x30
	ABS_MT_POSITION_X  = 0x35
	ABS_MT_POSITION_Y  = 0x36
	ABS_MT_TRACKING_ID = 0x39
	ABS_MT_PRESSURE    = 0x3a
	ABS_MAX            = 0x3f
	ABS_CNT            = ABS_MAX + 1

	MSC_GESTURE = 0x02
	MSC_MAX     = 0x07
	MSC_CNT     = MSC_MAX + 1

	SW_LID               = 0x00
	SW_HEADPHONE_INSERT  = 0x02
	SW_MICROPHONE_INSERT = 0x04
	SW_LINEOUT_INSERT    = 0x06
	SW_VIDEOOUT_INSERT   = 0x08
	SW_CAMERA_LENS_COVER = 0x09
	SW_KEYPAD_SLIDE      = 0x0a
	SW_FRONT_PROXIMITY   = 0x0b
	SW_MAX               = 0x10
	SW_CNT               = SW_MAX + 1
)

// CntForType returns the number of codes (maximum code + 1) for the
// event types mced tracks; ok is false for every other type.
func CntForType(typ uint16) (cnt int, ok bool) {
	switch typ {
	case EV_SYN:
		return SYN_CNT, true
	case EV_KEY:
		return KEY_CNT, true
	case EV_REL:
		return REL_CNT, true
	case EV_ABS:
		return ABS_CNT, true
	case EV_MSC:
		return MSC_CNT, true
	case EV_SW:
		return SW_CNT, true
	}
	return 0, false
}

// TypeName formats an event type for logs.
func TypeName(typ uint16) string {
	if name, ok := ecodes.EV[int(typ)]; ok {
		return name
	}
	return fmt.Sprintf("EV_0x%02x", typ)
}

// CodeName formats an event code for logs, using the golang-evdev
// tables.
func CodeName(typ, code uint16) string {
	if byCode, ok := ecodes.ByEventType[int(typ)]; ok {
		if name, ok := byCode[int(code)]; ok {
			return name
		}
	}
	return fmt.Sprintf("0x%03x", code)
}

var (
	nameTablesOnce sync.Once
	keyCodeByName  map[string]uint16
	swCodeByName   map[string]uint16
)

// aliases the golang-evdev tables do not carry (input.h spells them
// as #define aliases of other codes)
var extraKeyNames = map[string]uint16{
	"KEY_SCREENLOCK": KEY_SCREENLOCK,
}

func buildNameTables() {
	keyCodeByName = make(map[string]uint16, len(ecodes.ByEventType[EV_KEY]))
	for code, name := range ecodes.ByEventType[EV_KEY] {
		keyCodeByName[name] = uint16(code)
	}
	for name, code := range extraKeyNames {
		keyCodeByName[name] = code
	}
	swCodeByName = make(map[string]uint16, len(ecodes.ByEventType[EV_SW]))
	for code, name := range ecodes.ByEventType[EV_SW] {
		swCodeByName[name] = uint16(code)
	}
}

// CodeFromName translates a symbolic KEY_*/BTN_*/SW_* identifier to
// its (type, code) pair. Only EV_KEY and EV_SW names translate; any
// other identifier fails.
func CodeFromName(name string) (typ, code uint16, err error) {
	nameTablesOnce.Do(buildNameTables)
	switch {
	case strings.HasPrefix(name, "KEY_") || strings.HasPrefix(name, "BTN_"):
		if code, ok := keyCodeByName[name]; ok {
			return EV_KEY, code, nil
		}
	case strings.HasPrefix(name, "SW_"):
		if code, ok := swCodeByName[name]; ok {
			return EV_SW, code, nil
		}
	}
	return 0, 0, fmt.Errorf("cannot translate event code name %q", name)
}
