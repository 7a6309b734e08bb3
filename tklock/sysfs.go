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

package tklock

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sailfishos/mced/datapipe"
	"github.com/sailfishos/mced/evdev"
	"github.com/sailfishos/mced/logger"
	"github.com/sailfishos/mced/settings"
)

var (
	sysfsWriteFile = func(path, content string) error {
		return os.WriteFile(path, []byte(content), 0)
	}
	sysfsReadFile = func(path string) (string, error) {
		content, err := os.ReadFile(path)
		return string(content), err
	}
)

// recalibration poke offsets after enabling the doubletap gesture
var recalibrationSchedule = []time.Duration{
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
	30 * time.Second,
}

// gpio keys masked while the device is locked with the display off
var gpioDisabledKeys = []uint16{
	evdev.KEY_CAMERA,
	evdev.KEY_CAMERA_FOCUS,
}

// writeSysfs logs failures and moves on; a missing control file just
// disables the feature.
func writeSysfs(path, content string) {
	if path == "" {
		return
	}
	if err := sysfsWriteFile(path, content); err != nil {
		logger.Noticef("cannot write %q to %s: %v", strings.TrimRight(content, "\n"), path, err)
	}
}

// rethinkDoubletapWakeup keeps the touch controller gesture mode in
// sync with the policy setting and display state, scheduling the
// recalibration pokes when the gesture mode turns on.
func (t *TkLock) rethinkDoubletapWakeup() {
	if t.prof.WaitForGesture == "" {
		return
	}
	enable := t.store.Int(settings.DoubletapGesture) != settings.DoubletapDisabled &&
		t.bus.DisplayState.Value().IsOff()
	if enable == t.dtWakeupOn {
		return
	}
	t.dtWakeupOn = enable
	if enable {
		writeSysfs(t.prof.WaitForGesture, "4\n")
		t.scheduleRecalibration()
	} else {
		writeSysfs(t.prof.WaitForGesture, "0\n")
		t.cancelRecalibration()
	}
}

// scheduleRecalibration pokes the touch controller at fixed offsets
// after gesture mode enable; later pokes ride the heartbeat.
func (t *TkLock) scheduleRecalibration() {
	t.cancelRecalibration()
	if t.prof.Calibrate == "" {
		return
	}
	for _, offset := range recalibrationSchedule {
		offset := offset
		id := t.loop.TimeoutAdd(offset, func() bool {
			t.pokeCalibrate()
			return false
		})
		t.recalTimers = append(t.recalTimers, id)
	}
}

func (t *TkLock) cancelRecalibration() {
	for _, id := range t.recalTimers {
		t.loop.Cancel(id)
	}
	t.recalTimers = nil
}

func (t *TkLock) pokeCalibrate() {
	writeSysfs(t.prof.Calibrate, "1\n")
}

// heartbeat piggybacks recalibration on the system heartbeat while
// the display is up and doubletap is enabled.
func (t *TkLock) heartbeat(time.Time) {
	if t.prof.Calibrate == "" {
		return
	}
	if t.store.Int(settings.DoubletapGesture) == settings.DoubletapDisabled {
		return
	}
	display := t.bus.DisplayState.Value()
	if display == datapipe.DisplayOn || display == datapipe.DisplayDim {
		t.pokeCalibrate()
	}
}

// rethinkInterruptGating gates the touch and keypad interrupt
// delivery while they cannot produce useful input.
func (t *TkLock) rethinkInterruptGating() {
	display := t.bus.DisplayState.Value()

	if t.prof.DisableTs != "" {
		// touch interrupts stay on when the doubletap gesture may
		// wake the display
		disable := display.IsOff() &&
			t.store.Int(settings.DoubletapGesture) == settings.DoubletapDisabled
		t.writeGate(t.prof.DisableTs, disable, &t.tsGated)
	}
	if t.prof.DisableKp != "" {
		disable := display.IsOff() &&
			t.bus.CallState.Value() == datapipe.CallNone &&
			t.bus.AlarmUIState.Value() == datapipe.AlarmOff
		t.writeGate(t.prof.DisableKp, disable, &t.kpGated)
	}
}

func (t *TkLock) writeGate(path string, disable bool, state *bool) {
	if *state == disable {
		return
	}
	*state = disable
	if disable {
		writeSysfs(path, "1\n")
	} else {
		writeSysfs(path, "0\n")
	}
}

// rethinkGpioKeys masks the gpio keys that must not fire while the
// device is locked with a blank display. The bitmap is shared with
// the kernel and other subsystems; no other writers are assumed
// while mced runs.
func (t *TkLock) rethinkGpioKeys() {
	if t.prof.GpioKeyDisable == "" {
		return
	}
	disable := t.Locked() && t.bus.DisplayState.Value().IsOff()
	if t.gpioMasked == disable {
		return
	}
	t.gpioMasked = disable

	bitmap, err := readGpioBitmap(t.prof.GpioKeyDisable)
	if err != nil {
		logger.Noticef("cannot read gpio key bitmap: %v", err)
		return
	}
	for _, key := range gpioDisabledKeys {
		setBitmapBit(bitmap, int(key), disable)
	}
	if err := writeGpioBitmap(t.prof.GpioKeyDisable, bitmap); err != nil {
		logger.Noticef("cannot write gpio key bitmap: %v", err)
	}
}

// The gpio key disable bitmap is a newline terminated lowercase hex
// string over KEY_CNT bits, least significant byte first.
func readGpioBitmap(path string) ([]byte, error) {
	content, err := sysfsReadFile(path)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return make([]byte, evdev.KEY_CNT/8), nil
	}
	bitmap, err := hex.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("cannot parse bitmap %q: %v", content, err)
	}
	if len(bitmap) < evdev.KEY_CNT/8 {
		grown := make([]byte, evdev.KEY_CNT/8)
		copy(grown, bitmap)
		bitmap = grown
	}
	return bitmap, nil
}

func writeGpioBitmap(path string, bitmap []byte) error {
	return sysfsWriteFile(path, hex.EncodeToString(bitmap)+"\n")
}

func setBitmapBit(bitmap []byte, bit int, set bool) {
	if bit/8 >= len(bitmap) {
		return
	}
	if set {
		bitmap[bit/8] |= 1 << (uint(bit) % 8)
	} else {
		bitmap[bit/8] &^= 1 << (uint(bit) % 8)
	}
}
