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
	"github.com/sailfishos/mced/evdev"
	"github.com/sailfishos/mced/testutil"
)

func MockSysOpen(f func(path string) (int, error)) (restore func()) {
	return testutil.Mock(&sysOpen, f)
}

func MockDeviceName(f func(fd int) (string, error)) (restore func()) {
	return testutil.Mock(&deviceName, f)
}

func MockProbeInfo(f func(fd int) (*evdev.Info, error)) (restore func()) {
	return testutil.Mock(&probeInfo, f)
}

func MockSwitchStates(f func(fd int) (*evdev.Bits, error)) (restore func()) {
	return testutil.Mock(&switchStates, f)
}

func MockGrabDevice(f func(fd int, grab bool) error) (restore func()) {
	return testutil.Mock(&grabDevice, f)
}

func (r *Registry) AddDevice(path string) {
	r.addDevice(path)
}

func (r *Registry) RemoveDevice(path string) {
	r.removeDevice(path)
}

func (r *Registry) HandleEvent(dev *Device, ev evdev.Event) {
	r.handleEvent(dev, ev)
}

func (r *Registry) ProbeInitialState() {
	r.probeInitialState()
}

func (r *Registry) KeyboardAvailable() bool {
	return r.keyboardAvailable()
}

func (r *Registry) DeviceAt(path string) *Device {
	return r.devices[path]
}
