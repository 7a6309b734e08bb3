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

// Package hwprofile describes the hardware specific sysfs control
// files of the device. The profile is a small YAML file shipped with
// the hardware adaptation; every path is optional and an absent path
// turns the corresponding feature into a no-op.
package hwprofile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Profile names the sysfs control files of the touch and keypad
// hardware.
type Profile struct {
	// GpioKeyDisable is the hex bitmap masking individual gpio keys.
	GpioKeyDisable string `yaml:"gpio-key-disable"`
	// WaitForGesture enables ("4") or disables ("0") the doubletap
	// gesture mode of the touch controller.
	WaitForGesture string `yaml:"wait-for-gesture"`
	// Calibrate recalibrates the touch panel when written "1".
	Calibrate string `yaml:"calibrate"`
	// DisableTs and DisableKp gate interrupt delivery of the
	// touchscreen and keypad.
	DisableTs string `yaml:"disable-ts"`
	DisableKp string `yaml:"disable-kp"`
	// PalmStatus reads non-zero while a palm is in contact.
	PalmStatus string `yaml:"palm-status"`
}

// Load reads the profile; a missing file yields an empty profile.
func Load(path string) (*Profile, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read hardware profile: %v", err)
	}
	var p Profile
	if err := yaml.UnmarshalStrict(content, &p); err != nil {
		return nil, fmt.Errorf("cannot parse hardware profile: %v", err)
	}
	return &p, nil
}
