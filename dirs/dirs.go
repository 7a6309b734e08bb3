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

// Package dirs holds the paths mced touches, rebased under a settable
// root so that the test suites can run against a scratch directory.
package dirs

import (
	"path/filepath"
)

var (
	GlobalRootDir string

	// DevInputDir is where the kernel exposes evdev nodes.
	DevInputDir string

	// MceConfDir holds the static configuration (mce.ini and the
	// hardware profile).
	MceConfDir string

	// MceDataDir holds the writable state, notably the settings
	// database.
	MceDataDir string

	// SettingsDBPath is the bbolt database with the live settings.
	SettingsDBPath string

	// HwProfilePath is the YAML profile naming hardware specific
	// sysfs control files.
	HwProfilePath string

	// WakeLockPath and WakeUnlockPath are the kernel wakelock
	// interface; both may be absent on non-android kernels.
	WakeLockPath   string
	WakeUnlockPath string

	// McedSocket is the diagnostics socket.
	McedSocket string
)

func init() {
	// init the global directories at startup
	SetRootDir("/")
}

// SetRootDir allows settings a new global root directory, this is useful
// for e.g. chroot operations and running tests.
func SetRootDir(rootdir string) {
	if rootdir == "" {
		panic("SetRootDir called with empty string")
	}
	GlobalRootDir = rootdir

	DevInputDir = filepath.Join(rootdir, "/dev/input")
	MceConfDir = filepath.Join(rootdir, "/etc/mce")
	MceDataDir = filepath.Join(rootdir, "/var/lib/mce")
	SettingsDBPath = filepath.Join(MceDataDir, "settings.db")
	HwProfilePath = filepath.Join(MceConfDir, "hwprofile.yaml")
	WakeLockPath = filepath.Join(rootdir, "/sys/power/wake_lock")
	WakeUnlockPath = filepath.Join(rootdir, "/sys/power/wake_unlock")
	McedSocket = filepath.Join(rootdir, "/run/mced.socket")
}
