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

// Package wakelock writes named suspend blockers to the kernel
// wakelock interface. Kernels without CONFIG_PM_WAKELOCKS make every
// operation a no-op.
package wakelock

import (
	"os"

	"github.com/sailfishos/mced/dirs"
	"github.com/sailfishos/mced/logger"
)

var sysfsWrite = func(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}

func write(path, name string) {
	if err := sysfsWrite(path, name+"\n"); err != nil {
		if os.IsNotExist(err) {
			// kernel without wakelock support
			return
		}
		logger.Noticef("cannot write wakelock %q to %s: %v", name, path, err)
	}
}

// Acquire takes the named wakelock; taking a held lock is a no-op.
func Acquire(name string) {
	write(dirs.WakeLockPath, name)
}

// Release drops the named wakelock; dropping an unheld lock is a
// no-op.
func Release(name string) {
	write(dirs.WakeUnlockPath, name)
}
