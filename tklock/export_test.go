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
	"time"

	"github.com/sailfishos/mced/testutil"
)

func MockSysfsWriteFile(f func(path, content string) error) (restore func()) {
	return testutil.Mock(&sysfsWriteFile, f)
}

func MockSysfsReadFile(f func(path string) (string, error)) (restore func()) {
	return testutil.Mock(&sysfsReadFile, f)
}

const (
	PocketModeDelay       = pocketModeDelay
	DoubletapInhibitDelay = doubletapInhibitDelay
	OrientationPrimeDelay = orientationPrimeDelay
	VisualBlankDelay      = visualBlankDelay
	GestureUnlockDelay    = gestureUnlockDelay
)

var RecalibrationSchedule = recalibrationSchedule

func MockRecalibrationSchedule(schedule []time.Duration) (restore func()) {
	return testutil.Mock(&recalibrationSchedule, schedule)
}
