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
	"unsafe"

	"github.com/sailfishos/mced/testutil"
)

func MockIoctl(f func(fd int, req uint, ptr unsafe.Pointer) error) (restore func()) {
	return testutil.Mock(&doIoctl, f)
}

func Eviocgbit(typ uint16, size int) uint {
	return eviocgbit(typ, size)
}

func (b *Bits) FromBytes(buf []byte) {
	b.fromBytes(buf)
}
