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
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request encoding, as in the kernel's ioctl.h
const (
	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uint) uint {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNrShift | size<<iocSizeShift
}

// eviocgbit encodes EVIOCGBIT(typ, size): read the capability bitmap
// of an event type (type 0 means the type bitmap itself).
func eviocgbit(typ uint16, size int) uint {
	return ioc(iocRead, 'E', 0x20+uint(typ), uint(size))
}

// eviocgname encodes EVIOCGNAME(size).
func eviocgname(size int) uint {
	return ioc(iocRead, 'E', 0x06, uint(size))
}

// eviocgkey encodes EVIOCGKEY(size): the current key/button states.
func eviocgkey(size int) uint {
	return ioc(iocRead, 'E', 0x18, uint(size))
}

// eviocgsw encodes EVIOCGSW(size): the current switch states.
func eviocgsw(size int) uint {
	return ioc(iocRead, 'E', 0x1b, uint(size))
}

// eviocgrab encodes EVIOCGRAB.
func eviocgrab() uint {
	return ioc(iocWrite, 'E', 0x90, uint(unsafe.Sizeof(int32(0))))
}

var doIoctl = func(fd int, req uint, ptr unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(ptr))
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlRead(fd int, req uint, buf []byte) error {
	return doIoctl(fd, req, unsafe.Pointer(&buf[0]))
}

// DeviceName reads the device name with EVIOCGNAME.
func DeviceName(fd int) (string, error) {
	buf := make([]byte, 256)
	if err := ioctlRead(fd, eviocgname(len(buf)), buf); err != nil {
		return "", fmt.Errorf("cannot read device name: %v", err)
	}
	return strings.TrimRight(string(buf), "\x00"), nil
}

// Grab issues EVIOCGRAB to acquire or drop the exclusive grab on the
// device behind fd.
func Grab(fd int, grab bool) error {
	var arg uintptr
	if grab {
		arg = 1
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(eviocgrab()), arg)
	if errno != 0 {
		return fmt.Errorf("cannot change grab state to %v: %v", grab, errno)
	}
	return nil
}

// SwitchStates reads the current switch states with EVIOCGSW into a
// SW_CNT sized bitmap.
func SwitchStates(fd int) (*Bits, error) {
	bits := NewBits(EV_SW)
	buf := make([]byte, (SW_CNT+7)/8)
	if err := ioctlRead(fd, eviocgsw(len(buf)), buf); err != nil {
		return nil, fmt.Errorf("cannot read switch states: %v", err)
	}
	bits.fromBytes(buf)
	return bits, nil
}

// KeyStates reads the currently held keys with EVIOCGKEY into a
// KEY_CNT sized bitmap.
func KeyStates(fd int) (*Bits, error) {
	bits := NewBits(EV_KEY)
	buf := make([]byte, (KEY_CNT+7)/8)
	if err := ioctlRead(fd, eviocgkey(len(buf)), buf); err != nil {
		return nil, fmt.Errorf("cannot read key states: %v", err)
	}
	bits.fromBytes(buf)
	return bits, nil
}
