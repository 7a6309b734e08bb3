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
)

const wordBits = 64

// Bits is the capability bitmap of one device for one event type, as
// returned by EVIOCGBIT(type, cnt).
type Bits struct {
	typ   uint16
	cnt   int
	words []uint64
}

// NewBits returns an all-zero bitmap for the given event type, or nil
// for types the policy does not track.
func NewBits(typ uint16) *Bits {
	cnt, ok := CntForType(typ)
	if !ok {
		return nil
	}
	return &Bits{
		typ:   typ,
		cnt:   cnt,
		words: make([]uint64, (cnt+wordBits-1)/wordBits),
	}
}

// Type returns the event type this bitmap describes.
func (b *Bits) Type() uint16 {
	return b.typ
}

// Cnt returns the number of codes covered, i.e. the type specific
// maximum code + 1.
func (b *Bits) Cnt() int {
	return b.cnt
}

// Test reports whether code bit i is set; out of range bits read as
// unset.
func (b *Bits) Test(i int) bool {
	if i < 0 || i >= b.cnt {
		return false
	}
	return b.words[i/wordBits]&(1<<(uint(i)%wordBits)) != 0
}

// Set sets code bit i; used by Probe and by tests that build
// synthetic capability records.
func (b *Bits) Set(i int) {
	if i < 0 || i >= b.cnt {
		return
	}
	b.words[i/wordBits] |= 1 << (uint(i) % wordBits)
}

// Clear zeroes the bitmap.
func (b *Bits) Clear() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// Empty reports whether no bit is set.
func (b *Bits) Empty() bool {
	for _, w := range b.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Probe fills the bitmap from the device behind fd. On ioctl failure
// the bitmap is cleared and the error reported.
func (b *Bits) Probe(fd int) error {
	buf := make([]byte, (b.cnt+7)/8)
	if err := ioctlRead(fd, eviocgbit(b.typ, len(buf)), buf); err != nil {
		b.Clear()
		return fmt.Errorf("cannot probe %s capabilities: %v", TypeName(b.typ), err)
	}
	b.fromBytes(buf)
	return nil
}

func (b *Bits) fromBytes(buf []byte) {
	b.Clear()
	for i := 0; i < b.cnt; i++ {
		if buf[i/8]&(1<<(uint(i)%8)) != 0 {
			b.Set(i)
		}
	}
}
