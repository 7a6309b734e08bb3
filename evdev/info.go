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
)

// Info is the capability record of one device: presence of every
// event type, plus a code bitmap for each tracked type.
type Info struct {
	present [EV_CNT]bool
	types   [EV_CNT]*Bits
}

// NewInfo returns an empty capability record. Tracked type slots are
// allocated lazily by Probe or SetBit.
func NewInfo() *Info {
	return &Info{}
}

// Probe reads the type bitmap (EVIOCGBIT(0, ...)) and then the code
// bitmap of every set, tracked type. Slots of absent types are
// cleared.
func (info *Info) Probe(fd int) error {
	// the type bitmap uses the EV_* code space
	typeBuf := make([]byte, (EV_CNT+7)/8)
	if err := ioctlRead(fd, eviocgbit(0, len(typeBuf)), typeBuf); err != nil {
		for typ := range info.types {
			info.present[typ] = false
			info.types[typ] = nil
		}
		return fmt.Errorf("cannot probe event types: %v", err)
	}
	for typ := uint16(0); typ < EV_CNT; typ++ {
		info.present[typ] = typeBuf[typ/8]&(1<<(typ%8)) != 0
		info.types[typ] = nil
		if !info.present[typ] {
			continue
		}
		bits := NewBits(typ)
		if bits == nil {
			// present but untracked type; only presence is recorded
			continue
		}
		if typ == EV_SYN {
			// EVIOCGBIT(0, ...) reports types, not SYN codes; mark
			// the type as present without code detail
			bits.Set(SYN_REPORT)
			info.types[typ] = bits
			continue
		}
		if err := bits.Probe(fd); err != nil {
			return err
		}
		info.types[typ] = bits
	}
	return nil
}

// Bits returns the bitmap for the given type, or nil.
func (info *Info) Bits(typ uint16) *Bits {
	if typ >= EV_CNT {
		return nil
	}
	return info.types[typ]
}

// SetBit marks (typ, code) as supported; test helper and building
// block for synthetic records.
func (info *Info) SetBit(typ, code uint16) {
	if typ >= EV_CNT {
		return
	}
	info.present[typ] = true
	if info.types[typ] == nil {
		info.types[typ] = NewBits(typ)
		if info.types[typ] == nil {
			return
		}
	}
	info.types[typ].Set(int(code))
}

// MarkType marks an event type as present without code detail; this
// is how untracked types such as EV_REP surface in synthetic
// records.
func (info *Info) MarkType(typ uint16) {
	if typ < EV_CNT {
		info.present[typ] = true
	}
}

// HasType reports whether the device supports the given event type.
func (info *Info) HasType(typ uint16) bool {
	return typ < EV_CNT && info.present[typ]
}

// HasCode reports whether the device supports the given code of the
// given type.
func (info *Info) HasCode(typ, code uint16) bool {
	bits := info.Bits(typ)
	return bits != nil && bits.Test(int(code))
}

// HasTypes reports whether all the listed types are supported.
func (info *Info) HasTypes(types []uint16) bool {
	for _, typ := range types {
		if !info.HasType(typ) {
			return false
		}
	}
	return true
}

// HasCodes reports whether all the listed codes of the given type are
// supported.
func (info *Info) HasCodes(typ uint16, codes []uint16) bool {
	for _, code := range codes {
		if !info.HasCode(typ, code) {
			return false
		}
	}
	return true
}

func contains(list []uint16, val uint16) bool {
	for _, v := range list {
		if v == val {
			return true
		}
	}
	return false
}

// MatchTypes reports whether the device supports exactly the required
// types: every type outside ignored must be present iff it is listed
// in required.
func (info *Info) MatchTypes(required, ignored []uint16) bool {
	for typ := uint16(0); typ < EV_CNT; typ++ {
		if contains(ignored, typ) {
			continue
		}
		if info.HasType(typ) != contains(required, typ) {
			return false
		}
	}
	return true
}

// MatchCodes reports whether the device supports exactly the given
// code set for the given type: every code of the type must be present
// iff it is listed.
func (info *Info) MatchCodes(typ uint16, codes []uint16) bool {
	bits := info.Bits(typ)
	if bits == nil {
		return len(codes) == 0
	}
	for code := 0; code < bits.Cnt(); code++ {
		if bits.Test(code) != contains(codes, uint16(code)) {
			return false
		}
	}
	return true
}

func (info *Info) String() string {
	var parts []string
	for typ := uint16(0); typ < EV_CNT; typ++ {
		bits := info.types[typ]
		if bits == nil {
			continue
		}
		var codes []string
		for code := 0; code < bits.Cnt(); code++ {
			if bits.Test(code) {
				codes = append(codes, CodeName(typ, uint16(code)))
			}
		}
		parts = append(parts, fmt.Sprintf("%s[%s]", TypeName(typ), strings.Join(codes, " ")))
	}
	return strings.Join(parts, " ")
}
