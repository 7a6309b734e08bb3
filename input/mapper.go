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
	"github.com/sailfishos/mced/logger"
	"github.com/sailfishos/mced/mceconf"
)

type mappingRule struct {
	fromType, fromCode uint16
	toType, toCode     uint16
}

// EventMapper rewrites kernel emitted (type, code) pairs into the
// canonical codes downstream policy expects, as configured in the
// [EVDEV] group.
type EventMapper struct {
	rules []mappingRule
}

// NewEventMapper builds the mapper from configuration. Entries with
// untranslatable code names are dropped with a log message; the load
// never fails.
func NewEventMapper(cfg *mceconf.Config) *EventMapper {
	m := &EventMapper{}
	for _, entry := range cfg.EventMappings() {
		fromType, fromCode, err := evdev.CodeFromName(entry.KernelEmits)
		if err != nil {
			logger.Noticef("dropping event mapping %s=%s: %v", entry.KernelEmits, entry.MceExpects, err)
			continue
		}
		toType, toCode, err := evdev.CodeFromName(entry.MceExpects)
		if err != nil {
			logger.Noticef("dropping event mapping %s=%s: %v", entry.KernelEmits, entry.MceExpects, err)
			continue
		}
		m.rules = append(m.rules, mappingRule{
			fromType: fromType, fromCode: fromCode,
			toType: toType, toCode: toCode,
		})
	}
	return m
}

// Apply rewrites the event in place on the first matching rule. Only
// key and switch events are eligible; timestamps and values are never
// touched.
func (m *EventMapper) Apply(ev *evdev.Event) {
	if ev.Type != evdev.EV_KEY && ev.Type != evdev.EV_SW {
		return
	}
	for _, rule := range m.rules {
		if rule.fromType == ev.Type && rule.fromCode == ev.Code {
			ev.Type = rule.toType
			ev.Code = rule.toCode
			return
		}
	}
}

// ReverseLookupSwitch finds the kernel switch code that maps to the
// policy expected code, for initial state probing. With no rule
// targeting expected the identity holds; when a rule instead maps
// expected away to some other code, SW_MAX is returned so that the
// probe reads "absent" (the kernel never sets SW_MAX).
func (m *EventMapper) ReverseLookupSwitch(expected uint16) uint16 {
	for _, rule := range m.rules {
		if rule.toType == evdev.EV_SW && rule.toCode == expected && rule.fromType == evdev.EV_SW {
			return rule.fromCode
		}
	}
	for _, rule := range m.rules {
		if rule.fromType == evdev.EV_SW && rule.fromCode == expected &&
			(rule.toType != evdev.EV_SW || rule.toCode != expected) {
			return evdev.SW_MAX
		}
	}
	return expected
}
