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

// Package testutil carries shared test helpers for the mced test
// suites.
package testutil

import (
	. "gopkg.in/check.v1"
)

// BaseTest is a structure used as a base test suite for tests that
// need to register cleanup handlers to undo mocking.
type BaseTest struct {
	cleanupHandlers []func()
}

func (s *BaseTest) SetUpTest(c *C) {
	s.cleanupHandlers = nil
}

// TearDownTest runs the cleanup handlers in reverse order of their
// registration.
func (s *BaseTest) TearDownTest(c *C) {
	for i := len(s.cleanupHandlers) - 1; i >= 0; i-- {
		s.cleanupHandlers[i]()
	}
	s.cleanupHandlers = nil
}

// AddCleanup registers a function to be called during TearDownTest.
func (s *BaseTest) AddCleanup(f func()) {
	s.cleanupHandlers = append(s.cleanupHandlers, f)
}

// Mock assigns mockedValue to the target location and returns a
// restore function undoing the assignment. It is meant to be used in
// concert with the Mock* helpers exported from export_test.go files.
func Mock[T any](target *T, mockedValue T) (restore func()) {
	old := *target
	*target = mockedValue
	return func() {
		*target = old
	}
}
