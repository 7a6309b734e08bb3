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

package testutil

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/check.v1"
)

type fileEqualsChecker struct {
	*check.CheckerInfo
}

// FileEquals verifies that the given file's content is equal to the
// expected string.
var FileEquals check.Checker = &fileEqualsChecker{
	CheckerInfo: &check.CheckerInfo{Name: "FileEquals", Params: []string{"filename", "contents"}},
}

func (c *fileEqualsChecker) Check(params []interface{}, names []string) (result bool, error string) {
	filename, ok := params[0].(string)
	if !ok {
		return false, "filename must be a string"
	}
	expected, ok := params[1].(string)
	if !ok {
		return false, "contents must be a string"
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return false, fmt.Sprintf("cannot read file %q: %v", filename, err)
	}
	if string(content) != expected {
		return false, fmt.Sprintf("file %q contents mismatch:\ngot:      %q\nexpected: %q", filename, content, expected)
	}
	return true, ""
}

type containsChecker struct {
	*check.CheckerInfo
}

// Contains verifies that the string value contains the expected
// substring.
var Contains check.Checker = &containsChecker{
	CheckerInfo: &check.CheckerInfo{Name: "Contains", Params: []string{"value", "substring"}},
}

func (c *containsChecker) Check(params []interface{}, names []string) (result bool, error string) {
	value, ok := params[0].(string)
	if !ok {
		if s, isStringer := params[0].(fmt.Stringer); isStringer {
			value = s.String()
		} else {
			return false, "value must be a string"
		}
	}
	substring, ok := params[1].(string)
	if !ok {
		return false, "substring must be a string"
	}
	return strings.Contains(value, substring), ""
}
