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

// Package mceconf loads the static mce.ini configuration: event code
// remapping, keyboard slide providers, the tklock options and the
// device denylist.
package mceconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mvo5/goconfigparser"

	"github.com/sailfishos/mced/dirs"
	"github.com/sailfishos/mced/logger"
)

const (
	evdevSection    = "EVDEV"
	slideSection    = "SW_KEYPAD_SLIDE"
	tklockSection   = "TKLock"
	denylistSection = "EVDEV_DENYLIST"
)

// Mapping is one [EVDEV] entry: the kernel emits one symbolic code,
// policy expects another.
type Mapping struct {
	KernelEmits string
	MceExpects  string
}

// Config is the parsed static configuration.
type Config struct {
	cfg *goconfigparser.ConfigParser

	// option names per section, in file order; goconfigparser keeps
	// values, this keeps enumeration
	options map[string][]string
}

// Load reads the configuration file; a missing file yields an empty
// configuration.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		content = nil
	} else if err != nil {
		return nil, fmt.Errorf("cannot read configuration: %v", err)
	}
	cfg := goconfigparser.New()
	if err := cfg.ReadString(string(content)); err != nil {
		return nil, fmt.Errorf("cannot parse configuration: %v", err)
	}
	return &Config{
		cfg:     cfg,
		options: scanOptions(string(content)),
	}, nil
}

// LoadDefault loads mce.ini from the configuration directory.
func LoadDefault() (*Config, error) {
	return Load(filepath.Join(dirs.MceConfDir, "mce.ini"))
}

// scanOptions records option names per section in file order; the
// values themselves are always fetched through the parser.
func scanOptions(content string) map[string][]string {
	options := make(map[string][]string)
	section := ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		if line[0] == '[' && strings.HasSuffix(line, "]") {
			section = line[1 : len(line)-1]
			continue
		}
		if idx := strings.IndexAny(line, "=:"); idx > 0 {
			name := strings.TrimSpace(line[:idx])
			options[section] = append(options[section], name)
		}
	}
	return options
}

func (c *Config) get(section, option string) (string, bool) {
	val, err := c.cfg.Get(section, option)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(val), true
}

// EventMappings returns the [EVDEV] remap entries in file order.
func (c *Config) EventMappings() []Mapping {
	var mappings []Mapping
	for _, name := range c.options[evdevSection] {
		val, ok := c.get(evdevSection, name)
		if !ok {
			continue
		}
		mappings = append(mappings, Mapping{KernelEmits: name, MceExpects: val})
	}
	return mappings
}

// SlideProviders returns the [SW_KEYPAD_SLIDE] table: keyboard device
// name to the name of the device carrying its slide switch.
func (c *Config) SlideProviders() map[string]string {
	providers := make(map[string]string)
	for _, name := range c.options[slideSection] {
		if val, ok := c.get(slideSection, name); ok {
			providers[name] = val
		}
	}
	return providers
}

// CameraPopoutUnlock returns the [TKLock] CameraPopoutUnlock option.
func (c *Config) CameraPopoutUnlock() bool {
	val, err := c.cfg.Getbool(tklockSection, "CameraPopoutUnlock")
	if err != nil {
		return false
	}
	return val
}

// DenylistPatterns returns the [EVDEV_DENYLIST] glob patterns.
func (c *Config) DenylistPatterns() []string {
	var patterns []string
	for _, name := range c.options[denylistSection] {
		if val, ok := c.get(denylistSection, name); ok {
			patterns = append(patterns, val)
		}
	}
	return patterns
}

// DeviceDenied reports whether the given device name matches a
// denylist pattern. Invalid patterns are logged and skipped.
func (c *Config) DeviceDenied(name string) bool {
	for _, pattern := range c.DenylistPatterns() {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			logger.Noticef("cannot match denylist pattern %q: %v", pattern, err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
