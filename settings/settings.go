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

// Package settings is the live settings store of the lock policy.
// Values persist in a bolt database; every key has a default and an
// allowed range, and out of range writes are clamped. Change
// callbacks run synchronously on the writer's goroutine, which in the
// daemon is always the main loop.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/sailfishos/mced/logger"
)

// Setting keys. All live under /system/osso/dsm/locks in the
// compatibility D-Bus tree; here they are flat names.
const (
	AutolockEnabled       = "touchscreen_keypad_autolock_enabled"
	TklockBlankDisable    = "tklock_blank_disable"
	LpmTriggering         = "lpm_triggering"
	ProximityBlocksTouch  = "proximity_blocks_touch"
	AutolockDelay         = "autolock_delay"
	AutolockWithOpenSlide = "autolock_with_open_slide"
	VolumeKeyInputPolicy  = "volume_key_input_policy"
	DoubletapGesture      = "doubletap_gesture_policy"
	FakeDoubletapEnabled  = "fake_doubletap_enabled"
	BlankImmediately      = "blank_immediately"
	DimImmediately        = "dim_immediately"
	DimDelay              = "dim_delay"

	ExceptionLengthCallIn     = "exception_length_call_in"
	ExceptionLengthCallOut    = "exception_length_call_out"
	ExceptionLengthAlarm      = "exception_length_alarm"
	ExceptionLengthUsbConnect = "exception_length_usb_connect"
	ExceptionLengthUsbDialog  = "exception_length_usb_dialog"
	ExceptionLengthCharger    = "exception_length_charger"
	ExceptionLengthJackIn     = "exception_length_jack_in"
	ExceptionLengthJackOut    = "exception_length_jack_out"
	ExceptionLengthCamera     = "exception_length_camera"
	ExceptionLengthVolume     = "exception_length_volume"
	ExceptionLengthActivity   = "exception_length_activity"

	LidSensorEnabled = "lid_sensor_enabled"
	FilterLidWithAls = "filter_lid_with_als"
	FilterLidAlsLimit = "filter_lid_als_limit"
	LidOpenActions   = "lid_open_actions"
	LidCloseActions  = "lid_close_actions"

	KeyboardOpenTrigger  = "keyboard_open_trigger"
	KeyboardOpenActions  = "keyboard_open_actions"
	KeyboardCloseTrigger = "keyboard_close_trigger"
	KeyboardCloseActions = "keyboard_close_actions"

	ProximityDelayDefault = "proximity_delay_default"
	ProximityDelayIncall  = "proximity_delay_incall"
)

// Cover/slide action values shared by the lid and keyboard policies.
const (
	OpenActionNone    = 0
	OpenActionUnblank = 1
	OpenActionUnlock  = 2

	CloseActionNone  = 0
	CloseActionBlank = 1
	CloseActionLock  = 2
)

// Doubletap gesture policy values.
const (
	DoubletapDisabled     = 0
	DoubletapShowUnlock   = 1
	DoubletapUnlockDelay  = 2
)

// Lpm triggering bitmask.
const (
	LpmFromPocket = 1
	LpmHoverOver  = 2
)

type spec struct {
	def      int
	min, max int
}

func boolSpec(def bool) spec {
	d := 0
	if def {
		d = 1
	}
	return spec{def: d, min: 0, max: 1}
}

func intSpec(def, min, max int) spec {
	return spec{def: def, min: min, max: max}
}

var specs = map[string]spec{
	AutolockEnabled:       boolSpec(true),
	TklockBlankDisable:    intSpec(0, 0, 1),
	LpmTriggering:         intSpec(LpmFromPocket, 0, LpmFromPocket|LpmHoverOver),
	ProximityBlocksTouch:  boolSpec(false),
	AutolockDelay:         intSpec(30000, 0, 600000),
	AutolockWithOpenSlide: boolSpec(false),
	VolumeKeyInputPolicy:  intSpec(0, 0, 1),
	DoubletapGesture:      intSpec(DoubletapShowUnlock, DoubletapDisabled, DoubletapUnlockDelay),
	FakeDoubletapEnabled:  boolSpec(false),
	BlankImmediately:      boolSpec(false),
	DimImmediately:        boolSpec(false),
	DimDelay:              intSpec(5000, 0, 60000),

	ExceptionLengthCallIn:     intSpec(5000, 0, 60000),
	ExceptionLengthCallOut:    intSpec(2500, 0, 60000),
	ExceptionLengthAlarm:      intSpec(1250, 0, 60000),
	ExceptionLengthUsbConnect: intSpec(5000, 0, 60000),
	ExceptionLengthUsbDialog:  intSpec(10000, 0, 60000),
	ExceptionLengthCharger:    intSpec(3000, 0, 60000),
	ExceptionLengthJackIn:     intSpec(3000, 0, 60000),
	ExceptionLengthJackOut:    intSpec(3000, 0, 60000),
	ExceptionLengthCamera:     intSpec(3000, 0, 60000),
	ExceptionLengthVolume:     intSpec(2000, 0, 60000),
	ExceptionLengthActivity:   intSpec(2000, 0, 60000),

	LidSensorEnabled:  boolSpec(true),
	FilterLidWithAls:  boolSpec(false),
	FilterLidAlsLimit: intSpec(0, 0, 100000),
	LidOpenActions:    intSpec(OpenActionUnblank, OpenActionNone, OpenActionUnlock),
	LidCloseActions:   intSpec(CloseActionLock, CloseActionNone, CloseActionLock),

	KeyboardOpenTrigger:  intSpec(1, 0, 1),
	KeyboardOpenActions:  intSpec(OpenActionUnblank, OpenActionNone, OpenActionUnlock),
	KeyboardCloseTrigger: intSpec(1, 0, 1),
	KeyboardCloseActions: intSpec(CloseActionNone, CloseActionNone, CloseActionLock),

	ProximityDelayDefault: intSpec(100, 0, 10000),
	ProximityDelayIncall:  intSpec(500, 0, 10000),
}

const bucketName = "settings"

// Store is the live settings store.
type Store struct {
	db *bolt.DB

	mu            sync.Mutex
	values        map[string]int
	subscribers   map[string][]func(key string)
	clampedLogged map[string]bool
}

// Open opens (creating as needed) the settings database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("cannot create settings directory: %v", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("cannot open settings database: %v", err)
	}
	s := &Store{
		db:            db,
		values:        make(map[string]int, len(specs)),
		subscribers:   make(map[string][]func(string)),
		clampedLogged: make(map[string]bool),
	}
	for key, sp := range specs {
		s.values[key] = sp.def
	}
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			key := string(k)
			sp, ok := specs[key]
			if !ok {
				// stale key from an older version
				return nil
			}
			val, err := strconv.Atoi(string(v))
			if err != nil {
				return nil
			}
			s.values[key] = s.clamp(key, sp, val)
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot load settings: %v", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) clamp(key string, sp spec, val int) int {
	clamped := val
	if clamped < sp.min {
		clamped = sp.min
	}
	if clamped > sp.max {
		clamped = sp.max
	}
	if clamped != val && !s.clampedLogged[key] {
		s.clampedLogged[key] = true
		logger.Noticef("setting %s=%d out of range, clamped to %d", key, val, clamped)
	}
	return clamped
}

// Int returns the value of an integer setting; unknown keys panic,
// they are programmer errors.
func (s *Store) Int(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.values[key]
	if !ok {
		logger.Panicf("internal error: unknown setting %q", key)
	}
	return val
}

// Bool returns the value of a boolean setting.
func (s *Store) Bool(key string) bool {
	return s.Int(key) != 0
}

// Duration returns a millisecond valued setting as a duration.
func (s *Store) Duration(key string) time.Duration {
	return time.Duration(s.Int(key)) * time.Millisecond
}

// SetInt updates a setting, clamping to the allowed range, persists
// it and notifies the key's subscribers.
func (s *Store) SetInt(key string, val int) error {
	s.mu.Lock()
	sp, ok := specs[key]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("cannot set unknown setting %q", key)
	}
	val = s.clamp(key, sp, val)
	changed := s.values[key] != val
	s.values[key] = val
	subs := append([]func(string){}, s.subscribers[key]...)
	s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), []byte(strconv.Itoa(val)))
	})
	if err != nil {
		return fmt.Errorf("cannot store setting %s: %v", key, err)
	}
	if changed {
		for _, f := range subs {
			f(key)
		}
	}
	return nil
}

// SetBool updates a boolean setting.
func (s *Store) SetBool(key string, val bool) error {
	v := 0
	if val {
		v = 1
	}
	return s.SetInt(key, v)
}

// Subscribe registers a callback run after the value of key changes.
func (s *Store) Subscribe(key string, f func(key string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[key] = append(s.subscribers[key], f)
}
