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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/juju/ratelimit"
	"golang.org/x/sys/unix"
	"gopkg.in/tomb.v2"

	"github.com/sailfishos/mced/datapipe"
	"github.com/sailfishos/mced/dirs"
	"github.com/sailfishos/mced/evdev"
	"github.com/sailfishos/mced/logger"
	"github.com/sailfishos/mced/mainloop"
	"github.com/sailfishos/mced/mceconf"
	"github.com/sailfishos/mced/settings"
)

// hooks for the test suites
var (
	sysOpen = func(path string) (int, error) {
		return unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	}
	deviceName = evdev.DeviceName
	probeInfo  = func(fd int) (*evdev.Info, error) {
		info := evdev.NewInfo()
		if err := info.Probe(fd); err != nil {
			return nil, err
		}
		return info, nil
	}
	switchStates = evdev.SwitchStates
	grabDevice   = evdev.Grab
)

type activityLimiter interface {
	TakeAvailable(count int64) int64
}

// Device is one monitored input node.
type Device struct {
	path string
	name string
	info *evdev.Info
	role Role

	fd   int
	file *os.File
	tmb  *tomb.Tomb

	// current switch states, from the initial probe and kept up to
	// date from the event stream
	switchState map[uint16]bool

	// name of the device whose keypad slide carries this keyboard's
	// slide state
	slideProvider string

	doubletap *DoubletapEmulator
}

// Path returns the device node path.
func (dev *Device) Path() string { return dev.path }

// Name returns the kernel device name.
func (dev *Device) Name() string { return dev.name }

// Role returns the assigned role.
func (dev *Device) Role() Role { return dev.role }

// Registry owns the lifecycle of every monitored device: startup
// enumeration of /dev/input, the directory watch, capability probing,
// classification and teardown.
type Registry struct {
	loop   *mainloop.Loop
	bus    *datapipe.Bus
	cfg    *mceconf.Config
	store  *settings.Store
	mapper *EventMapper
	opts   ClassifyOptions

	// SensorHandoff, when set, receives the nodes classified as
	// sensors; otherwise they are closed.
	SensorHandoff func(path, name string, role Role, fd int)

	devices map[string]*Device
	watcher *fsnotify.Watcher
	tmb     tomb.Tomb

	rawActivity    activityLimiter
	cookedActivity activityLimiter
}

// NewRegistry wires a registry; Start actually opens devices.
func NewRegistry(loop *mainloop.Loop, bus *datapipe.Bus, cfg *mceconf.Config, store *settings.Store, opts ClassifyOptions) *Registry {
	clk := loop.Clock()
	return &Registry{
		loop:    loop,
		bus:     bus,
		cfg:     cfg,
		store:   store,
		mapper:  NewEventMapper(cfg),
		opts:    opts,
		devices: make(map[string]*Device),

		rawActivity:    ratelimit.NewBucketWithRateAndClock(1, 1, clk),
		cookedActivity: ratelimit.NewBucketWithRateAndClock(1, 1, clk),
	}
}

// Mapper returns the event mapper of the registry.
func (r *Registry) Mapper() *EventMapper {
	return r.mapper
}

// Start enumerates the existing device nodes, probes the initial
// switch states and begins watching the directory for hotplug.
func (r *Registry) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot watch %s: %v", dirs.DevInputDir, err)
	}
	if err := watcher.Add(dirs.DevInputDir); err != nil {
		watcher.Close()
		return fmt.Errorf("cannot watch %s: %v", dirs.DevInputDir, err)
	}
	r.watcher = watcher

	entries, err := filepath.Glob(filepath.Join(dirs.DevInputDir, "event*"))
	if err != nil {
		return err
	}
	sort.Strings(entries)
	for _, path := range entries {
		r.addDevice(path)
	}
	r.probeInitialState()

	r.tmb.Go(r.watchLoop)
	return nil
}

// Stop tears down the watcher and every device.
func (r *Registry) Stop() {
	if r.watcher != nil {
		r.tmb.Kill(nil)
		r.watcher.Close()
		r.tmb.Wait()
	}
	for path := range r.devices {
		r.removeDevice(path)
	}
}

func (r *Registry) watchLoop() error {
	for {
		select {
		case <-r.tmb.Dying():
			return nil
		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(event.Name), "event") {
				break
			}
			path := event.Name
			switch {
			case event.Has(fsnotify.Create):
				r.loop.Submit(func() {
					r.addDevice(path)
					r.probeInitialState()
				})
			case event.Has(fsnotify.Remove):
				r.loop.Submit(func() { r.removeDevice(path) })
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Noticef("device watch error: %v", err)
		}
	}
}

// addDevice runs on the main loop (or during Start, before the loop
// sees the registry).
func (r *Registry) addDevice(path string) {
	if _, ok := r.devices[path]; ok {
		return
	}
	fd, err := sysOpen(path)
	if err != nil {
		logger.Noticef("cannot open %s: %v", path, err)
		return
	}
	name, err := deviceName(fd)
	if err != nil {
		logger.Noticef("cannot identify %s: %v", path, err)
		unix.Close(fd)
		return
	}
	if r.cfg.DeviceDenied(name) {
		logger.Debugf("%s (%q) is denylisted", path, name)
		unix.Close(fd)
		return
	}
	info, err := probeInfo(fd)
	if err != nil {
		// probe failures degrade to reject
		logger.Noticef("cannot probe %s (%q): %v", path, name, err)
		unix.Close(fd)
		return
	}
	role := Classify(info, r.opts)
	logger.Debugf("%s (%q) classified as %s", path, name, role)

	switch role {
	case RoleReject:
		unix.Close(fd)
		return
	case RoleAmbientLightSensor, RoleProximitySensor:
		// sensor nodes leave the input pipeline entirely
		if r.SensorHandoff != nil {
			r.SensorHandoff(path, name, role, fd)
		} else {
			unix.Close(fd)
		}
		return
	}

	dev := &Device{
		path:          path,
		name:          name,
		info:          info,
		role:          role,
		fd:            fd,
		file:          os.NewFile(uintptr(fd), path),
		switchState:   make(map[uint16]bool),
		slideProvider: r.cfg.SlideProviders()[name],
	}
	if role == RoleTouch {
		dev.doubletap = &DoubletapEmulator{}
	}
	r.devices[path] = dev

	if role != RoleIgnore {
		dev.tmb = new(tomb.Tomb)
		dev.tmb.Go(func() error { return r.monitorLoop(dev) })
	}
}

func (r *Registry) removeDevice(path string) {
	dev, ok := r.devices[path]
	if !ok {
		return
	}
	delete(r.devices, path)
	if dev.tmb != nil {
		// no Wait here: the reader may be blocked handing an event
		// to the very loop this runs on; closing the file unblocks
		// it and it exits on its own
		dev.tmb.Kill(nil)
	}
	dev.file.Close()
	r.publishKeyboardAvailable()
	r.publishJackSense()
}

// GrabRole issues EVIOCGRAB on every device of the given role; the
// grab state machines are the only callers.
func (r *Registry) GrabRole(role Role, grab bool) {
	for _, dev := range r.sortedDevices() {
		if dev.role != role {
			continue
		}
		if err := grabDevice(dev.fd, grab); err != nil {
			logger.Noticef("cannot change grab on %s: %v", dev.path, err)
		}
	}
}

func (r *Registry) sortedDevices() []*Device {
	paths := make([]string, 0, len(r.devices))
	for path := range r.devices {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	devs := make([]*Device, 0, len(paths))
	for _, path := range paths {
		devs = append(devs, r.devices[path])
	}
	return devs
}

// Devices returns a stable snapshot for diagnostics.
func (r *Registry) Devices() []*Device {
	return r.sortedDevices()
}

// policy switches evaluated during the initial probe
var probedSwitches = []uint16{
	evdev.SW_CAMERA_LENS_COVER,
	evdev.SW_KEYPAD_SLIDE,
	evdev.SW_FRONT_PROXIMITY,
	evdev.SW_LID,
	evdev.SW_HEADPHONE_INSERT,
	evdev.SW_MICROPHONE_INSERT,
	evdev.SW_LINEOUT_INSERT,
	evdev.SW_VIDEOOUT_INSERT,
}

// probeInitialState derives the startup cover states from the switch
// bitmaps of the registered devices and publishes them. A switch that
// an event mapping redirects is probed under its kernel emitted code.
func (r *Registry) probeInitialState() {
	type found struct {
		present bool
		closed  bool
	}
	state := make(map[uint16]found, len(probedSwitches))

	for _, dev := range r.sortedDevices() {
		// keyboards are probed too so that availability starts from
		// the real slide position
		if dev.role != RoleInput && dev.role != RoleVolumeKey && dev.role != RoleKeyboard {
			continue
		}
		current, err := switchStates(dev.fd)
		if err != nil {
			logger.Noticef("cannot probe switches of %s: %v", dev.path, err)
			continue
		}
		for _, expected := range probedSwitches {
			emitted := r.mapper.ReverseLookupSwitch(expected)
			if !dev.info.HasCode(evdev.EV_SW, emitted) {
				continue
			}
			closed := current.Test(int(emitted))
			dev.switchState[expected] = closed
			f := state[expected]
			f.present = true
			f.closed = f.closed || closed
			state[expected] = f
		}
	}

	publish := func(pipe *datapipe.Pipe[datapipe.CoverState], sw uint16) {
		f := state[sw]
		if !f.present {
			return
		}
		if f.closed {
			pipe.Publish(datapipe.CoverClosed)
		} else {
			pipe.Publish(datapipe.CoverOpen)
		}
	}
	publish(r.bus.LensCover, evdev.SW_CAMERA_LENS_COVER)
	publish(r.bus.KeyboardSlide, evdev.SW_KEYPAD_SLIDE)
	publish(r.bus.ProximitySensor, evdev.SW_FRONT_PROXIMITY)
	publish(r.bus.LidCover, evdev.SW_LID)

	// audio jack state is the OR over the present insert switches
	jackPresent := false
	for _, sw := range []uint16{evdev.SW_HEADPHONE_INSERT, evdev.SW_MICROPHONE_INSERT,
		evdev.SW_LINEOUT_INSERT, evdev.SW_VIDEOOUT_INSERT} {
		if state[sw].present {
			jackPresent = true
		}
	}
	if jackPresent {
		r.publishJackSense()
	}

	r.publishKeyboardAvailable()
}

// jackClosed computes the OR of all insert switches across devices.
func (r *Registry) jackClosed() bool {
	for _, dev := range r.devices {
		for _, sw := range []uint16{evdev.SW_HEADPHONE_INSERT, evdev.SW_MICROPHONE_INSERT,
			evdev.SW_LINEOUT_INSERT, evdev.SW_VIDEOOUT_INSERT} {
			if dev.switchState[sw] {
				return true
			}
		}
	}
	return false
}

func (r *Registry) publishJackSense() {
	if r.jackClosed() {
		r.bus.JackSense.Publish(datapipe.CoverClosed)
	} else {
		r.bus.JackSense.Publish(datapipe.CoverOpen)
	}
}

// keyboardAvailable reports whether at least one keyboard is usable:
// a keyboard with no slide switch anywhere is always usable, one with
// a slide (its own or a configured provider's) only while the slide
// is open.
func (r *Registry) keyboardAvailable() bool {
	for _, dev := range r.devices {
		if dev.role != RoleKeyboard {
			continue
		}
		if provider := r.deviceByName(dev.slideProvider); provider != nil {
			if provider.info.HasCode(evdev.EV_SW, evdev.SW_KEYPAD_SLIDE) {
				if !provider.switchState[evdev.SW_KEYPAD_SLIDE] {
					return true
				}
				continue
			}
		}
		if dev.info.HasCode(evdev.EV_SW, evdev.SW_KEYPAD_SLIDE) {
			if !dev.switchState[evdev.SW_KEYPAD_SLIDE] {
				return true
			}
			continue
		}
		return true
	}
	return false
}

func (r *Registry) deviceByName(name string) *Device {
	if name == "" {
		return nil
	}
	for _, dev := range r.devices {
		if dev.name == name {
			return dev
		}
	}
	return nil
}

func (r *Registry) publishKeyboardAvailable() {
	r.bus.KeyboardAvailable.Publish(r.keyboardAvailable())
}
