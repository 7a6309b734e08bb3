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

package input_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	. "gopkg.in/check.v1"

	"github.com/sailfishos/mced/datapipe"
	"github.com/sailfishos/mced/dirs"
	"github.com/sailfishos/mced/evdev"
	"github.com/sailfishos/mced/input"
	"github.com/sailfishos/mced/mainloop"
	"github.com/sailfishos/mced/mceconf"
	"github.com/sailfishos/mced/settings"
	"github.com/sailfishos/mced/testutil"
)

type registrySuite struct {
	testutil.BaseTest

	clk   *clock.Mock
	loop  *mainloop.Loop
	bus   *datapipe.Bus
	store *settings.Store

	// per fake fd fixtures
	names    map[int]string
	infos    map[int]*evdev.Info
	switches map[int]*evdev.Bits
	writers  map[string]*os.File
	readers  map[string]*os.File
}

var _ = Suite(&registrySuite{})

func (s *registrySuite) SetUpTest(c *C) {
	s.BaseTest.SetUpTest(c)
	dirs.SetRootDir(c.MkDir())
	s.AddCleanup(func() { dirs.SetRootDir("/") })
	s.clk = clock.NewMock()
	s.loop = mainloop.New(s.clk)
	go s.loop.Run()
	s.AddCleanup(func() { s.loop.Stop() })

	s.bus = datapipe.NewBus()
	store, err := settings.Open(filepath.Join(c.MkDir(), "settings.db"))
	c.Assert(err, IsNil)
	s.store = store
	s.AddCleanup(func() { s.store.Close() })

	s.names = make(map[int]string)
	s.infos = make(map[int]*evdev.Info)
	s.switches = make(map[int]*evdev.Bits)
	s.writers = make(map[string]*os.File)
	s.readers = make(map[string]*os.File)

	s.AddCleanup(input.MockSysOpen(func(path string) (int, error) {
		r, w, err := os.Pipe()
		if err != nil {
			return -1, err
		}
		// keep both ends referenced for the duration of the test
		s.writers[path] = w
		s.readers[path] = r
		fd := int(r.Fd())
		// the fixtures registered under the path move to the fd
		s.names[fd] = s.names[-s.pathID(path)]
		s.infos[fd] = s.infos[-s.pathID(path)]
		s.switches[fd] = s.switches[-s.pathID(path)]
		return fd, nil
	}))
	s.AddCleanup(input.MockDeviceName(func(fd int) (string, error) {
		return s.names[fd], nil
	}))
	s.AddCleanup(input.MockProbeInfo(func(fd int) (*evdev.Info, error) {
		return s.infos[fd], nil
	}))
	s.AddCleanup(input.MockSwitchStates(func(fd int) (*evdev.Bits, error) {
		if b := s.switches[fd]; b != nil {
			return b, nil
		}
		return evdev.NewBits(evdev.EV_SW), nil
	}))
}

// pathID gives each device path a small stable number used to stash
// fixtures before the fake open assigns the real fd.
func (s *registrySuite) pathID(path string) int {
	n := 0
	for i := 0; i < len(path); i++ {
		n = n*31 + int(path[i])
	}
	if n < 0 {
		n = -n
	}
	return n%100000 + 1
}

func (s *registrySuite) defineDevice(path, name string, info *evdev.Info) {
	id := -s.pathID(path)
	s.names[id] = name
	s.infos[id] = info
}

func (s *registrySuite) defineSwitchState(path string, bits *evdev.Bits) {
	s.switches[-s.pathID(path)] = bits
}

func (s *registrySuite) newRegistry(c *C, conf string) *input.Registry {
	path := filepath.Join(c.MkDir(), "mce.ini")
	c.Assert(os.WriteFile(path, []byte(conf), 0644), IsNil)
	cfg, err := mceconf.Load(path)
	c.Assert(err, IsNil)
	return input.NewRegistry(s.loop, s.bus, cfg, s.store, input.ClassifyOptions{EvdevALS: true, EvdevProximity: true})
}

func touchInfo() *evdev.Info {
	info := evdev.NewInfo()
	info.SetBit(evdev.EV_SYN, evdev.SYN_REPORT)
	info.SetBit(evdev.EV_KEY, evdev.BTN_TOUCH)
	info.SetBit(evdev.EV_ABS, evdev.ABS_X)
	info.SetBit(evdev.EV_ABS, evdev.ABS_Y)
	info.SetBit(evdev.EV_ABS, evdev.ABS_PRESSURE)
	info.SetBit(evdev.EV_ABS, evdev.ABS_MT_POSITION_X)
	info.SetBit(evdev.EV_ABS, evdev.ABS_MT_POSITION_Y)
	info.SetBit(evdev.EV_ABS, evdev.ABS_MT_PRESSURE)
	info.SetBit(evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID)
	return info
}

func volumeInfo() *evdev.Info {
	info := evdev.NewInfo()
	info.SetBit(evdev.EV_SYN, evdev.SYN_REPORT)
	info.SetBit(evdev.EV_KEY, evdev.KEY_VOLUMEUP)
	info.SetBit(evdev.EV_KEY, evdev.KEY_VOLUMEDOWN)
	return info
}

func switchInfo(codes ...uint16) *evdev.Info {
	info := evdev.NewInfo()
	info.SetBit(evdev.EV_SYN, evdev.SYN_REPORT)
	info.SetBit(evdev.EV_KEY, evdev.KEY_CAMERA)
	for _, code := range codes {
		info.SetBit(evdev.EV_SW, code)
	}
	return info
}

func keyboardInfo(withSlide bool) *evdev.Info {
	info := evdev.NewInfo()
	info.SetBit(evdev.EV_SYN, evdev.SYN_REPORT)
	info.SetBit(evdev.EV_KEY, evdev.KEY_Q)
	info.SetBit(evdev.EV_KEY, evdev.KEY_P)
	if withSlide {
		info.SetBit(evdev.EV_SW, evdev.SW_KEYPAD_SLIDE)
	}
	return info
}

func (s *registrySuite) TestAddDeviceAssignsRole(c *C) {
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event0", "touchpanel", touchInfo())
	r.AddDevice("/dev/input/event0")
	dev := r.DeviceAt("/dev/input/event0")
	c.Assert(dev, NotNil)
	c.Check(dev.Role(), Equals, input.RoleTouch)
	c.Check(dev.Name(), Equals, "touchpanel")
}

func (s *registrySuite) TestDenylistedDeviceSkipped(c *C) {
	r := s.newRegistry(c, "[EVDEV_DENYLIST]\np1=*accelerometer*\n")
	s.defineDevice("/dev/input/event0", "lis3 accelerometer", touchInfo())
	r.AddDevice("/dev/input/event0")
	c.Check(r.DeviceAt("/dev/input/event0"), IsNil)
}

func (s *registrySuite) TestRejectedDeviceNotKept(c *C) {
	info := evdev.NewInfo()
	info.SetBit(evdev.EV_ABS, evdev.ABS_X)
	info.SetBit(evdev.EV_ABS, evdev.ABS_Y)
	info.SetBit(evdev.EV_ABS, evdev.ABS_Z)
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event0", "accel", info)
	r.AddDevice("/dev/input/event0")
	c.Check(r.DeviceAt("/dev/input/event0"), IsNil)
}

func (s *registrySuite) TestSensorHandoff(c *C) {
	info := evdev.NewInfo()
	info.SetBit(evdev.EV_ABS, evdev.ABS_MISC)
	r := s.newRegistry(c, "")
	var handedRole input.Role
	var handedName string
	r.SensorHandoff = func(path, name string, role input.Role, fd int) {
		handedName = name
		handedRole = role
		os.NewFile(uintptr(fd), path).Close()
	}
	s.defineDevice("/dev/input/event5", "als", info)
	r.AddDevice("/dev/input/event5")
	c.Check(r.DeviceAt("/dev/input/event5"), IsNil)
	c.Check(handedName, Equals, "als")
	c.Check(handedRole, Equals, input.RoleAmbientLightSensor)
}

func (s *registrySuite) TestMonitorDeliversAndMaps(c *C) {
	r := s.newRegistry(c, "[EVDEV]\nKEY_CAMERA=KEY_CAMERA_FOCUS\n")
	s.defineDevice("/dev/input/event1", "gpio-keys", switchInfo(evdev.SW_LID))
	r.AddDevice("/dev/input/event1")

	var keys []evdev.Event
	s.loop.SubmitWait(func() {
		s.bus.KeypressEvent.AddOutput(func(ev evdev.Event) { keys = append(keys, ev) })
	})

	w := s.writers["/dev/input/event1"]
	buf := make([]byte, evdev.EventSize)
	ev := evdev.Event{Sec: 1, Type: evdev.EV_KEY, Code: evdev.KEY_CAMERA, Value: 1}
	evdev.EncodeEvent(&ev, buf)
	_, err := w.Write(buf)
	c.Assert(err, IsNil)

	waitUntil(c, func() bool {
		var n int
		s.loop.SubmitWait(func() { n = len(keys) })
		return n == 1
	})
	// the mapper rewrote the code before delivery
	c.Check(keys[0].Code, Equals, uint16(evdev.KEY_CAMERA_FOCUS))
}

func (s *registrySuite) TestShortStreamRemovesDevice(c *C) {
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event1", "gpio-keys", switchInfo(evdev.SW_LID))
	r.AddDevice("/dev/input/event1")
	c.Assert(r.DeviceAt("/dev/input/event1"), NotNil)

	// a partial record then EOF is a protocol error
	w := s.writers["/dev/input/event1"]
	_, err := w.Write(make([]byte, 10))
	c.Assert(err, IsNil)
	w.Close()

	waitUntil(c, func() bool {
		var gone bool
		s.loop.SubmitWait(func() { gone = r.DeviceAt("/dev/input/event1") == nil })
		return gone
	})
}

func waitUntil(c *C, cond func() bool) {
	for i := 0; i < 1000; i++ {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	c.Fatal("condition not reached")
}

func (s *registrySuite) TestInitialSwitchStateAbsentWithRemap(c *C) {
	// configuration maps SW_LID away to SW_FRONT_PROXIMITY; the
	// device has neither switch, so nothing may be published
	r := s.newRegistry(c, "[EVDEV]\nSW_LID=SW_FRONT_PROXIMITY\n")
	s.defineDevice("/dev/input/event1", "gpio-keys", switchInfo(evdev.SW_CAMERA_LENS_COVER))

	var proximityPublishes, lidPublishes int
	s.bus.ProximitySensor.AddOutput(func(datapipe.CoverState) { proximityPublishes++ })
	s.bus.LidCover.AddOutput(func(datapipe.CoverState) { lidPublishes++ })

	r.AddDevice("/dev/input/event1")
	r.ProbeInitialState()

	c.Check(proximityPublishes, Equals, 0)
	c.Check(lidPublishes, Equals, 0)
	c.Check(s.bus.ProximitySensor.Value(), Equals, datapipe.CoverUndef)
	c.Check(s.bus.LidCover.Value(), Equals, datapipe.CoverUndef)
}

func (s *registrySuite) TestInitialSwitchStateRemapFollowsKernelCode(c *C) {
	// SW_LID is remapped to SW_FRONT_PROXIMITY: a device carrying
	// SW_LID provides the proximity state under the kernel code
	r := s.newRegistry(c, "[EVDEV]\nSW_LID=SW_FRONT_PROXIMITY\n")
	s.defineDevice("/dev/input/event1", "gpio-keys", switchInfo(evdev.SW_LID))
	closed := evdev.NewBits(evdev.EV_SW)
	closed.Set(evdev.SW_LID)
	s.defineSwitchState("/dev/input/event1", closed)

	r.AddDevice("/dev/input/event1")
	r.ProbeInitialState()

	c.Check(s.bus.ProximitySensor.Value(), Equals, datapipe.CoverClosed)
	// the lid pipe stays untouched: its probe reads the SW_MAX
	// sentinel which no device carries
	c.Check(s.bus.LidCover.Value(), Equals, datapipe.CoverUndef)
}

func (s *registrySuite) TestInitialSwitchStateOpenAndClosed(c *C) {
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event1", "gpio-keys", switchInfo(evdev.SW_LID, evdev.SW_HEADPHONE_INSERT))
	closed := evdev.NewBits(evdev.EV_SW)
	closed.Set(evdev.SW_HEADPHONE_INSERT)
	s.defineSwitchState("/dev/input/event1", closed)

	r.AddDevice("/dev/input/event1")
	r.ProbeInitialState()

	c.Check(s.bus.LidCover.Value(), Equals, datapipe.CoverOpen)
	c.Check(s.bus.JackSense.Value(), Equals, datapipe.CoverClosed)
}

func (s *registrySuite) TestKeyboardAvailabilityOwnSlide(c *C) {
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event2", "kbd", keyboardInfo(true))
	closed := evdev.NewBits(evdev.EV_SW)
	closed.Set(evdev.SW_KEYPAD_SLIDE)
	s.defineSwitchState("/dev/input/event2", closed)

	r.AddDevice("/dev/input/event2")
	r.ProbeInitialState()
	// the initial probe read the slide as closed
	c.Check(r.KeyboardAvailable(), Equals, false)
	c.Check(s.bus.KeyboardAvailable.Value(), Equals, false)

	dev := r.DeviceAt("/dev/input/event2")
	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_SW, Code: evdev.SW_KEYPAD_SLIDE, Value: 0})
	c.Check(s.bus.KeyboardAvailable.Value(), Equals, true)

	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_SW, Code: evdev.SW_KEYPAD_SLIDE, Value: 1})
	c.Check(s.bus.KeyboardAvailable.Value(), Equals, false)
}

func (s *registrySuite) TestKeyboardAvailabilityExternalProvider(c *C) {
	r := s.newRegistry(c, "[SW_KEYPAD_SLIDE]\nkbd=gpio-keys\n")
	s.defineDevice("/dev/input/event1", "gpio-keys", switchInfo(evdev.SW_KEYPAD_SLIDE))
	closed := evdev.NewBits(evdev.EV_SW)
	closed.Set(evdev.SW_KEYPAD_SLIDE)
	s.defineSwitchState("/dev/input/event1", closed)
	s.defineDevice("/dev/input/event2", "kbd", keyboardInfo(false))

	r.AddDevice("/dev/input/event1")
	r.AddDevice("/dev/input/event2")
	r.ProbeInitialState()

	// the provider's slide is closed, so the keyboard is unavailable
	c.Check(s.bus.KeyboardAvailable.Value(), Equals, false)

	// opening the slide on the provider flips availability without
	// any change to the keyboard itself
	provider := r.DeviceAt("/dev/input/event1")
	r.HandleEvent(provider, evdev.Event{Type: evdev.EV_SW, Code: evdev.SW_KEYPAD_SLIDE, Value: 0})
	c.Check(s.bus.KeyboardAvailable.Value(), Equals, true)
}

func (s *registrySuite) TestNoKeyboardMeansUnavailable(c *C) {
	r := s.newRegistry(c, "")
	r.ProbeInitialState()
	c.Check(r.KeyboardAvailable(), Equals, false)
}

func (s *registrySuite) TestVolumeKeyGrabFilter(c *C) {
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event3", "volume-keys", volumeInfo())
	r.AddDevice("/dev/input/event3")
	dev := r.DeviceAt("/dev/input/event3")

	var raw, cooked []evdev.Event
	s.bus.KeypadRawEvent.AddOutput(func(ev evdev.Event) { raw = append(raw, ev) })
	s.bus.KeypressEvent.AddOutput(func(ev evdev.Event) { cooked = append(cooked, ev) })

	press := evdev.Event{Type: evdev.EV_KEY, Code: evdev.KEY_VOLUMEUP, Value: 1}
	r.HandleEvent(dev, press)
	c.Check(raw, HasLen, 1)
	c.Check(cooked, HasLen, 1)

	// with the keypad grab active the keys only reach the state
	// machine tap
	s.bus.KpGrabActive.Publish(true)
	r.HandleEvent(dev, press)
	c.Check(raw, HasLen, 2)
	c.Check(cooked, HasLen, 1)
}

func (s *registrySuite) TestTouchPowerKeyBecomesGesture(c *C) {
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event0", "touchpanel", touchInfo())
	r.AddDevice("/dev/input/event0")
	dev := r.DeviceAt("/dev/input/event0")

	var cooked []evdev.Event
	s.bus.TouchscreenEvent.AddOutput(func(ev evdev.Event) { cooked = append(cooked, ev) })

	// presses are swallowed, the release becomes the gesture
	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_KEY, Code: evdev.KEY_POWER, Value: 1})
	c.Check(cooked, HasLen, 0)
	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_KEY, Code: evdev.KEY_POWER, Value: 0})
	c.Assert(cooked, HasLen, 1)
	c.Check(cooked[0].Type, Equals, uint16(evdev.EV_MSC))
	c.Check(cooked[0].Code, Equals, uint16(evdev.MSC_GESTURE))
	c.Check(cooked[0].Value, Equals, int32(0x4))
}

func (s *registrySuite) TestDoubletapKeyDeviceForwardsPowerKey(c *C) {
	info := evdev.NewInfo()
	info.SetBit(evdev.EV_SYN, evdev.SYN_REPORT)
	info.SetBit(evdev.EV_KEY, evdev.KEY_POWER)
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event4", "mxt-gesture", info)
	r.AddDevice("/dev/input/event4")
	dev := r.DeviceAt("/dev/input/event4")
	c.Assert(dev.Role(), Equals, input.RoleDoubletap)

	var cooked []evdev.Event
	s.bus.TouchscreenEvent.AddOutput(func(ev evdev.Event) { cooked = append(cooked, ev) })

	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_KEY, Code: evdev.KEY_POWER, Value: 0})
	c.Assert(cooked, HasLen, 1)
	c.Check(cooked[0].Code, Equals, uint16(evdev.MSC_GESTURE))
}

func (s *registrySuite) TestDoubletapEmulationWhileGrabbedAndOff(c *C) {
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event0", "touchpanel", touchInfo())
	r.AddDevice("/dev/input/event0")
	dev := r.DeviceAt("/dev/input/event0")

	s.bus.DisplayState.Publish(datapipe.DisplayOff)
	s.bus.TsGrabActive.Publish(true)

	var cooked []evdev.Event
	s.bus.TouchscreenEvent.AddOutput(func(ev evdev.Event) { cooked = append(cooked, ev) })

	tap := func(pressMs, releaseMs int64, x, y int32) {
		for _, ev := range []evdev.Event{
			at(pressMs, evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 7),
			at(pressMs, evdev.EV_ABS, evdev.ABS_MT_POSITION_X, x),
			at(pressMs, evdev.EV_ABS, evdev.ABS_MT_POSITION_Y, y),
			at(pressMs, evdev.EV_ABS, evdev.ABS_MT_PRESSURE, 35),
			at(pressMs, evdev.EV_SYN, evdev.SYN_MT_REPORT, 0),
			at(pressMs, evdev.EV_SYN, evdev.SYN_REPORT, 0),
			at(releaseMs, evdev.EV_SYN, evdev.SYN_MT_REPORT, 0),
			at(releaseMs, evdev.EV_SYN, evdev.SYN_REPORT, 0),
		} {
			r.HandleEvent(dev, ev)
		}
	}
	tap(0, 80, 100, 100)
	c.Check(cooked, HasLen, 0)
	tap(200, 260, 103, 103)
	c.Assert(cooked, HasLen, 1)
	c.Check(cooked[0].Type, Equals, uint16(evdev.EV_MSC))
	c.Check(cooked[0].Code, Equals, uint16(evdev.MSC_GESTURE))
	c.Check(cooked[0].Value, Equals, int32(0x4))
}

func (s *registrySuite) TestDoubletapNotEmulatedWhileDisplayOn(c *C) {
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event0", "touchpanel", touchInfo())
	r.AddDevice("/dev/input/event0")
	dev := r.DeviceAt("/dev/input/event0")

	s.bus.DisplayState.Publish(datapipe.DisplayOn)
	s.bus.TsGrabActive.Publish(true)

	var cooked []evdev.Event
	s.bus.TouchscreenEvent.AddOutput(func(ev evdev.Event) { cooked = append(cooked, ev) })

	for _, ms := range []int64{0, 80, 200, 260} {
		r.HandleEvent(dev, at(ms, evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 7))
		r.HandleEvent(dev, at(ms, evdev.EV_SYN, evdev.SYN_REPORT, 0))
	}
	for _, ev := range cooked {
		c.Check(ev.Code, Not(Equals), uint16(evdev.MSC_GESTURE))
	}
}

func (s *registrySuite) TestEventEaterSwallowsTouch(c *C) {
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event0", "touchpanel", touchInfo())
	r.AddDevice("/dev/input/event0")
	dev := r.DeviceAt("/dev/input/event0")

	var raw, cooked int
	s.bus.TouchscreenRawEvent.AddOutput(func(evdev.Event) { raw++ })
	s.bus.TouchscreenEvent.AddOutput(func(evdev.Event) { cooked++ })

	s.bus.Submode.Publish(datapipe.SubmodeEventEater)
	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_KEY, Code: evdev.BTN_TOUCH, Value: 1})
	c.Check(raw, Equals, 1)
	c.Check(cooked, Equals, 0)

	s.bus.Submode.Publish(0)
	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_KEY, Code: evdev.BTN_TOUCH, Value: 1})
	c.Check(cooked, Equals, 1)
}

func (s *registrySuite) TestActivityRateLimited(c *C) {
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event6", "extra-buttons", switchInfo())
	r.AddDevice("/dev/input/event6")
	dev := r.DeviceAt("/dev/input/event6")

	var pings int
	s.bus.UserActivity.AddOutput(func(time.Time) { pings++ })

	press := evdev.Event{Type: evdev.EV_KEY, Code: evdev.KEY_POWER, Value: 1}
	r.HandleEvent(dev, press)
	r.HandleEvent(dev, press)
	r.HandleEvent(dev, press)
	c.Check(pings, Equals, 1)

	s.clk.Add(time.Second)
	r.HandleEvent(dev, press)
	c.Check(pings, Equals, 2)
}

func (s *registrySuite) TestClosingSlideGeneratesNoActivity(c *C) {
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event1", "gpio-keys", switchInfo(evdev.SW_KEYPAD_SLIDE, evdev.SW_LID))
	r.AddDevice("/dev/input/event1")
	dev := r.DeviceAt("/dev/input/event1")

	var pings int
	s.bus.UserActivity.AddOutput(func(time.Time) { pings++ })

	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_SW, Code: evdev.SW_KEYPAD_SLIDE, Value: 1})
	c.Check(pings, Equals, 0)
	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_SW, Code: evdev.SW_KEYPAD_SLIDE, Value: 0})
	c.Check(pings, Equals, 1)

	// the lid is not subject to the suppression
	s.clk.Add(time.Second)
	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_SW, Code: evdev.SW_LID, Value: 1})
	c.Check(pings, Equals, 2)
}

func (s *registrySuite) TestGrabRole(c *C) {
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event0", "touchpanel", touchInfo())
	s.defineDevice("/dev/input/event3", "volume-keys", volumeInfo())
	r.AddDevice("/dev/input/event0")
	r.AddDevice("/dev/input/event3")

	type grabCall struct {
		fd   int
		grab bool
	}
	var calls []grabCall
	restore := input.MockGrabDevice(func(fd int, grab bool) error {
		calls = append(calls, grabCall{fd, grab})
		return nil
	})
	defer restore()

	r.GrabRole(input.RoleTouch, true)
	c.Assert(calls, HasLen, 1)
	c.Check(calls[0].grab, Equals, true)

	r.GrabRole(input.RoleVolumeKey, false)
	c.Assert(calls, HasLen, 2)
	c.Check(calls[1].grab, Equals, false)
}

func (s *registrySuite) TestSwitchEventsPublishCovers(c *C) {
	r := s.newRegistry(c, "")
	s.defineDevice("/dev/input/event1", "gpio-keys",
		switchInfo(evdev.SW_LID, evdev.SW_CAMERA_LENS_COVER, evdev.SW_FRONT_PROXIMITY, evdev.SW_HEADPHONE_INSERT))
	r.AddDevice("/dev/input/event1")
	dev := r.DeviceAt("/dev/input/event1")

	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_SW, Code: evdev.SW_LID, Value: 1})
	c.Check(s.bus.LidCover.Value(), Equals, datapipe.CoverClosed)
	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_SW, Code: evdev.SW_LID, Value: 0})
	c.Check(s.bus.LidCover.Value(), Equals, datapipe.CoverOpen)

	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_SW, Code: evdev.SW_CAMERA_LENS_COVER, Value: 1})
	c.Check(s.bus.LensCover.Value(), Equals, datapipe.CoverClosed)

	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_SW, Code: evdev.SW_FRONT_PROXIMITY, Value: 1})
	c.Check(s.bus.ProximitySensor.Value(), Equals, datapipe.CoverClosed)

	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_SW, Code: evdev.SW_HEADPHONE_INSERT, Value: 1})
	c.Check(s.bus.JackSense.Value(), Equals, datapipe.CoverClosed)
	r.HandleEvent(dev, evdev.Event{Type: evdev.EV_SW, Code: evdev.SW_HEADPHONE_INSERT, Value: 0})
	c.Check(s.bus.JackSense.Value(), Equals, datapipe.CoverOpen)
}

func (s *registrySuite) TestStartEnumeratesAndWatches(c *C) {
	dirs.SetRootDir(c.MkDir())
	s.AddCleanup(func() { dirs.SetRootDir("/") })
	c.Assert(os.MkdirAll(dirs.DevInputDir, 0755), IsNil)

	path0 := filepath.Join(dirs.DevInputDir, "event0")
	c.Assert(os.WriteFile(path0, nil, 0644), IsNil)
	s.defineDevice(path0, "touchpanel", touchInfo())

	r := s.newRegistry(c, "")
	c.Assert(r.Start(), IsNil)
	defer r.Stop()
	c.Check(r.DeviceAt(path0), NotNil)

	// hotplug: a created node is probed and added
	path1 := filepath.Join(dirs.DevInputDir, "event1")
	s.defineDevice(path1, "volume-keys", volumeInfo())
	c.Assert(os.WriteFile(path1, nil, 0644), IsNil)
	waitUntil(c, func() bool {
		var ok bool
		s.loop.SubmitWait(func() { ok = r.DeviceAt(path1) != nil })
		return ok
	})

	// unplug: the node disappears and so does the device
	c.Assert(os.Remove(path1), IsNil)
	waitUntil(c, func() bool {
		var gone bool
		s.loop.SubmitWait(func() { gone = r.DeviceAt(path1) == nil })
		return gone
	})
}
