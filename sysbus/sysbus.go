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

// Package sysbus is the D-Bus face of the lock policy: the mode
// request methods and indication signals of the classic mce
// interface, the lock UI requests towards the system UI, and the
// compositor liveness watch.
package sysbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/sailfishos/mced/datapipe"
	"github.com/sailfishos/mced/logger"
	"github.com/sailfishos/mced/mainloop"
	"github.com/sailfishos/mced/tklock"
	"github.com/sailfishos/mced/wakelock"
)

const (
	BusName = "com.nokia.mce"

	requestPath  = dbus.ObjectPath("/com/nokia/mce/request")
	requestIface = "com.nokia.mce.request"
	signalPath   = dbus.ObjectPath("/com/nokia/mce/signal")
	signalIface  = "com.nokia.mce.signal"

	systemUIName  = "com.nokia.system_ui"
	systemUIPath  = dbus.ObjectPath("/com/nokia/system_ui/request")
	systemUIIface = "com.nokia.system_ui.request"

	tklockModeSig      = "tklock_mode_ind"
	alarmFeedbackSig   = "alarm_ui_feedback_ind"
	callFeedbackSig    = "call_ui_feedback_ind"
	flipoverFeedback   = "flipover"
	tklockOpenMethod   = "tklock_open"
	tklockCloseMethod  = "tklock_close"
	ipcWakelock        = "mced_dbus_ipc"
)

// Conn is the slice of *dbus.Conn the service needs; carved out so
// the tests can run against a fake bus.
type Conn interface {
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
	ExportMethodTable(methods map[string]interface{}, path dbus.ObjectPath, iface string) error
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
}

// Locker is what the service needs from the lock state machine.
type Locker interface {
	Locked() bool
	CompositorGone()
}

// Service binds the lock policy to the system bus.
type Service struct {
	conn Conn
	loop *mainloop.Loop
	bus  *datapipe.Bus

	// set after wiring, before Start
	locker Locker

	watchInstalled bool
	signals        chan *dbus.Signal
}

// New creates the service on the given connection.
func New(conn Conn, loop *mainloop.Loop, bus *datapipe.Bus) *Service {
	return &Service{
		conn: conn,
		loop: loop,
		bus:  bus,
	}
}

// SetLocker attaches the lock state machine; must happen before
// Start.
func (s *Service) SetLocker(locker Locker) {
	s.locker = locker
}

// Start claims the bus name and exports the request methods.
func (s *Service) Start() error {
	reply, err := s.conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("cannot request bus name: %v", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("cannot become primary owner of %s", BusName)
	}
	methods := map[string]interface{}{
		"req_tklock_mode_change": s.reqTklockModeChange,
		"get_tklock_mode":        s.getTklockMode,
		"tklock_callback":        s.tklockCallback,
	}
	if err := s.conn.ExportMethodTable(methods, requestPath, requestIface); err != nil {
		return fmt.Errorf("cannot export request interface: %v", err)
	}
	return nil
}

// reqTklockModeChange serves the lock mode change requests.
func (s *Service) reqTklockModeChange(mode string) *dbus.Error {
	var req datapipe.LockRequest
	switch mode {
	case "locked":
		req = datapipe.LockRequestLock
	case "locked-dim":
		req = datapipe.LockRequestLockDim
	case "unlocked":
		req = datapipe.LockRequestUnlock
	default:
		return dbus.MakeFailedError(fmt.Errorf("invalid tklock mode %q", mode))
	}
	s.loop.Submit(func() { s.bus.TklockRequest.Execute(req) })
	return nil
}

// getTklockMode serves the lock mode queries.
func (s *Service) getTklockMode() (string, *dbus.Error) {
	mode := "unlocked"
	s.loop.SubmitWait(func() {
		if s.locker != nil && s.locker.Locked() {
			mode = "locked"
		}
	})
	return mode, nil
}

// tklockCallback is invoked by the system UI when the user acts on
// the lock screen; a one ("unlock") releases the lock.
func (s *Service) tklockCallback(result int32) *dbus.Error {
	logger.Debugf("sysbus: tklock callback %d", result)
	if result == 1 {
		s.loop.Submit(func() { s.bus.TklockRequest.Execute(datapipe.LockRequestUnlock) })
	}
	return nil
}

// TklockModeInd broadcasts a lock mode change.
func (s *Service) TklockModeInd(locked bool) {
	mode := "unlocked"
	if locked {
		mode = "locked"
	}
	if err := s.conn.Emit(signalPath, signalIface+"."+tklockModeSig, mode); err != nil {
		logger.Noticef("cannot emit %s: %v", tklockModeSig, err)
	}
}

// FlipoverFeedback broadcasts the flip-over gesture indication.
func (s *Service) FlipoverFeedback(target tklock.FeedbackTarget) {
	sig := alarmFeedbackSig
	if target == tklock.FeedbackCall {
		sig = callFeedbackSig
	}
	if err := s.conn.Emit(signalPath, signalIface+"."+sig, flipoverFeedback); err != nil {
		logger.Noticef("cannot emit %s: %v", sig, err)
	}
}

// RequestLockUI asks the system UI for a lock screen variant. The
// call is fire and forget; its completion installs the compositor
// liveness watch.
func (s *Service) RequestLockUI(variant tklock.UIVariant) {
	obj := s.conn.Object(systemUIName, systemUIPath)
	var call *dbus.Call
	done := make(chan *dbus.Call, 1)
	if variant == tklock.UIHidden {
		call = obj.Go(systemUIIface+"."+tklockCloseMethod, 0, done)
	} else {
		call = obj.Go(systemUIIface+"."+tklockOpenMethod, 0, done, variant.String())
	}
	if call.Err != nil {
		logger.Noticef("cannot request lock ui: %v", call.Err)
		return
	}
	// pending IPC must not race system suspend
	wakelock.Acquire(ipcWakelock)
	go func() {
		completed := <-done
		wakelock.Release(ipcWakelock)
		if completed.Err != nil {
			logger.Debugf("lock ui request failed: %v", completed.Err)
			return
		}
		s.loop.Submit(s.installCompositorWatch)
	}()
}

// installCompositorWatch watches the system UI name; losing it while
// locked would leave the device unusable, so the lock is forced off.
func (s *Service) installCompositorWatch() {
	if s.watchInstalled {
		return
	}
	err := s.conn.AddMatchSignal(
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, systemUIName),
	)
	if err != nil {
		logger.Noticef("cannot watch compositor name: %v", err)
		return
	}
	s.watchInstalled = true
	s.signals = make(chan *dbus.Signal, 16)
	s.conn.Signal(s.signals)
	go s.watchLoop()
}

func (s *Service) watchLoop() {
	for sig := range s.signals {
		if sig.Name != "org.freedesktop.DBus.NameOwnerChanged" || len(sig.Body) < 3 {
			continue
		}
		name, _ := sig.Body[0].(string)
		newOwner, _ := sig.Body[2].(string)
		if name != systemUIName || newOwner != "" {
			continue
		}
		s.loop.Submit(func() {
			if s.locker != nil {
				s.locker.CompositorGone()
			}
		})
	}
}
