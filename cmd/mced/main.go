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

// mced is the mode control input daemon: it watches the evdev
// devices, drives the touchscreen/keypad lock policy and serves the
// classic mce D-Bus interface.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	sdnotify "github.com/coreos/go-systemd/daemon"
	"github.com/godbus/dbus/v5"
	flags "github.com/jessevdk/go-flags"
	"gopkg.in/retry.v1"

	"github.com/sailfishos/mced/daemon"
	"github.com/sailfishos/mced/datapipe"
	"github.com/sailfishos/mced/dirs"
	"github.com/sailfishos/mced/grab"
	"github.com/sailfishos/mced/hwprofile"
	"github.com/sailfishos/mced/input"
	"github.com/sailfishos/mced/logger"
	"github.com/sailfishos/mced/mainloop"
	"github.com/sailfishos/mced/mceconf"
	"github.com/sailfishos/mced/settings"
	"github.com/sailfishos/mced/sysbus"
	"github.com/sailfishos/mced/tklock"
)

type options struct {
	RootDir          string `long:"root" description:"Operate relative to this root directory (testing)"`
	HeartbeatSeconds int    `long:"heartbeat" default:"12" description:"Heartbeat period in seconds"`
	NoDiagnostics    bool   `long:"no-diagnostics" description:"Do not serve the diagnostics socket"`
	NoSensors        bool   `long:"no-evdev-sensors" description:"Leave ALS/proximity evdev nodes alone"`
}

var connectSystemBus = func() (*dbus.Conn, error) {
	return dbus.ConnectSystemBus()
}

// connectBus retries for a while: at early boot mced may beat the
// message bus to the punch.
func connectBus() (*dbus.Conn, error) {
	strategy := retry.LimitCount(10, retry.Exponential{
		Initial:  500 * time.Millisecond,
		Factor:   2,
		MaxDelay: 10 * time.Second,
	})
	var lastErr error
	for a := retry.Start(strategy, nil); a.Next(); {
		conn, err := connectSystemBus()
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.Noticef("cannot connect to system bus (retrying): %v", err)
	}
	return nil, lastErr
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil
		}
		return err
	}
	if err := logger.SimpleSetup(); err != nil {
		return fmt.Errorf("cannot set up logging: %v", err)
	}
	if opts.RootDir != "" {
		dirs.SetRootDir(opts.RootDir)
	}

	cfg, err := mceconf.LoadDefault()
	if err != nil {
		return err
	}
	prof, err := hwprofile.Load(dirs.HwProfilePath)
	if err != nil {
		return err
	}
	store, err := settings.Open(dirs.SettingsDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	loop := mainloop.New(clock.New())
	bus := datapipe.NewBus()

	conn, err := connectBus()
	if err != nil {
		return fmt.Errorf("cannot connect to system bus: %v", err)
	}
	defer conn.Close()

	srv := sysbus.New(conn, loop, bus)
	registry := input.NewRegistry(loop, bus, cfg, store, input.ClassifyOptions{
		EvdevALS:       !opts.NoSensors,
		EvdevProximity: !opts.NoSensors,
	})
	grab.NewTsGrab(loop, bus, prof, func(g bool) {
		registry.GrabRole(input.RoleTouch, g)
	})
	grab.NewKpGrab(loop, bus, func(g bool) {
		registry.GrabRole(input.RoleVolumeKey, g)
	})
	tk := tklock.New(loop, bus, store, cfg, prof, srv)
	srv.SetLocker(tk)

	if err := srv.Start(); err != nil {
		return err
	}
	if err := registry.Start(); err != nil {
		return err
	}
	defer registry.Stop()

	loop.TimeoutAdd(time.Duration(opts.HeartbeatSeconds)*time.Second, func() bool {
		bus.Heartbeat.Execute(loop.Now())
		return true
	})

	if !opts.NoDiagnostics {
		diag := daemon.New(daemon.StateSources{
			Devices: func() []daemon.DeviceSummary {
				var summaries []daemon.DeviceSummary
				loop.SubmitWait(func() {
					for _, dev := range registry.Devices() {
						summaries = append(summaries, daemon.DeviceSummary{
							Path: dev.Path(),
							Name: dev.Name(),
							Role: dev.Role().String(),
						})
					}
				})
				return summaries
			},
			Tklock: func() daemon.TklockState {
				var state daemon.TklockState
				loop.SubmitWait(func() {
					state = daemon.TklockState{
						Locked:  tk.Locked(),
						Shown:   tk.Shown().String(),
						Submode: uint32(bus.Submode.Value()),
						Display: bus.DisplayState.Value().String(),
					}
				})
				return state
			},
			Grabs: func() daemon.GrabState {
				var state daemon.GrabState
				loop.SubmitWait(func() {
					state = daemon.GrabState{
						TsWanted: bus.TsGrabWanted.Value(),
						TsActive: bus.TsGrabActive.Value(),
						KpWanted: bus.KpGrabWanted.Value(),
						KpActive: bus.KpGrabActive.Value(),
					}
				})
				return state
			},
		})
		if err := diag.Start(); err != nil {
			return err
		}
		defer diag.Stop()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Noticef("received %v, shutting down", sig)
		loop.Stop()
	}()

	if _, err := sdnotify.SdNotify(false, sdnotify.SdNotifyReady); err != nil {
		logger.Debugf("cannot notify systemd: %v", err)
	}
	logger.Noticef("mced started")
	return loop.Run()
}
