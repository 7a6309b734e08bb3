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

// Package daemon serves a read-only diagnostics API over a local
// unix socket: the monitored devices, the lock policy state and the
// grab machinery.
package daemon

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/sailfishos/mced/dirs"
	"github.com/sailfishos/mced/logger"
)

// DeviceSummary is one monitored device as reported by /v1/devices.
type DeviceSummary struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// TklockState is the /v1/tklock payload.
type TklockState struct {
	Locked  bool   `json:"locked"`
	Shown   string `json:"shown"`
	Submode uint32 `json:"submode"`
	Display string `json:"display"`
}

// GrabState is the /v1/grabs payload.
type GrabState struct {
	TsWanted bool `json:"ts-wanted"`
	TsActive bool `json:"ts-active"`
	KpWanted bool `json:"kp-wanted"`
	KpActive bool `json:"kp-active"`
}

// StateSources provides the snapshots the API serves; each callback
// must be safe to call from the HTTP goroutines.
type StateSources struct {
	Devices func() []DeviceSummary
	Tklock  func() TklockState
	Grabs   func() GrabState
}

// Daemon is the diagnostics HTTP server.
type Daemon struct {
	sources  StateSources
	router   *mux.Router
	listener net.Listener
	server   *http.Server
}

// New builds the router.
func New(sources StateSources) *Daemon {
	d := &Daemon{sources: sources}
	d.router = mux.NewRouter()
	d.router.HandleFunc("/v1/devices", d.getDevices).Methods("GET")
	d.router.HandleFunc("/v1/tklock", d.getTklock).Methods("GET")
	d.router.HandleFunc("/v1/grabs", d.getGrabs).Methods("GET")
	d.router.NotFoundHandler = http.HandlerFunc(notFound)
	return d
}

// Router exposes the handler, mostly to the tests.
func (d *Daemon) Router() http.Handler {
	return d.router
}

// Start listens on the mced socket.
func (d *Daemon) Start() error {
	os.Remove(dirs.McedSocket)
	listener, err := net.Listen("unix", dirs.McedSocket)
	if err != nil {
		return fmt.Errorf("cannot listen on %s: %v", dirs.McedSocket, err)
	}
	d.listener = listener
	d.server = &http.Server{Handler: d.router}
	go func() {
		if err := d.server.Serve(listener); err != http.ErrServerClosed {
			logger.Noticef("diagnostics server: %v", err)
		}
	}()
	return nil
}

// Stop shuts the server down.
func (d *Daemon) Stop() {
	if d.server != nil {
		d.server.Close()
	}
}

type resp struct {
	Type       string      `json:"type"`
	StatusCode int         `json:"status-code"`
	Status     string      `json:"status"`
	Result     interface{} `json:"result"`
}

func writeJSON(w http.ResponseWriter, status int, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp{
		Type:       "sync",
		StatusCode: status,
		Status:     http.StatusText(status),
		Result:     result,
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
}

func (d *Daemon) getDevices(w http.ResponseWriter, r *http.Request) {
	devices := d.sources.Devices()
	if devices == nil {
		devices = []DeviceSummary{}
	}
	writeJSON(w, http.StatusOK, devices)
}

func (d *Daemon) getTklock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.sources.Tklock())
}

func (d *Daemon) getGrabs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.sources.Grabs())
}
