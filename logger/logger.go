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

// Package logger is the logging facility of mced. By default messages
// go to stderr; when the daemon is started by systemd the journal
// backend is used instead so that priorities survive.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/coreos/go-systemd/journal"
)

// A Logger is the minimal interface mced needs.
type Logger interface {
	// Notice is for messages that the user should see.
	Notice(msg string)
	// Debug is for messages that the user should be able to find if
	// they're debugging something.
	Debug(msg string)
}

const (
	// DefaultFlags are passed to the default console log.Logger.
	DefaultFlags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile
)

type nullLogger struct{}

func (nullLogger) Notice(string) {}
func (nullLogger) Debug(string)  {}

// NullLogger is a logger that does nothing.
var NullLogger = nullLogger{}

var (
	logger Logger = NullLogger
	lock   sync.Mutex
)

// Panicf notifies the user and then panics.
func Panicf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	lock.Lock()
	logger.Notice("PANIC " + msg)
	lock.Unlock()
	panic(msg)
}

// Noticef notifies the user of something.
func Noticef(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	lock.Lock()
	defer lock.Unlock()
	logger.Notice(msg)
}

// Debugf records something in the debug log.
func Debugf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	lock.Lock()
	defer lock.Unlock()
	logger.Debug(msg)
}

// MockLogger replaces the existing logger with a buffer and returns
// the buffer and a restore function.
func MockLogger() (buf *bytes.Buffer, restore func()) {
	buf = &bytes.Buffer{}
	oldLogger := logger
	l, err := New(buf, DefaultFlags)
	if err != nil {
		panic(err)
	}
	SetLogger(l)
	return buf, func() {
		SetLogger(oldLogger)
	}
}

// GetLogger returns the current logger.
func GetLogger() Logger {
	lock.Lock()
	defer lock.Unlock()
	return logger
}

// SetLogger sets the global logger to the given one.
func SetLogger(l Logger) {
	lock.Lock()
	defer lock.Unlock()
	logger = l
}

type defaultLogger struct {
	log *log.Logger

	debug bool
}

// Debug only prints if MCED_DEBUG is set.
func (l *defaultLogger) Debug(msg string) {
	if l.debug || osutilGetenvBool("MCED_DEBUG") {
		l.log.Output(3, "DEBUG: "+msg)
	}
}

// Notice alerts the user about something.
func (l *defaultLogger) Notice(msg string) {
	l.log.Output(3, msg)
}

func osutilGetenvBool(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// New creates a log.Logger using the given writer and flags.
func New(w io.Writer, flag int) (Logger, error) {
	logger := &defaultLogger{
		log:   log.New(w, "", flag),
		debug: osutilGetenvBool("MCED_DEBUG"),
	}
	return logger, nil
}

type journalLogger struct {
	debug bool
}

func (l *journalLogger) Notice(msg string) {
	journal.Send(msg, journal.PriNotice, nil)
}

func (l *journalLogger) Debug(msg string) {
	if l.debug {
		journal.Send(msg, journal.PriDebug, nil)
	}
}

// SimpleSetup creates the default logger. When the journal socket is
// available and stderr is not going anywhere useful (i.e. the daemon
// was started by systemd) the journal backend is picked.
func SimpleSetup() error {
	flags := log.Lshortfile
	if term := os.Getenv("TERM"); term != "" {
		// we're probably not running under systemd
		flags = DefaultFlags
	} else if journal.Enabled() {
		SetLogger(&journalLogger{debug: osutilGetenvBool("MCED_DEBUG")})
		return nil
	}
	l, err := New(os.Stderr, flags)
	if err == nil {
		SetLogger(l)
	}
	return err
}
