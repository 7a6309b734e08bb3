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

// Package datapipe implements the in-process publish/subscribe
// channels that bind the input core to its collaborators. Each pipe
// carries one value of a fixed semantic type. Dispatch is synchronous
// and runs on the main loop: a publish from inside a callback
// delivers to all subscribers before control returns.
package datapipe

// A Filter may rewrite the value before it is cached and handed to
// the outputs.
type Filter[T any] func(T) T

// An Output observes the value after caching.
type Output[T any] func(T)

// Pipe carries a single value of type T.
type Pipe[T any] struct {
	name    string
	cached  T
	filters []Filter[T]
	outputs []Output[T]
}

// New returns a pipe with the given name and initial cached value.
func New[T any](name string, initial T) *Pipe[T] {
	return &Pipe[T]{name: name, cached: initial}
}

// Name returns the pipe name, used in logs.
func (p *Pipe[T]) Name() string {
	return p.name
}

// Value returns the cached value.
func (p *Pipe[T]) Value() T {
	return p.cached
}

// AddFilter appends a filter callback; filters run in registration
// order and each sees the previous one's result.
func (p *Pipe[T]) AddFilter(f Filter[T]) {
	p.filters = append(p.filters, f)
}

// AddOutput appends an output callback; outputs run after the value
// is cached, in registration order.
func (p *Pipe[T]) AddOutput(f Output[T]) {
	p.outputs = append(p.outputs, f)
}

// Publish runs the filters, caches the result and runs the outputs.
func (p *Pipe[T]) Publish(v T) {
	p.publish(v, true, true)
}

// Execute runs the filters and the outputs without caching the
// value; used for pipes that carry events rather than state.
func (p *Pipe[T]) Execute(v T) {
	p.publish(v, true, false)
}

// PublishUnfiltered caches and dispatches the value without running
// the input filters.
func (p *Pipe[T]) PublishUnfiltered(v T) {
	p.publish(v, false, true)
}

func (p *Pipe[T]) publish(v T, runFilters, cache bool) {
	if runFilters {
		for _, f := range p.filters {
			v = f(v)
		}
	}
	if cache {
		p.cached = v
	}
	for _, f := range p.outputs {
		f(v)
	}
}
