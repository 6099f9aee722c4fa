// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pipeline provides an ordered, priority-tagged sequence of functions.
//
// A Pipeline is the single stack type behind route wrappers, list filters and
// ware builders. Stages are collected sorted by priority and, within the same
// priority, by insertion order. The same function value is never added twice.
//
//	p := pipeline.New[func(int) int]()
//	p.Add(double, priority.High)
//	p.Add(increment, priority.Default)
//	out := pipeline.Fold(p, 3, func(fn func(int) int, v int) int { return fn(v) })
package pipeline

import (
	"cmp"
	"reflect"
	"slices"
	"sync"
	"unsafe"

	"rivaas.dev/depot/priority"
)

// Stage is one function held by a pipeline.
type Stage[T any] struct {
	Fn       T
	Priority priority.Level
	Order    int
	id       uintptr
}

// Pipeline is safe for concurrent use.
type Pipeline[T any] struct {
	mu     sync.RWMutex
	stages []Stage[T]
}

// New creates an empty pipeline.
func New[T any]() *Pipeline[T] {
	return &Pipeline[T]{}
}

// Of creates a pipeline holding fns at the default priority.
func Of[T any](fns ...T) *Pipeline[T] {
	p := New[T]()
	for _, fn := range fns {
		p.Add(fn, priority.Default)
	}
	return p
}

// Add appends fn at the given level. It reports false when fn is not a
// non-nil function or when the same function value is already present.
func (p *Pipeline[T]) Add(fn T, level priority.Level) bool {
	id, ok := identity(fn)
	if !ok {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.stages {
		if s.id == id {
			return false
		}
	}

	p.stages = append(p.stages, Stage[T]{
		Fn:       fn,
		Priority: level.OrDefault(),
		Order:    len(p.stages),
		id:       id,
	})
	return true
}

// Has reports whether fn is already part of the pipeline.
func (p *Pipeline[T]) Has(fn T) bool {
	id, ok := identity(fn)
	if !ok || p == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, s := range p.stages {
		if s.id == id {
			return true
		}
	}
	return false
}

// Len returns the number of stages.
func (p *Pipeline[T]) Len() int {
	if p == nil {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.stages)
}

// Stages returns a sorted copy of the stages.
func (p *Pipeline[T]) Stages() []Stage[T] {
	if p == nil {
		return nil
	}

	p.mu.RLock()
	out := slices.Clone(p.stages)
	p.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b Stage[T]) int {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

// Collect returns the functions in execution order.
func (p *Pipeline[T]) Collect() []T {
	stages := p.Stages()
	out := make([]T, 0, len(stages))
	for _, s := range stages {
		out = append(out, s.Fn)
	}
	return out
}

// Clone returns an independent copy.
func (p *Pipeline[T]) Clone() *Pipeline[T] {
	c := New[T]()
	if p == nil {
		return c
	}

	p.mu.RLock()
	c.stages = slices.Clone(p.stages)
	p.mu.RUnlock()
	return c
}

// Merge adds every stage of other, keeping their levels.
func (p *Pipeline[T]) Merge(other *Pipeline[T]) {
	for _, s := range other.Stages() {
		p.Add(s.Fn, s.Priority)
	}
}

// Fold threads v through every stage in execution order.
func Fold[T, V any](p *Pipeline[T], v V, apply func(fn T, v V) V) V {
	for _, fn := range p.Collect() {
		v = apply(fn, v)
	}
	return v
}

// identity returns the address of the closure behind a func value. Two copies
// of the same func value share it; distinct closures do not.
func identity[T any](fn T) (uintptr, bool) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return 0, false
	}
	return *(*uintptr)(unsafe.Pointer(&fn)), true
}
