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

package ware

import (
	"rivaas.dev/depot/namer"
	"rivaas.dev/depot/priority"
	"rivaas.dev/depot/route"
)

// Spec is the raw shape of a ware's handlers before assembly. It is one of
// Single, Sequence, Named, Factory or Prioritized.
type Spec interface {
	spec()
}

// Single is one handler function with the name it is known by.
type Single struct {
	Name string
	Fn   route.HandlerFunc
}

// Sequence is an ordered list of specs.
type Sequence []Spec

// Named maps names to specs. Members are assembled in key order.
type Named map[string]Spec

// Factory builds a spec from call-time arguments, e.g. the "meow" of
// "can:meow".
type Factory func(args ...string) Spec

// Prioritized is a spec declaring the priority of its ware.
type Prioritized struct {
	Level priority.Level
	Spec  Spec
}

func (Single) spec()      {}
func (Sequence) spec()    {}
func (Named) spec()       {}
func (Factory) spec()     {}
func (Prioritized) spec() {}

// Func wraps a handler function, naming it after the function.
func Func(fn route.HandlerFunc) Single {
	return Single{Name: namer.FuncName(fn), Fn: fn}
}

// Funcs wraps several handler functions into a Sequence.
func Funcs(fns ...route.HandlerFunc) Sequence {
	seq := make(Sequence, len(fns))
	for i, fn := range fns {
		seq[i] = Func(fn)
	}
	return seq
}

// specName returns the provenance name a spec contributes to its ware.
func specName(s Spec) string {
	switch v := s.(type) {
	case Single:
		return v.Name
	case Factory:
		return namer.FuncName(v)
	case Prioritized:
		return specName(v.Spec)
	}
	return ""
}
