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

// Package ware normalizes middleware into flat, ordered handler sequences.
//
// A Ware is a named middleware unit holding one or more Specs. Assembling a
// ware runs every spec through its builder pipeline; the default builder
// expands sequences, named maps and factories until only Single handlers
// remain. A Warehouse registers wares by name and composes them into groups
// and welds.
//
//	house := ware.NewWarehouse()
//	house.Add("session", ware.Func(session), priority.High)
//	house.Add("can", ware.Factory(func(args ...string) ware.Spec { return ware.Func(can(args)) }), nil)
//	wares, err := house.Weld("admin", "session", "can:admin")
//	handlers, err := house.Assemble(wares)
package ware

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	"rivaas.dev/depot/fault"
	"rivaas.dev/depot/namer"
	"rivaas.dev/depot/pipeline"
	"rivaas.dev/depot/priority"
	"rivaas.dev/depot/route"
)

// ErrNotCallable is returned when a built handler is not a function.
var ErrNotCallable = errors.New("useless built handler, needs a function")

// Config carries the optional settings of a ware.
type Config struct {
	Name     string         `mapstructure:"name" validate:"required,min=3,lowerfirst"`
	Priority priority.Level `mapstructure:"priority"`
	Group    string         `mapstructure:"group"`
	Args     []string       `mapstructure:"args"`
}

// ToConfig normalizes a loosely typed ware configuration the way routes do:
// numbers are priorities, strings are priority names and maps are decoded.
func ToConfig(v any) (Config, error) {
	switch c := v.(type) {
	case nil:
		return Config{}, nil
	case Config:
		return c, nil
	case *Config:
		if c == nil {
			return Config{}, nil
		}
		return *c, nil
	case string:
		return Config{Priority: priority.Parse(c)}, nil
	case map[string]any:
		var cfg Config
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       priority.DecodeHook(),
			WeaklyTypedInput: true,
			Result:           &cfg,
		})
		if err != nil {
			return Config{}, err
		}
		if err := dec.Decode(c); err != nil {
			return Config{}, fmt.Errorf("decode ware config: %w", err)
		}
		return cfg, nil
	case priority.Level, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Config{Priority: priority.Resolve(c)}, nil
	}
	return Config{}, fmt.Errorf("unsupported ware config %T", v)
}

// Builder transforms a spec during assembly.
type Builder func(s Spec, w *Ware) (Spec, error)

// Ware is a named middleware unit.
type Ware struct {
	mu       sync.RWMutex
	name     string
	handlers []Spec
	priority priority.Level
	group    string
	args     []string
	order    int
	ordered  bool
	nested   []string

	builders *pipeline.Pipeline[Builder]
	shared   *pipeline.Pipeline[Builder]
}

// Option configures a Ware.
type Option func(*Ware)

// WithBuilders makes the ware also run the builders of p. The pipeline is
// read at assembly time, so builders added to it later still apply.
func WithBuilders(p *pipeline.Pipeline[Builder]) Option {
	return func(w *Ware) {
		w.shared = p
	}
}

// New creates a ware. A top-level Sequence becomes the ware's handler list
// and a top-level Prioritized spec sets the ware's priority.
func New(s Spec, cfg any, opts ...Option) (*Ware, error) {
	c, err := ToConfig(cfg)
	if err != nil {
		return nil, fault.Configuration("ware", "config", err)
	}

	w := &Ware{
		name:     c.Name,
		priority: c.Priority.OrDefault(),
		group:    c.Group,
		args:     slices.Clone(c.Args),
		builders: pipeline.New[Builder](),
	}
	w.builders.Add(Default, priority.High)
	for _, opt := range opts {
		opt(w)
	}

	if p, ok := s.(Prioritized); ok {
		w.priority = p.Level.OrDefault()
		s = p.Spec
	}
	switch v := s.(type) {
	case nil:
	case Sequence:
		w.handlers = slices.Clone(v)
	default:
		w.handlers = []Spec{v}
	}
	return w, nil
}

// Default is the builder every ware runs first. It lifts Prioritized levels
// onto the ware, calls factories with the ware's arguments, assembles the
// members of sequences and named maps, and records contributing names.
func Default(s Spec, w *Ware) (Spec, error) {
	switch v := s.(type) {
	case Prioritized:
		w.SetPriority(v.Level)
		return w.Assemble(v.Spec)
	case Factory:
		if v == nil {
			return nil, nil
		}
		return w.Assemble(v(w.Args()...))
	case Sequence:
		out := make(Sequence, 0, len(v))
		for _, m := range v {
			built, err := w.Assemble(m)
			if err != nil {
				return nil, err
			}
			out = append(out, built)
			w.addNested(specName(m))
		}
		return out, nil
	case Named:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make(Sequence, 0, len(v))
		for _, k := range keys {
			built, err := w.Assemble(v[k])
			if err != nil {
				return nil, err
			}
			out = append(out, built)
			w.addNested(k)
		}
		return out, nil
	case Single:
		w.addNested(v.Name)
	}
	return s, nil
}

// AddBuilder adds a builder at the given level. It reports false for nil or
// an already present function.
func (w *Ware) AddBuilder(b Builder, level priority.Level) bool {
	return w.builders.Add(b, level)
}

func (w *Ware) collectBuilders() []Builder {
	p := w.builders.Clone()
	p.Merge(w.shared)
	return p.Collect()
}

// Assemble runs s through the builders, in priority order.
func (w *Ware) Assemble(s Spec) (Spec, error) {
	var err error
	for _, b := range w.collectBuilders() {
		if s, err = b(s, w); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Operators assembles every handler and flattens the results into handler
// functions. Anything that does not build to a Single with a function is a
// resolution error.
func (w *Ware) Operators() ([]route.HandlerFunc, error) {
	var out []route.HandlerFunc
	for _, h := range w.Handlers() {
		built, err := w.Assemble(h)
		if err != nil {
			return nil, err
		}
		if out, err = w.collect(built, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (w *Ware) collect(s Spec, out []route.HandlerFunc) ([]route.HandlerFunc, error) {
	switch v := s.(type) {
	case Sequence:
		var err error
		for _, m := range v {
			if out, err = w.collect(m, out); err != nil {
				return nil, err
			}
		}
		return out, nil
	case Single:
		if v.Fn != nil {
			return append(out, v.Fn), nil
		}
	}
	return nil, fault.Resolution("ware "+w.Name(), "operators", fmt.Errorf("%w, not %s", ErrNotCallable, describe(s)))
}

func describe(s Spec) string {
	if v, ok := s.(Single); ok && v.Fn == nil {
		return "ware.Single without function"
	}
	return fmt.Sprintf("%T", s)
}

// Clone returns a copy with its own handler list, arguments and provenance.
// The builder pipelines are copied too; the shared pipeline stays shared.
func (w *Ware) Clone() *Ware {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return &Ware{
		name:     w.name,
		handlers: slices.Clone(w.handlers),
		priority: w.priority,
		group:    w.group,
		args:     slices.Clone(w.args),
		order:    w.order,
		ordered:  w.ordered,
		nested:   slices.Clone(w.nested),
		builders: w.builders.Clone(),
		shared:   w.shared,
	}
}

// WithArgs returns a clone with args appended to its call-time arguments.
func (w *Ware) WithArgs(args ...string) *Ware {
	c := w.Clone()
	c.args = append(c.args, args...)
	return c
}

// Name returns the ware name.
func (w *Ware) Name() string {
	return w.name
}

// Group returns the group the ware joins on registration.
func (w *Ware) Group() string {
	return w.group
}

// Key identifies the ware together with its arguments.
func (w *Ware) Key() string {
	return Token{Name: w.name, Args: w.Args()}.String()
}

// Args returns the call-time arguments.
func (w *Ware) Args() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.args)
}

// Handlers returns the raw specs.
func (w *Ware) Handlers() []Spec {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.handlers)
}

// Nested returns the names that contributed handlers, in discovery order.
func (w *Ware) Nested() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.nested)
}

func (w *Ware) addNested(name string) {
	if namer.IsPlaceholder(name) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !slices.Contains(w.nested, name) {
		w.nested = append(w.nested, name)
	}
}

// Priority returns the sort level.
func (w *Ware) Priority() priority.Level {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.priority
}

// SetPriority changes the sort level. Zero resets it to Default.
func (w *Ware) SetPriority(l priority.Level) {
	w.mu.Lock()
	w.priority = l.OrDefault()
	w.mu.Unlock()
}

// Order returns the registration number assigned by a warehouse.
func (w *Ware) Order() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.order
}

// SetOrder assigns the registration number. Only the first call has an effect.
func (w *Ware) SetOrder(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ordered {
		return
	}
	w.order = n
	w.ordered = true
}
