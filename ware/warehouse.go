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
	"cmp"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"

	"rivaas.dev/depot/fault"
	"rivaas.dev/depot/pipeline"
	"rivaas.dev/depot/priority"
	"rivaas.dev/depot/route"
)

// Module is a self-describing ware, ready for Register.
type Module struct {
	Name    string
	Handler Spec
	Config  any
}

// Warehouse registers wares by name and composes them into groups and welds.
// It is safe for concurrent use. Lookups hand out clones, so call-time
// arguments never leak into the registered wares.
type Warehouse struct {
	mu       sync.RWMutex
	wares    []*Ware
	index    map[string]int
	groups   map[string][]string
	welds    map[string][]string
	builders *pipeline.Pipeline[Builder]
	logger   *slog.Logger
}

// WarehouseOption configures a Warehouse.
type WarehouseOption func(*Warehouse)

// WithLogger sets the logger used for registration records.
func WithLogger(logger *slog.Logger) WarehouseOption {
	return func(h *Warehouse) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithBuilder adds a builder shared by every ware of the warehouse.
func WithBuilder(b Builder, level priority.Level) WarehouseOption {
	return func(h *Warehouse) {
		h.builders.Add(b, level)
	}
}

// NewWarehouse creates an empty warehouse.
func NewWarehouse(opts ...WarehouseOption) *Warehouse {
	h := &Warehouse{
		index:    make(map[string]int),
		groups:   make(map[string][]string),
		welds:    make(map[string][]string),
		builders: pipeline.New[Builder](),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddBuilder adds a builder shared by every ware, including those already
// registered.
func (h *Warehouse) AddBuilder(b Builder, level priority.Level) bool {
	return h.builders.Add(b, level)
}

// Add registers a ware. An empty name falls back to the name in cfg. Adding
// a name that already exists does nothing. When the config names a group the
// ware joins it.
func (h *Warehouse) Add(name string, s Spec, cfg any) error {
	c, err := ToConfig(cfg)
	if err != nil {
		return fault.Configuration("warehouse", "add", err)
	}
	if name != "" {
		c.Name = name
	}
	if err := checkConfig(c); err != nil {
		return fault.Configuration("warehouse", "add", err)
	}
	if h.Exists(c.Name) {
		h.logger.Debug("ware already registered", "ware", c.Name)
		return nil
	}

	w, err := New(s, c, WithBuilders(h.builders))
	if err != nil {
		return err
	}
	_, err = h.AddWare(w)
	return err
}

// Register adds a module.
func (h *Warehouse) Register(m Module) error {
	return h.Add(m.Name, m.Handler, m.Config)
}

// AddWare registers a built ware and returns the registered one, which is the
// existing ware when the name is taken.
func (h *Warehouse) AddWare(w *Ware) (*Ware, error) {
	if w == nil {
		return nil, fault.Configurationf("warehouse", "add", "nil ware")
	}
	if err := ValidateName(w.Name()); err != nil {
		return nil, fault.Configuration("warehouse", "add", err)
	}

	h.mu.Lock()
	if i, ok := h.index[w.name]; ok {
		existing := h.wares[i]
		h.mu.Unlock()
		return existing, nil
	}
	w.SetOrder(len(h.wares))
	h.index[w.name] = len(h.wares)
	h.wares = append(h.wares, w)
	h.mu.Unlock()

	h.logger.Debug("ware registered", "ware", w.name, "priority", w.Priority())

	if g := w.Group(); g != "" {
		if err := h.Join(g, w.name); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Exists reports whether a ware is registered under name.
func (h *Warehouse) Exists(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.index[name]
	return ok
}

// Join appends member to group. Members are ware names, group names or
// tokens with arguments. Joining twice does nothing.
func (h *Warehouse) Join(group, member string) error {
	if group == "" {
		return fault.Configurationf("warehouse", "join", "cannot join an unnamed group")
	}
	if member == "" {
		return fault.Configurationf("warehouse", "join", "cannot join an unnamed member to %q", group)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !slices.Contains(h.groups[group], member) {
		h.groups[group] = append(h.groups[group], member)
	}
	return nil
}

// Members returns the member tokens of a group.
func (h *Warehouse) Members(group string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.groups[group])
}

// Group resolves a group token such as "auth" or "auth:admin" into clones of
// its wares, sorted by priority. Arguments apply to every member. Nested
// groups are expanded once; an unknown group gives nil.
func (h *Warehouse) Group(token string, args ...string) []*Ware {
	t := ParseToken(token)
	wares := h.expand(t.Name, append(t.Args, args...), map[string]bool{})
	return prioritized(wares)
}

func (h *Warehouse) expand(group string, args []string, seen map[string]bool) []*Ware {
	if seen[group] {
		return nil
	}
	seen[group] = true

	var out []*Ware
	for _, member := range h.Members(group) {
		t := ParseToken(member)
		memberArgs := append(slices.Clone(t.Args), args...)
		if w := h.Get(t.Name, memberArgs...); w != nil {
			out = append(out, w)
			continue
		}
		out = append(out, h.expand(t.Name, memberArgs, seen)...)
	}
	return out
}

// Get returns a clone of the ware named by token with the token's arguments
// and args appended, or nil when unknown.
func (h *Warehouse) Get(token string, args ...string) *Ware {
	t := ParseToken(token)

	h.mu.RLock()
	i, ok := h.index[t.Name]
	var w *Ware
	if ok {
		w = h.wares[i]
	}
	h.mu.RUnlock()

	if w == nil {
		return nil
	}
	return w.WithArgs(append(t.Args, args...)...)
}

// Find resolves a token to a single ware or, failing that, a group.
func (h *Warehouse) Find(token string, args ...string) []*Ware {
	if w := h.Get(token, args...); w != nil {
		return []*Ware{w}
	}
	return h.Group(token, args...)
}

// Resolve finds every token and concatenates the results. Unknown tokens
// are skipped.
func (h *Warehouse) Resolve(tokens ...string) []*Ware {
	var out []*Ware
	for _, t := range tokens {
		out = append(out, h.Find(t)...)
	}
	return out
}

// Weld records a named composite of tokens and returns its resolved wares.
// The weld is also registered as a group unless one exists under that name.
func (h *Warehouse) Weld(name string, tokens ...string) ([]*Ware, error) {
	if name == "" {
		return nil, fault.Configurationf("warehouse", "weld", "weld needs a name")
	}
	if len(tokens) == 0 {
		return nil, fault.Configurationf("warehouse", "weld", "weld %q needs at least one token", name)
	}

	h.mu.Lock()
	h.welds[name] = slices.Clone(tokens)
	if _, ok := h.groups[name]; !ok {
		h.groups[name] = slices.Clone(tokens)
	}
	h.mu.Unlock()

	return h.Resolve(tokens...), nil
}

// Welded re-resolves a recorded weld. Unknown welds give nil.
func (h *Warehouse) Welded(name string) []*Ware {
	h.mu.RLock()
	tokens, ok := h.welds[name]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return h.Resolve(tokens...)
}

// Assemble sorts wares by priority, drops repeats of the same named ware and
// arguments, and flattens their operators into one handler sequence. Unnamed
// wares are only dropped when the same *Ware appears twice.
func (h *Warehouse) Assemble(wares []*Ware) ([]route.HandlerFunc, error) {
	if wares == nil {
		return nil, fault.Configurationf("warehouse", "assemble", "no wares to assemble")
	}

	seen := make(map[string]bool)
	seenUnnamed := make(map[*Ware]bool)
	var out []route.HandlerFunc
	for _, w := range prioritized(wares) {
		if w == nil {
			continue
		}
		if w.Name() == "" {
			if seenUnnamed[w] {
				continue
			}
			seenUnnamed[w] = true
		} else {
			if seen[w.Key()] {
				continue
			}
			seen[w.Key()] = true
		}

		ops, err := w.Operators()
		if err != nil {
			return nil, err
		}
		out = append(out, ops...)
	}
	return out, nil
}

// All returns clones of every ware, sorted by priority.
func (h *Warehouse) All() []*Ware {
	h.mu.RLock()
	out := make([]*Ware, len(h.wares))
	for i, w := range h.wares {
		out[i] = w.Clone()
	}
	h.mu.RUnlock()
	return prioritized(out)
}

// Len returns the number of registered wares.
func (h *Warehouse) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.wares)
}

// Prioritize changes the priority of a registered ware.
func (h *Warehouse) Prioritize(name string, level priority.Level) error {
	h.mu.RLock()
	i, ok := h.index[name]
	var w *Ware
	if ok {
		w = h.wares[i]
	}
	h.mu.RUnlock()

	if w == nil {
		return fault.Configurationf("warehouse", "prioritize", "unknown ware %q", name)
	}
	w.SetPriority(level)
	return nil
}

// ErrNoConsumer is returned by Couple without a registration function.
var ErrNoConsumer = errors.New("no consumer")

// Couple assembles wares and hands the handlers to use, typically a router's
// middleware registration.
func (h *Warehouse) Couple(wares []*Ware, use func(...route.HandlerFunc)) error {
	if wares == nil {
		return fault.Configurationf("warehouse", "couple", "no wares to couple")
	}
	if use == nil {
		return fault.Configuration("warehouse", "couple", ErrNoConsumer)
	}
	fns, err := h.Assemble(wares)
	if err != nil {
		return err
	}
	use(fns...)
	return nil
}

// prioritized returns a stable copy sorted by priority.
func prioritized(wares []*Ware) []*Ware {
	out := slices.Clone(wares)
	slices.SortStableFunc(out, func(a, b *Ware) int {
		if a == nil || b == nil {
			return 0
		}
		return cmp.Compare(a.Priority(), b.Priority())
	})
	return out
}
