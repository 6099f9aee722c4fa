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

package route

import (
	"cmp"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"rivaas.dev/depot/fault"
	"rivaas.dev/depot/pipeline"
	"rivaas.dev/depot/priority"
)

// Entry is anything a List can hold and order: a Route or a Group.
type Entry interface {
	Endpoint() string
	Priority() priority.Level
	SetPriority(priority.Level)
	Order() int
	SetOrder(int)
}

// Filter inspects an entry before it joins a list. It may modify and return
// it, swap it for another entry, or return nil to veto it.
type Filter func(Entry) Entry

// Hooks holds the registration functions a List installs on foreign types
// through Integrate.
type Hooks struct {
	Route    func(request, method string, def Definition, context any, cfg any) (*Route, error)
	AddRoute func(Entry) Entry
}

// List is an ordered registry of entries. It is safe for concurrent use:
// writes are serialized and reads return snapshots.
type List struct {
	mu       sync.RWMutex
	entries  []Entry
	skipped  int
	filters  *pipeline.Pipeline[Filter]
	wrappers []Wrapper
	logger   *slog.Logger
}

// ListOption configures a List.
type ListOption func(*List)

// WithFilters makes the list run the given filter pipeline. Lists sharing a
// pipeline see each other's filters.
func WithFilters(p *pipeline.Pipeline[Filter]) ListOption {
	return func(l *List) {
		if p != nil {
			l.filters = p
		}
	}
}

// WithDefaultWrappers sets wrappers injected into every route the list builds.
func WithDefaultWrappers(wrappers ...Wrapper) ListOption {
	return func(l *List) {
		l.wrappers = append(l.wrappers, wrappers...)
	}
}

// WithLogger sets the logger used for registration records.
func WithLogger(logger *slog.Logger) ListOption {
	return func(l *List) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewList creates an empty list.
func NewList(opts ...ListOption) *List {
	l := &List{
		filters: pipeline.New[Filter](),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Route builds a route with the list's default wrappers ahead of any in cfg
// and adds it. The returned route is nil when a filter vetoed it.
func (l *List) Route(request, method string, def Definition, context any, cfg any) (*Route, error) {
	c, err := ToConfig(cfg)
	if err != nil {
		return nil, fault.Configuration("route "+request, "config", err)
	}
	c.Wrappers = append(slices.Clone(l.DefaultWrappers()), c.Wrappers...)

	r, err := New(request, method, def, context, c)
	if err != nil {
		return nil, err
	}

	added, _ := l.Add(r).(*Route)
	return added, nil
}

// Add runs e through the filters and appends the result. It returns nil when
// a filter vetoed the entry.
func (l *List) Add(e Entry) Entry {
	if isNil(e) {
		return nil
	}

	for _, f := range l.filters.Collect() {
		e = f(e)
		if isNil(e) {
			l.mu.Lock()
			l.skipped++
			l.mu.Unlock()
			l.logger.Debug("entry vetoed by filter")
			return nil
		}
	}

	l.mu.Lock()
	e.SetOrder(len(l.entries))
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	l.logger.Debug("entry added", "endpoint", e.Endpoint(), "priority", e.Priority(), "order", e.Order())
	return e
}

// AddFilter appends a filter at the default level. It reports false for nil
// or an already registered function.
func (l *List) AddFilter(f Filter) bool {
	return l.filters.Add(f, priority.Default)
}

// Filters returns the filter pipeline.
func (l *List) Filters() *pipeline.Pipeline[Filter] {
	return l.filters
}

// DefaultWrappers returns the wrappers injected into built routes.
func (l *List) DefaultWrappers() []Wrapper {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.wrappers)
}

// All returns the entries sorted by priority, then insertion order.
func (l *List) All() []Entry {
	out := l.Entries()
	slices.SortStableFunc(out, func(a, b Entry) int {
		if c := cmp.Compare(a.Priority().OrDefault(), b.Priority().OrDefault()); c != 0 {
			return c
		}
		return cmp.Compare(a.Order(), b.Order())
	})
	return out
}

// Entries returns the entries in insertion order.
func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

// Len returns the number of entries.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Skipped returns how many entries filters vetoed.
func (l *List) Skipped() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.skipped
}

// Integrate installs the list's Route and AddRoute on h where they are unset.
func (l *List) Integrate(h *Hooks) {
	if h.Route == nil {
		h.Route = l.Route
	}
	if h.AddRoute == nil {
		h.AddRoute = l.Add
	}
}

func isNil(e Entry) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
