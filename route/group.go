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
	"slices"
	"sync"

	"rivaas.dev/depot/priority"
)

// Mapping pairs a request such as "GET /:id" with its handler.
type Mapping struct {
	Request string
	Handler Definition
}

// Routes is an ordered route table.
type Routes []Mapping

// GroupConfig carries the optional settings of a group.
type GroupConfig struct {
	Priority   priority.Level
	Controller bool // The context is a bound controller
	Middleware []HandlerFunc
}

// Group mounts a nested list under a shared endpoint and shares its context
// with every nested route.
//
// Group embeds the Hooks of its list, so routes and entries can be registered
// directly on it:
//
//	g := route.NewGroup("/admin", nil, route.GroupConfig{}, nil)
//	g.Route("GET /stats", "", route.HandlerFunc(stats), nil, nil)
type Group struct {
	Hooks

	mu           sync.RWMutex
	endpoint     string
	context      any
	list         *List
	isController bool
	priority     priority.Level
	order        int
	ordered      bool
	middleware   []HandlerFunc
}

// NewGroup creates a group. A nil list gets a fresh one.
func NewGroup(endpoint string, context any, cfg GroupConfig, list *List) *Group {
	if list == nil {
		list = NewList()
	}
	g := &Group{
		endpoint:     endpoint,
		context:      context,
		list:         list,
		isController: cfg.Controller,
		priority:     cfg.Priority.OrDefault(),
		middleware:   slices.Clone(cfg.Middleware),
	}
	list.Integrate(&g.Hooks)
	return g
}

// Configure adds one route per mapping, mounted at the group's endpoint and
// bound to its context. It stops at the first failure.
func (g *Group) Configure(routes Routes) error {
	for _, m := range routes {
		if _, err := g.Add(m.Request, m.Handler); err != nil {
			return err
		}
	}
	return nil
}

// Add declares a route mounted at the group's endpoint.
func (g *Group) Add(request string, def Definition) (*Route, error) {
	return g.list.Route(request, "", def, g.Context(), Config{
		Root:           g.endpoint,
		FromController: g.isController,
	})
}

// SetWrappers pushes wrappers onto every currently nested route, recursing
// into nested groups. Routes added later are not affected.
func (g *Group) SetWrappers(wrappers ...Wrapper) {
	for _, e := range g.list.Entries() {
		switch v := e.(type) {
		case *Route:
			v.AddWrappers(wrappers...)
		case *Group:
			v.SetWrappers(wrappers...)
		}
	}
}

// Context returns the shared context.
func (g *Group) Context() any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.context
}

// SetContext replaces the context of the group and every nested entry.
// Nil is ignored.
func (g *Group) SetContext(ctx any) {
	if ctx == nil {
		return
	}
	g.mu.Lock()
	g.context = ctx
	g.mu.Unlock()

	for _, e := range g.list.Entries() {
		switch v := e.(type) {
		case *Route:
			v.SetContext(ctx)
		case *Group:
			v.SetContext(ctx)
		}
	}
}

// Use appends group middleware. Couplers apply it before nested routes.
func (g *Group) Use(middleware ...HandlerFunc) *Group {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range middleware {
		if m != nil {
			g.middleware = append(g.middleware, m)
		}
	}
	return g
}

// Middleware returns the group middleware.
func (g *Group) Middleware() []HandlerFunc {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.middleware)
}

// List returns the nested list.
func (g *Group) List() *List {
	return g.list
}

// All returns the nested entries in priority order.
func (g *Group) All() []Entry {
	return g.list.All()
}

// Endpoint returns the mount prefix.
func (g *Group) Endpoint() string {
	return g.endpoint
}

// IsController reports whether the context is a bound controller.
func (g *Group) IsController() bool {
	return g.isController
}

// Priority returns the sort level.
func (g *Group) Priority() priority.Level {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.priority
}

// SetPriority changes the sort level. Zero resets it to Default.
func (g *Group) SetPriority(l priority.Level) {
	g.mu.Lock()
	g.priority = l.OrDefault()
	g.mu.Unlock()
}

// Order returns the insertion number assigned by a list.
func (g *Group) Order() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.order
}

// SetOrder assigns the insertion number. Only the first call has an effect.
func (g *Group) SetOrder(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ordered {
		return
	}
	g.order = n
	g.ordered = true
}
