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
	"strings"
	"sync"

	"rivaas.dev/depot/fault"
	"rivaas.dev/depot/namer"
	"rivaas.dev/depot/pipeline"
	"rivaas.dev/depot/priority"
)

// MethodAll is the wildcard method matching every verb.
const MethodAll = "all"

var methods = []string{"get", "post", "put", "patch", "delete", "head", MethodAll}

// ValidMethod reports whether m (any case) is an accepted method. MethodAll
// is accepted on routes too and couples the same way as an unset method.
func ValidMethod(m string) bool {
	return slices.Contains(methods, strings.ToLower(m))
}

// Route is a single endpoint: a method, a path, its handler definitions and
// the wrappers that intercept them. Handlers are built on demand by Tracks.
type Route struct {
	mu sync.RWMutex

	request        string
	method         string
	path           string
	root           string
	fromController bool
	handlers       []Definition
	context        any
	wrappers       *pipeline.Pipeline[Wrapper]
	priority       priority.Level
	name           string
	order          int
	ordered        bool
}

// New creates a route from a request such as "GET /users/:id" or "/users".
// A valid method argument overrides the one in the request; invalid methods
// are ignored and leave the method unset. cfg is normalized by ToConfig and
// cfg.Binding is used when context is nil.
//
// When a context is known, named handlers are resolved immediately so a
// missing method fails here with a resolution error.
func New(request, method string, def Definition, context any, cfg any) (*Route, error) {
	c, err := ToConfig(cfg)
	if err != nil {
		return nil, fault.Configuration("route "+request, "config", err)
	}

	r := &Route{
		request:        request,
		wrappers:       pipeline.New[Wrapper](),
		priority:       c.Priority.OrDefault(),
		name:           c.Name,
		root:           c.Root,
		fromController: c.FromController,
	}
	r.parseRequest(request)
	r.setMethod(method)
	r.AddWrappers(c.Wrappers...)

	if context == nil {
		context = c.Binding
	}
	r.AddHandler(def, context)

	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew is like New but panics on error.
func MustNew(request, method string, def Definition, context any, cfg any) *Route {
	r, err := New(request, method, def, context, cfg)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Route) parseRequest(request string) {
	parts := strings.Fields(request)
	if len(parts) > 1 {
		r.setMethod(parts[0])
		parts = parts[1:]
	}
	r.path = strings.Join(parts, "")
}

func (r *Route) setMethod(m string) {
	m = strings.ToLower(m)
	if slices.Contains(methods, m) {
		r.method = m
	}
}

// validate resolves every named handler against the context.
func (r *Route) validate() error {
	r.mu.RLock()
	ctx := r.context
	defs := flatten(r.handlers)
	r.mu.RUnlock()

	res := resolverFor(ctx)
	if res == nil {
		return nil
	}
	for _, d := range defs {
		if n, ok := d.(Name); ok {
			if _, err := res.Resolve(string(n)); err != nil {
				return fault.Resolution(r.source(), "resolve", err)
			}
		}
	}
	return nil
}

// AddHandler appends a handler definition. A non-nil context replaces the
// route's context.
func (r *Route) AddHandler(def Definition, context any) *Route {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def != nil {
		r.handlers = append(r.handlers, def)
	}
	if context != nil {
		r.context = context
	}
	return r
}

// Tracks builds the route's handlers: definitions are flattened, names are
// resolved against the context, bind functions are bound to it and every
// result is wrapped in the interception chain when wrappers exist.
func (r *Route) Tracks() ([]Track, error) {
	r.mu.RLock()
	ctx := r.context
	defs := flatten(r.handlers)
	r.mu.RUnlock()

	wrappers := r.wrappers.Collect()
	tracks := make([]Track, 0, len(defs))

	for _, d := range defs {
		t, err := r.build(d, ctx)
		if err != nil {
			return nil, err
		}
		if len(wrappers) > 0 {
			t.Fn = r.intercept(t.Name, t.Fn, wrappers)
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// Handlers returns the built handler functions.
func (r *Route) Handlers() ([]HandlerFunc, error) {
	tracks, err := r.Tracks()
	if err != nil {
		return nil, err
	}
	out := make([]HandlerFunc, len(tracks))
	for i, t := range tracks {
		out[i] = t.Fn
	}
	return out, nil
}

func (r *Route) build(d Definition, ctx any) (Track, error) {
	var t Track

	switch v := d.(type) {
	case HandlerFunc:
		t = Track{Name: namer.FuncName(v), Fn: v}
	case Name:
		res := resolverFor(ctx)
		if res == nil {
			res = Methods(nil)
		}
		fn, err := res.Resolve(string(v))
		if err != nil {
			return Track{}, fault.Resolution(r.source(), "resolve", err)
		}
		t = Track{Name: string(v), Bound: true, Fn: fn}
	case BindFunc:
		if v == nil {
			return Track{}, fault.Resolution(r.source(), "bind", ErrNilHandler)
		}
		t = Track{Name: namer.FuncName(v), Bound: ctx != nil, Fn: v(ctx)}
	}

	if t.Fn == nil {
		return Track{}, fault.Resolution(r.source(), "build", ErrNilHandler)
	}
	return t, nil
}

// AddWrappers appends wrappers, skipping nil and already present functions.
func (r *Route) AddWrappers(wrappers ...Wrapper) *Route {
	for _, w := range wrappers {
		r.wrappers.Add(w, priority.Default)
	}
	return r
}

// Wrappers returns the wrappers in execution order.
func (r *Route) Wrappers() []Wrapper {
	return r.wrappers.Collect()
}

// Definitions returns a copy of the raw handler definitions.
func (r *Route) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.handlers)
}

// Request returns the raw request string the route was declared with.
func (r *Route) Request() string {
	return r.request
}

// Method returns the lower-case method, or "" when unset.
func (r *Route) Method() string {
	return r.method
}

// Path returns the path local to the route's mount point.
func (r *Route) Path() string {
	return r.path
}

// Root returns the mount prefix set by an owning group.
func (r *Route) Root() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root
}

// Mount returns the root when set, else the path.
func (r *Route) Mount() string {
	if root := r.Root(); root != "" {
		return root
	}
	return r.path
}

// Endpoint returns the full path: root and path joined by single slashes.
func (r *Route) Endpoint() string {
	return JoinPath(r.Root(), r.path)
}

// Key identifies the route as "METHOD /endpoint"; an unset method reads ALL.
// The root is the endpoint of the innermost group only, so a route in a group
// nested under "/api" keys as "GET /users/:id" while it serves at
// "/api/users/:id". Depot.Endpoints lists the served paths.
func (r *Route) Key() string {
	m := r.method
	if m == "" {
		m = MethodAll
	}
	return strings.ToUpper(m) + " " + r.Endpoint()
}

// FromController reports whether the route was declared by a controller group.
func (r *Route) FromController() bool {
	return r.fromController
}

// Context returns the object named handlers are resolved against.
func (r *Route) Context() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.context
}

// SetContext replaces the context. Nil is ignored.
func (r *Route) SetContext(ctx any) {
	if ctx == nil {
		return
	}
	r.mu.Lock()
	r.context = ctx
	r.mu.Unlock()
}

// Priority returns the sort level.
func (r *Route) Priority() priority.Level {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.priority
}

// SetPriority changes the sort level. Zero resets it to Default.
func (r *Route) SetPriority(l priority.Level) {
	r.mu.Lock()
	r.priority = l.OrDefault()
	r.mu.Unlock()
}

// Order returns the insertion number assigned by a list.
func (r *Route) Order() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.order
}

// SetOrder assigns the insertion number. Only the first call has an effect.
func (r *Route) SetOrder(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ordered {
		return
	}
	r.order = n
	r.ordered = true
}

// Name returns the explicit name, or one derived from the context type and
// the last handler.
func (r *Route) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.name != "" {
		return r.name
	}

	handler := ""
	if defs := flatten(r.handlers); len(defs) > 0 {
		handler = definitionName(defs[len(defs)-1])
	}
	return namer.ByHandlers(namer.TypeName(r.context), handler)
}

// SetName sets an explicit name. Empty names are ignored.
func (r *Route) SetName(name string) {
	if name == "" {
		return
	}
	r.mu.Lock()
	r.name = name
	r.mu.Unlock()
}

// URLName returns a dotted name derived from the context type and the path.
func (r *Route) URLName() string {
	return namer.ByURL(namer.TypeName(r.Context()), r.path)
}

func (r *Route) source() string {
	return "route " + r.Key()
}

// JoinPath joins path segments with single slashes. The result always starts
// with a slash and never ends with one, except for the root path.
func JoinPath(parts ...string) string {
	var segs []string
	for _, p := range parts {
		for s := range strings.SplitSeq(p, "/") {
			if s != "" {
				segs = append(segs, s)
			}
		}
	}
	return "/" + strings.Join(segs, "/")
}
