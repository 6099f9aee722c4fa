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

// Package gorilla couples a depot onto a gorilla/mux router. Groups become
// path-prefix sub-routers.
package gorilla

import (
	"sync"

	"github.com/gorilla/mux"

	"rivaas.dev/depot"
	"rivaas.dev/depot/coupler/httpadapt"
	"rivaas.dev/depot/route"
)

// Coupler registers entries on a *mux.Router.
type Coupler struct {
	opts httpadapt.Options

	mu     sync.Mutex
	nested map[*mux.Router]bool
}

var _ depot.Coupler[*mux.Router] = (*Coupler)(nil)

// New creates a coupler.
func New(opts ...httpadapt.Option) *Coupler {
	return &Coupler{
		opts:   httpadapt.NewOptions(opts...),
		nested: make(map[*mux.Router]bool),
	}
}

// Route registers rt. Inside a group the root path matches the group's
// endpoint with and without a trailing slash.
func (c *Coupler) Route(rt *route.Route, r *mux.Router) (*mux.Router, error) {
	h, err := c.opts.Route(rt)
	if err != nil {
		return r, err
	}

	paths := []string{httpadapt.BracePath(rt.Path())}
	if paths[0] == "/" && c.isNested(r) {
		paths = []string{"", "/"}
	}

	for _, p := range paths {
		mr := r.Handle(p, h)
		if !httpadapt.IsAll(rt.Method()) {
			mr.Methods(httpadapt.Methods(rt.Method())...)
		}
		if err := mr.GetError(); err != nil {
			return r, err
		}
	}
	return r, nil
}

// Group couples the group's entries onto a sub-router under its endpoint.
func (c *Coupler) Group(g *route.Group, r *mux.Router) (*mux.Router, error) {
	sub := r
	if prefix := route.JoinPath(g.Endpoint()); prefix != "/" {
		sub = r.PathPrefix(prefix).Subrouter()
		c.mu.Lock()
		c.nested[sub] = true
		c.mu.Unlock()
	} else {
		sub = r.NewRoute().Subrouter()
	}

	if mw := g.Middleware(); len(mw) > 0 {
		sub.Use(mux.MiddlewareFunc(c.opts.Middleware(mw...)))
	}
	if _, err := depot.Fold[*mux.Router](c, g.All(), sub); err != nil {
		return r, err
	}
	return r, nil
}

// Depot couples every entry of d. A nil router gets a new one.
func (c *Coupler) Depot(d *depot.Depot[*mux.Router], r *mux.Router) (*mux.Router, error) {
	if r == nil {
		r = mux.NewRouter()
	}
	err := d.Each(func(e route.Entry) error {
		var err error
		r, err = depot.Dispatch[*mux.Router](c, e, r)
		return err
	})
	return r, err
}

func (c *Coupler) isNested(r *mux.Router) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nested[r]
}
