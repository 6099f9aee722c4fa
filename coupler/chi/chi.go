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

// Package chi couples a depot onto a chi router. Groups become chi
// sub-routers mounted at their endpoint.
package chi

import (
	"github.com/go-chi/chi/v5"

	"rivaas.dev/depot"
	"rivaas.dev/depot/coupler/httpadapt"
	"rivaas.dev/depot/route"
)

// Coupler registers entries on a chi.Router.
type Coupler struct {
	opts httpadapt.Options
}

var _ depot.Coupler[chi.Router] = (*Coupler)(nil)

// New creates a coupler.
func New(opts ...httpadapt.Option) *Coupler {
	return &Coupler{opts: httpadapt.NewOptions(opts...)}
}

// Route registers rt. Routes without a verb match every method.
func (c *Coupler) Route(rt *route.Route, r chi.Router) (chi.Router, error) {
	h, err := c.opts.Route(rt)
	if err != nil {
		return r, err
	}

	path := httpadapt.BracePath(rt.Path())
	if httpadapt.IsAll(rt.Method()) {
		return r, httpadapt.Guard(path, func() { r.Handle(path, h) })
	}
	for _, m := range httpadapt.Methods(rt.Method()) {
		if err := httpadapt.Guard(m+" "+path, func() { r.Method(m, path, h) }); err != nil {
			return r, err
		}
	}
	return r, nil
}

// Group mounts a sub-router at the group's endpoint, or an inline group for
// the root endpoint, and applies the group middleware to it.
func (c *Coupler) Group(g *route.Group, r chi.Router) (chi.Router, error) {
	var ferr error
	build := func(sub chi.Router) {
		if mw := g.Middleware(); len(mw) > 0 {
			sub.Use(c.opts.Middleware(mw...))
		}
		_, ferr = depot.Fold[chi.Router](c, g.All(), sub)
	}

	prefix := route.JoinPath(g.Endpoint())
	err := httpadapt.Guard(prefix, func() {
		if prefix == "/" {
			r.Group(build)
			return
		}
		r.Route(prefix, build)
	})
	if err != nil {
		return r, err
	}
	return r, ferr
}

// Depot couples every entry of d. A nil router gets a new one.
func (c *Coupler) Depot(d *depot.Depot[chi.Router], r chi.Router) (chi.Router, error) {
	if r == nil {
		r = chi.NewRouter()
	}
	err := d.Each(func(e route.Entry) error {
		var err error
		r, err = depot.Dispatch[chi.Router](c, e, r)
		return err
	})
	return r, err
}
