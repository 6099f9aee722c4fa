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

// Package stdhttp couples a depot onto an *http.ServeMux.
//
// Routes become method patterns such as "GET /users/{id}". A group gets its
// own mux mounted under the group's endpoint, behind the group middleware.
//
//	d := depot.MustNew[*http.ServeMux](stdhttp.New())
//	mux, err := d.Couple(http.NewServeMux())
package stdhttp

import (
	"net/http"
	"net/url"
	"strings"

	"rivaas.dev/depot"
	"rivaas.dev/depot/coupler/httpadapt"
	"rivaas.dev/depot/route"
)

// Coupler registers entries on a ServeMux.
type Coupler struct {
	opts httpadapt.Options
}

var _ depot.Coupler[*http.ServeMux] = (*Coupler)(nil)

// New creates a coupler.
func New(opts ...httpadapt.Option) *Coupler {
	return &Coupler{opts: httpadapt.NewOptions(opts...)}
}

// Pattern returns the ServeMux pattern of a route: the method when one is
// set, and the path with braces. The root path only matches itself.
func Pattern(method, path string) string {
	p := httpadapt.BracePath(path)
	if p == "/" || p == "" {
		p = "/{$}"
	}
	if httpadapt.IsAll(method) {
		return p
	}
	return strings.ToUpper(method) + " " + p
}

// Route registers rt.
func (c *Coupler) Route(rt *route.Route, mux *http.ServeMux) (*http.ServeMux, error) {
	h, err := c.opts.Route(rt)
	if err != nil {
		return mux, err
	}
	pattern := Pattern(rt.Method(), rt.Path())
	c.opts.Logger.Debug("coupling route", "pattern", pattern)
	return mux, httpadapt.Guard(pattern, func() { mux.Handle(pattern, h) })
}

// Group couples the group's entries onto a fresh mux and mounts it at the
// group's endpoint.
func (c *Coupler) Group(g *route.Group, mux *http.ServeMux) (*http.ServeMux, error) {
	sub, err := depot.Fold[*http.ServeMux](c, g.All(), http.NewServeMux())
	if err != nil {
		return mux, err
	}
	h := c.opts.Middleware(g.Middleware()...)(sub)

	prefix := route.JoinPath(g.Endpoint())
	if prefix == "/" {
		return mux, httpadapt.Guard(prefix, func() { mux.Handle("/", h) })
	}

	h = strip(prefix, h)
	for _, pattern := range []string{prefix, prefix + "/"} {
		if err := httpadapt.Guard(pattern, func() { mux.Handle(pattern, h) }); err != nil {
			return mux, err
		}
	}
	return mux, nil
}

// Depot couples every entry of d.
func (c *Coupler) Depot(d *depot.Depot[*http.ServeMux], mux *http.ServeMux) (*http.ServeMux, error) {
	if mux == nil {
		mux = http.NewServeMux()
	}
	err := d.Each(func(e route.Entry) error {
		var err error
		mux, err = depot.Dispatch[*http.ServeMux](c, e, mux)
		return err
	})
	return mux, err
}

// strip removes prefix from the request path. An emptied path becomes "/".
func strip(prefix string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimPrefix(r.URL.Path, prefix)
		if p == "" {
			p = "/"
		}

		r2 := new(http.Request)
		*r2 = *r
		r2.URL = new(url.URL)
		*r2.URL = *r.URL
		r2.URL.Path = p
		r2.URL.RawPath = ""
		h.ServeHTTP(w, r2)
	})
}
