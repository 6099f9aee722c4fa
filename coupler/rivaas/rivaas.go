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

// Package rivaas couples a depot onto a rivaas.dev/router Router.
//
// The transport is a Scope: the router plus the prefix and middleware of
// the group being coupled. Routes register at their full path with the
// scope's middleware in front of their own handlers.
//
//	d := depot.MustNew[rivaas.Scope](rivaas.New())
//	scope, err := d.Couple(rivaas.Mount(router.MustNew()))
//	http.ListenAndServe(":8080", scope.Router)
package rivaas

import (
	"net/http"
	"slices"
	"strings"

	"rivaas.dev/router"

	"rivaas.dev/depot"
	"rivaas.dev/depot/coupler/httpadapt"
	"rivaas.dev/depot/route"
)

// Scope is the coupling position inside a router.
type Scope struct {
	Router     *router.Router
	Prefix     string
	Middleware []router.HandlerFunc
}

// Mount returns the root scope of r.
func Mount(r *router.Router) Scope {
	return Scope{Router: r, Prefix: "/"}
}

// Coupler registers entries on a rivaas router.
type Coupler struct {
	opts httpadapt.Options
}

var _ depot.Coupler[Scope] = (*Coupler)(nil)

// New creates a coupler.
func New(opts ...httpadapt.Option) *Coupler {
	return &Coupler{opts: httpadapt.NewOptions(opts...)}
}

// Handler adapts fn to the router. params names the path parameters copied
// onto the request as path values. A handler returning without calling next
// aborts the chain.
func (c *Coupler) Handler(fn route.HandlerFunc, params ...string) router.HandlerFunc {
	return func(ctx *router.Context) {
		for _, name := range params {
			ctx.Request.SetPathValue(name, ctx.Param(name))
		}

		called := false
		fn(ctx.Response, ctx.Request, func(err error) {
			if called {
				return
			}
			called = true
			if err != nil {
				c.opts.Fail(ctx.Response, ctx.Request, err)
				ctx.Error(err)
				ctx.Abort()
				return
			}
			ctx.Next()
		})
		if !called {
			ctx.Abort()
		}
	}
}

// Params returns the names of the ":name" segments of path.
func Params(path string) []string {
	var out []string
	for seg := range strings.SplitSeq(path, "/") {
		if strings.HasPrefix(seg, ":") && len(seg) > 1 {
			out = append(out, seg[1:])
		}
	}
	return out
}

func (c *Coupler) register(r *router.Router, method, path string, hs []router.HandlerFunc) {
	switch method {
	case http.MethodGet:
		r.GET(path, hs...)
	case http.MethodPost:
		r.POST(path, hs...)
	case http.MethodPut:
		r.PUT(path, hs...)
	case http.MethodPatch:
		r.PATCH(path, hs...)
	case http.MethodDelete:
		r.DELETE(path, hs...)
	case http.MethodHead:
		r.HEAD(path, hs...)
	case http.MethodOptions:
		r.OPTIONS(path, hs...)
	}
}

// Route registers rt at the scope's prefix.
func (c *Coupler) Route(rt *route.Route, s Scope) (Scope, error) {
	fns, err := rt.Handlers()
	if err != nil {
		return s, err
	}

	path := route.JoinPath(s.Prefix, rt.Path())
	params := Params(path)

	hs := slices.Clone(s.Middleware)
	for _, fn := range fns {
		hs = append(hs, c.Handler(fn, params...))
	}

	for _, m := range httpadapt.Methods(rt.Method()) {
		if err := httpadapt.Guard(m+" "+path, func() { c.register(s.Router, m, path, hs) }); err != nil {
			return s, err
		}
	}
	c.opts.Logger.Debug("coupled route", "path", path, "method", rt.Method())
	return s, nil
}

// Group couples the group's entries in a nested scope carrying the group
// middleware.
func (c *Coupler) Group(g *route.Group, s Scope) (Scope, error) {
	sub := Scope{
		Router:     s.Router,
		Prefix:     route.JoinPath(s.Prefix, g.Endpoint()),
		Middleware: slices.Clone(s.Middleware),
	}
	for _, fn := range g.Middleware() {
		sub.Middleware = append(sub.Middleware, c.Handler(fn))
	}

	if _, err := depot.Fold[Scope](c, g.All(), sub); err != nil {
		return s, err
	}
	return s, nil
}

// Depot couples every entry of d. A scope without a router gets a new one.
func (c *Coupler) Depot(d *depot.Depot[Scope], s Scope) (Scope, error) {
	if s.Router == nil {
		r, err := router.New()
		if err != nil {
			return s, err
		}
		s = Mount(r)
	}
	err := d.Each(func(e route.Entry) error {
		var err error
		s, err = depot.Dispatch[Scope](c, e, s)
		return err
	})
	return s, err
}
