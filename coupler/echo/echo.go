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

// Package echo couples a depot onto an echo instance or group.
//
// Path parameters are copied onto the request with SetPathValue, so
// handlers read them with r.PathValue.
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"rivaas.dev/depot"
	"rivaas.dev/depot/coupler/httpadapt"
	"rivaas.dev/depot/route"
)

// Router is the registration surface shared by *echo.Echo and *echo.Group.
type Router interface {
	Add(method, path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	Any(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) []*echo.Route
	Group(prefix string, m ...echo.MiddlewareFunc) *echo.Group
}

var (
	_ Router = (*echo.Echo)(nil)
	_ Router = (*echo.Group)(nil)
)

// Coupler registers entries on a Router.
type Coupler struct {
	opts httpadapt.Options
}

var _ depot.Coupler[Router] = (*Coupler)(nil)

// New creates a coupler.
func New(opts ...httpadapt.Option) *Coupler {
	return &Coupler{opts: httpadapt.NewOptions(opts...)}
}

// Handler adapts h to echo, exposing path parameters as path values.
func Handler(h http.Handler) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		values := c.ParamValues()
		for i, name := range c.ParamNames() {
			if i < len(values) {
				req.SetPathValue(name, values[i])
			}
		}
		h.ServeHTTP(c.Response(), req)
		return nil
	}
}

// Route registers rt. Inside a group the root path serves the group's
// endpoint itself.
func (c *Coupler) Route(rt *route.Route, r Router) (Router, error) {
	h, err := c.opts.Route(rt)
	if err != nil {
		return r, err
	}

	p := rt.Path()
	if _, nested := r.(*echo.Group); nested && p == "/" {
		p = ""
	}

	if httpadapt.IsAll(rt.Method()) {
		r.Any(p, Handler(h))
		return r, nil
	}
	for _, m := range httpadapt.Methods(rt.Method()) {
		r.Add(m, p, Handler(h))
	}
	return r, nil
}

// Group couples the group's entries onto an echo group carrying the group
// middleware.
func (c *Coupler) Group(g *route.Group, r Router) (Router, error) {
	var mws []echo.MiddlewareFunc
	if mw := g.Middleware(); len(mw) > 0 {
		mws = append(mws, echo.WrapMiddleware(c.opts.Middleware(mw...)))
	}

	prefix := route.JoinPath(g.Endpoint())
	if prefix == "/" {
		prefix = ""
	}
	if _, err := depot.Fold[Router](c, g.All(), r.Group(prefix, mws...)); err != nil {
		return r, err
	}
	return r, nil
}

// Depot couples every entry of d. A nil router gets a new echo instance.
func (c *Coupler) Depot(d *depot.Depot[Router], r Router) (Router, error) {
	if r == nil {
		r = echo.New()
	}
	err := d.Each(func(e route.Entry) error {
		var err error
		r, err = depot.Dispatch[Router](c, e, r)
		return err
	})
	return r, err
}
