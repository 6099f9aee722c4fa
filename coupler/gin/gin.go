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

// Package gin couples a depot onto a gin engine or router group.
//
// Each route handler becomes a gin handler. A handler that returns without
// calling next aborts the gin chain, so next must be called before the
// handler returns.
package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rivaas.dev/depot"
	"rivaas.dev/depot/coupler/httpadapt"
	"rivaas.dev/depot/route"
)

// Coupler registers entries on a gin.IRouter.
type Coupler struct {
	opts httpadapt.Options
}

var _ depot.Coupler[gin.IRouter] = (*Coupler)(nil)

// New creates a coupler.
func New(opts ...httpadapt.Option) *Coupler {
	return &Coupler{opts: httpadapt.NewOptions(opts...)}
}

// Handler adapts fn to gin.
func (c *Coupler) Handler(fn route.HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		called := false
		fn(ctx.Writer, ctx.Request, func(err error) {
			if called {
				return
			}
			called = true
			if err != nil {
				c.opts.Fail(ctx.Writer, ctx.Request, err)
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

func (c *Coupler) handlers(fns []route.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, len(fns))
	for i, fn := range fns {
		out[i] = c.Handler(fn)
	}
	return out
}

// path maps the root path to "" so a group's root route serves the group
// endpoint without a trailing slash.
func path(p string) string {
	if p == "/" {
		return ""
	}
	return p
}

// Route registers rt.
func (c *Coupler) Route(rt *route.Route, r gin.IRouter) (gin.IRouter, error) {
	fns, err := rt.Handlers()
	if err != nil {
		return r, err
	}
	hs := c.handlers(fns)
	p := path(rt.Path())

	if httpadapt.IsAll(rt.Method()) {
		return r, httpadapt.Guard("ANY "+rt.Path(), func() { r.Any(p, hs...) })
	}
	for _, m := range httpadapt.Methods(rt.Method()) {
		if err := httpadapt.Guard(m+" "+rt.Path(), func() { r.Handle(m, p, hs...) }); err != nil {
			return r, err
		}
	}
	return r, nil
}

// Group couples the group's entries onto a gin router group carrying the
// group middleware.
func (c *Coupler) Group(g *route.Group, r gin.IRouter) (gin.IRouter, error) {
	sub := r.Group(path(route.JoinPath(g.Endpoint())), c.handlers(g.Middleware())...)
	if _, err := depot.Fold[gin.IRouter](c, g.All(), sub); err != nil {
		return r, err
	}
	return r, nil
}

// Depot couples every entry of d. A nil router gets a new engine without
// default middleware.
func (c *Coupler) Depot(d *depot.Depot[gin.IRouter], r gin.IRouter) (gin.IRouter, error) {
	if r == nil {
		r = gin.New()
	}
	err := d.Each(func(e route.Entry) error {
		var err error
		r, err = depot.Dispatch[gin.IRouter](c, e, r)
		return err
	})
	return r, err
}

// Engine returns r as an http.Handler when it is a *gin.Engine.
func Engine(r gin.IRouter) (http.Handler, bool) {
	e, ok := r.(*gin.Engine)
	if !ok {
		return nil, false
	}
	return e, true
}
