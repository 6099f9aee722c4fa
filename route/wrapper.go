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
	"net/http"

	"rivaas.dev/depot/chain"
	"rivaas.dev/depot/fault"
)

// Connection is the per-request record handed to every wrapper.
type Connection struct {
	Request  *http.Request
	Response http.ResponseWriter
	Next     Next

	handle Handle
}

// Handle returns the handler the wrappers guard.
func (c *Connection) Handle() Handle {
	return c.handle
}

// Proceed advances a wrapper chain. Calling it with an error aborts the
// remaining wrappers and hands the error to the connection's Next.
type Proceed func(error)

// Handle is the guarded handler, already bound to the current request.
type Handle struct {
	Name string
	call func()
}

// Call runs the handler with the original request arguments, bypassing the
// remaining wrappers.
func (h Handle) Call() {
	if h.call != nil {
		h.call()
	}
}

// Wrapper intercepts a route's handler. It must call proceed to let the chain
// continue; a wrapper that never calls it halts the request for good.
//
//	func auth(conn *route.Connection, proceed route.Proceed, rt *route.Route, h route.Handle) {
//		if conn.Request.Header.Get("Authorization") == "" {
//			conn.Response.WriteHeader(http.StatusUnauthorized)
//			return
//		}
//		proceed(nil)
//	}
type Wrapper func(conn *Connection, proceed Proceed, rt *Route, h Handle)

// intercept wraps fn so that every invocation first runs wrappers in order.
// Each invocation gets its own chain state.
func (r *Route) intercept(name string, fn HandlerFunc, wrappers []Wrapper) HandlerFunc {
	steps := make([]chain.Step[*Connection], len(wrappers))
	for i, w := range wrappers {
		steps[i] = func(c *Connection, proceed func(error)) {
			w(c, proceed, r, c.handle)
		}
	}

	runner := chain.New(steps,
		func(c *Connection) {
			fn(c.Response, c.Request, c.Next)
		},
		func(c *Connection, err error) {
			c.Next(fault.Chain(name, err))
		},
	)

	return func(w http.ResponseWriter, req *http.Request, next Next) {
		if next == nil {
			next = func(error) {}
		}
		conn := &Connection{Request: req, Response: w, Next: next}
		conn.handle = Handle{
			Name: name,
			call: func() { fn(w, req, next) },
		}
		runner.Run(conn)
	}
}
