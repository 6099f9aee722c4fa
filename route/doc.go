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

// Package route holds the registration model of the depot: routes, groups
// and the ordered list that holds them.
//
// This package contains:
//   - Route: a method, a path and handler definitions, built on demand
//   - Group: a mount point sharing a context and wrappers with nested routes
//   - List: an ordered registry running filters on every added entry
//   - Wrapper: interceptors run in sequence before a route's handler
//
// # Handlers
//
// A Definition is a HandlerFunc, a Name resolved against the route's
// context, a BindFunc bound to the context at build time, or nested
// Definitions:
//
//	rt, err := route.New("GET /users/:id", "", route.Name("show"), &UserController{}, nil)
//	tracks, err := rt.Tracks()
//
// # Ordering
//
// Lists return entries sorted by priority and, for equal priorities, by the
// order in which they were added. Filters may modify an entry or veto it by
// returning nil:
//
//	list := route.NewList()
//	list.AddFilter(func(e route.Entry) route.Entry {
//		if strings.HasPrefix(e.Endpoint(), "/internal") {
//			return nil
//		}
//		return e
//	})
//
// # Wrappers
//
// Wrappers run strictly in sequence and must call proceed to let the chain
// continue. Once the last wrapper proceeds the handler runs exactly once.
// proceed(err) skips the rest of the chain and hands a fault.ErrChain error
// to the transport's continuation.
package route
