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

// Package depot registers routes, controllers and middleware in priority
// order and couples them onto any HTTP transport.
//
// A Depot is generic over the transport it couples onto. Declarations can be
// made in any order; nothing touches the transport until Couple, which walks
// every entry in priority order through a Coupler.
//
// # Quick start
//
//	d := depot.MustNew[*http.ServeMux](stdhttp.New())
//	d.Get("/health", route.HTTP(healthHandler), nil)
//	d.Controller("/users", &Users{}, depot.ControllerConfig{
//	    Routes: route.Routes{
//	        {Request: "GET /", Handler: route.Name("index")},
//	        {Request: "GET /:id", Handler: route.Name("show")},
//	    },
//	    Wares: []string{"auth", "audit:users"},
//	})
//	mux, err := d.Couple(http.NewServeMux())
//
// # Priorities
//
// Every entry carries a priority.Level; lower levels couple first. Entries
// with the same level keep their declaration order. Use this to make a
// static route win over a parameterized one declared earlier:
//
//	d.Get("/users/:id", show, nil)
//	d.Get("/users/me", me, priority.High)
//
// # Plugins
//
// Route filters (tag "route") run when an entry is declared and may modify
// or veto it. Attach transforms (tag "attach") run right before coupling and
// may drop an entry by returning nil.
//
// # Couplers
//
// Couplers for net/http, chi, gorilla/mux, gin, echo and the rivaas router
// live under the coupler directory. A custom transport only needs a Coupler
// implementation, or a CouplerFuncs value.
package depot
