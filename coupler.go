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

package depot

import (
	"reflect"

	"rivaas.dev/depot/fault"
	"rivaas.dev/depot/route"
)

// Coupler attaches entries to a transport of type T, such as a router.
// Each operation receives the transport and returns it, possibly replaced.
//
//   - Route attaches a route's built handlers at its path and method.
//   - Group applies the group's middleware, then couples its entries.
//   - Depot couples every top-level entry, usually through Depot.Each.
type Coupler[T any] interface {
	Route(rt *route.Route, t T) (T, error)
	Group(g *route.Group, t T) (T, error)
	Depot(d *Depot[T], t T) (T, error)
}

// CouplerFuncs adapts plain functions to a Coupler. All three must be set.
type CouplerFuncs[T any] struct {
	RouteFunc func(*route.Route, T) (T, error)
	GroupFunc func(*route.Group, T) (T, error)
	DepotFunc func(*Depot[T], T) (T, error)
}

func (c CouplerFuncs[T]) Route(rt *route.Route, t T) (T, error) { return c.RouteFunc(rt, t) }
func (c CouplerFuncs[T]) Group(g *route.Group, t T) (T, error)  { return c.GroupFunc(g, t) }
func (c CouplerFuncs[T]) Depot(d *Depot[T], t T) (T, error)     { return c.DepotFunc(d, t) }

// checkCoupler fails when c is missing or is a CouplerFuncs with an unset
// member.
func checkCoupler[T any](c Coupler[T]) error {
	if c == nil {
		return fault.Configurationf("depot", "new", "a coupler is required")
	}
	if v := reflect.ValueOf(c); v.Kind() == reflect.Pointer && v.IsNil() {
		return fault.Configurationf("depot", "new", "a coupler is required")
	}

	var funcs CouplerFuncs[T]
	switch v := c.(type) {
	case CouplerFuncs[T]:
		funcs = v
	case *CouplerFuncs[T]:
		funcs = *v
	default:
		return nil
	}

	switch {
	case funcs.RouteFunc == nil:
		return fault.Configurationf("depot", "new", "the coupler is missing Route")
	case funcs.DepotFunc == nil:
		return fault.Configurationf("depot", "new", "the coupler is missing Depot")
	case funcs.GroupFunc == nil:
		return fault.Configurationf("depot", "new", "the coupler is missing Group")
	}
	return nil
}

// Dispatch hands an entry to the matching coupler operation.
func Dispatch[T any](c Coupler[T], e route.Entry, t T) (T, error) {
	switch v := e.(type) {
	case *route.Route:
		return c.Route(v, t)
	case *route.Group:
		return c.Group(v, t)
	}
	return t, fault.Configurationf("depot", "couple", "cannot couple entry of type %T", e)
}

// Fold dispatches every entry in order, threading the transport through.
// Couplers use it to attach the entries of a group.
func Fold[T any](c Coupler[T], entries []route.Entry, t T) (T, error) {
	var err error
	for _, e := range entries {
		if t, err = Dispatch(c, e, t); err != nil {
			return t, err
		}
	}
	return t, nil
}
