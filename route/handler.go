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
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/huandu/xstrings"

	"rivaas.dev/depot/namer"
)

var (
	// ErrUnknownHandler is returned when a handler name has no matching method
	// on the context.
	ErrUnknownHandler = errors.New("unknown handler")

	// ErrHandlerSignature is returned when a named method exists but cannot be
	// used as a HandlerFunc.
	ErrHandlerSignature = errors.New("handler signature mismatch")

	// ErrNilHandler is returned when a definition builds to a nil function.
	ErrNilHandler = errors.New("nil handler")
)

// Next is the transport continuation. next(nil) moves on to the following
// handler; next(err) enters the transport's error path.
type Next func(error)

// HandlerFunc is a connect-style request handler.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, next Next)

// HTTP adapts a terminal net/http handler. The adapted handler never calls next.
func HTTP(h http.Handler) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ Next) {
		h.ServeHTTP(w, r)
	}
}

// Definition describes a handler before it is built. It is one of
// HandlerFunc, Name, BindFunc or Definitions.
type Definition interface {
	definition()
}

// Name refers to a method on the route's context.
type Name string

// BindFunc builds a handler bound to the route's context.
type BindFunc func(ctx any) HandlerFunc

// Definitions is an ordered, possibly nested, sequence of definitions.
type Definitions []Definition

func (HandlerFunc) definition() {}
func (Name) definition()        {}
func (BindFunc) definition()    {}
func (Definitions) definition() {}

// Resolver turns handler names into handlers. A context implementing Resolver
// is asked directly; any other context is inspected with Methods.
type Resolver interface {
	Resolve(name string) (HandlerFunc, error)
}

// Track is a built handler tagged with the name it was derived from.
type Track struct {
	Name  string
	Bound bool // Built against the route's context
	Fn    HandlerFunc
}

// Methods returns a Resolver over the exported methods of ctx. A name is
// looked up as given and then with its first letter upper-cased, so "show"
// finds Show. Methods must have the HandlerFunc signature or the plain
// func(http.ResponseWriter, *http.Request) signature.
//
// Methods with pointer receivers are only found when ctx is a pointer.
func Methods(ctx any) Resolver {
	return methodSet{v: reflect.ValueOf(ctx), typ: namer.TypeName(ctx)}
}

type methodSet struct {
	v   reflect.Value
	typ string
}

func (m methodSet) Resolve(name string) (HandlerFunc, error) {
	if !m.v.IsValid() {
		return nil, fmt.Errorf("%w: no context to resolve %q against", ErrUnknownHandler, name)
	}

	for _, candidate := range []string{name, xstrings.FirstRuneToUpper(name)} {
		mv := m.v.MethodByName(candidate)
		if !mv.IsValid() {
			continue
		}

		switch fn := mv.Interface().(type) {
		case func(http.ResponseWriter, *http.Request, Next):
			return fn, nil
		case func(http.ResponseWriter, *http.Request):
			return HTTP(http.HandlerFunc(fn)), nil
		}
		return nil, fmt.Errorf("%w: %s.%s is %s", ErrHandlerSignature, m.typ, candidate, mv.Type())
	}

	return nil, fmt.Errorf("%w: %s has no method %q", ErrUnknownHandler, m.typ, name)
}

// resolverFor returns the resolver used for ctx, or nil without a context.
func resolverFor(ctx any) Resolver {
	if ctx == nil {
		return nil
	}
	if r, ok := ctx.(Resolver); ok {
		return r
	}
	return Methods(ctx)
}

// flatten collapses nested Definitions into one sequence, dropping nils.
func flatten(defs []Definition) []Definition {
	out := make([]Definition, 0, len(defs))
	for _, d := range defs {
		switch v := d.(type) {
		case nil:
		case Definitions:
			out = append(out, flatten(v)...)
		default:
			out = append(out, v)
		}
	}
	return out
}

// definitionName returns the name a definition contributes to route naming.
func definitionName(d Definition) string {
	switch v := d.(type) {
	case Name:
		return string(v)
	case HandlerFunc:
		return namer.FuncName(v)
	case BindFunc:
		return namer.FuncName(v)
	}
	return ""
}
