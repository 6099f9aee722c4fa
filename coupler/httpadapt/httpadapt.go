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

// Package httpadapt turns connect-style route handlers into net/http
// handlers and middleware. Couplers share it to build what they register.
//
// A handler chain runs each handler when the previous one calls next(nil).
// A handler calling next(err) stops the chain and hands err to the error
// handler, which by default writes it with a rivaas.dev/errors formatter.
package httpadapt

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	riverrors "rivaas.dev/errors"

	"rivaas.dev/depot/chain"
	"rivaas.dev/depot/route"
)

// ErrorHandler writes the response for an error passed to next.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// FormatErrors returns an ErrorHandler encoding errors with f as JSON.
func FormatErrors(f riverrors.Formatter) ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		resp := f.Format(r, err)

		w.Header().Set("Content-Type", resp.ContentType)
		for key, values := range resp.Headers {
			for _, v := range values {
				w.Header().Add(key, v)
			}
		}
		w.WriteHeader(resp.Status)
		_ = json.NewEncoder(w).Encode(resp.Body)
	}
}

// Options are the settings every coupler accepts.
type Options struct {
	ErrorHandler ErrorHandler
	Logger       *slog.Logger
}

// Option configures a coupler.
type Option func(*Options)

// WithErrorHandler replaces the default error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *Options) {
		if h != nil {
			o.ErrorHandler = h
		}
	}
}

// WithProblemDetails writes errors as RFC 9457 problem details, with problem
// types below baseURL.
func WithProblemDetails(baseURL string) Option {
	return func(o *Options) {
		o.ErrorHandler = FormatErrors(riverrors.NewRFC9457(baseURL))
	}
}

// WithLogger sets the logger couplers record registrations and errors with.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// NewOptions applies opts over the defaults: simple JSON errors and a
// discarding logger.
func NewOptions(opts ...Option) Options {
	o := Options{
		ErrorHandler: FormatErrors(riverrors.NewSimple()),
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Fail logs err and hands it to the error handler.
func (o Options) Fail(w http.ResponseWriter, r *http.Request, err error) {
	o.Logger.Error("handler error", "error", err, "method", r.Method, "path", r.URL.Path)
	o.ErrorHandler(w, r, err)
}

type exchange struct {
	w http.ResponseWriter
	r *http.Request
}

func newRunner(fail ErrorHandler, final http.Handler, fns []route.HandlerFunc) *chain.Runner[*exchange] {
	steps := make([]chain.Step[*exchange], 0, len(fns))
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		steps = append(steps, func(x *exchange, proceed func(error)) {
			fn(x.w, x.r, proceed)
		})
	}

	var done func(*exchange)
	if final != nil {
		done = func(x *exchange) { final.ServeHTTP(x.w, x.r) }
	}
	return chain.New(steps, done, func(x *exchange, err error) {
		fail(x.w, x.r, err)
	})
}

// Chain composes fns into one http.Handler.
func (o Options) Chain(fns ...route.HandlerFunc) http.Handler {
	runner := newRunner(o.Fail, nil, fns)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runner.Run(&exchange{w: w, r: r})
	})
}

// Middleware adapts fns as net/http middleware: once the last of them calls
// next(nil) the wrapped handler runs. Without fns it returns the handler
// unchanged.
func (o Options) Middleware(fns ...route.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(fns) == 0 {
			return next
		}
		runner := newRunner(o.Fail, next, fns)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			runner.Run(&exchange{w: w, r: r})
		})
	}
}

// Route builds rt's handlers into a single http.Handler.
func (o Options) Route(rt *route.Route) (http.Handler, error) {
	fns, err := rt.Handlers()
	if err != nil {
		return nil, err
	}
	return o.Chain(fns...), nil
}

// Methods returns the upper-case verbs a route method stands for: the verb
// itself, or every common verb for "all" and unset methods.
func Methods(method string) []string {
	switch strings.ToLower(method) {
	case "", route.MethodAll:
		return []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		}
	}
	return []string{strings.ToUpper(method)}
}

// IsAll reports whether a route method matches every verb.
func IsAll(method string) bool {
	return method == "" || strings.EqualFold(method, route.MethodAll)
}

// BracePath rewrites ":name" segments as "{name}".
func BracePath(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if strings.HasPrefix(s, ":") && len(s) > 1 {
			segs[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segs, "/")
}

// Guard runs register and turns a panic into an error. Routers panic on
// conflicting registrations.
func Guard(pattern string, register func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("register %s: %v", pattern, r)
		}
	}()
	register()
	return nil
}
