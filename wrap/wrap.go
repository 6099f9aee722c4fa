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

// Package wrap provides ready-made route wrappers.
//
// A wrapper runs before the route's handler. Because a wrapper calls proceed
// synchronously, the handler has finished by the time proceed returns, which
// lets the wrappers here measure the handler and observe its response:
//
//	d := depot.MustNew(coupler, depot.WithWrappers(
//	    wrap.Log(logger),
//	    wrap.Trace(otel.GetTracerProvider()),
//	))
//
// Handlers that call next asynchronously are measured only up to the point
// where they return.
package wrap

import (
	"net/http"

	"rivaas.dev/depot/route"
)

// responseWriter captures the status and size of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

// StatusCode returns the written status, 200 when none was written.
func (rw *responseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

func (rw *responseWriter) Size() int64 {
	return rw.size
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// capture replaces the connection's writer with a recording one, reusing an
// existing recorder, and wraps Next so that errors are reported to onError
// before the transport sees them.
func capture(conn *route.Connection, onError func(error)) *responseWriter {
	rw, ok := conn.Response.(*responseWriter)
	if !ok {
		rw = &responseWriter{ResponseWriter: conn.Response}
		conn.Response = rw
	}

	if onError != nil {
		next := conn.Next
		conn.Next = func(err error) {
			if err != nil {
				onError(err)
			}
			next(err)
		}
	}
	return rw
}

// Guard rejects requests check returns an error for. The error travels to
// the transport's error path; the handler never runs.
//
//	wrap.Guard(func(r *http.Request) error {
//	    if r.Header.Get("X-Api-Key") == "" {
//	        return errors.WithStatus(errMissingKey, http.StatusUnauthorized)
//	    }
//	    return nil
//	})
func Guard(check func(*http.Request) error) route.Wrapper {
	return func(conn *route.Connection, proceed route.Proceed, _ *route.Route, _ route.Handle) {
		if check != nil {
			if err := check(conn.Request); err != nil {
				proceed(err)
				return
			}
		}
		proceed(nil)
	}
}
