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

package wrap

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/depot/route"
)

const instrumentationName = "rivaas.dev/depot/wrap"

// Trace starts a server span named after the route key for every
// invocation. The span context is placed on the request handed to the
// handler. Handler errors and 5xx responses mark the span as failed.
func Trace(tp trace.TracerProvider) route.Wrapper {
	tracer := tp.Tracer(instrumentationName)

	return func(conn *route.Connection, proceed route.Proceed, rt *route.Route, h route.Handle) {
		req := conn.Request
		ctx, span := tracer.Start(req.Context(), rt.Key(), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.route", rt.Endpoint()),
			attribute.String("http.url", req.URL.String()),
			attribute.String("depot.route.name", rt.Name()),
			attribute.String("depot.handler", h.Name),
		)

		conn.Request = req.WithContext(ctx)
		rw := capture(conn, func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		})

		proceed(nil)

		status := rw.StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}
	}
}
