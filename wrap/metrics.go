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
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"rivaas.dev/depot/route"
)

// Metrics records a request counter and a duration histogram per route
// through an OpenTelemetry meter.
func Metrics(mp metric.MeterProvider) (route.Wrapper, error) {
	meter := mp.Meter(instrumentationName)

	requests, err := meter.Int64Counter(
		"depot.route.requests",
		metric.WithDescription("Route invocations"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"depot.route.duration",
		metric.WithDescription("Route handling time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"depot.route.errors",
		metric.WithDescription("Errors handlers passed to next"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return func(conn *route.Connection, proceed route.Proceed, rt *route.Route, _ route.Handle) {
		start := time.Now()
		ctx := conn.Request.Context()
		key := attribute.String("depot.route", rt.Key())

		rw := capture(conn, func(error) {
			failures.Add(ctx, 1, metric.WithAttributes(key))
		})

		proceed(nil)

		attrs := metric.WithAttributes(key, attribute.String("http.status_code", strconv.Itoa(rw.StatusCode())))
		requests.Add(ctx, 1, attrs)
		duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}, nil
}
