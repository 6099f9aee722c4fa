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
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"rivaas.dev/depot/route"
)

// Prometheus records depot_route_requests_total and
// depot_route_duration_seconds, labeled by route key and status code, on
// reg. Collectors already registered on reg are reused.
func Prometheus(reg prometheus.Registerer) (route.Wrapper, error) {
	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "depot_route_requests_total",
		Help: "Route invocations.",
	}, []string{"route", "code"}))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "depot_route_duration_seconds",
		Help:    "Route handling time.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "code"}))
	if err != nil {
		return nil, err
	}

	return func(conn *route.Connection, proceed route.Proceed, rt *route.Route, _ route.Handle) {
		start := time.Now()
		rw := capture(conn, nil)

		proceed(nil)

		code := strconv.Itoa(rw.StatusCode())
		requests.WithLabelValues(rt.Key(), code).Inc()
		duration.WithLabelValues(rt.Key(), code).Observe(time.Since(start).Seconds())
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}
