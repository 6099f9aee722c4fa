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
	"log/slog"
	"time"

	"rivaas.dev/depot/route"
)

// Log writes one record per invocation: Info for successes, Warn for 4xx
// and Error for 5xx responses or handler errors.
func Log(logger *slog.Logger) route.Wrapper {
	if logger == nil {
		logger = slog.Default()
	}

	return func(conn *route.Connection, proceed route.Proceed, rt *route.Route, h route.Handle) {
		start := time.Now()
		var failure error
		rw := capture(conn, func(err error) { failure = err })

		proceed(nil)

		status := rw.StatusCode()
		fields := []any{
			"route", rt.Key(),
			"handler", h.Name,
			"method", conn.Request.Method,
			"path", conn.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes_sent", rw.Size(),
		}

		switch {
		case failure != nil:
			logger.Error("route", append(fields, "error", failure)...)
		case status >= 500:
			logger.Error("route", fields...)
		case status >= 400:
			logger.Warn("route", fields...)
		default:
			logger.Info("route", fields...)
		}
	}
}
