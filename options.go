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
	"log/slog"

	"rivaas.dev/depot/mapper"
	"rivaas.dev/depot/route"
	"rivaas.dev/depot/ware"
)

// settings collects the options of a depot. It is not generic, so options
// work for depots over any transport.
type settings struct {
	logger      *slog.Logger
	diagnostics DiagnosticHandler
	warehouse   *ware.Warehouse
	mapper      mapper.Mapper
	wrappers    []route.Wrapper
	filters     []route.Filter
}

// Option configures a Depot.
type Option func(*settings)

// WithLogger sets the logger for registration and coupling records.
// The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithDiagnostics sets a diagnostic handler.
func WithDiagnostics(handler DiagnosticHandler) Option {
	return func(s *settings) {
		s.diagnostics = handler
	}
}

// WithWarehouse sets the warehouse used to resolve controller wares.
// Without it the depot creates an empty one.
func WithWarehouse(h *ware.Warehouse) Option {
	return func(s *settings) {
		s.warehouse = h
	}
}

// WithMapper replaces the convention used by Resource and Implicit.
func WithMapper(m mapper.Mapper) Option {
	return func(s *settings) {
		s.mapper = m
	}
}

// WithWrappers sets wrappers injected into every route the depot builds,
// including the routes of controllers.
//
// Example:
//
//	d := depot.MustNew(coupler, depot.WithWrappers(wrap.Log(logger)))
func WithWrappers(wrappers ...route.Wrapper) Option {
	return func(s *settings) {
		s.wrappers = append(s.wrappers, wrappers...)
	}
}

// WithFilters installs route filters, as Filter does.
func WithFilters(filters ...route.Filter) Option {
	return func(s *settings) {
		s.filters = append(s.filters, filters...)
	}
}
