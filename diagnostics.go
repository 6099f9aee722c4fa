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

// DiagnosticEvent describes something noteworthy that happened while
// registering or coupling entries. Diagnostics are informational; the depot
// behaves the same whether they are collected or not.
type DiagnosticEvent struct {
	Kind    DiagnosticKind
	Message string
	Fields  map[string]any // Structured context
}

// DiagnosticKind categorizes diagnostic events.
type DiagnosticKind string

const (
	// Registration diagnostics
	DiagRouteRegistered DiagnosticKind = "route_registered"
	DiagRouteVetoed     DiagnosticKind = "route_vetoed"

	// Coupling diagnostics
	DiagEntryCoupled DiagnosticKind = "entry_coupled"
	DiagEntrySkipped DiagnosticKind = "entry_skipped"
)

// DiagnosticHandler receives diagnostic events from the depot.
//
// Example with logging:
//
//	handler := depot.DiagnosticHandlerFunc(func(e depot.DiagnosticEvent) {
//	    slog.Info(e.Message, "kind", e.Kind, "fields", e.Fields)
//	})
//	d := depot.MustNew(coupler, depot.WithDiagnostics(handler))
type DiagnosticHandler interface {
	OnDiagnostic(DiagnosticEvent)
}

// DiagnosticHandlerFunc is a function adapter for DiagnosticHandler.
type DiagnosticHandlerFunc func(DiagnosticEvent)

func (f DiagnosticHandlerFunc) OnDiagnostic(e DiagnosticEvent) {
	f(e)
}

// emit sends a diagnostic event if a handler is configured.
func (d *Depot[T]) emit(kind DiagnosticKind, message string, fields map[string]any) {
	if d.diagnostics != nil {
		d.diagnostics.OnDiagnostic(DiagnosticEvent{
			Kind:    kind,
			Message: message,
			Fields:  fields,
		})
	}
}
