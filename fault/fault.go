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

// Package fault holds the error taxonomy shared by routes, wares and the depot.
//
// Three kinds exist:
//   - configuration errors, raised at declaration time (missing coupler
//     members, controllers without routes, invalid ware names, empty welds)
//   - resolution errors, raised while building callables (unknown handler
//     names, built wares that are not functions)
//   - chain errors, which are never returned; they travel through a
//     request's continuation into the transport's error path
//
// All three unwrap to their cause and match their kind with errors.Is:
//
//	if errors.Is(err, fault.ErrConfiguration) { ... }
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks declaration-time failures.
	ErrConfiguration = errors.New("configuration error")

	// ErrResolution marks failures while building handlers.
	ErrResolution = errors.New("resolution error")

	// ErrChain marks errors handed to a wrapper continuation.
	ErrChain = errors.New("chain error")
)

// Error carries the kind, where it happened and what was being done.
type Error struct {
	Kind      error  // One of ErrConfiguration, ErrResolution, ErrChain
	Source    string // Component that failed (e.g. "depot", "route GET /users")
	Operation string // Operation in progress (e.g. "controller", "resolve")
	Err       error  // Underlying cause
}

// Error formats the error with its context.
func (e *Error) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%v during %s: %v", e.Kind, e.Operation, e.Err)
	}
	return fmt.Sprintf("%v in %s during %s: %v", e.Kind, e.Source, e.Operation, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Configuration creates a configuration error.
func Configuration(source, operation string, err error) *Error {
	return &Error{Kind: ErrConfiguration, Source: source, Operation: operation, Err: err}
}

// Configurationf creates a configuration error from a format string.
func Configurationf(source, operation, format string, args ...any) *Error {
	return Configuration(source, operation, fmt.Errorf(format, args...))
}

// Resolution creates a resolution error.
func Resolution(source, operation string, err error) *Error {
	return &Error{Kind: ErrResolution, Source: source, Operation: operation, Err: err}
}

// Chain creates a chain error for an error a wrapper passed to its continuation.
func Chain(source string, err error) *Error {
	return &Error{Kind: ErrChain, Source: source, Operation: "proceed", Err: err}
}
