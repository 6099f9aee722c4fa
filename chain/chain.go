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

// Package chain runs an ordered list of continuation-passing steps.
//
// Each step receives a proceed function and must call it to let the next step
// run. A step that never calls proceed halts the run for good; a step that
// calls proceed with an error aborts the remaining steps and hands the error
// to the failure callback. Once every step has proceeded, the final callback
// runs exactly once.
//
// Steps may call proceed later, from another goroutine. Every Run owns its own
// state, so concurrent runs of the same Runner never interfere.
//
//	r := chain.New(steps, func(c *Conn) { serve(c) }, func(c *Conn, err error) { fail(c, err) })
//	run := r.Run(conn)
//	run.State() // Pending, Invoking, Done or Errored
package chain

import "sync"

// State is the position of a run in its lifecycle.
type State int

const (
	// Pending means a step is running or waiting to proceed.
	Pending State = iota
	// Invoking means every step proceeded and the final callback is running.
	Invoking
	// Done means the final callback returned.
	Done
	// Errored means a step proceeded with an error.
	Errored
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Invoking:
		return "invoking"
	case Done:
		return "done"
	case Errored:
		return "errored"
	}
	return "unknown"
}

// Step is one link of the chain.
type Step[C any] func(c C, proceed func(error))

// Runner holds the immutable definition of a chain.
type Runner[C any] struct {
	steps []Step[C]
	final func(C)
	fail  func(C, error)
}

// New creates a runner. A nil fail callback drops errors.
func New[C any](steps []Step[C], final func(C), fail func(C, error)) *Runner[C] {
	return &Runner[C]{
		steps: steps,
		final: final,
		fail:  fail,
	}
}

// Len returns the number of steps.
func (r *Runner[C]) Len() int {
	return len(r.steps)
}

// Run starts a new run for c and returns once the run has finished or a
// step has stopped without proceeding.
func (r *Runner[C]) Run(c C) *Run[C] {
	run := &Run[C]{runner: r, ctx: c}
	run.advance(0)
	return run
}

// Run is the state of one execution.
type Run[C any] struct {
	mu     sync.Mutex
	runner *Runner[C]
	ctx    C
	index  int
	state  State
	err    error
}

// State returns the current state.
func (run *Run[C]) State() State {
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.state
}

// Step returns the index of the step waiting to proceed.
func (run *Run[C]) Step() int {
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.index
}

// Err returns the error the run was aborted with.
func (run *Run[C]) Err() error {
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.err
}

func (run *Run[C]) advance(i int) {
	if i >= len(run.runner.steps) {
		run.mu.Lock()
		run.state = Invoking
		run.mu.Unlock()

		if run.runner.final != nil {
			run.runner.final(run.ctx)
		}

		run.mu.Lock()
		run.state = Done
		run.mu.Unlock()
		return
	}

	run.mu.Lock()
	run.index = i
	run.mu.Unlock()

	run.runner.steps[i](run.ctx, func(err error) {
		run.proceed(i, err)
	})
}

// proceed ignores calls from steps that already proceeded.
func (run *Run[C]) proceed(i int, err error) {
	run.mu.Lock()
	if run.state != Pending || run.index != i {
		run.mu.Unlock()
		return
	}

	if err != nil {
		run.state = Errored
		run.err = err
		run.mu.Unlock()

		if run.runner.fail != nil {
			run.runner.fail(run.ctx, err)
		}
		return
	}

	run.index = i + 1
	run.mu.Unlock()

	run.advance(i + 1)
}
