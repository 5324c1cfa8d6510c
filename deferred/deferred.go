// Package deferred implements the engine's uniform wrapper over "value now"
// or "value later" (spec §3, §4.4, §9): a tagged variant of pending,
// fulfilled, and rejected states, plus the two scheduling primitives the
// evaluator builds on, Await and All.
//
// The design mirrors the promise-like AsyncResult type in
// github.com/Tangerg/lynx/flow (completion channel + RWMutex + atomic
// completion flag instead of a raw sync.WaitGroup spin), generalized from a
// single generic payload type to the dynamically-typed `any` values a
// template evaluates over, and built for fan-out (many independent
// goroutines filling a large number of short-lived Values per render)
// rather than one long-lived promise per operation.
package deferred

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// State identifies where a Value is in its lifecycle.
type State int32

const (
	Pending State = iota
	Fulfilled
	StateRejected
)

// Value is a value that may not yet be available. The zero Value is not
// usable; construct one with New, Resolved, or Rejected.
type Value struct {
	mu         sync.RWMutex
	state      atomic.Int32
	result     any
	err        error
	done       chan struct{}
	doneClosed atomic.Bool
}

// New returns a pending Value and the resolver used to complete it exactly
// once. Subsequent calls to the resolver after the first are no-ops, the
// same idempotency the teacher's AsyncResult.Set guarantees.
func New() (*Value, func(result any, err error)) {
	v := &Value{done: make(chan struct{})}
	return v, v.complete
}

// Resolved wraps a value that is already available — "a synchronous value
// is trivially a fulfilled deferred" (spec §3).
func Resolved(result any) *Value {
	v := &Value{done: make(chan struct{})}
	v.complete(result, nil)
	return v
}

// Rejected wraps an error that is already known.
func Rejected(err error) *Value {
	v := &Value{done: make(chan struct{})}
	v.complete(nil, err)
	return v
}

func (v *Value) complete(result any, err error) {
	if v.doneClosed.Load() {
		return
	}
	v.mu.Lock()
	if v.doneClosed.Load() {
		v.mu.Unlock()
		return
	}
	v.result, v.err = result, err
	if err != nil {
		v.state.Store(int32(StateRejected))
	} else {
		v.state.Store(int32(Fulfilled))
	}
	v.doneClosed.Store(true)
	close(v.done)
	v.mu.Unlock()
}

// State reports the Value's current lifecycle state without blocking.
func (v *Value) State() State {
	return State(v.state.Load())
}

// Await blocks the calling coroutine until v settles, or ctx is canceled
// first — the engine's `await(d)` operator (spec §3). Every value consumed
// by an arithmetic, comparison, lookup, iteration, output, or truthiness
// test goes through Await first (spec §4.4's "auto-await" rule).
func Await(ctx context.Context, v *Value) (any, error) {
	select {
	case <-v.done:
		v.mu.RLock()
		defer v.mu.RUnlock()
		return v.result, v.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// All evaluates/awaits every element of vs and returns their results in
// order, or the first error encountered — the engine's `all([d1..dn])`
// operator (spec §3). It is the join half of the parallel() scheduling
// primitive (spec §4.4): call sites that want true concurrency must already
// have started independent work (e.g. via Go) before handing the resulting
// Values to All; All itself only blocks until they are all settled.
func All(ctx context.Context, vs ...*Value) ([]any, error) {
	out := make([]any, len(vs))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range vs {
		i, v := i, v
		g.Go(func() error {
			r, err := Await(gctx, v)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Of wraps fn's eventual result as a Value, running fn on its own goroutine
// so the caller can continue scheduling independent work before awaiting it.
// This is the primitive the evaluator's parallel() scheduling uses to launch
// each independent child expression (spec §4.4).
func Of(fn func() (any, error)) *Value {
	v, resolve := New()
	go func() {
		result, err := fn()
		resolve(result, err)
	}()
	return v
}

// Map runs fn over v's eventual result, propagating a rejection without
// calling fn — used to chain a pure transformation (e.g. unary negation)
// onto an already-scheduled Value without spawning another goroutine.
func Map(ctx context.Context, v *Value, fn func(any) (any, error)) *Value {
	return Of(func() (any, error) {
		r, err := Await(ctx, v)
		if err != nil {
			return nil, err
		}
		return fn(r)
	})
}
