// Package registry holds the three pluggable-handler tables the engine
// dispatches through (spec §4.8): filters, tests, and tag extensions.
// The shape — a sync.RWMutex-guarded map of name to handler, with a
// register/lookup method pair per table — is grounded on the decorator registry in
// github.com/aledsdavies/opal's runtime/decorators package, generalized
// from opal's four decorator kinds (value/action/block/pattern) to the
// engine's three handler kinds.
package registry

import (
	"context"
	"fmt"
	"sync"
)

// FilterFunc implements the filter invocation contract (spec §4.8):
// handler(value, ...args) -> value. Handlers that need to suspend return an
// error only for genuine failures; a handler that itself produces a
// deferred value should be adapted with FromCallback first.
type FilterFunc func(ctx context.Context, value any, args []any) (any, error)

// TestFunc implements the test invocation contract: handler(value, ...args)
// -> bool.
type TestFunc func(ctx context.Context, value any, args []any) (bool, error)

// Extension is the tag-extension contract (spec §4.8, §4.2 "Extensions").
// Tags lists every tag name the extension wants to own. The parser itself
// owns the generic `{% name arg, arg ... %} [body {% endname %}]` grammar
// for every registered tag (spec §4.2 "may consume tokens up to
// advanceAfterBlockEnd and may request a body"); Run receives the evaluated
// arguments and, if a body was present, a thunk that renders it.
type Extension interface {
	Tags() []string
	Run(ctx context.Context, rc RunContext, args []any, body func() (string, error)) (any, error)
}

// RunContext is the minimal view of the active render an extension needs;
// it is satisfied by the eval package's runContext (kept here as an interface to avoid a
// registry <-> eval import cycle).
type RunContext interface {
	Lookup(name string) (any, bool)
}

// Registry is the mutable-before-render, read-only-during-render table of
// registered handlers (spec §5 "Shared-resource policy": "addFilter/addTest
// /addExtension must happen before render start").
type Registry struct {
	mu         sync.RWMutex
	filters    map[string]FilterFunc
	tests      map[string]TestFunc
	extensions map[string]Extension
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		filters:    make(map[string]FilterFunc),
		tests:      make(map[string]TestFunc),
		extensions: make(map[string]Extension),
	}
}

// AddFilter registers a filter under name, overwriting any previous
// registration of the same name.
func (r *Registry) AddFilter(name string, fn FilterFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = fn
}

// AddTest registers a test under name.
func (r *Registry) AddTest(name string, fn TestFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tests[name] = fn
}

// AddExtension registers ext under every tag name it declares.
func (r *Registry) AddExtension(ext Extension) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tag := range ext.Tags() {
		r.extensions[tag] = ext
	}
}

// Filter looks up a registered filter by name.
func (r *Registry) Filter(name string) (FilterFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.filters[name]
	return fn, ok
}

// Test looks up a registered test by name.
func (r *Registry) Test(name string) (TestFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tests[name]
	return fn, ok
}

// ExtensionFor looks up the extension registered for a tag name.
func (r *Registry) ExtensionFor(tag string) (Extension, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext, ok := r.extensions[tag]
	return ext, ok
}

// IsTag reports whether tag is owned by a registered extension. The parser
// uses this to decide whether an unrecognized `{% name ... %}` is a custom
// tag or a genuine syntax error.
func (r *Registry) IsTag(tag string) bool {
	_, ok := r.ExtensionFor(tag)
	return ok
}

// FromCallback adapts a legacy callback-style filter, handler(value,
// ...args, cb), into a FilterFunc by wrapping the callback's eventual
// invocation into a channel-backed suspension (spec §4.8 "Legacy
// 'callback' filters ... are adapted by wrapping the callback into a
// deferred").
func FromCallback(legacy func(value any, args []any, cb func(result any, err error))) FilterFunc {
	return func(ctx context.Context, value any, args []any) (any, error) {
		type outcome struct {
			result any
			err    error
		}
		done := make(chan outcome, 1)
		legacy(value, args, func(result any, err error) {
			done <- outcome{result, err}
		})
		select {
		case o := <-done:
			return o.result, o.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// FromCallbackTest is FromCallback's test-contract counterpart.
func FromCallbackTest(legacy func(value any, args []any, cb func(result bool, err error))) TestFunc {
	return func(ctx context.Context, value any, args []any) (bool, error) {
		type outcome struct {
			result bool
			err    error
		}
		done := make(chan outcome, 1)
		legacy(value, args, func(result bool, err error) {
			done <- outcome{result, err}
		})
		select {
		case o := <-done:
			return o.result, o.err
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// ErrUnknownFilter/ErrUnknownTest are returned by the evaluator (wrapped
// with position information) when a name isn't registered.
func ErrUnknownFilter(name string) error { return fmt.Errorf("no filter named %q", name) }
func ErrUnknownTest(name string) error   { return fmt.Errorf("no test named %q", name) }
