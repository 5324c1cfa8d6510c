// Package cascada is the public surface of the engine (spec §6): an
// Environment configured through functional options, wrapping the internal
// eval.Evaluator, and the three render entry points for the template and
// script dialects.
package cascada

import (
	"context"

	"github.com/cascada-go/cascada/eval"
	"github.com/cascada-go/cascada/loader"
	"github.com/cascada-go/cascada/registry"
)

// Environment owns a filter/test/extension registry and an optional
// template loader; it is safe for concurrent Render* calls once
// configuration (AddFilter/AddTest/AddExtension) is finished (spec §5
// "Shared-resource policy").
type Environment struct {
	registry *registry.Registry
	loader   loader.Loader
	ev       *eval.Evaluator
}

// Option configures an Environment at construction time, the way the
// teacher's parser.ParseOption configures a parser (SPEC_FULL.md §A).
type Option func(*Environment)

// WithLoader sets the Loader used to resolve {% include %}/{% extends %}
// and RenderTemplate names. Without one, those operations fail with
// TemplateNotFoundError.
func WithLoader(l loader.Loader) Option {
	return func(e *Environment) { e.loader = l }
}

// New builds an Environment, applying opts in order.
func New(opts ...Option) *Environment {
	e := &Environment{registry: registry.New()}
	for _, opt := range opts {
		opt(e)
	}
	e.ev = eval.New(e.registry, e.loader)
	return e
}

// AddFilter registers a `| name(...)` filter. Must happen before any
// Render* call begins (spec §5).
func (e *Environment) AddFilter(name string, fn registry.FilterFunc) {
	e.registry.AddFilter(name, fn)
}

// AddTest registers an `is name` test.
func (e *Environment) AddTest(name string, fn registry.TestFunc) {
	e.registry.AddTest(name, fn)
}

// AddExtension registers a custom tag extension.
func (e *Environment) AddExtension(ext registry.Extension) {
	e.registry.AddExtension(ext)
}

// RenderString renders src (template dialect) under vars, a plain map of
// top-level variables that may hold synchronous values, *deferred.Value, or
// eval.Func callables.
func (e *Environment) RenderString(ctx context.Context, name, src string, vars map[string]any) (string, error) {
	return e.ev.RenderString(ctx, name, src, eval.RootFrame(vars))
}

// RenderTemplate loads name through the configured Loader and renders it.
func (e *Environment) RenderTemplate(ctx context.Context, name string, vars map[string]any) (string, error) {
	return e.ev.RenderTemplate(ctx, name, eval.RootFrame(vars))
}

// RenderScriptString parses and runs src as a script-dialect program,
// returning the structured-data tree built by its `@handle.path` commands
// (spec §4.9).
func (e *Environment) RenderScriptString(ctx context.Context, name, src string, vars map[string]any) (any, error) {
	return e.ev.RenderScript(ctx, name, src, eval.RootFrame(vars))
}
