// Package eval implements the async evaluator (spec §4.4): it walks the
// github.com/cascada-go/cascada/ast tree produced by package parser/script,
// resolving every expression through github.com/cascada-go/cascada/deferred,
// binding names through github.com/cascada-go/cascada/frame, and assembling
// output through github.com/cascada-go/cascada/outbuf. Its shape — one
// evalX per expression Kind, one execX per statement Kind, a shared
// Evaluator holding the registries and loader — mirrors the teacher's
// forked text/template execution model (one case per Node kind in a single
// big walker), generalized to return (value, error) pairs suspendable at
// any point instead of writing straight to an io.Writer.
package eval

import (
	"context"
	"fmt"
	"sync"

	"github.com/cascada-go/cascada/ast"
	"github.com/cascada-go/cascada/errors"
	"github.com/cascada-go/cascada/frame"
	"github.com/cascada-go/cascada/loader"
	"github.com/cascada-go/cascada/outbuf"
	"github.com/cascada-go/cascada/parser"
	"github.com/cascada-go/cascada/registry"
)

// Evaluator owns the state shared across renders: the filter/test/extension
// registry, the template loader, and a mutex-guarded parsed-AST cache keyed
// by template name (this engine has one loader per Evaluator, so name alone
// is a sufficient key).
type Evaluator struct {
	Registry *registry.Registry
	Loader   loader.Loader

	mu    sync.Mutex
	cache map[string]*ast.Program
}

// New returns an Evaluator backed by reg and ldr. Either may be nil: a nil
// Registry is replaced by a fresh empty one (so every filter/test/extension
// lookup fails until something is registered), a nil Loader rejects every
// include/extends.
func New(reg *registry.Registry, ldr loader.Loader) *Evaluator {
	if reg == nil {
		reg = registry.New()
	}
	return &Evaluator{Registry: reg, Loader: ldr, cache: make(map[string]*ast.Program)}
}

// env bundles the state threaded through every evalExpr/execStmt call: the
// ambient context, the owning Evaluator, the current variable frame, and
// (when rendering occurs inside a {% block %} override chain) the
// super()-resolution state.
type env struct {
	ctx    context.Context
	ev     *Evaluator
	fr     *frame.Frame
	tmpl   string
	blocks map[string][]*ast.Block // the full override chain for this render
	bf     *blockFrame             // non-nil while rendering inside a block override, for super()
}

func (e env) withFrame(fr *frame.Frame) env {
	e.fr = fr
	return e
}

func (e env) withBlockFrame(bf *blockFrame) env {
	e.bf = bf
	return e
}

// blockFrame tracks the position within a {% block %} override chain so
// super() can step outward to the next ancestor (spec §4.7). idx indexes
// env.blocks[name], most-derived (0) to base-most (len-1).
type blockFrame struct {
	name string
	idx  int
}

// RenderProgram renders a parsed template-dialect Program to a string (spec
// §6 "renderString"/"renderTemplate"). templateName is used for error
// locations; include/extends names are passed to the Loader as written, not
// resolved relative to templateName.
func (ev *Evaluator) RenderProgram(ctx context.Context, templateName string, prog *ast.Program, fr *frame.Frame) (string, error) {
	e := env{ctx: ctx, ev: ev, fr: fr, tmpl: templateName}
	chain, base, err := ev.resolveInheritance(e, prog)
	if err != nil {
		return "", err
	}
	e.blocks = chain
	out := outbuf.New()
	if err := e.execBody(out, base.Body); err != nil {
		return "", err
	}
	return out.Flush(ctx)
}

// RenderString parses src under templateName and renders it immediately.
func (ev *Evaluator) RenderString(ctx context.Context, templateName, src string, fr *frame.Frame) (string, error) {
	prog, err := parser.Parse(templateName, src, ev.Registry)
	if err != nil {
		return "", err
	}
	return ev.RenderProgram(ctx, templateName, prog, fr)
}

// RenderTemplate loads name through the Evaluator's Loader and renders it.
func (ev *Evaluator) RenderTemplate(ctx context.Context, name string, fr *frame.Frame) (string, error) {
	if ev.Loader == nil {
		return "", errors.NewTemplateNotFoundError(name, fmt.Errorf("no loader configured"))
	}
	src, err := ev.Loader.GetSource(name)
	if err != nil {
		return "", err
	}
	prog, err := ev.parseCached(src.Path, src.Src)
	if err != nil {
		return "", err
	}
	return ev.RenderProgram(ctx, src.Path, prog, fr)
}

// parseCached parses src under name, memoizing the result under ev.mu
// (since ast.Node trees are never mutated after construction, returning the
// same *ast.Program to every caller is safe without copying).
func (ev *Evaluator) parseCached(name, src string) (*ast.Program, error) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	if prog, ok := ev.cache[name]; ok {
		return prog, nil
	}
	prog, err := parser.Parse(name, src, ev.Registry)
	if err != nil {
		return nil, err
	}
	ev.cache[name] = prog
	return prog, nil
}

// resolveInheritance walks the `{% extends %}` chain starting at prog,
// collecting every level's `{% block %}` definitions keyed by name
// (most-derived first), and returns the base-most Program whose top-level
// Body is what actually gets rendered (spec §4.7 "Multi-level inheritance
// chains traverse parent-most -> child-most, with each level's blocks
// overriding").
func (ev *Evaluator) resolveInheritance(e env, prog *ast.Program) (map[string][]*ast.Block, *ast.Program, error) {
	chain := make(map[string][]*ast.Block)
	cur := prog
	for {
		var ext *ast.Extends
		for _, n := range cur.Body {
			switch s := n.(type) {
			case *ast.Block:
				chain[s.Name] = append(chain[s.Name], s)
			case *ast.Extends:
				if ext == nil {
					ext = s
				}
			}
		}
		if ext == nil {
			return chain, cur, nil
		}
		nameVal, err := e.evalExprValue(ext.Expr)
		if err != nil {
			return nil, nil, err
		}
		name, ok := nameVal.(string)
		if !ok {
			return nil, nil, errors.NewTypeError("extends expects a string template name, got %T", nameVal)
		}
		if ev.Loader == nil {
			return nil, nil, errors.NewTemplateNotFoundError(name, fmt.Errorf("no loader configured"))
		}
		src, err := ev.Loader.GetSource(name)
		if err != nil {
			return nil, nil, err
		}
		parent, err := ev.parseCached(src.Path, src.Src)
		if err != nil {
			return nil, nil, err
		}
		cur = parent
	}
}
