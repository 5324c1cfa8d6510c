// Package frame implements the engine's lexical scope chain (spec §3, §4.3):
// a stack of name -> deferred.Value bindings with parent links, shadowing
// rules that differ between the template and script dialects, and the
// caller-closure stack that backs {% call %} / caller() (spec §4.6, §9).
package frame

import (
	"fmt"

	"github.com/cascada-go/cascada/deferred"
)

// Caller is the callable a {% call %} block compiles its body into. It is
// pushed onto the invocation frame under the name "caller" and popped when
// the call block's macro invocation returns (spec §4.6).
type Caller func() (*deferred.Value, error)

// Frame is one lexical scope: the template root, a macro invocation, a for
// iteration, a block entry, or a capture. Frames are created and destroyed
// exactly at those lexical boundaries (spec §3 "Frame (scope)").
type Frame struct {
	parent   *Frame
	bindings map[string]*deferred.Value
	declared map[string]bool // script dialect only: names introduced by `var`
	caller   Caller
	hasCaller bool
}

// New creates the root frame of a render.
func New() *Frame {
	return &Frame{bindings: make(map[string]*deferred.Value)}
}

// Child opens a new frame whose parent is f. Used at macro invocation, for
// iteration, block entry, and capture entry (spec §3 "Lifecycle").
func (f *Frame) Child() *Frame {
	return &Frame{parent: f, bindings: make(map[string]*deferred.Value)}
}

// Lookup walks the parent chain and returns the nearest binding for name.
func (f *Frame) Lookup(name string) (*deferred.Value, bool) {
	for s := f; s != nil; s = s.parent {
		if v, ok := s.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// SetShadow creates-or-overwrites name in the innermost frame, the
// template-dialect `{% set %}` rule (spec §4.3): "always shadowing in the
// innermost frame. Shadowing is allowed."
func (f *Frame) SetShadow(name string, v *deferred.Value) {
	f.bindings[name] = v
}

// Declare implements the script dialect's `var` rule (spec §4.3): it
// declares name in the current frame, and rejects redeclaration of a name
// visible from any enclosing frame.
func (f *Frame) Declare(name string, v *deferred.Value) error {
	if _, ok := f.Lookup(name); ok {
		return fmt.Errorf("variable %q is already declared in an enclosing scope", name)
	}
	if f.declared == nil {
		f.declared = make(map[string]bool)
	}
	f.bindings[name] = v
	f.declared[name] = true
	return nil
}

// Assign implements the script dialect's bare `x = expr` rule: x must
// already be declared somewhere reachable, and the binding is updated in
// the frame that declared it (not shadowed in the current frame).
func (f *Frame) Assign(name string, v *deferred.Value) error {
	for s := f; s != nil; s = s.parent {
		if _, ok := s.bindings[name]; ok {
			s.bindings[name] = v
			return nil
		}
	}
	return fmt.Errorf("Cannot assign to undeclared variable %q", name)
}

// Extern declares name as bound from the caller's context, script dialect
// `extern a, b` (spec §4.3). It behaves like Declare but without an initial
// value; the binding must already exist in an enclosing frame (the caller's
// context) or it is bound to a fulfilled-nullish placeholder so lookups
// don't error before the caller actually supplies a value.
func (f *Frame) Extern(name string) {
	if _, ok := f.Lookup(name); !ok {
		f.bindings[name] = deferred.Resolved(nil)
		return
	}
	// Re-bind a thin alias in the current frame to the enclosing value so
	// PushCaller-style shadowing of `extern` names still resolves locally.
	v, _ := f.Lookup(name)
	f.bindings[name] = v
}

// PushCaller binds c under the name "caller" in this frame only — "each
// {% call %} shadows the prior caller only within its own macro activation"
// (spec §4.6). Nested callers therefore compose naturally: a macro body
// resolves "caller" through Caller, which walks the parent chain to the
// nearest enclosing PushCaller without needing a separate stack.
func (f *Frame) PushCaller(c Caller) {
	f.caller = c
	f.hasCaller = true
}

// Caller returns the nearest enclosing caller-closure, and whether one is
// bound at all. Evaluating `caller` with none bound yields nullish (spec
// §4.6): the evaluator is responsible for turning the `ok == false` case
// into the falsy "unbound" sentinel rather than a lookup error.
func (f *Frame) Caller() (Caller, bool) {
	for s := f; s != nil; s = s.parent {
		if s.hasCaller {
			return s.caller, true
		}
	}
	return nil, false
}
