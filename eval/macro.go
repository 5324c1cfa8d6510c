package eval

import (
	"github.com/cascada-go/cascada/ast"
	"github.com/cascada-go/cascada/deferred"
	"github.com/cascada-go/cascada/errors"
	"github.com/cascada-go/cascada/frame"
	"github.com/cascada-go/cascada/outbuf"
)

// argVal is one evaluated call argument, keeping its keyword name (if any)
// alongside the awaited value so macro invocation can bind by name or
// position (spec §4.6).
type argVal struct {
	name  string
	value any
}

// macroValue is the callable a {% macro %} statement binds its name to
// (spec §3 "Macro captures the frame at definition site", §9 "A macro value
// is { params, defaults, body, definingFrame }").
type macroValue struct {
	name     string
	params   []ast.MacroParam
	body     []ast.Node
	defFrame *frame.Frame
	tmplName string
}

// callerValue wraps the frame.Caller closure bound by {% call %} so it can
// flow through the same Call-expression evaluation path as any other
// callable (spec §4.6).
type callerValue struct {
	fn frame.Caller
}

// invoke runs the macro: opens a child of its definition-site frame, binds
// parameters (by name first, then position) and defaults, optionally binds
// caller, and renders the body to a string.
func (mv *macroValue) invoke(e env, args []argVal, caller frame.Caller) (string, error) {
	child := mv.defFrame.Child()
	if caller != nil {
		child.PushCaller(caller)
	}

	used := make([]bool, len(args))
	nextPositional := 0
	for _, p := range mv.params {
		var bound any
		found := false
		for i, a := range args {
			if a.name != "" && a.name == p.Name {
				bound, used[i] = a.value, true
				found = true
				break
			}
		}
		if !found {
			for nextPositional < len(args) {
				if args[nextPositional].name != "" {
					nextPositional++
					continue
				}
				bound, used[nextPositional] = args[nextPositional].value, true
				nextPositional++
				found = true
				break
			}
		}
		if !found {
			if p.Default != nil {
				defEnv := e.withFrame(child)
				v, err := defEnv.evalExprValue(p.Default)
				if err != nil {
					return "", err
				}
				bound = v
			} else {
				return "", errors.NewRuntimeError(errMissingArg(mv.name, p.Name))
			}
		}
		child.SetShadow(p.Name, deferred.Resolved(bound))
	}

	bodyEnv := env{ctx: e.ctx, ev: e.ev, fr: child, tmpl: mv.tmplName}
	out := outbuf.New()
	if err := bodyEnv.execBody(out, mv.body); err != nil {
		return "", err
	}
	return out.Flush(e.ctx)
}

func errMissingArg(macro, param string) error {
	return &missingArgError{macro: macro, param: param}
}

type missingArgError struct {
	macro, param string
}

func (e *missingArgError) Error() string {
	return "macro " + e.macro + " missing required argument " + e.param
}
