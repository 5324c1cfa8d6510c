package eval

import (
	"fmt"

	"github.com/cascada-go/cascada/ast"
	"github.com/cascada-go/cascada/deferred"
	"github.com/cascada-go/cascada/errors"
	"github.com/cascada-go/cascada/outbuf"
	"github.com/cascada-go/cascada/registry"
	"github.com/cascada-go/cascada/token"
)

// eval walks an expression node and returns a Value representing its
// eventual result — "every expression evaluator returns a DeferredValue"
// (spec §4.4). Leaf lookups return the frame's own Value with no extra
// goroutine hop; composite nodes launch their combining work via
// deferred.Of so independent children (already in-flight Values from
// earlier eval calls) are joined rather than re-evaluated serially.
func (e env) eval(n ast.Node) *deferred.Value {
	switch node := n.(type) {
	case *ast.Literal:
		return deferred.Resolved(literalValue(node))
	case *ast.Symbol:
		return e.evalSymbol(node)
	case *ast.Lookup:
		return e.evalLookup(node)
	case *ast.Call:
		return e.evalCall(node)
	case *ast.FilterCall:
		return e.evalFilterCall(node)
	case *ast.TestCall:
		return e.evalTestCall(node)
	case *ast.BinOp:
		return e.evalBinOp(node)
	case *ast.UnaryOp:
		return e.evalUnaryOp(node)
	case *ast.Logical:
		return e.evalLogical(node)
	case *ast.Ternary:
		return e.evalTernary(node)
	case *ast.Compare:
		return e.evalCompare(node)
	case *ast.InOp:
		return e.evalInOp(node)
	case *ast.Array:
		return e.evalArray(node)
	case *ast.Dict:
		return e.evalDict(node)
	case *ast.Group:
		return e.evalGroup(node)
	case *ast.Super:
		return e.evalSuper(node)
	default:
		return deferred.Rejected(errors.WrapRuntimeError(e.tmpl, n.Pos(), fmt.Errorf("%T is not an expression", n)))
	}
}

// evalExprValue evaluates n and awaits the result, the convenience path
// every statement executor uses when it just needs the value.
func (e env) evalExprValue(n ast.Node) (any, error) {
	return deferred.Await(e.ctx, e.eval(n))
}

func literalValue(n *ast.Literal) any {
	switch n.LitKind {
	case ast.LitNil:
		return nil
	case ast.LitBool:
		return n.Bool
	case ast.LitInt:
		return n.Int
	case ast.LitFloat:
		return n.Float
	case ast.LitString:
		return n.Str
	}
	return nil
}

func (e env) evalSymbol(n *ast.Symbol) *deferred.Value {
	if n.Name == "caller" {
		c, ok := e.fr.Caller()
		if !ok {
			return deferred.Resolved(nil) // unbound caller is falsy (spec §4.6)
		}
		return deferred.Resolved(&callerValue{fn: c})
	}
	v, ok := e.fr.Lookup(n.Name)
	if !ok {
		return deferred.Rejected(errors.NewNameError(e.tmpl, n.Pos(), "Can not look up unknown variable %q", n.Name))
	}
	return v
}

func (e env) evalLookup(n *ast.Lookup) *deferred.Value {
	targetV := e.eval(n.Target)
	return deferred.Of(func() (any, error) {
		target, err := deferred.Await(e.ctx, targetV)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, nil // attribute lookup on nullish yields nullish (spec §3 Invariants)
		}
		if n.Key != nil {
			key, err := e.evalExprValue(n.Key)
			if err != nil {
				return nil, err
			}
			return lookupKey(target, key)
		}
		return lookupAttr(target, n.Attr)
	})
}

func lookupAttr(target any, attr string) (any, error) {
	switch t := target.(type) {
	case map[string]any:
		v, ok := t[attr]
		if !ok {
			return nil, nil
		}
		return v, nil
	default:
		return nil, errors.NewTypeError("cannot access attribute %q of %T", attr, target)
	}
}

func lookupKey(target, key any) (any, error) {
	switch t := target.(type) {
	case map[string]any:
		ks, ok := key.(string)
		if !ok {
			return nil, errors.NewTypeError("mapping key must be a string, got %T", key)
		}
		v, ok := t[ks]
		if !ok {
			return nil, nil
		}
		return v, nil
	case []any:
		idx, ok := key.(int64)
		if !ok {
			return nil, errors.NewTypeError("array index must be an integer, got %T", key)
		}
		if idx < 0 {
			idx += int64(len(t))
		}
		if idx < 0 || idx >= int64(len(t)) {
			return nil, nil
		}
		return t[idx], nil
	case string:
		idx, ok := key.(int64)
		if !ok {
			return nil, errors.NewTypeError("string index must be an integer, got %T", key)
		}
		runes := []rune(t)
		if idx < 0 {
			idx += int64(len(runes))
		}
		if idx < 0 || idx >= int64(len(runes)) {
			return nil, nil
		}
		return string(runes[idx]), nil
	default:
		return nil, errors.NewTypeError("cannot index into %T", target)
	}
}

func (e env) evalArgs(args []ast.Arg) ([]*deferred.Value, []string) {
	vals := make([]*deferred.Value, len(args))
	names := make([]string, len(args))
	for i, a := range args {
		vals[i] = e.eval(a.Value)
		names[i] = a.Name
	}
	return vals, names
}

func (e env) awaitArgs(argVs []*deferred.Value, names []string) ([]argVal, error) {
	results, err := deferred.All(e.ctx, argVs...)
	if err != nil {
		return nil, err
	}
	out := make([]argVal, len(results))
	for i, r := range results {
		out[i] = argVal{name: names[i], value: r}
	}
	return out, nil
}

func (e env) evalCall(n *ast.Call) *deferred.Value {
	calleeV := e.eval(n.Callee)
	argVs, names := e.evalArgs(n.Args)
	return deferred.Of(func() (any, error) {
		callee, err := deferred.Await(e.ctx, calleeV)
		if err != nil {
			return nil, err
		}
		args, err := e.awaitArgs(argVs, names)
		if err != nil {
			return nil, err
		}
		return e.invokeCallable(callee, args)
	})
}

func (e env) invokeCallable(callee any, args []argVal) (any, error) {
	switch c := callee.(type) {
	case Func:
		vals := make([]any, len(args))
		for i, a := range args {
			vals[i] = a.value
		}
		r, err := c(e.ctx, vals)
		if err != nil {
			return nil, err
		}
		if dv, ok := r.(*deferred.Value); ok {
			return deferred.Await(e.ctx, dv)
		}
		return r, nil
	case *macroValue:
		return c.invoke(e, args, nil)
	case *callerValue:
		dv, err := c.fn()
		if err != nil {
			return nil, err
		}
		return deferred.Await(e.ctx, dv)
	case nil:
		return nil, errors.NewTypeError("attempt to call a nil value")
	default:
		return nil, errors.NewTypeError("value of type %T is not callable", callee)
	}
}

func (e env) evalFilterCall(n *ast.FilterCall) *deferred.Value {
	inputV := e.eval(n.Input)
	argVs, names := e.evalArgs(n.Args)
	return deferred.Of(func() (any, error) {
		handler, ok := e.ev.Registry.Filter(n.Name)
		if !ok {
			return nil, errors.WrapRuntimeError(e.tmpl, n.Pos(), registry.ErrUnknownFilter(n.Name))
		}
		input, err := deferred.Await(e.ctx, inputV)
		if err != nil {
			return nil, err
		}
		args, err := e.awaitArgs(argVs, names)
		if err != nil {
			return nil, err
		}
		vals := make([]any, len(args))
		for i, a := range args {
			vals[i] = a.value
		}
		return handler(e.ctx, input, vals)
	})
}

func (e env) evalTestCall(n *ast.TestCall) *deferred.Value {
	inputV := e.eval(n.Input)
	argVs, names := e.evalArgs(n.Args)
	return deferred.Of(func() (any, error) {
		handler, ok := e.ev.Registry.Test(n.Name)
		if !ok {
			return nil, errors.WrapRuntimeError(e.tmpl, n.Pos(), registry.ErrUnknownTest(n.Name))
		}
		input, err := deferred.Await(e.ctx, inputV)
		if err != nil {
			return nil, err
		}
		args, err := e.awaitArgs(argVs, names)
		if err != nil {
			return nil, err
		}
		vals := make([]any, len(args))
		for i, a := range args {
			vals[i] = a.value
		}
		result, err := handler(e.ctx, input, vals)
		if err != nil {
			return nil, err
		}
		if n.Negate {
			return !result, nil
		}
		return result, nil
	})
}

func (e env) evalBinOp(n *ast.BinOp) *deferred.Value {
	aV := e.eval(n.A)
	bV := e.eval(n.B)
	return deferred.Of(func() (any, error) {
		vals, err := deferred.All(e.ctx, aV, bV)
		if err != nil {
			return nil, err
		}
		a, b := vals[0], vals[1]
		var result any
		switch n.Op {
		case token.PLUS:
			result, err = add(a, b)
		case token.MINUS:
			result, err = sub(a, b)
		case token.STAR:
			result, err = mul(a, b)
		case token.SLASH:
			result, err = div(a, b)
		case token.DSLASH:
			result, err = floorDiv(a, b)
		case token.PERCENT:
			result, err = mod(a, b)
		case token.POW:
			result, err = pow(a, b)
		default:
			return nil, errors.NewTypeError("unknown binary operator %v", n.Op)
		}
		if err != nil {
			return nil, errors.WrapRuntimeError(e.tmpl, n.Pos(), err)
		}
		return result, nil
	})
}

func (e env) evalUnaryOp(n *ast.UnaryOp) *deferred.Value {
	aV := e.eval(n.A)
	return deferred.Of(func() (any, error) {
		a, err := deferred.Await(e.ctx, aV)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.KW_NOT:
			return !isTruthy(a), nil
		case token.MINUS:
			return negate(a)
		case token.PLUS:
			if !isNumber(a) {
				return nil, errors.NewTypeError("bad operand type for unary +: %T", a)
			}
			return a, nil
		default:
			return nil, errors.NewTypeError("unknown unary operator %v", n.Op)
		}
	})
}

func (e env) evalLogical(n *ast.Logical) *deferred.Value {
	return deferred.Of(func() (any, error) {
		a, err := e.evalExprValue(n.A)
		if err != nil {
			return nil, err
		}
		truthy := isTruthy(a)
		if n.Op == token.KW_AND && !truthy {
			return a, nil
		}
		if n.Op == token.KW_OR && truthy {
			return a, nil
		}
		return e.evalExprValue(n.B)
	})
}

func (e env) evalTernary(n *ast.Ternary) *deferred.Value {
	return deferred.Of(func() (any, error) {
		cond, err := e.evalExprValue(n.Cond)
		if err != nil {
			return nil, err
		}
		if isTruthy(cond) {
			return e.evalExprValue(n.Then)
		}
		return e.evalExprValue(n.Else)
	})
}

func (e env) evalCompare(n *ast.Compare) *deferred.Value {
	return deferred.Of(func() (any, error) {
		left, err := e.evalExprValue(n.First)
		if err != nil {
			return nil, err
		}
		for _, link := range n.Rest {
			right, err := e.evalExprValue(link.Rhs)
			if err != nil {
				return nil, err
			}
			ok, err := compareLink(link.Op, left, right)
			if err != nil {
				return nil, errors.WrapRuntimeError(e.tmpl, n.Pos(), err)
			}
			if !ok {
				return false, nil
			}
			left = right
		}
		return true, nil
	})
}

func compareLink(op token.Kind, a, b any) (bool, error) {
	if op == token.EQ {
		return valuesEqual(a, b), nil
	}
	if op == token.NE {
		return !valuesEqual(a, b), nil
	}
	c, err := compare(a, b)
	if err != nil {
		return false, err
	}
	switch op {
	case token.LT:
		return c < 0, nil
	case token.LE:
		return c <= 0, nil
	case token.GT:
		return c > 0, nil
	case token.GE:
		return c >= 0, nil
	}
	return false, fmt.Errorf("unknown comparison operator %v", op)
}

func (e env) evalInOp(n *ast.InOp) *deferred.Value {
	itemV := e.eval(n.Item)
	seqV := e.eval(n.Seq)
	return deferred.Of(func() (any, error) {
		vals, err := deferred.All(e.ctx, itemV, seqV)
		if err != nil {
			return nil, err
		}
		ok, err := membership(vals[0], vals[1])
		if err != nil {
			return nil, errors.WrapRuntimeError(e.tmpl, n.Pos(), err)
		}
		if n.Negate {
			return !ok, nil
		}
		return ok, nil
	})
}

func (e env) evalArray(n *ast.Array) *deferred.Value {
	itemVs := make([]*deferred.Value, len(n.Items))
	for i, it := range n.Items {
		itemVs[i] = e.eval(it)
	}
	return deferred.Of(func() (any, error) {
		vals, err := deferred.All(e.ctx, itemVs...)
		if err != nil {
			return nil, err
		}
		return vals, nil
	})
}

func (e env) evalDict(n *ast.Dict) *deferred.Value {
	keyVs := make([]*deferred.Value, len(n.Pairs))
	valVs := make([]*deferred.Value, len(n.Pairs))
	for i, p := range n.Pairs {
		keyVs[i] = e.eval(p.Key)
		valVs[i] = e.eval(p.Value)
	}
	return deferred.Of(func() (any, error) {
		keys, err := deferred.All(e.ctx, keyVs...)
		if err != nil {
			return nil, err
		}
		vals, err := deferred.All(e.ctx, valVs...)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(keys))
		for i, k := range keys {
			ks, ok := k.(string)
			if !ok {
				return nil, errors.NewTypeError("mapping key must be a string, got %T", k)
			}
			out[ks] = vals[i]
		}
		return out, nil
	})
}

// evalGroup implements `(a, b, c)`: every item is evaluated (in parallel,
// important when comma-joined promises must all resolve or reject), but the
// value is the last item (spec §4.2).
func (e env) evalGroup(n *ast.Group) *deferred.Value {
	itemVs := make([]*deferred.Value, len(n.Items))
	for i, it := range n.Items {
		itemVs[i] = e.eval(it)
	}
	return deferred.Of(func() (any, error) {
		vals, err := deferred.All(e.ctx, itemVs...)
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			return nil, nil
		}
		return vals[len(vals)-1], nil
	})
}

func (e env) evalSuper(n *ast.Super) *deferred.Value {
	return deferred.Of(func() (any, error) {
		if e.bf == nil {
			return nil, errors.WrapRuntimeError(e.tmpl, n.Pos(), fmt.Errorf("super() called outside a block"))
		}
		chain := e.blocks[e.bf.name]
		nextIdx := e.bf.idx + 1
		if nextIdx >= len(chain) {
			return "", nil
		}
		out := outbuf.New()
		parentEnv := e.withBlockFrame(&blockFrame{name: e.bf.name, idx: nextIdx})
		if err := parentEnv.execBody(out, chain[nextIdx].Body); err != nil {
			return nil, err
		}
		return out.Flush(e.ctx)
	})
}
