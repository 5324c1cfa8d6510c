package eval

import (
	"context"
	"fmt"

	"github.com/cascada-go/cascada/ast"
	"github.com/cascada-go/cascada/deferred"
	"github.com/cascada-go/cascada/errors"
	"github.com/cascada-go/cascada/frame"
	"github.com/cascada-go/cascada/outbuf"
)

// execBody runs a statement sequence against out in source order (spec §4.4
// "sequential(xs)"). Each statement reserves its output slot(s), if any,
// before execBody moves on to the next — the ordering guarantee lives in
// outbuf, not here.
func (e env) execBody(out *outbuf.Buffer, body []ast.Node) error {
	for _, n := range body {
		if err := e.execStmt(out, n); err != nil {
			return err
		}
	}
	return nil
}

func (e env) execStmt(out *outbuf.Buffer, n ast.Node) error {
	switch node := n.(type) {
	case *ast.RawText:
		out.WriteText(node.Text)
		return nil
	case *ast.Output:
		return e.execOutput(out, node)
	case *ast.If:
		return e.execIf(out, node)
	case *ast.For:
		return e.execFor(out, node)
	case *ast.Set:
		return e.execSet(node)
	case *ast.SetBlock:
		return e.execSetBlock(out, node)
	case *ast.Macro:
		return e.execMacro(node)
	case *ast.CallBlock:
		return e.execCallBlock(out, node)
	case *ast.Include:
		return e.execInclude(out, node)
	case *ast.Extends:
		return nil // consumed by resolveInheritance before execBody ever runs
	case *ast.Block:
		return e.execBlockStmt(out, node)
	case *ast.Switch:
		return e.execSwitch(out, node)
	case *ast.Do:
		_, err := e.evalExprValue(node.Expr)
		return err
	case *ast.Capture:
		return e.execCapture(out, node)
	case *ast.ExtensionCall:
		return e.execExtensionCall(out, node)
	case *ast.DataCommand:
		return e.execDataCommand(out, node)
	default:
		return errors.WrapRuntimeError(e.tmpl, n.Pos(), fmt.Errorf("%T is not a statement", n))
	}
}

// execOutput reserves the slot at the statement's lexical position, then
// lets the expression resolve asynchronously (spec §4.5).
func (e env) execOutput(out *outbuf.Buffer, node *ast.Output) error {
	v := e.eval(node.Expr)
	out.ReserveDeferred(deferred.Map(e.ctx, v, func(r any) (any, error) {
		return stringify(r), nil
	}))
	return nil
}

func (e env) execIf(out *outbuf.Buffer, node *ast.If) error {
	for _, br := range node.Branches {
		cond, err := e.evalExprValue(br.Cond)
		if err != nil {
			return err
		}
		if isTruthy(cond) {
			return e.execBody(out, br.Body)
		}
	}
	if node.Else != nil {
		return e.execBody(out, node.Else)
	}
	return nil
}

func (e env) execFor(out *outbuf.Buffer, node *ast.For) error {
	iterVal, err := e.evalExprValue(node.Iter)
	if err != nil {
		return err
	}
	items, err := drainIterable(e.ctx, iterVal)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		if node.ElseBody != nil {
			return e.execBody(out, node.ElseBody)
		}
		return nil
	}
	n := len(items)
	for i, it := range items {
		child := e.fr.Child()
		bindForTargets(child, node.Targets, it)
		loopInfo := map[string]any{
			"index":     int64(i + 1),
			"index0":    int64(i),
			"first":     i == 0,
			"last":      i == n-1,
			"length":    int64(n),
			"revindex":  int64(n - i),
			"revindex0": int64(n - i - 1),
		}
		child.SetShadow("loop", deferred.Resolved(loopInfo))
		if err := e.withFrame(child).execBody(out, node.Body); err != nil {
			return err
		}
	}
	return nil
}

// drainIterable eagerly consumes node.Iter's value into a slice — the
// eager-drain option spec §9's Open Question on loop.length permits
// explicitly as an alternative to a lazy deferred length (see DESIGN.md).
func drainIterable(ctx context.Context, v any) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return t, nil
	case map[string]any:
		keys := sortedKeys(t)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = []any{k, t[k]}
		}
		return out, nil
	case string:
		runes := []rune(t)
		out := make([]any, len(runes))
		for i, r := range runes {
			out[i] = string(r)
		}
		return out, nil
	case Generator:
		var out []any
		for {
			val, done, err := t.Next(ctx)
			if err != nil {
				return nil, err
			}
			if done {
				break
			}
			out = append(out, val)
		}
		return out, nil
	default:
		return nil, errors.NewTypeError("value of type %T is not iterable", v)
	}
}

func bindForTargets(fr *frame.Frame, targets []string, item any) {
	if len(targets) == 1 {
		fr.SetShadow(targets[0], deferred.Resolved(item))
		return
	}
	pair, ok := item.([]any)
	if !ok || len(pair) != len(targets) {
		for _, t := range targets {
			fr.SetShadow(t, deferred.Resolved(nil))
		}
		return
	}
	for i, t := range targets {
		fr.SetShadow(t, deferred.Resolved(pair[i]))
	}
}

func (e env) execSet(node *ast.Set) error {
	if node.Mode == ast.SetExtern {
		for _, name := range node.Targets {
			e.fr.Extern(name)
		}
		return nil
	}

	v, err := e.evalExprValue(node.Expr)
	if err != nil {
		return err
	}
	for _, name := range node.Targets {
		dv := deferred.Resolved(v)
		switch node.Mode {
		case ast.SetShadow:
			e.fr.SetShadow(name, dv)
		case ast.SetDeclare:
			if err := e.fr.Declare(name, dv); err != nil {
				return errors.NewNameError(e.tmpl, node.Pos(), "%s", err.Error())
			}
		case ast.SetAssign:
			if err := e.fr.Assign(name, dv); err != nil {
				return errors.NewNameError(e.tmpl, node.Pos(), "%s", err.Error())
			}
		default:
			return errors.WrapRuntimeError(e.tmpl, node.Pos(), fmt.Errorf("unknown set mode %v", node.Mode))
		}
	}
	return nil
}

// execSetBlock implements `{% set name %}body{% endset %}`: the body
// renders into its own buffer, and the flattened string is bound to name
// (spec §4.5 "Capture slots").
func (e env) execSetBlock(out *outbuf.Buffer, node *ast.SetBlock) error {
	child := outbuf.New()
	if err := e.execBody(child, node.Body); err != nil {
		return err
	}
	s, err := child.Flush(e.ctx)
	if err != nil {
		return err
	}
	e.fr.SetShadow(node.Name, deferred.Resolved(s))
	return nil
}

func (e env) execMacro(node *ast.Macro) error {
	mv := &macroValue{
		name:     node.Name,
		params:   node.Params,
		body:     node.Body,
		defFrame: e.fr,
		tmplName: e.tmpl,
	}
	e.fr.SetShadow(node.Name, deferred.Resolved(mv))
	return nil
}

// execCallBlock implements `{% call M(args) %}body{% endcall %}` (spec
// §4.6): the caller closure renders CallerBody using the call site's own
// frame, not the macro's invocation frame.
func (e env) execCallBlock(out *outbuf.Buffer, node *ast.CallBlock) error {
	calleeV := e.eval(node.MacroCall.Callee)
	callee, err := deferred.Await(e.ctx, calleeV)
	if err != nil {
		return err
	}
	mv, ok := callee.(*macroValue)
	if !ok {
		return errors.NewTypeError("{%% call %%} target is not a macro (got %T)", callee)
	}
	argVs, names := e.evalArgs(node.MacroCall.Args)
	args, err := e.awaitArgs(argVs, names)
	if err != nil {
		return err
	}
	siteEnv := e
	callerFn := func() (*deferred.Value, error) {
		child := outbuf.New()
		if err := siteEnv.execBody(child, node.CallerBody); err != nil {
			return nil, err
		}
		s, err := child.Flush(siteEnv.ctx)
		if err != nil {
			return nil, err
		}
		return deferred.Resolved(s), nil
	}
	v := deferred.Of(func() (any, error) {
		return mv.invoke(e, args, frame.Caller(callerFn))
	})
	out.ReserveDeferred(v)
	return nil
}

func (e env) execInclude(out *outbuf.Buffer, node *ast.Include) error {
	nameVal, err := e.evalExprValue(node.Expr)
	if err != nil {
		return err
	}
	name, ok := nameVal.(string)
	if !ok {
		return errors.NewTypeError("include expects a string template name, got %T", nameVal)
	}
	if e.ev.Loader == nil {
		if node.IgnoreMissing {
			return nil
		}
		return errors.NewTemplateNotFoundError(name, fmt.Errorf("no loader configured"))
	}
	src, err := e.ev.Loader.GetSource(name)
	if err != nil {
		if node.IgnoreMissing && errors.IsTemplateNotFound(err) {
			return nil
		}
		return err
	}
	prog, err := e.ev.parseCached(src.Path, src.Src)
	if err != nil {
		return err
	}
	// Included templates render with their own inheritance/block chain but
	// share the including template's live frame, so `{% include %}` sees
	// the caller's variables (spec §4.2).
	childEnv := env{ctx: e.ctx, ev: e.ev, fr: e.fr, tmpl: src.Path}
	chain, base, err := e.ev.resolveInheritance(childEnv, prog)
	if err != nil {
		return err
	}
	childEnv.blocks = chain
	child := out.ReserveChild()
	return childEnv.execBody(child, base.Body)
}

func (e env) execBlockStmt(out *outbuf.Buffer, node *ast.Block) error {
	chain := e.blocks[node.Name]
	if len(chain) == 0 {
		chain = []*ast.Block{node}
	}
	blockEnv := e.withBlockFrame(&blockFrame{name: node.Name, idx: 0})
	return blockEnv.execBody(out, chain[0].Body)
}

func (e env) execSwitch(out *outbuf.Buffer, node *ast.Switch) error {
	disc, err := e.evalExprValue(node.Disc)
	if err != nil {
		return err
	}
	for _, c := range node.Cases {
		v, err := e.evalExprValue(c.Expr)
		if err != nil {
			return err
		}
		if valuesEqual(disc, v) {
			return e.execBody(out, c.Body)
		}
	}
	if node.Default != nil {
		return e.execBody(out, node.Default)
	}
	return nil
}

// execCapture implements the script dialect's `capture :handle ... endcapture`
// (spec §4.9): body runs against a fresh structured-data accumulator, and the
// subtree its @handle commands built is bound to handle in the current frame.
func (e env) execCapture(out *outbuf.Buffer, node *ast.Capture) error {
	child := outbuf.New()
	if err := e.execBody(child, node.Body); err != nil {
		return err
	}
	data, err := child.FlushData(e.ctx, map[string]any{})
	if err != nil {
		return err
	}
	if root, ok := data.(map[string]any); ok {
		if v, ok := root[node.Handle]; ok {
			data = v
		}
	}
	e.fr.SetShadow(node.Handle, deferred.Resolved(data))
	return nil
}

// execExtensionCall dispatches a registered tag extension (spec §4.8): the
// parser already owns the generic `{% name args %} body {% endname %}`
// grammar, so all that's left here is evaluating the arguments and handing
// the extension a thunk that renders its body on demand.
func (e env) execExtensionCall(out *outbuf.Buffer, node *ast.ExtensionCall) error {
	ext, ok := e.ev.Registry.ExtensionFor(node.Tag)
	if !ok {
		return errors.WrapRuntimeError(e.tmpl, node.Pos(), fmt.Errorf("no extension registered for tag %q", node.Tag))
	}
	argVs := make([]*deferred.Value, len(node.Args))
	for i, a := range node.Args {
		argVs[i] = e.eval(a)
	}
	args, err := deferred.All(e.ctx, argVs...)
	if err != nil {
		return err
	}
	rc := &runContext{ctx: e.ctx, fr: e.fr}
	var bodyFn func() (string, error)
	if node.Body != nil {
		bodyFn = func() (string, error) {
			child := outbuf.New()
			if err := e.execBody(child, node.Body); err != nil {
				return "", err
			}
			return child.Flush(e.ctx)
		}
	}
	result, err := ext.Run(e.ctx, rc, args, bodyFn)
	if err != nil {
		return errors.WrapRuntimeError(e.tmpl, node.Pos(), err)
	}
	out.WriteText(stringify(result))
	return nil
}

// execDataCommand applies one script-dialect `@handle.path.op(expr)`
// statement (spec §4.9): the right-hand side is awaited first, then a
// Command is recorded against the output buffer so the structured-data tree
// mutates in source order when the buffer is flushed.
func (e env) execDataCommand(out *outbuf.Buffer, node *ast.DataCommand) error {
	v, err := e.evalExprValue(node.Expr)
	if err != nil {
		return err
	}
	handle := node.Handle
	path := node.Path
	op := node.Op
	out.ReserveCommand(outbuf.Command{Apply: func(data any) (any, error) {
		root, _ := data.(map[string]any)
		if root == nil {
			root = map[string]any{}
		}
		cur, ok := root[handle]
		if !ok {
			cur = map[string]any{}
		}
		updated, err := applyDataOp(cur, path, op, v)
		if err != nil {
			return nil, err
		}
		root[handle] = updated
		return root, nil
	}})
	return nil
}

// applyDataOp autovivifies intermediate map levels along path and applies
// either a scalar set or an array append at the leaf (spec §4.9 "path
// autovivification").
func applyDataOp(cur any, path []string, op ast.DataOp, v any) (any, error) {
	if len(path) == 0 {
		switch op {
		case ast.DataSet:
			return v, nil
		case ast.DataPush:
			arr, _ := cur.([]any)
			return append(arr, v), nil
		}
		return nil, fmt.Errorf("unknown data op %v", op)
	}
	m, ok := cur.(map[string]any)
	if !ok {
		m = map[string]any{}
	}
	updated, err := applyDataOp(m[path[0]], path[1:], op, v)
	if err != nil {
		return nil, err
	}
	m[path[0]] = updated
	return m, nil
}
