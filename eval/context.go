package eval

import (
	"context"

	"github.com/cascada-go/cascada/deferred"
	"github.com/cascada-go/cascada/frame"
)

// Func is a callable context value (spec §6 "Context object... values may
// be synchronous, deferred, functions (sync/async)"). Returning a non-nil
// error rejects the call's deferred; returning a *deferred.Value as result
// is also accepted and is auto-awaited by the caller.
type Func func(ctx context.Context, args []any) (any, error)

// RootFrame builds the template root frame from a plain Go map context,
// wrapping every value as a fulfilled deferred.Value (spec §3 "A synchronous
// value is trivially a fulfilled deferred"). Values that are already
// *deferred.Value are bound as-is, letting callers hand in genuinely
// asynchronous context entries.
func RootFrame(vars map[string]any) *frame.Frame {
	fr := frame.New()
	for name, v := range vars {
		if dv, ok := v.(*deferred.Value); ok {
			fr.SetShadow(name, dv)
			continue
		}
		fr.SetShadow(name, deferred.Resolved(v))
	}
	return fr
}

// runContext adapts a live evaluation (its current frame) to
// registry.RunContext, the minimal view a tag extension's Run method needs
// to read named variables out of the render in progress.
type runContext struct {
	ctx context.Context
	fr  *frame.Frame
}

func (rc *runContext) Lookup(name string) (any, bool) {
	v, ok := rc.fr.Lookup(name)
	if !ok {
		return nil, false
	}
	result, err := deferred.Await(rc.ctx, v)
	if err != nil {
		return nil, false
	}
	return result, true
}
