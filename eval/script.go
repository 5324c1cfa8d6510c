package eval

import (
	"context"

	"github.com/cascada-go/cascada/frame"
	"github.com/cascada-go/cascada/outbuf"
	"github.com/cascada-go/cascada/script"
)

// RenderScript parses and runs a script-dialect source (spec §4.9): its
// statements emit structured-data commands instead of text, and the result
// is the final tree bound under the script's declared handle name.
func (ev *Evaluator) RenderScript(ctx context.Context, templateName, src string, fr *frame.Frame) (any, error) {
	sc, err := script.Parse(templateName, src)
	if err != nil {
		return nil, err
	}
	e := env{ctx: ctx, ev: ev, fr: fr, tmpl: templateName}
	out := outbuf.New()
	if err := e.execBody(out, sc.Body); err != nil {
		return nil, err
	}
	data, err := out.FlushData(ctx, map[string]any{})
	if err != nil {
		return nil, err
	}
	root, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	if v, ok := root[sc.Handle]; ok {
		return v, nil
	}
	return root, nil
}
