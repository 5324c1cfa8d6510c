package eval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascada-go/cascada/deferred"
	"github.com/cascada-go/cascada/loader"
	"github.com/cascada-go/cascada/registry"
)

func render(t *testing.T, ev *Evaluator, src string, vars map[string]any) string {
	t.Helper()
	out, err := ev.RenderString(context.Background(), "t", src, RootFrame(vars))
	require.NoError(t, err)
	return out
}

func TestRenderPlainTextAndOutput(t *testing.T) {
	ev := New(nil, nil)
	got := render(t, ev, "hello {{ name }}!", map[string]any{"name": "world"})
	assert.Equal(t, "hello world!", got)
}

func TestRenderIfElif(t *testing.T) {
	ev := New(nil, nil)
	src := "{% if x == 1 %}one{% elif x == 2 %}two{% else %}other{% endif %}"
	assert.Equal(t, "one", render(t, ev, src, map[string]any{"x": int64(1)}))
	assert.Equal(t, "two", render(t, ev, src, map[string]any{"x": int64(2)}))
	assert.Equal(t, "other", render(t, ev, src, map[string]any{"x": int64(9)}))
}

func TestRenderForWithLoopVars(t *testing.T) {
	ev := New(nil, nil)
	src := "{% for x in items %}{{ loop.index }}:{{ x }}{% if not loop.last %},{% endif %}{% endfor %}"
	got := render(t, ev, src, map[string]any{"items": []any{"a", "b", "c"}})
	assert.Equal(t, "1:a,2:b,3:c", got)
}

func TestRenderForElseOnEmpty(t *testing.T) {
	ev := New(nil, nil)
	src := "{% for x in items %}{{ x }}{% else %}empty{% endfor %}"
	assert.Equal(t, "empty", render(t, ev, src, map[string]any{"items": []any{}}))
}

func TestRenderForOverMap(t *testing.T) {
	ev := New(nil, nil)
	src := "{% for k, v in m %}{{ k }}={{ v }};{% endfor %}"
	got := render(t, ev, src, map[string]any{"m": map[string]any{"b": int64(2), "a": int64(1)}})
	assert.Equal(t, "a=1;b=2;", got) // sortedKeys gives deterministic alphabetical order
}

func TestRenderSetShadowsInnermostFrame(t *testing.T) {
	ev := New(nil, nil)
	src := "{% set x = 1 %}{% for i in items %}{% set x = i %}{{ x }}{% endfor %}{{ x }}"
	got := render(t, ev, src, map[string]any{"items": []any{int64(9)}})
	assert.Equal(t, "91", got) // for body's `set x` shadows the for frame, doesn't leak out
}

func TestRenderMacroWithDefaultArg(t *testing.T) {
	ev := New(nil, nil)
	src := `{% macro greet(name, greeting="hi") %}{{ greeting }} {{ name }}{% endmacro %}{{ greet("world") }}{{ greet("you", "yo") }}`
	assert.Equal(t, "hi worldyo you", render(t, ev, src, nil))
}

func TestRenderCallBlockBindsCaller(t *testing.T) {
	ev := New(nil, nil)
	src := `{% macro wrap() %}<{{ caller() }}>{% endmacro %}{% call wrap() %}inner{% endcall %}`
	assert.Equal(t, "<inner>", render(t, ev, src, nil))
}

func TestRenderFilterAndTest(t *testing.T) {
	ev := New(nil, nil)
	ev.Registry.AddFilter("upper", func(ctx context.Context, value any, args []any) (any, error) {
		return value, nil
	})
	ev.Registry.AddTest("positive", func(ctx context.Context, value any, args []any) (bool, error) {
		return value.(int64) > 0, nil
	})
	src := `{{ x|upper }} {% if x is positive %}yes{% else %}no{% endif %}`
	assert.Equal(t, "5 yes", render(t, ev, src, map[string]any{"x": int64(5)}))
}

func TestRenderSwitch(t *testing.T) {
	ev := New(nil, nil)
	src := "{% switch x %}{% case 1 %}one{% case 2 %}two{% default %}other{% endswitch %}"
	assert.Equal(t, "two", render(t, ev, src, map[string]any{"x": int64(2)}))
	assert.Equal(t, "other", render(t, ev, src, map[string]any{"x": int64(99)}))
}

func TestRenderIncludeSharesFrame(t *testing.T) {
	ld := loader.MapLoader{"partial.html": "got {{ x }}"}
	ev := New(nil, ld)
	src := `{% set x = 42 %}{% include "partial.html" %}`
	assert.Equal(t, "got 42", render(t, ev, src, nil))
}

func TestRenderIncludeIgnoreMissing(t *testing.T) {
	ev := New(nil, loader.MapLoader{})
	src := `before{% include "nope.html" ignore missing %}after`
	assert.Equal(t, "beforeafter", render(t, ev, src, nil))
}

func TestRenderExtendsWithSuper(t *testing.T) {
	ld := loader.MapLoader{
		"base.html": "{% block content %}base{% endblock %}",
	}
	ev := New(nil, ld)
	src := `{% extends "base.html" %}{% block content %}child+{{ super() }}{% endblock %}`
	assert.Equal(t, "child+base", render(t, ev, src, nil))
}

func TestShortCircuitAndDoesNotEvaluateRightOperand(t *testing.T) {
	ev := New(nil, nil)
	ev.Registry.AddFilter("sideeffect", func(ctx context.Context, value any, args []any) (any, error) {
		t.Fatal("right operand of `and` must not be evaluated when left is falsy")
		return nil, nil
	})
	src := "{% if false and (x|sideeffect) %}yes{% else %}no{% endif %}"
	assert.Equal(t, "no", render(t, ev, src, map[string]any{"x": int64(1)}))
}

func TestTernaryOnlyEvaluatesTakenBranch(t *testing.T) {
	ev := New(nil, nil)
	ev.Registry.AddFilter("boom", func(ctx context.Context, value any, args []any) (any, error) {
		t.Fatal("untaken ternary branch must not be evaluated")
		return nil, nil
	})
	src := `{{ "yes" if true else (x|boom) }}`
	assert.Equal(t, "yes", render(t, ev, src, map[string]any{"x": int64(1)}))
}

func TestRenderOutputOrderingWithAsyncVariables(t *testing.T) {
	ev := New(nil, nil)
	slow := deferred.Of(func() (any, error) {
		time.Sleep(15 * time.Millisecond)
		return "slow", nil
	})
	fast := deferred.Resolved("fast")
	src := "{{ a }}-{{ b }}"
	out, err := ev.RenderString(context.Background(), "t", src, RootFrame(map[string]any{"a": slow, "b": fast}))
	require.NoError(t, err)
	assert.Equal(t, "slow-fast", out, "output must preserve source order despite a resolving after b")
}

func TestUnknownVariableIsNameError(t *testing.T) {
	ev := New(nil, nil)
	_, err := ev.RenderString(context.Background(), "t", "{{ missing }}", RootFrame(nil))
	assert.Error(t, err)
}

func TestUnknownFilterErrors(t *testing.T) {
	ev := New(nil, nil)
	_, err := ev.RenderString(context.Background(), "t", "{{ x|nope }}", RootFrame(map[string]any{"x": 1}))
	assert.Error(t, err)
}

func TestDivisionByZeroErrors(t *testing.T) {
	ev := New(nil, nil)
	_, err := ev.RenderString(context.Background(), "t", "{{ 1 / 0 }}", RootFrame(nil))
	assert.Error(t, err)
}

func TestRenderExtensionCallWithBody(t *testing.T) {
	ev := New(nil, nil)
	ev.Registry.AddExtension(&upperTagExtension{})
	src := "{% upper %}hello{% endupper %}"
	assert.Equal(t, "HELLO", render(t, ev, src, nil))
}

type upperTagExtension struct{}

func (e *upperTagExtension) Tags() []string { return []string{"upper"} }
func (e *upperTagExtension) Run(ctx context.Context, rc registry.RunContext, args []any, body func() (string, error)) (any, error) {
	s, err := body()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(s))
	for _, c := range []byte(s) {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out), nil
}

func TestRenderScriptExternBindsFromEnclosingScope(t *testing.T) {
	ev := New(nil, nil)
	src := ":r\n" +
		"for x in items\n" +
		"  extern greeting\n" +
		"  @r.items.push(greeting)\n" +
		"endfor\n"
	data, err := ev.RenderScript(context.Background(), "t", src, RootFrame(map[string]any{
		"items":    []any{int64(1)},
		"greeting": "hi",
	}))
	require.NoError(t, err)
	m, ok := data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"hi"}, m["items"])
}

func TestRenderScriptExternWithoutEnclosingBindingIsNullish(t *testing.T) {
	ev := New(nil, nil)
	src := ":r\nextern unbound\n@r.x = unbound\n"
	data, err := ev.RenderScript(context.Background(), "t", src, RootFrame(nil))
	require.NoError(t, err)
	m, ok := data.(map[string]any)
	require.True(t, ok)
	assert.Nil(t, m["x"])
}

func TestRenderScriptBuildsStructuredTree(t *testing.T) {
	ev := New(nil, nil)
	src := ":result\n" +
		"@result.total = 0\n" +
		"for x in items\n" +
		"  @result.items.push(x)\n" +
		"endfor\n"
	data, err := ev.RenderScript(context.Background(), "t", src, RootFrame(map[string]any{"items": []any{int64(1), int64(2)}}))
	require.NoError(t, err)
	m, ok := data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(0), m["total"])
	assert.Equal(t, []any{int64(1), int64(2)}, m["items"])
}
