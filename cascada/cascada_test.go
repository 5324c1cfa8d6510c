package cascada

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascada-go/cascada/loader"
	"github.com/cascada-go/cascada/registry"
)

func TestRenderStringBasic(t *testing.T) {
	env := New()
	out, err := env.RenderString(context.Background(), "t", "hi {{ name }}", map[string]any{"name": "cascada"})
	require.NoError(t, err)
	assert.Equal(t, "hi cascada", out)
}

func TestRenderTemplateUsesConfiguredLoader(t *testing.T) {
	env := New(WithLoader(loader.MapLoader{"index.html": "hello {{ name }}"}))
	out, err := env.RenderTemplate(context.Background(), "index.html", map[string]any{"name": "there"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
}

func TestRenderTemplateWithoutLoaderErrors(t *testing.T) {
	env := New()
	_, err := env.RenderTemplate(context.Background(), "index.html", nil)
	assert.Error(t, err)
}

func TestAddFilterAndTestAreUsable(t *testing.T) {
	env := New()
	env.AddFilter("shout", func(ctx context.Context, value any, args []any) (any, error) {
		return value.(string) + "!", nil
	})
	env.AddTest("long", func(ctx context.Context, value any, args []any) (bool, error) {
		return len(value.(string)) > 3, nil
	})
	out, err := env.RenderString(context.Background(), "t",
		`{{ "hi"|shout }} {% if "hello" is long %}yes{% endif %}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi! yes", out)
}

type noopExtension struct{}

func (noopExtension) Tags() []string { return []string{"noop"} }
func (noopExtension) Run(ctx context.Context, rc registry.RunContext, args []any, body func() (string, error)) (any, error) {
	return "ok", nil
}

func TestAddExtensionRegistersTag(t *testing.T) {
	env := New()
	env.AddExtension(noopExtension{})
	out, err := env.RenderString(context.Background(), "t", "{% noop %}", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestRenderScriptStringReturnsStructuredData(t *testing.T) {
	env := New()
	data, err := env.RenderScriptString(context.Background(), "t", ":r\n@r.x = 1\n", nil)
	require.NoError(t, err)
	m, ok := data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(1), m["x"])
}
