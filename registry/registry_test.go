package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtension struct {
	tags []string
}

func (s *stubExtension) Tags() []string { return s.tags }
func (s *stubExtension) Run(ctx context.Context, rc RunContext, args []any, body func() (string, error)) (any, error) {
	return "ran", nil
}

func TestFilterRegisterAndLookup(t *testing.T) {
	r := New()
	_, ok := r.Filter("upper")
	assert.False(t, ok)

	r.AddFilter("upper", func(ctx context.Context, value any, args []any) (any, error) {
		return value, nil
	})
	fn, ok := r.Filter("upper")
	require.True(t, ok)
	v, err := fn(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestTestRegisterAndLookup(t *testing.T) {
	r := New()
	r.AddTest("even", func(ctx context.Context, value any, args []any) (bool, error) {
		return value.(int64)%2 == 0, nil
	})
	fn, ok := r.Test("even")
	require.True(t, ok)
	v, err := fn(context.Background(), int64(4), nil)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestExtensionRegisteredUnderEveryTag(t *testing.T) {
	r := New()
	ext := &stubExtension{tags: []string{"foo", "bar"}}
	r.AddExtension(ext)

	assert.True(t, r.IsTag("foo"))
	assert.True(t, r.IsTag("bar"))
	assert.False(t, r.IsTag("baz"))

	got, ok := r.ExtensionFor("bar")
	require.True(t, ok)
	assert.Same(t, ext, got)
}

func TestFromCallbackAdaptsLegacyFilter(t *testing.T) {
	legacy := func(value any, args []any, cb func(result any, err error)) {
		go cb(value.(int)*2, nil)
	}
	fn := FromCallback(legacy)
	v, err := fn(context.Background(), 21, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFromCallbackRespectsContextCancellation(t *testing.T) {
	legacy := func(value any, args []any, cb func(result any, err error)) {
		// never calls cb
	}
	fn := FromCallback(legacy)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fn(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromCallbackTestAdaptsLegacyTest(t *testing.T) {
	legacy := func(value any, args []any, cb func(result bool, err error)) {
		cb(value.(string) == "yes", nil)
	}
	fn := FromCallbackTest(legacy)
	v, err := fn(context.Background(), "yes", nil)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestUnknownFilterAndTestErrors(t *testing.T) {
	assert.Contains(t, ErrUnknownFilter("x").Error(), "x")
	assert.Contains(t, ErrUnknownTest("y").Error(), "y")
}
