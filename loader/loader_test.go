package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascada-go/cascada/errors"
)

func TestMapLoaderGetSource(t *testing.T) {
	m := MapLoader{"index.html": "hello {{ name }}"}
	src, err := m.GetSource("index.html")
	require.NoError(t, err)
	assert.Equal(t, "hello {{ name }}", src.Src)
	assert.Equal(t, "index.html", src.Path)
	assert.False(t, src.NoCache)
}

func TestMapLoaderMissingTemplate(t *testing.T) {
	m := MapLoader{}
	_, err := m.GetSource("missing.html")
	assert.True(t, errors.IsTemplateNotFound(err))
}
