package outbuf

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascada-go/cascada/deferred"
)

func TestFlushPreservesSourceOrderDespiteConcurrentFill(t *testing.T) {
	b := New()
	b.WriteText("a-")

	var wg sync.WaitGroup
	wg.Add(1)
	slow := deferred.Of(func() (any, error) {
		time.Sleep(15 * time.Millisecond)
		wg.Done()
		return "slow", nil
	})
	b.ReserveDeferred(slow)

	fast := deferred.Resolved("fast")
	b.ReserveDeferred(fast)
	b.WriteText("-z")

	out, err := b.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a-slow-fast-z", out)
	wg.Wait()
}

func TestFlushRecursesIntoChildBuffers(t *testing.T) {
	b := New()
	b.WriteText("outer-")
	child := b.ReserveChild()
	child.WriteText("inner")
	b.WriteText("-outer")

	out, err := b.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "outer-inner-outer", out)
}

func TestFlushPropagatesRejection(t *testing.T) {
	b := New()
	cause := errors.New("boom")
	b.ReserveDeferred(deferred.Rejected(cause))
	_, err := b.Flush(context.Background())
	assert.ErrorIs(t, err, cause)
}

func TestFlushDataReplaysCommandsInOrder(t *testing.T) {
	b := New()
	b.ReserveCommand(Command{Apply: func(data any) (any, error) {
		m := data.(map[string]any)
		m["a"] = 1
		return m, nil
	}})
	b.ReserveCommand(Command{Apply: func(data any) (any, error) {
		m := data.(map[string]any)
		m["a"] = 2
		return m, nil
	}})

	out, err := b.FlushData(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 2}, out)
}

func TestFlushDataStopsOnCommandError(t *testing.T) {
	b := New()
	cause := errors.New("bad op")
	b.ReserveCommand(Command{Apply: func(data any) (any, error) {
		return nil, cause
	}})
	_, err := b.FlushData(context.Background(), map[string]any{})
	assert.ErrorIs(t, err, cause)
}

func TestToDisplayStringHandlesNilStringAndNumber(t *testing.T) {
	assert.Equal(t, "", toDisplayString(nil))
	assert.Equal(t, "abc", toDisplayString("abc"))
	assert.Equal(t, "42", toDisplayString(42))
}
