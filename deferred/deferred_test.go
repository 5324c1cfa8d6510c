package deferred

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvedAwait(t *testing.T) {
	v := Resolved(42)
	assert.Equal(t, Fulfilled, v.State())
	r, err := Await(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, 42, r)
}

func TestRejectedAwait(t *testing.T) {
	cause := errors.New("boom")
	v := Rejected(cause)
	assert.Equal(t, StateRejected, v.State())
	_, err := Await(context.Background(), v)
	assert.Equal(t, cause, err)
}

func TestNewResolverIsIdempotent(t *testing.T) {
	v, resolve := New()
	assert.Equal(t, Pending, v.State())
	resolve(1, nil)
	resolve(2, errors.New("ignored"))
	r, err := Await(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, 1, r)
}

func TestAwaitRespectsContextCancellation(t *testing.T) {
	v, _ := New() // never resolved
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Await(ctx, v)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAllJoinsInOrder(t *testing.T) {
	a := Of(func() (any, error) {
		time.Sleep(5 * time.Millisecond)
		return "a", nil
	})
	b := Resolved("b")
	c := Of(func() (any, error) {
		return "c", nil
	})
	results, err := All(context.Background(), a, b, c)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, results)
}

func TestAllPropagatesFirstError(t *testing.T) {
	cause := errors.New("failure")
	a := Resolved(1)
	b := Rejected(cause)
	_, err := All(context.Background(), a, b)
	assert.ErrorIs(t, err, cause)
}

func TestOfRunsOnOwnGoroutine(t *testing.T) {
	started := make(chan struct{})
	v := Of(func() (any, error) {
		close(started)
		return "done", nil
	})
	<-started
	r, err := Await(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, "done", r)
}

func TestMapChainsPureTransform(t *testing.T) {
	base := Resolved(10)
	doubled := Map(context.Background(), base, func(v any) (any, error) {
		return v.(int) * 2, nil
	})
	r, err := Await(context.Background(), doubled)
	require.NoError(t, err)
	assert.Equal(t, 20, r)
}

func TestMapPropagatesRejectionWithoutCallingFn(t *testing.T) {
	cause := errors.New("upstream failed")
	base := Rejected(cause)
	called := false
	mapped := Map(context.Background(), base, func(v any) (any, error) {
		called = true
		return v, nil
	})
	_, err := Await(context.Background(), mapped)
	assert.ErrorIs(t, err, cause)
	assert.False(t, called)
}
