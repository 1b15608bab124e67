// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package actor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/servactor/errors"
	"github.com/tochemey/servactor/future"
)

func TestCallContext(t *testing.T) {
	rt := newTestRuntime(t)
	queueA, err := rt.NewQueue(WithQueueName("A"))
	require.NoError(t, err)
	queueB, err := rt.NewQueue(WithQueueName("B"))
	require.NoError(t, err)

	t.Run("With an empty context", func(t *testing.T) {
		callContext := CallContextFrom(context.TODO())
		assert.Zero(t, callContext.Len())
		assert.Empty(t, callContext.Chain())
		assert.Empty(t, CallChain(context.TODO()))

		canPush, err := callContext.CanPush(queueA, false)
		require.NoError(t, err)
		assert.True(t, canPush)

		_, err = callContext.CanPush(nil, false)
		require.ErrorIs(t, err, gerrors.ErrNilArgument)
	})
	t.Run("With push and pop", func(t *testing.T) {
		empty := CallContextFrom(context.TODO())
		withA := empty.Push(queueA, nil)
		withAB := withA.Push(queueB, nil)

		assert.Zero(t, empty.Len())
		assert.Equal(t, []string{"A"}, withA.Chain())
		assert.Equal(t, []string{"A", "B"}, withAB.Chain())
		assert.True(t, withAB.Contains(queueA))
		assert.False(t, withA.Contains(queueB))

		popped, err := withAB.Pop(queueB)
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, popped.Chain())

		_, err = withAB.Pop(queueA)
		var internal *gerrors.InternalError
		require.ErrorAs(t, err, &internal)
	})
	t.Run("With a queue already on the path", func(t *testing.T) {
		callContext := CallContextFrom(context.TODO()).Push(queueA, nil).Push(queueB, nil)

		canPush, err := callContext.CanPush(queueA, false)
		assert.False(t, canPush)
		var reentrancy *gerrors.ReentrancyError
		require.ErrorAs(t, err, &reentrancy)
		assert.Equal(t, []string{"A", "B", "A"}, reentrancy.Chain())
		assert.EqualError(t, err, "reentrant call detected A>>B>>A")

		canPush, err = callContext.CanPush(queueA, true)
		require.NoError(t, err)
		assert.False(t, canPush)
	})
	t.Run("With the context of a call", func(t *testing.T) {
		ctx := withCallContext(context.TODO(), CallContextFrom(context.TODO()).Push(queueA, nil))
		assert.Equal(t, []string{"A"}, CallChain(ctx))

		detached := Detach(ctx)
		assert.Empty(t, CallChain(detached))
		assert.Nil(t, CurrentInvocation(detached))
	})
	t.Run("With a suspended invocation", func(t *testing.T) {
		blocking := NewInvocation(nil, "", DefaultPolicy(), func(context.Context) error { return nil })
		nonBlocking := NewInvocation(nil, "", Policy{}, func(context.Context) error { return nil })

		callContext := CallContextFrom(context.TODO()).Push(queueA, blocking).Push(queueB, blocking)
		assert.Same(t, blocking, callContext.suspended(queueA))

		callContext = CallContextFrom(context.TODO()).Push(queueA, blocking).Push(queueB, nonBlocking)
		assert.Nil(t, callContext.suspended(queueA))
	})
	t.Run("With a released invocation", func(t *testing.T) {
		released := NewAsyncInvocation(nil, "", Policy{BlockCaller: true}, func(context.Context) future.Future[any] { return nil })
		released.released.Store(true)

		callContext := CallContextFrom(context.TODO()).Push(queueA, released)
		assert.False(t, callContext.Contains(queueA))

		canPush, err := callContext.CanPush(queueA, false)
		require.NoError(t, err)
		assert.True(t, canPush)
	})
	t.Run("With an executed invocation", func(t *testing.T) {
		executed := NewInvocation(nil, "", DefaultPolicy(), func(context.Context) error { return nil })
		executed.signalExecuted(nil, nil)

		callContext := CallContextFrom(context.TODO()).Push(queueA, executed)
		assert.False(t, callContext.Contains(queueA))
		assert.Nil(t, callContext.suspended(queueA))
	})
	t.Run("With a caller no longer waiting", func(t *testing.T) {
		held := NewInvocation(nil, "", DefaultPolicy(), func(context.Context) error { return nil })
		abandoned := NewInvocation(nil, "", DefaultPolicy(), func(context.Context) error { return nil })
		abandoned.abandoned.Store(true)

		callContext := CallContextFrom(context.TODO()).Push(queueA, held).Push(queueB, abandoned)
		assert.True(t, callContext.Contains(queueA))
		assert.Nil(t, callContext.suspended(queueA))
	})
}
