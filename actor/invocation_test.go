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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/servactor/errors"
)

func TestInvocation(t *testing.T) {
	t.Run("With pending operation on a non-blocking invocation", func(t *testing.T) {
		inv := NewInvocation(&counter{}, "Increment", Policy{}, func(context.Context) error { return nil })
		source, err := NewCompletionSource()
		require.NoError(t, err)

		require.ErrorIs(t, inv.EnqueuePendingOperation(source), gerrors.ErrNonBlockingInvocation)
		require.ErrorIs(t, inv.EnqueuePendingOperation(nil), gerrors.ErrNilArgument)
		assert.False(t, inv.HasPendingOperations())
	})
	t.Run("With no pending operation", func(t *testing.T) {
		inv := NewInvocation(&counter{}, "Increment", DefaultPolicy(), func(context.Context) error { return nil })
		assert.False(t, inv.WaitForPendingOperationCompletion(context.TODO()))
		assert.Empty(t, PendingOperationResult[string](inv))
		assert.False(t, PendingOperationResult[bool](inv))

		completed, err := inv.WaitForPendingOperationCompletionAsync(context.TODO()).Await(context.TODO())
		require.NoError(t, err)
		assert.False(t, completed)
	})
	t.Run("With pending operations", func(t *testing.T) {
		ctx := context.TODO()
		inv := NewInvocation(&counter{}, "Increment", DefaultPolicy(), func(context.Context) error { return nil })

		first, err := NewResultCompletionSource(func() string { return "first" })
		require.NoError(t, err)
		second, err := NewResultCompletionSource(func() string { return "second" })
		require.NoError(t, err)
		plain, err := NewCompletionSource()
		require.NoError(t, err)

		require.NoError(t, inv.EnqueuePendingOperation(first))
		require.NoError(t, inv.EnqueuePendingOperation(second))
		require.NoError(t, inv.EnqueuePendingOperation(plain))
		assert.Len(t, inv.PendingOperations(), 3)

		first.Complete()
		second.Complete()
		plain.Complete()

		assert.True(t, inv.WaitForPendingOperationCompletion(ctx))
		assert.Equal(t, "second", PendingOperationResult[string](inv))
		assert.Zero(t, PendingOperationResult[int](inv))
	})
	t.Run("With pending operations without result", func(t *testing.T) {
		inv := NewInvocation(&counter{}, "Increment", DefaultPolicy(), func(context.Context) error { return nil })
		source, err := NewCompletionSource()
		require.NoError(t, err)
		require.NoError(t, inv.EnqueuePendingOperation(source))

		assert.True(t, PendingOperationResult[bool](inv))
		assert.Empty(t, PendingOperationResult[string](inv))
	})
	t.Run("With a pending operation timing out", func(t *testing.T) {
		inv := NewInvocation(&counter{}, "Increment", DefaultPolicy(), func(context.Context) error { return nil })
		done, err := NewCompletionSource()
		require.NoError(t, err)
		expired, err := NewCompletionSource(WithCompletionTimeout(10 * time.Millisecond))
		require.NoError(t, err)

		require.NoError(t, inv.EnqueuePendingOperation(expired))
		require.NoError(t, inv.EnqueuePendingOperation(done))
		done.Complete()

		assert.False(t, inv.WaitForPendingOperationCompletion(context.TODO()))
	})
	t.Run("With context canceled before execution", func(t *testing.T) {
		inv := NewInvocation(&counter{}, "Increment", DefaultPolicy(), func(context.Context) error { return nil })
		ctx, cancel := context.WithCancel(context.TODO())
		cancel()

		require.ErrorIs(t, inv.WaitExecuted(ctx), context.Canceled)
		assert.False(t, inv.IsExecuted())
		require.NoError(t, inv.Err())
	})
	t.Run("With executed signal", func(t *testing.T) {
		inv := NewInvocation(&counter{}, "Increment", DefaultPolicy(), func(context.Context) error { return nil })
		f := inv.WaitExecutedAsync()

		inv.signalExecuted("value", errors.New("failed"))
		inv.signalExecuted(nil, nil)

		require.NoError(t, inv.WaitExecuted(context.TODO()))
		require.EqualError(t, inv.Err(), "failed")
		assert.Equal(t, "value", inv.Result())

		_, err := f.Await(context.TODO())
		require.EqualError(t, err, "failed")
	})
	t.Run("With rendering", func(t *testing.T) {
		inv := NewInvocation(&counter{}, "Increment", DefaultPolicy(), func(context.Context) error { return nil })
		assert.Equal(t, "*actor.counter.Increment", inv.String())
		assert.False(t, inv.IsAsync())
		assert.Equal(t, "Increment", inv.Method())

		anonymous := NewInvocation(&counter{}, "", DefaultPolicy(), func(context.Context) error { return nil })
		assert.Equal(t, "*actor.counter", anonymous.String())
	})
}
