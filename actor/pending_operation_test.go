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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/servactor/errors"
	"github.com/tochemey/servactor/future"
	"github.com/tochemey/servactor/internal/pause"
)

func TestCompletionSource(t *testing.T) {
	t.Run("With negative timeout", func(t *testing.T) {
		source, err := NewCompletionSource(WithCompletionTimeout(-time.Second))
		require.ErrorIs(t, err, gerrors.ErrInvalidPendingOperation)
		assert.Nil(t, source)
	})
	t.Run("With completion before wait", func(t *testing.T) {
		ctx := context.TODO()
		var calls []bool
		source, err := NewCompletionSource(WithCompletionCallback(func(completed bool) {
			calls = append(calls, completed)
		}))
		require.NoError(t, err)

		source.Complete()
		source.Complete()
		assert.True(t, source.IsCompleted())
		assert.True(t, source.WaitForCompletion(ctx))
		assert.True(t, source.WaitForCompletion(ctx))
		assert.Equal(t, []bool{true}, calls)
	})
	t.Run("With completion during wait", func(t *testing.T) {
		source, err := NewCompletionSource()
		require.NoError(t, err)

		go func() {
			pause.For(50 * time.Millisecond)
			source.Complete()
		}()

		assert.True(t, source.WaitForCompletion(context.TODO()))
	})
	t.Run("With timeout", func(t *testing.T) {
		completed := atomic.NewBool(true)
		source, err := NewCompletionSource(
			WithCompletionTimeout(50*time.Millisecond),
			WithCompletionCallback(completed.Store),
		)
		require.NoError(t, err)

		start := time.Now()
		assert.False(t, source.WaitForCompletion(context.TODO()))
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
		assert.False(t, completed.Load())
	})
	t.Run("With context canceled", func(t *testing.T) {
		source, err := NewCompletionSource()
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.TODO())
		cancel()
		assert.False(t, source.WaitForCompletion(ctx))
	})
	t.Run("With async wait", func(t *testing.T) {
		source, err := NewCompletionSource(WithCompletionTimeout(time.Second))
		require.NoError(t, err)

		f := source.WaitForCompletionAsync(context.TODO())
		source.Complete()

		completed, err := f.Await(context.TODO())
		require.NoError(t, err)
		assert.True(t, completed)
	})
}

func TestResultCompletionSource(t *testing.T) {
	t.Run("With nil result", func(t *testing.T) {
		source, err := NewResultCompletionSource[string](nil)
		require.ErrorIs(t, err, gerrors.ErrNilArgument)
		assert.Nil(t, source)
	})
	t.Run("With lazy result", func(t *testing.T) {
		value := "pending"
		source, err := NewResultCompletionSource(func() string { return value })
		require.NoError(t, err)

		value = "DONE"
		source.Complete()
		assert.True(t, source.WaitForCompletion(context.TODO()))
		assert.Equal(t, "DONE", source.Value())
		assert.Equal(t, "DONE", source.Result())
	})
	t.Run("With future", func(t *testing.T) {
		promise := future.NewPromise[int]()
		source, err := FromFuture(promise.Future(), WithCompletionTimeout(time.Second))
		require.NoError(t, err)
		assert.False(t, source.IsCompleted())
		assert.Zero(t, source.Value())

		promise.Success(42)
		assert.True(t, source.WaitForCompletion(context.TODO()))
		assert.Equal(t, 42, source.Value())
	})
	t.Run("With nil future", func(t *testing.T) {
		source, err := FromFuture[int](nil)
		require.ErrorIs(t, err, gerrors.ErrNilArgument)
		assert.Nil(t, source)
	})
}
