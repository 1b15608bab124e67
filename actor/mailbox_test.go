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
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/servactor/errors"
)

func newTestInvocation() *Invocation {
	return NewInvocation(nil, "", DefaultPolicy(), func(context.Context) error { return nil })
}

func TestUnboundedMailbox(t *testing.T) {
	t.Run("With FIFO order", func(t *testing.T) {
		mailbox := NewUnboundedMailbox()

		in1 := newTestInvocation()
		in2 := newTestInvocation()
		require.NoError(t, mailbox.Enqueue(in1))
		require.NoError(t, mailbox.Enqueue(in2))
		assert.EqualValues(t, 2, mailbox.Len())

		assert.Same(t, in1, mailbox.Dequeue())
		assert.Same(t, in2, mailbox.Dequeue())
		assert.True(t, mailbox.IsEmpty())
		assert.Nil(t, mailbox.Dequeue())
	})
	t.Run("With multiple producers", func(t *testing.T) {
		producers := 4
		perProducer := 100
		expected := producers * perProducer
		mailbox := NewUnboundedMailbox()

		var consumer sync.WaitGroup
		consumer.Add(1)
		go func() {
			defer consumer.Done()
			for count := 0; count < expected; {
				if mailbox.Dequeue() == nil {
					runtime.Gosched()
					continue
				}
				count++
			}
		}()

		var wg sync.WaitGroup
		wg.Add(producers)
		for range producers {
			go func() {
				defer wg.Done()
				for range perProducer {
					_ = mailbox.Enqueue(newTestInvocation())
				}
			}()
		}

		wg.Wait()
		consumer.Wait()
		assert.True(t, mailbox.IsEmpty())
	})
	t.Run("With disposed mailbox", func(t *testing.T) {
		mailbox := NewUnboundedMailbox()
		mailbox.Dispose()
		require.ErrorIs(t, mailbox.Enqueue(newTestInvocation()), gerrors.ErrQueueStopped)
	})
}

func TestBoundedMailbox(t *testing.T) {
	t.Run("With full mailbox", func(t *testing.T) {
		mailbox := NewBoundedMailbox(2)
		assert.EqualValues(t, 2, mailbox.Capacity())

		require.NoError(t, mailbox.Enqueue(newTestInvocation()))
		require.NoError(t, mailbox.Enqueue(newTestInvocation()))
		require.ErrorIs(t, mailbox.Enqueue(newTestInvocation()), gerrors.ErrMailboxFull)
		assert.EqualValues(t, 2, mailbox.Len())

		assert.NotNil(t, mailbox.Dequeue())
		require.NoError(t, mailbox.Enqueue(newTestInvocation()))
		mailbox.Dispose()
	})
	t.Run("With FIFO order", func(t *testing.T) {
		mailbox := NewBoundedMailbox(4)
		in1 := newTestInvocation()
		in2 := newTestInvocation()
		require.NoError(t, mailbox.Enqueue(in1))
		require.NoError(t, mailbox.Enqueue(in2))

		assert.Same(t, in1, mailbox.Dequeue())
		assert.Same(t, in2, mailbox.Dequeue())
		assert.True(t, mailbox.IsEmpty())
		assert.Nil(t, mailbox.Dequeue())
		mailbox.Dispose()
	})
	t.Run("With disposed mailbox", func(t *testing.T) {
		mailbox := NewBoundedMailbox(2)
		mailbox.Dispose()
		require.ErrorIs(t, mailbox.Enqueue(newTestInvocation()), gerrors.ErrQueueStopped)
	})
}
