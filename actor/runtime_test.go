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
	"github.com/tochemey/servactor/log"
)

func TestNewRuntime(t *testing.T) {
	t.Run("With default settings", func(t *testing.T) {
		rt := newTestRuntime(t)
		assert.Equal(t, InfiniteTimeout, rt.CallTimeout())
		assert.Equal(t, log.DiscardLogger, rt.Logger())
		assert.Nil(t, rt.monitor())
	})
	t.Run("With invalid call timeout", func(t *testing.T) {
		rt, err := NewRuntime(WithLogger(log.DiscardLogger), WithCallTimeout(0))
		require.ErrorIs(t, err, gerrors.ErrInvalidTimeout)
		assert.Nil(t, rt)
	})
	t.Run("With invalid mailbox capacity", func(t *testing.T) {
		rt, err := NewRuntime(WithLogger(log.DiscardLogger), WithMailboxCapacity(-1))
		require.ErrorIs(t, err, gerrors.ErrInvalidMailboxCapacity)
		assert.Nil(t, rt)
	})
	t.Run("With nil logger", func(t *testing.T) {
		rt, err := NewRuntime(WithLogger(nil))
		require.ErrorIs(t, err, gerrors.ErrNilArgument)
		assert.Nil(t, rt)
	})
	t.Run("With monitor", func(t *testing.T) {
		monitor := new(recordingMonitor)
		rt := newTestRuntime(t, WithMonitor(monitor))
		assert.Equal(t, monitor, rt.monitor())
		require.NoError(t, rt.EndMonitor(monitor))
	})
	t.Run("With mailbox capacity", func(t *testing.T) {
		rt := newTestRuntime(t, WithMailboxCapacity(4))
		queue, err := rt.NewQueue()
		require.NoError(t, err)
		mailbox, ok := queue.mailbox.(*BoundedMailbox)
		require.True(t, ok)
		assert.EqualValues(t, 4, mailbox.Capacity())
	})
}

func TestRuntimeCallTimeout(t *testing.T) {
	t.Run("With invalid timeouts", func(t *testing.T) {
		rt := newTestRuntime(t)
		require.ErrorIs(t, rt.SetCallTimeout(0), gerrors.ErrInvalidTimeout)
		require.ErrorIs(t, rt.SetCallTimeout(-time.Second), gerrors.ErrInvalidTimeout)
		require.NoError(t, rt.SetCallTimeout(time.Second))
		assert.Equal(t, time.Second, rt.CallTimeout())
		require.NoError(t, rt.SetCallTimeout(InfiniteTimeout))
		assert.Equal(t, InfiniteTimeout, rt.CallTimeout())
	})
	t.Run("When a call is delayed beyond the timeout", func(t *testing.T) {
		ctx := context.TODO()
		rt := newTestRuntime(t, WithCallTimeout(100*time.Millisecond))
		target := new(counter)
		ref, err := Wrap(rt, target)
		require.NoError(t, err)

		err = ref.Invoke(ctx, func(context.Context, *counter) error {
			time.Sleep(300 * time.Millisecond)
			return nil
		})
		require.ErrorIs(t, err, gerrors.ErrCallTimeout)

		quiescent, err := rt.WaitForQuiescence(ctx, target, time.Second)
		require.NoError(t, err)
		assert.True(t, quiescent)
	})
	t.Run("When the timeout is unbounded", func(t *testing.T) {
		ctx := context.TODO()
		rt := newTestRuntime(t)
		ref, err := Wrap(rt, new(counter))
		require.NoError(t, err)

		err = ref.Invoke(ctx, func(_ context.Context, c *counter) error {
			time.Sleep(300 * time.Millisecond)
			c.value++
			return nil
		})
		require.NoError(t, err)
	})
}

func TestRuntimeMonitor(t *testing.T) {
	t.Run("With a single active monitor", func(t *testing.T) {
		rt := newTestRuntime(t)
		first := new(recordingMonitor)
		second := new(recordingMonitor)

		release, err := rt.BeginMonitor(first)
		require.NoError(t, err)

		_, err = rt.BeginMonitor(second)
		require.ErrorIs(t, err, gerrors.ErrMonitorAlreadyActive)
		require.ErrorIs(t, rt.EndMonitor(second), gerrors.ErrMonitorMismatch)

		release()
		assert.Nil(t, rt.monitor())
		require.ErrorIs(t, rt.EndMonitor(first), gerrors.ErrMonitorMismatch)

		_, err = rt.BeginMonitor(nil)
		require.ErrorIs(t, err, gerrors.ErrNilArgument)

		release, err = rt.BeginMonitor(second)
		require.NoError(t, err)
		require.NoError(t, rt.EndMonitor(second))
		// releasing after an explicit end is a no-op
		release()
	})
	t.Run("With notifications", func(t *testing.T) {
		ctx := context.TODO()
		rt := newTestRuntime(t)
		monitor := new(recordingMonitor)
		release, err := rt.BeginMonitor(monitor)
		require.NoError(t, err)
		defer release()

		ref, err := Wrap(rt, new(counter), WithName("counter"))
		require.NoError(t, err)

		require.NoError(t, ref.Invoke(ctx, func(_ context.Context, c *counter) error {
			c.value++
			return nil
		}, WithMethod("Increment")))

		err = ref.Invoke(ctx, func(context.Context, *counter) error {
			return errors.New("failed")
		}, WithMethod("Fail"))
		require.EqualError(t, err, "failed")

		assert.Equal(t, []string{"enter", "exit", "enter", "error", "exit"}, monitor.kinds())

		events := monitor.snapshot()
		assert.Equal(t, "counter(*actor.counter) Increment", events[0].details.String())
		assert.Equal(t, "Fail", events[3].details.Method)
		require.EqualError(t, events[3].err, "failed")
	})
	t.Run("With a panicking monitor", func(t *testing.T) {
		ctx := context.TODO()
		rt := newTestRuntime(t)
		release, err := rt.BeginMonitor(panickingMonitor{})
		require.NoError(t, err)
		defer release()

		ref, err := Wrap(rt, new(counter))
		require.NoError(t, err)
		for range 2 {
			require.NoError(t, ref.Invoke(ctx, func(_ context.Context, c *counter) error {
				c.value++
				return nil
			}))
		}
	})
	t.Run("With log monitor", func(t *testing.T) {
		ctx := context.TODO()
		rt := newTestRuntime(t, WithMonitor(NewLogMonitor(log.DiscardLogger)))
		ref, err := Wrap(rt, new(counter))
		require.NoError(t, err)
		require.Error(t, ref.Invoke(ctx, func(context.Context, *counter) error {
			return errors.New("failed")
		}))
	})
}

type panickingMonitor struct{}

func (panickingMonitor) EnterMethod(CallDetails) { panic("enter") }

func (panickingMonitor) ExitMethod(CallDetails) { panic("exit") }

func (panickingMonitor) UnhandledError(CallDetails, error) { panic("error") }

func TestRuntimeCall(t *testing.T) {
	t.Run("With an object never wrapped", func(t *testing.T) {
		rt := newTestRuntime(t)
		err := rt.Call(context.TODO(), new(counter), func(context.Context) error { return nil })
		require.ErrorIs(t, err, gerrors.ErrQueueNotFound)

		err = rt.RegisterPendingOperation(context.TODO(), new(counter), nil)
		require.ErrorIs(t, err, gerrors.ErrQueueNotFound)

		_, err = rt.WaitForQuiescence(context.TODO(), new(counter), time.Second)
		require.ErrorIs(t, err, gerrors.ErrQueueNotFound)

		require.ErrorIs(t, rt.Call(context.TODO(), new(counter), nil), gerrors.ErrNilArgument)
	})
	t.Run("With an external callback", func(t *testing.T) {
		ctx := context.TODO()
		rt := newTestRuntime(t)
		target := new(counter)
		ref, err := Wrap(rt, target)
		require.NoError(t, err)

		gate := make(chan struct{})
		require.NoError(t, ref.Invoke(ctx, func(context.Context, *counter) error {
			<-gate
			return nil
		}, WithNonBlocking()))

		done := make(chan error, 1)
		go func() {
			done <- rt.Call(context.Background(), target, func(context.Context) error {
				target.value = 42
				return nil
			})
		}()

		// the callback waits for the running invocation
		select {
		case <-done:
			require.Fail(t, "callback did not wait for the queue")
		case <-time.After(50 * time.Millisecond):
		}

		close(gate)
		require.NoError(t, <-done)

		value, err := Query(ctx, ref, func(_ context.Context, c *counter) (int, error) { return c.value, nil })
		require.NoError(t, err)
		assert.Equal(t, 42, value)
	})
}

func TestRuntimeQueueFor(t *testing.T) {
	t.Run("With aggregate keys", func(t *testing.T) {
		rt := newTestRuntime(t)
		first, err := rt.QueueFor(new(counter), "orders")
		require.NoError(t, err)
		second, err := rt.QueueFor(new(ledger), "orders")
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, "orders", first.Name())

		_, err = rt.QueueFor(new(counter), []int{1})
		require.ErrorIs(t, err, gerrors.ErrInvalidAggregateKey)
	})
	t.Run("With distinct keys rendering alike", func(t *testing.T) {
		rt := newTestRuntime(t)
		first, err := rt.QueueFor(new(counter), accountKey{region: "eu", name: " west"})
		require.NoError(t, err)
		second, err := rt.QueueFor(new(counter), accountKey{region: "eu ", name: "west"})
		require.NoError(t, err)
		assert.NotSame(t, first, second)
	})
	t.Run("With service domains", func(t *testing.T) {
		rt := newTestRuntime(t)
		invoices, err := rt.QueueFor(new(invoiceService), nil)
		require.NoError(t, err)
		payments, err := rt.QueueFor(new(paymentService), nil)
		require.NoError(t, err)
		assert.Same(t, invoices, payments)
		assert.Equal(t, "billing", invoices.Name())
	})
	t.Run("With private queues", func(t *testing.T) {
		rt := newTestRuntime(t)
		first, err := rt.QueueFor(new(counter), nil)
		require.NoError(t, err)
		second, err := rt.QueueFor(new(counter), nil)
		require.NoError(t, err)
		assert.NotSame(t, first, second)
		assert.Equal(t, "actor.counter", first.Name())
	})
}

func TestRuntimeShutdown(t *testing.T) {
	t.Run("With queued invocations", func(t *testing.T) {
		ctx := context.TODO()
		rt := newTestRuntime(t)
		target := new(counter)
		ref, err := Wrap(rt, target)
		require.NoError(t, err)

		for range 10 {
			require.NoError(t, ref.Invoke(ctx, func(_ context.Context, c *counter) error {
				time.Sleep(time.Millisecond)
				c.value++
				return nil
			}, WithNonBlocking()))
		}

		require.NoError(t, rt.Shutdown(ctx))
		require.NoError(t, rt.Shutdown(ctx))
		assert.Equal(t, 10, target.value)
		assert.True(t, ref.Queue().IsStopped())

		err = ref.Invoke(ctx, func(context.Context, *counter) error { return nil })
		require.ErrorIs(t, err, gerrors.ErrQueueStopped)

		_, err = Wrap(rt, new(counter))
		require.ErrorIs(t, err, gerrors.ErrRuntimeStopped)
		_, err = rt.NewQueue()
		require.ErrorIs(t, err, gerrors.ErrRuntimeStopped)
		_, err = rt.QueueFor(new(counter), nil)
		require.ErrorIs(t, err, gerrors.ErrRuntimeStopped)
	})
	t.Run("With a queue that does not drain", func(t *testing.T) {
		rt := newTestRuntime(t)
		ref, err := Wrap(rt, new(counter))
		require.NoError(t, err)

		gate := make(chan struct{})
		require.NoError(t, ref.Invoke(context.TODO(), func(context.Context, *counter) error {
			<-gate
			return nil
		}, WithNonBlocking()))

		ctx, cancel := context.WithTimeout(context.TODO(), 50*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, rt.Shutdown(ctx), context.DeadlineExceeded)

		close(gate)
		<-ref.Queue().Terminated()
	})
}
