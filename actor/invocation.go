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
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	gerrors "github.com/tochemey/servactor/errors"
	"github.com/tochemey/servactor/future"
)

// Func is a synchronous closure executed by a queue worker.
// The context carries the execution token of the invocation and must be
// passed along to nested calls.
type Func func(ctx context.Context) error

// AsyncFunc is an asynchronous closure executed by a queue worker.
// It returns a future that completes when the operation it started completes.
type AsyncFunc func(ctx context.Context) future.Future[any]

// Policy defines how an invocation interacts with its caller.
type Policy struct {
	// BlockCaller makes the caller wait for the invocation to execute.
	// Only blocking invocations accept pending operations.
	BlockCaller bool
	// KeepContext makes the worker keep exclusive access to the actor until the
	// future returned by an asynchronous closure completes. Without it the
	// worker moves on as soon as the closure returns, and the remainder of the
	// operation runs outside of the actor's serialization.
	KeepContext bool
}

// DefaultPolicy returns the policy of a regular call: the caller waits and
// asynchronous continuations keep exclusive access to the actor.
func DefaultPolicy() Policy {
	return Policy{BlockCaller: true, KeepContext: true}
}

// Invocation is a unit of work: a closure bound to an actor together with
// the policy and the completion signals of the call.
//
// An invocation is posted once and executed exactly once.
type Invocation struct {
	fn       Func
	asyncFn  AsyncFunc
	target   any
	typeName string
	method   string
	policy   Policy

	queued atomic.Bool
	ctx    context.Context
	queue  *Queue

	// released is set when the worker moved on while the future of the
	// closure is still running.
	released atomic.Bool
	// abandoned is set once the caller stopped waiting for the invocation.
	abandoned atomic.Bool

	mu                sync.Mutex
	pendingOperations []PendingOperation

	promise  *future.Promise[any]
	executed sync.Once
	result   any
	err      error
}

// NewInvocation creates an invocation running a synchronous closure.
// target and method are informational and used for diagnostics.
func NewInvocation(target any, method string, policy Policy, fn Func) *Invocation {
	inv := newInvocation(target, method, policy)
	inv.fn = fn
	return inv
}

// NewAsyncInvocation creates an invocation running an asynchronous closure.
func NewAsyncInvocation(target any, method string, policy Policy, fn AsyncFunc) *Invocation {
	inv := newInvocation(target, method, policy)
	inv.asyncFn = fn
	return inv
}

func newInvocation(target any, method string, policy Policy) *Invocation {
	return &Invocation{
		target:   target,
		typeName: fmt.Sprintf("%T", target),
		method:   method,
		policy:   policy,
		ctx:      context.Background(),
		promise:  future.NewPromise[any](),
	}
}

// Policy returns the policy of the invocation.
func (inv *Invocation) Policy() Policy {
	return inv.policy
}

// IsAsync reports whether the invocation runs an asynchronous closure.
func (inv *Invocation) IsAsync() bool {
	return inv.asyncFn != nil
}

// Target returns the actor the invocation is bound to.
func (inv *Invocation) Target() any {
	return inv.target
}

// Method returns the name of the called method.
func (inv *Invocation) Method() string {
	return inv.method
}

// Queue returns the queue the invocation was posted to, or nil.
func (inv *Invocation) Queue() *Queue {
	return inv.queue
}

// String returns a human-readable rendering of the invocation.
func (inv *Invocation) String() string {
	if inv.method == "" {
		return inv.typeName
	}
	return fmt.Sprintf("%s.%s", inv.typeName, inv.method)
}

// Done returns a channel closed once the invocation executed.
func (inv *Invocation) Done() <-chan struct{} {
	return inv.promise.Future().Done()
}

// IsExecuted reports whether the invocation executed.
func (inv *Invocation) IsExecuted() bool {
	select {
	case <-inv.Done():
		return true
	default:
		return false
	}
}

// Err returns the error of the closure once the invocation executed.
// A recovered panic is reported as a *errors.PanicError.
func (inv *Invocation) Err() error {
	if !inv.IsExecuted() {
		return nil
	}
	return inv.err
}

// Result returns the value the future of an asynchronous closure resolved with.
func (inv *Invocation) Result() any {
	if !inv.IsExecuted() {
		return nil
	}
	return inv.result
}

// WaitExecuted blocks until the invocation executed.
//
// It fails with errors.ErrCallTimeout when the call timeout of the runtime
// elapses first and with the context error when ctx is done. The invocation
// itself is not cancelled and still executes later.
func (inv *Invocation) WaitExecuted(ctx context.Context) error {
	if inv.IsExecuted() {
		return nil
	}

	var expired <-chan time.Time
	if timeout := inv.callTimeout(); timeout != InfiniteTimeout {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-inv.Done():
		return nil
	case <-expired:
		return gerrors.ErrCallTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitExecutedAsync returns a future resolved once the invocation executed,
// with the result and the error of the closure.
func (inv *Invocation) WaitExecutedAsync() future.Future[any] {
	return inv.promise.Future()
}

// EnqueuePendingOperation attaches a pending operation to the invocation.
// Only blocking invocations accept pending operations.
func (inv *Invocation) EnqueuePendingOperation(op PendingOperation) error {
	if op == nil {
		return gerrors.ErrNilArgument
	}

	if !inv.policy.BlockCaller {
		return gerrors.ErrNonBlockingInvocation
	}

	inv.mu.Lock()
	inv.pendingOperations = append(inv.pendingOperations, op)
	inv.mu.Unlock()
	return nil
}

// PendingOperations returns the pending operations in registration order.
func (inv *Invocation) PendingOperations() []PendingOperation {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]PendingOperation, len(inv.pendingOperations))
	copy(out, inv.pendingOperations)
	return out
}

// HasPendingOperations reports whether pending operations were registered.
func (inv *Invocation) HasPendingOperations() bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return len(inv.pendingOperations) > 0
}

// WaitForPendingOperationCompletion waits for every pending operation in
// registration order and reports whether all of them completed.
// It returns false when no pending operation was registered.
func (inv *Invocation) WaitForPendingOperationCompletion(ctx context.Context) bool {
	operations := inv.PendingOperations()
	if len(operations) == 0 {
		return false
	}

	completed := true
	for _, op := range operations {
		if !op.WaitForCompletion(ctx) {
			completed = false
		}
	}
	return completed
}

// WaitForPendingOperationCompletionAsync is the non-blocking form of
// WaitForPendingOperationCompletion.
func (inv *Invocation) WaitForPendingOperationCompletionAsync(ctx context.Context) future.Future[bool] {
	if !inv.HasPendingOperations() {
		return future.Completed(false, nil)
	}
	return future.New(func() (bool, error) {
		return inv.WaitForPendingOperationCompletion(ctx), nil
	})
}

// LastPendingOperationResult returns the result of the last registered
// pending operation producing one. ok is false when none does.
func (inv *Invocation) LastPendingOperationResult() (result any, ok bool) {
	operations := inv.PendingOperations()
	for i := len(operations) - 1; i >= 0; i-- {
		if provider, isProvider := operations[i].(ResultProvider); isProvider {
			return provider.Result(), true
		}
	}
	return nil, false
}

// PendingOperationResult returns the value substituting the return value of
// inv once its pending operations completed: the result of the last pending
// operation producing one. When pending operations exist but none produces a
// result, a bool result is true and any other type gets its zero value.
// Without pending operations the zero value is returned.
func PendingOperationResult[T any](inv *Invocation) T {
	var zero T
	if inv == nil || !inv.HasPendingOperations() {
		return zero
	}

	if result, ok := inv.LastPendingOperationResult(); ok {
		value, _ := result.(T)
		return value
	}

	if _, isBool := any(zero).(bool); isBool {
		return any(true).(T)
	}
	return zero
}

func (inv *Invocation) callTimeout() time.Duration {
	if inv.queue == nil || inv.queue.runtime == nil {
		return InfiniteTimeout
	}
	return inv.queue.runtime.CallTimeout()
}

// markQueued flags the invocation as posted. It fails when already posted.
func (inv *Invocation) markQueued(ctx context.Context, queue *Queue) error {
	if !inv.queued.CompareAndSwap(false, true) {
		return gerrors.ErrInvocationAlreadyQueued
	}
	inv.queue = queue
	inv.ctx = context.WithoutCancel(ctx)
	return nil
}

// holdsQueue reports whether the invocation still runs on its queue.
func (inv *Invocation) holdsQueue() bool {
	return !inv.released.Load() && !inv.IsExecuted()
}

// awaited reports whether the caller of the invocation still waits for it.
func (inv *Invocation) awaited() bool {
	return !inv.abandoned.Load() && !inv.IsExecuted()
}

// signalExecuted records the outcome and releases the waiters.
func (inv *Invocation) signalExecuted(result any, err error) {
	inv.executed.Do(func() {
		inv.result = result
		inv.err = err
		if err != nil {
			inv.promise.Failure(err)
			return
		}
		inv.promise.Success(result)
	})
}
