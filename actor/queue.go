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
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"

	gerrors "github.com/tochemey/servactor/errors"
	"github.com/tochemey/servactor/future"
)

const (
	idle int32 = iota
	busy
)

// QueueOption configures a queue.
type QueueOption interface {
	Apply(*Queue)
}

var _ QueueOption = QueueOptionFunc(nil)

// QueueOptionFunc implements the QueueOption interface.
type QueueOptionFunc func(*Queue)

// Apply applies the option to the queue
func (f QueueOptionFunc) Apply(q *Queue) {
	f(q)
}

// WithQueueName sets the name of the queue used in diagnostics and call chains.
func WithQueueName(name string) QueueOption {
	return QueueOptionFunc(func(q *Queue) {
		q.name = name
	})
}

// WithQueueCapacity bounds the mailbox of the queue.
// Posting to a full mailbox fails with errors.ErrMailboxFull.
func WithQueueCapacity(capacity int) QueueOption {
	return QueueOptionFunc(func(q *Queue) {
		q.capacity = capacity
	})
}

// Queue is the serial executor of one or more actors.
//
// Invocations posted to a queue run one at a time and in posting order on a
// worker goroutine started on demand. At most one worker exists per queue at
// any time; it exits when the mailbox is drained.
type Queue struct {
	id       string
	name     string
	capacity int
	runtime  *Runtime
	mailbox  Mailbox

	processing atomic.Int32
	executing  atomic.Pointer[Invocation]

	// postMu orders posts against Stop so that nothing is accepted once the
	// queue is stopped.
	postMu  sync.RWMutex
	stopped atomic.Bool

	terminated    chan struct{}
	terminateOnce sync.Once
	attributes    otelmetric.MeasurementOption
}

func newQueue(rt *Runtime, opts ...QueueOption) (*Queue, error) {
	id := uuid.NewString()
	q := &Queue{
		id:         id,
		name:       id,
		capacity:   rt.mailboxCapacity,
		runtime:    rt,
		terminated: make(chan struct{}),
	}

	for _, opt := range opts {
		opt.Apply(q)
	}

	if q.capacity < 0 {
		return nil, gerrors.ErrInvalidMailboxCapacity
	}

	q.mailbox = newMailbox(q.capacity)
	q.attributes = otelmetric.WithAttributes(attribute.String("queue", q.name))
	return q, nil
}

// ID returns the unique identifier of the queue.
func (q *Queue) ID() string {
	return q.id
}

// Name returns the name of the queue.
func (q *Queue) Name() string {
	return q.name
}

// String returns the name of the queue.
func (q *Queue) String() string {
	return q.name
}

// Len returns the number of invocations waiting in the mailbox.
func (q *Queue) Len() int64 {
	return q.mailbox.Len()
}

// IsStopped reports whether the queue was stopped.
func (q *Queue) IsStopped() bool {
	return q.stopped.Load()
}

// Terminated returns a channel closed once the queue is stopped and drained.
func (q *Queue) Terminated() <-chan struct{} {
	return q.terminated
}

// Enqueue posts a synchronous invocation.
//
// When ctx carries the execution token of the invocation currently running on
// this queue, the call is on the worker's own call path: inv runs inline
// right away and the running invocation is returned, so that the caller does
// not wait for itself. Otherwise inv is posted and returned.
func (q *Queue) Enqueue(ctx context.Context, inv *Invocation) (*Invocation, error) {
	if inv == nil {
		return nil, gerrors.ErrNilArgument
	}

	if inv.IsAsync() {
		return nil, gerrors.ErrInvalidInvocation
	}
	return q.enqueue(ctx, inv)
}

// EnqueueAsync posts an asynchronous invocation. It follows the rules of
// Enqueue.
func (q *Queue) EnqueueAsync(ctx context.Context, inv *Invocation) (*Invocation, error) {
	if inv == nil {
		return nil, gerrors.ErrNilArgument
	}

	if !inv.IsAsync() {
		return nil, gerrors.ErrInvalidInvocation
	}
	return q.enqueue(ctx, inv)
}

func (q *Queue) enqueue(ctx context.Context, inv *Invocation) (*Invocation, error) {
	if current := q.passThrough(ctx); current != nil {
		if err := inv.markQueued(ctx, q); err != nil {
			return nil, err
		}
		q.runInline(ctx, current, inv)
		return current, nil
	}

	if err := q.post(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// RegisterPendingOperation attaches op to the invocation running on this
// queue. ctx must be the context handed to that invocation.
func (q *Queue) RegisterPendingOperation(ctx context.Context, op PendingOperation) error {
	if op == nil {
		return gerrors.ErrNilArgument
	}

	current := q.passThrough(ctx)
	if current == nil {
		return gerrors.ErrNoExecutingInvocation
	}

	if err := current.EnqueuePendingOperation(op); err != nil {
		return err
	}

	q.runtime.queueMetric.PendingOperationCount().Add(ctx, 1, q.attributes)
	return nil
}

// WaitForQuiescence blocks until every invocation posted before the call has
// executed, timeout elapses or ctx is done. It reports whether the queue went
// through a quiescent point. A zero or negative timeout means no bound.
//
// Called from the queue's own call path it returns false immediately since
// the queue cannot drain while the caller runs on it.
func (q *Queue) WaitForQuiescence(ctx context.Context, timeout time.Duration) bool {
	if q.passThrough(ctx) != nil {
		return false
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// a full mailbox drains eventually, retry the post until it fits
	var err error
	marker := NewInvocation(q, "WaitForQuiescence", Policy{}, func(context.Context) error { return nil })
	retrier := retry.NewRetrier(math.MaxInt32, time.Millisecond, 50*time.Millisecond)
	_ = retrier.RunContext(ctx, func(ctx context.Context) error {
		if err = q.post(ctx, marker); errors.Is(err, gerrors.ErrMailboxFull) {
			return err
		}
		return nil
	})

	var done <-chan struct{}
	switch {
	case err == nil:
		done = marker.Done()
	case errors.Is(err, gerrors.ErrQueueStopped):
		done = q.terminated
	default:
		return false
	}

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stop stops accepting invocations. Invocations already posted still run;
// Terminated is closed once they did.
func (q *Queue) Stop() {
	q.postMu.Lock()
	stopped := q.stopped.Swap(true)
	q.postMu.Unlock()

	if !stopped {
		q.process()
	}
}

func (q *Queue) post(ctx context.Context, inv *Invocation) error {
	q.postMu.RLock()
	defer q.postMu.RUnlock()

	if q.stopped.Load() {
		return gerrors.ErrQueueStopped
	}

	if err := inv.markQueued(ctx, q); err != nil {
		return err
	}

	if err := q.mailbox.Enqueue(inv); err != nil {
		inv.queued.Store(false)
		return err
	}

	q.process()
	return nil
}

// passThrough returns the running invocation when ctx is on its call path.
func (q *Queue) passThrough(ctx context.Context) *Invocation {
	exec := executionFrom(ctx)
	if exec == nil || exec.queue != q || exec.invocation == nil {
		return nil
	}

	if current := q.executing.Load(); current == exec.invocation {
		return current
	}
	return nil
}

// process starts the worker when the queue is idle.
func (q *Queue) process() {
	if !q.processing.CompareAndSwap(idle, busy) {
		return
	}

	go func() {
		for {
			for inv := q.mailbox.Dequeue(); inv != nil; inv = q.mailbox.Dequeue() {
				q.execute(inv)
			}

			q.processing.Store(idle)

			// a post may have raced with the transition to idle
			if !q.mailbox.IsEmpty() && q.processing.CompareAndSwap(idle, busy) {
				continue
			}

			if q.stopped.Load() && q.mailbox.IsEmpty() {
				q.terminate()
			}
			return
		}
	}()
}

func (q *Queue) terminate() {
	q.terminateOnce.Do(func() {
		q.mailbox.Dispose()
		close(q.terminated)
	})
}

// execute runs a dequeued invocation on the worker.
func (q *Queue) execute(inv *Invocation) {
	ctx := withExecution(inv.ctx, q, inv)
	details := newCallDetails(q, inv)
	monitor := q.runtime.monitor()
	start := time.Now()

	q.executing.Store(inv)
	q.enter(monitor, details)

	if !inv.IsAsync() {
		err := q.call(ctx, inv.fn)
		q.complete(ctx, monitor, details, inv, nil, err, start)
		return
	}

	f, err := q.callAsync(ctx, inv.asyncFn)
	switch {
	case err != nil:
		q.complete(ctx, monitor, details, inv, nil, err, start)
	case inv.policy.KeepContext:
		result, err := f.Await(context.Background())
		q.complete(ctx, monitor, details, inv, result, err, start)
	default:
		// the worker moves on, the continuation runs outside of the queue
		q.exit(monitor, details)
		inv.released.Store(true)
		q.executing.Store(nil)
		go func() {
			result, err := f.Await(context.Background())
			q.report(ctx, monitor, details, err)
			q.record(ctx, start)
			inv.signalExecuted(result, err)
		}()
	}
}

func (q *Queue) complete(ctx context.Context, monitor Monitor, details CallDetails, inv *Invocation, result any, err error, start time.Time) {
	q.report(ctx, monitor, details, err)
	q.exit(monitor, details)
	q.executing.Store(nil)
	q.record(ctx, start)
	inv.signalExecuted(result, err)
}

// runInline runs inv on the caller's goroutine while current holds the queue.
func (q *Queue) runInline(ctx context.Context, current, inv *Invocation) {
	ctx = withExecution(ctx, q, current)
	if !inv.IsAsync() {
		inv.signalExecuted(nil, q.call(ctx, inv.fn))
		return
	}

	f, err := q.callAsync(ctx, inv.asyncFn)
	if err != nil {
		inv.signalExecuted(nil, err)
		return
	}

	select {
	case <-f.Done():
		result, err := f.Await(context.Background())
		inv.signalExecuted(result, err)
	default:
		go func() {
			result, err := f.Await(context.Background())
			inv.signalExecuted(result, err)
		}()
	}
}

// call runs fn and turns a panic into an error.
func (q *Queue) call(ctx context.Context, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toPanicError(r)
		}
	}()
	return fn(ctx)
}

func (q *Queue) callAsync(ctx context.Context, fn AsyncFunc) (f future.Future[any], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toPanicError(r)
		}
	}()

	if f = fn(ctx); f == nil {
		return nil, gerrors.ErrNilArgument
	}
	return f, nil
}

func (q *Queue) report(ctx context.Context, monitor Monitor, details CallDetails, err error) {
	if err == nil {
		return
	}

	q.runtime.logger.Errorf("%s failed: %v", details, err)
	q.runtime.queueMetric.FailureCount().Add(ctx, 1, q.attributes)
	if monitor != nil {
		q.guard(func() { monitor.UnhandledError(details, err) })
	}
}

func (q *Queue) record(ctx context.Context, start time.Time) {
	q.runtime.queueMetric.ProcessedCount().Add(ctx, 1, q.attributes)
	q.runtime.queueMetric.ExecutionDuration().Record(ctx, time.Since(start).Milliseconds(), q.attributes)
}

func (q *Queue) enter(monitor Monitor, details CallDetails) {
	if monitor != nil {
		q.guard(func() { monitor.EnterMethod(details) })
	}
}

func (q *Queue) exit(monitor Monitor, details CallDetails) {
	if monitor != nil {
		q.guard(func() { monitor.ExitMethod(details) })
	}
}

// guard keeps a misbehaving monitor from killing the worker.
func (q *Queue) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.runtime.logger.Warnf("call monitor panicked: %v", r)
		}
	}()
	fn()
}

func toPanicError(r any) error {
	pc, fn, line, _ := runtime.Caller(3)
	if err, ok := r.(error); ok {
		var pe *gerrors.PanicError
		if errors.As(err, &pe) {
			return pe
		}
		return gerrors.NewPanicError(fmt.Errorf("%w at %s[%s:%d]", err, runtime.FuncForPC(pc).Name(), fn, line))
	}
	return gerrors.NewPanicError(fmt.Errorf("%#v at %s[%s:%d]", r, runtime.FuncForPC(pc).Name(), fn, line))
}
