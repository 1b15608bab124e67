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
	"reflect"
	"strings"
	"sync"
	"time"

	goset "github.com/deckarep/golang-set/v2"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	gerrors "github.com/tochemey/servactor/errors"
	imetric "github.com/tochemey/servactor/internal/metric"
	"github.com/tochemey/servactor/internal/validation"
	"github.com/tochemey/servactor/internal/xsync"
	"github.com/tochemey/servactor/log"
)

// InfiniteTimeout disables the call timeout.
const InfiniteTimeout time.Duration = -1

// binding is the queue an actor is bound to.
type binding struct {
	queue     *Queue
	reentrant bool
}

type refKey struct {
	target any
	kind   reflect.Type
}

type monitorSlot struct {
	monitor Monitor
}

// Runtime owns the queues of a set of actors together with the settings
// shared by all of them: the call timeout, the call monitor, the logger and
// the metrics.
type Runtime struct {
	logger          log.Logger
	mailboxCapacity int
	meterProvider   metric.MeterProvider
	initialTimeout  time.Duration
	initialMonitor  Monitor

	callTimeout  atomic.Duration
	queueMetric  *imetric.QueueMetric
	registration metric.Registration

	monitorMu     sync.Mutex
	activeMonitor atomic.Pointer[monitorSlot]

	registry *registry
	bindings *xsync.Map[any, *binding]
	refs     *xsync.Map[refKey, any]
	stopped  atomic.Bool
}

// NewRuntime creates a Runtime.
func NewRuntime(opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		logger:         log.DefaultLogger,
		initialTimeout: InfiniteTimeout,
		registry:       newRegistry(),
		bindings:       xsync.NewMap[any, *binding](),
		refs:           xsync.NewMap[refKey, any](),
	}

	for _, opt := range opts {
		opt.Apply(rt)
	}

	if err := validation.New(validation.FailFast()).
		AddCheck(rt.logger != nil, gerrors.ErrNilArgument).
		AddCheck(validTimeout(rt.initialTimeout), gerrors.ErrInvalidTimeout).
		AddCheck(rt.mailboxCapacity >= 0, gerrors.ErrInvalidMailboxCapacity).
		Validate(); err != nil {
		return nil, err
	}

	rt.callTimeout.Store(rt.initialTimeout)

	meter := imetric.Meter(rt.meterProvider)
	queueMetric, err := imetric.NewQueueMetric(meter)
	if err != nil {
		return nil, err
	}
	rt.queueMetric = queueMetric

	if rt.registration, err = meter.RegisterCallback(rt.observeMailboxes, queueMetric.MailboxDepth()); err != nil {
		return nil, fmt.Errorf("failed to register mailbox depth callback, %w", err)
	}

	if rt.initialMonitor != nil {
		if _, err := rt.BeginMonitor(rt.initialMonitor); err != nil {
			return nil, err
		}
	}

	return rt, nil
}

// Logger returns the runtime logger.
func (rt *Runtime) Logger() log.Logger {
	return rt.logger
}

// CallTimeout returns how long blocking callers wait for their invocation.
func (rt *Runtime) CallTimeout() time.Duration {
	return rt.callTimeout.Load()
}

// SetCallTimeout changes the call timeout. It accepts a positive duration or
// InfiniteTimeout. Callers already waiting keep their previous timeout.
func (rt *Runtime) SetCallTimeout(timeout time.Duration) error {
	if !validTimeout(timeout) {
		return gerrors.ErrInvalidTimeout
	}
	rt.callTimeout.Store(timeout)
	return nil
}

// BeginMonitor installs monitor as the call monitor of every queue of the
// runtime. Only one monitor is active at a time. The returned function ends
// the monitoring.
func (rt *Runtime) BeginMonitor(monitor Monitor) (func(), error) {
	if monitor == nil {
		return nil, gerrors.ErrNilArgument
	}

	rt.monitorMu.Lock()
	defer rt.monitorMu.Unlock()

	if rt.activeMonitor.Load() != nil {
		return nil, gerrors.ErrMonitorAlreadyActive
	}

	slot := &monitorSlot{monitor: monitor}
	rt.activeMonitor.Store(slot)
	return func() {
		rt.monitorMu.Lock()
		rt.activeMonitor.CompareAndSwap(slot, nil)
		rt.monitorMu.Unlock()
	}, nil
}

// EndMonitor removes monitor. It fails with errors.ErrMonitorMismatch when
// monitor is not the active one. Monitors are compared by identity.
func (rt *Runtime) EndMonitor(monitor Monitor) error {
	rt.monitorMu.Lock()
	defer rt.monitorMu.Unlock()

	slot := rt.activeMonitor.Load()
	if slot == nil || slot.monitor != monitor {
		return gerrors.ErrMonitorMismatch
	}

	rt.activeMonitor.Store(nil)
	return nil
}

func (rt *Runtime) monitor() Monitor {
	if slot := rt.activeMonitor.Load(); slot != nil {
		return slot.monitor
	}
	return nil
}

// NewQueue creates a queue that is not bound to any actor.
// The caller owns it and stops it.
func (rt *Runtime) NewQueue(opts ...QueueOption) (*Queue, error) {
	if rt.stopped.Load() {
		return nil, gerrors.ErrRuntimeStopped
	}
	return newQueue(rt, opts...)
}

// QueueFor returns the queue serving target.
//
// A non-nil aggregateKey selects the queue shared by every actor wrapped with
// that key. Otherwise a target declaring a service domain gets the queue of
// its domain. Otherwise a new private queue is returned. Keys and domains are
// bound to the first queue created for them.
func (rt *Runtime) QueueFor(target any, aggregateKey any) (*Queue, error) {
	return rt.resolve(target, aggregateKey, "", "")
}

func (rt *Runtime) resolve(target, aggregateKey any, domain, name string, opts ...QueueOption) (*Queue, error) {
	if rt.stopped.Load() {
		return nil, gerrors.ErrRuntimeStopped
	}

	if domain == "" {
		domain = domainOf(target)
	}

	create := func(name string) func() *Queue {
		return func() *Queue {
			queue, _ := newQueue(rt, append([]QueueOption{WithQueueName(name)}, opts...)...)
			return queue
		}
	}

	switch {
	case aggregateKey != nil:
		if name == "" {
			name = fmt.Sprint(aggregateKey)
		}
		return rt.registry.getOrCreate(aggregateKey, create(name))
	case domain != "":
		if name == "" {
			name = domain
		}
		return rt.registry.getOrCreate(domain, create(name))
	default:
		if name == "" {
			name = strings.TrimPrefix(fmt.Sprintf("%T", target), "*")
		}
		return newQueue(rt, append([]QueueOption{WithQueueName(name)}, opts...)...)
	}
}

// bind returns the binding of target, creating it with config when absent.
// The first binding of a target wins.
func (rt *Runtime) bind(target any, config *wrapConfig) (*binding, error) {
	if b, ok := rt.bindings.Get(target); ok {
		return b, nil
	}

	var opts []QueueOption
	if config.capacity != nil {
		opts = append(opts, WithQueueCapacity(*config.capacity))
	}

	queue, err := rt.resolve(target, config.aggregateKey, config.domain, config.name, opts...)
	if err != nil {
		return nil, err
	}

	b, _ := rt.bindings.GetOrCreate(target, func() *binding {
		return &binding{queue: queue, reentrant: config.reentrant || allowsReentrantCalls(target)}
	})
	return b, nil
}

// Call runs fn on the queue of target and waits for it to complete.
//
// It lets code running outside of an actor, typically a callback completing
// a pending operation, mutate the actor's state safely. target must have been
// wrapped.
func (rt *Runtime) Call(ctx context.Context, target any, fn Func) error {
	if fn == nil {
		return gerrors.ErrNilArgument
	}

	b, ok := rt.bindings.Get(target)
	if !ok {
		return gerrors.ErrQueueNotFound
	}

	inv := NewInvocation(target, "Call", DefaultPolicy(), fn)
	release, err := rt.dispatch(ctx, b, inv)
	if err != nil {
		return err
	}
	defer release()
	return rt.awaitCompletion(ctx, inv)
}

// RegisterPendingOperation attaches op to the invocation running on the
// queue of target. ctx must be the context handed to that invocation.
func (rt *Runtime) RegisterPendingOperation(ctx context.Context, target any, op PendingOperation) error {
	b, ok := rt.bindings.Get(target)
	if !ok {
		return gerrors.ErrQueueNotFound
	}
	return b.queue.RegisterPendingOperation(ctx, op)
}

// WaitForQuiescence waits until every invocation posted to the queue of
// target before the call has executed. See Queue.WaitForQuiescence.
func (rt *Runtime) WaitForQuiescence(ctx context.Context, target any, timeout time.Duration) (bool, error) {
	b, ok := rt.bindings.Get(target)
	if !ok {
		return false, gerrors.ErrQueueNotFound
	}
	return b.queue.WaitForQuiescence(ctx, timeout), nil
}

// Shutdown stops every queue of the runtime and waits for them to drain.
// Invocations already posted still run.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	if !rt.stopped.CompareAndSwap(false, true) {
		return nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	rt.activeQueues().Each(func(queue *Queue) bool {
		eg.Go(func() error {
			queue.Stop()
			select {
			case <-queue.Terminated():
				return nil
			case <-ctx.Done():
				return fmt.Errorf("failed to drain queue %s: %w", queue.Name(), ctx.Err())
			}
		})
		return false
	})

	err := eg.Wait()
	if rt.registration != nil {
		err = multierr.Append(err, rt.registration.Unregister())
	}

	if err != nil {
		rt.logger.Errorf("runtime shutdown failed: %v", err)
		return err
	}

	rt.logger.Info("runtime stopped")
	return nil
}

// RegisterPendingOperation attaches op to the invocation running the given
// context. ctx must be the context handed to that invocation.
func RegisterPendingOperation(ctx context.Context, op PendingOperation) error {
	exec := executionFrom(ctx)
	if exec == nil {
		return gerrors.ErrNoExecutingInvocation
	}
	return exec.queue.RegisterPendingOperation(ctx, op)
}

// dispatch routes inv to the queue of b following the call path of ctx.
// The returned function must be called once the caller stopped waiting.
func (rt *Runtime) dispatch(ctx context.Context, b *binding, inv *Invocation) (func(), error) {
	queue := b.queue

	// the caller runs on the queue itself
	if queue.passThrough(ctx) != nil {
		_, err := queue.enqueue(ctx, inv)
		return func() {}, err
	}

	callContext := CallContextFrom(ctx)
	canPush, err := callContext.CanPush(queue, b.reentrant)
	if err != nil {
		rt.logger.Warn(err)
		return nil, err
	}

	// the queue is up the call path: run inline when its invocation is
	// waiting for this call to return
	if !canPush {
		if held := callContext.suspended(queue); held != nil && queue.executing.Load() == held {
			if err := inv.markQueued(ctx, queue); err != nil {
				return nil, err
			}
			queue.runInline(ctx, held, inv)
			return func() {}, nil
		}
	}

	pushed := callContext.Push(queue, inv)
	if err := queue.post(withCallContext(ctx, pushed), inv); err != nil {
		return nil, err
	}

	return func() {
		inv.abandoned.Store(true)
		if _, err := pushed.Pop(queue); err != nil {
			rt.logger.Error(err)
		}
	}, nil
}

// awaitCompletion waits for a blocking invocation and its pending operations.
// Pending operations that do not complete are logged, the call still returns.
func (rt *Runtime) awaitCompletion(ctx context.Context, inv *Invocation) error {
	if err := inv.WaitExecuted(ctx); err != nil {
		return err
	}

	if err := inv.Err(); err != nil {
		return err
	}

	if inv.HasPendingOperations() && !inv.WaitForPendingOperationCompletion(ctx) {
		rt.logger.Warnf("%s: pending operations did not complete", inv)
	}
	return nil
}

func (rt *Runtime) activeQueues() goset.Set[*Queue] {
	queues := goset.NewThreadUnsafeSet(rt.registry.queues()...)
	rt.bindings.Range(func(_ any, b *binding) {
		queues.Add(b.queue)
	})
	return queues
}

func (rt *Runtime) observeMailboxes(_ context.Context, observer metric.Observer) error {
	rt.activeQueues().Each(func(queue *Queue) bool {
		observer.ObserveInt64(rt.queueMetric.MailboxDepth(), queue.Len(), queue.attributes)
		return false
	})
	return nil
}

func validTimeout(timeout time.Duration) bool {
	return timeout == InfiniteTimeout || timeout > 0
}
