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
	"reflect"

	gerrors "github.com/tochemey/servactor/errors"
	"github.com/tochemey/servactor/future"
)

// ReentrantCallsPolicy is implemented by actors accepting reentrant calls:
// calls reaching the actor again along a call path it is already waiting on.
// Such calls run inline instead of failing with *errors.ReentrancyError.
type ReentrantCallsPolicy interface {
	AllowReentrantCalls() bool
}

func allowsReentrantCalls(target any) bool {
	policy, ok := target.(ReentrantCallsPolicy)
	return ok && policy.AllowReentrantCalls()
}

// WrapOption configures the binding of an actor to its queue.
// Options only matter to the first Wrap of a given object.
type WrapOption interface {
	Apply(*wrapConfig)
}

var _ WrapOption = WrapOptionFunc(nil)

// WrapOptionFunc implements the WrapOption interface.
type WrapOptionFunc func(*wrapConfig)

// Apply applies the option
func (f WrapOptionFunc) Apply(c *wrapConfig) {
	f(c)
}

type wrapConfig struct {
	aggregateKey any
	domain       string
	name         string
	reentrant    bool
	capacity     *int
}

// WithAggregateKey makes the actor share the queue of every actor wrapped
// with the same key. The key must be comparable.
func WithAggregateKey(key any) WrapOption {
	return WrapOptionFunc(func(c *wrapConfig) {
		c.aggregateKey = key
	})
}

// WithDomain places the actor in the given service domain, overriding the
// domain declared through DomainMember.
func WithDomain(domain string) WrapOption {
	return WrapOptionFunc(func(c *wrapConfig) {
		c.domain = domain
	})
}

// WithReentrantCalls allows reentrant calls into the actor.
func WithReentrantCalls() WrapOption {
	return WrapOptionFunc(func(c *wrapConfig) {
		c.reentrant = true
	})
}

// WithName names the queue created for the actor.
func WithName(name string) WrapOption {
	return WrapOptionFunc(func(c *wrapConfig) {
		c.name = name
	})
}

// WithCapacity bounds the mailbox of the queue created for the actor.
func WithCapacity(capacity int) WrapOption {
	return WrapOptionFunc(func(c *wrapConfig) {
		c.capacity = &capacity
	})
}

// CallOption configures a single call.
type CallOption interface {
	Apply(*callConfig)
}

var _ CallOption = CallOptionFunc(nil)

// CallOptionFunc implements the CallOption interface.
type CallOptionFunc func(*callConfig)

// Apply applies the option
func (f CallOptionFunc) Apply(c *callConfig) {
	f(c)
}

type callConfig struct {
	method      string
	nonBlocking bool
	dropContext bool
	concurrent  bool
}

func newCallConfig(opts ...CallOption) *callConfig {
	config := new(callConfig)
	for _, opt := range opts {
		opt.Apply(config)
	}
	return config
}

func (c *callConfig) policy() Policy {
	return Policy{BlockCaller: !c.nonBlocking, KeepContext: !c.dropContext}
}

// WithMethod names the call for diagnostics.
func WithMethod(name string) CallOption {
	return CallOptionFunc(func(c *callConfig) {
		c.method = name
	})
}

// WithNonBlocking makes the call fire-and-forget: the caller returns once
// the invocation is posted. Errors of the closure only reach the monitor.
func WithNonBlocking() CallOption {
	return CallOptionFunc(func(c *callConfig) {
		c.nonBlocking = true
	})
}

// WithoutKeepContext releases the actor as soon as an asynchronous closure
// returned its future. The remainder of the operation runs concurrently with
// the next invocations of the actor.
func WithoutKeepContext() CallOption {
	return CallOptionFunc(func(c *callConfig) {
		c.dropContext = true
	})
}

// WithConcurrentAccess bypasses the queue: the closure runs directly on the
// caller's goroutine. Use it for read-only or internally synchronized methods.
func WithConcurrentAccess() CallOption {
	return CallOptionFunc(func(c *callConfig) {
		c.concurrent = true
	})
}

// Ref is the handle through which an actor is called. Every call through a
// Ref runs on the queue of the actor.
type Ref[T any] struct {
	runtime *Runtime
	target  T
	binding *binding
}

// Wrap returns the Ref of target. target must be a non-nil pointer, or an
// interface holding one.
//
// Wrapping the same object twice for the same type returns the same Ref.
// Wrapping it for another type returns a new Ref sharing the first queue.
func Wrap[T any](rt *Runtime, target T, opts ...WrapOption) (*Ref[T], error) {
	if rt == nil {
		return nil, gerrors.ErrNilArgument
	}

	if rt.stopped.Load() {
		return nil, gerrors.ErrRuntimeStopped
	}

	value := reflect.ValueOf(target)
	if !value.IsValid() || value.Kind() != reflect.Pointer || value.IsNil() {
		return nil, gerrors.ErrInvalidInstance
	}

	identity := any(target)
	key := refKey{target: identity, kind: reflect.TypeFor[T]()}
	if cached, ok := rt.refs.Get(key); ok {
		return cached.(*Ref[T]), nil
	}

	config := new(wrapConfig)
	for _, opt := range opts {
		opt.Apply(config)
	}

	if config.capacity != nil && *config.capacity < 0 {
		return nil, gerrors.ErrInvalidMailboxCapacity
	}

	b, err := rt.bind(identity, config)
	if err != nil {
		return nil, err
	}

	ref, _ := rt.refs.GetOrCreate(key, func() any {
		return &Ref[T]{runtime: rt, target: target, binding: b}
	})
	return ref.(*Ref[T]), nil
}

// Queue returns the queue of the actor.
func (r *Ref[T]) Queue() *Queue {
	return r.binding.queue
}

// AllowsReentrantCalls reports whether the actor accepts reentrant calls.
func (r *Ref[T]) AllowsReentrantCalls() bool {
	return r.binding.reentrant
}

// Invoke runs fn against the actor and waits for it, unless WithNonBlocking
// is given. It returns the error of fn, the timeout of the call or a
// *errors.ReentrancyError. Pending operations registered by fn are waited for;
// those not completing in time are logged.
func (r *Ref[T]) Invoke(ctx context.Context, fn func(ctx context.Context, actor T) error, opts ...CallOption) error {
	if fn == nil {
		return gerrors.ErrNilArgument
	}

	config := newCallConfig(opts...)
	inv := NewInvocation(r.target, config.method, config.policy(), func(ctx context.Context) error {
		return fn(ctx, r.target)
	})

	if config.concurrent {
		return r.binding.queue.call(ctx, inv.fn)
	}

	release, err := r.runtime.dispatch(ctx, r.binding, inv)
	if err != nil {
		return err
	}
	defer release()

	if !inv.policy.BlockCaller {
		return nil
	}
	return r.runtime.awaitCompletion(ctx, inv)
}

// InvokeAsync runs the asynchronous closure fn against the actor. The
// returned future completes once the future of fn and the pending
// operations of the call completed, with the value substituted like in Query.
// With WithNonBlocking the future completes as soon as the call is posted.
func (r *Ref[T]) InvokeAsync(ctx context.Context, fn func(ctx context.Context, actor T) future.Future[any], opts ...CallOption) future.Future[any] {
	if fn == nil {
		return future.Completed[any](nil, gerrors.ErrNilArgument)
	}

	config := newCallConfig(opts...)
	inv := NewAsyncInvocation(r.target, config.method, config.policy(), func(ctx context.Context) future.Future[any] {
		return fn(ctx, r.target)
	})

	return dispatchAsync(ctx, r, config, inv, func() any { return inv.Result() })
}

// Query runs fn against the actor, waits for it and returns its value.
//
// When fn registered pending operations, the value is replaced by the result
// of the last pending operation producing one (see PendingOperationResult),
// and the call fails with errors.ErrPendingOperationIncomplete when they do
// not complete in time. Query always blocks; WithNonBlocking is ignored.
func Query[T, R any](ctx context.Context, ref *Ref[T], fn func(ctx context.Context, actor T) (R, error), opts ...CallOption) (R, error) {
	var out R
	if ref == nil || fn == nil {
		return out, gerrors.ErrNilArgument
	}

	config := newCallConfig(opts...)
	config.nonBlocking = false
	inv := NewInvocation(ref.target, config.method, config.policy(), func(ctx context.Context) error {
		var err error
		out, err = fn(ctx, ref.target)
		return err
	})

	if config.concurrent {
		err := ref.binding.queue.call(ctx, inv.fn)
		return out, err
	}

	release, err := ref.runtime.dispatch(ctx, ref.binding, inv)
	if err != nil {
		var zero R
		return zero, err
	}
	defer release()
	return awaitResult(ctx, inv, func() R { return out })
}

// QueryAsync runs the asynchronous closure fn against the actor. The returned
// future resolves with the value of fn, substituted like in Query.
func QueryAsync[T, R any](ctx context.Context, ref *Ref[T], fn func(ctx context.Context, actor T) future.Future[R], opts ...CallOption) future.Future[R] {
	if ref == nil || fn == nil {
		return future.Completed(*new(R), gerrors.ErrNilArgument)
	}

	config := newCallConfig(opts...)
	config.nonBlocking = false
	inv := NewAsyncInvocation(ref.target, config.method, config.policy(), func(ctx context.Context) future.Future[any] {
		return erase(fn(ctx, ref.target))
	})

	return dispatchAsync(ctx, ref, config, inv, func() R {
		value, _ := inv.Result().(R)
		return value
	})
}

func dispatchAsync[T, R any](ctx context.Context, ref *Ref[T], config *callConfig, inv *Invocation, result func() R) future.Future[R] {
	var zero R
	if config.concurrent {
		f, err := ref.binding.queue.callAsync(ctx, inv.asyncFn)
		if err != nil {
			return future.Completed(zero, err)
		}
		return future.Map(f, func(v any) R {
			value, _ := v.(R)
			return value
		})
	}

	release, err := ref.runtime.dispatch(ctx, ref.binding, inv)
	if err != nil {
		return future.Completed(zero, err)
	}

	if !inv.policy.BlockCaller {
		release()
		return future.Completed(zero, nil)
	}

	return future.New(func() (R, error) {
		defer release()
		return awaitResult(ctx, inv, result)
	})
}

// awaitResult waits for a blocking invocation and returns its value, or the
// result of its pending operations when it registered some.
func awaitResult[R any](ctx context.Context, inv *Invocation, result func() R) (R, error) {
	var zero R
	if err := inv.WaitExecuted(ctx); err != nil {
		return zero, err
	}

	if err := inv.Err(); err != nil {
		return zero, err
	}

	if !inv.HasPendingOperations() {
		return result(), nil
	}

	if !inv.WaitForPendingOperationCompletion(ctx) {
		return zero, gerrors.ErrPendingOperationIncomplete
	}
	return PendingOperationResult[R](inv), nil
}

func erase[R any](f future.Future[R]) future.Future[any] {
	if f == nil {
		return nil
	}
	return future.Map(f, func(v R) any { return v })
}
