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
	"sync"
	"time"

	gerrors "github.com/tochemey/servactor/errors"
	"github.com/tochemey/servactor/future"
)

// PendingOperation is an asynchronous operation started by an invocation and
// completed later by some external event. The caller of the invocation is not
// released until its pending operations complete or time out.
type PendingOperation interface {
	// WaitForCompletion blocks until the operation completes, its timeout
	// elapses or ctx is done, and reports whether it completed.
	WaitForCompletion(ctx context.Context) bool
	// WaitForCompletionAsync is the non-blocking form of WaitForCompletion.
	WaitForCompletionAsync(ctx context.Context) future.Future[bool]
}

// ResultProvider is implemented by pending operations that produce a value
// substituting the return value of the invocation that registered them.
type ResultProvider interface {
	Result() any
}

// PendingOption configures a completion source.
type PendingOption interface {
	Apply(*CompletionSource)
}

var _ PendingOption = PendingOptionFunc(nil)

// PendingOptionFunc implements the PendingOption interface.
type PendingOptionFunc func(*CompletionSource)

// Apply applies the option to the completion source
func (f PendingOptionFunc) Apply(c *CompletionSource) {
	f(c)
}

// WithCompletionTimeout bounds how long waiters wait for the completion.
// Zero means no bound.
func WithCompletionTimeout(timeout time.Duration) PendingOption {
	return PendingOptionFunc(func(c *CompletionSource) {
		c.timeout = timeout
	})
}

// WithCompletionCallback sets a callback invoked once with the outcome of the
// first wait, true when the operation completed and false when it timed out.
func WithCompletionCallback(callback func(completed bool)) PendingOption {
	return PendingOptionFunc(func(c *CompletionSource) {
		c.callback = callback
	})
}

// CompletionSource is a PendingOperation completed by calling Complete.
//
// Completion is sticky: once completed, every wait returns true immediately.
type CompletionSource struct {
	signal   <-chan struct{}
	complete func()

	timeout      time.Duration
	callback     func(completed bool)
	callbackOnce sync.Once
}

var _ PendingOperation = (*CompletionSource)(nil)

// NewCompletionSource creates a CompletionSource.
// A negative timeout is rejected with errors.ErrInvalidPendingOperation.
func NewCompletionSource(opts ...PendingOption) (*CompletionSource, error) {
	signal := make(chan struct{})
	var once sync.Once
	source := &CompletionSource{
		signal:   signal,
		complete: func() { once.Do(func() { close(signal) }) },
	}
	return source.configure(opts...)
}

func (c *CompletionSource) configure(opts ...PendingOption) (*CompletionSource, error) {
	for _, opt := range opts {
		opt.Apply(c)
	}
	if c.timeout < 0 {
		return nil, gerrors.ErrInvalidPendingOperation
	}
	return c, nil
}

// Complete marks the operation as completed and releases every waiter.
// Calling Complete more than once has no effect.
func (c *CompletionSource) Complete() {
	c.complete()
}

// IsCompleted reports whether the operation completed.
func (c *CompletionSource) IsCompleted() bool {
	select {
	case <-c.signal:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once the operation completed.
func (c *CompletionSource) Done() <-chan struct{} {
	return c.signal
}

// WaitForCompletion blocks until the operation completes, the configured
// timeout elapses or ctx is done, and reports whether it completed.
func (c *CompletionSource) WaitForCompletion(ctx context.Context) bool {
	completed := c.wait(ctx)
	c.callbackOnce.Do(func() {
		if c.callback != nil {
			c.callback(completed)
		}
	})
	return completed
}

// WaitForCompletionAsync returns a future resolved with the outcome of
// WaitForCompletion.
func (c *CompletionSource) WaitForCompletionAsync(ctx context.Context) future.Future[bool] {
	if c.IsCompleted() {
		return future.Completed(c.WaitForCompletion(ctx), nil)
	}
	return future.New(func() (bool, error) {
		return c.WaitForCompletion(ctx), nil
	})
}

func (c *CompletionSource) wait(ctx context.Context) bool {
	if c.IsCompleted() {
		return true
	}

	var expired <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-c.signal:
		return true
	case <-expired:
		return false
	case <-ctx.Done():
		return false
	}
}

// ResultCompletionSource is a CompletionSource that also produces a value.
// The value is computed lazily, when the caller of the invocation reads it.
type ResultCompletionSource[T any] struct {
	*CompletionSource
	result func() T
}

var _ ResultProvider = (*ResultCompletionSource[any])(nil)

// NewResultCompletionSource creates a ResultCompletionSource computing its
// value with result.
func NewResultCompletionSource[T any](result func() T, opts ...PendingOption) (*ResultCompletionSource[T], error) {
	if result == nil {
		return nil, gerrors.ErrNilArgument
	}

	source, err := NewCompletionSource(opts...)
	if err != nil {
		return nil, err
	}
	return &ResultCompletionSource[T]{CompletionSource: source, result: result}, nil
}

// Value returns the value of the operation.
func (r *ResultCompletionSource[T]) Value() T {
	return r.result()
}

// Result implements ResultProvider.
func (r *ResultCompletionSource[T]) Result() any {
	return r.result()
}

// FromFuture bridges a future into a pending operation completed when the
// future is. Its result is the value of the future, or the zero value while
// the future is not completed.
func FromFuture[T any](f future.Future[T], opts ...PendingOption) (*ResultCompletionSource[T], error) {
	if f == nil {
		return nil, gerrors.ErrNilArgument
	}

	source, err := (&CompletionSource{signal: f.Done(), complete: func() {}}).configure(opts...)
	if err != nil {
		return nil, err
	}

	return &ResultCompletionSource[T]{
		CompletionSource: source,
		result: func() T {
			var value T
			select {
			case <-f.Done():
				value, _ = f.Await(context.Background())
			default:
			}
			return value
		},
	}, nil
}
