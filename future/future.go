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

package future

import (
	"context"
	"sync"
)

// Future represents a value which may or may not currently be available,
// but will be available at some point in the future, or an error if that value
// could not be made available.
//
// Example usage:
//
//	task := func() (string, error) {
//	    // Perform some long-running computation
//	    return "done", nil
//	}
//
//	f := future.New(task)
//
//	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
//	defer cancel()
//
//	result, err := f.Await(ctx)
type Future[T any] interface {
	// Await blocks until the Future is completed or context is canceled and
	// returns either a result or an error. Awaiting a completed Future
	// returns immediately.
	Await(ctx context.Context) (T, error)
	// Done returns a channel closed once the Future is completed.
	Done() <-chan struct{}

	complete(T, error)
}

// New creates a new Future that executes the given task in a separate goroutine.
// The Future is completed with the value returned by the task or failed with the error.
func New[T any](task func() (T, error)) Future[T] {
	promise := NewPromise[T]()
	go func() {
		result, err := task()
		if err != nil {
			promise.Failure(err)
			return
		}
		promise.Success(result)
	}()
	return promise.Future()
}

// Completed returns a Future already completed with the given value and error.
func Completed[T any](value T, err error) Future[T] {
	f := newFuture[T]()
	f.complete(value, err)
	return f
}

// Map returns a Future completed with fn applied to the value of f, or
// failed with the error of f.
func Map[T, U any](f Future[T], fn func(T) U) Future[U] {
	apply := func() (U, error) {
		value, err := f.Await(context.Background())
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(value), nil
	}

	select {
	case <-f.Done():
		value, err := apply()
		return Completed(value, err)
	default:
		return New(apply)
	}
}

// future implements the Future interface.
type future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// Verify future satisfies the Future interface.
var _ Future[any] = (*future[any])(nil)

func newFuture[T any]() *future[T] {
	return &future[T]{done: make(chan struct{})}
}

// Await blocks until the Future is completed or context is canceled.
func (x *future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-x.done:
		return x.value, x.err
	default:
	}

	select {
	case <-x.done:
		return x.value, x.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed once the Future is completed.
func (x *future[T]) Done() <-chan struct{} {
	return x.done
}

// complete assigns the result only once.
func (x *future[T]) complete(value T, err error) {
	x.once.Do(func() {
		x.value = value
		x.err = err
		close(x.done)
	})
}

// Promise is a writable, single-assignment container which completes a Future.
type Promise[T any] struct {
	future Future[T]
}

// NewPromise returns a new Promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{future: newFuture[T]()}
}

// Success completes the underlying Future with a value.
// Only the first completion of a Promise is observed.
func (p *Promise[T]) Success(value T) {
	p.future.complete(value, nil)
}

// Failure fails the underlying Future with an error.
// Only the first completion of a Promise is observed.
func (p *Promise[T]) Failure(err error) {
	var zero T
	p.future.complete(zero, err)
}

// Future returns the underlying Future.
func (p *Promise[T]) Future() Future[T] {
	return p.future
}
