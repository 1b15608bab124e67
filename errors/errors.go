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

package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTimeout is returned when a timeout value is neither positive nor infinite.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrCallTimeout is returned to a blocking caller when its call did not execute
	// within the configured call timeout.
	ErrCallTimeout = errors.New("call timed out")

	// ErrNilArgument is returned when a required argument is nil.
	ErrNilArgument = errors.New("required argument is nil")

	// ErrInvalidInstance is returned when the object to wrap cannot be used as an actor.
	// Only non-nil pointers have a stable identity.
	ErrInvalidInstance = errors.New("failed to wrap instance. Reason: instance must be a non-nil pointer")

	// ErrNoExecutingInvocation is returned when a pending operation is registered
	// outside of an invocation running on the queue.
	ErrNoExecutingInvocation = errors.New("no invocation is executing on the queue")

	// ErrNonBlockingInvocation is returned when a pending operation is registered
	// on an invocation whose caller does not wait for it.
	ErrNonBlockingInvocation = errors.New("unable to register a pending operation on a non-blocking invocation")

	// ErrQueueNotFound is returned when no queue is bound to the given object.
	// The object must be wrapped before it can be called into.
	ErrQueueNotFound = errors.New("queue not found: wrap the object before calling into it")

	// ErrQueueStopped is returned when posting to a stopped queue.
	ErrQueueStopped = errors.New("queue is stopped")

	// ErrMailboxFull is returned when a bounded mailbox rejects a post.
	ErrMailboxFull = errors.New("mailbox is full")

	// ErrMonitorAlreadyActive is returned when a monitor is begun while another one is active.
	ErrMonitorAlreadyActive = errors.New("a call monitor is already active")

	// ErrMonitorMismatch is returned when ending a monitor that is not the active one.
	ErrMonitorMismatch = errors.New("call monitor is not the active one")

	// ErrPendingOperationIncomplete is returned when a call requiring a result
	// registered a pending operation that did not complete in time.
	ErrPendingOperationIncomplete = errors.New("pending operation did not complete")

	// ErrInvalidPendingOperation is returned when a completion source is built with invalid settings.
	ErrInvalidPendingOperation = errors.New("invalid pending operation")

	// ErrInvalidMailboxCapacity is returned when a bounded mailbox capacity is not positive.
	ErrInvalidMailboxCapacity = errors.New("mailbox capacity must be greater than zero")

	// ErrRuntimeStopped is returned when using a runtime after Shutdown.
	ErrRuntimeStopped = errors.New("runtime is stopped")

	// ErrInvalidInvocation is returned when an invocation is posted through the
	// wrong entry point, a synchronous closure through EnqueueAsync or the reverse.
	ErrInvalidInvocation = errors.New("invalid invocation")

	// ErrInvocationAlreadyQueued is returned when posting an invocation more than once.
	ErrInvocationAlreadyQueued = errors.New("invocation already queued")

	// ErrInvalidAggregateKey is returned when an aggregate key cannot be used as a map key.
	ErrInvalidAggregateKey = errors.New("aggregate key must be comparable")
)

// ReentrancyError is returned when a call path loops back into a queue that is
// already executing on that path and the target does not allow reentrant calls.
type ReentrancyError struct {
	chain []string
}

// NewReentrancyError creates a ReentrancyError for the given chain, ordered
// from the outermost call to the offending target.
func NewReentrancyError(chain ...string) *ReentrancyError {
	return &ReentrancyError{chain: chain}
}

// Error implements the standard error interface
func (e *ReentrancyError) Error() string {
	return fmt.Sprintf("reentrant call detected %s", strings.Join(e.chain, ">>"))
}

// Chain returns the offending call chain.
func (e *ReentrancyError) Chain() []string {
	out := make([]string, len(e.chain))
	copy(out, e.chain)
	return out
}

// PanicError wraps a panic recovered while executing an invocation
type PanicError struct {
	err error
}

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

// Unwrap returns the underlying error
func (e *PanicError) Unwrap() error {
	return e.err
}

// InternalError defines an error that is explicit to the runtime itself
type InternalError struct {
	err error
}

// NewInternalError returns an instance of InternalError
func NewInternalError(err error) *InternalError {
	return &InternalError{
		err: fmt.Errorf("internal error: %w", err),
	}
}

// Error implements the standard error interface
func (i *InternalError) Error() string {
	return i.err.Error()
}

// Unwrap returns the underlying error
func (i *InternalError) Unwrap() error {
	return errors.Unwrap(i.err)
}
