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

import "context"

type contextKey int

const (
	callContextKey contextKey = iota
	executionKey
)

// execution is the token handed to a closure running on a queue worker.
// A context carrying the token of the queue's running invocation is on the
// same logical call path as that invocation.
type execution struct {
	queue      *Queue
	invocation *Invocation
}

func withExecution(ctx context.Context, queue *Queue, invocation *Invocation) context.Context {
	return context.WithValue(ctx, executionKey, &execution{queue: queue, invocation: invocation})
}

func executionFrom(ctx context.Context) *execution {
	if ctx == nil {
		return nil
	}
	exec, _ := ctx.Value(executionKey).(*execution)
	return exec
}

// Detach returns a context on a fresh logical call path: it keeps the
// values and cancellation of ctx but drops the execution token and the call
// stack. Goroutines started from a running invocation that outlive it
// (timers, I/O callbacks, background work) must use a detached context when
// calling back into actors.
func Detach(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, executionKey, (*execution)(nil))
	return context.WithValue(ctx, callContextKey, (*CallContext)(nil))
}

// CurrentInvocation returns the invocation whose worker is running the given
// context, or nil when the context is not on a queue worker.
func CurrentInvocation(ctx context.Context) *Invocation {
	if exec := executionFrom(ctx); exec != nil && exec.invocation != nil {
		if exec.queue.executing.Load() == exec.invocation {
			return exec.invocation
		}
	}
	return nil
}
