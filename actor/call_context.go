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

	gerrors "github.com/tochemey/servactor/errors"
)

// CallContext tracks the queues executing along a logical call path.
//
// It is an immutable stack: Push and Pop return new values and never modify
// the receiver, so a goroutine forked from a call path inherits a copy that
// evolves independently. The stack travels with the context.Context of the
// call, across goroutines and futures, so an asynchronous chain
// A -> B -> back to A is detected like a synchronous one.
type CallContext struct {
	top *frame
}

type frame struct {
	queue      *Queue
	invocation *Invocation
	blocking   bool
	next       *frame
	depth      int
}

// CallContextFrom returns the call context carried by ctx.
// A context without one yields an empty call context.
func CallContextFrom(ctx context.Context) *CallContext {
	if ctx != nil {
		if cc, ok := ctx.Value(callContextKey).(*CallContext); ok && cc != nil {
			return cc
		}
	}
	return &CallContext{}
}

// CallChain returns the names of the queues on the logical call path of ctx,
// from the outermost call to the innermost.
func CallChain(ctx context.Context) []string {
	return CallContextFrom(ctx).Chain()
}

func withCallContext(ctx context.Context, cc *CallContext) context.Context {
	return context.WithValue(ctx, callContextKey, cc)
}

// CanPush reports whether queue should be pushed onto the call path.
//
// It returns true when the queue is not on the path. When the queue is already
// on the path it returns false if reentrant calls are allowed, meaning the
// caller must run the call inline instead of queuing it behind itself, and a
// *errors.ReentrancyError describing the whole chain otherwise.
func (c *CallContext) CanPush(queue *Queue, allowReentrant bool) (bool, error) {
	if queue == nil {
		return false, gerrors.ErrNilArgument
	}

	if !c.Contains(queue) {
		return true, nil
	}

	if !allowReentrant {
		return false, gerrors.NewReentrancyError(append(c.Chain(), queue.Name())...)
	}
	return false, nil
}

// Push returns a new call context with queue on top. inv is the invocation
// posted to queue by the call, nil when unknown.
func (c *CallContext) Push(queue *Queue, inv *Invocation) *CallContext {
	depth := 1
	if c.top != nil {
		depth = c.top.depth + 1
	}

	blocking := inv == nil || inv.policy.BlockCaller
	return &CallContext{top: &frame{
		queue:      queue,
		invocation: inv,
		blocking:   blocking,
		next:       c.top,
		depth:      depth,
	}}
}

// Pop returns the call context below queue. It fails when queue is not the
// top of the stack, which means pushes and pops were not paired in LIFO order.
func (c *CallContext) Pop(queue *Queue) (*CallContext, error) {
	if c.top == nil || c.top.queue != queue {
		return c, gerrors.NewInternalError(fmt.Errorf("call stack corrupted: %s is not on top", queue.Name()))
	}
	return &CallContext{top: c.top.next}, nil
}

// Contains reports whether queue is held on the call path. A queue entered by
// an invocation that already executed, or whose worker moved on before its
// asynchronous tail completed, is no longer held.
func (c *CallContext) Contains(queue *Queue) bool {
	for f := c.top; f != nil; f = f.next {
		if f.queue == queue && f.holding() {
			return true
		}
	}
	return false
}

// suspended returns the invocation that entered queue on this call path when
// it is still waiting for the path to return: every call made since then
// blocks its caller, and every such caller is still waiting.
func (c *CallContext) suspended(queue *Queue) *Invocation {
	for f := c.top; f != nil; f = f.next {
		if f.queue == queue && f.holding() {
			return f.invocation
		}

		if !f.blocking || (f.invocation != nil && !f.invocation.awaited()) {
			return nil
		}
	}
	return nil
}

func (f *frame) holding() bool {
	return f.invocation == nil || f.invocation.holdsQueue()
}

// Len returns the depth of the call path.
func (c *CallContext) Len() int {
	if c.top == nil {
		return 0
	}
	return c.top.depth
}

// Chain returns the names of the queues from the outermost to the innermost.
func (c *CallContext) Chain() []string {
	chain := make([]string, c.Len())
	for f := c.top; f != nil; f = f.next {
		chain[f.depth-1] = f.queue.Name()
	}
	return chain
}
