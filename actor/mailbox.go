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

// Mailbox is the FIFO buffer of invocations posted to a queue.
//
// Concurrency and ordering
//   - Implementations MUST be safe for multiple concurrent producers calling
//     Enqueue and are consumed by a single worker goroutine.
//   - Invocations are dequeued in the order they were enqueued.
//   - Writes performed by a producer before Enqueue MUST be visible to the
//     consumer after Dequeue.
//
// Non-blocking behavior
//   - Enqueue never blocks. Bounded implementations return
//     errors.ErrMailboxFull when full.
//   - Dequeue returns nil when the mailbox is empty.
//
// After Dispose, Enqueue fails and Dequeue returns nil.
type Mailbox interface {
	// Enqueue pushes an invocation into the mailbox.
	Enqueue(inv *Invocation) error
	// Dequeue fetches the next invocation or nil when empty.
	Dequeue() *Invocation
	// IsEmpty reports whether the mailbox currently has no invocation.
	IsEmpty() bool
	// Len returns a snapshot of the number of invocations in the mailbox.
	Len() int64
	// Dispose releases the resources held by the mailbox.
	Dispose()
}

// newMailbox returns an unbounded mailbox when capacity is zero and a
// bounded one otherwise.
func newMailbox(capacity int) Mailbox {
	if capacity > 0 {
		return NewBoundedMailbox(capacity)
	}
	return NewUnboundedMailbox()
}
