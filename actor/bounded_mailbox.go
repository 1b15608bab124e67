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
	"errors"

	gods "github.com/Workiva/go-datastructures/queue"

	gerrors "github.com/tochemey/servactor/errors"
)

// BoundedMailbox is a bounded mailbox backed by a ring buffer.
//
// Enqueue never blocks: a post to a full mailbox fails with
// errors.ErrMailboxFull so that callers get backpressure instead of being
// parked behind the worker. The ring buffer rounds the capacity up to the
// next power of two.
type BoundedMailbox struct {
	underlying *gods.RingBuffer
}

var _ Mailbox = (*BoundedMailbox)(nil)

// NewBoundedMailbox creates a BoundedMailbox with the given capacity.
func NewBoundedMailbox(capacity int) *BoundedMailbox {
	return &BoundedMailbox{
		underlying: gods.NewRingBuffer(uint64(capacity)),
	}
}

// Enqueue inserts an invocation into the mailbox.
func (mailbox *BoundedMailbox) Enqueue(inv *Invocation) error {
	ok, err := mailbox.underlying.Offer(inv)
	if err != nil {
		if errors.Is(err, gods.ErrDisposed) {
			return gerrors.ErrQueueStopped
		}
		return err
	}

	if !ok {
		return gerrors.ErrMailboxFull
	}
	return nil
}

// Dequeue removes and returns the next invocation or nil when empty.
func (mailbox *BoundedMailbox) Dequeue() *Invocation {
	if mailbox.underlying.Len() > 0 {
		item, _ := mailbox.underlying.Get()
		if v, ok := item.(*Invocation); ok {
			return v
		}
	}
	return nil
}

// IsEmpty reports whether the mailbox currently has no invocation.
func (mailbox *BoundedMailbox) IsEmpty() bool {
	return mailbox.underlying.Len() == 0
}

// Len returns the current number of invocations in the mailbox.
func (mailbox *BoundedMailbox) Len() int64 {
	return int64(mailbox.underlying.Len())
}

// Capacity returns the effective capacity of the mailbox.
func (mailbox *BoundedMailbox) Capacity() int64 {
	return int64(mailbox.underlying.Cap())
}

// Dispose releases the ring buffer.
func (mailbox *BoundedMailbox) Dispose() {
	mailbox.underlying.Dispose()
}
