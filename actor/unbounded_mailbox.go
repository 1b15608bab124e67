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
	"sync"
	"sync/atomic"

	gerrors "github.com/tochemey/servactor/errors"
)

type mpscNode struct {
	next atomic.Pointer[mpscNode]
	data *Invocation
}

var mpscNodePool = sync.Pool{New: func() any { return new(mpscNode) }}

// UnboundedMailbox is the default lock-free, multi-producer single-consumer
// mailbox of a queue.
//
// Len performs a snapshot traversal (O(n)) and is intended for diagnostics.
// Under heavy contention IsEmpty can briefly report empty between the tail
// swap and the link of a producer; no invocation is lost.
type UnboundedMailbox struct {
	head     atomic.Pointer[mpscNode] // consumer only
	_pad1    [64]byte
	tail     atomic.Pointer[mpscNode] // producers only
	_pad2    [64]byte
	disposed atomic.Bool
}

var _ Mailbox = (*UnboundedMailbox)(nil)

// NewUnboundedMailbox creates an UnboundedMailbox.
func NewUnboundedMailbox() *UnboundedMailbox {
	dummy := mpscNodePool.Get().(*mpscNode)
	dummy.next.Store(nil)
	dummy.data = nil
	m := &UnboundedMailbox{}
	m.head.Store(dummy)
	m.tail.Store(dummy)
	return m
}

// Enqueue places the invocation in the mailbox.
func (m *UnboundedMailbox) Enqueue(inv *Invocation) error {
	if m.disposed.Load() {
		return gerrors.ErrQueueStopped
	}

	n := mpscNodePool.Get().(*mpscNode)
	n.data = inv

	prev := m.tail.Swap(n)
	prev.next.Store(n)
	return nil
}

// Dequeue removes and returns the invocation at the head of the mailbox.
// Must be called by a single consumer goroutine.
func (m *UnboundedMailbox) Dequeue() *Invocation {
	head := m.head.Load()
	next := head.next.Load()
	if next == nil {
		return nil
	}

	m.head.Store(next)
	inv := next.data
	next.data = nil

	head.next.Store(nil)
	mpscNodePool.Put(head)
	return inv
}

// Len returns a best-effort snapshot of the number of invocations.
func (m *UnboundedMailbox) Len() int64 {
	var count int64
	for n := m.head.Load().next.Load(); n != nil; n = n.next.Load() {
		count++
	}
	return count
}

// IsEmpty returns true when the mailbox is empty.
func (m *UnboundedMailbox) IsEmpty() bool {
	return m.head.Load().next.Load() == nil
}

// Dispose rejects further posts.
func (m *UnboundedMailbox) Dispose() {
	m.disposed.Store(true)
}
