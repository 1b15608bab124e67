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
	"fmt"
	"reflect"

	"github.com/zeebo/xxh3"

	gerrors "github.com/tochemey/servactor/errors"
	"github.com/tochemey/servactor/internal/xsync"
)

const registryShards = 32

// DomainMember is implemented by actors declaring a service domain.
// Actors of the same domain share one queue and therefore never run
// concurrently with each other.
type DomainMember interface {
	ServiceDomain() string
}

// registry maps aggregation keys to the queue of their aggregate.
// A key is bound to the first queue stored for it and never rebound. Keys
// are compared with ==, their rendering only selects the shard.
type registry struct {
	shards [registryShards]*xsync.Map[any, *Queue]
}

func newRegistry() *registry {
	r := new(registry)
	for i := range r.shards {
		r.shards[i] = xsync.NewMap[any, *Queue]()
	}
	return r
}

// getOrCreate returns the queue bound to key, binding the one returned by
// create when there is none.
func (r *registry) getOrCreate(key any, create func() *Queue) (queue *Queue, err error) {
	shard, err := shardOf(key)
	if err != nil {
		return nil, err
	}

	// a comparable struct may still hold an unhashable value in an interface field
	defer func() {
		if recover() != nil {
			queue, err = nil, gerrors.ErrInvalidAggregateKey
		}
	}()

	queue, _ = r.shards[shard].GetOrCreate(key, create)
	return queue, nil
}

func (r *registry) queues() []*Queue {
	var out []*Queue
	for _, shard := range r.shards {
		out = append(out, shard.Values()...)
	}
	return out
}

// shardOf returns the shard of key. Pointers are hashed by address.
func shardOf(key any) (uint64, error) {
	if key == nil {
		return 0, gerrors.ErrNilArgument
	}

	kind := reflect.TypeOf(key)
	if !kind.Comparable() {
		return 0, gerrors.ErrInvalidAggregateKey
	}

	var rendered string
	switch kind.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		rendered = fmt.Sprintf("%s@%p", kind, key)
	default:
		rendered = fmt.Sprintf("%s:%v", kind, key)
	}
	return xxh3.HashString(rendered) % registryShards, nil
}

// domainOf returns the service domain declared by target.
func domainOf(target any) string {
	if member, ok := target.(DomainMember); ok {
		return member.ServiceDomain()
	}
	return ""
}
