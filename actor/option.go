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
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/servactor/log"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(rt *Runtime)
}

// enforce compilation error
var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Runtime)

// Apply applies the option to the runtime
func (f OptionFunc) Apply(rt *Runtime) {
	f(rt)
}

// WithLogger sets the runtime logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(rt *Runtime) {
		rt.logger = logger
	})
}

// WithCallTimeout sets how long blocking callers wait for their invocation
// to execute. InfiniteTimeout, the default, waits forever.
func WithCallTimeout(timeout time.Duration) Option {
	return OptionFunc(func(rt *Runtime) {
		rt.initialTimeout = timeout
	})
}

// WithMailboxCapacity bounds the mailbox of the queues created by the
// runtime. Zero, the default, means unbounded.
func WithMailboxCapacity(capacity int) Option {
	return OptionFunc(func(rt *Runtime) {
		rt.mailboxCapacity = capacity
	})
}

// WithMeterProvider sets the OpenTelemetry meter provider.
// The global provider is used when not set.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(rt *Runtime) {
		rt.meterProvider = provider
	})
}

// WithMonitor begins monitoring with the given monitor on creation.
func WithMonitor(monitor Monitor) Option {
	return OptionFunc(func(rt *Runtime) {
		rt.initialMonitor = monitor
	})
}
