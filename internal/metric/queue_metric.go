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

package metric

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/tochemey/servactor"
)

// QueueMetric defines the queue instrumentation
type QueueMetric struct {
	// Specifies the total number of invocations executed
	processedCount metric.Int64Counter
	// Specifies the total number of invocations that returned an error or panicked
	failureCount metric.Int64Counter
	// Specifies the total number of pending operations registered
	pendingOperationCount metric.Int64Counter
	// Specifies the execution latency of an invocation in milliseconds
	executionDuration metric.Int64Histogram
	// Specifies the number of invocations waiting in a mailbox
	mailboxDepth metric.Int64ObservableGauge
}

// NewQueueMetric creates an instance of QueueMetric from the given meter
func NewQueueMetric(meter metric.Meter) (*QueueMetric, error) {
	queueMetric := new(QueueMetric)
	var err error

	if queueMetric.processedCount, err = meter.Int64Counter(
		"queue_processed_count",
		metric.WithDescription("Total number of invocations executed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create processedCount instrument, %w", err)
	}

	if queueMetric.failureCount, err = meter.Int64Counter(
		"queue_failure_count",
		metric.WithDescription("Total number of invocations that failed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create failureCount instrument, %w", err)
	}

	if queueMetric.pendingOperationCount, err = meter.Int64Counter(
		"queue_pending_operation_count",
		metric.WithDescription("Total number of pending operations registered"),
	); err != nil {
		return nil, fmt.Errorf("failed to create pendingOperationCount instrument, %w", err)
	}

	if queueMetric.executionDuration, err = meter.Int64Histogram(
		"queue_execution_duration",
		metric.WithDescription("The latency of an invocation in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create executionDuration instrument, %w", err)
	}

	if queueMetric.mailboxDepth, err = meter.Int64ObservableGauge(
		"queue_mailbox_depth",
		metric.WithDescription("Number of invocations waiting in the mailbox"),
	); err != nil {
		return nil, fmt.Errorf("failed to create mailboxDepth instrument, %w", err)
	}

	return queueMetric, nil
}

// ProcessedCount returns the total number of invocations executed
func (x *QueueMetric) ProcessedCount() metric.Int64Counter {
	return x.processedCount
}

// FailureCount returns the total number of failed invocations
func (x *QueueMetric) FailureCount() metric.Int64Counter {
	return x.failureCount
}

// PendingOperationCount returns the total number of pending operations registered
func (x *QueueMetric) PendingOperationCount() metric.Int64Counter {
	return x.pendingOperationCount
}

// ExecutionDuration returns the invocation latency histogram
func (x *QueueMetric) ExecutionDuration() metric.Int64Histogram {
	return x.executionDuration
}

// MailboxDepth returns the mailbox depth gauge
func (x *QueueMetric) MailboxDepth() metric.Int64ObservableGauge {
	return x.mailboxDepth
}

// Meter returns the meter of the given provider, falling back to the
// global provider when nil
func Meter(provider metric.MeterProvider) metric.Meter {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	return provider.Meter(instrumentationName)
}
