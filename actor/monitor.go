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

	"github.com/tochemey/servactor/log"
)

// CallDetails describes an invocation to a Monitor.
type CallDetails struct {
	// Queue is the name of the queue running the invocation.
	Queue string
	// Target is the actor the invocation is bound to.
	Target any
	// TypeName is the dynamic type of Target.
	TypeName string
	// Method is the name of the called method, possibly empty.
	Method string
}

func newCallDetails(q *Queue, inv *Invocation) CallDetails {
	return CallDetails{
		Queue:    q.Name(),
		Target:   inv.target,
		TypeName: inv.typeName,
		Method:   inv.method,
	}
}

// String renders the call as queue(type) method.
func (d CallDetails) String() string {
	return fmt.Sprintf("%s(%s) %s", d.Queue, d.TypeName, d.Method)
}

// Monitor observes the invocations executed by queue workers.
// Hooks run on the worker and must not block.
type Monitor interface {
	// EnterMethod is called before the closure of an invocation runs.
	EnterMethod(details CallDetails)
	// ExitMethod is called once the closure returned.
	ExitMethod(details CallDetails)
	// UnhandledError is called when the closure failed or panicked.
	UnhandledError(details CallDetails, err error)
}

// LogMonitor is a Monitor writing to a logger.
type LogMonitor struct {
	logger log.Logger
}

var _ Monitor = (*LogMonitor)(nil)

// NewLogMonitor creates a LogMonitor.
func NewLogMonitor(logger log.Logger) *LogMonitor {
	return &LogMonitor{logger: logger}
}

// EnterMethod implements Monitor.
func (m *LogMonitor) EnterMethod(details CallDetails) {
	m.logger.Debugf("enter %s", details)
}

// ExitMethod implements Monitor.
func (m *LogMonitor) ExitMethod(details CallDetails) {
	m.logger.Debugf("exit %s", details)
}

// UnhandledError implements Monitor.
func (m *LogMonitor) UnhandledError(details CallDetails, err error) {
	m.logger.Errorf("%s unhandled error: %v", details, err)
}
