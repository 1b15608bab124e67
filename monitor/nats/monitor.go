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

// Package nats provides a call monitor publishing the invocations executed
// by the actor queues to a NATS subject.
//
// Each event is a protocol buffers encoded google.protobuf.Struct carrying
// the event kind, the queue, the actor type, the method, the error when the
// kind is "error" and an RFC 3339 timestamp.
package nats

import (
	"errors"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tochemey/servactor/actor"
	"github.com/tochemey/servactor/log"
)

// Event kinds
const (
	EnterEvent = "enter"
	ExitEvent  = "exit"
	ErrorEvent = "error"
)

// ErrNotConnected is returned when closing a monitor that is not connected
var ErrNotConnected = errors.New("nats monitor is not connected")

// Event is a decoded call event
type Event struct {
	Kind      string
	Queue     string
	TypeName  string
	Method    string
	Error     string
	Timestamp time.Time
}

// Monitor is an actor.Monitor publishing call events to NATS.
// Events raised while the monitor is not connected are dropped.
type Monitor struct {
	config *Config
	mu     sync.Mutex

	connected  *atomic.Bool
	connection *nats.Conn

	maxRetries    int
	reconnectWait time.Duration
	logger        log.Logger
}

// enforce compilation error
var _ actor.Monitor = (*Monitor)(nil)

// NewMonitor returns an instance of the nats monitor
func NewMonitor(config *Config, opts ...Option) *Monitor {
	monitor := &Monitor{
		config:        config,
		connected:     atomic.NewBool(false),
		maxRetries:    5,
		reconnectWait: 2 * time.Second,
		logger:        log.DefaultLogger,
	}

	for _, opt := range opts {
		opt.Apply(monitor)
	}

	return monitor
}

// Connect connects the monitor to the NATS server
func (m *Monitor) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected.Load() {
		return nil
	}

	if err := m.config.Validate(); err != nil {
		return err
	}

	opts := nats.GetDefaultOptions()
	opts.Url = m.config.NatsServer
	opts.Name = m.config.ConnectionName
	opts.ReconnectWait = m.reconnectWait
	opts.MaxReconnect = -1

	var connection *nats.Conn
	// connect using an exponential backoff: the server may still be starting
	retrier := retry.NewRetrier(m.maxRetries, 100*time.Millisecond, opts.ReconnectWait)
	if err := retrier.Run(func() error {
		var err error
		connection, err = opts.Connect()
		return err
	}); err != nil {
		return err
	}

	m.connection = connection
	m.connected.Store(true)
	m.logger.Infof("call monitor connected to %s", connection.ConnectedUrl())
	return nil
}

// Close flushes the pending events and closes the connection
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected.Load() {
		return ErrNotConnected
	}

	m.connected.Store(false)
	err := m.connection.Drain()
	m.connection = nil
	return err
}

// EnterMethod implements actor.Monitor.
func (m *Monitor) EnterMethod(details actor.CallDetails) {
	m.publish(EnterEvent, details, nil)
}

// ExitMethod implements actor.Monitor.
func (m *Monitor) ExitMethod(details actor.CallDetails) {
	m.publish(ExitEvent, details, nil)
}

// UnhandledError implements actor.Monitor.
func (m *Monitor) UnhandledError(details actor.CallDetails, err error) {
	m.publish(ErrorEvent, details, err)
}

func (m *Monitor) publish(kind string, details actor.CallDetails, cause error) {
	if !m.connected.Load() {
		return
	}

	fields := map[string]any{
		"kind":      kind,
		"queue":     details.Queue,
		"type":      details.TypeName,
		"method":    details.Method,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if cause != nil {
		fields["error"] = cause.Error()
	}

	payload, err := encode(fields)
	if err != nil {
		m.logger.Warnf("failed to encode %s event for %s: %v", kind, details, err)
		return
	}

	m.mu.Lock()
	connection := m.connection
	m.mu.Unlock()
	if connection == nil {
		return
	}

	// Publish only buffers the message, the worker is not held by the network
	if err := connection.Publish(m.config.NatsSubject, payload); err != nil {
		m.logger.Warnf("failed to publish %s event for %s: %v", kind, details, err)
	}
}

func encode(fields map[string]any) ([]byte, error) {
	message, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(message)
}

// DecodeEvent decodes a call event published by the monitor
func DecodeEvent(data []byte) (*Event, error) {
	message := new(structpb.Struct)
	if err := proto.Unmarshal(data, message); err != nil {
		return nil, err
	}

	fields := message.GetFields()
	event := &Event{
		Kind:     fields["kind"].GetStringValue(),
		Queue:    fields["queue"].GetStringValue(),
		TypeName: fields["type"].GetStringValue(),
		Method:   fields["method"].GetStringValue(),
		Error:    fields["error"].GetStringValue(),
	}

	if timestamp := fields["timestamp"].GetStringValue(); timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, err
		}
		event.Timestamp = parsed
	}
	return event, nil
}
