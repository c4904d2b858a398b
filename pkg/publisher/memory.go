// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package publisher

import (
	"context"
	"sync"
)

// memoryRetention bounds the messages kept by the memory backend.
const memoryRetention = 100

// MemoryPublisher keeps published messages in memory. With a limit only the
// newest limit messages are kept.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []*Message
	failNext []error
	limit    int
	closed   bool
}

func NewMemory() *MemoryPublisher {
	return &MemoryPublisher{}
}

// FailNext makes the next len(errs) publishes fail with errs in order.
func (m *MemoryPublisher) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failNext = append(m.failNext, errs...)
}

func (m *MemoryPublisher) Publish(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.failNext) > 0 {
		err := m.failNext[0]
		m.failNext = m.failNext[1:]

		return err
	}

	cp := *msg
	cp.Payload = append([]byte(nil), msg.Payload...)
	m.messages = append(m.messages, &cp)

	if m.limit > 0 && len(m.messages) > m.limit {
		m.messages = append([]*Message(nil), m.messages[len(m.messages)-m.limit:]...)
	}

	return nil
}

// Messages returns the accepted messages in publish order.
func (m *MemoryPublisher) Messages() []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*Message(nil), m.messages...)
}

func (m *MemoryPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

func (m *MemoryPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}
