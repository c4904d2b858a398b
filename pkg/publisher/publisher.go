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

// Package publisher hands serialized payloads to a message queue.
//
// One Publish call carries one flushed pass. Delivery guarantees are those of
// the backend; a returned error means the payload was not accepted and the
// caller must not assume it was delivered.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/constants"
)

// Message is one payload addressed to a downstream service.
type Message struct {
	// Service selects the destination, e.g. "inventory".
	Service string
	// Type is the operation the receiver performs, e.g. "save_inventory".
	Type string
	// ID uniquely identifies the message.
	ID string
	// Key groups messages of one owner so they stay ordered.
	Key string
	// Payload is the encoded body.
	Payload []byte
}

// NewMessage returns a message with a fresh ID.
func NewMessage(service, msgType, key string, payload []byte) *Message {
	return &Message{
		Service: service,
		Type:    msgType,
		ID:      uuid.NewString(),
		Key:     key,
		Payload: payload,
	}
}

// Publisher is safe for sequential use by one collector. The Kafka and MQTT
// backends are also safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
	Close() error
}

// Backend names.
const (
	BackendKafka = "kafka"
	BackendMQTT  = "mqtt"
	BackendLog   = "log"

	// BackendMemory keeps the newest messages in process.
	BackendMemory = "memory"
)

// Compression names.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Config selects and configures a backend.
type Config struct {
	Backend     string
	Brokers     []string
	TopicPrefix string
	ClientRef   string
	Username    string
	Password    string
	Compression string

	// AutoCreateTopics creates missing Kafka topics on first use.
	AutoCreateTopics  bool
	Partitions        int32
	ReplicationFactor int16

	// Timeout bounds a single publish.
	Timeout time.Duration
}

var (
	ErrUnknownBackend = errors.New("unknown queue backend")
	ErrNoBrokers      = errors.New("no brokers configured")
	ErrPublishTimeout = errors.New("publish timed out")
)

// New creates the publisher selected by cfg.Backend.
func New(cfg Config, log *zap.SugaredLogger) (Publisher, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	cfg = withDefaults(cfg)

	switch cfg.Backend {
	case BackendKafka:
		return NewKafka(cfg, log)
	case BackendMQTT:
		return NewMQTT(cfg, log)
	case BackendLog:
		return NewLog(log), nil
	case BackendMemory:
		m := NewMemory()
		m.limit = memoryRetention

		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func withDefaults(cfg Config) Config {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = constants.DefaultTopicPrefix
	}

	if cfg.ClientRef == "" {
		cfg.ClientRef = constants.DefaultClientRef
	}

	if cfg.Compression == "" {
		cfg.Compression = CompressionNone
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultPublishTimeout
	}

	if cfg.Partitions <= 0 {
		cfg.Partitions = 1
	}

	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}

	return cfg
}

// topicName joins prefix and service with sep, skipping an empty prefix.
func topicName(prefix, sep, service string) string {
	prefix = strings.TrimSuffix(prefix, sep)
	if prefix == "" {
		return service
	}

	return prefix + sep + service
}
