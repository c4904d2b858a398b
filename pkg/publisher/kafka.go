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
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	headerMessageType     = "message_type"
	headerMessageID       = "message_id"
	headerContentEncoding = "content_encoding"

	knownTopicTTL = 10 * time.Minute
)

// topicAdmin is the part of sarama.ClusterAdmin used for topic creation.
type topicAdmin interface {
	ListTopics() (map[string]sarama.TopicDetail, error)
	CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error
	Close() error
}

// KafkaPublisher writes each message to "<prefix>.<service>" keyed by the
// message key.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	admin    topicAdmin
	cfg      Config
	log      *zap.SugaredLogger

	knownTopics *cache.Cache
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafka connects a synchronous producer to cfg.Brokers.
func NewKafka(cfg Config, log *zap.SugaredLogger) (*KafkaPublisher, error) {
	cfg = withDefaults(cfg)

	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	saramaCfg := newSaramaConfig(cfg)

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}

	var admin topicAdmin

	if cfg.AutoCreateTopics {
		clusterAdmin, err := sarama.NewClusterAdmin(cfg.Brokers, saramaCfg)
		if err != nil {
			_ = producer.Close()

			return nil, fmt.Errorf("creating kafka admin: %w", err)
		}

		admin = clusterAdmin
	}

	return newKafkaPublisher(producer, admin, cfg, log), nil
}

func newKafkaPublisher(producer sarama.SyncProducer, admin topicAdmin, cfg Config, log *zap.SugaredLogger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &KafkaPublisher{
		producer:    producer,
		admin:       admin,
		cfg:         withDefaults(cfg),
		log:         log,
		knownTopics: cache.New(knownTopicTTL, 2*knownTopicTTL),
	}
}

func newSaramaConfig(cfg Config) *sarama.Config {
	c := sarama.NewConfig()
	c.ClientID = cfg.ClientRef
	c.Producer.Return.Successes = true
	c.Producer.Return.Errors = true
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Retry.Max = 5
	c.Producer.Timeout = cfg.Timeout
	c.Net.DialTimeout = cfg.Timeout

	if cfg.Username != "" {
		c.Net.SASL.Enable = true
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		c.Net.SASL.User = cfg.Username
		c.Net.SASL.Password = cfg.Password
	}

	return c
}

// Publish blocks until the broker acknowledged the message. The sarama
// producer does not take a context; ctx is only checked before sending.
func (k *KafkaPublisher) Publish(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	topic := topicName(k.cfg.TopicPrefix, ".", msg.Service)

	if err := k.ensureTopic(topic); err != nil {
		return err
	}

	payload, encoding, err := encodePayload(k.cfg.Compression, msg.Payload)
	if err != nil {
		return fmt.Errorf("compressing payload: %w", err)
	}

	pm := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(msg.Key),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerMessageType), Value: []byte(msg.Type)},
			{Key: []byte(headerMessageID), Value: []byte(msg.ID)},
			{Key: []byte(headerContentEncoding), Value: []byte(encoding)},
		},
	}

	partition, offset, err := k.producer.SendMessage(pm)
	if err != nil {
		return fmt.Errorf("sending %s to %s: %w", msg.Type, topic, err)
	}

	k.log.Debugw("Published message",
		"topic", topic, "type", msg.Type, "id", msg.ID,
		"partition", partition, "offset", offset, "bytes", len(payload))

	return nil
}

func (k *KafkaPublisher) ensureTopic(topic string) error {
	if k.admin == nil {
		return nil
	}

	if _, ok := k.knownTopics.Get(topic); ok {
		return nil
	}

	topics, err := k.admin.ListTopics()
	if err != nil {
		return fmt.Errorf("listing topics: %w", err)
	}

	if _, ok := topics[topic]; !ok {
		err = k.admin.CreateTopic(topic, &sarama.TopicDetail{
			NumPartitions:     k.cfg.Partitions,
			ReplicationFactor: k.cfg.ReplicationFactor,
		}, false)
		if err != nil && !isTopicExists(err) {
			return fmt.Errorf("creating topic %s: %w", topic, err)
		}

		k.log.Infof("Created topic %s", topic)
	}

	k.knownTopics.SetDefault(topic, struct{}{})

	return nil
}

func isTopicExists(err error) bool {
	if errors.Is(err, sarama.ErrTopicAlreadyExists) {
		return true
	}

	var topicErr *sarama.TopicError

	return errors.As(err, &topicErr) && topicErr.Err == sarama.ErrTopicAlreadyExists
}

func (k *KafkaPublisher) Close() error {
	err := k.producer.Close()

	if k.admin != nil {
		err = errors.Join(err, k.admin.Close())
	}

	return err
}
