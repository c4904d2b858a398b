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
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	mqttQoS             = 1
	mqttDisconnectQuiet = 250 // milliseconds
)

// MQTTPublisher writes each message to "<prefix>/<service>" with QoS 1.
// MQTT 3 has no headers, so the compression setting is ignored.
type MQTTPublisher struct {
	client mqtt.Client
	cfg    Config
	log    *zap.SugaredLogger
}

var _ Publisher = (*MQTTPublisher)(nil)

func NewMQTT(cfg Config, log *zap.SugaredLogger) (*MQTTPublisher, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	cfg = withDefaults(cfg)

	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	opts := mqtt.NewClientOptions()
	for _, broker := range cfg.Brokers {
		opts.AddBroker(broker)
	}

	opts.SetClientID(cfg.ClientRef + "-" + uuid.NewString()[:8])

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		reader := c.OptionsReader()
		log.Infof("Connected to MQTT broker as %s", reader.ClientID())
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnf("Connection to MQTT broker lost: %v", err)
	})

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("connecting to %v: %w", cfg.Brokers, ErrPublishTimeout)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %v: %w", cfg.Brokers, err)
	}

	return &MQTTPublisher{client: client, cfg: cfg, log: log}, nil
}

func (m *MQTTPublisher) Publish(ctx context.Context, msg *Message) error {
	topic := topicName(m.cfg.TopicPrefix, "/", msg.Service)

	timeout := m.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	token := m.client.Publish(topic, mqttQoS, false, msg.Payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publishing %s to %s: %w", msg.Type, topic, ErrPublishTimeout)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", msg.Type, topic, err)
	}

	m.log.Debugw("Published message", "topic", topic, "type", msg.Type, "id", msg.ID, "bytes", len(msg.Payload))

	return nil
}

func (m *MQTTPublisher) Close() error {
	m.client.Disconnect(mqttDisconnectQuiet)

	return nil
}
