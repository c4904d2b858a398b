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

package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tiendc/go-deepcopy"
	"github.com/vmware/govmomi/vim25/soap"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/backoff"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/constants"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/publisher"
)

// Collector kinds a provider can run.
const (
	CollectorInventory = "inventory"
	CollectorEvents    = "events"
)

type FullConfig struct {
	Agent     AgentConfig      `yaml:"agent"`
	Queue     QueueConfig      `yaml:"queue"`
	Providers []ProviderConfig `yaml:"providers"`
}

type AgentConfig struct {
	MetricsPort int `yaml:"metricsPort"` // Port for /metrics, /live and /ready
	StatusPort  int `yaml:"statusPort"`  // Port for the status API, 0 disables it
}

// QueueConfig describes where payloads are published.
type QueueConfig struct {
	Backend string `yaml:"backend"` // kafka, mqtt or log

	// Brokers wins over Host/Port when both are set.
	Brokers []string `yaml:"brokers,omitempty"`
	Host    string   `yaml:"host,omitempty"`
	Port    int      `yaml:"port,omitempty"`

	Username          string `yaml:"username,omitempty"`
	Password          string `yaml:"password,omitempty"`
	TopicPrefix       string `yaml:"topicPrefix,omitempty"`
	ClientRef         string `yaml:"clientRef,omitempty"`
	Compression       string `yaml:"compression,omitempty"`
	AutoCreateTopics  bool   `yaml:"autoCreateTopics,omitempty"`
	Partitions        int32  `yaml:"partitions,omitempty"`
	ReplicationFactor int16  `yaml:"replicationFactor,omitempty"`
	TimeoutSeconds    int    `yaml:"timeoutSeconds,omitempty"`
}

// ProviderConfig is one vCenter and the collectors run against it.
type ProviderConfig struct {
	Name           string   `yaml:"name"`
	EmsID          int64    `yaml:"emsId"`
	Hostname       string   `yaml:"hostname"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Insecure       bool     `yaml:"insecure,omitempty"`
	Collectors     []string `yaml:"collectors,omitempty"`
	MaxWaitSeconds int      `yaml:"maxWaitSeconds,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() FullConfig {
	return FullConfig{
		Agent: AgentConfig{
			MetricsPort: constants.DefaultMetricsPort,
			StatusPort:  constants.DefaultStatusPort,
		},
		Queue: QueueConfig{
			Backend:     publisher.BackendLog,
			TopicPrefix: constants.DefaultTopicPrefix,
			ClientRef:   constants.DefaultClientRef,
			Compression: publisher.CompressionNone,
		},
	}
}

// Clone creates a deep copy of FullConfig.
func (c FullConfig) Clone() FullConfig {
	var clone FullConfig
	_ = deepcopy.Copy(&clone, &c)

	return clone
}

// Clone creates a deep copy of ProviderConfig.
func (p ProviderConfig) Clone() ProviderConfig {
	var clone ProviderConfig
	_ = deepcopy.Copy(&clone, &p)

	return clone
}

// MaxWait returns the long-poll timeout of the provider.
func (p ProviderConfig) MaxWait() time.Duration {
	if p.MaxWaitSeconds <= 0 {
		return constants.DefaultMaxWait
	}

	return time.Duration(p.MaxWaitSeconds) * time.Second
}

// CollectorName identifies one collector of a provider in logs, metrics and
// the status API.
func (p ProviderConfig) CollectorName(kind string) string {
	return p.Name + "/" + kind
}

// PublisherConfig translates the queue section.
func (q QueueConfig) PublisherConfig() publisher.Config {
	brokers := append([]string(nil), q.Brokers...)
	if len(brokers) == 0 && q.Host != "" {
		brokers = []string{q.address()}
	}

	return publisher.Config{
		Backend:           q.Backend,
		Brokers:           brokers,
		TopicPrefix:       q.TopicPrefix,
		ClientRef:         q.ClientRef,
		Username:          q.Username,
		Password:          q.Password,
		Compression:       q.Compression,
		AutoCreateTopics:  q.AutoCreateTopics,
		Partitions:        q.Partitions,
		ReplicationFactor: q.ReplicationFactor,
		Timeout:           time.Duration(q.TimeoutSeconds) * time.Second,
	}
}

func (q QueueConfig) address() string {
	if q.Port == 0 {
		return q.Host
	}

	return net.JoinHostPort(q.Host, strconv.Itoa(q.Port))
}

var (
	ErrNoProviders = errors.New("no providers configured")
	ErrInvalidPort = errors.New("port out of range")
)

// Validate reports every problem found, joined into one error. A hostname
// that does not parse as an endpoint URL is a permanent error.
func (c FullConfig) Validate() error {
	var errs []error

	if err := validatePort("agent.metricsPort", c.Agent.MetricsPort, false); err != nil {
		errs = append(errs, err)
	}

	if err := validatePort("agent.statusPort", c.Agent.StatusPort, true); err != nil {
		errs = append(errs, err)
	}

	switch c.Queue.Backend {
	case publisher.BackendKafka, publisher.BackendMQTT:
		if len(c.Queue.Brokers) == 0 && c.Queue.Host == "" {
			errs = append(errs, fmt.Errorf("queue: %w", publisher.ErrNoBrokers))
		}
	case publisher.BackendLog, publisher.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("queue.backend: %w: %q", publisher.ErrUnknownBackend, c.Queue.Backend))
	}

	switch c.Queue.Compression {
	case "", publisher.CompressionNone, publisher.CompressionZstd:
	default:
		errs = append(errs, fmt.Errorf("queue.compression: unsupported value %q", c.Queue.Compression))
	}

	if len(c.Providers) == 0 {
		errs = append(errs, ErrNoProviders)
	}

	names := map[string]bool{}

	for i, p := range c.Providers {
		field := fmt.Sprintf("providers[%d]", i)

		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", field))
		} else if names[p.Name] {
			errs = append(errs, fmt.Errorf("%s.name %q is not unique", field, p.Name))
		}

		names[p.Name] = true

		if p.Hostname == "" {
			errs = append(errs, fmt.Errorf("%s.hostname is required", field))
		} else if _, err := soap.ParseURL(p.Hostname); err != nil {
			errs = append(errs, backoff.NewPermanentError(fmt.Errorf("%s.hostname %q: %w", field, p.Hostname, err)))
		}

		if p.Username == "" {
			errs = append(errs, fmt.Errorf("%s.username is required", field))
		}

		if p.Password == "" {
			errs = append(errs, fmt.Errorf("%s.password is required", field))
		}

		if p.EmsID <= 0 {
			errs = append(errs, fmt.Errorf("%s.emsId is required", field))
		}

		if p.MaxWaitSeconds < 0 {
			errs = append(errs, fmt.Errorf("%s.maxWaitSeconds must not be negative", field))
		}

		for _, kind := range p.Collectors {
			if kind != CollectorInventory && kind != CollectorEvents {
				errs = append(errs, fmt.Errorf("%s.collectors: unknown collector %q", field, kind))
			}
		}
	}

	return errors.Join(errs...)
}

func validatePort(field string, port int, allowZero bool) error {
	if port == 0 && allowZero {
		return nil
	}

	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s: %w: %d", field, ErrInvalidPort, port)
	}

	return nil
}
