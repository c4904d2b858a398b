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

package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/backoff"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/config"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/publisher"
)

const sample = `
agent:
  metricsPort: 9100
  statusPort: 0
queue:
  backend: kafka
  brokers: [redpanda-0:9092, redpanda-1:9092]
  compression: zstd
  autoCreateTopics: true
providers:
  - name: lab
    emsId: 3
    hostname: vcenter.lab.local
    username: administrator@vsphere.local
    password: secret
    insecure: true
    collectors: [inventory, events]
    maxWaitSeconds: 30
`

func setenv(key, value string) {
	old, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())

	DeferCleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

var _ = Describe("Parse", func() {
	It("reads every section", func() {
		cfg, err := config.Parse([]byte(sample))
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Agent.MetricsPort).To(Equal(9100))
		Expect(cfg.Agent.StatusPort).To(Equal(0))
		Expect(cfg.Queue.Backend).To(Equal(publisher.BackendKafka))
		Expect(cfg.Queue.Brokers).To(Equal([]string{"redpanda-0:9092", "redpanda-1:9092"}))
		Expect(cfg.Queue.AutoCreateTopics).To(BeTrue())
		// Defaults survive keys the file does not set.
		Expect(cfg.Queue.TopicPrefix).To(Equal("manageiq"))

		Expect(cfg.Providers).To(HaveLen(1))
		p := cfg.Providers[0]
		Expect(p.EmsID).To(Equal(int64(3)))
		Expect(p.Insecure).To(BeTrue())
		Expect(p.Collectors).To(Equal([]string{"inventory", "events"}))
		Expect(p.MaxWait()).To(Equal(30 * time.Second))
		Expect(p.CollectorName("events")).To(Equal("lab/events"))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("rejects unknown keys", func() {
		_, err := config.Parse([]byte("agent:\n  metricPort: 1\n"))
		Expect(err).To(HaveOccurred())
	})

	It("accepts an empty document", func() {
		cfg, err := config.Parse(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.Default()))
	})

	It("round trips through Marshal", func() {
		cfg, err := config.Parse([]byte(sample))
		Expect(err).NotTo(HaveOccurred())

		data, err := config.Marshal(cfg)
		Expect(err).NotTo(HaveOccurred())

		again, err := config.Parse(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(Equal(cfg))
	})
})

var _ = Describe("Validate", func() {
	It("collects every problem", func() {
		cfg := config.Default()
		cfg.Agent.MetricsPort = 70000
		cfg.Queue.Backend = "amqp"
		cfg.Providers = []config.ProviderConfig{
			{Name: "a", Collectors: []string{"metrics"}},
			{Name: "a", Hostname: "h", Username: "u", Password: "p", EmsID: 1},
		}

		err := cfg.Validate()
		Expect(err).To(MatchError(config.ErrInvalidPort))
		Expect(err).To(MatchError(publisher.ErrUnknownBackend))
		Expect(err.Error()).To(ContainSubstring("providers[0].hostname is required"))
		Expect(err.Error()).To(ContainSubstring("providers[0].password is required"))
		Expect(err.Error()).To(ContainSubstring("providers[0].emsId is required"))
		Expect(err.Error()).To(ContainSubstring(`unknown collector "metrics"`))
		Expect(err.Error()).To(ContainSubstring(`providers[1].name "a" is not unique`))
	})

	It("requires a provider", func() {
		Expect(config.Default().Validate()).To(MatchError(config.ErrNoProviders))
	})

	It("requires brokers for network backends", func() {
		cfg := config.Default()
		cfg.Queue.Backend = publisher.BackendMQTT
		cfg.Providers = []config.ProviderConfig{{Name: "a", Hostname: "h", Username: "u", Password: "p", EmsID: 1}}

		Expect(cfg.Validate()).To(MatchError(publisher.ErrNoBrokers))

		cfg.Queue.Host = "mosquitto"
		Expect(cfg.Validate()).To(Succeed())
	})

	It("rejects a hostname that is not an endpoint URL as permanent", func() {
		cfg := config.Default()
		cfg.Agent.MetricsPort = 70000
		cfg.Providers = []config.ProviderConfig{{Name: "a", Hostname: "vc%zz", Username: "u", Password: "p", EmsID: 1}}

		err := cfg.Validate()
		Expect(err).To(MatchError(ContainSubstring(`providers[0].hostname "vc%zz"`)))
		Expect(backoff.IsPermanentError(err)).To(BeTrue())

		cfg.Agent.MetricsPort = 9100
		cfg.Providers[0].Hostname = "vcenter.example.com"
		Expect(cfg.Validate()).To(Succeed())
	})
})

var _ = Describe("QueueConfig", func() {
	It("builds the broker address from host and port", func() {
		q := config.QueueConfig{Backend: "kafka", Host: "artemis", Port: 61616, TimeoutSeconds: 5}
		pc := q.PublisherConfig()

		Expect(pc.Brokers).To(Equal([]string{"artemis:61616"}))
		Expect(pc.Timeout).To(Equal(5 * time.Second))
	})

	It("prefers explicit brokers", func() {
		q := config.QueueConfig{Brokers: []string{"b:9092"}, Host: "artemis"}
		Expect(q.PublisherConfig().Brokers).To(Equal([]string{"b:9092"}))
	})
})

var _ = Describe("Clone", func() {
	It("does not share slices", func() {
		cfg, err := config.Parse([]byte(sample))
		Expect(err).NotTo(HaveOccurred())

		clone := cfg.Clone()
		clone.Providers[0].Collectors[0] = "changed"
		clone.Queue.Brokers[0] = "changed"

		Expect(cfg.Providers[0].Collectors[0]).To(Equal("inventory"))
		Expect(cfg.Queue.Brokers[0]).To(Equal("redpanda-0:9092"))
	})
})

var _ = Describe("Load", func() {
	var path string

	BeforeEach(func() {
		for _, key := range []string{
			"EMS_HOSTNAME", "EMS_USERNAME", "EMS_PASSWORD", "EMS_ID", "MAX_WAIT_SECONDS",
			"Q_HOSTNAME", "Q_PORT", "Q_USER", "Q_PASSWORD", "QUEUE_BACKEND", "METRICS_PORT", "STATUS_PORT",
		} {
			setenv(key, "")
		}

		path = filepath.Join(GinkgoT().TempDir(), "config.yaml")
	})

	It("reads the file", func() {
		Expect(os.WriteFile(path, []byte(sample), 0o600)).To(Succeed())

		cfg, err := config.Load(path, config.Overrides{}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Providers[0].Hostname).To(Equal("vcenter.lab.local"))
	})

	It("builds a provider from the environment alone", func() {
		setenv("EMS_HOSTNAME", "vc01")
		setenv("EMS_USERNAME", "root")
		setenv("EMS_PASSWORD", "vmware")
		setenv("EMS_ID", "9")
		setenv("Q_HOSTNAME", "kafka")
		setenv("Q_PORT", "9092")

		cfg, err := config.Load(path, config.Overrides{}, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Providers).To(HaveLen(1))
		p := cfg.Providers[0]
		Expect(p.Name).To(Equal("vc01"))
		Expect(p.EmsID).To(Equal(int64(9)))
		Expect(p.Collectors).To(Equal([]string{"inventory"}))

		Expect(cfg.Queue.Backend).To(Equal(publisher.BackendKafka))
		Expect(cfg.Queue.PublisherConfig().Brokers).To(Equal([]string{"kafka:9092"}))
	})

	It("lets flags win over the environment and the file", func() {
		Expect(os.WriteFile(path, []byte(sample), 0o600)).To(Succeed())
		setenv("EMS_HOSTNAME", "from-env")
		setenv("EMS_USERNAME", "env-user")

		cfg, err := config.Load(path, config.Overrides{Hostname: "from-flag", EmsID: 11}, nil)
		Expect(err).NotTo(HaveOccurred())

		p := cfg.Providers[0]
		Expect(p.Hostname).To(Equal("from-flag"))
		Expect(p.Username).To(Equal("env-user"))
		Expect(p.EmsID).To(Equal(int64(11)))
		Expect(p.Password).To(Equal("secret"))
	})

	It("rejects malformed variables", func() {
		setenv("EMS_ID", "abc")

		_, err := config.Load(path, config.Overrides{}, nil)
		Expect(err).To(MatchError(ContainSubstring("EMS_ID")))
	})

	It("fails validation without credentials", func() {
		setenv("EMS_HOSTNAME", "vc01")

		_, err := config.Load(path, config.Overrides{}, nil)
		Expect(err).To(MatchError(ContainSubstring("username is required")))
	})
})
