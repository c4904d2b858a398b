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

package main

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/config"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/health"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/publisher"
)

var _ = Describe("root command", func() {
	It("registers the provider flags", func() {
		cmd := newRootCommand()
		Expect(cmd.Flags().Parse([]string{
			"--hostname", "vc01", "--user", "root", "--password", "vmware",
			"--ems-id", "4", "--collector", "inventory,events",
		})).To(Succeed())

		for _, name := range []string{"hostname", "user", "password", "ems-id", "collector", "config", "dry-run"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}

		collectors, err := cmd.Flags().GetStringSlice("collector")
		Expect(err).NotTo(HaveOccurred())
		Expect(collectors).To(Equal([]string{"inventory", "events"}))
	})
})

var _ = Describe("buildCollectors", func() {
	It("creates one collector per provider and kind", func() {
		cfg := config.Default()
		cfg.Providers = []config.ProviderConfig{
			{Name: "lab", EmsID: 1, Hostname: "vc01", Username: "u", Password: "p", Collectors: []string{"inventory", "events"}},
			{Name: "dc2", EmsID: 2, Hostname: "vc02", Username: "u", Password: "p", Collectors: []string{"inventory"}},
		}

		collectors, err := buildCollectors(cfg, publisher.NewMemory())
		Expect(err).NotTo(HaveOccurred())

		var names []string
		for _, c := range collectors {
			names = append(names, c.Name())
		}

		Expect(names).To(Equal([]string{"lab/inventory", "lab/events", "dc2/inventory"}))
	})
})

var _ = Describe("runCollectors", func() {
	It("keeps the other collectors running when one stops", func() {
		cfg := config.Default()
		cfg.Providers = []config.ProviderConfig{
			{Name: "a", EmsID: 1, Hostname: "127.0.0.1:1", Username: "u", Password: "p", Collectors: []string{"inventory"}},
			{Name: "b", EmsID: 2, Hostname: "127.0.0.1:1", Username: "u", Password: "p", Collectors: []string{"inventory"}},
		}

		collectors, err := buildCollectors(cfg, publisher.NewMemory())
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		done := make(chan error, 1)

		go func() {
			done <- runCollectors(ctx, collectors, health.NewChecker(nil), zap.NewNop().Sugar())
		}()

		collectors[0].Stop()
		Eventually(func() bool { return collectors[0].Status().Stopped }).Should(BeTrue())

		Consistently(done, 200*time.Millisecond).ShouldNot(Receive())
		Expect(collectors[1].Status().Stopped).To(BeFalse())

		collectors[1].Stop()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
	})
})
