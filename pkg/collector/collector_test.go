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

package collector_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/backoff"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collector"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/persister"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/publisher"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/safejson"
)

func decode(msg *publisher.Message) *persister.Payload {
	var p persister.Payload
	ExpectWithOffset(1, safejson.Unmarshal(msg.Payload, &p)).To(Succeed())

	return &p
}

func vmRecords(p *persister.Payload) map[string]map[string]any {
	out := map[string]map[string]any{}

	col, ok := p.Collection("vms_and_templates")
	if !ok {
		return out
	}

	for _, rec := range col.Data {
		out[rec["ems_ref"].(string)] = rec
	}

	return out
}

func observedVMs(p *persister.Payload) []string {
	col, ok := p.Collection("vms_and_templates")
	if !ok {
		return nil
	}

	return col.ManagerUUIDs
}

func allKnownVMs(p *persister.Payload) []string {
	col, ok := p.Collection("vms_and_templates")
	if !ok {
		return nil
	}

	return col.AllManagerUUIDs
}

// changed lists the collections carrying records or observed keys.
func changed(p *persister.Payload) []string {
	var names []string

	for _, col := range p.Collections {
		if len(col.Data) > 0 || len(col.ManagerUUIDs) > 0 {
			names = append(names, col.Name)
		}
	}

	return names
}

// panickyProcessor panics on the first Apply and behaves normally afterwards.
type panickyProcessor struct {
	collector.Processor
	panicked bool
}

func (p *panickyProcessor) Apply(update inventory.FilterUpdate) {
	if !p.panicked {
		p.panicked = true
		panic("boom")
	}

	p.Processor.Apply(update)
}

var _ = Describe("Collector", func() {
	var (
		gateway *fakeGateway
		pub     *publisher.MemoryPublisher
		proc    collector.Processor
		c       *collector.Collector
		ctx     context.Context
		cancel  context.CancelFunc
		done    chan error
	)

	BeforeEach(func() {
		gateway = &fakeGateway{}
		pub = publisher.NewMemory()
		proc = collector.NewInventoryProcessor("test", 42, nil)
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		done = make(chan error, 1)
	})

	AfterEach(func() {
		if c != nil {
			c.Stop()
			Eventually(done).Should(Receive())
		}

		cancel()
		c = nil
	})

	start := func() {
		var err error
		c, err = collector.New(collector.Options{
			Name:      "test",
			EmsID:     42,
			Gateway:   gateway,
			Processor: proc,
			Publisher: pub,
			Backoff:   backoff.NewReconnect(time.Millisecond, 5*time.Millisecond),
		})
		ExpectWithOffset(1, err).NotTo(HaveOccurred())

		go func() { done <- c.Run(ctx) }()
	}

	Describe("New", func() {
		It("requires every collaborator", func() {
			_, err := collector.New(collector.Options{Gateway: gateway, Processor: proc, Publisher: pub})
			Expect(err).To(MatchError(collector.ErrNoName))

			_, err = collector.New(collector.Options{Name: "x", Processor: proc, Publisher: pub})
			Expect(err).To(MatchError(collector.ErrNoGateway))

			_, err = collector.New(collector.Options{Name: "x", Gateway: gateway, Publisher: pub})
			Expect(err).To(MatchError(collector.ErrNoProcessor))

			_, err = collector.New(collector.Options{Name: "x", Gateway: gateway, Processor: proc})
			Expect(err).To(MatchError(collector.ErrNoPublisher))
		})

		It("clamps the max wait", func() {
			col, err := collector.New(collector.Options{
				Name: "x", Gateway: gateway, Processor: proc, Publisher: pub, MaxWait: time.Second,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(col.MaxWait()).To(Equal(5 * time.Second))

			col, err = collector.New(collector.Options{Name: "x", Gateway: gateway, Processor: proc, Publisher: pub})
			Expect(err).NotTo(HaveOccurred())
			Expect(col.MaxWait()).To(Equal(60 * time.Second))
		})
	})

	It("publishes the baseline and every later change", func() {
		sess := newFakeSession("filter-1")
		gateway.add(sess)

		sess.push(updateSet("1", false, "filter-1",
			enter(vmRef("vm-1"),
				assign("summary.config.name", inventory.StringValue("web01")),
				assign("summary.runtime.powerState", inventory.StringValue("poweredOff")),
			),
		))
		sess.push(updateSet("2", false, "filter-1",
			modify(vmRef("vm-1"), assign("summary.runtime.powerState", inventory.StringValue("poweredOn"))),
		))
		sess.push(updateSet("3", false, "filter-1", leave(vmRef("vm-1"))))

		start()

		Eventually(pub.Messages).Should(HaveLen(3))
		msgs := pub.Messages()

		for _, msg := range msgs {
			Expect(msg.Service).To(Equal("inventory"))
			Expect(msg.Type).To(Equal("save_inventory"))
			Expect(msg.Key).To(Equal("42"))
		}

		Expect(allKnownVMs(decode(msgs[0]))).To(Equal([]string{"vm-1"}))

		baseline := vmRecords(decode(msgs[0]))
		Expect(baseline).To(HaveKey("vm-1"))
		Expect(baseline["vm-1"]).To(HaveKeyWithValue("name", "web01"))
		Expect(baseline["vm-1"]).To(HaveKeyWithValue("power_state", "poweredOff"))

		// The modify only carries powerState; the name comes from the cache.
		update := vmRecords(decode(msgs[1]))
		Expect(update["vm-1"]).To(HaveKeyWithValue("name", "web01"))
		Expect(update["vm-1"]).To(HaveKeyWithValue("power_state", "poweredOn"))

		gone := decode(msgs[2])
		Expect(vmRecords(gone)).NotTo(HaveKey("vm-1"))
		Expect(observedVMs(gone)).NotTo(ContainElement("vm-1"))

		col, ok := gone.Collection("vms_and_templates")
		Expect(ok).To(BeTrue())
		Expect(col.AllManagerUUIDs).NotTo(BeNil())
		Expect(col.AllManagerUUIDs).NotTo(ContainElement("vm-1"))

		Eventually(sess.Versions).Should(HaveLen(4))
		Expect(sess.Versions()[:4]).To(Equal([]string{"", "1", "2", "3"}))
		Expect(sess.Specs()).To(HaveLen(1))
		Expect(sess.Specs()[0].Root).To(Equal(sess.RootFolder()))

		Eventually(func() bool { return c.Status().BaselineComplete }).Should(BeTrue())
		Expect(c.Status().Version).To(Equal("3"))
		Expect(c.Status().Connected).To(BeTrue())
		Expect(c.Status().Published).To(Equal(3))
	})

	It("accumulates truncated sets into one publish", func() {
		sess := newFakeSession("filter-1")
		gateway.add(sess)

		sess.push(updateSet("1_1", true, "filter-1",
			enter(vmRef("vm-1"), assign("summary.config.name", inventory.StringValue("web01"))),
		))
		sess.push(updateSet("1_2", false, "filter-1",
			enter(vmRef("vm-2"), assign("summary.config.name", inventory.StringValue("web02"))),
		))

		start()

		Eventually(pub.Messages).Should(HaveLen(1))
		Consistently(pub.Messages, 50*time.Millisecond).Should(HaveLen(1))

		vms := vmRecords(decode(pub.Messages()[0]))
		Expect(vms).To(HaveKey("vm-1"))
		Expect(vms).To(HaveKey("vm-2"))
		Expect(sess.Versions()).To(HaveLen(3))
		Expect(sess.Versions()[:3]).To(Equal([]string{"", "1_1", "1_2"}))
	})

	It("ignores updates of foreign filters", func() {
		sess := newFakeSession("filter-1")
		gateway.add(sess)

		set := updateSet("1", false, "filter-1",
			enter(vmRef("vm-1"), assign("summary.config.name", inventory.StringValue("web01"))),
		)
		set.FilterSet = append(set.FilterSet, inventory.FilterUpdate{
			Filter: "filter-other",
			ObjectSet: []inventory.ObjectUpdate{
				enter(vmRef("vm-9"), assign("summary.config.name", inventory.StringValue("stray"))),
			},
		})
		sess.push(set)

		start()

		Eventually(pub.Messages).Should(HaveLen(1))
		vms := vmRecords(decode(pub.Messages()[0]))
		Expect(vms).To(HaveKey("vm-1"))
		Expect(vms).NotTo(HaveKey("vm-9"))
	})

	It("rebuilds the session from an empty cursor after a fault", func() {
		first := newFakeSession("filter-1")
		second := newFakeSession("filter-2")
		gateway.add(first, second)

		first.push(updateSet("1", false, "filter-1",
			enter(vmRef("vm-1"), assign("summary.config.name", inventory.StringValue("web01"))),
		))
		first.fail(errors.New("ManagedObjectNotFound"))
		second.push(updateSet("7", false, "filter-2",
			enter(vmRef("vm-1"), assign("summary.runtime.powerState", inventory.StringValue("poweredOn"))),
		))

		start()

		Eventually(pub.Messages).Should(HaveLen(2))

		Expect(first.Destroyed()).To(Equal([]inventory.FilterHandle{"filter-1"}))
		Expect(first.Closed()).To(Equal(1))
		Expect(second.Versions()[0]).To(Equal(""))

		// The cache was discarded: the second baseline knows nothing about
		// the name delivered to the first session.
		rebuilt := vmRecords(decode(pub.Messages()[1]))
		Expect(rebuilt["vm-1"]).NotTo(HaveKey("name"))
		Expect(rebuilt["vm-1"]).To(HaveKeyWithValue("power_state", "poweredOn"))

		status := c.Status()
		Expect(status.Failures).To(Equal(1))
		Expect(status.Sessions).To(Equal(2))
		Expect(status.LastError).To(ContainSubstring("ManagedObjectNotFound"))
	})

	It("rebuilds the session when publishing fails", func() {
		first := newFakeSession("filter-1")
		second := newFakeSession("filter-1")
		gateway.add(first, second)

		pub.FailNext(errors.New("broker unavailable"))

		baseline := updateSet("1", false, "filter-1",
			enter(vmRef("vm-1"), assign("summary.config.name", inventory.StringValue("web01"))),
		)
		first.push(baseline)
		second.push(baseline)

		start()

		Eventually(pub.Messages).Should(HaveLen(1))
		Expect(first.Closed()).To(Equal(1))
		Expect(first.Destroyed()).To(HaveLen(1))
		Expect(vmRecords(decode(pub.Messages()[0]))).To(HaveKey("vm-1"))
		Expect(c.Status().LastError).To(ContainSubstring("broker unavailable"))
	})

	It("keeps retrying while the endpoint is unreachable", func() {
		sess := newFakeSession("filter-1")
		gateway.add(errNoSession, errNoSession, sess)
		sess.push(updateSet("1", false, "filter-1"))

		start()

		Eventually(pub.Messages).Should(HaveLen(1))
		Expect(gateway.Connects()).To(Equal(3))
		Expect(c.Status().Failures).To(Equal(2))
	})

	It("rebuilds the session when filter creation fails", func() {
		broken := newFakeSession("filter-1")
		broken.createErr = errors.New("InvalidProperty")
		sess := newFakeSession("filter-1")
		gateway.add(broken, sess)
		sess.push(updateSet("1", false, "filter-1"))

		start()

		Eventually(pub.Messages).Should(HaveLen(1))
		Expect(broken.Closed()).To(Equal(1))
		Expect(broken.Destroyed()).To(BeEmpty())
	})

	It("turns a panic into a session rebuild", func() {
		proc = &panickyProcessor{Processor: proc}

		first := newFakeSession("filter-1")
		second := newFakeSession("filter-1")
		gateway.add(first, second)

		set := updateSet("1", false, "filter-1",
			enter(vmRef("vm-1"), assign("summary.config.name", inventory.StringValue("web01"))),
		)
		first.push(set)
		second.push(set)

		start()

		Eventually(pub.Messages).Should(HaveLen(1))
		Expect(first.Closed()).To(Equal(1))
		Expect(c.Status().LastError).To(ContainSubstring("boom"))
	})

	It("keeps retrying whatever category a session error carries", func() {
		sess := newFakeSession("filter-1")
		gateway.add(backoff.NewPermanentError(errors.New("invalid provider")), sess)
		sess.push(updateSet("1", false, "filter-1",
			enter(vmRef("vm-1"), assign("summary.config.name", inventory.StringValue("web01"))),
		))

		start()

		Eventually(pub.Messages).Should(HaveLen(1))
		Expect(gateway.Connects()).To(Equal(2))
		Expect(c.Status().Failures).To(Equal(1))
		Consistently(done, 20*time.Millisecond).ShouldNot(Receive())
	})

	It("stops between polls and tears the session down", func() {
		sess := newFakeSession("filter-1")
		gateway.add(sess)
		sess.push(updateSet("1", false, "filter-1"))

		start()
		Eventually(pub.Messages).Should(HaveLen(1))

		c.Stop()
		c.Stop()

		Eventually(done).Should(Receive(BeNil()))
		Expect(sess.Closed()).To(Equal(1))
		Expect(sess.Destroyed()).To(Equal([]inventory.FilterHandle{"filter-1"}))

		status := c.Status()
		Expect(status.Stopped).To(BeTrue())
		Expect(status.Connected).To(BeFalse())
		Expect(status.State).To(Equal(collector.StateStopping))
		c = nil
	})

	It("stops while waiting to reconnect", func() {
		c, _ = collector.New(collector.Options{
			Name:      "test",
			Gateway:   gateway,
			Processor: proc,
			Publisher: pub,
			Backoff:   backoff.NewReconnect(time.Hour, time.Hour),
		})
		go func() { done <- c.Run(ctx) }()

		Eventually(gateway.Connects).Should(Equal(1))
		c.Stop()

		Eventually(done).Should(Receive(BeNil()))
		c = nil
	})

	It("returns the context error when cancelled", func() {
		start()
		Eventually(gateway.Connects).Should(BeNumerically(">=", 1))

		cancel()

		Eventually(done).Should(Receive(MatchError(context.Canceled)))
		c = nil
	})
})

var _ = Describe("InventoryProcessor", func() {
	var p *collector.InventoryProcessor

	BeforeEach(func() {
		p = collector.NewInventoryProcessor("test", 7, nil)
	})

	apply := func(objects ...inventory.ObjectUpdate) {
		p.Apply(inventory.FilterUpdate{Filter: "f", ObjectSet: objects})
	}

	It("stamps messages with the resource id", func() {
		apply(enter(vmRef("vm-1"), assign("summary.config.name", inventory.StringValue("web01"))))

		msg, err := p.Flush()
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Key).To(Equal("7"))
		Expect(msg.ID).NotTo(BeEmpty())

		payload := decode(msg)
		Expect(payload.EmsID).To(Equal(int64(7)))
		Expect(payload.Class).To(Equal("ManageIQ::Providers::Vmware::InfraManager::Inventory::Persister"))
	})

	It("starts a fresh pass after every flush", func() {
		apply(enter(vmRef("vm-1"), assign("summary.config.name", inventory.StringValue("web01"))))
		_, err := p.Flush()
		Expect(err).NotTo(HaveOccurred())

		msg, err := p.Flush()
		Expect(err).NotTo(HaveOccurred())

		payload := decode(msg)
		Expect(changed(payload)).To(BeEmpty())
		Expect(allKnownVMs(payload)).To(Equal([]string{"vm-1"}))
		Expect(p.CachedObjects()).To(Equal(1))
	})

	It("keeps the last known state when a change set is malformed", func() {
		apply(enter(vmRef("vm-1"), assign("summary.config.name", inventory.StringValue("web01"))))
		_, _ = p.Flush()

		apply(modify(vmRef("vm-1"), inventory.PropertyChange{
			Name: "summary.config.name",
			Op:   inventory.OpAdd,
			Val:  inventory.StringValue("web02"),
		}))

		msg, err := p.Flush()
		Expect(err).NotTo(HaveOccurred())
		Expect(vmRecords(decode(msg))["vm-1"]).To(HaveKeyWithValue("name", "web01"))
	})

	It("skips unsupported objects without caching them", func() {
		apply(enter(inventory.ObjectRef{Type: "OpaqueNetwork", Value: "on-1"},
			assign("name", inventory.StringValue("x"))))

		Expect(p.CachedObjects()).To(BeZero())

		msg, err := p.Flush()
		Expect(err).NotTo(HaveOccurred())
		Expect(changed(decode(msg))).To(BeEmpty())
	})

	It("forgets everything on reset", func() {
		apply(enter(vmRef("vm-1"), assign("summary.config.name", inventory.StringValue("web01"))))
		p.Reset()

		Expect(p.CachedObjects()).To(BeZero())

		msg, err := p.Flush()
		Expect(err).NotTo(HaveOccurred())

		payload := decode(msg)
		Expect(changed(payload)).To(BeEmpty())
		Expect(allKnownVMs(payload)).NotTo(BeNil())
		Expect(allKnownVMs(payload)).To(BeEmpty())
	})

	It("reports a departed object by leaving it out of the known keys", func() {
		apply(enter(vmRef("vm-1"), assign("summary.config.name", inventory.StringValue("web01"))))
		apply(enter(vmRef("vm-2"), assign("summary.config.name", inventory.StringValue("web02"))))
		_, err := p.Flush()
		Expect(err).NotTo(HaveOccurred())

		apply(leave(vmRef("vm-1")))

		msg, err := p.Flush()
		Expect(err).NotTo(HaveOccurred())

		payload := decode(msg)
		Expect(observedVMs(payload)).To(BeEmpty())
		Expect(allKnownVMs(payload)).To(Equal([]string{"vm-2"}))

		hosts, ok := payload.Collection("hosts")
		Expect(ok).To(BeTrue())
		Expect(hosts.AllManagerUUIDs).To(BeEmpty())
	})
})
