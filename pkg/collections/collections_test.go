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

package collections_test

import (
	"fmt"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collections"
)

var _ = Describe("Collection", func() {
	var (
		set *collections.Set
		vms *collections.Collection
	)

	BeforeEach(func() {
		set = collections.NewSet()
		vms = set.Get(collections.VmsAndTemplates)
	})

	It("defines every collection in a fixed order", func() {
		names := []string{}
		for _, c := range set.All() {
			names = append(names, c.Name())
		}

		Expect(names).To(HaveLen(23))
		Expect(names[0]).To(Equal("vms_and_templates"))
		Expect(names[len(names)-1]).To(Equal("customization_specs"))
		Expect(set.Get(collections.Disks).ManagerRef()).To(Equal([]string{"hardware", "device_name"}))
		Expect(vms.ManagerRef()).To(Equal([]string{"ems_ref"}))
	})

	It("panics on unknown collection names", func() {
		Expect(func() { set.Get("vm_folders") }).To(Panic())
	})

	It("upserts by manager key keeping first-build order", func() {
		_, err := vms.Build(collections.Record{"ems_ref": "vm-1", "name": "a"})
		Expect(err).NotTo(HaveOccurred())
		_, err = vms.Build(collections.Record{"ems_ref": "vm-2", "name": "b"})
		Expect(err).NotTo(HaveOccurred())
		_, err = vms.Build(collections.Record{"ems_ref": "vm-1", "power_state": "poweredOn"})
		Expect(err).NotTo(HaveOccurred())

		records := vms.Records()
		Expect(records).To(HaveLen(2))
		Expect(records[0]).To(Equal(collections.Record{"ems_ref": "vm-1", "name": "a", "power_state": "poweredOn"}))
		Expect(vms.ObservedKeys()).To(Equal([]string{"vm-1", "vm-2"}))
	})

	It("derives composite keys from lazy links", func() {
		hw, err := set.Get(collections.Hardwares).Build(collections.Record{
			"vm_or_template": vms.Lazy("vm-1"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(hw).To(Equal(collections.Lazy{Collection: "hardwares", Reference: "vm-1"}))

		disks := set.Get(collections.Disks)
		link, err := disks.Build(collections.Record{"hardware": hw, "device_name": "Hard disk 1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(link.Reference).To(Equal("vm-1__Hard disk 1"))
	})

	It("rejects records without their manager key", func() {
		_, err := set.Get(collections.Disks).Build(collections.Record{"device_name": "Hard disk 1"})
		Expect(err).To(MatchError(collections.ErrMissingManagerRef))
		Expect(set.Get(collections.Disks).IsEmpty()).To(BeTrue())
	})

	It("marks keys observed idempotently", func() {
		vms.MarkObserved("vm-9")
		vms.MarkObserved("vm-9")

		Expect(vms.ObservedKeys()).To(Equal([]string{"vm-9"}))
		Expect(vms.Records()).To(BeEmpty())
		Expect(vms.IsEmpty()).To(BeFalse())
	})

	It("distinguishes unset and empty all-known sets", func() {
		Expect(vms.AllKnownKeys()).To(BeNil())
		Expect(vms.IsEmpty()).To(BeTrue())

		vms.SetAllKnown(nil)
		Expect(vms.AllKnownKeys()).NotTo(BeNil())
		Expect(vms.AllKnownKeys()).To(BeEmpty())
		Expect(vms.IsEmpty()).To(BeFalse())
	})

	It("forgets an object together with everything it owns", func() {
		_, _ = vms.Build(collections.Record{"ems_ref": "vm-1"})
		_, _ = vms.Build(collections.Record{"ems_ref": "vm-2"})
		hw, _ := set.Get(collections.Hardwares).Build(collections.Record{"vm_or_template": vms.Lazy("vm-1")})
		_, _ = set.Get(collections.Disks).Build(collections.Record{"hardware": hw, "device_name": "Hard disk 1"})
		_, _ = set.Get(collections.Hardwares).Build(collections.Record{"vm_or_template": vms.Lazy("vm-2")})

		set.ForgetCascade(collections.VmsAndTemplates, "vm-1")

		Expect(vms.ObservedKeys()).To(Equal([]string{"vm-2"}))
		Expect(set.Get(collections.Hardwares).Records()).To(HaveLen(1))
		Expect(set.Get(collections.Disks).IsEmpty()).To(BeTrue())

		_, ok := vms.Find("vm-2")
		Expect(ok).To(BeTrue())
	})

	It("keeps records that only reference a forgotten object", func() {
		storages := set.Get(collections.Storages)
		_, _ = storages.Build(collections.Record{"ems_ref": "datastore-1"})
		_, _ = vms.Build(collections.Record{"ems_ref": "vm-1", "storage": storages.Lazy("datastore-1")})
		hw, _ := set.Get(collections.Hardwares).Build(collections.Record{"vm_or_template": vms.Lazy("vm-1")})
		_, _ = set.Get(collections.Disks).Build(collections.Record{
			"hardware":    hw,
			"device_name": "Hard disk 1",
			"storage":     storages.Lazy("datastore-1"),
		})

		set.ForgetCascade(collections.Storages, "datastore-1")

		Expect(storages.IsEmpty()).To(BeTrue())
		Expect(vms.ObservedKeys()).To(Equal([]string{"vm-1"}))
		Expect(set.Get(collections.Hardwares).Records()).To(HaveLen(1))
		Expect(set.Get(collections.Disks).Records()).To(HaveLen(1))
	})

	It("keeps every record key observed under arbitrary operation sequences", func() {
		rng := rand.New(rand.NewSource(42))

		for range 500 {
			key := fmt.Sprintf("vm-%d", rng.Intn(20))

			switch rng.Intn(3) {
			case 0:
				_, err := vms.Build(collections.Record{"ems_ref": key, "n": rng.Int()})
				Expect(err).NotTo(HaveOccurred())
			case 1:
				vms.MarkObserved(key)
			case 2:
				vms.Forget(key)
			}

			for _, rec := range vms.Records() {
				k, err := vms.KeyOf(rec)
				Expect(err).NotTo(HaveOccurred())
				Expect(vms.IsObserved(k)).To(BeTrue())

				found, ok := vms.Find(k)
				Expect(ok).To(BeTrue())
				Expect(found).To(Equal(rec))
			}
		}
	})
})
