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

package inventory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
)

var _ = Describe("Value", func() {
	DescribeTable("AsInt coercion",
		func(v inventory.Value, want int64, ok bool) {
			got, gotOK := v.AsInt()
			Expect(gotOK).To(Equal(ok))
			Expect(got).To(Equal(want))
		},
		Entry("int", inventory.IntValue(7), int64(7), true),
		Entry("numeric string", inventory.StringValue(" 2048 "), int64(2048), true),
		Entry("float string", inventory.StringValue("12.9"), int64(12), true),
		Entry("float", inventory.FloatValue(3.7), int64(3), true),
		Entry("garbage", inventory.StringValue("lots"), int64(0), false),
		Entry("bool", inventory.BoolValue(true), int64(0), false),
	)

	DescribeTable("AsBool coercion",
		func(v inventory.Value, want, ok bool) {
			got, gotOK := v.AsBool()
			Expect(gotOK).To(Equal(ok))
			Expect(got).To(Equal(want))
		},
		Entry("bool", inventory.BoolValue(true), true, true),
		Entry("string true", inventory.StringValue("TRUE"), true, true),
		Entry("string false", inventory.StringValue("false"), false, true),
		Entry("other string", inventory.StringValue("yes"), false, false),
	)

	It("walks nested struct fields", func() {
		v := inventory.StructValue("VirtualMachineSummary", map[string]inventory.Value{
			"config": inventory.StructValue("", map[string]inventory.Value{
				"name": inventory.StringValue("web01"),
			}),
		})

		name, ok := v.Lookup("config.name")
		Expect(ok).To(BeTrue())
		Expect(name.Str).To(Equal("web01"))

		_, ok = v.Lookup("config.uuid")
		Expect(ok).To(BeFalse())
	})

	It("clones lists and fields deeply", func() {
		orig := inventory.ListValue(inventory.StructValue("", map[string]inventory.Value{
			"key": inventory.IntValue(1),
		}))

		cp := orig.Clone()
		cp.List[0].Fields["key"] = inventory.IntValue(2)

		Expect(orig.List[0].Fields["key"].Int).To(Equal(int64(1)))
	})
})

var _ = Describe("PropertyBag", func() {
	It("resolves paths through stored parents", func() {
		bag := inventory.PropertyBag{
			"summary.config": inventory.StructValue("", map[string]inventory.Value{
				"name": inventory.StringValue("db01"),
			}),
			"summary.runtime.powerState": inventory.StringValue("poweredOff"),
		}

		name, ok := bag.String("summary.config.name")
		Expect(ok).To(BeTrue())
		Expect(name).To(Equal("db01"))

		state, ok := bag.String("summary.runtime.powerState")
		Expect(ok).To(BeTrue())
		Expect(state).To(Equal("poweredOff"))

		_, ok = bag.String("summary.guest.hostName")
		Expect(ok).To(BeFalse())
	})

	It("treats a missing list as empty", func() {
		Expect(inventory.PropertyBag{}.List("datastore")).To(BeEmpty())
	})

	It("keeps clones independent", func() {
		bag := inventory.PropertyBag{"datastore": inventory.ListValue(inventory.StringValue("a"))}
		cp := bag.Clone()
		cp["datastore"] = inventory.ListValue()
		cp["name"] = inventory.StringValue("x")

		Expect(bag).To(HaveLen(1))
		Expect(bag["datastore"].List).To(HaveLen(1))
	})

	It("keeps the nil sentinel when cloning", func() {
		var bag inventory.PropertyBag
		Expect(bag.Clone()).To(BeNil())
	})
})
