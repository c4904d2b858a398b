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

package traversal

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
)

var _ = Describe("Build", func() {
	root := inventory.ObjectRef{Type: "Folder", Value: "group-d1"}

	It("is deterministic", func() {
		a := Build(root)
		b := Build(root)

		Expect(a.Bytes()).To(Equal(b.Bytes()))
		Expect(a.Fingerprint()).To(Equal(b.Fingerprint()))
	})

	It("changes the fingerprint with the root", func() {
		other := Build(inventory.ObjectRef{Type: "Folder", Value: "group-d2"})
		Expect(other.Fingerprint()).NotTo(Equal(Build(root).Fingerprint()))
	})

	It("injects the full closure into the folder rule", func() {
		rule, ok := Build(root).Rule("tsFolder")
		Expect(ok).To(BeTrue())
		Expect(rule.Type).To(Equal("Folder"))
		Expect(rule.Path).To(Equal("childEntity"))
		Expect(rule.SelectSet).To(Equal([]string{
			"tsFolder",
			"tsDcToDsFolder",
			"tsDcToHostFolder",
			"tsDcToNetworkFolder",
			"tsDcToVmFolder",
			"tsCrToHost",
			"tsCrToRp",
			"tsRpToRp",
			"tsRpToVm",
		}))
	})

	DescribeTable("selectors of the other rules",
		func(name string, want []string) {
			rule, ok := Build(root).Rule(name)
			Expect(ok).To(BeTrue())
			if want == nil {
				Expect(rule.SelectSet).To(BeEmpty())
			} else {
				Expect(rule.SelectSet).To(Equal(want))
			}
		},
		Entry("datacenter to datastore folder", "tsDcToDsFolder", []string{"tsFolder"}),
		Entry("datacenter to host folder", "tsDcToHostFolder", []string{"tsFolder"}),
		Entry("datacenter to network folder", "tsDcToNetworkFolder", []string{"tsFolder"}),
		Entry("datacenter to vm folder", "tsDcToVmFolder", []string{"tsFolder"}),
		Entry("compute resource to host", "tsCrToHost", nil),
		Entry("compute resource to pool", "tsCrToRp", []string{"tsRpToRp"}),
		Entry("pool to pool", "tsRpToRp", []string{"tsRpToRp"}),
		Entry("pool to vm", "tsRpToVm", nil),
	)

	It("only references rules that exist", func() {
		spec := Build(root)
		for _, rule := range spec.SelectSet {
			for _, sel := range rule.SelectSet {
				_, ok := spec.Rule(sel)
				Expect(ok).To(BeTrue(), "%s selects unknown rule %s", rule.Name, sel)
			}
		}
	})

	It("watches the property map in order", func() {
		spec := Build(root)
		props := PropertyMap()

		Expect(spec.PropSet).To(HaveLen(len(props)))
		for i, kp := range props {
			Expect(spec.PropSet[i].Type).To(Equal(kp.Type))
			Expect(spec.PropSet[i].PathSet).To(Equal(kp.Paths))
			Expect(spec.PropSet[i].All).To(BeFalse())
		}
		Expect(spec.PropSet[0].PathSet).To(ContainElement("summary.runtime.powerState"))
	})

	It("hands out copies of the static tables", func() {
		props := PropertyMap()
		props[0].Paths[0] = "mutated"
		Expect(PropertyMap()[0].Paths[0]).To(Equal("availableField"))

		e := Edges()
		e[0].Yields[0] = "mutated"
		Expect(Edges()[0].Yields[0]).To(Equal("Folder"))
	})
})

var _ = Describe("validateSchema", func() {
	It("accepts the built-in schema", func() {
		Expect(validateSchema(propertyMap, edges)).To(Succeed())
	})

	It("rejects duplicate edges", func() {
		bad := append(Edges(), edges[1])
		Expect(validateSchema(propertyMap, bad)).To(MatchError(errInvalidSchema))
	})

	It("rejects a schema without a hub", func() {
		bad := Edges()[1:]
		Expect(validateSchema(propertyMap, bad)).To(MatchError(errInvalidSchema))
	})

	It("rejects duplicate paths", func() {
		bad := []KindProperties{{Type: "Folder", Paths: []string{"name", "name"}}}
		Expect(validateSchema(bad, edges)).To(MatchError(errInvalidSchema))
	})
})

var _ = Describe("ForObject", func() {
	It("watches a single object without traversal", func() {
		ref := inventory.ObjectRef{Type: "EventHistoryCollector", Value: "session[1]2"}
		spec := ForObject(ref, "latestPage")

		Expect(spec.SelectSet).To(BeEmpty())
		Expect(spec.PropSet).To(Equal([]PropertySpec{{Type: "EventHistoryCollector", PathSet: []string{"latestPage"}}}))
	})
})
