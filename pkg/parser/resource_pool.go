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

package parser

import (
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collections"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
)

func (p *Parser) parseResourcePool(ref inventory.ObjectRef, bag inventory.PropertyBag, vapp bool) error {
	rec := collections.Record{
		"ems_ref": ref.Value,
		"uid_ems": ref.Value,
		"vapp":    vapp,
	}

	fields{rec, bag}.name("name", "name")

	parseResourcePoolAllocation(rec, bag, "memory")
	parseResourcePoolAllocation(rec, bag, "cpu")

	if parent, ok := bag.Ref("parent"); ok {
		// The root pool of a cluster is the default pool.
		rec["is_default"] = parent.Type == string(KindComputeResource) || parent.Type == string(KindClusterComputeResource)
	}

	p.setParent(rec, bag)

	children := map[string][]collections.Lazy{}

	for _, child := range refs(bag.List("resourcePool")) {
		children["resource_pool"] = append(children["resource_pool"], p.lazy(collections.ResourcePools, child.Value))
	}

	for _, vm := range refs(bag.List("vm")) {
		children["vm"] = append(children["vm"], p.lazy(collections.VmsAndTemplates, vm.Value))
	}

	if len(children) > 0 {
		rec["ems_children"] = children
	}

	_, err := p.build(collections.ResourcePools, rec)

	return err
}

func parseResourcePoolAllocation(rec collections.Record, bag inventory.PropertyBag, res string) {
	f := fields{rec, bag}
	base := "summary.config." + res + "Allocation."

	f.integer(res+"_reserve", base+"reservation")
	f.flag(res+"_reserve_expand", base+"expandableReservation")
	f.integer(res+"_limit", base+"limit")
	f.integer(res+"_shares", base+"shares.shares")
	f.str(res+"_shares_level", base+"shares.level")
}
