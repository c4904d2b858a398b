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

const distributedSwitchType = "ManageIQ::Providers::Vmware::InfraManager::DistributedVirtualSwitch"

func (p *Parser) parseDistributedVirtualSwitch(ref inventory.ObjectRef, bag inventory.PropertyBag) error {
	rec := collections.Record{
		"uid_ems": ref.Value,
		"ems_ref": ref.Value,
		"shared":  true,
		"type":    distributedSwitchType,
	}

	f := fields{rec, bag}
	f.name("name", "summary.name")
	f.str("switch_uuid", "summary.uuid")
	f.integer("ports", "config.numPorts")

	if security, ok := bag.Get("config.defaultPortConfig"); ok {
		if v, ok := vbool(security, "securityPolicy.allowPromiscuous.value"); ok {
			rec["allow_promiscuous"] = v
		}

		if v, ok := vbool(security, "securityPolicy.forgedTransmits.value"); ok {
			rec["forged_transmits"] = v
		}

		if v, ok := vbool(security, "securityPolicy.macChanges.value"); ok {
			rec["mac_changes"] = v
		}
	}

	p.setParent(rec, bag)

	sw, err := p.build(collections.Switches, rec)
	if err != nil {
		return err
	}

	for _, host := range refs(bag.List("summary.hostMember")) {
		link := collections.Record{"host": p.lazy(collections.Hosts, host.Value), "switch": sw}
		if _, err := p.build(collections.HostSwitches, link); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) parseDistributedVirtualPortgroup(ref inventory.ObjectRef, bag inventory.PropertyBag) error {
	rec := collections.Record{
		"uid_ems": ref.Value,
		"ems_ref": ref.Value,
	}

	f := fields{rec, bag}
	if _, ok := bag.String("config.name"); ok {
		f.name("name", "config.name")
	} else {
		f.name("name", "summary.name")
	}

	f.str("key", "config.key")

	if sw, ok := bag.Ref("config.distributedVirtualSwitch"); ok {
		rec["switch"] = p.lazy(collections.Switches, sw.Value)
	}

	var tags []string

	for _, tag := range bag.List("tag") {
		if key, ok := vstr(tag, "key"); ok {
			tags = append(tags, key)
		}
	}

	if tags != nil {
		rec["tags"] = tags
	}

	_, err := p.build(collections.Lans, rec)

	return err
}

// parseNetwork maps standard port group networks.
func (p *Parser) parseNetwork(ref inventory.ObjectRef, bag inventory.PropertyBag) error {
	rec := collections.Record{
		"uid_ems": ref.Value,
		"ems_ref": ref.Value,
	}

	fields{rec, bag}.name("name", "name")

	_, err := p.build(collections.Lans, rec)

	return err
}
