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
	"strings"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collections"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
)

func (p *Parser) parseDatastore(ref inventory.ObjectRef, bag inventory.PropertyBag) error {
	rec := collections.Record{"ems_ref": ref.Value}

	parseDatastoreSummary(rec, bag)
	parseDatastoreCapability(rec, bag)
	p.setParent(rec, bag)

	storage, err := p.build(collections.Storages, rec)
	if err != nil {
		return err
	}

	return p.parseDatastoreHostMounts(storage, bag)
}

func parseDatastoreSummary(rec collections.Record, bag inventory.PropertyBag) {
	f := fields{rec, bag}

	f.name("name", "summary.name")
	f.flag("accessible", "summary.accessible")
	f.integer("total_space", "summary.capacity")
	f.integer("free_space", "summary.freeSpace")
	f.integer("uncommitted", "summary.uncommitted")
	f.flag("multiplehostaccess", "summary.multipleHostAccess")

	if storeType, ok := bag.String("summary.type"); ok {
		rec["store_type"] = strings.ToUpper(storeType)
	}

	if url, ok := bag.String("summary.url"); ok {
		rec["location"] = url
	} else if url, ok := bag.String("info.url"); ok {
		rec["location"] = url
	}

	if mode, ok := bag.String("summary.maintenanceMode"); ok {
		rec["maintenance"] = mode != "normal"
		rec["maintenance_mode"] = mode
	}
}

func parseDatastoreCapability(rec collections.Record, bag inventory.PropertyBag) {
	f := fields{rec, bag}

	f.flag("directory_hierarchy_supported", "capability.directoryHierarchySupported")
	f.flag("thin_provisioning_supported", "capability.perFileThinProvisioningSupported")
	f.flag("raw_disk_mappings_supported", "capability.rawDiskMappingsSupported")
}

func (p *Parser) parseDatastoreHostMounts(storage collections.Lazy, bag inventory.PropertyBag) error {
	for _, mount := range bag.List("host") {
		host, ok := vref(mount, "key")
		if !ok {
			continue
		}

		rec := collections.Record{
			"host":    p.lazy(collections.Hosts, host.Value),
			"storage": storage,
		}

		if path, ok := vstr(mount, "mountInfo.path"); ok {
			rec["ems_ref"] = path
		}

		if mode, ok := vstr(mount, "mountInfo.accessMode"); ok {
			rec["read_only"] = mode == "readOnly"
		}

		if accessible, ok := vbool(mount, "mountInfo.accessible"); ok {
			rec["accessible"] = accessible
		}

		if mounted, ok := vbool(mount, "mountInfo.mounted"); ok {
			rec["mounted"] = mounted
		}

		if _, err := p.build(collections.HostStorages, rec); err != nil {
			return err
		}
	}

	return nil
}
