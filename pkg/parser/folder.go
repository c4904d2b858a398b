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

const (
	folderType         = "EmsFolder"
	datacenterType     = "Datacenter"
	storageClusterType = "StorageCluster"
)

var datacenterFolders = []string{"datastoreFolder", "hostFolder", "networkFolder", "vmFolder"}

func (p *Parser) parseDatacenter(ref inventory.ObjectRef, bag inventory.PropertyBag) error {
	rec := collections.Record{
		"ems_ref": ref.Value,
		"uid_ems": ref.Value,
		"type":    datacenterType,
	}

	fields{rec, bag}.name("name", "name")
	p.setParent(rec, bag)

	var folders []collections.Lazy

	for _, path := range datacenterFolders {
		if folder, ok := bag.Ref(path); ok {
			folders = append(folders, p.lazy(collections.EmsFolders, folder.Value))
		}
	}

	rec["ems_children"] = map[string][]collections.Lazy{"folder": folders}

	_, err := p.build(collections.EmsFolders, rec)

	return err
}

func (p *Parser) parseFolder(ref inventory.ObjectRef, bag inventory.PropertyBag) error {
	rec := collections.Record{
		"ems_ref": ref.Value,
		"uid_ems": ref.Value,
		"type":    folderType,
	}

	fields{rec, bag}.name("name", "name")
	p.setParent(rec, bag)

	if _, ok := bag.Get("childEntity"); ok {
		rec["ems_children"] = p.children(refs(bag.List("childEntity")))
	}

	_, err := p.build(collections.EmsFolders, rec)

	return err
}

// parseStoragePod maps datastore clusters. They are folders of datastores
// with aggregated capacity.
func (p *Parser) parseStoragePod(ref inventory.ObjectRef, bag inventory.PropertyBag) error {
	rec := collections.Record{
		"ems_ref": ref.Value,
		"uid_ems": ref.Value,
		"type":    storageClusterType,
	}

	f := fields{rec, bag}
	f.name("name", "summary.name")
	f.integer("total_space", "summary.capacity")
	f.integer("free_space", "summary.freeSpace")
	p.setParent(rec, bag)

	if _, ok := bag.Get("childEntity"); ok {
		rec["ems_children"] = p.children(refs(bag.List("childEntity")))
	}

	_, err := p.build(collections.EmsFolders, rec)

	return err
}
