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

package collections

import "fmt"

// Definition describes one collection: its name, the downstream model class
// and the attributes forming the manager key. Owner names the attribute
// linking a record to the record it belongs to; records of a collection
// without an owner stand on their own.
type Definition struct {
	Name       string
	ModelClass string
	ManagerRef []string
	Owner      string
}

// Collection names.
const (
	VmsAndTemplates      = "vms_and_templates"
	Disks                = "disks"
	Networks             = "networks"
	HostNetworks         = "host_networks"
	GuestDevices         = "guest_devices"
	Hardwares            = "hardwares"
	HostHardwares        = "host_hardwares"
	Snapshots            = "snapshots"
	OperatingSystems     = "operating_systems"
	HostOperatingSystems = "host_operating_systems"
	CustomAttributes     = "custom_attributes"
	EmsFolders           = "ems_folders"
	ResourcePools        = "resource_pools"
	EmsClusters          = "ems_clusters"
	Storages             = "storages"
	Hosts                = "hosts"
	HostStorages         = "host_storages"
	HostSwitches         = "host_switches"
	HostSystemServices   = "host_system_services"
	Switches             = "switches"
	Lans                 = "lans"
	StorageProfiles      = "storage_profiles"
	CustomizationSpecs   = "customization_specs"
)

var defaultManagerRef = []string{"ems_ref"}

// definitions is ordered; payloads list collections in this order.
var definitions = []Definition{
	{Name: VmsAndTemplates, ModelClass: "VmOrTemplate"},
	{Name: Disks, ModelClass: "Disk", ManagerRef: []string{"hardware", "device_name"}, Owner: "hardware"},
	{Name: Networks, ModelClass: "Network", ManagerRef: []string{"hardware", "ipaddress"}, Owner: "hardware"},
	{Name: HostNetworks, ModelClass: "Network", ManagerRef: []string{"hardware", "ipaddress"}, Owner: "hardware"},
	{Name: GuestDevices, ModelClass: "GuestDevice", ManagerRef: []string{"hardware", "uid_ems"}, Owner: "hardware"},
	{Name: Hardwares, ModelClass: "Hardware", ManagerRef: []string{"vm_or_template"}, Owner: "vm_or_template"},
	{Name: HostHardwares, ModelClass: "Hardware", ManagerRef: []string{"host"}, Owner: "host"},
	{Name: Snapshots, ModelClass: "Snapshot", ManagerRef: []string{"uid"}, Owner: "vm_or_template"},
	{Name: OperatingSystems, ModelClass: "OperatingSystem", ManagerRef: []string{"vm_or_template"}, Owner: "vm_or_template"},
	{Name: HostOperatingSystems, ModelClass: "OperatingSystem", ManagerRef: []string{"host"}, Owner: "host"},
	{Name: CustomAttributes, ModelClass: "CustomAttribute", ManagerRef: []string{"resource", "name"}, Owner: "resource"},
	{Name: EmsFolders, ModelClass: "EmsFolder"},
	{Name: ResourcePools, ModelClass: "ResourcePool"},
	{Name: EmsClusters, ModelClass: "EmsCluster"},
	{Name: Storages, ModelClass: "Storage"},
	{Name: Hosts, ModelClass: "Host"},
	{Name: HostStorages, ModelClass: "HostStorage", ManagerRef: []string{"host", "storage"}, Owner: "host"},
	{Name: HostSwitches, ModelClass: "HostSwitch", ManagerRef: []string{"host", "switch"}, Owner: "host"},
	{Name: HostSystemServices, ModelClass: "SystemService", ManagerRef: []string{"host", "name"}, Owner: "host"},
	{Name: Switches, ModelClass: "Switch", ManagerRef: []string{"uid_ems"}},
	{Name: Lans, ModelClass: "Lan", ManagerRef: []string{"uid_ems"}},
	{Name: StorageProfiles, ModelClass: "StorageProfile"},
	{Name: CustomizationSpecs, ModelClass: "CustomizationSpec", ManagerRef: []string{"name"}},
}

// Definitions returns a copy of the collection table.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	for i, d := range definitions {
		d.ManagerRef = managerRef(d)
		out[i] = d
	}

	return out
}

func managerRef(d Definition) []string {
	if len(d.ManagerRef) == 0 {
		return append([]string(nil), defaultManagerRef...)
	}

	return append([]string(nil), d.ManagerRef...)
}

// Set is the full group of collections filled during one pass.
type Set struct {
	ordered []*Collection
	byName  map[string]*Collection
}

// NewSet returns empty collections for every definition.
func NewSet() *Set {
	s := &Set{byName: make(map[string]*Collection, len(definitions))}

	for _, d := range Definitions() {
		c := newCollection(d)
		s.ordered = append(s.ordered, c)
		s.byName[d.Name] = c
	}

	return s
}

// Get returns the collection called name. Asking for an undefined collection
// is a programming error.
func (s *Set) Get(name string) *Collection {
	c, ok := s.byName[name]
	if !ok {
		panic(fmt.Sprintf("collections: unknown collection %q", name))
	}

	return c
}

// All returns the collections in definition order.
func (s *Set) All() []*Collection {
	return append([]*Collection(nil), s.ordered...)
}

// ForgetCascade forgets key in the named collection together with the
// records it owns, following Owner links down until nothing owned is left.
// Records that merely reference a forgotten record are kept.
func (s *Set) ForgetCascade(name, key string) {
	s.Get(name).Forget(key)

	pending := []Lazy{{Collection: name, Reference: key}}
	for len(pending) > 0 {
		target := pending[0]
		pending = pending[1:]

		for _, c := range s.ordered {
			for _, k := range c.forgetOwnedBy(target) {
				pending = append(pending, c.Lazy(k))
			}
		}
	}
}

// Len returns the total number of built records.
func (s *Set) Len() int {
	n := 0
	for _, c := range s.ordered {
		n += len(c.records)
	}

	return n
}
