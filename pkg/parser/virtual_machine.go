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
	"fmt"
	"net"
	"strings"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collections"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
)

const (
	vmType       = "ManageIQ::Providers::Vmware::InfraManager::Vm"
	templateType = "ManageIQ::Providers::Vmware::InfraManager::Template"
)

func (p *Parser) parseVirtualMachine(ref inventory.ObjectRef, bag inventory.PropertyBag) error {
	rec := collections.Record{
		"ems_ref": ref.Value,
		"vendor":  "vmware",
	}

	parseVirtualMachineConfig(rec, bag)
	parseVirtualMachineResourceConfig(rec, bag)
	p.parseVirtualMachineSummary(rec, bag)

	var storages []collections.Lazy
	for _, ds := range refs(bag.List("datastore")) {
		storages = append(storages, p.lazy(collections.Storages, ds.Value))
	}

	if storages != nil {
		rec["storages"] = storages
	}

	vm, err := p.build(collections.VmsAndTemplates, rec)
	if err != nil {
		return err
	}

	if err := p.parseVirtualMachineOperatingSystem(vm, bag); err != nil {
		return err
	}

	if err := p.parseVirtualMachineHardware(vm, bag); err != nil {
		return err
	}

	if err := p.parseVirtualMachineCustomAttributes(vm, bag); err != nil {
		return err
	}

	return p.parseVirtualMachineSnapshots(vm, bag)
}

func parseVirtualMachineConfig(rec collections.Record, bag inventory.PropertyBag) {
	f := fields{rec, bag}

	if affinity := bag.List("config.cpuAffinity.affinitySet"); len(affinity) > 0 {
		rec["cpu_affinity"] = joinInts(affinity)
	}

	f.flag("cpu_hot_add_enabled", "config.cpuHotAddEnabled")
	f.flag("cpu_hot_remove_enabled", "config.cpuHotRemoveEnabled")
	f.flag("memory_hot_add_enabled", "config.memoryHotAddEnabled")
	f.integer("memory_hot_add_limit", "config.hotPlugMemoryLimit")
	f.integer("memory_hot_add_increment", "config.hotPlugMemoryIncrementSize")
	f.str("standby_action", "config.defaultPowerOps.standbyAction")
}

func parseVirtualMachineResourceConfig(rec collections.Record, bag inventory.PropertyBag) {
	f := fields{rec, bag}

	for _, res := range []string{"cpu", "memory"} {
		base := "resourceConfig." + res + "Allocation."

		f.flag(res+"_reserve_expand", base+"expandableReservation")
		f.integer(res+"_limit", base+"limit")
		f.integer(res+"_reserve", base+"reservation")
		f.str(res+"_shares_level", base+"shares.level")
		f.integer(res+"_shares", base+"shares.shares")
	}
}

func (p *Parser) parseVirtualMachineSummary(rec collections.Record, bag inventory.PropertyBag) {
	f := fields{rec, bag}

	f.name("name", "summary.config.name")
	f.str("uid_ems", "summary.config.uuid")
	f.str("description", "summary.config.annotation")
	f.str("power_state", "summary.runtime.powerState")
	f.str("connection_state", "summary.runtime.connectionState")
	f.str("boot_time", "summary.runtime.bootTime")
	f.str("tools_status", "summary.guest.toolsStatus")

	if path, ok := bag.String("summary.config.vmPathName"); ok {
		datastore, location := splitDatastorePath(path)
		rec["location"] = location

		if datastore != "" {
			rec["storage_name"] = datastore
		}
	}

	if template, ok := bag.Bool("summary.config.template"); ok {
		rec["template"] = template

		if template {
			rec["type"] = templateType
		} else {
			rec["type"] = vmType
		}
	}

	if host, ok := bag.Ref("summary.runtime.host"); ok {
		rec["host"] = p.lazy(collections.Hosts, host.Value)
	}

	if uuids := bag.List("summary.config.ftInfo.instanceUuids"); len(uuids) > 1 {
		// The first instance uuid is the primary of a fault tolerance pair.
		if primary, ok := uuids[0].AsString(); ok {
			rec["fault_tolerance_primary"] = primary
		}
	}
}

// splitDatastorePath splits "[datastore1] web01/web01.vmx" into its datastore
// name and the path relative to the datastore.
func splitDatastorePath(path string) (string, string) {
	if !strings.HasPrefix(path, "[") {
		return "", path
	}

	end := strings.Index(path, "]")
	if end < 0 {
		return "", path
	}

	return path[1:end], strings.TrimSpace(path[end+1:])
}

func (p *Parser) parseVirtualMachineOperatingSystem(vm collections.Lazy, bag inventory.PropertyBag) error {
	rec := collections.Record{"vm_or_template": vm}

	if name, ok := bag.String("summary.config.guestFullName"); ok {
		rec["product_name"] = name
	} else if id, ok := bag.String("summary.config.guestId"); ok {
		rec["product_name"] = id
	}

	_, err := p.build(collections.OperatingSystems, rec)

	return err
}

func (p *Parser) parseVirtualMachineHardware(vm collections.Lazy, bag inventory.PropertyBag) error {
	rec := collections.Record{"vm_or_template": vm}
	f := fields{rec, bag}

	f.str("guest_os", "summary.config.guestId")
	f.str("guest_os_full_name", "summary.config.guestFullName")
	f.str("bios", "summary.config.uuid")
	f.integer("memory_mb", "summary.config.memorySizeMB")

	numCPU, hasCPU := bag.Int("summary.config.numCpu")
	setIfPresent(rec, "cpu_total_cores", numCPU, hasCPU)

	coresPerSocket, hasCores := bag.Int("config.hardware.numCoresPerSocket")
	setIfPresent(rec, "cpu_cores_per_socket", coresPerSocket, hasCores)

	if hasCPU && hasCores && coresPerSocket > 0 {
		rec["cpu_sockets"] = numCPU / coresPerSocket
	}

	if version, ok := bag.String("config.version"); ok {
		rec["virtual_hw_version"] = strings.TrimPrefix(version, "vmx-")
	}

	hw, err := p.build(collections.Hardwares, rec)
	if err != nil {
		return err
	}

	for _, device := range bag.List("config.hardware.device") {
		switch {
		case isVirtualDisk(device):
			err = p.parseVirtualMachineDisk(hw, device)
		case isEthernetCard(device):
			err = p.parseVirtualMachineNic(hw, device)
		}

		if err != nil {
			return err
		}
	}

	return p.parseVirtualMachineNetworks(hw, bag)
}

func isVirtualDisk(device inventory.Value) bool {
	if device.TypeName == "VirtualDisk" {
		return true
	}

	_, ok := device.Field("capacityInKB")

	return ok
}

func isEthernetCard(device inventory.Value) bool {
	_, ok := device.Field("macAddress")

	return ok
}

func (p *Parser) parseVirtualMachineDisk(hw collections.Lazy, device inventory.Value) error {
	label, ok := vstr(device, "deviceInfo.label")
	if !ok {
		return nil
	}

	rec := collections.Record{
		"hardware":    hw,
		"device_name": label,
		"device_type": "disk",
	}

	if size, ok := vint(device, "capacityInBytes"); ok && size > 0 {
		rec["size"] = size
	} else if kb, ok := vint(device, "capacityInKB"); ok {
		rec["size"] = kb * 1024
	}

	controller, hasController := vint(device, "controllerKey")
	unit, hasUnit := vint(device, "unitNumber")

	if hasController && hasUnit {
		rec["location"] = fmt.Sprintf("%d:%d", controller, unit)
	}

	if file, ok := vstr(device, "backing.fileName"); ok {
		rec["filename"] = file
	}

	if mode, ok := vstr(device, "backing.diskMode"); ok {
		rec["mode"] = mode
	}

	if thin, ok := vbool(device, "backing.thinProvisioned"); ok {
		if thin {
			rec["disk_type"] = "thin"
		} else {
			rec["disk_type"] = "thick"
		}
	}

	if ds, ok := vref(device, "backing.datastore"); ok {
		rec["storage"] = p.lazy(collections.Storages, ds.Value)
	}

	if connected, ok := vbool(device, "connectable.startConnected"); ok {
		rec["start_connected"] = connected
	}

	_, err := p.build(collections.Disks, rec)

	return err
}

func (p *Parser) parseVirtualMachineNic(hw collections.Lazy, device inventory.Value) error {
	mac, ok := vstr(device, "macAddress")
	if !ok || mac == "" {
		return nil
	}

	rec := collections.Record{
		"hardware":        hw,
		"uid_ems":         mac,
		"address":         mac,
		"device_type":     "ethernet",
		"controller_type": "ethernet",
	}

	if device.TypeName != "" {
		rec["model"] = device.TypeName
	}

	if label, ok := vstr(device, "deviceInfo.label"); ok {
		rec["device_name"] = label
	}

	if connected, ok := vbool(device, "connectable.connected"); ok {
		rec["present"] = connected
	}

	if connected, ok := vbool(device, "connectable.startConnected"); ok {
		rec["start_connected"] = connected
	}

	if network, ok := vref(device, "backing.network"); ok {
		rec["lan"] = p.lazy(collections.Lans, network.Value)
	} else if portgroup, ok := vstr(device, "backing.port.portgroupKey"); ok {
		rec["lan"] = p.lazy(collections.Lans, portgroup)
	}

	_, err := p.build(collections.GuestDevices, rec)

	return err
}

func (p *Parser) parseVirtualMachineNetworks(hw collections.Lazy, bag inventory.PropertyBag) error {
	hostname, hasHostname := bag.String("summary.guest.hostName")

	for _, nic := range bag.List("guest.net") {
		var ipv4, ipv6 string

		for _, addr := range vlist(nic, "ipAddress") {
			s, ok := addr.AsString()
			if !ok {
				continue
			}

			ip := net.ParseIP(s)

			switch {
			case ip == nil:
				continue
			case ip.To4() != nil && ipv4 == "":
				ipv4 = s
			case ip.To4() == nil && ipv6 == "":
				ipv6 = s
			}
		}

		if ipv4 == "" && ipv6 == "" {
			continue
		}

		rec := collections.Record{"hardware": hw}

		// The manager key needs an address; fall back to IPv6-only nics.
		if ipv4 != "" {
			rec["ipaddress"] = ipv4
		} else {
			rec["ipaddress"] = ipv6
		}

		if ipv6 != "" {
			rec["ipv6address"] = ipv6
		}

		if network, ok := vstr(nic, "network"); ok {
			rec["description"] = network
		}

		if mac, ok := vstr(nic, "macAddress"); ok {
			rec["guest_device"] = p.lazy(collections.GuestDevices, hw.Reference+"__"+mac)
		}

		setIfPresent(rec, "hostname", hostname, hasHostname)

		if _, err := p.build(collections.Networks, rec); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) parseVirtualMachineCustomAttributes(vm collections.Lazy, bag inventory.PropertyBag) error {
	names := map[int64]string{}

	for _, def := range bag.List("availableField") {
		key, okKey := vint(def, "key")
		name, okName := vstr(def, "name")

		if okKey && okName {
			names[key] = name
		}
	}

	for _, cv := range bag.List("summary.customValue") {
		key, ok := vint(cv, "key")
		if !ok {
			continue
		}

		name, ok := names[key]
		if !ok {
			name = fmt.Sprintf("%d", key)
		}

		rec := collections.Record{
			"resource": vm,
			"section":  "custom_field",
			"name":     name,
			"source":   "VC",
		}

		if value, ok := vstr(cv, "value"); ok {
			rec["value"] = value
		}

		if _, err := p.build(collections.CustomAttributes, rec); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) parseVirtualMachineSnapshots(vm collections.Lazy, bag inventory.PropertyBag) error {
	info, ok := bag.Get("snapshot")
	if !ok || info.IsNull() {
		return nil
	}

	current, _ := vref(info, "currentSnapshot")

	var walk func(trees []inventory.Value, parentUID string) error

	walk = func(trees []inventory.Value, parentUID string) error {
		for _, tree := range trees {
			created, ok := vstr(tree, "createTime")
			if !ok {
				continue
			}

			rec := collections.Record{
				"vm_or_template": vm,
				"uid":            created,
				"uid_ems":        created,
				"create_time":    created,
			}

			snap, hasRef := vref(tree, "snapshot")
			if hasRef {
				rec["ems_ref"] = snap.Value
			}

			rec["current"] = hasRef && snap == current

			if name, ok := vstr(tree, "name"); ok {
				rec["name"] = decodeName(name)
			}

			if desc, ok := vstr(tree, "description"); ok {
				rec["description"] = desc
			}

			if parentUID != "" {
				rec["parent_uid"] = parentUID
			}

			if _, err := p.build(collections.Snapshots, rec); err != nil {
				return err
			}

			if err := walk(vlist(tree, "childSnapshotList"), created); err != nil {
				return err
			}
		}

		return nil
	}

	return walk(vlist(info, "rootSnapshotList"), "")
}
