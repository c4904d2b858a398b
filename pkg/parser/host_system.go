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

const (
	hostType    = "ManageIQ::Providers::Vmware::InfraManager::Host"
	hostEsxType = "ManageIQ::Providers::Vmware::InfraManager::HostEsx"
)

func (p *Parser) parseHostSystem(ref inventory.ObjectRef, bag inventory.PropertyBag) error {
	rec := collections.Record{"ems_ref": ref.Value}

	parseHostSystemConfig(rec, bag)
	parseHostSystemProduct(rec, bag)
	parseHostSystemNetwork(rec, bag)
	parseHostSystemRuntime(rec, bag)
	parseHostSystemSystemInfo(rec, bag)

	// Hosts that report a product other than ESX/ESXi are generic hosts.
	rec["type"] = hostEsxType
	if product, ok := rec["vmm_product"].(string); ok {
		if lower := strings.ToLower(product); lower != "esx" && lower != "esxi" {
			rec["type"] = hostType
		}
	}

	p.setParent(rec, bag)

	host, err := p.build(collections.Hosts, rec)
	if err != nil {
		return err
	}

	if err := p.parseHostSystemOperatingSystem(host, bag); err != nil {
		return err
	}

	if err := p.parseHostSystemServices(host, bag); err != nil {
		return err
	}

	hw, err := p.parseHostSystemHardware(host, bag)
	if err != nil {
		return err
	}

	if err := p.parseHostSystemNics(hw, bag); err != nil {
		return err
	}

	if err := p.parseHostSystemStorageAdapters(hw, bag); err != nil {
		return err
	}

	if err := p.parseHostSystemVnics(hw, bag); err != nil {
		return err
	}

	return p.parseHostSystemSwitches(host, bag)
}

func parseHostSystemConfig(rec collections.Record, bag inventory.PropertyBag) {
	f := fields{rec, bag}

	if _, ok := bag.String("name"); ok {
		f.name("name", "name")
	} else {
		f.name("name", "summary.config.name")
	}

	f.flag("admin_disabled", "config.adminDisabled")
	f.flag("hyperthreading", "config.hyperThread.active")
	f.flag("vmotion_enabled", "summary.config.vmotionEnabled")
}

func parseHostSystemProduct(rec collections.Record, bag inventory.PropertyBag) {
	f := fields{rec, bag}

	if vendor, ok := bag.String("summary.config.product.vendor"); ok {
		vendor = strings.ToLower(vendor)
		if strings.Contains(vendor, "vmware") {
			vendor = "vmware"
		}

		rec["vmm_vendor"] = vendor
	}

	if name, ok := bag.String("summary.config.product.name"); ok {
		rec["vmm_product"] = strings.TrimSpace(strings.TrimPrefix(name, "VMware "))
	}

	f.str("vmm_version", "summary.config.product.version")
	f.str("vmm_buildnumber", "summary.config.product.build")
}

func parseHostSystemNetwork(rec collections.Record, bag inventory.PropertyBag) {
	hostname, ok := bag.String("config.network.dnsConfig.hostName")
	if ok && hostname != "" {
		if domain, ok := bag.String("config.network.dnsConfig.domainName"); ok && domain != "" {
			hostname = hostname + "." + domain
		}

		rec["hostname"] = hostname
	}

	for _, vnic := range hostVnics(bag) {
		if ip, ok := vstr(vnic, "spec.ip.ipAddress"); ok && ip != "" {
			rec["ipaddress"] = ip

			break
		}
	}
}

func parseHostSystemRuntime(rec collections.Record, bag inventory.PropertyBag) {
	connection, hasConnection := bag.String("summary.runtime.connectionState")
	maintenance, hasMaintenance := bag.Bool("summary.runtime.inMaintenanceMode")

	setIfPresent(rec, "connection_state", connection, hasConnection)
	setIfPresent(rec, "maintenance", maintenance, hasMaintenance)

	switch {
	case hasConnection && connection != "connected":
		rec["power_state"] = "off"
	case hasMaintenance && maintenance:
		rec["power_state"] = "maintenance"
	case hasConnection:
		rec["power_state"] = "on"
	}
}

func parseHostSystemSystemInfo(rec collections.Record, bag inventory.PropertyBag) {
	for _, info := range bag.List("hardware.systemInfo.otherIdentifyingInfo") {
		key, ok := vstr(info, "identifierType.key")
		if !ok {
			continue
		}

		value, ok := vstr(info, "identifierValue")
		if !ok || value == "" {
			continue
		}

		switch key {
		case "ServiceTag":
			rec["service_tag"] = value
		case "AssetTag":
			rec["asset_tag"] = value
		}
	}
}

func (p *Parser) parseHostSystemOperatingSystem(host collections.Lazy, bag inventory.PropertyBag) error {
	rec := collections.Record{"host": host}
	f := fields{rec, bag}

	f.str("name", "config.network.dnsConfig.hostName")
	f.str("product_name", "summary.config.product.name")
	f.str("version", "summary.config.product.version")
	f.str("build_number", "summary.config.product.build")
	f.str("product_type", "summary.config.product.osType")

	_, err := p.build(collections.HostOperatingSystems, rec)

	return err
}

func (p *Parser) parseHostSystemServices(host collections.Lazy, bag inventory.PropertyBag) error {
	for _, svc := range bag.List("config.service.service") {
		key, ok := vstr(svc, "key")
		if !ok {
			continue
		}

		rec := collections.Record{"host": host, "name": key}

		if label, ok := vstr(svc, "label"); ok {
			rec["display_name"] = label
		}

		if running, ok := vbool(svc, "running"); ok {
			rec["running"] = running
		}

		if policy, ok := vstr(svc, "policy"); ok {
			rec["policy"] = policy
		}

		if _, err := p.build(collections.HostSystemServices, rec); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) parseHostSystemHardware(host collections.Lazy, bag inventory.PropertyBag) (collections.Lazy, error) {
	rec := collections.Record{"host": host}
	f := fields{rec, bag}

	f.integer("cpu_speed", "summary.hardware.cpuMhz")
	f.str("cpu_type", "summary.hardware.cpuModel")
	f.str("manufacturer", "summary.hardware.vendor")
	f.str("model", "summary.hardware.model")
	f.integer("number_of_nics", "summary.hardware.numNics")

	if size, ok := bag.Int("summary.hardware.memorySize"); ok {
		rec["memory_mb"] = size / bytesPerMB
	}

	if reserved, ok := bag.Int("config.consoleReservation.serviceConsoleReserved"); ok {
		rec["memory_console"] = reserved / bytesPerMB
	}

	pkgs, hasPkgs := bag.Int("summary.hardware.numCpuPkgs")
	cores, hasCores := bag.Int("summary.hardware.numCpuCores")

	setIfPresent(rec, "cpu_sockets", pkgs, hasPkgs)
	setIfPresent(rec, "cpu_total_cores", cores, hasCores)

	if hasPkgs && hasCores && pkgs > 0 {
		rec["cpu_cores_per_socket"] = cores / pkgs
	}

	return p.build(collections.HostHardwares, rec)
}

func (p *Parser) parseHostSystemNics(hw collections.Lazy, bag inventory.PropertyBag) error {
	for _, pnic := range bag.List("config.network.pnic") {
		device, ok := vstr(pnic, "device")
		if !ok {
			continue
		}

		rec := collections.Record{
			"hardware":        hw,
			"uid_ems":         device,
			"device_name":     device,
			"device_type":     "ethernet",
			"controller_type": "ethernet",
			"present":         true,
			"start_connected": true,
		}

		if mac, ok := vstr(pnic, "mac"); ok {
			rec["address"] = mac
		}

		if pci, ok := vstr(pnic, "pci"); ok {
			rec["location"] = pci
		}

		if driver, ok := vstr(pnic, "driver"); ok {
			rec["model"] = driver
		}

		if _, err := p.build(collections.GuestDevices, rec); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) parseHostSystemStorageAdapters(hw collections.Lazy, bag inventory.PropertyBag) error {
	for _, hba := range bag.List("config.storageDevice.hostBusAdapter") {
		device, ok := vstr(hba, "device")
		if !ok {
			continue
		}

		rec := collections.Record{
			"hardware":    hw,
			"uid_ems":     device,
			"device_name": device,
			"device_type": "storage",
			"present":     true,
		}

		if hba.TypeName != "" {
			rec["controller_type"] = strings.TrimPrefix(strings.TrimPrefix(hba.TypeName, "HostInternetScsi"), "Host")
		}

		if model, ok := vstr(hba, "model"); ok {
			rec["model"] = model
		}

		if pci, ok := vstr(hba, "pci"); ok {
			rec["location"] = pci
		}

		if iqn, ok := vstr(hba, "iScsiName"); ok {
			rec["iscsi_name"] = iqn
		}

		if _, err := p.build(collections.GuestDevices, rec); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) parseHostSystemVnics(hw collections.Lazy, bag inventory.PropertyBag) error {
	gateway, hasGateway := bag.String("config.network.ipRouteConfig.defaultGateway")

	for _, vnic := range hostVnics(bag) {
		ip, ok := vstr(vnic, "spec.ip.ipAddress")
		if !ok || ip == "" {
			continue
		}

		rec := collections.Record{"hardware": hw, "ipaddress": ip}

		if device, ok := vstr(vnic, "device"); ok {
			rec["description"] = device
		}

		if mask, ok := vstr(vnic, "spec.ip.subnetMask"); ok {
			rec["subnet_mask"] = mask
		}

		if dhcp, ok := vbool(vnic, "spec.ip.dhcp"); ok {
			rec["dhcp_enabled"] = dhcp
		}

		setIfPresent(rec, "default_gateway", gateway, hasGateway)

		if _, err := p.build(collections.HostNetworks, rec); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) parseHostSystemSwitches(host collections.Lazy, bag inventory.PropertyBag) error {
	for _, vswitch := range bag.List("config.network.vswitch") {
		name, ok := vstr(vswitch, "name")
		if !ok {
			continue
		}

		// Standard switch names repeat on every host.
		rec := collections.Record{
			"uid_ems": host.Reference + "__" + name,
			"name":    decodeName(name),
			"shared":  false,
		}

		if ports, ok := vint(vswitch, "numPorts"); ok {
			rec["ports"] = ports
		}

		security, _ := vswitch.Lookup("spec.policy.security")
		if v, ok := vbool(security, "allowPromiscuous"); ok {
			rec["allow_promiscuous"] = v
		}

		if v, ok := vbool(security, "forgedTransmits"); ok {
			rec["forged_transmits"] = v
		}

		if v, ok := vbool(security, "macChanges"); ok {
			rec["mac_changes"] = v
		}

		sw, err := p.build(collections.Switches, rec)
		if err != nil {
			return err
		}

		if _, err := p.build(collections.HostSwitches, collections.Record{"host": host, "switch": sw}); err != nil {
			return err
		}
	}

	return nil
}

func hostVnics(bag inventory.PropertyBag) []inventory.Value {
	var out []inventory.Value

	out = append(out, bag.List("config.network.consoleVnic")...)

	return append(out, bag.List("config.network.vnic")...)
}
