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

// KindProperties lists the property paths watched for one managed object type.
type KindProperties struct {
	Type  string
	Paths []string
}

// propertyMap is the static watch list. Order matters: it is the order of the
// property specs sent to the server and therefore part of the fingerprint.
var propertyMap = []KindProperties{
	{Type: "VirtualMachine", Paths: []string{
		"availableField",
		"config.cpuAffinity.affinitySet",
		"config.cpuHotAddEnabled",
		"config.cpuHotRemoveEnabled",
		"config.defaultPowerOps.standbyAction",
		"config.hardware.device",
		"config.hardware.numCoresPerSocket",
		"config.hotPlugMemoryIncrementSize",
		"config.hotPlugMemoryLimit",
		"config.memoryHotAddEnabled",
		"config.version",
		"datastore",
		"guest.net",
		"resourceConfig.cpuAllocation.expandableReservation",
		"resourceConfig.cpuAllocation.limit",
		"resourceConfig.cpuAllocation.reservation",
		"resourceConfig.cpuAllocation.shares.level",
		"resourceConfig.cpuAllocation.shares.shares",
		"resourceConfig.memoryAllocation.expandableReservation",
		"resourceConfig.memoryAllocation.limit",
		"resourceConfig.memoryAllocation.reservation",
		"resourceConfig.memoryAllocation.shares.level",
		"resourceConfig.memoryAllocation.shares.shares",
		"snapshot",
		"summary.vm",
		"summary.config.annotation",
		"summary.config.ftInfo.instanceUuids",
		"summary.config.guestFullName",
		"summary.config.guestId",
		"summary.config.memorySizeMB",
		"summary.config.name",
		"summary.config.numCpu",
		"summary.config.template",
		"summary.config.uuid",
		"summary.config.vmPathName",
		"summary.customValue",
		"summary.guest.hostName",
		"summary.guest.ipAddress",
		"summary.guest.toolsStatus",
		"summary.runtime.bootTime",
		"summary.runtime.connectionState",
		"summary.runtime.host",
		"summary.runtime.powerState",
		"summary.storage.unshared",
		"summary.storage.committed",
	}},
	{Type: "ComputeResource", Paths: []string{
		"name",
		"host",
		"parent",
		"resourcePool",
	}},
	{Type: "ClusterComputeResource", Paths: []string{
		"configuration.dasConfig.admissionControlPolicy",
		"configuration.dasConfig.admissionControlEnabled",
		"configuration.dasConfig.enabled",
		"configuration.dasConfig.failoverLevel",
		"configuration.drsConfig.defaultVmBehavior",
		"configuration.drsConfig.enabled",
		"configuration.drsConfig.vmotionRate",
		"summary.effectiveCpu",
		"summary.effectiveMemory",
		"host",
		"name",
		"parent",
		"resourcePool",
	}},
	{Type: "ResourcePool", Paths: []string{
		"name",
		"parent",
		"resourcePool",
		"summary.config.cpuAllocation.expandableReservation",
		"summary.config.cpuAllocation.limit",
		"summary.config.cpuAllocation.reservation",
		"summary.config.cpuAllocation.shares.level",
		"summary.config.cpuAllocation.shares.shares",
		"summary.config.memoryAllocation.expandableReservation",
		"summary.config.memoryAllocation.limit",
		"summary.config.memoryAllocation.reservation",
		"summary.config.memoryAllocation.shares.level",
		"summary.config.memoryAllocation.shares.shares",
		"vm",
	}},
	{Type: "Folder", Paths: []string{
		"childEntity",
		"name",
		"parent",
	}},
	{Type: "Datacenter", Paths: []string{
		"datastoreFolder",
		"hostFolder",
		"name",
		"networkFolder",
		"parent",
		"vmFolder",
	}},
	{Type: "HostSystem", Paths: []string{
		"config.adminDisabled",
		"config.consoleReservation.serviceConsoleReserved",
		"config.hyperThread.active",
		"config.network.consoleVnic",
		"config.network.dnsConfig.domainName",
		"config.network.dnsConfig.hostName",
		"config.network.ipRouteConfig.defaultGateway",
		"config.network.pnic",
		"config.network.portgroup",
		"config.network.vnic",
		"config.network.vswitch",
		"config.service.service",
		"config.storageDevice.hostBusAdapter",
		"config.storageDevice.scsiLun",
		"config.storageDevice.scsiTopology.adapter",
		"datastore",
		"hardware.systemInfo.otherIdentifyingInfo",
		"name",
		"summary.host",
		"summary.config.name",
		"summary.config.product.build",
		"summary.config.product.name",
		"summary.config.product.osType",
		"summary.config.product.vendor",
		"summary.config.product.version",
		"summary.config.vmotionEnabled",
		"summary.hardware.cpuMhz",
		"summary.hardware.cpuModel",
		"summary.hardware.memorySize",
		"summary.hardware.model",
		"summary.hardware.numCpuCores",
		"summary.hardware.numCpuPkgs",
		"summary.hardware.numNics",
		"summary.hardware.vendor",
		"summary.quickStats.overallCpuUsage",
		"summary.quickStats.overallMemoryUsage",
		"summary.runtime.connectionState",
		"summary.runtime.inMaintenanceMode",
	}},
	{Type: "Datastore", Paths: []string{
		"info",
		"host",
		"capability.directoryHierarchySupported",
		"capability.perFileThinProvisioningSupported",
		"capability.rawDiskMappingsSupported",
		"summary.accessible",
		"summary.capacity",
		"summary.datastore",
		"summary.freeSpace",
		"summary.maintenanceMode",
		"summary.multipleHostAccess",
		"summary.name",
		"summary.type",
		"summary.uncommitted",
		"summary.url",
		"parent",
	}},
	{Type: "StoragePod", Paths: []string{
		"summary.capacity",
		"summary.freeSpace",
		"summary.name",
		"childEntity",
		"parent",
	}},
	{Type: "DistributedVirtualPortgroup", Paths: []string{
		"summary.name",
		"config.key",
		"config.distributedVirtualSwitch",
		"config.name",
		"parent",
		"host",
		"tag",
	}},
	{Type: "DistributedVirtualSwitch", Paths: []string{
		"config.uplinkPortgroup",
		"config.defaultPortConfig",
		"config.numPorts",
		"summary.name",
		"summary.uuid",
		"summary.host",
		"summary.hostMember",
		"parent",
	}},
	{Type: "Network", Paths: []string{
		"name",
		"parent",
	}},
}

// PropertyMap returns a copy of the watch list.
func PropertyMap() []KindProperties {
	out := make([]KindProperties, len(propertyMap))
	for i, kp := range propertyMap {
		out[i] = KindProperties{Type: kp.Type, Paths: append([]string(nil), kp.Paths...)}
	}

	return out
}

// Edge is a named hop from an object of Type through the reference property
// Path to objects of type Yields.
type Edge struct {
	Name   string
	Type   string
	Path   string
	Yields []string
	// Recursive edges yield their own source type and may be applied again
	// to what they reach.
	Recursive bool
	// Hub marks the folder edge. Its selector carries every edge reachable
	// below a folder so that arbitrarily nested folder trees are walked.
	Hub bool
}

// Folder children that own further edges. Subtypes (ClusterComputeResource,
// VirtualApp, StoragePod) are covered by their base types on the server side.
var folderChildren = []string{"Folder", "Datacenter", "ComputeResource", "ResourcePool", "VirtualMachine", "Network", "Datastore"}

var edges = []Edge{
	{Name: "tsFolder", Type: "Folder", Path: "childEntity", Yields: folderChildren, Recursive: true, Hub: true},
	{Name: "tsDcToDsFolder", Type: "Datacenter", Path: "datastoreFolder", Yields: []string{"Folder"}},
	{Name: "tsDcToHostFolder", Type: "Datacenter", Path: "hostFolder", Yields: []string{"Folder"}},
	{Name: "tsDcToNetworkFolder", Type: "Datacenter", Path: "networkFolder", Yields: []string{"Folder"}},
	{Name: "tsDcToVmFolder", Type: "Datacenter", Path: "vmFolder", Yields: []string{"Folder"}},
	{Name: "tsCrToHost", Type: "ComputeResource", Path: "host", Yields: []string{"HostSystem"}},
	{Name: "tsCrToRp", Type: "ComputeResource", Path: "resourcePool", Yields: []string{"ResourcePool"}},
	{Name: "tsRpToRp", Type: "ResourcePool", Path: "resourcePool", Yields: []string{"ResourcePool"}, Recursive: true},
	{Name: "tsRpToVm", Type: "ResourcePool", Path: "vm", Yields: []string{"VirtualMachine"}},
}

// Edges returns a copy of the edge table.
func Edges() []Edge {
	out := make([]Edge, len(edges))
	for i, e := range edges {
		e.Yields = append([]string(nil), e.Yields...)
		out[i] = e
	}

	return out
}

func init() {
	if err := validateSchema(propertyMap, edges); err != nil {
		panic(err)
	}
}
