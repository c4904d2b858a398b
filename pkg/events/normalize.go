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

package events

import (
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
)

// Record is one normalized event.
type Record map[string]any

// Event types whose concrete type is carried in eventTypeId.
var extendedTypes = map[string]bool{
	"EventEx":       true,
	"ExtendedEvent": true,
}

// Normalize flattens a converted event data object. It returns the event key
// and false when the value is not an event.
func Normalize(ev inventory.Value, emsID int64) (Record, int64, bool) {
	if ev.Kind != inventory.KindStruct {
		return nil, 0, false
	}

	keyVal, ok := ev.Field("key")
	if !ok {
		return nil, 0, false
	}

	key, ok := keyVal.AsInt()
	if !ok {
		return nil, 0, false
	}

	eventType := ev.TypeName
	if extendedTypes[eventType] {
		if id, ok := lookupString(ev, "eventTypeId"); ok {
			eventType = id
		}
	}

	rec := Record{
		"ems_id":     emsID,
		"ems_ref":    key,
		"event_type": eventType,
		"source":     "VC",
		"is_task":    eventType == "TaskEvent",
	}

	if chain, ok := lookupInt(ev, "chainId"); ok {
		rec["chain_id"] = chain
	}

	copyString(rec, ev, "created_time", "createdTime")
	copyString(rec, ev, "full_message", "fullFormattedMessage")
	copyString(rec, ev, "username", "userName")

	copyString(rec, ev, "vm_name", "vm.name")
	copyRef(rec, ev, "vm_ems_ref", "vm.vm")
	copyString(rec, ev, "dest_vm_name", "destVm.name")
	copyRef(rec, ev, "dest_vm_ems_ref", "destVm.vm")

	copyString(rec, ev, "host_name", "host.name")
	copyRef(rec, ev, "host_ems_ref", "host.host")
	copyString(rec, ev, "dest_host_name", "destHost.name")
	copyRef(rec, ev, "dest_host_ems_ref", "destHost.host")

	copyString(rec, ev, "ems_cluster_name", "computeResource.name")
	copyRef(rec, ev, "ems_cluster_ems_ref", "computeResource.computeResource")
	copyString(rec, ev, "datacenter_name", "datacenter.name")
	copyRef(rec, ev, "datacenter_ems_ref", "datacenter.datacenter")

	return rec, key, true
}

func lookupString(v inventory.Value, path string) (string, bool) {
	f, ok := v.Lookup(path)
	if !ok {
		return "", false
	}

	return f.AsString()
}

func lookupInt(v inventory.Value, path string) (int64, bool) {
	f, ok := v.Lookup(path)
	if !ok {
		return 0, false
	}

	return f.AsInt()
}

func copyString(rec Record, v inventory.Value, attr, path string) {
	if s, ok := lookupString(v, path); ok && s != "" {
		rec[attr] = s
	}
}

func copyRef(rec Record, v inventory.Value, attr, path string) {
	f, ok := v.Lookup(path)
	if !ok {
		return
	}

	if ref, ok := f.AsRef(); ok {
		rec[attr] = ref.Value
	}
}
