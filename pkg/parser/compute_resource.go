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

func (p *Parser) parseComputeResource(ref inventory.ObjectRef, bag inventory.PropertyBag) error {
	rec := collections.Record{
		"ems_ref": ref.Value,
		"uid_ems": ref.Value,
	}

	fields{rec, bag}.name("name", "name")

	parseClusterSummary(rec, bag)
	parseClusterDasConfig(rec, bag)
	parseClusterDrsConfig(rec, bag)

	p.setParent(rec, bag)

	_, err := p.build(collections.EmsClusters, rec)

	return err
}

func parseClusterSummary(rec collections.Record, bag inventory.PropertyBag) {
	fields{rec, bag}.integer("effective_cpu", "summary.effectiveCpu")

	// effectiveMemory is reported in MB.
	if mem, ok := bag.Int("summary.effectiveMemory"); ok {
		rec["effective_memory"] = mem * bytesPerMB
	}
}

func parseClusterDasConfig(rec collections.Record, bag inventory.PropertyBag) {
	f := fields{rec, bag}

	f.flag("ha_enabled", "configuration.dasConfig.enabled")
	f.flag("ha_admit_control", "configuration.dasConfig.admissionControlEnabled")
	f.integer("ha_max_failures", "configuration.dasConfig.failoverLevel")
}

func parseClusterDrsConfig(rec collections.Record, bag inventory.PropertyBag) {
	f := fields{rec, bag}

	f.flag("drs_enabled", "configuration.drsConfig.enabled")
	f.str("drs_automation_level", "configuration.drsConfig.defaultVmBehavior")
	f.integer("drs_migration_threshold", "configuration.drsConfig.vmotionRate")
}
