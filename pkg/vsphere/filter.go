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

package vsphere

import (
	"github.com/vmware/govmomi/vim25/types"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/traversal"
)

// filterSpec renders spec as a PropertyFilterSpec. Rules are declared in full
// on the object spec and referenced by name from each other's select sets.
func filterSpec(spec *traversal.Spec) types.PropertyFilterSpec {
	var selectSet []types.BaseSelectionSpec

	for _, rule := range spec.SelectSet {
		ts := &types.TraversalSpec{
			SelectionSpec: types.SelectionSpec{Name: rule.Name},
			Type:          rule.Type,
			Path:          rule.Path,
			Skip:          types.NewBool(rule.Skip),
		}

		for _, name := range rule.SelectSet {
			ts.SelectSet = append(ts.SelectSet, &types.SelectionSpec{Name: name})
		}

		selectSet = append(selectSet, ts)
	}

	out := types.PropertyFilterSpec{
		ObjectSet: []types.ObjectSpec{{
			Obj:       toMoRef(spec.Root),
			Skip:      types.NewBool(false),
			SelectSet: selectSet,
		}},
	}

	for _, ps := range spec.PropSet {
		out.PropSet = append(out.PropSet, types.PropertySpec{
			Type:    ps.Type,
			All:     types.NewBool(ps.All),
			PathSet: append([]string(nil), ps.PathSet...),
		})
	}

	return out
}
