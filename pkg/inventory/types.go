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

// Package inventory holds the data model shared by the collector stages:
// object references, property values as delivered by the property
// collector, property bags and the update sets the long-poll returns.
package inventory

import "fmt"

// ObjectRef identifies a managed object on the remote endpoint. It is only
// meaningful within one endpoint; Value is unique there, Type names the kind.
type ObjectRef struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (r ObjectRef) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.Value)
}

// IsZero reports whether the reference is unset.
func (r ObjectRef) IsZero() bool {
	return r.Type == "" && r.Value == ""
}

// FilterHandle identifies a server-side property filter.
type FilterHandle string

// ObjectUpdateKind tells whether an object appeared, changed or disappeared.
type ObjectUpdateKind string

const (
	ObjectEnter  ObjectUpdateKind = "enter"
	ObjectModify ObjectUpdateKind = "modify"
	ObjectLeave  ObjectUpdateKind = "leave"
)

// ChangeOp is the operation a PropertyChange applies to one property path.
type ChangeOp string

const (
	// OpAdd appends Val to the sequence at Name.
	OpAdd ChangeOp = "add"
	// OpRemove drops the property.
	OpRemove ChangeOp = "remove"
	// OpIndirectRemove drops a property whose owner went away.
	OpIndirectRemove ChangeOp = "indirectRemove"
	// OpAssign overwrites the property with Val.
	OpAssign ChangeOp = "assign"
)

// PropertyChange is one operation against a single property path.
type PropertyChange struct {
	Name string
	Op   ChangeOp
	Val  Value
}

// ObjectUpdate is the set of property changes for one object in one batch.
type ObjectUpdate struct {
	Ref       ObjectRef
	Kind      ObjectUpdateKind
	ChangeSet []PropertyChange
}

// FilterUpdate groups the object updates produced by one filter.
type FilterUpdate struct {
	Filter    FilterHandle
	ObjectSet []ObjectUpdate
}

// UpdateSet is one long-poll result. Version is the cursor for the next
// poll; Truncated means more updates for the same moment follow.
type UpdateSet struct {
	Version   string
	Truncated bool
	FilterSet []FilterUpdate
}

// ObjectCount returns the number of object updates across all filters.
func (u *UpdateSet) ObjectCount() int {
	if u == nil {
		return 0
	}

	n := 0
	for _, fu := range u.FilterSet {
		n += len(fu.ObjectSet)
	}

	return n
}
