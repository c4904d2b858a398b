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

package inventory

import "strings"

// PropertyBag maps dotted property paths, exactly as they were requested from
// the remote endpoint, to their current values. A nil bag stands for an
// object that left the inventory.
type PropertyBag map[string]Value

// Clone returns a deep copy so the caller can mutate it freely.
func (b PropertyBag) Clone() PropertyBag {
	if b == nil {
		return nil
	}

	out := make(PropertyBag, len(b))
	for k, v := range b {
		out[k] = v.Clone()
	}

	return out
}

// Get returns the value stored for path. If path is not a key of its own, the
// longest stored prefix is looked up and the rest is walked as struct fields,
// so "summary.config.name" resolves from either a flat entry or a nested
// "summary.config" struct.
func (b PropertyBag) Get(path string) (Value, bool) {
	if v, ok := b[path]; ok {
		return v, true
	}

	for i := strings.LastIndexByte(path, '.'); i > 0; i = strings.LastIndexByte(path[:i], '.') {
		if parent, ok := b[path[:i]]; ok {
			return parent.Lookup(path[i+1:])
		}
	}

	return Value{}, false
}

func (b PropertyBag) String(path string) (string, bool) {
	v, ok := b.Get(path)
	if !ok {
		return "", false
	}

	return v.AsString()
}

func (b PropertyBag) Int(path string) (int64, bool) {
	v, ok := b.Get(path)
	if !ok {
		return 0, false
	}

	return v.AsInt()
}

func (b PropertyBag) Bool(path string) (bool, bool) {
	v, ok := b.Get(path)
	if !ok {
		return false, false
	}

	return v.AsBool()
}

func (b PropertyBag) Ref(path string) (ObjectRef, bool) {
	v, ok := b.Get(path)
	if !ok {
		return ObjectRef{}, false
	}

	return v.AsRef()
}

// List returns the items at path; a missing path is an empty list.
func (b PropertyBag) List(path string) []Value {
	v, ok := b.Get(path)
	if !ok {
		return nil
	}

	items, _ := v.AsList()

	return items
}
