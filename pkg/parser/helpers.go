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
	"net/url"
	"strconv"
	"strings"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collections"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
)

const bytesPerMB = 1024 * 1024

// decodeName undoes the escaping vCenter applies to "%", "/" and "\" in
// entity names. Malformed escapes are kept verbatim.
func decodeName(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}

	return decoded
}

// fields copies bag properties into a record, one attribute per call. Absent
// or mistyped properties leave the attribute unset.
type fields struct {
	rec collections.Record
	bag inventory.PropertyBag
}

func (f fields) str(attr, path string) {
	if s, ok := f.bag.String(path); ok {
		f.rec[attr] = s
	}
}

func (f fields) name(attr, path string) {
	if s, ok := f.bag.String(path); ok {
		f.rec[attr] = decodeName(s)
	}
}

func (f fields) integer(attr, path string) {
	if i, ok := f.bag.Int(path); ok {
		f.rec[attr] = i
	}
}

func (f fields) flag(attr, path string) {
	if b, ok := f.bag.Bool(path); ok {
		f.rec[attr] = b
	}
}

// Accessors for struct items inside list properties.

func vstr(v inventory.Value, path string) (string, bool) {
	f, ok := v.Lookup(path)
	if !ok {
		return "", false
	}

	return f.AsString()
}

func vint(v inventory.Value, path string) (int64, bool) {
	f, ok := v.Lookup(path)
	if !ok {
		return 0, false
	}

	return f.AsInt()
}

func vbool(v inventory.Value, path string) (bool, bool) {
	f, ok := v.Lookup(path)
	if !ok {
		return false, false
	}

	return f.AsBool()
}

func vref(v inventory.Value, path string) (inventory.ObjectRef, bool) {
	f, ok := v.Lookup(path)
	if !ok {
		return inventory.ObjectRef{}, false
	}

	return f.AsRef()
}

func vlist(v inventory.Value, path string) []inventory.Value {
	f, ok := v.Lookup(path)
	if !ok {
		return nil
	}

	items, _ := f.AsList()

	return items
}

func refs(items []inventory.Value) []inventory.ObjectRef {
	out := make([]inventory.ObjectRef, 0, len(items))

	for _, item := range items {
		if ref, ok := item.AsRef(); ok {
			out = append(out, ref)
		}
	}

	return out
}

func setIfPresent[T any](rec collections.Record, attr string, v T, ok bool) {
	if ok {
		rec[attr] = v
	}
}

func joinInts(items []inventory.Value) string {
	parts := make([]string, 0, len(items))

	for _, item := range items {
		if i, ok := item.AsInt(); ok {
			parts = append(parts, strconv.FormatInt(i, 10))
		}
	}

	return strings.Join(parts, ",")
}
