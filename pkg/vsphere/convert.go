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
	"reflect"
	"strings"
	"time"

	"github.com/vmware/govmomi/vim25/types"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
)

var (
	morType  = reflect.TypeOf(types.ManagedObjectReference{})
	timeType = reflect.TypeOf(time.Time{})
)

// convertUpdateSet turns a WaitForUpdatesEx result into the protocol neutral
// representation used by the collector.
func convertUpdateSet(set *types.UpdateSet) *inventory.UpdateSet {
	if set == nil {
		return nil
	}

	out := &inventory.UpdateSet{
		Version:   set.Version,
		Truncated: set.Truncated != nil && *set.Truncated,
	}

	for _, fu := range set.FilterSet {
		update := inventory.FilterUpdate{Filter: inventory.FilterHandle(fu.Filter.Value)}

		for _, ou := range fu.ObjectSet {
			obj := inventory.ObjectUpdate{
				Ref:  convertRef(ou.Obj),
				Kind: inventory.ObjectUpdateKind(ou.Kind),
			}

			for _, pc := range ou.ChangeSet {
				obj.ChangeSet = append(obj.ChangeSet, inventory.PropertyChange{
					Name: pc.Name,
					Op:   inventory.ChangeOp(pc.Op),
					Val:  ConvertValue(pc.Val),
				})
			}

			update.ObjectSet = append(update.ObjectSet, obj)
		}

		out.FilterSet = append(out.FilterSet, update)
	}

	return out
}

func convertRef(ref types.ManagedObjectReference) inventory.ObjectRef {
	return inventory.ObjectRef{Type: ref.Type, Value: ref.Value}
}

func toMoRef(ref inventory.ObjectRef) types.ManagedObjectReference {
	return types.ManagedObjectReference{Type: ref.Type, Value: ref.Value}
}

// ConvertValue maps a property value decoded by govmomi onto an
// inventory.Value.
//
// Data objects become struct values keyed by their wire (xml) field names,
// with embedded base types flattened. ArrayOfX wrappers become lists, managed
// object references become refs and timestamps RFC 3339 strings. Unset
// optional fields are left out.
func ConvertValue(v any) inventory.Value {
	if v == nil {
		return inventory.Null()
	}

	return convertReflect(reflect.ValueOf(v))
}

func convertReflect(rv reflect.Value) inventory.Value {
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return inventory.Null()
		}

		rv = rv.Elem()
	}

	switch rv.Type() {
	case morType:
		return inventory.RefValue(convertRef(rv.Interface().(types.ManagedObjectReference)))
	case timeType:
		return inventory.StringValue(rv.Interface().(time.Time).UTC().Format(time.RFC3339))
	}

	switch rv.Kind() {
	case reflect.String:
		return inventory.StringValue(rv.String())
	case reflect.Bool:
		return inventory.BoolValue(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return inventory.IntValue(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return inventory.IntValue(int64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return inventory.FloatValue(rv.Float())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return inventory.StringValue(string(rv.Bytes()))
		}

		items := make([]inventory.Value, 0, rv.Len())
		for i := range rv.Len() {
			items = append(items, convertReflect(rv.Index(i)))
		}

		return inventory.ListValue(items...)
	case reflect.Struct:
		if list, ok := arrayWrapper(rv); ok {
			return convertReflect(list)
		}

		fields := map[string]inventory.Value{}
		collectFields(rv, fields)

		return inventory.StructValue(rv.Type().Name(), fields)
	default:
		return inventory.Null()
	}
}

// arrayWrapper unwraps the ArrayOfX containers the SOAP encoding uses for
// lists, e.g. ArrayOfManagedObjectReference.
func arrayWrapper(rv reflect.Value) (reflect.Value, bool) {
	t := rv.Type()
	if !strings.HasPrefix(t.Name(), "ArrayOf") || t.NumField() != 1 {
		return reflect.Value{}, false
	}

	field := rv.Field(0)
	if field.Kind() != reflect.Slice {
		return reflect.Value{}, false
	}

	return field, true
}

func collectFields(rv reflect.Value, out map[string]inventory.Value) {
	t := rv.Type()

	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		fv := rv.Field(i)

		if sf.Anonymous && fv.Kind() == reflect.Struct {
			collectFields(fv, out)

			continue
		}

		if isUnset(fv) {
			continue
		}

		out[fieldName(sf)] = convertReflect(fv)
	}
}

func isUnset(fv reflect.Value) bool {
	switch fv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return fv.IsNil()
	default:
		return false
	}
}

func fieldName(sf reflect.StructField) string {
	tag := sf.Tag.Get("xml")
	if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
		return name
	}

	return strings.ToLower(sf.Name[:1]) + sf.Name[1:]
}
