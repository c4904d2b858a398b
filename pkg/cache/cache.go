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

// Package cache keeps the last known properties of every object seen by one
// collector session.
//
// The property collector only sends deltas. The cache folds each delta into
// the previous state so the parser always sees the full current property bag
// of an object.
//
// # Lifetime
//
// A cache belongs to exactly one session. After a reconnect the server sends a
// fresh baseline, so the collector calls Reset instead of trying to reconcile
// old and new state.
//
// # Thread Safety
//
// None. The cache is owned by the single goroutine running the long-poll
// loop.
package cache

import (
	"errors"
	"fmt"
	"sort"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
)

// ErrShapeMismatch is returned when an add targets a property that holds a
// non-list value.
var ErrShapeMismatch = errors.New("property change does not match the stored value")

// ErrUnknownOp is returned for change operations outside the protocol.
var ErrUnknownOp = errors.New("unknown property change operation")

// InventoryCache maps object type and id to the object's property bag.
type InventoryCache struct {
	objects map[string]map[string]inventory.PropertyBag
	size    int
}

func New() *InventoryCache {
	return &InventoryCache{objects: map[string]map[string]inventory.PropertyBag{}}
}

// ApplyChanges folds changes into the stored bag of ref and returns a copy of
// the result. Either all changes apply or none: on error the stored bag is
// left as it was. An object not seen before starts from an empty bag.
func (c *InventoryCache) ApplyChanges(ref inventory.ObjectRef, changes []inventory.PropertyChange) (inventory.PropertyBag, error) {
	current, existed := c.lookup(ref)

	next := current.Clone()
	if next == nil {
		next = inventory.PropertyBag{}
	}

	for _, change := range changes {
		if err := apply(next, change); err != nil {
			return nil, fmt.Errorf("%s: %s %q: %w", ref, change.Op, change.Name, err)
		}
	}

	byID, ok := c.objects[ref.Type]
	if !ok {
		byID = map[string]inventory.PropertyBag{}
		c.objects[ref.Type] = byID
	}

	byID[ref.Value] = next

	if !existed {
		c.size++
	}

	return next.Clone(), nil
}

func apply(bag inventory.PropertyBag, change inventory.PropertyChange) error {
	switch change.Op {
	case inventory.OpAdd:
		existing, ok := bag[change.Name]
		if !ok || existing.IsNull() {
			bag[change.Name] = inventory.ListValue(change.Val.Clone())

			return nil
		}

		if !existing.IsList() {
			return ErrShapeMismatch
		}

		items := append([]inventory.Value(nil), existing.List...)
		bag[change.Name] = inventory.ListValue(append(items, change.Val.Clone())...)
	case inventory.OpRemove, inventory.OpIndirectRemove:
		// Removal granularity is the whole property path, even when only one
		// element of a sequence went away.
		delete(bag, change.Name)
	case inventory.OpAssign:
		bag[change.Name] = change.Val.Clone()
	default:
		return ErrUnknownOp
	}

	return nil
}

// Remove forgets ref. Removing an unknown object is a no-op.
func (c *InventoryCache) Remove(ref inventory.ObjectRef) {
	byID, ok := c.objects[ref.Type]
	if !ok {
		return
	}

	if _, ok := byID[ref.Value]; !ok {
		return
	}

	delete(byID, ref.Value)
	c.size--

	if len(byID) == 0 {
		delete(c.objects, ref.Type)
	}
}

// Get returns a copy of the stored bag of ref.
func (c *InventoryCache) Get(ref inventory.ObjectRef) (inventory.PropertyBag, bool) {
	bag, ok := c.lookup(ref)
	if !ok {
		return nil, false
	}

	return bag.Clone(), true
}

func (c *InventoryCache) lookup(ref inventory.ObjectRef) (inventory.PropertyBag, bool) {
	byID, ok := c.objects[ref.Type]
	if !ok {
		return nil, false
	}

	bag, ok := byID[ref.Value]

	return bag, ok
}

// Len returns the number of cached objects.
func (c *InventoryCache) Len() int {
	return c.size
}

// Refs returns every cached object ordered by type and id.
func (c *InventoryCache) Refs() []inventory.ObjectRef {
	out := make([]inventory.ObjectRef, 0, c.size)

	for typ, byID := range c.objects {
		for id := range byID {
			out = append(out, inventory.ObjectRef{Type: typ, Value: id})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}

		return out[i].Value < out[j].Value
	})

	return out
}

// Reset drops everything.
func (c *InventoryCache) Reset() {
	c.objects = map[string]map[string]inventory.PropertyBag{}
	c.size = 0
}
