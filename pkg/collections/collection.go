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

// Package collections accumulates normalized inventory records for one
// processing pass, grouped into the named collections the downstream
// persister understands.
//
// Each collection tracks two things: the records built during the pass and
// the manager keys observed during the pass. Building a record always marks
// its key observed, so every record key is also an observed key. Keys that
// were observed but never built mean "still exists, unchanged"; the downstream
// side treats known keys that are neither as deleted.
package collections

import (
	"errors"
	"fmt"
	"strings"
)

// Record is one normalized entity: attribute name to value. Values are plain
// data (strings, numbers, bools, slices, maps) or Lazy links.
type Record map[string]any

// Lazy links a record to a record of another collection by manager key. It is
// resolved by the downstream persister.
type Lazy struct {
	Collection string `json:"inventory_collection_name"`
	Reference  string `json:"reference"`
}

// ErrMissingManagerRef is returned when a record lacks one of the attributes
// forming its manager key.
var ErrMissingManagerRef = errors.New("record is missing a manager ref attribute")

const keySeparator = "__"

// Collection holds the records of one model class.
type Collection struct {
	def Definition

	records []Record
	index   map[string]int

	observed    []string
	observedSet map[string]struct{}

	allKnown []string
}

func newCollection(def Definition) *Collection {
	return &Collection{
		def:         def,
		index:       map[string]int{},
		observedSet: map[string]struct{}{},
	}
}

func (c *Collection) Name() string { return c.def.Name }
func (c *Collection) ModelClass() string { return c.def.ModelClass }
func (c *Collection) ManagerRef() []string { return append([]string(nil), c.def.ManagerRef...) }

// KeyOf derives the manager key of rec.
func (c *Collection) KeyOf(rec Record) (string, error) {
	parts := make([]string, 0, len(c.def.ManagerRef))

	for _, attr := range c.def.ManagerRef {
		v, ok := rec[attr]
		if !ok || v == nil {
			return "", fmt.Errorf("%s: %w: %s", c.def.Name, ErrMissingManagerRef, attr)
		}

		parts = append(parts, keyPart(v))
	}

	return strings.Join(parts, keySeparator), nil
}

func keyPart(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case Lazy:
		return t.Reference
	case *Lazy:
		return t.Reference
	default:
		return fmt.Sprint(t)
	}
}

// Build upserts rec by manager key and marks the key observed. Attributes of
// an existing record are merged, later values winning; the record keeps its
// original position.
func (c *Collection) Build(rec Record) (Lazy, error) {
	key, err := c.KeyOf(rec)
	if err != nil {
		return Lazy{}, err
	}

	if i, ok := c.index[key]; ok {
		for k, v := range rec {
			c.records[i][k] = v
		}
	} else {
		stored := make(Record, len(rec))
		for k, v := range rec {
			stored[k] = v
		}

		c.index[key] = len(c.records)
		c.records = append(c.records, stored)
	}

	c.MarkObserved(key)

	return c.Lazy(key), nil
}

// MarkObserved records that key exists on the remote side. Idempotent.
func (c *Collection) MarkObserved(key string) {
	if _, ok := c.observedSet[key]; ok {
		return
	}

	c.observedSet[key] = struct{}{}
	c.observed = append(c.observed, key)
}

// Forget removes key from both the records and the observed keys. Used when
// an object enters and leaves within the same pass.
func (c *Collection) Forget(key string) bool {
	removed := false

	if i, ok := c.index[key]; ok {
		c.records = append(c.records[:i], c.records[i+1:]...)
		c.reindex()

		removed = true
	}

	if _, ok := c.observedSet[key]; ok {
		delete(c.observedSet, key)

		for i, k := range c.observed {
			if k == key {
				c.observed = append(c.observed[:i], c.observed[i+1:]...)

				break
			}
		}

		removed = true
	}

	return removed
}

// forgetOwnedBy drops every record whose owner is target and returns their
// keys.
func (c *Collection) forgetOwnedBy(target Lazy) []string {
	if c.def.Owner == "" {
		return nil
	}

	var keys []string

	for _, rec := range c.records {
		if owner, ok := rec[c.def.Owner].(Lazy); ok && owner == target {
			if key, err := c.KeyOf(rec); err == nil {
				keys = append(keys, key)
			}
		}
	}

	for _, key := range keys {
		c.Forget(key)
	}

	return keys
}

func (c *Collection) reindex() {
	c.index = make(map[string]int, len(c.records))

	for i, rec := range c.records {
		if key, err := c.KeyOf(rec); err == nil {
			c.index[key] = i
		}
	}
}

// Lazy returns a link to key in this collection.
func (c *Collection) Lazy(key string) Lazy {
	return Lazy{Collection: c.def.Name, Reference: key}
}

// Find returns the record built for key.
func (c *Collection) Find(key string) (Record, bool) {
	i, ok := c.index[key]
	if !ok {
		return nil, false
	}

	return c.records[i], true
}

// IsObserved reports whether key was marked observed in this pass.
func (c *Collection) IsObserved(key string) bool {
	_, ok := c.observedSet[key]

	return ok
}

// Records returns the built records in first-build order.
func (c *Collection) Records() []Record {
	return append([]Record(nil), c.records...)
}

// ObservedKeys returns the observed keys in first-observed order.
func (c *Collection) ObservedKeys() []string {
	return append([]string(nil), c.observed...)
}

// SetAllKnown switches on full-snapshot semantics for this collection: keys
// outside the set are deleted downstream. A non-nil empty slice means
// "nothing exists any more".
func (c *Collection) SetAllKnown(keys []string) {
	c.allKnown = append([]string{}, keys...)
}

// AllKnownKeys returns nil unless SetAllKnown was called.
func (c *Collection) AllKnownKeys() []string {
	if c.allKnown == nil {
		return nil
	}

	return append([]string{}, c.allKnown...)
}

// IsEmpty reports whether the collection has nothing to tell downstream.
func (c *Collection) IsEmpty() bool {
	return len(c.records) == 0 && len(c.observed) == 0 && c.allKnown == nil
}
