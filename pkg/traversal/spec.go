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

// Package traversal builds the filter specification that tells the remote
// property collector which objects to walk from the root folder and which
// properties to report for each object type.
//
// The spec is a pure function of the static schema in schema.go. Building it
// twice yields byte-identical output, which Fingerprint exposes so a change to
// the watch list is visible in logs.
package traversal

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
)

// PropertySpec selects properties of one object type.
type PropertySpec struct {
	Type    string   `json:"type"`
	All     bool     `json:"all"`
	PathSet []string `json:"pathSet"`
}

// TraversalRule is a named traversal step. SelectSet names the rules applied
// to the objects this rule reaches.
type TraversalRule struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Path      string   `json:"path"`
	Skip      bool     `json:"skip"`
	SelectSet []string `json:"selectSet"`
}

// Spec is the complete filter specification for one subscription.
type Spec struct {
	Root      inventory.ObjectRef `json:"root"`
	SelectSet []TraversalRule     `json:"selectSet"`
	PropSet   []PropertySpec      `json:"propSet"`
}

// Build returns the inventory spec rooted at root (the root folder of the
// endpoint).
func Build(root inventory.ObjectRef) *Spec {
	spec := &Spec{Root: root}

	for _, e := range edges {
		spec.SelectSet = append(spec.SelectSet, TraversalRule{
			Name:      e.Name,
			Type:      e.Type,
			Path:      e.Path,
			SelectSet: selectorFor(e),
		})
	}

	for _, kp := range propertyMap {
		spec.PropSet = append(spec.PropSet, PropertySpec{
			Type:    kp.Type,
			PathSet: append([]string(nil), kp.Paths...),
		})
	}

	return spec
}

// ForObject returns a spec watching paths of a single object without
// traversal, e.g. the latest page of an event history collector.
func ForObject(obj inventory.ObjectRef, paths ...string) *Spec {
	return &Spec{
		Root:    obj,
		PropSet: []PropertySpec{{Type: obj.Type, PathSet: paths}},
	}
}

// Bytes returns the canonical encoding of the spec.
func (s *Spec) Bytes() []byte {
	b, err := json.Marshal(s)
	if err != nil {
		// Spec consists of strings, bools and slices only.
		panic(fmt.Sprintf("encoding traversal spec: %v", err))
	}

	return b
}

// Fingerprint is a stable hash of the canonical encoding.
func (s *Spec) Fingerprint() string {
	return strconv.FormatUint(xxhash.Sum64(s.Bytes()), 16)
}

// Rule returns the traversal rule with the given name.
func (s *Spec) Rule(name string) (TraversalRule, bool) {
	for _, r := range s.SelectSet {
		if r.Name == name {
			return r, true
		}
	}

	return TraversalRule{}, false
}

func hubEdge() Edge {
	for _, e := range edges {
		if e.Hub {
			return e
		}
	}

	panic("traversal schema has no hub edge")
}

// selectorFor computes which rules apply to the objects e reaches.
//
// The hub (folder) edge gets the closure of every edge reachable from a
// folder child without passing through another folder. Any other edge selects
// the hub when it yields a folder, plus the recursive edges sourced at the
// types it yields.
func selectorFor(e Edge) []string {
	hub := hubEdge()
	selected := map[string]bool{}

	if e.Hub {
		visited := map[string]bool{}
		frontier := append([]string(nil), e.Yields...)

		for len(frontier) > 0 {
			t := frontier[0]
			frontier = frontier[1:]

			if visited[t] {
				continue
			}

			visited[t] = true

			for _, next := range edges {
				if next.Type != t {
					continue
				}

				selected[next.Name] = true

				if !next.Hub {
					frontier = append(frontier, next.Yields...)
				}
			}
		}
	} else {
		for _, y := range e.Yields {
			if y == hub.Type {
				selected[hub.Name] = true

				continue
			}

			for _, next := range edges {
				if next.Recursive && next.Type == y {
					selected[next.Name] = true
				}
			}
		}
	}

	var out []string

	for _, candidate := range edges {
		if selected[candidate.Name] {
			out = append(out, candidate.Name)
		}
	}

	return out
}

var errInvalidSchema = errors.New("invalid traversal schema")

func validateSchema(props []KindProperties, edgeTable []Edge) error {
	kinds := map[string]bool{}

	for _, kp := range props {
		if kp.Type == "" || len(kp.Paths) == 0 {
			return fmt.Errorf("%w: empty property entry for %q", errInvalidSchema, kp.Type)
		}

		if kinds[kp.Type] {
			return fmt.Errorf("%w: duplicate kind %q", errInvalidSchema, kp.Type)
		}

		kinds[kp.Type] = true

		seen := map[string]bool{}

		for _, p := range kp.Paths {
			if seen[p] {
				return fmt.Errorf("%w: duplicate path %q for %q", errInvalidSchema, p, kp.Type)
			}

			seen[p] = true
		}
	}

	names := map[string]bool{}
	hubs := 0

	for _, e := range edgeTable {
		if e.Name == "" || e.Type == "" || e.Path == "" || len(e.Yields) == 0 {
			return fmt.Errorf("%w: incomplete edge %+v", errInvalidSchema, e)
		}

		if names[e.Name] {
			return fmt.Errorf("%w: duplicate edge %q", errInvalidSchema, e.Name)
		}

		names[e.Name] = true

		if e.Hub {
			hubs++
		}

		if e.Recursive && !slices.Contains(e.Yields, e.Type) {
			return fmt.Errorf("%w: recursive edge %q does not yield %q", errInvalidSchema, e.Name, e.Type)
		}
	}

	if hubs != 1 {
		return fmt.Errorf("%w: expected exactly one hub edge, got %d", errInvalidSchema, hubs)
	}

	return nil
}
