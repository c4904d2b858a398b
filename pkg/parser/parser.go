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

// Package parser maps the property bags of managed objects onto normalized
// inventory records.
//
// Every supported object type has one mapping function. Parse always marks
// the object's key observed in its collection before mapping, so an object
// whose properties are still incomplete is reported as present without any
// attribute changes. Unsupported types are rejected with
// UnsupportedKindError; the caller skips that object and carries on.
package parser

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collections"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
)

// Kind is a managed object type the parser knows how to map.
type Kind string

const (
	KindVirtualMachine                 Kind = "VirtualMachine"
	KindHostSystem                     Kind = "HostSystem"
	KindComputeResource                Kind = "ComputeResource"
	KindClusterComputeResource         Kind = "ClusterComputeResource"
	KindDatacenter                     Kind = "Datacenter"
	KindFolder                         Kind = "Folder"
	KindStoragePod                     Kind = "StoragePod"
	KindDatastore                      Kind = "Datastore"
	KindResourcePool                   Kind = "ResourcePool"
	KindVirtualApp                     Kind = "VirtualApp"
	KindDistributedVirtualSwitch       Kind = "DistributedVirtualSwitch"
	KindVmwareDistributedVirtualSwitch Kind = "VmwareDistributedVirtualSwitch"
	KindDistributedVirtualPortgroup    Kind = "DistributedVirtualPortgroup"
	KindNetwork                        Kind = "Network"
)

// kindCollections maps each kind to the collection holding its records.
var kindCollections = map[Kind]string{
	KindVirtualMachine:                 collections.VmsAndTemplates,
	KindHostSystem:                     collections.Hosts,
	KindComputeResource:                collections.EmsClusters,
	KindClusterComputeResource:         collections.EmsClusters,
	KindDatacenter:                     collections.EmsFolders,
	KindFolder:                         collections.EmsFolders,
	KindStoragePod:                     collections.EmsFolders,
	KindDatastore:                      collections.Storages,
	KindResourcePool:                   collections.ResourcePools,
	KindVirtualApp:                     collections.ResourcePools,
	KindDistributedVirtualSwitch:       collections.Switches,
	KindVmwareDistributedVirtualSwitch: collections.Switches,
	KindDistributedVirtualPortgroup:    collections.Lans,
	KindNetwork:                        collections.Lans,
}

// UnsupportedKindError is returned for object types without a mapping.
type UnsupportedKindError struct {
	Type string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("missing parser for %s", e.Type)
}

// KindFromType resolves a remote type name.
func KindFromType(typeName string) (Kind, error) {
	k := Kind(typeName)
	if _, ok := kindCollections[k]; !ok {
		return "", &UnsupportedKindError{Type: typeName}
	}

	return k, nil
}

// CollectionFor returns the collection name of a remote type.
func CollectionFor(typeName string) (string, bool) {
	name, ok := kindCollections[Kind(typeName)]

	return name, ok
}

// Parser writes into the collections of the current pass.
type Parser struct {
	set *collections.Set
	log *zap.SugaredLogger
}

func New(set *collections.Set, log *zap.SugaredLogger) *Parser {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Parser{set: set, log: log}
}

// Parse maps one object. A nil bag means the object left the inventory: its
// key is dropped from the pass together with any record built for it, so it
// is not reported as observed.
func (p *Parser) Parse(ref inventory.ObjectRef, bag inventory.PropertyBag) error {
	kind, err := KindFromType(ref.Type)
	if err != nil {
		return err
	}

	collection := kindCollections[kind]

	if bag == nil {
		p.set.ForgetCascade(collection, ref.Value)

		return nil
	}

	p.set.Get(collection).MarkObserved(ref.Value)

	if len(bag) == 0 {
		return nil
	}

	var parseErr error

	switch kind {
	case KindVirtualMachine:
		parseErr = p.parseVirtualMachine(ref, bag)
	case KindHostSystem:
		parseErr = p.parseHostSystem(ref, bag)
	case KindComputeResource, KindClusterComputeResource:
		parseErr = p.parseComputeResource(ref, bag)
	case KindDatacenter:
		parseErr = p.parseDatacenter(ref, bag)
	case KindFolder:
		parseErr = p.parseFolder(ref, bag)
	case KindStoragePod:
		parseErr = p.parseStoragePod(ref, bag)
	case KindDatastore:
		parseErr = p.parseDatastore(ref, bag)
	case KindResourcePool, KindVirtualApp:
		parseErr = p.parseResourcePool(ref, bag, kind == KindVirtualApp)
	case KindDistributedVirtualSwitch, KindVmwareDistributedVirtualSwitch:
		parseErr = p.parseDistributedVirtualSwitch(ref, bag)
	case KindDistributedVirtualPortgroup:
		parseErr = p.parseDistributedVirtualPortgroup(ref, bag)
	case KindNetwork:
		parseErr = p.parseNetwork(ref, bag)
	}

	if parseErr != nil {
		return fmt.Errorf("parsing %s: %w", ref, parseErr)
	}

	return nil
}

// build is a shorthand used by the mapping files.
func (p *Parser) build(collection string, rec collections.Record) (collections.Lazy, error) {
	return p.set.Get(collection).Build(rec)
}

func (p *Parser) lazy(collection, key string) collections.Lazy {
	return p.set.Get(collection).Lazy(key)
}

// refLink links to the record of an arbitrary managed object, e.g. a parent.
func (p *Parser) refLink(ref inventory.ObjectRef) (collections.Lazy, bool) {
	collection, ok := CollectionFor(ref.Type)
	if !ok {
		return collections.Lazy{}, false
	}

	return p.lazy(collection, ref.Value), true
}

// childKeys groups child links the way ems_children expects them.
var childKeys = map[string]string{
	collections.EmsFolders:      "folder",
	collections.EmsClusters:     "cluster",
	collections.VmsAndTemplates: "vm",
	collections.Hosts:           "host",
	collections.Storages:        "storage",
	collections.ResourcePools:   "resource_pool",
	collections.Switches:        "switch",
	collections.Lans:            "lan",
}

func (p *Parser) children(refs []inventory.ObjectRef) map[string][]collections.Lazy {
	out := map[string][]collections.Lazy{}

	for _, ref := range refs {
		link, ok := p.refLink(ref)
		if !ok {
			p.log.Debugf("Ignoring child %s of unsupported type", ref)

			continue
		}

		key := childKeys[link.Collection]
		out[key] = append(out[key], link)
	}

	return out
}

func (p *Parser) setParent(rec collections.Record, bag inventory.PropertyBag) {
	parent, ok := bag.Ref("parent")
	if !ok {
		return
	}

	if link, ok := p.refLink(parent); ok {
		rec["parent"] = link
	}
}
