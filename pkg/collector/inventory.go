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

package collector

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/cache"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collections"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/constants"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/metrics"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/parser"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/persister"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/publisher"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/remote"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/traversal"
)

// InventoryProcessor keeps the property cache of one session and maps every
// pass onto a persister payload.
type InventoryProcessor struct {
	name      string
	emsID     int64
	cache     *cache.InventoryCache
	persister *persister.Persister
	log       *zap.SugaredLogger

	// Replaced after every flush.
	set    *collections.Set
	parser *parser.Parser
}

var _ Processor = (*InventoryProcessor)(nil)

// snapshotCollections carry the full key set of their objects on every flush,
// so an object missing from it is deleted downstream. Switches are left out:
// standard switches are keyed per host and never appear in the cache.
var snapshotCollections = []string{
	collections.VmsAndTemplates,
	collections.EmsFolders,
	collections.ResourcePools,
	collections.EmsClusters,
	collections.Storages,
	collections.Hosts,
	collections.Lans,
}

func NewInventoryProcessor(name string, emsID int64, log *zap.SugaredLogger) *InventoryProcessor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	p := &InventoryProcessor{
		name:      name,
		emsID:     emsID,
		cache:     cache.New(),
		persister: persister.New(emsID, constants.PersisterSchemaName),
		log:       log,
	}
	p.newPass()

	return p
}

func (p *InventoryProcessor) FilterSpec(_ context.Context, sess remote.Session) (*traversal.Spec, error) {
	return traversal.Build(sess.RootFolder()), nil
}

func (p *InventoryProcessor) Reset() {
	p.cache.Reset()
	p.newPass()
	metrics.SetCacheObjects(p.name, 0)
}

func (p *InventoryProcessor) newPass() {
	p.set = collections.NewSet()
	p.parser = parser.New(p.set, p.log)
}

func (p *InventoryProcessor) Apply(update inventory.FilterUpdate) {
	p.log.Infof("Processing %d updates...", len(update.ObjectSet))

	for _, ou := range update.ObjectSet {
		p.applyObject(ou)
	}

	p.log.Infof("Processing %d updates...Complete", len(update.ObjectSet))
	metrics.SetCacheObjects(p.name, p.cache.Len())
}

func (p *InventoryProcessor) applyObject(ou inventory.ObjectUpdate) {
	metrics.IncObjectUpdate(p.name, ou.Ref.Type, string(ou.Kind))

	if _, err := parser.KindFromType(ou.Ref.Type); err != nil {
		p.log.Warnf("Skipping %s: %v", ou.Ref, err)
		metrics.IncParseError(p.name, ou.Ref.Type)

		return
	}

	var bag inventory.PropertyBag

	switch ou.Kind {
	case inventory.ObjectEnter, inventory.ObjectModify:
		var err error

		bag, err = p.cache.ApplyChanges(ou.Ref, ou.ChangeSet)
		if err != nil {
			// The cached entry is unchanged; report the object with its last
			// known state so it is not mistaken for deleted.
			p.log.Warnf("Dropping malformed change set: %v", err)
			metrics.IncParseError(p.name, ou.Ref.Type)

			bag, _ = p.cache.Get(ou.Ref)
			if bag == nil {
				bag = inventory.PropertyBag{}
			}
		}
	case inventory.ObjectLeave:
		p.cache.Remove(ou.Ref)
	default:
		p.log.Warnf("Ignoring %s update for %s", ou.Kind, ou.Ref)

		return
	}

	if err := p.parser.Parse(ou.Ref, bag); err != nil {
		var unsupported *parser.UnsupportedKindError
		if errors.As(err, &unsupported) {
			p.log.Warnf("Skipping %s: %v", ou.Ref, err)
		} else {
			p.log.Errorf("Failed to parse %s: %v", ou.Ref, err)
		}

		metrics.IncParseError(p.name, ou.Ref.Type)
	}
}

// Flush publishes every pass, including passes without any record, so
// downstream sees exactly one message per completed update. Flush only runs
// on complete update sets, so the cache then holds every object of the
// session.
func (p *InventoryProcessor) Flush() (*publisher.Message, error) {
	p.markAllKnown()

	payload := p.persister.ToRawData(p.set)
	p.newPass()

	body, err := payload.Encode()
	if err != nil {
		return nil, err
	}

	p.log.Debugf("Flushing %d collections", len(payload.Collections))

	return publisher.NewMessage(
		constants.InventoryService,
		constants.InventoryMessage,
		strconv.FormatInt(p.emsID, 10),
		body,
	), nil
}

func (p *InventoryProcessor) markAllKnown() {
	known := make(map[string][]string, len(snapshotCollections))
	seen := make(map[string]map[string]struct{}, len(snapshotCollections))

	for _, name := range snapshotCollections {
		known[name] = []string{}
		seen[name] = map[string]struct{}{}
	}

	add := func(name, key string) {
		if _, ok := seen[name][key]; ok {
			return
		}

		seen[name][key] = struct{}{}
		known[name] = append(known[name], key)
	}

	for _, ref := range p.cache.Refs() {
		name, ok := parser.CollectionFor(ref.Type)
		if !ok {
			continue
		}

		if _, ok := known[name]; ok {
			add(name, ref.Value)
		}
	}

	// Objects whose first change set was malformed are observed without a
	// cache entry.
	for _, name := range snapshotCollections {
		for _, key := range p.set.Get(name).ObservedKeys() {
			add(name, key)
		}

		p.set.Get(name).SetAllKnown(known[name])
	}
}

// CachedObjects is the number of objects currently held in the cache.
func (p *InventoryProcessor) CachedObjects() int {
	return p.cache.Len()
}
