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

// Package events turns the latest page of an event history collector into
// save_events messages. It plugs into the collector loop as a Processor.
package events

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collector"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/constants"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/publisher"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/remote"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/safejson"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/traversal"
)

const latestPage = "latestPage"

// Payload is the body of one save_events message.
type Payload struct {
	EmsID  int64    `json:"ems_id"`
	Events []Record `json:"events"`
}

// Processor collects events newer than the highest key it has published.
// The mark survives session rebuilds so a reconnect does not replay the
// page that was already sent. A flushed key only becomes the mark once the
// loop comes back with more updates, i.e. after the publish went through;
// a rebuild in between sends those events again.
type Processor struct {
	emsID    int64
	pageSize int
	log      *zap.SugaredLogger

	collector inventory.ObjectRef
	lastKey   int64
	flushed   int64
	pending   map[int64]Record
}

var _ collector.Processor = (*Processor)(nil)

func NewProcessor(emsID int64, log *zap.SugaredLogger) *Processor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Processor{
		emsID:    emsID,
		pageSize: constants.EventHistoryPageSize,
		log:      log,
		pending:  map[int64]Record{},
	}
}

// FilterSpec creates a fresh event history collector on sess and watches
// its latest page.
func (p *Processor) FilterSpec(ctx context.Context, sess remote.Session) (*traversal.Spec, error) {
	ref, err := sess.CreateEventCollector(ctx, p.pageSize)
	if err != nil {
		return nil, fmt.Errorf("creating event history collector: %w", err)
	}

	p.collector = ref
	p.log.Debugf("Watching %s", ref)

	return traversal.ForObject(ref, latestPage), nil
}

func (p *Processor) Reset() {
	p.collector = inventory.ObjectRef{}
	p.flushed = 0
	p.pending = map[int64]Record{}
}

func (p *Processor) Apply(update inventory.FilterUpdate) {
	if p.flushed > p.lastKey {
		p.lastKey = p.flushed
	}

	for _, ou := range update.ObjectSet {
		if ou.Ref != p.collector || ou.Kind == inventory.ObjectLeave {
			continue
		}

		for _, change := range ou.ChangeSet {
			if change.Name != latestPage {
				continue
			}

			if change.Op == inventory.OpAssign || change.Op == inventory.OpAdd {
				p.collect(change.Val)
			}
		}
	}
}

func (p *Processor) collect(page inventory.Value) {
	items, ok := page.AsList()
	if !ok {
		items = []inventory.Value{page}
	}

	for _, item := range items {
		rec, key, ok := Normalize(item, p.emsID)
		if !ok {
			p.log.Debugf("Skipping event without key: %s", item.TypeName)

			continue
		}

		if key <= p.lastKey {
			continue
		}

		p.pending[key] = rec
	}
}

// Flush returns the new events ordered by key. Nothing new means no
// message.
func (p *Processor) Flush() (*publisher.Message, error) {
	if len(p.pending) == 0 {
		return nil, nil
	}

	keys := make([]int64, 0, len(p.pending))
	for k := range p.pending {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	payload := Payload{EmsID: p.emsID, Events: make([]Record, 0, len(keys))}
	for _, k := range keys {
		payload.Events = append(payload.Events, p.pending[k])
	}

	body, err := safejson.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding events: %w", err)
	}

	p.flushed = keys[len(keys)-1]
	p.pending = map[int64]Record{}

	p.log.Infof("Flushing %d events", len(payload.Events))

	return publisher.NewMessage(
		constants.EventsService,
		constants.EventsMessage,
		strconv.FormatInt(p.emsID, 10),
		body,
	), nil
}
