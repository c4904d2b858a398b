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

// Package persister turns the collections of one processing pass into the
// payload handed to the publisher.
package persister

import (
	"fmt"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collections"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/safejson"
)

// CollectionPayload is the serialized form of one collection.
type CollectionPayload struct {
	Name            string               `json:"name"`
	ManagerUUIDs    []string             `json:"manager_uuids"`
	AllManagerUUIDs []string             `json:"all_manager_uuids"`
	Data            []collections.Record `json:"data"`
}

// Payload is the full inventory delta for one managed resource.
type Payload struct {
	EmsID       int64               `json:"ems_id"`
	Class       string              `json:"class"`
	Collections []CollectionPayload `json:"collections"`
}

// Persister stamps payloads with the owning resource and schema.
type Persister struct {
	emsID      int64
	schemaName string
}

func New(emsID int64, schemaName string) *Persister {
	return &Persister{emsID: emsID, schemaName: schemaName}
}

// ToRawData builds the payload. Collections without records, observed keys
// or an all-known set are left out.
func (p *Persister) ToRawData(set *collections.Set) *Payload {
	payload := &Payload{
		EmsID:       p.emsID,
		Class:       p.schemaName,
		Collections: []CollectionPayload{},
	}

	for _, c := range set.All() {
		if c.IsEmpty() {
			continue
		}

		data := c.Records()
		if data == nil {
			data = []collections.Record{}
		}

		observed := c.ObservedKeys()
		if observed == nil {
			observed = []string{}
		}

		payload.Collections = append(payload.Collections, CollectionPayload{
			Name:            c.Name(),
			ManagerUUIDs:    observed,
			AllManagerUUIDs: c.AllKnownKeys(),
			Data:            data,
		})
	}

	return payload
}

// IsEmpty reports whether the payload carries no collections at all.
func (p *Payload) IsEmpty() bool {
	return len(p.Collections) == 0
}

// Collection returns the entry called name.
func (p *Payload) Collection(name string) (CollectionPayload, bool) {
	for _, c := range p.Collections {
		if c.Name == name {
			return c, true
		}
	}

	return CollectionPayload{}, false
}

// Encode serializes the payload as JSON.
func (p *Payload) Encode() ([]byte, error) {
	b, err := safejson.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding inventory payload for ems %d: %w", p.EmsID, err)
	}

	return b, nil
}
