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

// Package remote defines the boundary between the collector loop and a
// virtualization management endpoint: a Gateway opens authenticated sessions
// and a Session speaks the property-update protocol.
//
// Implementations live elsewhere (see pkg/vsphere). The loop only depends on
// these interfaces so it can be driven by fakes in tests.
package remote

import (
	"context"
	"time"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/traversal"
)

// Gateway opens sessions against one endpoint.
type Gateway interface {
	// Connect logs in and returns a live session. Failures are *AuthError or
	// *NetworkError.
	Connect(ctx context.Context) (Session, error)
}

// Session is one authenticated connection. It is used by a single loop and
// need not be safe for concurrent use.
type Session interface {
	// RootFolder is the entry point of the inventory tree.
	RootFolder() inventory.ObjectRef

	// APIVersion is the version string reported by the endpoint, e.g. "8.0.2.0".
	APIVersion() string

	// CreateFilter registers spec on the server and returns its handle.
	CreateFilter(ctx context.Context, spec *traversal.Spec) (inventory.FilterHandle, error)

	// WaitForUpdates blocks for at most maxWait waiting for changes newer
	// than version. An empty version requests a full baseline. A nil set with
	// a nil error means the wait timed out without changes.
	WaitForUpdates(ctx context.Context, version string, maxWait time.Duration) (*inventory.UpdateSet, error)

	// DestroyFilter removes a filter created by CreateFilter.
	DestroyFilter(ctx context.Context, filter inventory.FilterHandle) error

	// CreateEventCollector returns an event history collector whose
	// latestPage property holds the newest pageSize events.
	CreateEventCollector(ctx context.Context, pageSize int) (inventory.ObjectRef, error)

	// Close logs out. It is safe to call more than once.
	Close(ctx context.Context) error
}
