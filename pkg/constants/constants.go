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

package constants

import "time"

const (
	// DefaultAppVersion is reported by local builds without a VERSION ldflag.
	DefaultAppVersion = "0.0.0-dev"

	DefaultDevelopmentEnvironment = "development"
	DefaultProductionEnvironment  = "production"
)

// Long-poll loop
const (
	// DefaultMaxWait is how long a single WaitForUpdates call may block on the
	// server. It also bounds the shutdown latency of a collector.
	DefaultMaxWait = 60 * time.Second

	// MinMaxWait keeps misconfigured providers from hammering vCenter.
	MinMaxWait = 5 * time.Second

	// PollStallFactor times the max wait is how long a collector may go
	// without finishing a poll before it is reported as not live.
	PollStallFactor = 3

	// TeardownTimeout bounds best-effort cleanup calls after a session fault.
	TeardownTimeout = 10 * time.Second

	// ShutdownGracePeriod is how long main waits for collectors to notice the
	// stop flag before cancelling their context.
	ShutdownGracePeriod = DefaultMaxWait + 30*time.Second
)

// Publishing
const (
	InventoryService       = "inventory"
	InventoryMessage       = "save_inventory"
	EventsService          = "events"
	EventsMessage          = "save_events"
	DefaultClientRef       = "inventory_collector"
	DefaultTopicPrefix     = "manageiq"
	DefaultPublishTimeout  = 60 * time.Second
	PersisterSchemaName    = "ManageIQ::Providers::Vmware::InfraManager::Inventory::Persister"
	EventHistoryPageSize   = 20
	MinimumVSphereAPIRange = ">= 6.5"
)

// Servers
const (
	DefaultMetricsPort = 8080
	DefaultStatusPort  = 8081
)
