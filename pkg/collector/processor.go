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

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/publisher"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/remote"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/traversal"
)

// Processor turns the update sets of one subscription into messages. The
// loop owns it exclusively: no method is called concurrently.
type Processor interface {
	// FilterSpec returns what to subscribe to on a fresh session.
	FilterSpec(ctx context.Context, sess remote.Session) (*traversal.Spec, error)

	// Reset drops all session state. Called before every new subscription.
	Reset()

	// Apply folds the object updates of one filter into the pending pass.
	Apply(update inventory.FilterUpdate)

	// Flush ends the pending pass and returns its message. A nil message
	// means the pass has nothing to publish.
	Flush() (*publisher.Message, error)
}
