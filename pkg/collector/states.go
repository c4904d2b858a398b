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

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/metrics"
)

// Loop states.
const (
	// StateAwaitingUpdate is the state while blocked in WaitForUpdates.
	StateAwaitingUpdate = "awaiting_update"
	// StateProcessingBatch is the state while applying one update set.
	StateProcessingBatch = "processing_batch"
	// StateStopping is entered once the stop flag was observed.
	StateStopping = "stopping"
)

// Loop events.
const (
	EventBatchReceived  = "batch_received"
	EventBatchProcessed = "batch_processed"
	EventStop           = "stop"
)

func newLoopMachine(name string, log *zap.SugaredLogger) *fsm.FSM {
	return fsm.NewFSM(
		StateAwaitingUpdate,
		fsm.Events{
			{Name: EventBatchReceived, Src: []string{StateAwaitingUpdate}, Dst: StateProcessingBatch},
			{Name: EventBatchProcessed, Src: []string{StateProcessingBatch}, Dst: StateAwaitingUpdate},
			{Name: EventStop, Src: []string{StateAwaitingUpdate, StateProcessingBatch}, Dst: StateStopping},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				metrics.SetLoopState(name, e.Dst)
			},
			"enter_" + StateStopping: func(_ context.Context, e *fsm.Event) {
				log.Infof("Stopping from %s", e.Src)
			},
		},
	)
}
