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

package publisher

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher only logs what would have been sent. Used for dry runs.
type LogPublisher struct {
	log *zap.SugaredLogger
}

func NewLog(log *zap.SugaredLogger) *LogPublisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &LogPublisher{log: log}
}

func (l *LogPublisher) Publish(_ context.Context, msg *Message) error {
	l.log.Infow("Dry run publish", "service", msg.Service, "type", msg.Type, "id", msg.ID, "key", msg.Key, "bytes", len(msg.Payload))
	l.log.Debugf("Payload: %s", msg.Payload)

	return nil
}

func (l *LogPublisher) Close() error { return nil }
