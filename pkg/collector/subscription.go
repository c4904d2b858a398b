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
	"fmt"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/remote"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/traversal"
)

// Subscription is the server side filter of one session.
type Subscription struct {
	session   remote.Session
	handle    inventory.FilterHandle
	log       *zap.SugaredLogger
	destroyed bool
}

// CreateSubscription registers spec on sess.
func CreateSubscription(ctx context.Context, sess remote.Session, spec *traversal.Spec, log *zap.SugaredLogger) (*Subscription, error) {
	handle, err := sess.CreateFilter(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("creating filter: %w", err)
	}

	log.Debugw("Created property filter", "filter", handle, "fingerprint", spec.Fingerprint())

	return &Subscription{session: sess, handle: handle, log: log}, nil
}

func (s *Subscription) Handle() inventory.FilterHandle {
	return s.handle
}

// Destroy removes the filter. Failures are logged and swallowed since the
// session is usually being torn down anyway. Only the first call does work.
func (s *Subscription) Destroy(ctx context.Context) {
	if s == nil || s.destroyed {
		return
	}

	s.destroyed = true

	if err := s.session.DestroyFilter(ctx, s.handle); err != nil {
		s.log.Warnf("Failed to destroy property filter %s: %v", s.handle, err)
	}
}
