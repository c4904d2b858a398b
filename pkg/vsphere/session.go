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

package vsphere

import (
	"context"
	"sync"
	"time"

	"github.com/vmware/govmomi/event"
	"github.com/vmware/govmomi/session"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/types"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/remote"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/traversal"
)

const propertyFilterType = "PropertyFilter"

type vsphereSession struct {
	client  *vim25.Client
	manager *session.Manager
	log     *zap.SugaredLogger

	closeOnce sync.Once
	closeErr  error
}

var _ remote.Session = (*vsphereSession)(nil)

func newSession(client *vim25.Client, manager *session.Manager, log *zap.SugaredLogger) *vsphereSession {
	return &vsphereSession{client: client, manager: manager, log: log}
}

func (s *vsphereSession) RootFolder() inventory.ObjectRef {
	return convertRef(s.client.ServiceContent.RootFolder)
}

func (s *vsphereSession) APIVersion() string {
	return s.client.ServiceContent.About.ApiVersion
}

func (s *vsphereSession) CreateFilter(ctx context.Context, spec *traversal.Spec) (inventory.FilterHandle, error) {
	res, err := methods.CreateFilter(ctx, s.client, &types.CreateFilter{
		This:           s.client.ServiceContent.PropertyCollector,
		Spec:           filterSpec(spec),
		PartialUpdates: true,
	})
	if err != nil {
		return "", remote.NewRemoteFault("CreateFilter", err)
	}

	return inventory.FilterHandle(res.Returnval.Value), nil
}

func (s *vsphereSession) WaitForUpdates(ctx context.Context, version string, maxWait time.Duration) (*inventory.UpdateSet, error) {
	secs := int32(maxWait / time.Second)

	res, err := methods.WaitForUpdatesEx(ctx, s.client, &types.WaitForUpdatesEx{
		This:    s.client.ServiceContent.PropertyCollector,
		Version: version,
		Options: &types.WaitOptions{MaxWaitSeconds: &secs},
	})
	if err != nil {
		return nil, remote.NewRemoteFault("WaitForUpdatesEx", err)
	}

	return convertUpdateSet(res.Returnval), nil
}

func (s *vsphereSession) DestroyFilter(ctx context.Context, filter inventory.FilterHandle) error {
	_, err := methods.DestroyPropertyFilter(ctx, s.client, &types.DestroyPropertyFilter{
		This: types.ManagedObjectReference{Type: propertyFilterType, Value: string(filter)},
	})

	return remote.NewRemoteFault("DestroyPropertyFilter", err)
}

func (s *vsphereSession) CreateEventCollector(ctx context.Context, pageSize int) (inventory.ObjectRef, error) {
	collector, err := event.NewManager(s.client).CreateCollectorForEvents(ctx, types.EventFilterSpec{})
	if err != nil {
		return inventory.ObjectRef{}, remote.NewRemoteFault("CreateCollectorForEvents", err)
	}

	if err := collector.SetPageSize(ctx, int32(pageSize)); err != nil {
		return inventory.ObjectRef{}, remote.NewRemoteFault("SetCollectorPageSize", err)
	}

	return convertRef(collector.Reference()), nil
}

func (s *vsphereSession) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		if err := s.manager.Logout(ctx); err != nil {
			s.log.Debugf("Logout failed: %v", err)
			s.closeErr = err
		}
	})

	return s.closeErr
}
