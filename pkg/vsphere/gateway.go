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

// Package vsphere implements the remote session interfaces on top of govmomi.
package vsphere

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/vmware/govmomi/session"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/soap"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/constants"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/remote"
)

// Config addresses one vCenter or ESXi endpoint.
type Config struct {
	// Host is a hostname, host:port or a full SDK URL.
	Host     string
	Username string
	Password string
	Insecure bool
}

var errEmptyHost = errors.New("empty host")

// Gateway opens govmomi sessions.
type Gateway struct {
	cfg Config
	log *zap.SugaredLogger
}

var _ remote.Gateway = (*Gateway)(nil)

func NewGateway(cfg Config, log *zap.SugaredLogger) *Gateway {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Gateway{cfg: cfg, log: log}
}

// Connect logs in to the endpoint.
func (g *Gateway) Connect(ctx context.Context) (remote.Session, error) {
	u, err := soap.ParseURL(g.cfg.Host)
	if err != nil {
		return nil, &remote.NetworkError{Host: g.cfg.Host, Err: err}
	}

	if u == nil {
		return nil, &remote.NetworkError{Host: g.cfg.Host, Err: errEmptyHost}
	}

	u.User = nil

	client, err := vim25.NewClient(ctx, soap.NewClient(u, g.cfg.Insecure))
	if err != nil {
		return nil, &remote.NetworkError{Host: u.Host, Err: err}
	}

	manager := session.NewManager(client)

	if err := manager.Login(ctx, url.UserPassword(g.cfg.Username, g.cfg.Password)); err != nil {
		if soap.IsSoapFault(err) {
			return nil, &remote.AuthError{Host: u.Host, Err: err}
		}

		return nil, &remote.NetworkError{Host: u.Host, Err: err}
	}

	about := client.ServiceContent.About
	g.log.Infow("Connected", "host", u.Host, "product", about.FullName, "apiVersion", about.ApiVersion)

	if ok, err := apiVersionSupported(about.ApiVersion); err != nil {
		g.log.Warnf("Cannot parse API version %q: %v", about.ApiVersion, err)
	} else if !ok {
		g.log.Warnf("API version %s does not satisfy %s, inventory may be incomplete", about.ApiVersion, constants.MinimumVSphereAPIRange)
	}

	return newSession(client, manager, g.log), nil
}

// apiVersionSupported checks version against the minimum API range. vSphere
// reports four part versions such as "8.0.2.0"; only the first three count.
func apiVersionSupported(version string) (bool, error) {
	parts := strings.Split(version, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}

	v, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		return false, err
	}

	c, err := semver.NewConstraint(constants.MinimumVSphereAPIRange)
	if err != nil {
		return false, err
	}

	return c.Check(v), nil
}
