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

import "time"

// Status is a point in time view of a collector for the status API and the
// health checks.
type Status struct {
	Name             string    `json:"name"`
	EmsID            int64     `json:"ems_id"`
	State            string    `json:"state"`
	Connected        bool      `json:"connected"`
	Version          string    `json:"version"`
	BaselineComplete bool      `json:"baseline_complete"`
	LastPoll         time.Time `json:"last_poll"`
	LastPublish      time.Time `json:"last_publish"`
	Sessions         int       `json:"sessions"`
	Failures         int       `json:"failures"`
	LastError        string    `json:"last_error,omitempty"`
	Published        int       `json:"published"`
	Stopped          bool      `json:"stopped"`
}

// Status returns a copy of the current status. It holds no references.
func (c *Collector) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.status
}

func (c *Collector) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.Connected = connected
	if connected {
		c.status.Sessions++
	}
}

func (c *Collector) setVersion(version string, baseline bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.Version = version
	c.status.BaselineComplete = baseline
}

func (c *Collector) markPoll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.LastPoll = time.Now()
}

func (c *Collector) markPublished() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.Published++
	c.status.LastPublish = time.Now()
}

func (c *Collector) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.Failures++
	c.status.LastError = err.Error()
	c.status.BaselineComplete = false
}

func (c *Collector) markStopped() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.Stopped = true
	c.status.Connected = false
	c.status.State = c.machine.Current()
	c.log.Info("Collector stopped")
}
