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

// Package health exposes liveness and readiness of the collectors through
// heptiolabs/healthcheck.
package health

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/heptiolabs/healthcheck"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collector"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/constants"
)

// GoroutineThreshold fails liveness when the process leaks goroutines.
const GoroutineThreshold = 10000

var (
	ErrShuttingDown = errors.New("shutting down")
	ErrPollStalled  = errors.New("long-poll stalled")
	ErrNoSession    = errors.New("no live session")
)

// Source is what the checks need from a collector.
type Source interface {
	Name() string
	MaxWait() time.Duration
	Status() collector.Status
}

// Checker registers one liveness and one readiness check per collector.
type Checker struct {
	handler  healthcheck.Handler
	started  time.Time
	now      func() time.Time
	shutdown atomic.Bool
}

func NewChecker(sources []Source) *Checker {
	return newChecker(sources, time.Now)
}

func newChecker(sources []Source, now func() time.Time) *Checker {
	c := &Checker{
		handler: healthcheck.NewHandler(),
		started: now(),
		now:     now,
	}

	c.handler.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(GoroutineThreshold))
	c.handler.AddReadinessCheck("shutdown", c.shutdownCheck())

	for _, src := range sources {
		c.handler.AddLivenessCheck("poll-"+src.Name(), c.pollCheck(src))
		c.handler.AddReadinessCheck("session-"+src.Name(), sessionCheck(src))
	}

	return c
}

// Handler serves /live and /ready.
func (c *Checker) Handler() healthcheck.Handler {
	return c.handler
}

// MarkShuttingDown makes readiness fail from now on.
func (c *Checker) MarkShuttingDown() {
	c.shutdown.Store(true)
}

func (c *Checker) shutdownCheck() healthcheck.Check {
	return func() error {
		if c.shutdown.Load() {
			return ErrShuttingDown
		}

		return nil
	}
}

// pollCheck fails when a collector has not returned from a poll within
// PollStallFactor times its max wait. Stopped collectors are not checked.
func (c *Checker) pollCheck(src Source) healthcheck.Check {
	limit := time.Duration(constants.PollStallFactor) * src.MaxWait()

	return func() error {
		status := src.Status()
		if status.Stopped {
			return nil
		}

		last := status.LastPoll
		if last.IsZero() {
			last = c.started
		}

		if idle := c.now().Sub(last); idle > limit {
			return fmt.Errorf("%w: %s idle for %s", ErrPollStalled, src.Name(), idle.Round(time.Second))
		}

		return nil
	}
}

func sessionCheck(src Source) healthcheck.Check {
	return func() error {
		if !src.Status().Connected {
			return fmt.Errorf("%w: %s", ErrNoSession, src.Name())
		}

		return nil
	}
}
