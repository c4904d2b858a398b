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

// Package collector runs the long-poll loop of one collector: connect, subscribe,
// wait for update sets, hand them to a Processor and publish what it flushes.
// Any failure discards the whole session and the loop starts over from an
// empty cursor after a backoff.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/backoff"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/constants"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/inventory"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/metrics"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/publisher"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/remote"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/sentry"
)

var (
	ErrNoGateway   = errors.New("collector: gateway is required")
	ErrNoProcessor = errors.New("collector: processor is required")
	ErrNoPublisher = errors.New("collector: publisher is required")
	ErrNoName      = errors.New("collector: name is required")
)

// Options configures a Collector.
type Options struct {
	Name      string
	EmsID     int64
	Gateway   remote.Gateway
	Processor Processor
	Publisher publisher.Publisher

	// MaxWait bounds one WaitForUpdates call. Zero means DefaultMaxWait.
	MaxWait time.Duration

	// Backoff is the reconnect policy. Nil means the package defaults.
	Backoff *backoff.Reconnect

	Logger *zap.SugaredLogger
}

// Collector owns one session at a time. Run and Stop may be called from
// different goroutines; everything else inside the loop is single threaded.
type Collector struct {
	name      string
	emsID     int64
	gateway   remote.Gateway
	processor Processor
	publisher publisher.Publisher
	maxWait   time.Duration
	reconnect *backoff.Reconnect
	log       *zap.SugaredLogger

	// Only the loop goroutine fires events.
	machine *fsm.FSM

	stopRequested atomic.Bool
	stopOnce      sync.Once
	stopCh        chan struct{}

	mu     sync.RWMutex
	status Status
}

func New(opts Options) (*Collector, error) {
	switch {
	case opts.Name == "":
		return nil, ErrNoName
	case opts.Gateway == nil:
		return nil, ErrNoGateway
	case opts.Processor == nil:
		return nil, ErrNoProcessor
	case opts.Publisher == nil:
		return nil, ErrNoPublisher
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	log = log.With("collector", opts.Name, "ems_id", opts.EmsID)

	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = constants.DefaultMaxWait
	}

	if maxWait < constants.MinMaxWait {
		log.Warnf("Max wait %s is below %s, using the minimum", maxWait, constants.MinMaxWait)
		maxWait = constants.MinMaxWait
	}

	reconnect := opts.Backoff
	if reconnect == nil {
		reconnect = backoff.NewReconnect(backoff.DefaultInitialInterval, backoff.DefaultMaxInterval)
	}

	metrics.InitErrorCounter(metrics.ComponentCollector, opts.Name)

	return &Collector{
		name:      opts.Name,
		emsID:     opts.EmsID,
		gateway:   opts.Gateway,
		processor: opts.Processor,
		publisher: opts.Publisher,
		maxWait:   maxWait,
		reconnect: reconnect,
		log:       log,
		machine:   newLoopMachine(opts.Name, log),
		stopCh:    make(chan struct{}),
		status: Status{
			Name:  opts.Name,
			EmsID: opts.EmsID,
			State: StateAwaitingUpdate,
		},
	}, nil
}

func (c *Collector) Name() string {
	return c.name
}

// MaxWait is the effective long-poll timeout.
func (c *Collector) MaxWait() time.Duration {
	return c.maxWait
}

// Stop asks the loop to exit. It returns immediately; the loop notices the
// request between two polls or while waiting to reconnect. Calling it more
// than once is fine.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		c.log.Info("Stop requested")
		c.stopRequested.Store(true)
		close(c.stopCh)
	})
}

func (c *Collector) stopping() bool {
	return c.stopRequested.Load()
}

// Run blocks until Stop is called or ctx is cancelled. Every session error is
// retried. It returns nil after a requested stop and ctx.Err otherwise.
func (c *Collector) Run(ctx context.Context) error {
	c.log.Info("Starting collector")

	defer c.markStopped()

	for {
		if c.stopping() {
			c.fire(EventStop)

			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.runSession(ctx)
		if err == nil {
			metrics.IncSession(c.name, "stopped")
			c.fire(EventStop)

			return nil
		}

		metrics.IncSession(c.name, "failed")
		metrics.IncErrorCount(metrics.ComponentCollector, c.name)
		c.recordFailure(err)

		if ctx.Err() != nil {
			if c.stopping() {
				return nil
			}

			return ctx.Err()
		}

		wait := c.reconnect.Next()
		c.log.Warnf("Session failed (%s, attempt %d), reconnecting in %s: %v",
			remote.Categorize(err), c.reconnect.Attempts(), wait, err)

		c.sleep(ctx, wait)
	}
}

// sleep waits for d unless a stop or cancellation comes first.
func (c *Collector) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-c.stopCh:
	case <-ctx.Done():
	}
}

// runSession runs one connect-subscribe-poll cycle. It returns nil only when
// a stop was requested.
func (c *Collector) runSession(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in session: %v", r)
			sentry.ReportIssueWithTags(err, sentry.IssueTypeError, c.log, c.tags())
		}
	}()

	c.machine.SetState(StateAwaitingUpdate)
	metrics.SetLoopState(c.name, StateAwaitingUpdate)
	c.processor.Reset()

	sess, err := c.gateway.Connect(ctx)
	if err != nil {
		return err
	}

	var sub *Subscription

	defer func() {
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.TeardownTimeout)
		defer cancel()

		sub.Destroy(tctx)

		if cerr := sess.Close(tctx); cerr != nil {
			c.log.Warnf("Failed to close session: %v", cerr)
		}

		c.setConnected(false)
	}()

	c.setConnected(true)
	c.log.Infow("Session established", "api_version", sess.APIVersion())

	spec, err := c.processor.FilterSpec(ctx, sess)
	if err != nil {
		return remote.NewRemoteFault("FilterSpec", err)
	}

	sub, err = CreateSubscription(ctx, sess, spec, c.log)
	if err != nil {
		return remote.NewRemoteFault("CreateFilter", err)
	}

	return c.poll(ctx, sess, sub)
}

func (c *Collector) poll(ctx context.Context, sess remote.Session, sub *Subscription) error {
	version := ""
	baseline := false

	c.setVersion(version, false)
	c.log.Info("Refreshing initial inventory...")

	for {
		if c.stopping() {
			return nil
		}

		start := time.Now()
		set, err := sess.WaitForUpdates(ctx, version, c.maxWait)
		metrics.ObservePoll(c.name, time.Since(start))
		c.markPoll()

		if err != nil {
			return remote.NewRemoteFault("WaitForUpdates", err)
		}

		if set == nil {
			continue
		}

		c.fire(EventBatchReceived)

		// The cursor moves first so the next poll never replays this set.
		version = set.Version
		metrics.IncUpdateSet(c.name, set.Truncated)

		if err := c.process(ctx, sub.Handle(), set); err != nil {
			return err
		}

		c.fire(EventBatchProcessed)

		if !set.Truncated && !baseline {
			baseline = true

			c.log.Info("Refreshing initial inventory...Complete")
			c.reconnect.Reset()
		}

		c.setVersion(version, baseline)
	}
}

// process applies the filter updates of our own filter and publishes once
// the set is complete.
func (c *Collector) process(ctx context.Context, handle inventory.FilterHandle, set *inventory.UpdateSet) error {
	c.log.Debugw("Received update set", "version", set.Version, "truncated", set.Truncated, "objects", set.ObjectCount())

	for _, fu := range set.FilterSet {
		if fu.Filter != handle {
			c.log.Debugf("Ignoring updates of foreign filter %s", fu.Filter)

			continue
		}

		c.processor.Apply(fu)
	}

	if set.Truncated {
		return nil
	}

	msg, err := c.processor.Flush()
	if err != nil {
		return fmt.Errorf("flushing pass: %w", err)
	}

	if msg == nil {
		return nil
	}

	err = c.publisher.Publish(ctx, msg)
	metrics.IncPublish(c.name, err)

	if err != nil {
		return fmt.Errorf("publishing %s/%s: %w", msg.Service, msg.Type, err)
	}

	c.markPublished()

	return nil
}

func (c *Collector) fire(event string) {
	if err := c.machine.Event(context.Background(), event); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			c.log.Debugf("Loop event %s from %s: %v", event, c.machine.Current(), err)
		}
	}

	c.mu.Lock()
	c.status.State = c.machine.Current()
	c.mu.Unlock()
}

func (c *Collector) tags() map[string]string {
	return map[string]string{
		"collector": c.name,
		"ems_id":    fmt.Sprint(c.emsID),
	}
}
