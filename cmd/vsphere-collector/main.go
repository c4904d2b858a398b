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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/backoff"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collector"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/config"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/constants"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/events"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/health"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/logger"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/metrics"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/publisher"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/sentry"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/status"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/vsphere"
)

// appVersion is set at build time with -ldflags "-X main.appVersion=...".
var appVersion = constants.DefaultAppVersion

type options struct {
	configPath string
	logLevel   string
	dryRun     bool
	overrides  config.Overrides
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "vsphere-collector",
		Short:         "Streams vSphere inventory and events to a message queue",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd.Context(), opts)
			if err != nil {
				logger.For(logger.ComponentCore).Errorf("vsphere-collector failed: %v", err)
			}

			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "/data/config.yaml", "path to the YAML configuration")
	flags.StringVar(&opts.logLevel, "log-level", "", "overrides LOGGING_LEVEL")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "log payloads instead of publishing them")
	flags.StringVar(&opts.overrides.Hostname, "hostname", "", "vCenter hostname of the first provider")
	flags.StringVar(&opts.overrides.Username, "user", "", "vCenter user of the first provider")
	flags.StringVar(&opts.overrides.Password, "password", "", "vCenter password of the first provider")
	flags.Int64Var(&opts.overrides.EmsID, "ems-id", 0, "resource id of the first provider")
	flags.StringSliceVar(&opts.overrides.Collectors, "collector", nil, "collectors of the first provider (inventory, events)")

	return cmd
}

func run(ctx context.Context, opts options) error {
	logger.Initialize()

	if opts.logLevel != "" {
		logger.SetLevel(opts.logLevel)
	}

	defer func() { _ = logger.Sync() }()

	sentry.InitSentry(appVersion)

	log := logger.For(logger.ComponentCore)
	log.Infof("Starting vsphere-collector %s", appVersion)

	cfg, err := config.Load(opts.configPath, opts.overrides, logger.For(logger.ComponentConfig))
	if err != nil {
		if backoff.IsPermanentError(err) {
			sentry.ReportIssue(err, sentry.IssueTypeFatal, log)
		}

		return err
	}

	if opts.dryRun {
		cfg.Queue.Backend = publisher.BackendLog
	}

	pub, err := publisher.New(cfg.Queue.PublisherConfig(), logger.For(logger.ComponentPublisher))
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}

	defer func() {
		if err := pub.Close(); err != nil {
			log.Warnf("Failed to close publisher: %v", err)
		}
	}()

	collectors, err := buildCollectors(cfg, pub)
	if err != nil {
		return err
	}

	sources := make([]health.Source, 0, len(collectors))
	controllers := make([]status.Controller, 0, len(collectors))

	for _, c := range collectors {
		sources = append(sources, c)
		controllers = append(controllers, c)
	}

	checker := health.NewChecker(sources)

	metricsServer := metrics.SetupMetricsEndpoint(fmt.Sprintf(":%d", cfg.Agent.MetricsPort), map[string]http.Handler{
		"/live":  checker.Handler(),
		"/ready": checker.Handler(),
	})
	defer shutdownServer(metricsServer.Shutdown, log, "metrics server")

	if cfg.Agent.StatusPort != 0 {
		statusServer := status.NewServer(fmt.Sprintf(":%d", cfg.Agent.StatusPort), controllers, zap.L().Named(logger.ComponentStatusAPI))
		statusServer.Start()

		defer shutdownServer(statusServer.Shutdown, log, "status API")
	}

	return runCollectors(ctx, collectors, checker, log)
}

func buildCollectors(cfg config.FullConfig, pub publisher.Publisher) ([]*collector.Collector, error) {
	var out []*collector.Collector

	for _, provider := range cfg.Providers {
		p := provider.Clone()

		gateway := vsphere.NewGateway(vsphere.Config{
			Host:     p.Hostname,
			Username: p.Username,
			Password: p.Password,
			Insecure: p.Insecure,
		}, logger.For(logger.ComponentGateway).With("provider", p.Name))

		for _, kind := range p.Collectors {
			name := p.CollectorName(kind)

			var proc collector.Processor

			switch kind {
			case config.CollectorEvents:
				proc = events.NewProcessor(p.EmsID, logger.For(logger.ComponentEventCatch).With("collector", name))
			default:
				proc = collector.NewInventoryProcessor(name, p.EmsID, logger.For(logger.ComponentParser).With("collector", name))
			}

			c, err := collector.New(collector.Options{
				Name:      name,
				EmsID:     p.EmsID,
				Gateway:   gateway,
				Processor: proc,
				Publisher: pub,
				MaxWait:   p.MaxWait(),
				Logger:    logger.For(logger.ComponentCollector),
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create collector %s: %w", name, err)
			}

			out = append(out, c)
		}
	}

	return out, nil
}

// runCollectors runs every collector until they all return. A collector that
// returns does not affect the others. On SIGINT or SIGTERM the collectors are
// asked to stop; the ones still blocked in a long-poll after the grace period
// are cancelled.
func runCollectors(ctx context.Context, collectors []*collector.Collector, checker *health.Checker, log *zap.SugaredLogger) error {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	var g errgroup.Group
	for _, c := range collectors {
		g.Go(func() error {
			if err := c.Run(runCtx); err != nil {
				return fmt.Errorf("collector %s: %w", c.Name(), err)
			}

			return nil
		})
	}

	done := make(chan error, 1)

	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-sigCtx.Done():
	}

	log.Info("Shutdown requested, stopping collectors...")
	checker.MarkShuttingDown()

	for _, c := range collectors {
		c.Stop()
	}

	select {
	case err := <-done:
		log.Info("Shutdown requested, stopping collectors...Complete")

		return ignoreCanceled(err)
	case <-time.After(constants.ShutdownGracePeriod):
		log.Warnf("Collectors did not stop within %s, cancelling", constants.ShutdownGracePeriod)
		cancelRun()

		return ignoreCanceled(<-done)
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func shutdownServer(shutdown func(context.Context) error, log *zap.SugaredLogger, what string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := shutdown(ctx); err != nil {
		sentry.ReportIssuef(sentry.IssueTypeError, log, "Failed to shutdown %s: %w", what, err)
	}
}
