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

package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/logger"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/sentry"
)

const (
	// Component labels for the error counter.
	ComponentCollector = "collector"
	ComponentParser    = "parser"
	ComponentPublisher = "publisher"
	ComponentGateway   = "vsphere_gateway"
)

var (
	namespace = "vsphere"
	subsystem = "collector"

	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors encountered by component",
		},
		[]string{"component", "instance"},
	)

	updateSets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "update_sets_total",
			Help:      "Update sets received from the property collector",
		},
		[]string{"collector", "truncated"},
	)

	objectUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "objects_total",
			Help:      "Object updates processed by kind and update type (enter/modify/leave)",
		},
		[]string{"collector", "kind", "update"},
	)

	parseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "parse_errors_total",
			Help:      "Objects skipped because they could not be parsed",
		},
		[]string{"collector", "kind"},
	)

	publishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "publish_total",
			Help:      "Payload publish attempts by result",
		},
		[]string{"collector", "result"},
	)

	sessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_total",
			Help:      "Sessions started and how they ended",
		},
		[]string{"collector", "result"},
	)

	pollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "poll_duration_seconds",
			Help:      "Duration of a single WaitForUpdates call",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 90},
		},
		[]string{"collector"},
	)

	cacheObjects = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_objects",
			Help:      "Objects currently held in the inventory cache",
		},
		[]string{"collector"},
	)

	loopState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "loop_state",
			Help:      "Current loop state (0=awaiting_update, 1=processing_batch, 2=stopping, -1=disconnected)",
		},
		[]string{"collector"},
	)
)

// SetupMetricsEndpoint starts an HTTP server exposing /metrics. Extra
// handlers, e.g. health checks, are mounted next to it.
func SetupMetricsEndpoint(addr string, extra map[string]http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	for path, handler := range extra {
		mux.Handle(path, handler)
	}

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sentry.ReportIssue(err, sentry.IssueTypeFatal, logger.For("metrics"))
		}
	}()

	return server
}

// IncErrorCount increments the error counter for a component.
func IncErrorCount(component, instance string) {
	errorCounter.WithLabelValues(component, instance).Inc()
}

// InitErrorCounter initializes the error counter for a component.
func InitErrorCounter(component, instance string) {
	errorCounter.WithLabelValues(component, instance).Add(0)
}

func IncUpdateSet(collector string, truncated bool) {
	updateSets.WithLabelValues(collector, strconv.FormatBool(truncated)).Inc()
}

func IncObjectUpdate(collector, kind, update string) {
	objectUpdates.WithLabelValues(collector, kind, update).Inc()
}

func IncParseError(collector, kind string) {
	parseErrors.WithLabelValues(collector, kind).Inc()
}

// IncPublish counts a publish attempt; result is "success" or "failure".
func IncPublish(collector string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}

	publishes.WithLabelValues(collector, result).Inc()
}

// IncSession counts a finished session; result is "stopped" or "failed".
func IncSession(collector, result string) {
	sessions.WithLabelValues(collector, result).Inc()
}

func ObservePoll(collector string, d time.Duration) {
	pollDuration.WithLabelValues(collector).Observe(d.Seconds())
}

func SetCacheObjects(collector string, n int) {
	cacheObjects.WithLabelValues(collector).Set(float64(n))
}

// SetLoopState records the loop state as a numeric gauge.
func SetLoopState(collector, state string) {
	loopState.WithLabelValues(collector).Set(stateValue(state))
}

func stateValue(state string) float64 {
	switch state {
	case "awaiting_update":
		return 0
	case "processing_batch":
		return 1
	case "stopping":
		return 2
	default:
		return -1
	}
}
