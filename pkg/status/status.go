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

// Package status serves a small REST API to inspect and stop collectors.
package status

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-contrib/gzip"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collector"
)

// Controller is a running collector as seen by the API.
type Controller interface {
	Name() string
	Status() collector.Status
	Stop()
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter builds the gin engine. Controllers are addressed by name.
func NewRouter(controllers []Controller, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}

	byName := make(map[string]Controller, len(controllers))
	names := make([]string, 0, len(controllers))

	for _, c := range controllers {
		byName[c.Name()] = c
		names = append(names, c.Name())
	}

	sort.Strings(names)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(ginzap.Ginzap(log, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(log, true))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/collectors", func(c *gin.Context) {
			out := make([]collector.Status, 0, len(names))
			for _, name := range names {
				out = append(out, byName[name].Status())
			}

			c.JSON(http.StatusOK, out)
		})

		// Collector names contain a slash, hence the wildcard.
		v1.GET("/collectors/*name", func(c *gin.Context) {
			name, stop := splitName(c.Param("name"))
			if stop {
				c.JSON(http.StatusMethodNotAllowed, errorResponse{Error: "use POST to stop a collector"})

				return
			}

			ctrl, ok := byName[name]
			if !ok {
				c.JSON(http.StatusNotFound, errorResponse{Error: "unknown collector " + name})

				return
			}

			c.JSON(http.StatusOK, ctrl.Status())
		})

		v1.POST("/collectors/*name", func(c *gin.Context) {
			name, stop := splitName(c.Param("name"))
			if !stop {
				c.JSON(http.StatusNotFound, errorResponse{Error: "unknown action"})

				return
			}

			ctrl, ok := byName[name]
			if !ok {
				c.JSON(http.StatusNotFound, errorResponse{Error: "unknown collector " + name})

				return
			}

			log.Sugar().Infof("Stop of %s requested through the API", name)
			ctrl.Stop()

			c.JSON(http.StatusAccepted, ctrl.Status())
		})
	}

	return router
}

// splitName strips the leading slash of a wildcard parameter and a trailing
// "/stop" action.
func splitName(param string) (string, bool) {
	name := strings.TrimPrefix(param, "/")

	if trimmed, ok := strings.CutSuffix(name, "/stop"); ok && trimmed != "" {
		return trimmed, true
	}

	return name, false
}

// Server runs the router on addr.
type Server struct {
	srv *http.Server
	log *zap.SugaredLogger
}

func NewServer(addr string, controllers []Controller, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(controllers, log),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log.Sugar(),
	}
}

// Start serves in the background. Listen errors are logged.
func (s *Server) Start() {
	go func() {
		s.log.Infof("Status API listening on %s", s.srv.Addr)

		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("Status API failed: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
