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

package status_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/collector"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/safejson"
	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/status"
)

type fakeController struct {
	name    string
	stopped atomic.Bool
}

func (f *fakeController) Name() string { return f.name }

func (f *fakeController) Status() collector.Status {
	return collector.Status{
		Name:      f.name,
		State:     collector.StateAwaitingUpdate,
		Connected: !f.stopped.Load(),
		Stopped:   f.stopped.Load(),
		Version:   "12",
	}
}

func (f *fakeController) Stop() { f.stopped.Store(true) }

var _ = Describe("Router", func() {
	var (
		inventory *fakeController
		events    *fakeController
		router    http.Handler
	)

	BeforeEach(func() {
		inventory = &fakeController{name: "lab/inventory"}
		events = &fakeController{name: "lab/events"}
		router = status.NewRouter([]status.Controller{inventory, events}, nil)
	})

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

		return rec
	}

	It("lists collectors sorted by name", func() {
		rec := do(http.MethodGet, "/api/v1/collectors")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var out []collector.Status
		Expect(safejson.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		Expect(out).To(HaveLen(2))
		Expect(out[0].Name).To(Equal("lab/events"))
		Expect(out[1].Name).To(Equal("lab/inventory"))
	})

	It("returns a single collector", func() {
		rec := do(http.MethodGet, "/api/v1/collectors/lab/inventory")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var out collector.Status
		Expect(safejson.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		Expect(out.Name).To(Equal("lab/inventory"))
		Expect(out.Version).To(Equal("12"))
		Expect(out.Connected).To(BeTrue())
	})

	It("answers 404 for unknown collectors", func() {
		Expect(do(http.MethodGet, "/api/v1/collectors/nope").Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodPost, "/api/v1/collectors/nope/stop").Code).To(Equal(http.StatusNotFound))
	})

	It("stops a collector", func() {
		rec := do(http.MethodPost, "/api/v1/collectors/lab/inventory/stop")
		Expect(rec.Code).To(Equal(http.StatusAccepted))
		Expect(inventory.stopped.Load()).To(BeTrue())
		Expect(events.stopped.Load()).To(BeFalse())

		var out collector.Status
		Expect(safejson.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		Expect(out.Stopped).To(BeTrue())
	})

	It("does not stop on GET", func() {
		Expect(do(http.MethodGet, "/api/v1/collectors/lab/inventory/stop").Code).To(Equal(http.StatusMethodNotAllowed))
		Expect(inventory.stopped.Load()).To(BeFalse())
	})

	It("compresses when the client asks for it", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/collectors", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Encoding")).To(Equal("gzip"))
	})
})
