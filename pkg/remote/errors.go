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

package remote

import (
	"errors"
	"fmt"

	"github.com/united-manufacturing-hub/united-manufacturing-hub/vsphere-collector/pkg/backoff"
)

// AuthError is returned when the endpoint rejects the credentials.
type AuthError struct {
	Host string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication against %s failed: %v", e.Host, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError is returned when the endpoint cannot be reached.
type NetworkError struct {
	Host string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("cannot reach %s: %v", e.Host, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteFault is a protocol level fault raised by a property collector call.
type RemoteFault struct {
	Op  string
	Err error
}

func (e *RemoteFault) Error() string {
	return fmt.Sprintf("%s: remote fault: %v", e.Op, e.Err)
}

func (e *RemoteFault) Unwrap() error { return e.Err }

// NewRemoteFault wraps err unless it already is a RemoteFault or nil.
func NewRemoteFault(op string, err error) error {
	if err == nil {
		return nil
	}

	var fault *RemoteFault
	if errors.As(err, &fault) {
		return err
	}

	return &RemoteFault{Op: op, Err: err}
}

// IsSessionFault reports whether err invalidates the session. All three
// remote error types do; the loop rebuilds the session for them.
func IsSessionFault(err error) bool {
	var (
		auth    *AuthError
		network *NetworkError
		fault   *RemoteFault
	)

	return errors.As(err, &auth) || errors.As(err, &network) || errors.As(err, &fault)
}

// Categorize maps err onto the retry categories of the collector loop.
// Session faults are transient: they are retried forever by rebuilding the
// session. Everything else keeps the category it already carries.
func Categorize(err error) backoff.ErrorCategory {
	if IsSessionFault(err) {
		return backoff.CategoryTransient
	}

	return backoff.CategoryOf(err)
}
