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

package backoff

import (
	"time"

	cbackoff "github.com/cenkalti/backoff"
)

const (
	DefaultInitialInterval = 1 * time.Second
	DefaultMaxInterval     = 2 * time.Minute
)

// Reconnect is the retry policy between two collector sessions. It never
// gives up: a vCenter that is down for a day is still picked up again once it
// returns.
type Reconnect struct {
	exp      *cbackoff.ExponentialBackOff
	attempts int
}

// NewReconnect returns a policy growing from initial to max with jitter.
func NewReconnect(initial, maxInterval time.Duration) *Reconnect {
	exp := cbackoff.NewExponentialBackOff()
	exp.InitialInterval = initial
	exp.MaxInterval = maxInterval
	exp.MaxElapsedTime = 0 // retry forever
	exp.Reset()

	return &Reconnect{exp: exp}
}

// Next returns how long to wait before the next attempt.
func (r *Reconnect) Next() time.Duration {
	r.attempts++

	d := r.exp.NextBackOff()
	if d == cbackoff.Stop {
		return r.exp.MaxInterval
	}

	return d
}

// Attempts returns the number of consecutive failed attempts.
func (r *Reconnect) Attempts() int {
	return r.attempts
}

// Reset is called once a session delivered its baseline.
func (r *Reconnect) Reset() {
	r.attempts = 0
	r.exp.Reset()
}
