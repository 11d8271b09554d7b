// Copyright 2026 The Cockroach Authors
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
//
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"errors"
	"time"
)

// ErrInvalidArg is raised if an invalid argument is passed to a backoff strategy.
var ErrInvalidArg = errors.New("invalid argument")

// Bounds accepted by NewExpBackoff. Acquire retries operate on a much
// shorter scale than network calls, so the floor is a microsecond.
const (
	minMaxDelay = time.Microsecond
	maxMaxDelay = time.Hour
)

type expBackoff struct {
	baseDelay time.Duration
	limit     int // 0 = forever
	maxDelay  time.Duration
	tryCount  int
}

var _ Backoff = &expBackoff{}

// NewExpBackoff builds an exponential backoff strategy that doubles
// the delay on every attempt, starting from baseDelay and capped at
// maxDelay. A valid maxDelay is within a microsecond and one hour.
// Use limit=0 for unlimited retries.
func NewExpBackoff(baseDelay time.Duration, maxDelay time.Duration, limit int) (Backoff, error) {
	switch {
	case maxDelay > maxMaxDelay, maxDelay < minMaxDelay:
		return nil, ErrInvalidArg
	case baseDelay <= 0, baseDelay > maxDelay:
		return nil, ErrInvalidArg
	case limit < 0:
		return nil, ErrInvalidArg
	}
	return &expBackoff{
		baseDelay: baseDelay,
		limit:     limit,
		maxDelay:  maxDelay,
	}, nil
}

// Next implements Backoff.
func (e *expBackoff) Next() (time.Duration, bool) {
	if e.limit != 0 && e.tryCount >= e.limit {
		return 0, true
	}
	e.tryCount++
	delay := e.baseDelay
	for i := 1; i < e.tryCount && delay < e.maxDelay; i++ {
		delay <<= 1
	}
	if delay > e.maxDelay {
		delay = e.maxDelay
	}
	return delay, false
}
