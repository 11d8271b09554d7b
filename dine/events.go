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

package dine

import (
	"time"

	"github.com/cockroachdb/dining/ring"
	log "github.com/sirupsen/logrus"
)

// LogEvents returns arbiter callbacks that write each transition to the
// logger at trace level. Nil is returned if trace logging is disabled,
// so that the arbiter pays nothing for it.
func LogEvents(logger *log.Logger) *ring.Events {
	if !logger.IsLevelEnabled(log.TraceLevel) {
		return nil
	}
	return &ring.Events{
		OnAcquired: func(agent int, pair ring.Pair, waited time.Duration) {
			logger.WithFields(log.Fields{
				"agent":  agent,
				"pair":   pair,
				"waited": waited,
			}).Trace("slots acquired")
		},
		OnBlocked: func(agent, slot int) {
			logger.WithFields(log.Fields{"agent": agent, "slot": slot}).Trace("agent blocked")
		},
		OnCanceled: func(agent, slot int) {
			logger.WithFields(log.Fields{"agent": agent, "slot": slot}).Trace("wait canceled")
		},
		OnReleased: func(agent int, pair ring.Pair, held time.Duration) {
			logger.WithFields(log.Fields{
				"agent": agent,
				"held":  held,
				"pair":  pair,
			}).Trace("slots released")
		},
		OnWoken: func(agent, slot int) {
			logger.WithFields(log.Fields{"agent": agent, "slot": slot}).Trace("agent woken")
		},
	}
}
