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

	log "github.com/sirupsen/logrus"
)

// AgentStats summarizes the cycles of a single agent.
type AgentStats struct {
	Agent    int
	Cycles   int           // Completed acquire/release cycles.
	Elapsed  time.Duration // From the start of the run to the last release.
	Waited   time.Duration // Total time spent acquiring.
	MaxWait  time.Duration // Longest single acquire.
	Timeouts int           // Acquire attempts that timed out and were retried.
}

func (s *AgentStats) recordAcquire(waited time.Duration) {
	s.Waited += waited
	if waited > s.MaxWait {
		s.MaxWait = waited
	}
}

// Report is returned from [Run].
type Report struct {
	Agents  []AgentStats // Indexed by agent.
	Elapsed time.Duration
	Policy  string
	Seed    int64
}

// Cycles returns the total number of completed cycles.
func (r *Report) Cycles() int {
	total := 0
	for _, a := range r.Agents {
		total += a.Cycles
	}
	return total
}

// Skew returns the ratio of the slowest agent's completion time to the
// fastest agent's. A run in which every agent finished at the same
// time has a skew of one. Zero is returned if no agent recorded a
// completion time.
func (r *Report) Skew() float64 {
	var fastest, slowest time.Duration
	for _, a := range r.Agents {
		if a.Elapsed <= 0 {
			continue
		}
		if fastest == 0 || a.Elapsed < fastest {
			fastest = a.Elapsed
		}
		if a.Elapsed > slowest {
			slowest = a.Elapsed
		}
	}
	if fastest == 0 {
		return 0
	}
	return float64(slowest) / float64(fastest)
}

// Log writes a summary of the report.
func (r *Report) Log() {
	for _, a := range r.Agents {
		var meanWait time.Duration
		if a.Cycles > 0 {
			meanWait = a.Waited / time.Duration(a.Cycles)
		}
		log.WithFields(log.Fields{
			"agent":    a.Agent,
			"cycles":   a.Cycles,
			"elapsed":  a.Elapsed,
			"maxWait":  a.MaxWait,
			"meanWait": meanWait,
			"timeouts": a.Timeouts,
		}).Info("agent finished")
	}
	log.WithFields(log.Fields{
		"cycles":  r.Cycles(),
		"elapsed": r.Elapsed,
		"policy":  r.Policy,
		"seed":    r.Seed,
		"skew":    r.Skew(),
	}).Info("run complete")
}
