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
	"errors"
	"time"

	"github.com/cockroachdb/dining/ring"
	"github.com/spf13/pflag"
)

// Defaults match the classic five philosophers eating ten meals each.
const (
	defaultAgents = 5
	defaultCycles = 10
	defaultPause  = time.Second
)

// Config controls how agents are driven through the arbiter.
type Config struct {
	Agents         int           // Agents and slots in the ring.
	Cycles         int           // Per agent; zero runs until canceled.
	Think          time.Duration // Upper bound of the random idle time.
	Eat            time.Duration // Upper bound of the random holding time.
	Seed           int64         // Zero picks a time-based seed.
	Policy         string        // See ring.ParseWakePolicy.
	AcquireTimeout time.Duration // Zero blocks until acquired.
	SlowAcquire    time.Duration // Warn about acquires slower than this.

	// Set by Preflight.
	wakePolicy ring.WakePolicy
}

// Bind adds flags to the set.
func (c *Config) Bind(f *pflag.FlagSet) {
	f.IntVar(&c.Agents, "agents", defaultAgents,
		"the number of agents, which is also the number of slots in the ring")
	f.IntVar(&c.Cycles, "cycles", defaultCycles,
		"acquire/release cycles per agent; 0 runs until interrupted")
	f.DurationVar(&c.Think, "think", defaultPause,
		"the maximum random time an agent spends idle between cycles")
	f.DurationVar(&c.Eat, "eat", defaultPause,
		"the maximum random time an agent holds its pair")
	f.Int64Var(&c.Seed, "seed", 0,
		"random seed for think and eat durations; 0 uses the current time")
	f.StringVar(&c.Policy, "policy", ring.WakeAsymmetric.String(),
		"the wake policy: asymmetric or broadcast")
	f.DurationVar(&c.AcquireTimeout, "acquireTimeout", 0,
		"give up a blocked acquire after this long and retry with backoff; 0 blocks indefinitely")
	f.DurationVar(&c.SlowAcquire, "slowAcquire", 0,
		"log a warning when an acquire takes longer than this; 0 disables")
}

// Preflight ensures that unset configuration options have sane defaults
// and returns an error if the Config is missing any fields for which a
// default cannot be provided.
func (c *Config) Preflight() error {
	if c.Agents == 0 {
		c.Agents = defaultAgents
	}
	if c.Agents < ring.MinSize {
		return errors.New("at least three agents are required")
	}
	if c.Cycles < 0 {
		return errors.New("cycles must not be negative")
	}
	if c.Think < 0 || c.Eat < 0 {
		return errors.New("think and eat durations must not be negative")
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	if c.Policy == "" {
		c.Policy = ring.WakeAsymmetric.String()
	}
	policy, err := ring.ParseWakePolicy(c.Policy)
	if err != nil {
		return err
	}
	c.wakePolicy = policy
	if c.AcquireTimeout < 0 {
		return errors.New("acquireTimeout must not be negative")
	}
	if c.AcquireTimeout > 0 && c.AcquireTimeout < time.Microsecond {
		return errors.New("acquireTimeout must be at least one microsecond")
	}
	if c.SlowAcquire < 0 {
		return errors.New("slowAcquire must not be negative")
	}
	return nil
}

// NewArbiter constructs an Arbiter matching the configuration. The
// Config must have been preflighted.
func (c *Config) NewArbiter(events *ring.Events) (*ring.Arbiter, error) {
	return ring.NewArbiter(c.Agents, ring.WithWakePolicy(c.wakePolicy), ring.WithEvents(events))
}
