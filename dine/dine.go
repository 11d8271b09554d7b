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

// Package dine drives a set of agents through a [ring.Arbiter]. Each
// agent runs in its own goroutine and alternates between idling and
// holding its pair of slots:
//
//	idle -> acquiring -> holding -> releasing -> idle
//
// The durations of the idle and holding phases are random, bounded by
// the [Config].
package dine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/cockroachdb/dining/retry"
	"github.com/cockroachdb/dining/ring"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// slowAcquireEvery bounds how often slow acquires are reported.
const slowAcquireEvery = time.Second

// Run drives every agent of the arbiter through the configured number
// of cycles. The Config must have been preflighted and must describe a
// ring of the same size as the arbiter.
//
// If the configuration requests an unbounded number of cycles, Run
// returns once the context is canceled and the report describes the
// cycles completed up to that point.
func Run(ctx context.Context, cfg *Config, arb *ring.Arbiter) (*Report, error) {
	if size := arb.Ring().Size(); size != cfg.Agents {
		return nil, fmt.Errorf("configured for %d agents, but the ring has %d slots", cfg.Agents, size)
	}
	report := &Report{
		Agents: make([]AgentStats, cfg.Agents),
		Policy: arb.Policy().String(),
		Seed:   cfg.Seed,
	}
	slow := rate.NewLimiter(rate.Every(slowAcquireEvery), 1)
	start := time.Now()

	eg, egCtx := errgroup.WithContext(ctx)
	for id := 0; id < cfg.Agents; id++ {
		a := &agent{
			arb:   arb,
			cfg:   cfg,
			id:    id,
			log:   log.WithField("agent", id),
			rnd:   rand.New(rand.NewSource(cfg.Seed + int64(id))),
			slow:  slow,
			start: start,
			stats: &report.Agents[id],
		}
		a.stats.Agent = id
		eg.Go(func() error { return a.run(egCtx) })
	}
	err := eg.Wait()
	report.Elapsed = time.Since(start)
	return report, err
}

// agent is the per-goroutine state of a single agent.
type agent struct {
	arb   *ring.Arbiter
	cfg   *Config
	id    int
	log   *log.Entry
	rnd   *rand.Rand
	slow  *rate.Limiter // Shared by all agents.
	start time.Time
	stats *AgentStats // Only written by this agent.
}

func (a *agent) run(ctx context.Context) error {
	for cycle := 0; a.cfg.Cycles == 0 || cycle < a.cfg.Cycles; cycle++ {
		a.log.Trace("thinking")
		if err := a.pause(ctx, a.cfg.Think); err != nil {
			return a.stopped(ctx, err)
		}

		pair, err := a.acquire(ctx)
		if err != nil {
			if errors.Is(err, ring.ErrContract) {
				return fmt.Errorf("agent %d: %w", a.id, err)
			}
			return a.stopped(ctx, err)
		}

		a.log.WithField("pair", pair).Trace("eating")
		// The pair is released even if the context ends mid-meal.
		eatErr := a.pause(ctx, a.cfg.Eat)
		if _, err := a.arb.Release(a.id); err != nil {
			return fmt.Errorf("agent %d: %w", a.id, err)
		}
		a.stats.Cycles++
		a.stats.Elapsed = time.Since(a.start)
		if eatErr != nil {
			return a.stopped(ctx, eatErr)
		}
	}
	a.log.WithField("cycles", a.stats.Cycles).Debug("done")
	return nil
}

// stopped decides whether an interrupted agent failed. Agents without a
// cycle limit run until the context ends, so that is a clean exit.
func (a *agent) stopped(ctx context.Context, err error) error {
	if a.cfg.Cycles == 0 && ctx.Err() != nil {
		a.log.WithField("cycles", a.stats.Cycles).Debug("stopped")
		return nil
	}
	return fmt.Errorf("agent %d after %d cycles: %w", a.id, a.stats.Cycles, err)
}

// acquire obtains the agent's pair, retrying timed-out attempts with an
// exponential backoff if an acquire timeout is configured.
func (a *agent) acquire(ctx context.Context) (ring.Pair, error) {
	start := time.Now()
	defer func() {
		waited := time.Since(start)
		a.stats.recordAcquire(waited)
		if a.cfg.SlowAcquire > 0 && waited > a.cfg.SlowAcquire && a.slow.Allow() {
			a.log.WithFields(log.Fields{
				"threshold": a.cfg.SlowAcquire,
				"waited":    waited,
			}).Warn("slow acquire")
		}
	}()

	if a.cfg.AcquireTimeout == 0 {
		return a.arb.Acquire(ctx, a.id)
	}

	base := a.cfg.AcquireTimeout / 16
	if base < time.Microsecond {
		base = time.Microsecond
	}
	backoff, err := retry.NewExpBackoff(base, a.cfg.AcquireTimeout, 0)
	if err != nil {
		return ring.Pair{}, err
	}

	var pair ring.Pair
	err = retry.Retry(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, a.cfg.AcquireTimeout)
		defer cancel()
		var err error
		pair, err = a.arb.Acquire(attemptCtx, a.id)
		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			a.stats.Timeouts++
			a.log.WithField("timeout", a.cfg.AcquireTimeout).Debug("acquire timed out, backing off")
			return retry.Retriable(err)
		}
		return err
	})
	return pair, err
}

// pause sleeps for a random duration less than limit.
func (a *agent) pause(ctx context.Context, limit time.Duration) error {
	if limit <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(a.rnd.Int63n(int64(limit))))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
