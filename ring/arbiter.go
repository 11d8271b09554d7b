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

package ring

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Free is the holder value of a slot that no agent holds.
const Free = -1

// AgentState tracks an agent through the acquire/release cycle.
type AgentState int

// The agent states. An agent that is blocked inside Acquire is in the
// Acquiring state.
const (
	Idle AgentState = iota
	Acquiring
	Holding
)

func (s AgentState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Holding:
		return "holding"
	default:
		return fmt.Sprintf("AgentState(%d)", int(s))
	}
}

// An Option configures an Arbiter.
type Option func(*Arbiter)

// WithEvents installs monitoring callbacks. See [Arbiter.SetEvents].
func WithEvents(events *Events) Option {
	return func(a *Arbiter) { a.events = events }
}

// WithWakePolicy selects the wake policy. The default is
// [WakeAsymmetric].
func WithWakePolicy(policy WakePolicy) Option {
	return func(a *Arbiter) { a.policy = policy }
}

// Arbiter grants agents exclusive ownership of their pair of adjacent
// slots in a [Ring].
//
// An Arbiter is internally synchronized and is safe for concurrent
// use. An Arbiter should not be copied after it has been created.
type Arbiter struct {
	events *Events    // Injectable callbacks.
	policy WakePolicy // Immutable after construction.
	ring   Ring       // Immutable after construction.

	mu struct {
		sync.Mutex

		holders []int        // Indexed by slot; Free or an agent id.
		since   []time.Time  // Indexed by agent; when Holding began.
		states  []AgentState // Indexed by agent.
		waits   []waitQueue  // Indexed by slot.
	}
}

// NewArbiter constructs an Arbiter for a ring of n slots and n agents.
func NewArbiter(n int, opts ...Option) (*Arbiter, error) {
	r, err := NewRing(n)
	if err != nil {
		return nil, err
	}
	a := &Arbiter{ring: r}
	for _, opt := range opts {
		opt(a)
	}
	switch a.policy {
	case WakeAsymmetric, WakeBroadcast:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidArg, a.policy)
	}
	a.mu.holders = make([]int, n)
	for i := range a.mu.holders {
		a.mu.holders[i] = Free
	}
	a.mu.since = make([]time.Time, n)
	a.mu.states = make([]AgentState, n)
	a.mu.waits = make([]waitQueue, n)
	return a, nil
}

// Policy returns the wake policy in use.
func (a *Arbiter) Policy() WakePolicy { return a.policy }

// Ring returns the topology managed by the Arbiter.
func (a *Arbiter) Ring() Ring { return a.ring }

// SetEvents allows monitoring callbacks to be injected into the
// Arbiter. This method should be called prior to any call to
// [Arbiter.Acquire].
func (a *Arbiter) SetEvents(events *Events) {
	a.events = events
}

// Acquire blocks until both slots of the agent's pair are held by the
// agent, or until the context is done.
//
// The agent must not already be acquiring or holding its pair. If the
// context is canceled while the agent is blocked, the agent is removed
// from the slot's wait queue and the context's error is returned; the
// agent holds nothing and may call Acquire again.
func (a *Arbiter) Acquire(ctx context.Context, agent int) (Pair, error) {
	pair, err := a.ring.PairOf(agent)
	if err != nil {
		return Pair{}, err
	}
	start := time.Now()

	a.mu.Lock()
	if err := a.beginLocked(agent); err != nil {
		a.mu.Unlock()
		return Pair{}, err
	}

	for !a.availableLocked(pair) {
		// Prefer the left slot if both are held.
		slot := pair.Left
		if a.mu.holders[slot] == Free {
			slot = pair.Right
		}
		w := a.mu.waits[slot].push(agent)
		a.events.doBlocked(agent, slot)
		a.mu.Unlock()

		canceled := false
		select {
		case <-w.ch:
		case <-ctx.Done():
			canceled = true
		}

		a.mu.Lock()
		if canceled {
			forward := a.cancelWaitLocked(slot, w)
			a.mu.states[agent] = Idle
			a.events.doCanceled(agent, slot)
			a.mu.Unlock()
			forward.deliver()
			return Pair{}, ctx.Err()
		}
		a.events.doWoken(agent, slot)
	}

	wake := a.takeLocked(agent, pair, start)
	a.mu.Unlock()
	wake.deliver()
	return pair, nil
}

// TryAcquire takes the agent's pair only if both slots are free right
// now. It returns false without blocking otherwise.
func (a *Arbiter) TryAcquire(agent int) (Pair, bool, error) {
	pair, err := a.ring.PairOf(agent)
	if err != nil {
		return Pair{}, false, err
	}
	start := time.Now()

	a.mu.Lock()
	if err := a.beginLocked(agent); err != nil {
		a.mu.Unlock()
		return Pair{}, false, err
	}
	if !a.availableLocked(pair) {
		a.mu.states[agent] = Idle
		a.mu.Unlock()
		return Pair{}, false, nil
	}
	wake := a.takeLocked(agent, pair, start)
	a.mu.Unlock()
	wake.deliver()
	return pair, true, nil
}

// Release frees both slots of the agent's pair and wakes the agents
// parked on those slots. It is an error to release a pair that the
// agent does not hold; in that case no state is modified.
func (a *Arbiter) Release(agent int) (Pair, error) {
	pair, err := a.ring.PairOf(agent)
	if err != nil {
		return Pair{}, err
	}

	a.mu.Lock()
	if st := a.mu.states[agent]; st != Holding {
		a.mu.Unlock()
		return Pair{}, fmt.Errorf("%w: agent %d is %s", ErrNotHeld, agent, st)
	}
	if a.mu.holders[pair.Left] != agent || a.mu.holders[pair.Right] != agent {
		// Agent state and slot holders disagree, which is a bug in
		// the Arbiter itself.
		left, right := a.mu.holders[pair.Left], a.mu.holders[pair.Right]
		a.mu.Unlock()
		panic(fmt.Sprintf("agent %d is holding %s but slots are held by %d and %d",
			agent, pair, left, right))
	}
	a.mu.holders[pair.Left] = Free
	a.mu.holders[pair.Right] = Free
	a.mu.states[agent] = Idle
	a.events.doReleased(agent, pair, time.Since(a.mu.since[agent]))
	wake := a.afterReleaseLocked(pair)
	a.mu.Unlock()

	wake.deliver()
	return pair, nil
}

// Holder returns the agent holding the slot, or [Free]. A slot outside
// of [0, N) is reported with [ErrInvalidSlot].
func (a *Arbiter) Holder(slot int) (int, error) {
	// Slots and agents share the same id space.
	if !a.ring.Contains(slot) {
		return Free, fmt.Errorf("%w: slot %d not in [0, %d)", ErrInvalidSlot, slot, a.ring.Size())
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mu.holders[slot], nil
}

// Snapshot is a consistent copy of the Arbiter's state.
type Snapshot struct {
	Holders []int        // Indexed by slot.
	States  []AgentState // Indexed by agent.
	Waiting []int        // Number of parked agents, indexed by slot.
}

// Snapshot returns a consistent view of the Arbiter's state.
func (a *Arbiter) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	ret := Snapshot{
		Holders: append([]int(nil), a.mu.holders...),
		States:  append([]AgentState(nil), a.mu.states...),
		Waiting: make([]int, len(a.mu.waits)),
	}
	for i := range a.mu.waits {
		ret.Waiting[i] = a.mu.waits[i].len()
	}
	return ret
}

// beginLocked moves an idle agent into the Acquiring state.
func (a *Arbiter) beginLocked(agent int) error {
	if st := a.mu.states[agent]; st != Idle {
		return fmt.Errorf("%w: agent %d is %s", ErrAlreadyHeld, agent, st)
	}
	a.mu.states[agent] = Acquiring
	return nil
}

// availableLocked returns true if both slots are free.
func (a *Arbiter) availableLocked(pair Pair) bool {
	return a.mu.holders[pair.Left] == Free && a.mu.holders[pair.Right] == Free
}

// cancelWaitLocked removes a canceled waiter from the slot's queue. If
// a wake had already been delivered to the waiter, it is handed on to
// the next waiter of the same slot so that it is not lost.
func (a *Arbiter) cancelWaitLocked(slot int, w *waiter) wakeList {
	if a.mu.waits[slot].remove(w) {
		return nil
	}
	if next := a.mu.waits[slot].pop(); next != nil {
		return wakeList{next}
	}
	return nil
}

// takeLocked marks both slots as held by the agent and returns the
// post-acquire wake.
func (a *Arbiter) takeLocked(agent int, pair Pair, start time.Time) wakeList {
	a.mu.holders[pair.Left] = agent
	a.mu.holders[pair.Right] = agent
	a.mu.states[agent] = Holding
	now := time.Now()
	a.mu.since[agent] = now
	a.events.doAcquired(agent, pair, now.Sub(start))
	return a.afterAcquireLocked(agent)
}
