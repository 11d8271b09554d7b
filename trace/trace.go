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

// Package trace records the event stream of a [ring.Arbiter] so that
// a run can be persisted, inspected and checked after the fact.
package trace

import (
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/dining/ring"
)

// Kind identifies the type of an Event.
type Kind uint8

// The event kinds, one per [ring.Events] callback.
const (
	Acquired Kind = iota + 1
	Released
	Blocked
	Woken
	Canceled
)

func (k Kind) String() string {
	switch k {
	case Acquired:
		return "acquired"
	case Released:
		return "released"
	case Blocked:
		return "blocked"
	case Woken:
		return "woken"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// An Event is a single observed transition. Left and Right are set for
// Acquired and Released events; Slot is set for the others.
type Event struct {
	Seq   uint64        `msgpack:"seq"`
	Kind  Kind          `msgpack:"kind"`
	Agent int           `msgpack:"agent"`
	Slot  int           `msgpack:"slot,omitempty"`
	Left  int           `msgpack:"left,omitempty"`
	Right int           `msgpack:"right,omitempty"`
	At    time.Time     `msgpack:"at"`
	Took  time.Duration `msgpack:"took,omitempty"` // Waited or held.
}

// Pair returns the slots of an Acquired or Released event.
func (e Event) Pair() ring.Pair { return ring.Pair{Left: e.Left, Right: e.Right} }

func (e Event) String() string {
	switch e.Kind {
	case Acquired, Released:
		return fmt.Sprintf("#%d agent %d %s %s", e.Seq, e.Agent, e.Kind, e.Pair())
	default:
		return fmt.Sprintf("#%d agent %d %s slot %d", e.Seq, e.Agent, e.Kind, e.Slot)
	}
}

// A Recorder accumulates events from an Arbiter. A Recorder is safe for
// concurrent use.
type Recorder struct {
	mu struct {
		sync.Mutex
		events []Event
		seq    uint64
	}
}

// NewRecorder constructs an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Events returns callbacks to install with [ring.Arbiter.SetEvents].
// The optional next callbacks are invoked after each event has been
// recorded.
func (r *Recorder) Events(next *ring.Events) *ring.Events {
	if next == nil {
		next = &ring.Events{}
	}
	return &ring.Events{
		OnAcquired: func(agent int, pair ring.Pair, waited time.Duration) {
			r.add(Event{Kind: Acquired, Agent: agent, Left: pair.Left, Right: pair.Right, Took: waited})
			if next.OnAcquired != nil {
				next.OnAcquired(agent, pair, waited)
			}
		},
		OnBlocked: func(agent, slot int) {
			r.add(Event{Kind: Blocked, Agent: agent, Slot: slot})
			if next.OnBlocked != nil {
				next.OnBlocked(agent, slot)
			}
		},
		OnCanceled: func(agent, slot int) {
			r.add(Event{Kind: Canceled, Agent: agent, Slot: slot})
			if next.OnCanceled != nil {
				next.OnCanceled(agent, slot)
			}
		},
		OnReleased: func(agent int, pair ring.Pair, held time.Duration) {
			r.add(Event{Kind: Released, Agent: agent, Left: pair.Left, Right: pair.Right, Took: held})
			if next.OnReleased != nil {
				next.OnReleased(agent, pair, held)
			}
		},
		OnWoken: func(agent, slot int) {
			r.add(Event{Kind: Woken, Agent: agent, Slot: slot})
			if next.OnWoken != nil {
				next.OnWoken(agent, slot)
			}
		},
	}
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mu.events)
}

// Snapshot returns a copy of the events recorded so far.
func (r *Recorder) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.mu.events...)
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.seq++
	e.Seq = r.mu.seq
	e.At = time.Now()
	r.mu.events = append(r.mu.events, e)
}
