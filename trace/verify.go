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

package trace

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/dining/ring"
)

// ErrViolation is wrapped by every error returned from [Verify].
var ErrViolation = errors.New("trace violation")

// Summary describes a verified trace.
type Summary struct {
	Acquired []int // Completed acquisitions, indexed by agent.
	Blocked  []int // Times parked, indexed by agent.
	Canceled []int // Abandoned waits, indexed by agent.
	Holding  []int // Agents still holding their pair at the end.
}

// Verify replays the events of a ring of the given size in sequence
// order. It reports the first event at which a slot would have two
// holders, an agent would hold only one slot of its pair, or a pair
// would be released by an agent that does not hold it.
func Verify(size int, events []Event) (*Summary, error) {
	topo, err := ring.NewRing(size)
	if err != nil {
		return nil, err
	}
	holders := make([]int, size)
	for i := range holders {
		holders[i] = ring.Free
	}
	waiting := make([]int, size) // Slot each agent is parked on, or Free.
	for i := range waiting {
		waiting[i] = ring.Free
	}
	sum := &Summary{
		Acquired: make([]int, size),
		Blocked:  make([]int, size),
		Canceled: make([]int, size),
	}
	var lastSeq uint64

	fail := func(e Event, format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrViolation, e, fmt.Sprintf(format, args...))
	}

	for _, e := range events {
		if e.Seq <= lastSeq {
			return nil, fail(e, "out of sequence after #%d", lastSeq)
		}
		lastSeq = e.Seq
		if !topo.Contains(e.Agent) {
			return nil, fail(e, "unknown agent")
		}

		switch e.Kind {
		case Acquired, Released:
			want, _ := topo.PairOf(e.Agent)
			if e.Pair() != want {
				return nil, fail(e, "agent requires %s", want)
			}
			if e.Kind == Acquired {
				if waiting[e.Agent] != ring.Free {
					return nil, fail(e, "acquired while parked on slot %d", waiting[e.Agent])
				}
				for _, slot := range []int{want.Left, want.Right} {
					if h := holders[slot]; h != ring.Free {
						return nil, fail(e, "slot %d already held by agent %d", slot, h)
					}
				}
				holders[want.Left], holders[want.Right] = e.Agent, e.Agent
				sum.Acquired[e.Agent]++
			} else {
				l, r := holders[want.Left], holders[want.Right]
				if l != e.Agent || r != e.Agent {
					return nil, fail(e, "slots held by %d and %d", l, r)
				}
				holders[want.Left], holders[want.Right] = ring.Free, ring.Free
			}

		case Blocked:
			if e.Slot < 0 || e.Slot >= size {
				return nil, fail(e, "unknown slot")
			}
			if waiting[e.Agent] != ring.Free {
				return nil, fail(e, "already parked on slot %d", waiting[e.Agent])
			}
			if holders[e.Slot] == ring.Free {
				return nil, fail(e, "parked on a free slot")
			}
			waiting[e.Agent] = e.Slot
			sum.Blocked[e.Agent]++

		case Woken, Canceled:
			if waiting[e.Agent] != e.Slot {
				return nil, fail(e, "agent was not parked on this slot")
			}
			waiting[e.Agent] = ring.Free
			if e.Kind == Canceled {
				sum.Canceled[e.Agent]++
			}

		default:
			return nil, fail(e, "unknown event kind")
		}
	}

	for agent := 0; agent < size; agent++ {
		pair, _ := topo.PairOf(agent)
		l, r := holders[pair.Left] == agent, holders[pair.Right] == agent
		if l != r {
			return nil, fmt.Errorf("%w: agent %d ends holding one slot of %s", ErrViolation, agent, pair)
		}
		if l {
			sum.Holding = append(sum.Holding, agent)
		}
	}
	return sum, nil
}
