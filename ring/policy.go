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

import "fmt"

// A WakePolicy decides which parked agents are woken after a pair is
// acquired or released. Every policy only produces hints; correctness
// never depends on which policy is chosen.
type WakePolicy int

const (
	// WakeAsymmetric wakes one waiter on each of the two non-adjacent
	// slots after an acquire, and one waiter on the left and then the
	// right slot of the pair after a release.
	WakeAsymmetric WakePolicy = iota
	// WakeBroadcast follows the same slot selection as WakeAsymmetric,
	// but wakes every waiter of each selected slot.
	WakeBroadcast
)

// ParseWakePolicy converts the output of [WakePolicy.String] back into
// a WakePolicy.
func ParseWakePolicy(s string) (WakePolicy, error) {
	switch s {
	case "asymmetric":
		return WakeAsymmetric, nil
	case "broadcast":
		return WakeBroadcast, nil
	default:
		return 0, fmt.Errorf("%w: unknown wake policy %q", ErrInvalidArg, s)
	}
}

func (p WakePolicy) String() string {
	switch p {
	case WakeAsymmetric:
		return "asymmetric"
	case WakeBroadcast:
		return "broadcast"
	default:
		return fmt.Sprintf("WakePolicy(%d)", int(p))
	}
}

// wakeSlotsLocked collects waiters from the given slot queues according
// to the policy. Slots are visited in order.
func (a *Arbiter) wakeSlotsLocked(slots ...int) wakeList {
	var ret wakeList
	for _, slot := range slots {
		q := &a.mu.waits[slot]
		if a.policy == WakeBroadcast {
			ret = append(ret, q.drain()...)
		} else if w := q.pop(); w != nil {
			ret = append(ret, w)
		}
	}
	return ret
}

// afterAcquireLocked selects the non-adjacent wake.
func (a *Arbiter) afterAcquireLocked(agent int) wakeList {
	return a.wakeSlotsLocked(a.ring.NonAdjacent(agent)...)
}

// afterReleaseLocked selects the neighbor wake, left slot first.
func (a *Arbiter) afterReleaseLocked(pair Pair) wakeList {
	return a.wakeSlotsLocked(pair.Left, pair.Right)
}
