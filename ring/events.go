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

import "time"

// Events provides an [Arbiter] with optional callbacks to observe slot
// transitions and waiting agents.
//
// The callbacks are invoked while the arbitration lock is held, so the
// sequence of calls is totally ordered with respect to slot state. A
// callback must be fast and must not call back into the Arbiter.
//
// See [Arbiter.SetEvents].
type Events struct {
	// OnAcquired is called once both slots are held by the agent.
	// The duration includes any time spent blocked.
	OnAcquired func(agent int, pair Pair, waited time.Duration)
	// OnBlocked is called when the agent parks on the slot's queue.
	OnBlocked func(agent int, slot int)
	// OnCanceled is called when a blocked agent gives up waiting.
	OnCanceled func(agent int, slot int)
	// OnReleased is called once both slots are free again.
	OnReleased func(agent int, pair Pair, held time.Duration)
	// OnWoken is called when a parked agent re-enters the lock to
	// re-check its pair.
	OnWoken func(agent int, slot int)
}

func (e *Events) doAcquired(agent int, pair Pair, waited time.Duration) {
	if e != nil && e.OnAcquired != nil {
		e.OnAcquired(agent, pair, waited)
	}
}

func (e *Events) doBlocked(agent, slot int) {
	if e != nil && e.OnBlocked != nil {
		e.OnBlocked(agent, slot)
	}
}

func (e *Events) doCanceled(agent, slot int) {
	if e != nil && e.OnCanceled != nil {
		e.OnCanceled(agent, slot)
	}
}

func (e *Events) doReleased(agent int, pair Pair, held time.Duration) {
	if e != nil && e.OnReleased != nil {
		e.OnReleased(agent, pair, held)
	}
}

func (e *Events) doWoken(agent, slot int) {
	if e != nil && e.OnWoken != nil {
		e.OnWoken(agent, slot)
	}
}
