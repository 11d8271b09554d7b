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

// A waiter is a single parked call to Acquire. The woken field is only
// accessed while holding the Arbiter lock. The channel is closed exactly
// once, after the waiter has been removed from its queue.
type waiter struct {
	agent int
	ch    chan struct{}
	woken bool
}

// waitQueue holds the agents parked on a single slot, oldest first.
// Instances of this type should only be accessed while holding the
// parent Arbiter lock.
type waitQueue struct {
	entries []*waiter
}

func (q *waitQueue) len() int { return len(q.entries) }

// push parks the agent at the tail of the queue.
func (q *waitQueue) push(agent int) *waiter {
	w := &waiter{agent: agent, ch: make(chan struct{})}
	q.entries = append(q.entries, w)
	return w
}

// pop removes the oldest waiter and marks it woken. It returns nil if
// the queue is empty.
func (q *waitQueue) pop() *waiter {
	if len(q.entries) == 0 {
		return nil
	}
	w := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]
	if len(q.entries) == 0 {
		q.entries = nil
	}
	w.woken = true
	return w
}

// drain removes and marks every waiter.
func (q *waitQueue) drain() []*waiter {
	ret := q.entries
	q.entries = nil
	for _, w := range ret {
		w.woken = true
	}
	return ret
}

// remove takes a waiter out of the queue without waking it. It returns
// false if the waiter had already been popped, in which case a wake was
// delivered to it.
func (q *waitQueue) remove(w *waiter) bool {
	if w.woken {
		return false
	}
	for idx, e := range q.entries {
		if e == w {
			q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
			if len(q.entries) == 0 {
				q.entries = nil
			}
			return true
		}
	}
	panic("unwoken waiter not found in queue")
}

// wakeList accumulates waiters that were popped under the lock. The
// wakes are delivered once the lock has been released.
type wakeList []*waiter

func (l wakeList) deliver() {
	for _, w := range l {
		close(w.ch)
	}
}
