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

/*
Package ring arbitrates access to a ring of N exclusive slots, where
agent a must hold slots a and (a+1) mod N at the same time in order to
make progress. This is the classic dining philosophers arrangement:

	arb, _ := NewArbiter(5)

	// Each philosopher runs in its own goroutine.
	dine := func(ctx context.Context, id int) error {
		pair, err := arb.Acquire(ctx, id)
		if err != nil {
			return err
		}
		eat(pair)
		_, err = arb.Release(id)
		return err
	}

An agent never holds one slot while waiting for the other. Acquire
checks both slots under a single lock and, if either is held, parks the
caller on the wait queue of the unavailable slot (the left slot if both
are held). A wake is only a hint to re-check: the check-wait-recheck loop
inside Acquire is what guarantees that both slots move from free to held
atomically.

Which waiters are woken, and when, is controlled by a [WakePolicy]. The
observable transitions of the arbiter can be monitored through [Events].

Misuse of the protocol, such as releasing a pair that the agent does not
hold, is reported as an error wrapping [ErrContract] and never mutates
the shared state.
*/
package ring
