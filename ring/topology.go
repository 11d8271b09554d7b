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

// MinSize is the smallest ring for which slot adjacency is meaningful.
const MinSize = 3

// A Pair identifies the two slots that an agent must hold together.
type Pair struct {
	Left  int
	Right int
}

func (p Pair) String() string { return fmt.Sprintf("{%d,%d}", p.Left, p.Right) }

// Ring describes the fixed topology of N slots and N agents. Agent a
// requires the pair {a, (a+1) mod N}.
type Ring struct {
	n int
}

// NewRing constructs a Ring of the given size.
func NewRing(n int) (Ring, error) {
	if n < MinSize {
		return Ring{}, fmt.Errorf("%w: ring size %d is less than %d", ErrInvalidArg, n, MinSize)
	}
	return Ring{n: n}, nil
}

// Size returns the number of slots, which is also the number of agents.
func (r Ring) Size() int { return r.n }

// Contains returns true if the agent id is within [0, N).
func (r Ring) Contains(agent int) bool { return agent >= 0 && agent < r.n }

// PairOf returns the slots required by the agent.
func (r Ring) PairOf(agent int) (Pair, error) {
	if !r.Contains(agent) {
		return Pair{}, fmt.Errorf("%w: agent %d not in [0, %d)", ErrInvalidAgent, agent, r.n)
	}
	return Pair{Left: agent, Right: r.mod(agent + 1)}, nil
}

// NonAdjacent returns the slots at ring distance two from the agent,
// (a+2) mod N and (a-2) mod N, leaving out any slot of the agent's own
// pair. The result is deduplicated. In a ring of three, (a-2) mod N is
// the agent's right slot, so only (a+2) mod N remains.
func (r Ring) NonAdjacent(agent int) []int {
	left, right := agent, r.mod(agent+1)
	ret := make([]int, 0, 2)
	for _, slot := range []int{r.mod(agent + 2), r.mod(agent - 2)} {
		if slot == left || slot == right || (len(ret) > 0 && ret[0] == slot) {
			continue
		}
		ret = append(ret, slot)
	}
	return ret
}

func (r Ring) mod(i int) int {
	i %= r.n
	if i < 0 {
		i += r.n
	}
	return i
}
