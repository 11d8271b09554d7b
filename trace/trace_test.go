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
	"bytes"
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/dining/ring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

// record runs every agent of a five-slot ring for the given number of
// cycles and returns the recorded events.
func record(t *testing.T, policy ring.WakePolicy, cycles int) []Event {
	t.Helper()
	r := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rec := NewRecorder()
	var chained atomic.Int64
	arb, err := ring.NewArbiter(5, ring.WithWakePolicy(policy))
	r.NoError(err)
	arb.SetEvents(rec.Events(&ring.Events{
		OnAcquired: func(int, ring.Pair, time.Duration) { chained.Add(1) },
	}))

	eg, egCtx := errgroup.WithContext(ctx)
	for agent := 0; agent < 5; agent++ {
		agent := agent // Capture
		eg.Go(func() error {
			for i := 0; i < cycles; i++ {
				if _, err := arb.Acquire(egCtx, agent); err != nil {
					return err
				}
				runtime.Gosched()
				if _, err := arb.Release(agent); err != nil {
					return err
				}
			}
			return nil
		})
	}
	r.NoError(eg.Wait())
	r.Equal(int64(5*cycles), chained.Load())
	return rec.Snapshot()
}

func TestRecordAndVerify(t *testing.T) {
	for _, policy := range []ring.WakePolicy{ring.WakeAsymmetric, ring.WakeBroadcast} {
		t.Run(policy.String(), func(t *testing.T) {
			r := require.New(t)
			events := record(t, policy, 200)

			sum, err := Verify(5, events)
			r.NoError(err)
			r.Equal([]int{200, 200, 200, 200, 200}, sum.Acquired)
			r.Empty(sum.Holding)
			for agent := range sum.Canceled {
				r.Zero(sum.Canceled[agent])
			}
		})
	}
}

func TestCodecRoundTrip(t *testing.T) {
	r := require.New(t)
	events := record(t, ring.WakeAsymmetric, 20)

	var buf bytes.Buffer
	r.NoError(Write(&buf, 5, events))

	size, decoded, err := Read(&buf)
	r.NoError(err)
	r.Equal(5, size)
	r.Len(decoded, len(events))
	for i := range events {
		want, got := events[i], decoded[i]
		r.True(want.At.Equal(got.At), "event %d time", i)
		want.At, got.At = time.Time{}, time.Time{}
		r.Equal(want, got)
	}

	_, err = Verify(size, decoded)
	r.NoError(err)
}

func TestReadTruncated(t *testing.T) {
	r := require.New(t)
	events := []Event{
		{Seq: 1, Kind: Acquired, Agent: 0, Left: 0, Right: 1},
		{Seq: 2, Kind: Released, Agent: 0, Left: 0, Right: 1},
	}
	var buf bytes.Buffer
	r.NoError(Write(&buf, 5, events))
	data := buf.Bytes()

	// Keep the header, which promises two events, and only the first
	// event. The headers of both streams have the same length.
	var first bytes.Buffer
	r.NoError(Write(&first, 5, events[:1]))
	_, _, err := Read(bytes.NewReader(data[:first.Len()]))
	r.ErrorContains(err, "truncated")

	_, _, err = Read(bytes.NewReader(nil))
	r.ErrorContains(err, "header")
}

func TestReadBadHeader(t *testing.T) {
	tests := []struct {
		name string
		hdr  header
		err  string
	}{
		{"negative count", header{Version: formatVersion, Size: 5, Count: -1}, "negative event count"},
		{"huge count", header{Version: formatVersion, Size: 5, Count: 1 << 40}, "truncated"},
		{"small ring", header{Version: formatVersion, Size: 2, Count: 0}, "ring size 2"},
		{"huge ring", header{Version: formatVersion, Size: 1 << 40}, "exceeds"},
		{"zero ring", header{Version: formatVersion, Count: 0}, "ring size 0"},
		{"version", header{Version: formatVersion + 1, Size: 5}, "unsupported trace version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := require.New(t)
			data, err := msgpack.Marshal(&tt.hdr)
			r.NoError(err)
			r.NotPanics(func() {
				_, _, err = Read(bytes.NewReader(data))
			})
			r.ErrorContains(err, tt.err)
		})
	}
}

func TestVerifyViolations(t *testing.T) {
	acq := func(seq uint64, agent, left, right int) Event {
		return Event{Seq: seq, Kind: Acquired, Agent: agent, Left: left, Right: right}
	}
	rel := func(seq uint64, agent, left, right int) Event {
		return Event{Seq: seq, Kind: Released, Agent: agent, Left: left, Right: right}
	}
	tests := []struct {
		name   string
		events []Event
		err    string
	}{
		{
			"ok",
			[]Event{acq(1, 0, 0, 1), rel(2, 0, 0, 1), acq(3, 4, 4, 0)},
			"",
		},
		{
			"shared slot",
			[]Event{acq(1, 0, 0, 1), acq(2, 1, 1, 2)},
			"slot 1 already held by agent 0",
		},
		{
			"wrong pair",
			[]Event{acq(1, 3, 3, 2)},
			"agent requires {3,4}",
		},
		{
			"release without acquire",
			[]Event{rel(1, 2, 2, 3)},
			"slots held by -1 and -1",
		},
		{
			"release neighbor",
			[]Event{acq(1, 1, 1, 2), rel(2, 2, 2, 3)},
			"slots held by 1 and -1",
		},
		{
			"park on free slot",
			[]Event{{Seq: 1, Kind: Blocked, Agent: 0, Slot: 0}},
			"parked on a free slot",
		},
		{
			"woken without park",
			[]Event{{Seq: 1, Kind: Woken, Agent: 0, Slot: 0}},
			"not parked",
		},
		{
			"acquire while parked",
			[]Event{
				acq(1, 4, 4, 0),
				{Seq: 2, Kind: Blocked, Agent: 0, Slot: 0},
				rel(3, 4, 4, 0),
				acq(4, 0, 0, 1),
			},
			"acquired while parked",
		},
		{
			"sequence",
			[]Event{acq(2, 0, 0, 1), rel(2, 0, 0, 1)},
			"out of sequence",
		},
		{
			"unknown agent",
			[]Event{acq(1, 9, 9, 0)},
			"unknown agent",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := assert.New(t)
			_, err := Verify(5, tt.events)
			if tt.err == "" {
				a.NoError(err)
				return
			}
			a.ErrorIs(err, ErrViolation)
			a.ErrorContains(err, tt.err)
		})
	}
}

func TestVerifySummary(t *testing.T) {
	r := require.New(t)
	sum, err := Verify(5, []Event{
		{Seq: 1, Kind: Acquired, Agent: 0, Left: 0, Right: 1},
		{Seq: 2, Kind: Blocked, Agent: 1, Slot: 1},
		{Seq: 3, Kind: Canceled, Agent: 1, Slot: 1},
		{Seq: 4, Kind: Acquired, Agent: 2, Left: 2, Right: 3},
	})
	r.NoError(err)
	r.Equal([]int{1, 0, 1, 0, 0}, sum.Acquired)
	r.Equal([]int{0, 1, 0, 0, 0}, sum.Blocked)
	r.Equal([]int{0, 1, 0, 0, 0}, sum.Canceled)
	r.Equal([]int{0, 2}, sum.Holding)
}
