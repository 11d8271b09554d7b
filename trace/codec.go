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
	"io"

	"github.com/cockroachdb/dining/ring"
	"github.com/vmihailenco/msgpack/v5"
)

// header leads every trace stream.
type header struct {
	Version int `msgpack:"version"`
	Size    int `msgpack:"size"`
	Count   int `msgpack:"count"`
}

const (
	formatVersion = 1
	maxPrealloc   = 1024
	// maxSize bounds the per-slot state that Verify allocates.
	maxSize = 1 << 20
)

// Write encodes the events of a ring of the given size to w as a
// msgpack stream: one header followed by one value per event.
func Write(w io.Writer, size int, events []Event) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(&header{Version: formatVersion, Size: size, Count: len(events)}); err != nil {
		return fmt.Errorf("writing trace header: %w", err)
	}
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return fmt.Errorf("writing event %d: %w", events[i].Seq, err)
		}
	}
	return nil
}

// Read decodes a stream produced by [Write], returning the ring size
// and the events.
func Read(r io.Reader) (size int, events []Event, err error) {
	dec := msgpack.NewDecoder(r)
	var hdr header
	if err := dec.Decode(&hdr); err != nil {
		return 0, nil, fmt.Errorf("reading trace header: %w", err)
	}
	if hdr.Version != formatVersion {
		return 0, nil, fmt.Errorf("unsupported trace version %d", hdr.Version)
	}
	if hdr.Size < ring.MinSize {
		return 0, nil, fmt.Errorf("trace header: ring size %d is less than %d", hdr.Size, ring.MinSize)
	}
	if hdr.Size > maxSize {
		return 0, nil, fmt.Errorf("trace header: ring size %d exceeds %d", hdr.Size, maxSize)
	}
	if hdr.Count < 0 {
		return 0, nil, fmt.Errorf("trace header: negative event count %d", hdr.Count)
	}
	// The count is untrusted, so it only bounds the loop.
	events = make([]Event, 0, min(hdr.Count, maxPrealloc))
	for i := 0; i < hdr.Count; i++ {
		var e Event
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return 0, nil, fmt.Errorf("trace truncated after %d of %d events", i, hdr.Count)
			}
			return 0, nil, fmt.Errorf("reading event %d: %w", i, err)
		}
		events = append(events, e)
	}
	return hdr.Size, events, nil
}
