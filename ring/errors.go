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
	"errors"
	"fmt"
)

// ErrInvalidArg is returned when an Arbiter or Ring is constructed with
// an unusable parameter.
var ErrInvalidArg = errors.New("invalid argument")

// ErrContract is wrapped by every error that reports a misuse of the
// acquire/release protocol. Such errors indicate a programming error in
// the caller, not a transient condition, and must not be retried.
var ErrContract = errors.New("contract violation")

// Specific contract violations. All of them satisfy
// errors.Is(err, ErrContract).
var (
	ErrInvalidAgent = fmt.Errorf("%w: invalid agent", ErrContract)
	ErrInvalidSlot  = fmt.Errorf("%w: invalid slot", ErrContract)
	ErrAlreadyHeld  = fmt.Errorf("%w: agent already acquiring or holding", ErrContract)
	ErrNotHeld      = fmt.Errorf("%w: pair not held by agent", ErrContract)
)
