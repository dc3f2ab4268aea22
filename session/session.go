// Copyright 2026 corelm Authors
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

// Package session implements the per-session KV cache and its
// lifecycle state machine (spec.md §4.6): pre-allocated contiguous
// key/value buffers per layer, a monotonic position counter, and a
// Created -> Active -> Inactive -> Disposed state machine. Cross-
// checked against the ollama pack member's kvcache.Causal lifecycle
// (Init/SetConfig/Close, cell-range bookkeeping) for the *shape* of a
// real production KV-cache API — not its ml.Tensor/ggml-backend graph
// model, which this core's flat pre-allocated-array contract (spec.md
// §3) has no use for (see DESIGN.md).
package session

import "github.com/latticerun/corelm/errs"

// state is the session's lifecycle position (spec.md §4.6).
type state int

const (
	stateCreated state = iota
	stateActive
	stateInactive
	stateDisposed
)

// Session owns one model's worth of per-layer K/V cache buffers for a
// single generation loop. Not safe for concurrent use by multiple
// writers (spec.md §5): the calling generation loop is single-threaded
// per session, though distinct sessions may run in parallel on the
// same model since caches are never shared across sessions.
type Session struct {
	numLayers  int
	maxSeqLen  int
	numKVHeads int
	headDim    int

	keyCache   [][]float32 // [layer][pos*numKVHeads*headDim : ...]
	valueCache [][]float32

	currentPosition int
	st              state
}

// New allocates a Session for a model with numLayers layers,
// numKVHeads key/value heads, headDim head dimension, and a cache sized
// for up to maxSeqLen positions. The session starts Active with
// position 0 and zeroed buffers (spec.md §4.6 Created -> Active
// transition happens at construction; there is no separate "Created"
// state exposed to callers since a Session is unusable before its
// buffers exist).
func New(numLayers, maxSeqLen, numKVHeads, headDim int) (*Session, error) {
	const op = "session.New"
	if numLayers <= 0 || maxSeqLen <= 0 || numKVHeads <= 0 || headDim <= 0 {
		return nil, errs.Dimensionf(op, "numLayers, maxSeqLen, numKVHeads, headDim must all be positive")
	}

	s := &Session{
		numLayers:  numLayers,
		maxSeqLen:  maxSeqLen,
		numKVHeads: numKVHeads,
		headDim:    headDim,
		keyCache:   make([][]float32, numLayers),
		valueCache: make([][]float32, numLayers),
		st:         stateActive,
	}
	cacheLen := maxSeqLen * numKVHeads * headDim
	for l := 0; l < numLayers; l++ {
		s.keyCache[l] = make([]float32, cacheLen)
		s.valueCache[l] = make([]float32, cacheLen)
	}
	return s, nil
}

// MaxSeqLen returns T_max, the cache's fixed capacity.
func (s *Session) MaxSeqLen() int { return s.maxSeqLen }

// CurrentPosition returns the count of tokens whose K/V have been
// written so far.
func (s *Session) CurrentPosition() int { return s.currentPosition }

// GetKeyCache returns the mutable key-cache buffer for layer l, logically
// indexed [pos][head][dim] (spec.md §3), for l in [0, numLayers).
func (s *Session) GetKeyCache(l int) ([]float32, error) {
	return s.cacheFor(s.keyCache, l, "session.GetKeyCache")
}

// GetValueCache returns the mutable value-cache buffer for layer l.
func (s *Session) GetValueCache(l int) ([]float32, error) {
	return s.cacheFor(s.valueCache, l, "session.GetValueCache")
}

func (s *Session) cacheFor(caches [][]float32, l int, op string) ([]float32, error) {
	if err := s.requireUsable(op); err != nil {
		return nil, err
	}
	if l < 0 || l >= s.numLayers {
		return nil, errs.New(op, errs.DimensionOutOfRange, "layer index out of range")
	}
	return caches[l], nil
}

// AdvancePosition records that n more tokens' worth of K/V have been
// written, failing with CapacityExceeded if that would exceed T_max.
// current_position is monotone non-decreasing within an active session.
func (s *Session) AdvancePosition(n int) error {
	const op = "session.AdvancePosition"
	if err := s.requireUsable(op); err != nil {
		return err
	}
	if n < 0 {
		return errs.Dimensionf(op, "n must be non-negative, got %d", n)
	}
	if s.currentPosition+n > s.maxSeqLen {
		return errs.New(op, errs.CapacityExceeded, "advance_position would exceed max_seq_len")
	}
	s.currentPosition += n
	return nil
}

// Reset zeros all cache buffers and resets the position to 0. Valid
// from both Active and Inactive (per spec.md §4.6, Reset returns an
// Inactive session to Active with position 0).
func (s *Session) Reset() error {
	const op = "session.Reset"
	if s.st == stateDisposed {
		return errs.New(op, errs.InvalidState, "session is disposed")
	}
	for l := 0; l < s.numLayers; l++ {
		zero(s.keyCache[l])
		zero(s.valueCache[l])
	}
	s.currentPosition = 0
	s.st = stateActive
	return nil
}

// Deactivate marks the session unusable until Reset. Idempotent.
func (s *Session) Deactivate() error {
	const op = "session.Deactivate"
	if s.st == stateDisposed {
		return errs.New(op, errs.InvalidState, "session is disposed")
	}
	s.st = stateInactive
	return nil
}

// Dispose releases the session's cache buffers. Idempotent; a disposed
// session rejects every other operation with InvalidState.
func (s *Session) Dispose() {
	if s.st == stateDisposed {
		return
	}
	s.keyCache = nil
	s.valueCache = nil
	s.st = stateDisposed
}

// IsActive reports whether the session is in the Active state.
func (s *Session) IsActive() bool { return s.st == stateActive }

func (s *Session) requireUsable(op string) error {
	switch s.st {
	case stateDisposed:
		return errs.New(op, errs.InvalidState, "session is disposed")
	case stateInactive:
		return errs.New(op, errs.InvalidState, "session is inactive; call Reset to reactivate")
	default:
		return nil
	}
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}
