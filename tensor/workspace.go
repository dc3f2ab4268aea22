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

package tensor

import "sync"

// WorkspaceMap maps a string key ("fc1Out", "qProj", ...) to a reused
// Tensor (spec.md §4.4). One WorkspaceMap exists per session or per
// forward pass and is never shared across threads (spec.md §5); its
// own mutex exists only to guard against accidental concurrent misuse,
// not because concurrent use is a supported access pattern.
type WorkspaceMap struct {
	mu      sync.Mutex
	tensors map[string]*Tensor
}

// NewWorkspaceMap returns an empty workspace map.
func NewWorkspaceMap() *WorkspaceMap {
	return &WorkspaceMap{tensors: make(map[string]*Tensor)}
}

// GetOrCreate returns the Tensor stored under key if its shape equals
// the requested shape, zeroing it before return; otherwise it
// allocates a fresh Tensor of the requested shape (replacing any
// previous entry under key) and returns it, also zeroed.
//
// The zero-on-every-return contract is load-bearing (spec.md §9):
// accumulating kernels (C += A·B) read C before writing, so a reused
// buffer carrying stale data from a prior forward pass would
// contaminate the new result in a way indistinguishable from a memory
// bug. The "fresh allocation" branch does not call zero because make
// already returns a zeroed buffer, so both branches return zeroed data
// and callers never need to reason about which branch was taken.
func (w *WorkspaceMap) GetOrCreate(key string, shape Shape, needsGrad bool) *Tensor {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.tensors[key]; ok && t.Shape.Equal(shape) {
		t.zero()
		return t
	}

	t := newTensor(shape, needsGrad)
	w.tensors[key] = t
	return t
}

// Delete removes key from the map, e.g. when a caller knows a given
// intermediate will never be requested again at a new shape and wants
// to release its backing buffer.
func (w *WorkspaceMap) Delete(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.tensors, key)
}

// Len reports the number of distinct keys currently held.
func (w *WorkspaceMap) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tensors)
}
