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

// Tensor is an owned, contiguous float32 buffer plus its shape
// (spec.md §3). Grad is nil unless the tensor was created with
// needsGrad=true; this core is inference-only (no autograd is
// implemented here) but the field exists so a training-time caller
// could attach one without changing the Tensor layout. Tensors carry
// no aliasing to other tensors: Data is never a sub-slice of another
// Tensor's Data.
type Tensor struct {
	Data  []float32
	Shape Shape
	Grad  []float32
}

// newTensor allocates a Tensor of the given shape, zeroed (make
// already zeroes), and a Grad buffer of identical length iff needsGrad.
func newTensor(shape Shape, needsGrad bool) *Tensor {
	n := shape.NumElements()
	t := &Tensor{
		Data:  make([]float32, n),
		Shape: shape.Clone(),
	}
	if needsGrad {
		t.Grad = make([]float32, n)
	}
	return t
}

// zero clears Data (and Grad, if present) in place without
// reallocating, the operation that makes workspace reuse safe.
func (t *Tensor) zero() {
	for i := range t.Data {
		t.Data[i] = 0
	}
	for i := range t.Grad {
		t.Grad[i] = 0
	}
}
