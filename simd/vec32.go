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

package simd

// vec32 is a portable, slice-backed vector handle: a block of float32
// lanes sized to the process's detected BestISA. It plays the role the
// Highway-style Vec[T] abstraction plays in the teacher library's
// portable (non-goexperiment) fallback — every tier differs only in how
// many lanes are processed per unrolled block, since a standard `go
// build` has no access to hand-written architecture intrinsics.
//
// vec32 values are never constructed directly by callers; use zeroVec,
// loadVec, or splatVec.
type vec32 struct {
	lanes []float32
}

// laneWidth returns FloatsPerVec() for the active ISA tier.
func laneWidth() int { return FloatsPerVec() }

func zeroVec() vec32 {
	return vec32{lanes: make([]float32, laneWidth())}
}

func splatVec(v float32) vec32 {
	l := make([]float32, laneWidth())
	for i := range l {
		l[i] = v
	}
	return vec32{lanes: l}
}

// loadVec loads up to laneWidth() elements from src. If src is shorter
// than a full vector the remaining lanes are zero (callers only use
// loadVec on slices already known to have at least laneWidth() elements
// remaining; the scalar tail of each op handles the remainder).
func loadVec(src []float32) vec32 {
	n := min(len(src), laneWidth())
	l := make([]float32, laneWidth())
	copy(l, src[:n])
	return vec32{lanes: l}
}

func storeVec(v vec32, dst []float32) {
	n := min(len(dst), len(v.lanes))
	copy(dst[:n], v.lanes[:n])
}

func addVec(a, b vec32) vec32 {
	n := len(a.lanes)
	r := make([]float32, n)
	for i := 0; i < n; i++ {
		r[i] = a.lanes[i] + b.lanes[i]
	}
	return vec32{lanes: r}
}

func subVec(a, b vec32) vec32 {
	n := len(a.lanes)
	r := make([]float32, n)
	for i := 0; i < n; i++ {
		r[i] = a.lanes[i] - b.lanes[i]
	}
	return vec32{lanes: r}
}

func mulVec(a, b vec32) vec32 {
	n := len(a.lanes)
	r := make([]float32, n)
	for i := 0; i < n; i++ {
		r[i] = a.lanes[i] * b.lanes[i]
	}
	return vec32{lanes: r}
}

// mulAddVec computes a*b+c using Go's fused-multiply-add builtin so the
// single-rounding contract of spec.md's fma() holds even on the
// portable tier (math.FMA lowers to a hardware FMA instruction on every
// architecture Go supports, including amd64 and arm64).
func mulAddVec(a, b, c vec32) vec32 {
	n := len(a.lanes)
	r := make([]float32, n)
	for i := 0; i < n; i++ {
		r[i] = fma32(a.lanes[i], b.lanes[i], c.lanes[i])
	}
	return vec32{lanes: r}
}

func maxVec(a, b vec32) vec32 {
	n := len(a.lanes)
	r := make([]float32, n)
	for i := 0; i < n; i++ {
		if a.lanes[i] > b.lanes[i] {
			r[i] = a.lanes[i]
		} else {
			r[i] = b.lanes[i]
		}
	}
	return vec32{lanes: r}
}

// reduceSum horizontally sums all lanes of v.
func reduceSum(v vec32) float32 {
	var sum float32
	for _, x := range v.lanes {
		sum += x
	}
	return sum
}

// reduceMax horizontally takes the max of all lanes of v.
func reduceMax(v vec32) float32 {
	m := v.lanes[0]
	for _, x := range v.lanes[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
