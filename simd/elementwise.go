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

import "github.com/latticerun/corelm/errs"

// Add computes out[i] = a[i] + b[i] for all i. a, b, out must have
// equal length or Add returns a ShapeMismatch error.
func Add(a, b, out []float32) error {
	if len(a) != len(b) || len(a) != len(out) {
		return errs.Shapef("simd.Add", "len(a)=%d len(b)=%d len(out)=%d", len(a), len(b), len(out))
	}
	addLoop(a, b, out)
	return nil
}

// Sub computes out[i] = a[i] - b[i] for all i.
func Sub(a, b, out []float32) error {
	if len(a) != len(b) || len(a) != len(out) {
		return errs.Shapef("simd.Sub", "len(a)=%d len(b)=%d len(out)=%d", len(a), len(b), len(out))
	}
	subLoop(a, b, out)
	return nil
}

// Mul computes out[i] = a[i] * b[i] for all i.
func Mul(a, b, out []float32) error {
	if len(a) != len(b) || len(a) != len(out) {
		return errs.Shapef("simd.Mul", "len(a)=%d len(b)=%d len(out)=%d", len(a), len(b), len(out))
	}
	mulLoop(a, b, out)
	return nil
}

// FMA computes out[i] = a[i]*b[i] + c[i] for all i, using a true FMA
// instruction (a single rounding) per lane.
func FMA(a, b, c, out []float32) error {
	if len(a) != len(b) || len(a) != len(c) || len(a) != len(out) {
		return errs.Shapef("simd.FMA", "len(a)=%d len(b)=%d len(c)=%d len(out)=%d", len(a), len(b), len(c), len(out))
	}
	fmaLoop(a, b, c, out)
	return nil
}

// Scale computes out[i] = a[i] * s for all i (broadcast scalar).
func Scale(a []float32, s float32, out []float32) error {
	if len(a) != len(out) {
		return errs.Shapef("simd.Scale", "len(a)=%d len(out)=%d", len(a), len(out))
	}
	scaleLoop(a, s, out)
	return nil
}

// AddInPlace computes a[i] += b[i] for all i, mutating a.
func AddInPlace(a, b []float32) error {
	if len(a) != len(b) {
		return errs.Shapef("simd.AddInPlace", "len(a)=%d len(b)=%d", len(a), len(b))
	}
	addLoop(a, b, a)
	return nil
}

// AddScalarInPlace computes a[i] += s for all i, mutating a.
func AddScalarInPlace(a []float32, s float32) error {
	addScalarLoop(a, s, a)
	return nil
}

// AddScalar computes out[i] = a[i] + s for all i, without mutating a.
// It is the non-mutating sibling of AddScalarInPlace; no other package
// in this module calls it.
func AddScalar(a []float32, s float32, out []float32) error {
	if len(a) != len(out) {
		return errs.Shapef("simd.AddScalar", "len(a)=%d len(out)=%d", len(a), len(out))
	}
	addScalarLoop(a, s, out)
	return nil
}

// ClampInPlace saturates every element of a to [lo, hi], a guard against
// exp() overflow on extreme inputs, grounded on the teacher library's
// sigmoid saturation constants (hwy/contrib/math/constants.go's
// sigmoidSatHi/Lo). The attention-score path in package nn does not
// call it.
func ClampInPlace(a []float32, lo, hi float32) error {
	if lo > hi {
		return errs.Shapef("simd.ClampInPlace", "lo=%v > hi=%v", lo, hi)
	}
	for i, x := range a {
		switch {
		case x < lo:
			a[i] = lo
		case x > hi:
			a[i] = hi
		}
	}
	return nil
}

// addLoop, subLoop, mulLoop, fmaLoop, scaleLoop, addScalarLoop are the
// unrolled-by-lane-width bodies shared by every public wrapper above.
// out may alias a and/or b (all softmax and in-place ops rely on this).

func addLoop(a, b, out []float32) {
	n := len(a)
	lanes := laneWidth()
	i := 0
	for ; i+lanes <= n; i += lanes {
		va := loadVec(a[i:])
		vb := loadVec(b[i:])
		storeVec(addVec(va, vb), out[i:])
	}
	for ; i < n; i++ {
		out[i] = a[i] + b[i]
	}
}

func subLoop(a, b, out []float32) {
	n := len(a)
	lanes := laneWidth()
	i := 0
	for ; i+lanes <= n; i += lanes {
		va := loadVec(a[i:])
		vb := loadVec(b[i:])
		storeVec(subVec(va, vb), out[i:])
	}
	for ; i < n; i++ {
		out[i] = a[i] - b[i]
	}
}

func mulLoop(a, b, out []float32) {
	n := len(a)
	lanes := laneWidth()
	i := 0
	for ; i+lanes <= n; i += lanes {
		va := loadVec(a[i:])
		vb := loadVec(b[i:])
		storeVec(mulVec(va, vb), out[i:])
	}
	for ; i < n; i++ {
		out[i] = a[i] * b[i]
	}
}

func fmaLoop(a, b, c, out []float32) {
	n := len(a)
	lanes := laneWidth()
	i := 0
	for ; i+lanes <= n; i += lanes {
		va := loadVec(a[i:])
		vb := loadVec(b[i:])
		vc := loadVec(c[i:])
		storeVec(mulAddVec(va, vb, vc), out[i:])
	}
	for ; i < n; i++ {
		out[i] = fma32(a[i], b[i], c[i])
	}
}

func scaleLoop(a []float32, s float32, out []float32) {
	n := len(a)
	lanes := laneWidth()
	vs := splatVec(s)
	i := 0
	for ; i+lanes <= n; i += lanes {
		va := loadVec(a[i:])
		storeVec(mulVec(va, vs), out[i:])
	}
	for ; i < n; i++ {
		out[i] = a[i] * s
	}
}

func addScalarLoop(a []float32, s float32, out []float32) {
	n := len(a)
	lanes := laneWidth()
	vs := splatVec(s)
	i := 0
	for ; i+lanes <= n; i += lanes {
		va := loadVec(a[i:])
		storeVec(addVec(va, vs), out[i:])
	}
	for ; i < n; i++ {
		out[i] = a[i] + s
	}
}
