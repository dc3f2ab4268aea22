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

// DotProduct computes sum(a[i]*b[i]) via FMA accumulation into a SIMD
// register-width accumulator, horizontally reduced once at the end —
// the same register-residency discipline the GEMM microkernels use
// (accumulate across the whole reduction dimension, store/reduce once).
func DotProduct(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, errs.Shapef("simd.DotProduct", "len(a)=%d len(b)=%d", len(a), len(b))
	}
	n := len(a)
	lanes := laneWidth()
	acc := zeroVec()
	i := 0
	for ; i+lanes <= n; i += lanes {
		va := loadVec(a[i:])
		vb := loadVec(b[i:])
		acc = mulAddVec(va, vb, acc)
	}
	sum := reduceSum(acc)
	for ; i < n; i++ {
		sum = fma32(a[i], b[i], sum)
	}
	return sum, nil
}
