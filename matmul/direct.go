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

package matmul

import "github.com/latticerun/corelm/simd"

// directSizeThreshold is the M*N element count below which the cache
// blocking machinery in blocked.go isn't worth its own setup cost
// (spec.md §4.3.3): a direct triple loop with an FMA inner accumulator
// already fits the relevant working set in L1/L2 at this scale.
const directSizeThreshold = 65000

// directMatMul computes C = A·B (or C += A·B) over rows [rowStart,
// rowEnd) with a plain ikj loop order, FMA-accumulated a vec32 lane at
// a time along N. Used for small problem sizes where macroblocking
// would add overhead without improving cache reuse.
func directMatMul(a, b, c []float32, m, k, n, ldc int, rowStart, rowEnd int, accumulate bool) {
	if !accumulate {
		for i := rowStart; i < rowEnd; i++ {
			row := c[i*ldc : i*ldc+n]
			for j := range row {
				row[j] = 0
			}
		}
	}

	lanes := simd.FloatsPerVec()
	for i := rowStart; i < rowEnd; i++ {
		aRow := a[i*k : i*k+k]
		cRow := c[i*ldc : i*ldc+n]
		for p := 0; p < k; p++ {
			aVal := aRow[p]
			if aVal == 0 {
				continue
			}
			bRow := b[p*n : p*n+n]

			j := 0
			for ; j+lanes <= n; j += lanes {
				for l := 0; l < lanes; l++ {
					cRow[j+l] += aVal * bRow[j+l]
				}
			}
			for ; j < n; j++ {
				cRow[j] += aVal * bRow[j]
			}
		}
	}
}
