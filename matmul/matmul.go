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

import (
	"github.com/latticerun/corelm/errs"
	"github.com/latticerun/corelm/workerpool"
)

// Matmul computes C = A·B where A is M x K, B is K x N and C is M x N,
// all row-major and densely packed (ldc == N). When accumulate is
// false, C is overwritten; the caller must not rely on C's prior
// contents in that case, and Matmul zeroes it itself before summing.
// When accumulate is true, the product is added onto C's existing
// values.
//
// pool may be nil, in which case Matmul always runs single-threaded
// regardless of problem size (spec.md §5: parallelism is always
// optional via a nil pool).
func Matmul(pool *workerpool.Pool, a, b, c []float32, m, k, n int, accumulate bool) error {
	const op = "matmul.Matmul"

	if m <= 0 || k <= 0 || n <= 0 {
		return errs.Dimensionf(op, "m, k, n must be positive, got m=%d k=%d n=%d", m, k, n)
	}
	if len(a) != m*k {
		return errs.Shapef(op, "len(a) = %d, want m*k = %d", len(a), m*k)
	}
	if len(b) != k*n {
		return errs.Shapef(op, "len(b) = %d, want k*n = %d", len(b), k*n)
	}
	if len(c) != m*n {
		return errs.Shapef(op, "len(c) = %d, want m*n = %d", len(c), m*n)
	}

	if m*n < directSizeThreshold {
		dispatchDirect(pool, a, b, c, m, k, n, n, accumulate)
		return nil
	}

	if !accumulate {
		zeroMatrix(c)
	}
	dispatchBlocked(pool, a, b, c, m, k, n, n, true)
	return nil
}

// zeroMatrix clears c so the blocked path can always accumulate (its
// macro loop order revisits each output tile across multiple K-blocks,
// so it cannot cheaply distinguish "first write" from "add" the way
// directMatMul's single K-sweep-per-row can).
func zeroMatrix(c []float32) {
	for i := range c {
		c[i] = 0
	}
}
