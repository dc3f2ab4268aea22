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
	"runtime"

	"github.com/latticerun/corelm/errs"
	"github.com/latticerun/corelm/workerpool"
)

// transposeBParallelM and transposeBParallelK are the row-parallel
// thresholds for MatmulTransposeB per spec.md §5: both dimensions must
// clear 64 before fan-out pays for itself, since Q·Kᵀ scoring tiles are
// typically much smaller than the FFN/projection GEMMs dispatchBlocked
// handles.
const transposeBParallelM = 64
const transposeBParallelK = 64

// transposeBColBlock is the column register-blocking width: four
// columns of B^T (i.e. four rows of B) are accumulated together per A
// row, each via a 2x-unrolled K loop, which is the register-tiling
// scheme spec.md §4.3.5 calls for on the transpose-B path.
const transposeBColBlock = 4

// MatmulTransposeB computes C = A·Bᵀ, where A is M x K and B is N x K
// (both row-major), producing C as M x N. This is the attention-scoring
// shape Q·Kᵀ: each output element is a dot product of one A row against
// one B row, so unlike the plain GEMM path there is no benefit to
// packing B — its rows are already contiguous in the layout this
// function wants.
func MatmulTransposeB(pool *workerpool.Pool, a, b, c []float32, m, k, n int) error {
	const op = "matmul.MatmulTransposeB"
	if m <= 0 || k <= 0 || n <= 0 {
		return errs.Dimensionf(op, "m, k, n must be positive, got m=%d k=%d n=%d", m, k, n)
	}
	if len(a) != m*k {
		return errs.Shapef(op, "len(a) = %d, want m*k = %d", len(a), m*k)
	}
	if len(b) != n*k {
		return errs.Shapef(op, "len(b) = %d, want n*k = %d", len(b), n*k)
	}
	if len(c) != m*n {
		return errs.Shapef(op, "len(c) = %d, want m*n = %d", len(c), m*n)
	}

	run := func(start, end int) { transposeBRows(a, b, c, k, n, start, end) }

	if pool == nil || m < transposeBParallelM || k < transposeBParallelK || runtime.GOMAXPROCS(0) < rowParallelMinCores {
		run(0, m)
		return nil
	}

	chunk := max(4, m/(2*pool.NumWorkers()))
	numChunks := (m + chunk - 1) / chunk
	pool.ParallelForAtomic(numChunks, func(ci int) {
		start := ci * chunk
		end := min(start+chunk, m)
		transposeBRows(a, b, c, k, n, start, end)
	})
	return nil
}

// transposeBRows computes rows [rowStart, rowEnd) of C = A·Bᵀ, four
// columns (B rows) at a time with a 2x-unrolled K loop.
func transposeBRows(a, b, c []float32, k, n, rowStart, rowEnd int) {
	for i := rowStart; i < rowEnd; i++ {
		aRow := a[i*k : i*k+k]
		cRow := c[i*n : i*n+n]

		j := 0
		for ; j+transposeBColBlock <= n; j += transposeBColBlock {
			var acc0, acc1, acc2, acc3 float32
			b0 := b[(j+0)*k : (j+0)*k+k]
			b1 := b[(j+1)*k : (j+1)*k+k]
			b2 := b[(j+2)*k : (j+2)*k+k]
			b3 := b[(j+3)*k : (j+3)*k+k]

			p := 0
			for ; p+2 <= k; p += 2 {
				a0, a1 := aRow[p], aRow[p+1]
				acc0 += a0*b0[p] + a1*b0[p+1]
				acc1 += a0*b1[p] + a1*b1[p+1]
				acc2 += a0*b2[p] + a1*b2[p+1]
				acc3 += a0*b3[p] + a1*b3[p+1]
			}
			for ; p < k; p++ {
				av := aRow[p]
				acc0 += av * b0[p]
				acc1 += av * b1[p]
				acc2 += av * b2[p]
				acc3 += av * b3[p]
			}

			cRow[j+0] = acc0
			cRow[j+1] = acc1
			cRow[j+2] = acc2
			cRow[j+3] = acc3
		}

		for ; j < n; j++ {
			bRow := b[j*k : j*k+k]
			var acc float32
			for p := 0; p < k; p++ {
				acc += aRow[p] * bRow[p]
			}
			cRow[j] = acc
		}
	}
}
