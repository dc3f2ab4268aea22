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

// MatmulPacked computes C = A·B (or C += A·B) using a PackedB produced
// by PackB in place of a raw B matrix. This is the hot path for
// inference projections, where the same weight matrix is reused across
// every token/forward pass and the panel-major layout turns the
// microkernel's B reads into a sequential scan instead of a strided one
// (spec.md §4.3.4).
func MatmulPacked(pool *workerpool.Pool, a []float32, packed *PackedB, c []float32, m int, accumulate bool) error {
	const op = "matmul.MatmulPacked"
	if packed == nil {
		return errs.Shapef(op, "packed is nil")
	}
	k, n := packed.k, packed.n
	if m <= 0 {
		return errs.Dimensionf(op, "m must be positive, got %d", m)
	}
	if len(a) != m*k {
		return errs.Shapef(op, "len(a) = %d, want m*k = %d", len(a), m*k)
	}
	if len(c) != m*n {
		return errs.Shapef(op, "len(c) = %d, want m*n = %d", len(c), m*n)
	}

	if !accumulate {
		zeroMatrix(c)
	}

	run := func(start, end int) { packedMatMulRows(a, packed, c, m, n, start, end) }

	if pool == nil || m < rowParallelMThreshold || runtime.GOMAXPROCS(0) < rowParallelMinCores {
		run(0, m)
		return nil
	}
	pool.ParallelFor(m, run)
	return nil
}

// packedMatMulRows sweeps rows [rowStart, rowEnd) of A against every
// panel of packed, accumulating directly into C. Always adds onto C's
// existing contents; MatmulPacked zeroes C first when accumulate=false.
func packedMatMulRows(a []float32, packed *PackedB, c []float32, m, n, rowStart, rowEnd int) {
	k, nr := packed.k, packed.nr
	numPanels := len(packed.data) / (k * nr)

	for i := rowStart; i < rowEnd; i++ {
		aRow := a[i*k : i*k+k]
		cRow := c[i*n : i*n+n]

		for panel := 0; panel < numPanels; panel++ {
			jStart := panel * nr
			width := min(nr, n-jStart)
			if width <= 0 {
				continue
			}
			base := panel * k * nr
			// nr (and so width) never exceeds maxNr (packing.go picks
			// nr from activeCacheParams.Nr); a fixed-size array keeps
			// this hot loop allocation-free.
			var acc [maxNr]float32

			for kk := 0; kk < k; kk++ {
				aVal := aRow[kk]
				if aVal == 0 {
					continue
				}
				panelRow := packed.data[base+kk*nr : base+kk*nr+width]
				for l := 0; l < width; l++ {
					acc[l] += aVal * panelRow[l]
				}
			}

			dst := cRow[jStart : jStart+width]
			for l := 0; l < width; l++ {
				dst[l] += acc[l]
			}
		}
	}
}
