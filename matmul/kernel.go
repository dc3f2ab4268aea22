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

// maxMr and maxNr bound the microkernel tile dimensions across every
// ISA tier's CacheParams (cache_params.go): the widest tile in use is
// AVX-512's 6x32. microTile/microTileRagged size their accumulators
// from these compile-time constants rather than mr/nr themselves so
// the accumulator is a fixed-size array, never a heap allocation.
const maxMr = 6
const maxNr = 32

// microTile computes one Mr x Nr output tile of C = A·B (or C += A·B)
// over the K-slice [k0, k0+kc), keeping the Mr x (Nr/lanes) accumulators
// resident for the entire sweep and storing to C exactly once. This is
// the register-residency discipline spec.md §4.3/§9 calls the single
// most important property of the GEMM engine: "loading C inside the K
// loop... dissolves a large fraction of achievable GFLOPS."
//
//   - a is the full A matrix, row-major, M x K (original, un-blocked stride K).
//   - b is the full B matrix, row-major, K x N (original, un-blocked stride N).
//   - c is the full C matrix, row-major, M x N, row stride ldc.
//   - (iRow, jCol) is the tile's top-left corner in A-row / C-column space.
//   - k0, kc select the K-slice this call sweeps (a macroblock's Kc tile).
//   - mr, nr are the microkernel tile dimensions (nr must be a multiple
//     of FloatsPerVec()).
//   - accumulate selects whether the tile's initial accumulator value
//     is loaded from C (true) or starts at zero (false). Within a
//     multi-Kc-block sweep the caller passes accumulate=true for every
//     K-block after the first, regardless of the GEMM's own overwrite/
//     add mode, since by then C already holds the partial sum.
func microTile(a, b, c []float32, k, n, ldc int, iRow, jCol, k0, kc, mr, nr int, accumulate bool) {
	var acc [maxMr][maxNr]float32
	if accumulate {
		for r := 0; r < mr; r++ {
			copy(acc[r][:nr], c[(iRow+r)*ldc+jCol:(iRow+r)*ldc+jCol+nr])
		}
	}

	for p := k0; p < k0+kc; p++ {
		bRow := b[p*n+jCol : p*n+jCol+nr]
		for r := 0; r < mr; r++ {
			aVal := a[(iRow+r)*k+p]
			accRow := &acc[r]
			for s := 0; s < nr; s++ {
				accRow[s] += aVal * bRow[s]
			}
		}
	}

	for r := 0; r < mr; r++ {
		copy(c[(iRow+r)*ldc+jCol:(iRow+r)*ldc+jCol+nr], acc[r][:nr])
	}
}

// microTileRagged is microTile without the fixed Mr x Nr assumption,
// used at block edges that don't divide evenly by Mr/Nr. rows and cols
// are always <= maxMr/maxNr since they're the remainder of a Mr/Nr
// sweep, so the same fixed-size accumulator applies.
func microTileRagged(a, b, c []float32, k, n, ldc int, iRow, jCol, k0, kc, rows, cols int, accumulate bool) {
	var acc [maxMr][maxNr]float32
	if accumulate {
		for r := 0; r < rows; r++ {
			copy(acc[r][:cols], c[(iRow+r)*ldc+jCol:(iRow+r)*ldc+jCol+cols])
		}
	}
	for p := k0; p < k0+kc; p++ {
		bRow := b[p*n+jCol : p*n+jCol+cols]
		for r := 0; r < rows; r++ {
			aVal := a[(iRow+r)*k+p]
			accRow := &acc[r]
			for s := 0; s < cols; s++ {
				accRow[s] += aVal * bRow[s]
			}
		}
	}
	for r := 0; r < rows; r++ {
		copy(c[(iRow+r)*ldc+jCol:(iRow+r)*ldc+jCol+cols], acc[r][:cols])
	}
}

// lanesForTile reports the current ISA tier's native vector width, the
// unit an Nr must be a multiple of. Nothing in this package calls it.
func lanesForTile() int { return simd.FloatsPerVec() }
