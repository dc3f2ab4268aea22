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

// blockedMatMul computes C = A·B (or C += A·B when accumulate) over
// rows [rowStart, rowEnd) of A/C, using three-level (Nc -> Kc -> Mc)
// cache blocking per spec.md §4.3.2. The macro loop order is
// nc -> kc -> mc so the Kc x Nc slab of B stays resident in cache while
// Mc-row panels of A stream through it.
func blockedMatMul(a, b, c []float32, m, k, n, ldc int, rowStart, rowEnd int, accumulate bool) {
	p := activeCacheParams

	for j0 := 0; j0 < n; j0 += p.Nc {
		jEnd := min(j0+p.Nc, n)

		for k0 := 0; k0 < k; k0 += p.Kc {
			kEnd := min(k0+p.Kc, k)
			kc := kEnd - k0

			// After the first K-block for this (row panel, column
			// panel), C already holds a partial sum and every
			// subsequent microTile call must accumulate into it,
			// independent of the GEMM's own overwrite/add mode.
			accThisBlock := accumulate || k0 > 0

			for i0 := rowStart; i0 < rowEnd; i0 += p.Mc {
				iEnd := min(i0+p.Mc, rowEnd)
				sweepMicroPanel(a, b, c, k, n, ldc, i0, iEnd, j0, jEnd, k0, kc, p.Mr, p.Nr, accThisBlock)
			}
		}
	}
}

// sweepMicroPanel tiles one Mc x Kc x Nc macroblock into Mr x Nr
// microkernel calls, handling ragged edges on both M and N.
func sweepMicroPanel(a, b, c []float32, k, n, ldc, iStart, iEnd, jStart, jEnd, k0, kc, mr, nr int, accumulate bool) {
	var i int
	for i = iStart; i+mr <= iEnd; i += mr {
		var j int
		for j = jStart; j+nr <= jEnd; j += nr {
			microTile(a, b, c, k, n, ldc, i, j, k0, kc, mr, nr, accumulate)
		}
		if j < jEnd {
			microTileRagged(a, b, c, k, n, ldc, i, j, k0, kc, mr, jEnd-j, accumulate)
		}
	}
	if i < iEnd {
		rows := iEnd - i
		var j int
		for j = jStart; j+nr <= jEnd; j += nr {
			microTileRagged(a, b, c, k, n, ldc, i, j, k0, kc, rows, nr, accumulate)
		}
		if j < jEnd {
			microTileRagged(a, b, c, k, n, ldc, i, j, k0, kc, rows, jEnd-j, accumulate)
		}
	}
}
