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

import "github.com/latticerun/corelm/errs"

// PackedB is a pre-packed weight matrix for repeated-use GEMMs, the
// common case in inference where the same projection weight is
// multiplied against a new activation on every forward pass
// (spec.md §4.3.4). Packing rewrites B into Nr-wide column panels laid
// out contiguously in K-major order, so the microkernel's innermost
// loop reads sequential memory instead of striding by the original row
// length n.
type PackedB struct {
	k, n int
	nr   int
	// data holds ceil(n/nr) panels, each a contiguous k*nr block:
	// panel p, row kk, lane l is at data[p*k*nr + kk*nr + l]. Columns
	// past the true n within the last panel are padded with zero so
	// every panel is uniformly nr-wide.
	data []float32
}

// K reports the shared (contraction) dimension this packing was built for.
func (p *PackedB) K() int { return p.k }

// N reports the original (unpadded) column count.
func (p *PackedB) N() int { return p.n }

// PackB repacks b (k x n, row-major) into panel-major layout using the
// active ISA tier's Nr. The result can be reused across many calls to
// MatmulPacked as long as b itself doesn't change.
func PackB(b []float32, k, n int) (*PackedB, error) {
	const op = "matmul.PackB"
	if k <= 0 || n <= 0 {
		return nil, errs.Dimensionf(op, "k, n must be positive, got k=%d n=%d", k, n)
	}
	if len(b) != k*n {
		return nil, errs.Shapef(op, "len(b) = %d, want k*n = %d", len(b), k*n)
	}

	nr := activeCacheParams.Nr
	numPanels := (n + nr - 1) / nr
	data := make([]float32, numPanels*k*nr)

	for panel := 0; panel < numPanels; panel++ {
		jStart := panel * nr
		jEnd := min(jStart+nr, n)
		width := jEnd - jStart
		base := panel * k * nr
		for kk := 0; kk < k; kk++ {
			copy(data[base+kk*nr:base+kk*nr+width], b[kk*n+jStart:kk*n+jEnd])
			// Remaining [width, nr) lanes stay zero from make(), which
			// is safe: the padded output columns are never read back
			// by MatmulPacked since it only writes the true n columns
			// of c.
		}
	}

	return &PackedB{k: k, n: n, nr: nr, data: data}, nil
}
