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

// Package matmul implements the dense GEMM engine (spec.md §4.3): a
// row-major C = A·B with per-ISA-tier microkernels, a packed-B variant
// for repeated-weight inference, and a transpose-B variant specialized
// for Q·Kᵀ attention scoring. All three share the same three-level
// (L3/L2/L1) cache blocking scheme.
package matmul

import "github.com/latticerun/corelm/simd"

// CacheParams holds the blocking dimensions for the GotoBLAS-style
// macro loop: Nc (L3 tile of B), Kc (L2 tile of B / L1 packed-A strip),
// Mc (L2 tile of A), and the register-blocking microkernel tile Mr x Nr.
type CacheParams struct {
	Mr int // microkernel tile rows (register blocking)
	Nr int // microkernel tile cols (register blocking, = 2x lanes per ISA tier)
	Kc int // L1/L2 K-blocking
	Mc int // L2 M-blocking
	Nc int // L3 N-blocking
}

// cacheParamsFor returns blocking parameters tuned for the given ISA
// tier, per spec.md §4.3.2: NC≈4096, KC≈512, MC≈128-256, with Nr equal
// to twice the tier's native lane width so each microkernel row spans
// two vector registers (e.g. AVX2's 6x16 tile is two 8-wide accumulators
// per row).
func cacheParamsFor(isa simd.ISA) CacheParams {
	switch isa {
	case simd.ISAAVX512:
		return CacheParams{Mr: 6, Nr: 32, Kc: 512, Mc: 256, Nc: 4096}
	case simd.ISAAVX2:
		return CacheParams{Mr: 6, Nr: 16, Kc: 512, Mc: 256, Nc: 4096}
	case simd.ISANEON:
		return CacheParams{Mr: 4, Nr: 8, Kc: 256, Mc: 128, Nc: 2048}
	default: // ISAPortable
		return CacheParams{Mr: 4, Nr: 8, Kc: 128, Mc: 128, Nc: 1024}
	}
}

// activeCacheParams are the process-wide blocking parameters selected
// once at init from simd.BestISA(), mirroring spec.md §4.1's "no
// runtime probing in hot paths" rule — matmul never re-derives this
// per call.
var activeCacheParams = cacheParamsFor(simd.BestISA())
