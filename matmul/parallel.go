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

	"github.com/latticerun/corelm/workerpool"
)

// rowParallelMThreshold and rowParallelMinCores gate row-tile
// parallelism per spec.md §5: below M=128, or on a single core, the
// fan-out overhead swamps the work available per goroutine.
const rowParallelMThreshold = 128

const rowParallelMinCores = 2

// dispatchBlocked runs blockedMatMul over [0, m) rows, splitting across
// pool when the problem is large enough to amortize the fan-out
// (spec.md §5). A nil pool always runs single-threaded.
func dispatchBlocked(pool *workerpool.Pool, a, b, c []float32, m, k, n, ldc int, accumulate bool) {
	if pool == nil || m < rowParallelMThreshold || runtime.GOMAXPROCS(0) < rowParallelMinCores {
		blockedMatMul(a, b, c, m, k, n, ldc, 0, m, accumulate)
		return
	}
	pool.ParallelFor(m, func(start, end int) {
		blockedMatMul(a, b, c, m, k, n, ldc, start, end, accumulate)
	})
}

// dispatchDirect is directMatMul's parallel-dispatch counterpart, used
// by the small-matrix path when M still clears the row-parallel
// threshold (e.g. a tall-skinny M x K x 1 GEMM).
func dispatchDirect(pool *workerpool.Pool, a, b, c []float32, m, k, n, ldc int, accumulate bool) {
	if pool == nil || m < rowParallelMThreshold || runtime.GOMAXPROCS(0) < rowParallelMinCores {
		directMatMul(a, b, c, m, k, n, ldc, 0, m, accumulate)
		return
	}
	pool.ParallelFor(m, func(start, end int) {
		directMatMul(a, b, c, m, k, n, ldc, start, end, accumulate)
	})
}
