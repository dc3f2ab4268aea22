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

package workerpool

import "golang.org/x/sync/errgroup"

// ParallelForErr is the fallible counterpart to ParallelFor: fn may
// return an error, and the first non-nil error from any strip is
// returned to the caller once all strips have finished. Used by
// dispatch paths that can fail mid-flight (e.g. a quantized-weight
// matmul variant rejecting a malformed block), where plain ParallelFor's
// error-free signature doesn't fit. The error-free hot paths (GEMM,
// softmax, SDPA) continue to use ParallelFor/ParallelForAtomic with a
// bare sync.WaitGroup, since they cannot fail once their public wrapper
// has validated shapes.
func (p *Pool) ParallelForErr(n int, fn func(start, end int) error) error {
	if n <= 0 {
		return nil
	}

	workers := min(p.numWorkers, n)
	if p.closed.Load() || workers <= 1 {
		return fn(0, n)
	}

	chunkSize := (n + workers - 1) / workers
	var g errgroup.Group
	for i := range workers {
		start := i * chunkSize
		end := min(start+chunkSize, n)
		if start >= n {
			continue
		}
		g.Go(func() error { return fn(start, end) })
	}
	return g.Wait()
}
