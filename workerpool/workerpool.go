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

// Package workerpool provides a persistent, reusable worker pool for the
// parallel sections required by spec.md §5 (row-tile GEMM parallelism,
// row-parallel softmax, transpose-B GEMM). A Pool is created once per
// process (or per session) and reused across every forward pass,
// eliminating the per-call goroutine-spawn cost that would otherwise
// dominate at transformer-block granularity: a single forward step
// issues dozens of matmuls, each too small individually to amortize a
// fresh goroutine spawn.
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a persistent worker pool. Workers are spawned once at
// creation and block on an internal channel until Close.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New creates a pool with numWorkers persistent goroutines. If
// numWorkers <= 0, runtime.GOMAXPROCS(0) is used.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan workItem, numWorkers*2),
	}
	for range numWorkers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of goroutines backing this pool.
func (p *Pool) NumWorkers() int { return p.numWorkers }

// Close shuts the pool down. Safe to call multiple times. Pending work
// already queued is allowed to drain via ParallelFor's own WaitGroup
// before Close tears down the channel, so Close should only be called
// once no ParallelFor/ParallelForAtomic call is in flight.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// ParallelFor partitions [0, n) into NumWorkers contiguous strips and
// runs fn(start, end) for each strip, blocking until all strips
// complete. If the pool is closed, or n is small enough that only one
// worker strip would exist, fn runs once inline on the caller's
// goroutine (spec.md §5: sub-threshold work must execute on the
// caller's thread, not fan out).
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if p.closed.Load() {
		fn(0, n)
		return
	}

	workers := min(p.numWorkers, n)
	if workers <= 1 {
		fn(0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := range workers {
		start := i * chunkSize
		end := min(start+chunkSize, n)
		if start >= n {
			wg.Done()
			continue
		}
		p.workC <- workItem{
			fn:      func() { fn(start, end) },
			barrier: &wg,
		}
	}
	wg.Wait()
}

// ParallelForAtomic dispatches n individual units of work via an
// atomic counter (work-stealing), giving better load balance than
// ParallelFor's fixed strips when per-unit cost varies (e.g. per-head
// attention with ragged causal masks).
func (p *Pool) ParallelForAtomic(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if p.closed.Load() || p.numWorkers <= 1 {
		for i := range n {
			fn(i)
		}
		return
	}

	var next atomic.Int64
	workers := min(p.numWorkers, n)
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		p.workC <- workItem{
			fn: func() {
				for {
					i := next.Add(1) - 1
					if i >= int64(n) {
						return
					}
					fn(int(i))
				}
			},
			barrier: &wg,
		}
	}
	wg.Wait()
}
