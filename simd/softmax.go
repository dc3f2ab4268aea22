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

package simd

import (
	"math"

	"github.com/latticerun/corelm/errs"
	"github.com/latticerun/corelm/workerpool"
)

// softmaxRowParallelThreshold is the row count at or above which Softmax2D
// fans out across a worker pool, per spec.md §5 ("parallelise across
// rows when rows >= 32").
const softmaxRowParallelThreshold = 32

// Softmax2D computes a numerically-stable row-wise softmax of a
// [rows, cols] matrix: for each row, subtract the row max, exponentiate
// (scalar math.Exp, never a fast-exp approximation — spec.md §4.5.3
// forbids polynomial approximations inside softmax), then divide by the
// row sum. input and output may alias (in-place softmax is supported).
//
// pool may be nil, in which case rows are processed sequentially
// regardless of rows.
func Softmax2D(pool *workerpool.Pool, input, output []float32, rows, cols int) error {
	if len(input) != rows*cols || len(output) != rows*cols {
		return errs.Shapef("simd.Softmax2D", "len(input)=%d len(output)=%d rows=%d cols=%d", len(input), len(output), rows, cols)
	}
	if rows == 0 || cols == 0 {
		return nil
	}

	doRow := func(r int) {
		softmaxRow(input[r*cols:(r+1)*cols], output[r*cols:(r+1)*cols])
	}

	if pool != nil && rows >= softmaxRowParallelThreshold {
		pool.ParallelFor(rows, func(start, end int) {
			for r := start; r < end; r++ {
				doRow(r)
			}
		})
		return nil
	}

	for r := 0; r < rows; r++ {
		doRow(r)
	}
	return nil
}

// Softmax1D computes a numerically-stable softmax of a single vector.
func Softmax1D(input, output []float32) error {
	if len(input) != len(output) {
		return errs.Shapef("simd.Softmax1D", "len(input)=%d len(output)=%d", len(input), len(output))
	}
	softmaxRow(input, output)
	return nil
}

// LogSoftmax computes out[i] = x[i] - max - log(sum(exp(x-max))).
func LogSoftmax(input, output []float32) error {
	if len(input) != len(output) {
		return errs.Shapef("simd.LogSoftmax", "len(input)=%d len(output)=%d", len(input), len(output))
	}
	if len(input) == 0 {
		return nil
	}

	maxVal := reduceMaxScalarFallback(input)
	var sumExp float64
	for _, x := range input {
		sumExp += math.Exp(float64(x - maxVal))
	}
	logSum := float32(math.Log(sumExp))
	for i, x := range input {
		output[i] = x - maxVal - logSum
	}
	return nil
}

// softmaxRow performs the per-row stable softmax: SIMD max reduction,
// scalar exp (accuracy over throughput, per spec.md §4.5.3), SIMD scale
// by the reciprocal sum. row and out may alias.
func softmaxRow(row, out []float32) {
	n := len(row)
	if n == 0 {
		return
	}

	maxVal := reduceMaxScalarFallback(row)

	var sumExp float64
	for i, x := range row {
		e := float32(math.Exp(float64(x - maxVal)))
		out[i] = e
		sumExp += float64(e)
	}

	invSum := float32(1.0 / sumExp)
	scaleLoop(out, invSum, out)
}

// reduceMaxScalarFallback computes the row max using the SIMD-width
// reduction helper where a full vector is available, falling back to
// scalar comparisons for the tail — matching spec.md's "SIMD max
// reduction" requirement without needing a dedicated hand-written
// reduction kernel per ISA tier.
func reduceMaxScalarFallback(row []float32) float32 {
	n := len(row)
	lanes := laneWidth()
	i := lanes
	var acc vec32
	if n >= lanes {
		acc = loadVec(row)
	} else {
		return scalarMax(row)
	}
	for ; i+lanes <= n; i += lanes {
		acc = maxVec(acc, loadVec(row[i:]))
	}
	maxVal := reduceMax(acc)
	for ; i < n; i++ {
		if row[i] > maxVal {
			maxVal = row[i]
		}
	}
	return maxVal
}

func scalarMax(row []float32) float32 {
	m := row[0]
	for _, x := range row[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
