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

package nn

import (
	"github.com/latticerun/corelm/errs"
	"github.com/latticerun/corelm/matmul"
	"github.com/latticerun/corelm/workerpool"
)

// QuantizedWeight is the minimal contract a quantized-weight adapter
// must satisfy to participate in FusedQuantMatMul (spec.md §6: "a
// matmul-shaped entry point with the same contract as §4.3 so the core
// can remain agnostic to quantization format"). DequantizeRows must
// produce the row-major [rowStart, rowEnd) x N() slice of the
// dequantized K x N weight into dst (len(dst) == (rowEnd-rowStart)*N()),
// failing if it encounters a malformed block within that row range —
// row-range chunking is what lets the default dispatch path dequantize
// concurrently across a worker pool.
type QuantizedWeight interface {
	K() int
	N() int
	DequantizeRows(dst []float32, rowStart, rowEnd int) error
}

// FusedQuantMatMul is a dispatch point for a quantized-weight GEMM,
// grounded directly on the teacher's dispatch.go function-variable
// pattern (ParallelFusedNF4MatMul/ParallelFusedInt4MatMul/
// ParallelFusedInt8MatMul): a package-level var so an external
// quantized-weight adapter can override it with a fused
// dequantize+multiply kernel for its specific format, without this
// core depending on any quantization format itself. The default,
// installed by init, dequantizes into a scratch buffer and calls
// matmul.Matmul — correct but not fused; a real NF4/Int4/Int8 adapter
// is expected to replace this var with something that never
// materializes the full dequantized weight.
var FusedQuantMatMul func(pool *workerpool.Pool, a []float32, weight QuantizedWeight, c []float32, m int, accumulate bool) error

func init() {
	FusedQuantMatMul = dequantizeThenMatMul
}

// dequantizeThenMatMul dequantizes weight's K x N matrix in row-chunks
// across pool (via the fallible workerpool.Pool.ParallelForErr, since a
// malformed quantized block is a real per-chunk failure mode, unlike
// the error-free GEMM/softmax/SDPA hot paths) before calling
// matmul.Matmul on the materialized result.
func dequantizeThenMatMul(pool *workerpool.Pool, a []float32, weight QuantizedWeight, c []float32, m int, accumulate bool) error {
	const op = "nn.FusedQuantMatMul"
	if weight == nil {
		return errs.Shapef(op, "weight is nil")
	}
	k, n := weight.K(), weight.N()
	dequantized := make([]float32, k*n)

	if pool == nil {
		if err := weight.DequantizeRows(dequantized, 0, k); err != nil {
			return errs.New(op, errs.InvalidState, err.Error())
		}
	} else if err := pool.ParallelForErr(k, func(start, end int) error {
		return weight.DequantizeRows(dequantized[start*n:end*n], start, end)
	}); err != nil {
		return errs.New(op, errs.InvalidState, err.Error())
	}

	return matmul.Matmul(pool, a, dequantized, c, m, k, n, accumulate)
}
