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

// FusedQKVProjection fuses the three Q/K/V projection GEMMs spec.md
// §2's data-flow diagram calls out ("three GEMMs producing Q/K/V") into
// one call against a single resident input tile, grounded on the
// teacher's BaseQKVDense (qkvdense_base.go): there, a single stacked
// weight matrix and one matmul pass produces all three outputs in one
// sweep over x. This core keeps Q/K/V as three independently packed
// weights (matmul.PackedB, since each projection is typically loaded
// and reused independently rather than pre-stacked by the model
// loader) but still shares the same resident x tile across all three
// matmul.MatmulPacked calls, avoiding the three independent reads of x
// a naive caller issuing three separate matmuls would incur.
//
// x is [seqLen, dModel]; wq packs a [dModel, qDim] weight, wk and wv
// each pack a [dModel, kvDim] weight; q is [seqLen, qDim], k and v are
// each [seqLen, kvDim].
func FusedQKVProjection(pool *workerpool.Pool, x []float32, wq, wk, wv *matmul.PackedB, q, k, v []float32, seqLen, dModel, qDim, kvDim int) error {
	const op = "nn.FusedQKVProjection"
	if seqLen <= 0 || dModel <= 0 || qDim <= 0 || kvDim <= 0 {
		return errs.Dimensionf(op, "seqLen, dModel, qDim, kvDim must be positive")
	}
	if len(x) != seqLen*dModel {
		return errs.Shapef(op, "len(x) = %d, want seqLen*dModel = %d", len(x), seqLen*dModel)
	}
	if wq == nil || wk == nil || wv == nil {
		return errs.Shapef(op, "wq, wk, wv must be non-nil")
	}
	if wq.K() != dModel || wk.K() != dModel || wv.K() != dModel {
		return errs.Shapef(op, "wq/wk/wv contraction dim must equal dModel=%d", dModel)
	}
	if wq.N() != qDim {
		return errs.Shapef(op, "wq.N() = %d, want qDim = %d", wq.N(), qDim)
	}
	if wk.N() != kvDim || wv.N() != kvDim {
		return errs.Shapef(op, "wk.N()/wv.N() must equal kvDim = %d", kvDim)
	}
	if len(q) != seqLen*qDim {
		return errs.Shapef(op, "len(q) = %d, want seqLen*qDim = %d", len(q), seqLen*qDim)
	}
	if len(k) != seqLen*kvDim || len(v) != seqLen*kvDim {
		return errs.Shapef(op, "len(k)/len(v) must equal seqLen*kvDim = %d", seqLen*kvDim)
	}

	// x is held resident (read three times from cache/registers by the
	// three matmuls below) rather than re-fetched from a caller-side
	// temporary between separate calls.
	if err := matmul.MatmulPacked(pool, x, wq, q, seqLen, false); err != nil {
		return err
	}
	if err := matmul.MatmulPacked(pool, x, wk, k, seqLen, false); err != nil {
		return err
	}
	if err := matmul.MatmulPacked(pool, x, wv, v, seqLen, false); err != nil {
		return err
	}
	return nil
}
