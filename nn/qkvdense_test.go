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
	"math/rand"
	"testing"

	"github.com/latticerun/corelm/matmul"
)

func TestFusedQKVProjectionMatchesIndependentMatmuls(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	seqLen, dModel, qDim, kvDim := 5, 8, 6, 4

	randMat := func(n int) []float32 {
		out := make([]float32, n)
		for i := range out {
			out[i] = r.Float32()*2 - 1
		}
		return out
	}

	x := randMat(seqLen * dModel)
	bq := randMat(dModel * qDim)
	bk := randMat(dModel * kvDim)
	bv := randMat(dModel * kvDim)

	wq, err := matmul.PackB(bq, dModel, qDim)
	if err != nil {
		t.Fatalf("PackB(wq): %v", err)
	}
	wk, err := matmul.PackB(bk, dModel, kvDim)
	if err != nil {
		t.Fatalf("PackB(wk): %v", err)
	}
	wv, err := matmul.PackB(bv, dModel, kvDim)
	if err != nil {
		t.Fatalf("PackB(wv): %v", err)
	}

	q := make([]float32, seqLen*qDim)
	k := make([]float32, seqLen*kvDim)
	v := make([]float32, seqLen*kvDim)
	if err := FusedQKVProjection(nil, x, wq, wk, wv, q, k, v, seqLen, dModel, qDim, kvDim); err != nil {
		t.Fatalf("FusedQKVProjection: %v", err)
	}

	wantQ := make([]float32, seqLen*qDim)
	if err := matmul.Matmul(nil, x, bq, wantQ, seqLen, dModel, qDim, false); err != nil {
		t.Fatalf("Matmul(q): %v", err)
	}
	wantK := make([]float32, seqLen*kvDim)
	if err := matmul.Matmul(nil, x, bk, wantK, seqLen, dModel, kvDim, false); err != nil {
		t.Fatalf("Matmul(k): %v", err)
	}
	wantV := make([]float32, seqLen*kvDim)
	if err := matmul.Matmul(nil, x, bv, wantV, seqLen, dModel, kvDim, false); err != nil {
		t.Fatalf("Matmul(v): %v", err)
	}

	for i := range q {
		if !closeEnough(q[i], wantQ[i], 1e-2) {
			t.Fatalf("q[%d] = %v, want %v", i, q[i], wantQ[i])
		}
	}
	for i := range k {
		if !closeEnough(k[i], wantK[i], 1e-2) {
			t.Fatalf("k[%d] = %v, want %v", i, k[i], wantK[i])
		}
	}
	for i := range v {
		if !closeEnough(v[i], wantV[i], 1e-2) {
			t.Fatalf("v[%d] = %v, want %v", i, v[i], wantV[i])
		}
	}
}

func TestFusedQKVProjectionShapeMismatch(t *testing.T) {
	wq, _ := matmul.PackB(make([]float32, 8*4), 8, 4)
	wk, _ := matmul.PackB(make([]float32, 8*2), 8, 2)
	wv, _ := matmul.PackB(make([]float32, 8*2), 8, 2)

	x := make([]float32, 5*8)
	q := make([]float32, 5*4)
	k := make([]float32, 5*2)
	v := make([]float32, 1) // wrong length

	if err := FusedQKVProjection(nil, x, wq, wk, wv, q, k, v, 5, 8, 4, 2); err == nil {
		t.Fatal("expected shape error for mis-sized v")
	}
}
