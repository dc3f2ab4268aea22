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
	"math"
	"math/rand"
	"testing"
)

func refSDPA(q, k, v []float32, t, d int, causal bool) []float32 {
	out := make([]float32, t*d)
	scale := float32(1.0 / math.Sqrt(float64(d)))

	for i := 0; i < t; i++ {
		limit := t
		if causal {
			limit = i + 1
		}
		scores := make([]float32, limit)
		qRow := q[i*d : i*d+d]
		for j := 0; j < limit; j++ {
			kRow := k[j*d : j*d+d]
			var sum float32
			for p := 0; p < d; p++ {
				sum += qRow[p] * kRow[p]
			}
			scores[j] = sum * scale
		}
		softmax1D(scores)
		oRow := out[i*d : i*d+d]
		for j := 0; j < limit; j++ {
			vRow := v[j*d : j*d+d]
			for p := 0; p < d; p++ {
				oRow[p] += scores[j] * vRow[p]
			}
		}
	}
	return out
}

func TestFusedSDPASmallPathAgainstReference(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	tLen, d := 8, 4
	q := make([]float32, tLen*d)
	k := make([]float32, tLen*d)
	v := make([]float32, tLen*d)
	for i := range q {
		q[i] = r.Float32()
		k[i] = r.Float32()
		v[i] = r.Float32()
	}

	out := make([]float32, tLen*d)
	scratch := make([]float32, ScratchLenForSDPA(tLen))
	if err := FusedSDPA(q, k, v, out, scratch, tLen, d, false); err != nil {
		t.Fatalf("FusedSDPA: %v", err)
	}

	want := refSDPA(q, k, v, tLen, d, false)
	for i := range out {
		if !closeEnough(out[i], want[i], 1e-4) {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestFusedSDPASmallPathCausalAgainstReference(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	tLen, d := 6, 3
	q := make([]float32, tLen*d)
	k := make([]float32, tLen*d)
	v := make([]float32, tLen*d)
	for i := range q {
		q[i] = r.Float32()*2 - 1
		k[i] = r.Float32()*2 - 1
		v[i] = r.Float32()*2 - 1
	}

	out := make([]float32, tLen*d)
	scratch := make([]float32, ScratchLenForSDPA(tLen))
	if err := FusedSDPA(q, k, v, out, scratch, tLen, d, true); err != nil {
		t.Fatalf("FusedSDPA: %v", err)
	}
	want := refSDPA(q, k, v, tLen, d, true)
	for i := range out {
		if !closeEnough(out[i], want[i], 1e-4) {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestFusedSDPACausalMaskDependsOnlyOnPrefix(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	tLen, d := 10, 4
	q := make([]float32, tLen*d)
	k := make([]float32, tLen*d)
	v := make([]float32, tLen*d)
	for i := range q {
		q[i] = r.Float32()
		k[i] = r.Float32()
		v[i] = r.Float32()
	}

	out1 := make([]float32, tLen*d)
	scratch := make([]float32, ScratchLenForSDPA(tLen))
	if err := FusedSDPA(q, k, v, out1, scratch, tLen, d, true); err != nil {
		t.Fatalf("FusedSDPA: %v", err)
	}

	// Mutate K/V strictly after position 3; out[0..3] must be unchanged
	// since causal masking restricts row i to keys/values [0, i].
	kMut := append([]float32(nil), k...)
	vMut := append([]float32(nil), v...)
	for i := 4 * d; i < tLen*d; i++ {
		kMut[i] += 100
		vMut[i] += 100
	}
	out2 := make([]float32, tLen*d)
	if err := FusedSDPA(q, kMut, vMut, out2, scratch, tLen, d, true); err != nil {
		t.Fatalf("FusedSDPA: %v", err)
	}

	for i := 0; i < 4*d; i++ {
		if !closeEnough(out1[i], out2[i], 1e-5) {
			t.Fatalf("out[%d] = %v, want %v (causal row depends on future K/V)", i, out2[i], out1[i])
		}
	}
}

func TestFusedSDPAShapeMismatch(t *testing.T) {
	q := make([]float32, 8)
	k := make([]float32, 8)
	v := make([]float32, 6)
	out := make([]float32, 8)
	scratch := make([]float32, ScratchLenForSDPA(2))
	if err := FusedSDPA(q, k, v, out, scratch, 2, 4, false); err == nil {
		t.Fatal("expected shape error for mismatched v length")
	}
}

func TestFusedSDPAShortScratch(t *testing.T) {
	tLen, d := 8, 4
	q := make([]float32, tLen*d)
	k := make([]float32, tLen*d)
	v := make([]float32, tLen*d)
	out := make([]float32, tLen*d)
	shortScratch := make([]float32, ScratchLenForSDPA(tLen)-1)
	if err := FusedSDPA(q, k, v, out, shortScratch, tLen, d, false); err == nil {
		t.Fatal("expected shape error for undersized scratch buffer")
	}
}

func TestFusedSDPALargePathAgainstSmallPath(t *testing.T) {
	// Exactly one K-block (no boundary splitting) should make the
	// Flash-tiled path agree closely with the small-sequence path.
	r := rand.New(rand.NewSource(3))
	tLen, d := flashBlockK, 4
	q := make([]float32, tLen*d)
	k := make([]float32, tLen*d)
	v := make([]float32, tLen*d)
	for i := range q {
		q[i] = r.Float32()
		k[i] = r.Float32()
		v[i] = r.Float32()
	}

	small := make([]float32, tLen*d)
	smallScratch := make([]float32, tLen*tLen)
	sdpaSmall(q, k, v, small, smallScratch, tLen, d, 1.0, false)

	flash := make([]float32, tLen*d)
	flashScratch := make([]float32, flashBlockQ*flashBlockK)
	sdpaFlashTiled(q, k, v, flash, flashScratch, tLen, d, 1.0, false)

	for i := range small {
		if !closeEnough(small[i], flash[i], 1e-4) {
			t.Fatalf("out[%d]: small=%v flash=%v diverge on a single-block problem", i, small[i], flash[i])
		}
	}
}

func TestFusedSDPADimensionValidation(t *testing.T) {
	out := make([]float32, 4)
	if err := FusedSDPA(nil, nil, nil, out, nil, 0, 4, false); err == nil {
		t.Fatal("expected error for t=0")
	}
}
