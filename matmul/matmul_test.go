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
	"errors"
	"math/rand"
	"testing"

	"github.com/latticerun/corelm/errs"
	"github.com/latticerun/corelm/workerpool"
)

func closeEnough(a, b, tol float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func TestMatmulSmall2x2(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	b := []float32{5, 6, 7, 8}
	c := make([]float32, 4)
	if err := Matmul(nil, a, b, c, 2, 2, 2, false); err != nil {
		t.Fatalf("Matmul: %v", err)
	}
	want := []float32{19, 22, 43, 50}
	for i := range c {
		if !closeEnough(c[i], want[i], 1e-5) {
			t.Errorf("c[%d] = %v, want %v", i, c[i], want[i])
		}
	}
}

func TestMatmulShapeMismatch(t *testing.T) {
	a := make([]float32, 4)
	b := make([]float32, 4)
	c := make([]float32, 3)
	err := Matmul(nil, a, b, c, 2, 2, 2, false)
	if !errors.Is(err, errs.ErrShapeMismatch) {
		t.Fatalf("err = %v, want ErrShapeMismatch", err)
	}
}

func refMatMul(a, b []float32, m, k, n int) []float32 {
	c := make([]float32, m*n)
	for i := 0; i < m; i++ {
		for p := 0; p < k; p++ {
			av := a[i*k+p]
			for j := 0; j < n; j++ {
				c[i*n+j] += av * b[p*n+j]
			}
		}
	}
	return c
}

func randMatrix(r *rand.Rand, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = r.Float32()*2 - 1
	}
	return out
}

func TestMatmulLargeAgainstReference(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	m, k, n := 37, 53, 41 // odd sizes; m*n is below directSizeThreshold, so this runs the direct path
	a := randMatrix(r, m*k)
	b := randMatrix(r, k*n)
	c := make([]float32, m*n)

	pool := workerpool.New(4)
	defer pool.Close()

	if err := Matmul(pool, a, b, c, m, k, n, false); err != nil {
		t.Fatalf("Matmul: %v", err)
	}
	want := refMatMul(a, b, m, k, n)
	for i := range c {
		if !closeEnough(c[i], want[i], 1e-2) {
			t.Fatalf("c[%d] = %v, want %v", i, c[i], want[i])
		}
	}
}

func TestMatmulAboveDirectThresholdAgainstReference(t *testing.T) {
	r := rand.New(rand.NewSource(23))
	m, k, n := 300, 64, 300 // m*n well above directSizeThreshold
	a := randMatrix(r, m*k)
	b := randMatrix(r, k*n)
	c := make([]float32, m*n)

	if err := Matmul(nil, a, b, c, m, k, n, false); err != nil {
		t.Fatalf("Matmul: %v", err)
	}
	want := refMatMul(a, b, m, k, n)
	for i := range c {
		if !closeEnough(c[i], want[i], 5e-2) {
			t.Fatalf("c[%d] = %v, want %v", i, c[i], want[i])
		}
	}
}

func TestMatmulAccumulate(t *testing.T) {
	a := []float32{1, 0, 0, 1}
	b := []float32{2, 3, 4, 5}
	c := []float32{10, 10, 10, 10}
	if err := Matmul(nil, a, b, c, 2, 2, 2, true); err != nil {
		t.Fatalf("Matmul: %v", err)
	}
	want := []float32{12, 13, 14, 15}
	for i := range c {
		if !closeEnough(c[i], want[i], 1e-5) {
			t.Errorf("c[%d] = %v, want %v", i, c[i], want[i])
		}
	}
}

func TestMatmulPackedMatchesUnpacked(t *testing.T) {
	r := rand.New(rand.NewSource(29))
	m, k, n := 19, 33, 47
	a := randMatrix(r, m*k)
	b := randMatrix(r, k*n)

	cUnpacked := make([]float32, m*n)
	if err := Matmul(nil, a, b, cUnpacked, m, k, n, false); err != nil {
		t.Fatalf("Matmul: %v", err)
	}

	packed, err := PackB(b, k, n)
	if err != nil {
		t.Fatalf("PackB: %v", err)
	}
	cPacked := make([]float32, m*n)
	if err := MatmulPacked(nil, a, packed, cPacked, m, false); err != nil {
		t.Fatalf("MatmulPacked: %v", err)
	}

	for i := range cUnpacked {
		if !closeEnough(cUnpacked[i], cPacked[i], 1e-2) {
			t.Fatalf("cPacked[%d] = %v, want %v", i, cPacked[i], cUnpacked[i])
		}
	}
}

func TestMatmulTransposeBIdentity(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	m, k, n := 4, 6, 4
	a := randMatrix(r, m*k)
	// Use a random K x N matrix for the reference and its row-major
	// N x K transpose for B.
	bKxN := randMatrix(r, k*n)
	bNxK := make([]float32, n*k)
	for i := 0; i < k; i++ {
		for j := 0; j < n; j++ {
			bNxK[j*k+i] = bKxN[i*n+j]
		}
	}

	c := make([]float32, m*n)
	if err := MatmulTransposeB(nil, a, bNxK, c, m, k, n); err != nil {
		t.Fatalf("MatmulTransposeB: %v", err)
	}

	want := refMatMul(a, bKxN, m, k, n)
	for i := range c {
		if !closeEnough(c[i], want[i], 1e-2) {
			t.Fatalf("c[%d] = %v, want %v", i, c[i], want[i])
		}
	}
}

func TestMatmulTransposeBParallel(t *testing.T) {
	r := rand.New(rand.NewSource(41))
	m, k, n := 96, 80, 50 // clears both m>=64 and k>=64 thresholds
	a := randMatrix(r, m*k)
	bKxN := randMatrix(r, k*n)
	bNxK := make([]float32, n*k)
	for i := 0; i < k; i++ {
		for j := 0; j < n; j++ {
			bNxK[j*k+i] = bKxN[i*n+j]
		}
	}

	pool := workerpool.New(4)
	defer pool.Close()

	c := make([]float32, m*n)
	if err := MatmulTransposeB(pool, a, bNxK, c, m, k, n); err != nil {
		t.Fatalf("MatmulTransposeB: %v", err)
	}
	want := refMatMul(a, bKxN, m, k, n)
	for i := range c {
		if !closeEnough(c[i], want[i], 1e-2) {
			t.Fatalf("c[%d] = %v, want %v", i, c[i], want[i])
		}
	}
}
