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

import (
	"errors"
	"testing"
)

func TestParallelForErrAllSucceed(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)

	err := pool.ParallelForErr(n, func(start, end int) error {
		for i := start; i < end; i++ {
			results[i] = i * 2
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ParallelForErr: %v", err)
	}
	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestParallelForErrPropagatesFirstError(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	wantErr := errors.New("deliberately failing strip")
	err := pool.ParallelForErr(40, func(start, end int) error {
		if start == 0 {
			return wantErr
		}
		return nil
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestParallelForErrZeroN(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	called := false
	err := pool.ParallelForErr(0, func(start, end int) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("ParallelForErr(0, ...) = %v, want nil", err)
	}
	if called {
		t.Error("ParallelForErr with n=0 should not call fn")
	}
}

func TestParallelForErrSingleWorkerFallback(t *testing.T) {
	pool := New(1)
	defer pool.Close()

	n := 10
	var sum int
	err := pool.ParallelForErr(n, func(start, end int) error {
		for i := start; i < end; i++ {
			sum += i
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ParallelForErr: %v", err)
	}
	if sum != 45 {
		t.Errorf("sum = %d, want 45", sum)
	}
}

func TestParallelForErrClosedPoolFallback(t *testing.T) {
	pool := New(4)
	pool.Close()

	n := 10
	var sum int
	err := pool.ParallelForErr(n, func(start, end int) error {
		for i := start; i < end; i++ {
			sum += i
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ParallelForErr: %v", err)
	}
	if sum != 45 {
		t.Errorf("sum = %d, want 45", sum)
	}
}
