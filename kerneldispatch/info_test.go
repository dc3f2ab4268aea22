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

package kerneldispatch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recordingLogger struct {
	calls []string
}

func (r *recordingLogger) Log(level, msg string, kv ...any) {
	r.calls = append(r.calls, msg)
}

func TestCollectPopulatesKernelNames(t *testing.T) {
	info := Collect()
	if info.Platform == "" {
		t.Error("Platform is empty")
	}
	for _, op := range []string{"matmul", "transpose_b", "matmul_packed", "softmax_2d"} {
		if info.KernelNames[op] == "" {
			t.Errorf("KernelNames[%q] is empty", op)
		}
	}
}

func TestCollectIsDeterministicAcrossCalls(t *testing.T) {
	first := Collect()
	second := Collect()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Collect() is not stable across calls (-first +second):\n%s", diff)
	}
}

func TestPrintKernelInfoCallsLogger(t *testing.T) {
	logger := &recordingLogger{}
	PrintKernelInfo(logger)
	if len(logger.calls) == 0 {
		t.Fatal("expected at least one Log call")
	}
}
