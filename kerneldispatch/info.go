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

// Package kerneldispatch exposes a read-only snapshot of which
// microkernel variant each operation resolved to at startup (spec.md
// §4.7), for diagnostics. It depends only on the simd package's
// published capability bits — never on a concrete logging library, in
// keeping with spec.md §6's "telemetry sink is external collaborator"
// scoping: the core never imports a logging library itself.
package kerneldispatch

import (
	"fmt"
	"runtime"

	"github.com/latticerun/corelm/simd"
)

// Logger is the minimal interface a caller's telemetry sink must
// satisfy to receive PrintKernelInfo's output. Deliberately not tied to
// any concrete logging library (log/slog, logrus, zap, ...); callers
// wire whichever they already use.
type Logger interface {
	Log(level, msg string, kv ...any)
}

// DispatchInfo is a read-only snapshot of the dispatch decisions made
// once at startup.
type DispatchInfo struct {
	Platform     string
	BestISA      simd.ISA
	VecWidthBits int
	// KernelNames maps an operation name ("matmul", "transpose_b",
	// "softmax_2d", ...) to the human-readable name of the kernel
	// variant it resolved to for this ISA tier.
	KernelNames map[string]string
}

// Collect builds a DispatchInfo from the simd package's published,
// immutably-cached capability bits (spec.md §4.1: "no runtime probing
// inside hot paths").
func Collect() DispatchInfo {
	isa := simd.BestISA()
	return DispatchInfo{
		Platform:     runtime.GOARCH,
		BestISA:      isa,
		VecWidthBits: simd.VecWidthBits(),
		KernelNames:  kernelNamesFor(isa),
	}
}

// kernelNamesFor maps the active ISA tier to the microkernel tile
// shape spec.md §4.3.1 names for it, so diagnostics can report e.g.
// "matmul: AVX2 6x16 register tile" rather than just the bare ISA.
func kernelNamesFor(isa simd.ISA) map[string]string {
	var gemmTile string
	switch isa {
	case simd.ISAAVX512:
		gemmTile = "AVX-512 6x32 register tile"
	case simd.ISAAVX2:
		gemmTile = "AVX2+FMA 6x16 register tile"
	case simd.ISANEON:
		gemmTile = "NEON 4x8 register tile"
	default:
		gemmTile = "portable vector fallback with scalar tail"
	}
	return map[string]string{
		"matmul":        gemmTile,
		"transpose_b":   "4-way column blocking, 2x K unroll",
		"matmul_packed": gemmTile + " (packed B)",
		"softmax_2d":    "row-parallel (>=32 rows) stable softmax",
	}
}

// PrintKernelInfo emits a human-readable dispatch summary to logger.
// Called at most once at startup by a caller that wants this in its
// own logs; the core never calls this itself.
func PrintKernelInfo(logger Logger) {
	info := Collect()
	logger.Log("info", "kernel dispatch",
		"platform", info.Platform,
		"best_isa", info.BestISA.String(),
		"vec_width_bits", info.VecWidthBits,
	)
	for op, name := range info.KernelNames {
		logger.Log("info", fmt.Sprintf("kernel: %s", op), "variant", name)
	}
}
