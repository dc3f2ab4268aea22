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

// Package simd provides capability detection (L0) and elementwise/
// activation/reduction primitives (L1) for the inference core. Detection
// runs once at process init and is cached immutably; kernels elsewhere
// in the core select their code path from the published constants here,
// never by probing the CPU themselves.
package simd

import (
	"os"
	"strconv"
)

// ISA identifies the SIMD tier selected for this process.
type ISA int

const (
	// ISAPortable is the architecture-agnostic fallback: no hardware
	// vector instructions assumed, but loop bodies are still unrolled
	// to FloatsPerVec-wide blocks so the Go compiler's own autovectorizer
	// (and the CPU's out-of-order execution) has a chance to exploit it.
	ISAPortable ISA = iota
	// ISANEON is ARM64 NEON/AdvSIMD (128-bit, 4 float32 lanes). NEON is
	// baseline on arm64, so this is the minimum tier on that arch.
	ISANEON
	// ISAAVX2 is x86-64 AVX2+FMA (256-bit, 8 float32 lanes).
	ISAAVX2
	// ISAAVX512 is x86-64 AVX-512 Foundation (512-bit, 16 float32 lanes).
	ISAAVX512
)

// String returns a human-readable tier name.
func (i ISA) String() string {
	switch i {
	case ISAPortable:
		return "portable"
	case ISANEON:
		return "neon"
	case ISAAVX2:
		return "avx2"
	case ISAAVX512:
		return "avx512"
	default:
		return "unknown"
	}
}

// bestISA, vecWidthBits are set exactly once by the architecture-specific
// init() in isa_amd64.go / isa_arm64.go / isa_other.go.
var (
	bestISA      ISA
	vecWidthBits int
)

// BestISA returns the immutable, process-wide selected SIMD tier.
func BestISA() ISA { return bestISA }

// VecWidthBits returns the SIMD register width in bits for BestISA:
// 128, 256, or 512.
func VecWidthBits() int { return vecWidthBits }

// FloatsPerVec returns how many float32 lanes fit in one vector register
// at BestISA: 4 (portable/NEON), 8 (AVX2), or 16 (AVX-512).
func FloatsPerVec() int { return vecWidthBits / 32 }

// Summary returns a short human-readable capability string, e.g.
// "avx512 (512-bit, 16 f32 lanes)". Intended for KernelDispatchInfo
// diagnostics (see package kerneldispatch); never used to alter
// hot-path behavior.
func Summary() string {
	return bestISA.String() + " (" + itoa(vecWidthBits) + "-bit, " + itoa(FloatsPerVec()) + " f32 lanes)"
}

func itoa(n int) string { return strconv.Itoa(n) }

// noSimdEnv reports whether TCORE_NO_SIMD forces the portable tier
// regardless of detected hardware capability. Intended for testing and
// for diagnosing suspected SIMD-path bugs, mirroring the teacher
// library's HWY_NO_SIMD escape hatch.
func noSimdEnv() bool {
	v := os.Getenv("TCORE_NO_SIMD")
	if v == "" {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return true
}

func setPortable() {
	bestISA = ISAPortable
	vecWidthBits = 128
}
