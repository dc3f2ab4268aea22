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

//go:build amd64

package simd

import "golang.org/x/sys/cpu"

func init() {
	if noSimdEnv() {
		setPortable()
		return
	}

	switch {
	case cpu.X86.HasAVX512F && cpu.X86.HasAVX512VL && cpu.X86.HasFMA:
		bestISA = ISAAVX512
		vecWidthBits = 512
	case cpu.X86.HasAVX2 && cpu.X86.HasFMA:
		bestISA = ISAAVX2
		vecWidthBits = 256
	default:
		// SSE2 is baseline on amd64 but the spec has no dedicated SSE2
		// microkernel tier; fall through to the portable path, which is
		// still correct (just not vector-width-tuned) on pre-AVX2 hosts.
		setPortable()
	}
}
