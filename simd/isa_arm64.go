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

//go:build arm64

package simd

// On arm64 NEON/AdvSIMD is part of the baseline ABI (there is no
// non-NEON arm64), so detection never needs to consult golang.org/x/sys/cpu
// feature bits the way amd64 does; the single branch here exists for
// symmetry with isa_amd64.go and to honor the TCORE_NO_SIMD override.
func init() {
	if noSimdEnv() {
		setPortable()
		return
	}

	bestISA = ISANEON
	vecWidthBits = 128
}
