// Copyright 2026 The DealerDesk Authors
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

package intake

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Hasher produces keyed digests of license numbers. The pepper keeps the
// ban list useless without the server's configuration even though license
// numbers have low entropy.
type Hasher struct {
	pepper []byte
}

// NewHasher creates a hasher from the configured pepper. blake2b keys are
// capped at 64 bytes.
func NewHasher(pepper string) (*Hasher, error) {
	if pepper == "" {
		return nil, fmt.Errorf("license digest pepper is required")
	}
	if len(pepper) > 64 {
		return nil, fmt.Errorf("license digest pepper exceeds 64 bytes")
	}
	return &Hasher{pepper: []byte(pepper)}, nil
}

// Digest normalizes a license number and returns its keyed blake2b-256
// digest as lowercase hex. Normalization strips spaces and dashes and
// uppercases, so formatting differences hash identically.
func (h *Hasher) Digest(licenseNumber string) (string, error) {
	mac, err := blake2b.New256(h.pepper)
	if err != nil {
		return "", fmt.Errorf("failed to initialize digest: %w", err)
	}
	mac.Write([]byte(normalizeLicense(licenseNumber)))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func normalizeLicense(number string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, number)
	return strings.ToUpper(cleaned)
}
