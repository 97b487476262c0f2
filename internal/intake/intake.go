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

// Package intake implements the driver's-license intake workflow: a short
// lived session walks through capture, decode, ban check and submit in that
// order, tracked by a step counter. Raw license numbers never persist; the
// ban list holds keyed digests only.
package intake

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrSessionNotFound = errors.New("intake session not found")
	ErrSessionExpired  = errors.New("intake session expired")
	ErrStepOrder       = errors.New("intake step out of order")
	ErrBanned          = errors.New("license is on the ban list")
	ErrMissingScope    = errors.New("operation requires a dealer group scope")

	// ErrDecoderUnavailable is returned when no OCR decoder is configured.
	ErrDecoderUnavailable = errors.New("license decoder is not configured")
)

// Workflow steps. Step holds the next action the session expects.
const (
	StepCapture  = 1
	StepDecode   = 2
	StepBanCheck = 3
	StepSubmit   = 4
	StepDone     = 5
)

// Session is one in-flight license intake, scoped to a dealer group.
type Session struct {
	ID            string
	DealerGroupID string
	DealershipID  string
	ActorID       string
	Step          int
	ImageKey      string
	License       *LicenseData
	Banned        bool
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Expired reports whether the session has passed its deadline.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// LicenseData holds the fields decoded from a license image. Number is only
// ever held in memory; persistence stores its digest.
type LicenseData struct {
	Number      string `json:"number"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Expiry      string `json:"expiry"`
	Province    string `json:"province"`
}

// LicenseRecord is the persisted outcome of a submitted intake.
type LicenseRecord struct {
	ID            string
	DealerGroupID string
	LeadID        string
	NumberDigest  string
	Province      string
	Expiry        string
	CreatedAt     time.Time
}

// SessionRepository stores in-flight intake sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, dealerGroupID, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// BanListRepository stores keyed license digests per dealer group.
type BanListRepository interface {
	Exists(ctx context.Context, dealerGroupID, digest string) (bool, error)
	Add(ctx context.Context, dealerGroupID, digest, reason string) error
}

// LicenseRepository stores submitted license records.
type LicenseRepository interface {
	Create(ctx context.Context, r *LicenseRecord) error
}

// Decoder extracts license fields from a captured image.
type Decoder interface {
	Decode(ctx context.Context, imageURL string) (*LicenseData, error)
}
