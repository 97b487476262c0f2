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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/internal/audit"
	"github.com/dealerdesk/dealerdesk/internal/lead"
)

// DefaultSessionTTL bounds how long a capture can sit unfinished.
const DefaultSessionTTL = 30 * time.Minute

// LeadCreator creates the lead a submitted intake produces.
type LeadCreator interface {
	Create(ctx context.Context, l *lead.Lead, actorID string) (*lead.Lead, error)
}

// Service orchestrates the intake workflow. Each operation validates the
// session's step counter so the sequence cannot be skipped or replayed.
type Service struct {
	sessions    SessionRepository
	banList     BanListRepository
	licenses    LicenseRepository
	leads       LeadCreator
	decoder     Decoder
	hasher      *Hasher
	auditLogger audit.Logger
	ttl         time.Duration
	now         func() time.Time
}

// NewService creates a new intake service.
func NewService(
	sessions SessionRepository,
	banList BanListRepository,
	licenses LicenseRepository,
	leads LeadCreator,
	decoder Decoder,
	hasher *Hasher,
	auditLogger audit.Logger,
	ttl time.Duration,
) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Service{
		sessions:    sessions,
		banList:     banList,
		licenses:    licenses,
		leads:       leads,
		decoder:     decoder,
		hasher:      hasher,
		auditLogger: auditLogger,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Start opens a new intake session at the capture step and returns it with
// the storage key the client should upload the license image to.
func (s *Service) Start(ctx context.Context, dealerGroupID, dealershipID, actorID string) (*Session, error) {
	if dealerGroupID == "" {
		return nil, ErrMissingScope
	}
	now := s.now()
	sess := &Session{
		ID:            uuid.Must(uuid.NewV7()).String(),
		DealerGroupID: dealerGroupID,
		DealershipID:  dealershipID,
		ActorID:       actorID,
		Step:          StepCapture,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}
	sess.ImageKey = fmt.Sprintf("licenses/%s/%s.jpg", dealerGroupID, sess.ID)
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to start intake session: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:        audit.TypeIntakeStarted,
		DealerGroup: dealerGroupID,
		ActorID:     actorID,
		Resource:    sess.ID,
	})
	return sess, nil
}

// MarkCaptured records that the license image landed in storage and moves
// the session to the decode step.
func (s *Service) MarkCaptured(ctx context.Context, dealerGroupID, sessionID string) (*Session, error) {
	sess, err := s.load(ctx, dealerGroupID, sessionID, StepCapture)
	if err != nil {
		return nil, err
	}
	sess.Step = StepDecode
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to advance intake session: %w", err)
	}
	return sess, nil
}

// Decode runs OCR over the captured image and moves the session to the ban
// check step. imageURL is the presigned read URL for the session's image.
func (s *Service) Decode(ctx context.Context, dealerGroupID, sessionID, imageURL string) (*Session, error) {
	if s.decoder == nil {
		return nil, ErrDecoderUnavailable
	}
	sess, err := s.load(ctx, dealerGroupID, sessionID, StepDecode)
	if err != nil {
		return nil, err
	}
	data, err := s.decoder.Decode(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to decode license: %w", err)
	}
	sess.License = data
	sess.Step = StepBanCheck
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to advance intake session: %w", err)
	}
	return sess, nil
}

// CheckBan digests the decoded license number and looks it up on the
// group's ban list. A hit marks the session banned, audits it, and halts
// the workflow with ErrBanned.
func (s *Service) CheckBan(ctx context.Context, dealerGroupID, sessionID string) (*Session, error) {
	sess, err := s.load(ctx, dealerGroupID, sessionID, StepBanCheck)
	if err != nil {
		return nil, err
	}
	digest, err := s.hasher.Digest(sess.License.Number)
	if err != nil {
		return nil, err
	}
	banned, err := s.banList.Exists(ctx, dealerGroupID, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to check ban list: %w", err)
	}
	if banned {
		sess.Banned = true
		sess.Step = StepDone
		if err := s.sessions.Update(ctx, sess); err != nil {
			return nil, fmt.Errorf("failed to record ban hit: %w", err)
		}
		s.auditLogger.Log(ctx, audit.Event{
			Type:        audit.TypeBanListHit,
			DealerGroup: dealerGroupID,
			ActorID:     sess.ActorID,
			Resource:    sess.ID,
		})
		return sess, ErrBanned
	}
	sess.Step = StepSubmit
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to advance intake session: %w", err)
	}
	return sess, nil
}

// Submit finishes the workflow: it creates the lead from the decoded
// fields, persists the license record with the number's digest, and closes
// the session.
func (s *Service) Submit(ctx context.Context, dealerGroupID, sessionID string) (*lead.Lead, error) {
	sess, err := s.load(ctx, dealerGroupID, sessionID, StepSubmit)
	if err != nil {
		return nil, err
	}

	created, err := s.leads.Create(ctx, &lead.Lead{
		DealerGroupID: sess.DealerGroupID,
		DealershipID:  sess.DealershipID,
		FirstName:     sess.License.FirstName,
		LastName:      sess.License.LastName,
		Source:        lead.SourceLicenseScan,
	}, sess.ActorID)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead from intake: %w", err)
	}

	digest, err := s.hasher.Digest(sess.License.Number)
	if err != nil {
		return nil, err
	}
	record := &LicenseRecord{
		ID:            uuid.Must(uuid.NewV7()).String(),
		DealerGroupID: sess.DealerGroupID,
		LeadID:        created.ID,
		NumberDigest:  digest,
		Province:      sess.License.Province,
		Expiry:        sess.License.Expiry,
		CreatedAt:     s.now(),
	}
	if err := s.licenses.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store license record: %w", err)
	}

	sess.Step = StepDone
	sess.License = nil
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to close intake session: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:        audit.TypeIntakeSubmitted,
		DealerGroup: dealerGroupID,
		ActorID:     sess.ActorID,
		Resource:    sess.ID,
		Metadata:    map[string]any{"lead_id": created.ID},
	})
	return created, nil
}

// BanLicense adds a license digest to the group's ban list.
func (s *Service) BanLicense(ctx context.Context, dealerGroupID, licenseNumber, reason string) error {
	if dealerGroupID == "" {
		return ErrMissingScope
	}
	digest, err := s.hasher.Digest(licenseNumber)
	if err != nil {
		return err
	}
	return s.banList.Add(ctx, dealerGroupID, digest, reason)
}

// SweepExpired deletes sessions past their deadline. Wired to a cron
// schedule at startup.
func (s *Service) SweepExpired(ctx context.Context) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		slog.ErrorContext(ctx, "intake sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "swept expired intake sessions", slog.Int64("deleted", n))
	}
}

func (s *Service) load(ctx context.Context, dealerGroupID, sessionID string, wantStep int) (*Session, error) {
	if dealerGroupID == "" {
		return nil, ErrMissingScope
	}
	sess, err := s.sessions.GetByID(ctx, dealerGroupID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		return nil, ErrSessionExpired
	}
	if sess.Step != wantStep {
		return nil, ErrStepOrder
	}
	return sess, nil
}
