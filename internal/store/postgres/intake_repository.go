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

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dealerdesk/dealerdesk/internal/intake"
)

// IntakeSessionRepository implements intake.SessionRepository. Decoded
// license fields live in a jsonb column for the short life of the session
// and are nulled out on submit.
type IntakeSessionRepository struct {
	db *DB
}

// NewIntakeSessionRepository creates a new intake session repository
func NewIntakeSessionRepository(db *DB) *IntakeSessionRepository {
	return &IntakeSessionRepository{db: db}
}

// Create creates a new intake session
func (r *IntakeSessionRepository) Create(ctx context.Context, s *intake.Session) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO intake_sessions (id, dealergroup_id, dealership_id, actor_id, step, image_key, license, banned, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $8, $9)
	`, s.ID, s.DealerGroupID, nullable(s.DealershipID), s.ActorID, s.Step, s.ImageKey, s.Banned, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert intake session: %w", err)
	}
	return nil
}

// GetByID retrieves an intake session within a dealer group
func (r *IntakeSessionRepository) GetByID(ctx context.Context, dealerGroupID, id string) (*intake.Session, error) {
	var s intake.Session
	var dealershipID *string
	var license []byte

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, dealergroup_id, dealership_id, actor_id, step, image_key, license, banned, created_at, expires_at
		FROM intake_sessions
		WHERE dealergroup_id = $1 AND id = $2
	`, dealerGroupID, id).Scan(
		&s.ID, &s.DealerGroupID, &dealershipID, &s.ActorID, &s.Step, &s.ImageKey,
		&license, &s.Banned, &s.CreatedAt, &s.ExpiresAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, intake.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get intake session: %w", err)
	}

	if dealershipID != nil {
		s.DealershipID = *dealershipID
	}
	if len(license) > 0 {
		var data intake.LicenseData
		if err := json.Unmarshal(license, &data); err != nil {
			return nil, fmt.Errorf("failed to decode stored license data: %w", err)
		}
		s.License = &data
	}

	return &s, nil
}

// Update updates an intake session within its dealer group
func (r *IntakeSessionRepository) Update(ctx context.Context, s *intake.Session) error {
	var license any
	if s.License != nil {
		payload, err := json.Marshal(s.License)
		if err != nil {
			return fmt.Errorf("failed to encode license data: %w", err)
		}
		license = payload
	}

	result, err := r.db.pool.Exec(ctx, `
		UPDATE intake_sessions SET
			step = $3,
			license = $4,
			banned = $5
		WHERE dealergroup_id = $1 AND id = $2
	`, s.DealerGroupID, s.ID, s.Step, license, s.Banned)

	if err != nil {
		return fmt.Errorf("failed to update intake session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return intake.ErrSessionNotFound
	}

	return nil
}

// DeleteExpired removes sessions past their deadline and reports how many.
func (r *IntakeSessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM intake_sessions
		WHERE expires_at < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired intake sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

// BanListRepository implements intake.BanListRepository. Only keyed digests
// are ever written; the raw license number never reaches this table.
type BanListRepository struct {
	db *DB
}

// NewBanListRepository creates a new ban list repository
func NewBanListRepository(db *DB) *BanListRepository {
	return &BanListRepository{db: db}
}

// Exists reports whether a digest is on the group's ban list
func (r *BanListRepository) Exists(ctx context.Context, dealerGroupID, digest string) (bool, error) {
	var found bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ban_list
			WHERE dealergroup_id = $1 AND license_digest = $2
		)
	`, dealerGroupID, digest).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("failed to check ban list: %w", err)
	}
	return found, nil
}

// Add puts a digest on the group's ban list
func (r *BanListRepository) Add(ctx context.Context, dealerGroupID, digest, reason string) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO ban_list (dealergroup_id, license_digest, reason, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (dealergroup_id, license_digest) DO NOTHING
	`, dealerGroupID, digest, reason, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add ban list entry: %w", err)
	}
	return nil
}

// LicenseRepository implements intake.LicenseRepository
type LicenseRepository struct {
	db *DB
}

// NewLicenseRepository creates a new license record repository
func NewLicenseRepository(db *DB) *LicenseRepository {
	return &LicenseRepository{db: db}
}

// Create persists a submitted license record
func (r *LicenseRepository) Create(ctx context.Context, rec *intake.LicenseRecord) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO license_records (id, dealergroup_id, lead_id, number_digest, province, expiry, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.DealerGroupID, rec.LeadID, rec.NumberDigest, rec.Province, rec.Expiry, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert license record: %w", err)
	}
	return nil
}
