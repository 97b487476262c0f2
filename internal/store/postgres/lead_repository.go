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
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dealerdesk/dealerdesk/internal/lead"
)

// LeadRepository implements lead.Repository
type LeadRepository struct {
	db *DB
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *DB) *LeadRepository {
	return &LeadRepository{db: db}
}

const leadColumns = `id, dealergroup_id, dealership_id, first_name, last_name, email, phone, source, status, assigned_to, created_at, updated_at`

func scanLead(row pgx.Row) (*lead.Lead, error) {
	var l lead.Lead
	var dealershipID, assignedTo sql.NullString

	err := row.Scan(
		&l.ID, &l.DealerGroupID, &dealershipID, &l.FirstName, &l.LastName, &l.Email,
		&l.Phone, &l.Source, &l.Status, &assignedTo, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.DealershipID = dealershipID.String
	l.AssignedTo = assignedTo.String

	return &l, nil
}

// Create creates a new lead
func (r *LeadRepository) Create(ctx context.Context, l *lead.Lead) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		l.ID, l.DealerGroupID, nullable(l.DealershipID), l.FirstName, l.LastName, l.Email,
		l.Phone, l.Source, l.Status, nullable(l.AssignedTo), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}

	l.CreatedAt = now
	l.UpdatedAt = now

	return nil
}

// GetByID retrieves a lead within a dealer group
func (r *LeadRepository) GetByID(ctx context.Context, dealerGroupID, id string) (*lead.Lead, error) {
	l, err := scanLead(r.db.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE dealergroup_id = $1 AND id = $2
	`, dealerGroupID, id))

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, lead.ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	return l, nil
}

// ListByGroup lists all leads of a dealer group, newest first
func (r *LeadRepository) ListByGroup(ctx context.Context, dealerGroupID string) ([]lead.Lead, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE dealergroup_id = $1
		ORDER BY created_at DESC
	`, dealerGroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	return collectLeads(rows)
}

// ListByDealership lists one rooftop's leads, newest first
func (r *LeadRepository) ListByDealership(ctx context.Context, dealerGroupID, dealershipID string) ([]lead.Lead, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE dealergroup_id = $1 AND dealership_id = $2
		ORDER BY created_at DESC
	`, dealerGroupID, dealershipID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dealership leads: %w", err)
	}
	defer rows.Close()

	return collectLeads(rows)
}

func collectLeads(rows pgx.Rows) ([]lead.Lead, error) {
	var leads []lead.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

// Update updates a lead within a dealer group
func (r *LeadRepository) Update(ctx context.Context, l *lead.Lead) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE leads SET
			dealership_id = $3,
			first_name = $4,
			last_name = $5,
			email = $6,
			phone = $7,
			source = $8,
			status = $9,
			assigned_to = $10,
			updated_at = NOW()
		WHERE dealergroup_id = $1 AND id = $2
	`,
		l.DealerGroupID, l.ID, nullable(l.DealershipID), l.FirstName, l.LastName, l.Email,
		l.Phone, l.Source, l.Status, nullable(l.AssignedTo),
	)

	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}

	if result.RowsAffected() == 0 {
		return lead.ErrLeadNotFound
	}

	return nil
}

// Delete removes a lead within a dealer group
func (r *LeadRepository) Delete(ctx context.Context, dealerGroupID, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM leads
		WHERE dealergroup_id = $1 AND id = $2
	`, dealerGroupID, id)

	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}

	if result.RowsAffected() == 0 {
		return lead.ErrLeadNotFound
	}

	return nil
}
