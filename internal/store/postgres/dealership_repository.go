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
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dealerdesk/dealerdesk/internal/dealer"
)

// DealershipRepository implements dealer.DealershipRepository
type DealershipRepository struct {
	db *DB
}

// NewDealershipRepository creates a new dealership repository
func NewDealershipRepository(db *DB) *DealershipRepository {
	return &DealershipRepository{db: db}
}

// Create creates a new dealership
func (r *DealershipRepository) Create(ctx context.Context, d *dealer.Dealership) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO dealerships (id, dealergroup_id, name, city, province, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, d.ID, d.DealerGroupID, d.Name, d.City, d.Province, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert dealership: %w", err)
	}

	d.CreatedAt = now
	d.UpdatedAt = now

	return nil
}

// GetByID retrieves a dealership within a dealer group
func (r *DealershipRepository) GetByID(ctx context.Context, dealerGroupID, id string) (*dealer.Dealership, error) {
	var d dealer.Dealership

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, dealergroup_id, name, city, province, created_at, updated_at
		FROM dealerships
		WHERE dealergroup_id = $1 AND id = $2
	`, dealerGroupID, id).Scan(&d.ID, &d.DealerGroupID, &d.Name, &d.City, &d.Province, &d.CreatedAt, &d.UpdatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, dealer.ErrDealershipNotFound
		}
		return nil, fmt.Errorf("failed to get dealership: %w", err)
	}

	return &d, nil
}

// ListByGroup lists the dealerships of a dealer group
func (r *DealershipRepository) ListByGroup(ctx context.Context, dealerGroupID string) ([]dealer.Dealership, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, dealergroup_id, name, city, province, created_at, updated_at
		FROM dealerships
		WHERE dealergroup_id = $1
		ORDER BY name
	`, dealerGroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dealerships: %w", err)
	}
	defer rows.Close()

	var dealerships []dealer.Dealership
	for rows.Next() {
		var d dealer.Dealership
		if err := rows.Scan(&d.ID, &d.DealerGroupID, &d.Name, &d.City, &d.Province, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dealership: %w", err)
		}
		dealerships = append(dealerships, d)
	}

	return dealerships, rows.Err()
}

// Update updates a dealership within a dealer group
func (r *DealershipRepository) Update(ctx context.Context, d *dealer.Dealership) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE dealerships SET
			name = $3,
			city = $4,
			province = $5,
			updated_at = NOW()
		WHERE dealergroup_id = $1 AND id = $2
	`, d.DealerGroupID, d.ID, d.Name, d.City, d.Province)

	if err != nil {
		return fmt.Errorf("failed to update dealership: %w", err)
	}

	if result.RowsAffected() == 0 {
		return dealer.ErrDealershipNotFound
	}

	return nil
}

// Delete removes a dealership within a dealer group
func (r *DealershipRepository) Delete(ctx context.Context, dealerGroupID, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM dealerships
		WHERE dealergroup_id = $1 AND id = $2
	`, dealerGroupID, id)

	if err != nil {
		return fmt.Errorf("failed to delete dealership: %w", err)
	}

	if result.RowsAffected() == 0 {
		return dealer.ErrDealershipNotFound
	}

	return nil
}
