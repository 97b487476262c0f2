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

	"github.com/dealerdesk/dealerdesk/internal/access"
	"github.com/dealerdesk/dealerdesk/internal/dealer"
)

// DealerGroupRepository implements dealer.GroupRepository
type DealerGroupRepository struct {
	db *DB
}

// NewDealerGroupRepository creates a new dealer group repository
func NewDealerGroupRepository(db *DB) *DealerGroupRepository {
	return &DealerGroupRepository{db: db}
}

// Create creates a new dealer group
func (r *DealerGroupRepository) Create(ctx context.Context, g *dealer.DealerGroup) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO dealer_groups (id, name, subscription_status, trial_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, g.ID, g.Name, string(g.SubscriptionStatus), g.TrialEnd, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert dealer group: %w", err)
	}

	g.CreatedAt = now
	g.UpdatedAt = now

	return nil
}

// GetByID retrieves a dealer group by ID
func (r *DealerGroupRepository) GetByID(ctx context.Context, id string) (*dealer.DealerGroup, error) {
	var g dealer.DealerGroup
	var status string
	var trialEnd sql.NullTime

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, subscription_status, trial_end, created_at, updated_at
		FROM dealer_groups
		WHERE id = $1
	`, id).Scan(&g.ID, &g.Name, &status, &trialEnd, &g.CreatedAt, &g.UpdatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, dealer.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get dealer group: %w", err)
	}

	g.SubscriptionStatus = access.SubscriptionStatus(status)
	if trialEnd.Valid {
		g.TrialEnd = &trialEnd.Time
	}

	return &g, nil
}

// Update updates a dealer group
func (r *DealerGroupRepository) Update(ctx context.Context, g *dealer.DealerGroup) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE dealer_groups SET
			name = $2,
			subscription_status = $3,
			trial_end = $4,
			updated_at = NOW()
		WHERE id = $1
	`, g.ID, g.Name, string(g.SubscriptionStatus), g.TrialEnd)

	if err != nil {
		return fmt.Errorf("failed to update dealer group: %w", err)
	}

	if result.RowsAffected() == 0 {
		return dealer.ErrGroupNotFound
	}

	return nil
}

// SubscriptionState retrieves the billing fields the access resolver needs.
func (r *DealerGroupRepository) SubscriptionState(ctx context.Context, dealerGroupID string) (*access.SubscriptionState, error) {
	var status string
	var trialEnd sql.NullTime

	err := r.db.pool.QueryRow(ctx, `
		SELECT subscription_status, trial_end
		FROM dealer_groups
		WHERE id = $1
	`, dealerGroupID).Scan(&status, &trialEnd)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, dealer.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get subscription state: %w", err)
	}

	state := &access.SubscriptionState{Status: access.SubscriptionStatus(status)}
	if trialEnd.Valid {
		state.TrialEnd = &trialEnd.Time
	}

	return state, nil
}
