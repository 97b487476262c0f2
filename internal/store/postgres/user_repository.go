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

	"github.com/dealerdesk/dealerdesk/internal/dealer"
)

// UserRepository implements dealer.UserRepository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, dealergroup_id, dealership_id, email, first_name, last_name, role, department_id, job_title_id, created_at, updated_at`

func scanUser(row pgx.Row) (*dealer.User, error) {
	var u dealer.User
	var dealershipID, departmentID, jobTitleID sql.NullString

	err := row.Scan(
		&u.ID, &u.DealerGroupID, &dealershipID, &u.Email, &u.FirstName, &u.LastName,
		&u.Role, &departmentID, &jobTitleID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.DealershipID = dealershipID.String
	u.DepartmentID = departmentID.String
	u.JobTitleID = jobTitleID.String

	return &u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Create creates a new staff record
func (r *UserRepository) Create(ctx context.Context, u *dealer.User) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		u.ID, u.DealerGroupID, nullable(u.DealershipID), u.Email, u.FirstName, u.LastName,
		u.Role, nullable(u.DepartmentID), nullable(u.JobTitleID), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	u.CreatedAt = now
	u.UpdatedAt = now

	return nil
}

// GetByID retrieves a staff record within a dealer group
func (r *UserRepository) GetByID(ctx context.Context, dealerGroupID, id string) (*dealer.User, error) {
	u, err := scanUser(r.db.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE dealergroup_id = $1 AND id = $2
	`, dealerGroupID, id))

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, dealer.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// ListByGroup lists all staff records of a dealer group
func (r *UserRepository) ListByGroup(ctx context.Context, dealerGroupID string) ([]dealer.User, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE dealergroup_id = $1
		ORDER BY last_name, first_name
	`, dealerGroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// ListByDealership lists staff assigned to one rooftop, through either the
// primary assignment or a user_dealerships link.
func (r *UserRepository) ListByDealership(ctx context.Context, dealerGroupID, dealershipID string) ([]dealer.User, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT DISTINCT u.id, u.dealergroup_id, u.dealership_id, u.email, u.first_name, u.last_name,
			u.role, u.department_id, u.job_title_id, u.created_at, u.updated_at
		FROM users u
		LEFT JOIN user_dealerships ud ON ud.user_id = u.id
		WHERE u.dealergroup_id = $1 AND (u.dealership_id = $2 OR ud.dealership_id = $2)
		ORDER BY u.last_name, u.first_name
	`, dealerGroupID, dealershipID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dealership users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]dealer.User, error) {
	var users []dealer.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Update updates a staff record within a dealer group
func (r *UserRepository) Update(ctx context.Context, u *dealer.User) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE users SET
			dealership_id = $3,
			email = $4,
			first_name = $5,
			last_name = $6,
			role = $7,
			department_id = $8,
			job_title_id = $9,
			updated_at = NOW()
		WHERE dealergroup_id = $1 AND id = $2
	`,
		u.DealerGroupID, u.ID, nullable(u.DealershipID), u.Email, u.FirstName, u.LastName,
		u.Role, nullable(u.DepartmentID), nullable(u.JobTitleID),
	)

	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return dealer.ErrUserNotFound
	}

	return nil
}

// Delete removes a staff record within a dealer group
func (r *UserRepository) Delete(ctx context.Context, dealerGroupID, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM users
		WHERE dealergroup_id = $1 AND id = $2
	`, dealerGroupID, id)

	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return dealer.ErrUserNotFound
	}

	return nil
}

// AssignDealership links a user to an additional rooftop
func (r *UserRepository) AssignDealership(ctx context.Context, link *dealer.UserDealership) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO user_dealerships (user_id, dealership_id, is_primary, granted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, dealership_id) DO UPDATE SET is_primary = EXCLUDED.is_primary
	`, link.UserID, link.DealershipID, link.IsPrimary, link.GrantedAt)
	if err != nil {
		return fmt.Errorf("failed to assign dealership: %w", err)
	}
	return nil
}
