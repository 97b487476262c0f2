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

	"github.com/dealerdesk/dealerdesk/internal/dealer"
)

// DepartmentRepository implements dealer.DepartmentRepository
type DepartmentRepository struct {
	db *DB
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// CreateDepartment creates a department within a dealer group
func (r *DepartmentRepository) CreateDepartment(ctx context.Context, d *dealer.Department) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO departments (id, dealergroup_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, d.ID, d.DealerGroupID, d.Name, now)
	if err != nil {
		return fmt.Errorf("failed to insert department: %w", err)
	}

	d.CreatedAt = now

	return nil
}

// ListDepartments lists the departments of a dealer group
func (r *DepartmentRepository) ListDepartments(ctx context.Context, dealerGroupID string) ([]dealer.Department, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, dealergroup_id, name, created_at
		FROM departments
		WHERE dealergroup_id = $1
		ORDER BY name
	`, dealerGroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var departments []dealer.Department
	for rows.Next() {
		var d dealer.Department
		if err := rows.Scan(&d.ID, &d.DealerGroupID, &d.Name, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, d)
	}

	return departments, rows.Err()
}

// DeleteDepartment removes a department within a dealer group
func (r *DepartmentRepository) DeleteDepartment(ctx context.Context, dealerGroupID, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM departments
		WHERE dealergroup_id = $1 AND id = $2
	`, dealerGroupID, id)

	if err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}

	if result.RowsAffected() == 0 {
		return dealer.ErrDepartmentNotFound
	}

	return nil
}

// CreateJobTitle creates a job title under a department
func (r *DepartmentRepository) CreateJobTitle(ctx context.Context, jt *dealer.JobTitle) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO job_titles (id, dealergroup_id, department_id, title, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, jt.ID, jt.DealerGroupID, jt.DepartmentID, jt.Title, now)
	if err != nil {
		return fmt.Errorf("failed to insert job title: %w", err)
	}

	jt.CreatedAt = now

	return nil
}

// ListJobTitles lists job titles for a department within a dealer group
func (r *DepartmentRepository) ListJobTitles(ctx context.Context, dealerGroupID, departmentID string) ([]dealer.JobTitle, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, dealergroup_id, department_id, title, created_at
		FROM job_titles
		WHERE dealergroup_id = $1 AND department_id = $2
		ORDER BY title
	`, dealerGroupID, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list job titles: %w", err)
	}
	defer rows.Close()

	var titles []dealer.JobTitle
	for rows.Next() {
		var jt dealer.JobTitle
		if err := rows.Scan(&jt.ID, &jt.DealerGroupID, &jt.DepartmentID, &jt.Title, &jt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job title: %w", err)
		}
		titles = append(titles, jt)
	}

	return titles, rows.Err()
}
