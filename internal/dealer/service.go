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

package dealer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/internal/audit"
)

// Service provides dealer-group scoped business logic.
type Service struct {
	groups      GroupRepository
	dealerships DealershipRepository
	users       UserRepository
	departments DepartmentRepository
	auditLogger audit.Logger
}

// NewService creates a new dealer service.
func NewService(
	groups GroupRepository,
	dealerships DealershipRepository,
	users UserRepository,
	departments DepartmentRepository,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		groups:      groups,
		dealerships: dealerships,
		users:       users,
		departments: departments,
		auditLogger: auditLogger,
	}
}

// GetGroup retrieves a dealer group by ID.
func (s *Service) GetGroup(ctx context.Context, id string) (*DealerGroup, error) {
	if id == "" {
		return nil, ErrMissingScope
	}
	return s.groups.GetByID(ctx, id)
}

// CreateDealership creates a rooftop under the given dealer group. The
// parent group must exist; the new dealership inherits its group id so the
// group-match invariant holds by construction.
func (s *Service) CreateDealership(ctx context.Context, dealerGroupID, name, city, province string, actorID string) (*Dealership, error) {
	if dealerGroupID == "" {
		return nil, ErrMissingScope
	}
	if name == "" {
		return nil, fmt.Errorf("dealership name is required")
	}
	if _, err := s.groups.GetByID(ctx, dealerGroupID); err != nil {
		return nil, fmt.Errorf("failed to verify dealer group: %w", err)
	}

	now := time.Now()
	d := &Dealership{
		ID:            uuid.Must(uuid.NewV7()).String(),
		DealerGroupID: dealerGroupID,
		Name:          name,
		City:          city,
		Province:      province,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.dealerships.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create dealership: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:        audit.TypeDealershipCreated,
		DealerGroup: dealerGroupID,
		ActorID:     actorID,
		Resource:    d.ID,
		Metadata:    map[string]any{"name": name},
	})
	return d, nil
}

// UpdateDealership updates a rooftop, rejecting cross-group writes.
func (s *Service) UpdateDealership(ctx context.Context, dealerGroupID string, d *Dealership) error {
	if dealerGroupID == "" {
		return ErrMissingScope
	}
	if d.DealerGroupID != dealerGroupID {
		return ErrGroupMismatch
	}
	d.UpdatedAt = time.Now()
	return s.dealerships.Update(ctx, d)
}

// ListDealerships lists the rooftops of a dealer group.
func (s *Service) ListDealerships(ctx context.Context, dealerGroupID string) ([]Dealership, error) {
	if dealerGroupID == "" {
		return nil, ErrMissingScope
	}
	return s.dealerships.ListByGroup(ctx, dealerGroupID)
}

// CreateUser creates a staff record inside the dealer group. A dealership
// assignment, when present, must reference a rooftop of the same group.
func (s *Service) CreateUser(ctx context.Context, u *User, actorID string) (*User, error) {
	if u.DealerGroupID == "" {
		return nil, ErrMissingScope
	}
	if u.Email == "" {
		return nil, fmt.Errorf("user email is required")
	}
	if u.DealershipID != "" {
		if _, err := s.dealerships.GetByID(ctx, u.DealerGroupID, u.DealershipID); err != nil {
			return nil, ErrGroupMismatch
		}
	}

	now := time.Now()
	u.ID = uuid.Must(uuid.NewV7()).String()
	u.CreatedAt = now
	u.UpdatedAt = now
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:        audit.TypeUserCreated,
		DealerGroup: u.DealerGroupID,
		ActorID:     actorID,
		Resource:    u.ID,
		Metadata:    map[string]any{"email": u.Email, "role": u.Role},
	})
	return u, nil
}

// UpdateUser updates a staff record within the scope.
func (s *Service) UpdateUser(ctx context.Context, dealerGroupID string, u *User) error {
	if dealerGroupID == "" {
		return ErrMissingScope
	}
	if u.DealerGroupID != dealerGroupID {
		return ErrGroupMismatch
	}
	u.UpdatedAt = time.Now()
	return s.users.Update(ctx, u)
}

// DeleteUser removes a staff record within the scope.
func (s *Service) DeleteUser(ctx context.Context, dealerGroupID, userID, actorID string) error {
	if dealerGroupID == "" {
		return ErrMissingScope
	}
	if err := s.users.Delete(ctx, dealerGroupID, userID); err != nil {
		return err
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:        audit.TypeUserDeleted,
		DealerGroup: dealerGroupID,
		ActorID:     actorID,
		Resource:    userID,
	})
	return nil
}

// ListUsers lists staff records, optionally narrowed to one dealership.
func (s *Service) ListUsers(ctx context.Context, dealerGroupID, dealershipID string) ([]User, error) {
	if dealerGroupID == "" {
		return nil, ErrMissingScope
	}
	if dealershipID != "" {
		return s.users.ListByDealership(ctx, dealerGroupID, dealershipID)
	}
	return s.users.ListByGroup(ctx, dealerGroupID)
}

// AssignDealership links a user to an additional rooftop of the same group.
func (s *Service) AssignDealership(ctx context.Context, dealerGroupID, userID, dealershipID string, primary bool) error {
	if dealerGroupID == "" {
		return ErrMissingScope
	}
	if _, err := s.users.GetByID(ctx, dealerGroupID, userID); err != nil {
		return err
	}
	if _, err := s.dealerships.GetByID(ctx, dealerGroupID, dealershipID); err != nil {
		return ErrGroupMismatch
	}
	return s.users.AssignDealership(ctx, &UserDealership{
		UserID:       userID,
		DealershipID: dealershipID,
		IsPrimary:    primary,
		GrantedAt:    time.Now(),
	})
}

// CreateDepartment creates a department within the dealer group.
func (s *Service) CreateDepartment(ctx context.Context, dealerGroupID, name string) (*Department, error) {
	if dealerGroupID == "" {
		return nil, ErrMissingScope
	}
	if name == "" {
		return nil, fmt.Errorf("department name is required")
	}
	d := &Department{
		ID:            uuid.Must(uuid.NewV7()).String(),
		DealerGroupID: dealerGroupID,
		Name:          name,
		CreatedAt:     time.Now(),
	}
	if err := s.departments.CreateDepartment(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	return d, nil
}

// ListDepartments lists the departments of a dealer group.
func (s *Service) ListDepartments(ctx context.Context, dealerGroupID string) ([]Department, error) {
	if dealerGroupID == "" {
		return nil, ErrMissingScope
	}
	return s.departments.ListDepartments(ctx, dealerGroupID)
}

// CreateJobTitle creates a job title under a department of the group.
func (s *Service) CreateJobTitle(ctx context.Context, dealerGroupID, departmentID, title string) (*JobTitle, error) {
	if dealerGroupID == "" {
		return nil, ErrMissingScope
	}
	jt := &JobTitle{
		ID:            uuid.Must(uuid.NewV7()).String(),
		DealerGroupID: dealerGroupID,
		DepartmentID:  departmentID,
		Title:         title,
		CreatedAt:     time.Now(),
	}
	if err := s.departments.CreateJobTitle(ctx, jt); err != nil {
		return nil, fmt.Errorf("failed to create job title: %w", err)
	}
	return jt, nil
}

// ListJobTitles lists job titles for a department within the group.
func (s *Service) ListJobTitles(ctx context.Context, dealerGroupID, departmentID string) ([]JobTitle, error) {
	if dealerGroupID == "" {
		return nil, ErrMissingScope
	}
	return s.departments.ListJobTitles(ctx, dealerGroupID, departmentID)
}
