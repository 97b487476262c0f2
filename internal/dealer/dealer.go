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
	"errors"
	"time"

	"github.com/dealerdesk/dealerdesk/internal/access"
)

// Domain errors
var (
	ErrGroupNotFound      = errors.New("dealer group not found")
	ErrDealershipNotFound = errors.New("dealership not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrMissingScope       = errors.New("operation requires a dealer group scope")
	ErrGroupMismatch      = errors.New("dealership does not belong to the dealer group")
)

// DealerGroup is the tenant. Every business entity hangs off exactly one
// dealer group; the subscription fields drive the access context.
type DealerGroup struct {
	ID                 string
	Name               string
	SubscriptionStatus access.SubscriptionStatus
	TrialEnd           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Dealership is a rooftop within a dealer group.
//
// Invariant: DealerGroupID always matches the parent group; the service
// rejects cross-group writes before they reach the store.
type Dealership struct {
	ID            string
	DealerGroupID string
	Name          string
	City          string
	Province      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// User is a staff record owned by the data store. Distinct from
// identity.Identity: the identity is the auth principal, this is the
// business entity the dashboards list and edit.
type User struct {
	ID            string
	DealerGroupID string
	DealershipID  string // optional primary rooftop; empty means group-wide
	Email         string
	FirstName     string
	LastName      string
	Role          string
	DepartmentID  string
	JobTitleID    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Department groups job titles within a dealer group.
type Department struct {
	ID            string
	DealerGroupID string
	Name          string
	CreatedAt     time.Time
}

// JobTitle is a position within a department.
type JobTitle struct {
	ID            string
	DealerGroupID string
	DepartmentID  string
	Title         string
	CreatedAt     time.Time
}

// UserDealership links a user to an additional rooftop.
type UserDealership struct {
	UserID       string
	DealershipID string
	IsPrimary    bool
	GrantedAt    time.Time
}
