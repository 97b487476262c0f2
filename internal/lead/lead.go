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

package lead

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrLeadNotFound = errors.New("lead not found")
	ErrMissingScope = errors.New("operation requires a dealer group scope")
)

// Lead statuses
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusQualified = "qualified"
	StatusClosed    = "closed"
)

// Lead sources
const (
	SourceWeb         = "web"
	SourceWalkIn      = "walk_in"
	SourceLicenseScan = "license_scan"
)

// Lead is a sales prospect scoped to a dealer group and rooftop.
type Lead struct {
	ID            string
	DealerGroupID string
	DealershipID  string
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	Source        string
	Status        string
	AssignedTo    string // staff user id, empty when unassigned
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Repository defines the interface for lead storage. Reads always carry the
// dealer group id; the optional dealership id narrows further.
type Repository interface {
	Create(ctx context.Context, l *Lead) error
	GetByID(ctx context.Context, dealerGroupID, id string) (*Lead, error)
	ListByGroup(ctx context.Context, dealerGroupID string) ([]Lead, error)
	ListByDealership(ctx context.Context, dealerGroupID, dealershipID string) ([]Lead, error)
	Update(ctx context.Context, l *Lead) error
	Delete(ctx context.Context, dealerGroupID, id string) error
}

// Alert is the realtime notification published when a lead lands.
type Alert struct {
	LeadID        string    `json:"lead_id"`
	DealerGroupID string    `json:"dealergroup_id"`
	DealershipID  string    `json:"dealership_id"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"created_at"`
}

// AlertPublisher pushes lead alerts onto the per-group realtime feed. The
// feed serves exactly one dashboard widget; everything else refetches on
// demand.
type AlertPublisher interface {
	Publish(ctx context.Context, alert Alert) error
}
