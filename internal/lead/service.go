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
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/internal/audit"
)

// Service provides dealer-group scoped lead management.
type Service struct {
	leads       Repository
	alerts      AlertPublisher
	auditLogger audit.Logger
}

// NewService creates a new lead service. alerts may be nil when no realtime
// feed is configured.
func NewService(leads Repository, alerts AlertPublisher, auditLogger audit.Logger) *Service {
	return &Service{
		leads:       leads,
		alerts:      alerts,
		auditLogger: auditLogger,
	}
}

// Create stores a new lead and publishes an alert on the group's feed.
// Alert delivery is best effort: a publish failure never fails the create.
func (s *Service) Create(ctx context.Context, l *Lead, actorID string) (*Lead, error) {
	if l.DealerGroupID == "" {
		return nil, ErrMissingScope
	}
	if l.FirstName == "" && l.LastName == "" {
		return nil, fmt.Errorf("lead requires a name")
	}

	now := time.Now()
	l.ID = uuid.Must(uuid.NewV7()).String()
	if l.Status == "" {
		l.Status = StatusNew
	}
	if l.Source == "" {
		l.Source = SourceWeb
	}
	l.CreatedAt = now
	l.UpdatedAt = now
	if err := s.leads.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:        audit.TypeLeadCreated,
		DealerGroup: l.DealerGroupID,
		ActorID:     actorID,
		Resource:    l.ID,
		Metadata:    map[string]any{"source": l.Source, "dealership_id": l.DealershipID},
	})

	if s.alerts != nil {
		alert := Alert{
			LeadID:        l.ID,
			DealerGroupID: l.DealerGroupID,
			DealershipID:  l.DealershipID,
			Source:        l.Source,
			CreatedAt:     now,
		}
		if err := s.alerts.Publish(ctx, alert); err != nil {
			slog.WarnContext(ctx, "failed to publish lead alert",
				slog.String("lead_id", l.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return l, nil
}

// Get retrieves a lead within the scope.
func (s *Service) Get(ctx context.Context, dealerGroupID, id string) (*Lead, error) {
	if dealerGroupID == "" {
		return nil, ErrMissingScope
	}
	return s.leads.GetByID(ctx, dealerGroupID, id)
}

// List lists leads, optionally narrowed to one dealership.
func (s *Service) List(ctx context.Context, dealerGroupID, dealershipID string) ([]Lead, error) {
	if dealerGroupID == "" {
		return nil, ErrMissingScope
	}
	if dealershipID != "" {
		return s.leads.ListByDealership(ctx, dealerGroupID, dealershipID)
	}
	return s.leads.ListByGroup(ctx, dealerGroupID)
}

// UpdateStatus moves a lead through its pipeline within the scope.
func (s *Service) UpdateStatus(ctx context.Context, dealerGroupID, id, status string) (*Lead, error) {
	if dealerGroupID == "" {
		return nil, ErrMissingScope
	}
	l, err := s.leads.GetByID(ctx, dealerGroupID, id)
	if err != nil {
		return nil, err
	}
	l.Status = status
	l.UpdatedAt = time.Now()
	if err := s.leads.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	return l, nil
}

// Assign hands a lead to a staff user within the scope.
func (s *Service) Assign(ctx context.Context, dealerGroupID, id, userID string) (*Lead, error) {
	if dealerGroupID == "" {
		return nil, ErrMissingScope
	}
	l, err := s.leads.GetByID(ctx, dealerGroupID, id)
	if err != nil {
		return nil, err
	}
	l.AssignedTo = userID
	if l.Status == StatusNew {
		l.Status = StatusContacted
	}
	l.UpdatedAt = time.Now()
	if err := s.leads.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to assign lead: %w", err)
	}
	return l, nil
}

// Delete removes a lead within the scope.
func (s *Service) Delete(ctx context.Context, dealerGroupID, id string) error {
	if dealerGroupID == "" {
		return ErrMissingScope
	}
	return s.leads.Delete(ctx, dealerGroupID, id)
}
