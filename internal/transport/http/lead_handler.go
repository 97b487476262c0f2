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

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dealerdesk/dealerdesk/internal/lead"
)

// ListLeads lists leads, optionally narrowed to one rooftop.
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.leadService.List(
		r.Context(), GetDealerGroupID(r.Context()), r.URL.Query().Get("dealership_id"),
	)
	if err != nil {
		respondLeadError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

// CreateLeadRequest carries a new lead.
type CreateLeadRequest struct {
	DealershipID string `json:"dealership_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Source       string `json:"source"`
}

// CreateLead records a lead in the caller's dealer group.
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.leadService.Create(r.Context(), &lead.Lead{
		DealerGroupID: GetDealerGroupID(r.Context()),
		DealershipID:  req.DealershipID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		Source:        req.Source,
	}, GetIdentity(r.Context()).ID)
	if err != nil {
		respondLeadError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, l)
}

// UpdateLeadStatusRequest carries a pipeline transition.
type UpdateLeadStatusRequest struct {
	Status string `json:"status"`
}

// UpdateLeadStatus moves a lead through its pipeline.
func (h *Handler) UpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateLeadStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.leadService.UpdateStatus(
		r.Context(), GetDealerGroupID(r.Context()), chi.URLParam(r, "leadID"), req.Status,
	)
	if err != nil {
		respondLeadError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

// AssignLeadRequest hands a lead to a staff user.
type AssignLeadRequest struct {
	UserID string `json:"user_id"`
}

// AssignLead hands a lead to a staff user within the scope.
func (h *Handler) AssignLead(w http.ResponseWriter, r *http.Request) {
	var req AssignLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.leadService.Assign(
		r.Context(), GetDealerGroupID(r.Context()), chi.URLParam(r, "leadID"), req.UserID,
	)
	if err != nil {
		respondLeadError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

// StreamAlerts pushes the caller's group alert feed as server-sent events.
func (h *Handler) StreamAlerts(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		respondError(w, http.StatusNotImplemented, "alert feed is not configured")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := h.feed.Subscribe(r.Context(), GetDealerGroupID(r.Context()))
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "alert feed unavailable")
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case alert, ok := <-sub.Alerts():
			if !ok {
				return
			}
			payload, err := json.Marshal(alert)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: lead_alert\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func respondLeadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lead.ErrMissingScope):
		respondError(w, http.StatusForbidden, "no dealer group scope")
	case errors.Is(err, lead.ErrLeadNotFound):
		respondError(w, http.StatusNotFound, "lead not found")
	default:
		respondError(w, http.StatusInternalServerError, "operation failed")
	}
}
