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
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dealerdesk/dealerdesk/internal/dealer"
)

// ListDealerships lists the caller's rooftops.
func (h *Handler) ListDealerships(w http.ResponseWriter, r *http.Request) {
	dealerships, err := h.dealerService.ListDealerships(r.Context(), GetDealerGroupID(r.Context()))
	if err != nil {
		respondDealerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"dealerships": dealerships})
}

// CreateDealershipRequest carries a new rooftop.
type CreateDealershipRequest struct {
	Name     string `json:"name"`
	City     string `json:"city"`
	Province string `json:"province"`
}

// CreateDealership creates a rooftop under the caller's dealer group.
func (h *Handler) CreateDealership(w http.ResponseWriter, r *http.Request) {
	var req CreateDealershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.dealerService.CreateDealership(
		r.Context(), GetDealerGroupID(r.Context()), req.Name, req.City, req.Province, GetIdentity(r.Context()).ID,
	)
	if err != nil {
		respondDealerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

// UpdateDealership updates a rooftop within the caller's scope.
func (h *Handler) UpdateDealership(w http.ResponseWriter, r *http.Request) {
	var req CreateDealershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	groupID := GetDealerGroupID(r.Context())
	d := &dealer.Dealership{
		ID:            chi.URLParam(r, "dealershipID"),
		DealerGroupID: groupID,
		Name:          req.Name,
		City:          req.City,
		Province:      req.Province,
	}
	if err := h.dealerService.UpdateDealership(r.Context(), groupID, d); err != nil {
		respondDealerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "dealership updated"})
}

// ListUsers lists staff, optionally narrowed to one rooftop via query param.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.dealerService.ListUsers(
		r.Context(), GetDealerGroupID(r.Context()), r.URL.Query().Get("dealership_id"),
	)
	if err != nil {
		respondDealerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

// CreateUserRequest carries a new staff record.
type CreateUserRequest struct {
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         string `json:"role"`
	DealershipID string `json:"dealership_id"`
	DepartmentID string `json:"department_id"`
	JobTitleID   string `json:"job_title_id"`
}

// CreateUser creates a staff record in the caller's dealer group.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.dealerService.CreateUser(r.Context(), &dealer.User{
		DealerGroupID: GetDealerGroupID(r.Context()),
		DealershipID:  req.DealershipID,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Role:          req.Role,
		DepartmentID:  req.DepartmentID,
		JobTitleID:    req.JobTitleID,
	}, GetIdentity(r.Context()).ID)
	if err != nil {
		respondDealerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, u)
}

// UpdateUser updates a staff record within the caller's scope.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	groupID := GetDealerGroupID(r.Context())
	u := &dealer.User{
		ID:            chi.URLParam(r, "userID"),
		DealerGroupID: groupID,
		DealershipID:  req.DealershipID,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Role:          req.Role,
		DepartmentID:  req.DepartmentID,
		JobTitleID:    req.JobTitleID,
	}
	if err := h.dealerService.UpdateUser(r.Context(), groupID, u); err != nil {
		respondDealerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "user updated"})
}

// DeleteUser removes a staff record within the caller's scope.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	err := h.dealerService.DeleteUser(
		r.Context(), GetDealerGroupID(r.Context()), chi.URLParam(r, "userID"), GetIdentity(r.Context()).ID,
	)
	if err != nil {
		respondDealerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// AssignUserDealershipRequest links a user to a rooftop.
type AssignUserDealershipRequest struct {
	DealershipID string `json:"dealership_id"`
	IsPrimary    bool   `json:"is_primary"`
}

// AssignUserDealership links a user to an additional rooftop of the group.
func (h *Handler) AssignUserDealership(w http.ResponseWriter, r *http.Request) {
	var req AssignUserDealershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.dealerService.AssignDealership(
		r.Context(), GetDealerGroupID(r.Context()), chi.URLParam(r, "userID"), req.DealershipID, req.IsPrimary,
	)
	if err != nil {
		respondDealerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "dealership assigned"})
}

// ListDepartments lists the caller's departments.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.dealerService.ListDepartments(r.Context(), GetDealerGroupID(r.Context()))
	if err != nil {
		respondDealerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"departments": departments})
}

// CreateDepartmentRequest carries a new department.
type CreateDepartmentRequest struct {
	Name string `json:"name"`
}

// CreateDepartment creates a department in the caller's dealer group.
func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req CreateDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.dealerService.CreateDepartment(r.Context(), GetDealerGroupID(r.Context()), req.Name)
	if err != nil {
		respondDealerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

// ListJobTitles lists a department's job titles.
func (h *Handler) ListJobTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := h.dealerService.ListJobTitles(
		r.Context(), GetDealerGroupID(r.Context()), chi.URLParam(r, "departmentID"),
	)
	if err != nil {
		respondDealerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"job_titles": titles})
}

// CreateJobTitleRequest carries a new job title.
type CreateJobTitleRequest struct {
	Title string `json:"title"`
}

// CreateJobTitle creates a job title under a department.
func (h *Handler) CreateJobTitle(w http.ResponseWriter, r *http.Request) {
	var req CreateJobTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jt, err := h.dealerService.CreateJobTitle(
		r.Context(), GetDealerGroupID(r.Context()), chi.URLParam(r, "departmentID"), req.Title,
	)
	if err != nil {
		respondDealerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, jt)
}

func respondDealerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dealer.ErrMissingScope):
		respondError(w, http.StatusForbidden, "no dealer group scope")
	case errors.Is(err, dealer.ErrGroupMismatch):
		respondError(w, http.StatusForbidden, "resource belongs to another dealer group")
	case errors.Is(err, dealer.ErrGroupNotFound),
		errors.Is(err, dealer.ErrDealershipNotFound),
		errors.Is(err, dealer.ErrUserNotFound),
		errors.Is(err, dealer.ErrDepartmentNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "operation failed")
	}
}
