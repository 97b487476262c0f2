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
	"net/http"
	"strconv"
	"strings"

	"github.com/dealerdesk/dealerdesk/internal/dashboard"
	"github.com/dealerdesk/dealerdesk/internal/dealer"
	"github.com/dealerdesk/dealerdesk/internal/lead"
	"github.com/dealerdesk/dealerdesk/internal/scope"
)

// Dashboard endpoints serve the paginated table views. Each request binds a
// fresh page to the caller's scope; filter and page come from query params,
// the tenant ids come from the verified token only.

// DealershipPage serves one page of the rooftop table, filterable by name.
func (h *Handler) DealershipPage(w http.ResponseWriter, r *http.Request) {
	page := dashboard.NewPage(dealer.NewDealershipCollection(h.collections.Dealerships), pageSize(r))

	if q := strings.ToLower(r.URL.Query().Get("q")); q != "" {
		page.SetFilter(func(d dealer.Dealership) bool {
			return strings.Contains(strings.ToLower(d.Name), q)
		})
	}
	renderPage(w, r, page)
}

// UserPage serves one page of the staff table, filterable by role.
func (h *Handler) UserPage(w http.ResponseWriter, r *http.Request) {
	var res *scope.Resource[dealer.User]
	if r.URL.Query().Get("dealership_id") != "" {
		res = dealer.NewDealershipUserCollection(h.collections.Users)
	} else {
		res = dealer.NewUserCollection(h.collections.Users)
	}
	page := dashboard.NewPage(res, pageSize(r))

	if role := r.URL.Query().Get("role"); role != "" {
		page.SetFilter(func(u dealer.User) bool { return u.Role == role })
	}
	renderPage(w, r, page)
}

// DepartmentPage serves one page of the department table.
func (h *Handler) DepartmentPage(w http.ResponseWriter, r *http.Request) {
	page := dashboard.NewPage(dealer.NewDepartmentCollection(h.collections.Departments), pageSize(r))

	if q := strings.ToLower(r.URL.Query().Get("q")); q != "" {
		page.SetFilter(func(d dealer.Department) bool {
			return strings.Contains(strings.ToLower(d.Name), q)
		})
	}
	renderPage(w, r, page)
}

// LeadPage serves one page of the lead table, filterable by status.
func (h *Handler) LeadPage(w http.ResponseWriter, r *http.Request) {
	var res *scope.Resource[lead.Lead]
	if r.URL.Query().Get("dealership_id") != "" {
		res = lead.NewDealershipLeadCollection(h.collections.Leads)
	} else {
		res = lead.NewLeadCollection(h.collections.Leads)
	}
	page := dashboard.NewPage(res, pageSize(r))

	if status := r.URL.Query().Get("status"); status != "" {
		page.SetFilter(func(l lead.Lead) bool { return l.Status == status })
	}
	renderPage(w, r, page)
}

func renderPage[T any](w http.ResponseWriter, r *http.Request, page *dashboard.Page[T]) {
	defer page.Close()

	s := scope.Scope{
		DealerGroupID: GetDealerGroupID(r.Context()),
		DealershipID:  r.URL.Query().Get("dealership_id"),
	}
	if err := page.Bind(r.Context(), s); err != nil {
		// The fetch error also lands on the view; surface it there so the
		// table renders its local error state instead of a blank 500.
		view := page.View()
		respondJSON(w, http.StatusOK, view)
		return
	}

	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		page.SetPage(n)
	}
	respondJSON(w, http.StatusOK, page.View())
}

func pageSize(r *http.Request) int {
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	return size
}
