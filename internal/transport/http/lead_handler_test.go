package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk/internal/audit"
	"github.com/dealerdesk/dealerdesk/internal/dashboard"
	"github.com/dealerdesk/dealerdesk/internal/identity"
	"github.com/dealerdesk/dealerdesk/internal/lead"
)

type mockLeadRepository struct {
	mock.Mock
}

func (m *mockLeadRepository) Create(ctx context.Context, l *lead.Lead) error {
	return m.Called(ctx, l).Error(0)
}

func (m *mockLeadRepository) GetByID(ctx context.Context, dealerGroupID, id string) (*lead.Lead, error) {
	args := m.Called(ctx, dealerGroupID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lead.Lead), args.Error(1)
}

func (m *mockLeadRepository) ListByGroup(ctx context.Context, dealerGroupID string) ([]lead.Lead, error) {
	args := m.Called(ctx, dealerGroupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lead.Lead), args.Error(1)
}

func (m *mockLeadRepository) ListByDealership(ctx context.Context, dealerGroupID, dealershipID string) ([]lead.Lead, error) {
	args := m.Called(ctx, dealerGroupID, dealershipID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lead.Lead), args.Error(1)
}

func (m *mockLeadRepository) Update(ctx context.Context, l *lead.Lead) error {
	return m.Called(ctx, l).Error(0)
}

func (m *mockLeadRepository) Delete(ctx context.Context, dealerGroupID, id string) error {
	return m.Called(ctx, dealerGroupID, id).Error(0)
}

func newLeadHandler(repo lead.Repository) *Handler {
	return &Handler{
		leadService: lead.NewService(repo, nil, audit.NewSlogLogger()),
		collections: Collections{Leads: repo},
		auditLogger: audit.NewSlogLogger(),
	}
}

func asStaff(r *http.Request, dealerGroupID string) *http.Request {
	ident := &identity.Identity{
		ID:    "user-1",
		Email: "staff@example.com",
		Affiliation: &identity.Affiliation{
			DealerGroupID: dealerGroupID,
			Role:          identity.RoleStaff,
		},
	}
	return r.WithContext(context.WithValue(r.Context(), identityKey, ident))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// TestPurpose: Validates that lead reads and writes carry only the caller's
// dealer group scope.
// Scope: Unit Test
// Security: Tenant data isolation
// Expected: List queries the caller's group; a foreign lead id yields 404.
func TestLeadHandlers_ScopedToCallerGroup(t *testing.T) {
	t.Run("list queries only the caller's group", func(t *testing.T) {
		repo := new(mockLeadRepository)
		repo.On("ListByGroup", mock.Anything, "G1").Return([]lead.Lead{
			{ID: "L1", DealerGroupID: "G1", FirstName: "Dana"},
		}, nil)
		h := newLeadHandler(repo)

		req := asStaff(httptest.NewRequest("GET", "/api/v1/leads", nil), "G1")
		w := httptest.NewRecorder()
		h.ListLeads(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Leads []lead.Lead `json:"leads"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp.Leads, 1)
		assert.Equal(t, "L1", resp.Leads[0].ID)
		repo.AssertExpectations(t)
	})

	t.Run("create stamps the caller's group", func(t *testing.T) {
		repo := new(mockLeadRepository)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(l *lead.Lead) bool {
			return l.DealerGroupID == "G1" && l.FirstName == "Dana"
		})).Return(nil)
		h := newLeadHandler(repo)

		body, _ := json.Marshal(CreateLeadRequest{FirstName: "Dana", Source: lead.SourceWalkIn})
		req := asStaff(httptest.NewRequest("POST", "/api/v1/leads", bytes.NewReader(body)), "G1")
		w := httptest.NewRecorder()
		h.CreateLead(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		repo.AssertExpectations(t)
	})

	t.Run("a foreign lead id is not found", func(t *testing.T) {
		repo := new(mockLeadRepository)
		// The repository is asked with the caller's group, so the row owned
		// by another group does not come back.
		repo.On("GetByID", mock.Anything, "G1", "L-foreign").Return(nil, lead.ErrLeadNotFound)
		h := newLeadHandler(repo)

		body, _ := json.Marshal(UpdateLeadStatusRequest{Status: lead.StatusContacted})
		req := asStaff(httptest.NewRequest("PUT", "/api/v1/leads/L-foreign/status", bytes.NewReader(body)), "G1")
		req = withURLParam(req, "leadID", "L-foreign")
		w := httptest.NewRecorder()
		h.UpdateLeadStatus(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		repo.AssertExpectations(t)
	})
}

// TestPurpose: Validates the paginated lead table endpoint.
// Scope: Unit Test
// Expected: The page binds to the token scope, applies the status filter
// locally, and slices to the requested page.
func TestLeadPage_FiltersAndPaginates(t *testing.T) {
	repo := new(mockLeadRepository)
	repo.On("ListByGroup", mock.Anything, "G1").Return([]lead.Lead{
		{ID: "L1", Status: lead.StatusNew},
		{ID: "L2", Status: lead.StatusContacted},
		{ID: "L3", Status: lead.StatusNew},
		{ID: "L4", Status: lead.StatusNew},
	}, nil).Once()
	h := newLeadHandler(repo)

	req := asStaff(httptest.NewRequest("GET", "/api/v1/dashboard/leads?status=new&page_size=2&page=1", nil), "G1")
	w := httptest.NewRecorder()
	h.LeadPage(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var view dashboard.View[lead.Lead]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, 3, view.TotalItems)
	assert.Equal(t, 2, view.PageCount)
	assert.Equal(t, 1, view.Page)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "L4", view.Items[0].ID)
	repo.AssertExpectations(t)
}
