package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk/internal/access"
	"github.com/dealerdesk/dealerdesk/internal/audit"
	"github.com/dealerdesk/dealerdesk/internal/guard"
	"github.com/dealerdesk/dealerdesk/internal/identity"
	"github.com/dealerdesk/dealerdesk/internal/session"
)

var testSecret = []byte("middleware-test-secret")

type mockGroupReader struct {
	mock.Mock
}

func (m *mockGroupReader) SubscriptionState(ctx context.Context, dealerGroupID string) (*access.SubscriptionState, error) {
	args := m.Called(ctx, dealerGroupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*access.SubscriptionState), args.Error(1)
}

type mockSessionProvider struct {
	mock.Mock
}

func (m *mockSessionProvider) Refresh(ctx context.Context, refreshToken string) (*session.Token, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Token), args.Error(1)
}

func (m *mockSessionProvider) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

func signTestToken(t *testing.T, groupID, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":             "user-1",
		"email":           "staff@example.com",
		"email_confirmed": true,
		"exp":             time.Now().Add(time.Hour).Unix(),
	}
	if groupID != "" {
		claims["user_metadata"] = map[string]any{
			"dealergroup_id": groupID,
			"role":           role,
		}
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return raw
}

func newGuardedHandler(reader access.GroupReader) *Handler {
	return &Handler{
		parser:         identity.NewTokenParser(testSecret),
		resolver:       access.NewResolver(reader),
		guard:          guard.New(),
		auditLogger:    audit.NewSlogLogger(),
		pendingTimeout: 300 * time.Millisecond,
	}
}

func guardedEndpoint(h *Handler, req guard.Request) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"message": "rendered"})
	})
	return h.AuthMiddleware(h.AccessMiddleware(h.Guarded(req)(inner)))
}

// TestPurpose: Validates the ordered guard rules at the HTTP boundary.
// Scope: Unit Test
// Security: Tenant access gating (billing state before role checks)
// Expected: 401 without a token, 403 with reactivation target for expired
// trials, 403 with unauthorized target for role mismatches, 200 otherwise.
func TestGuardMiddleware_RuleOrdering(t *testing.T) {
	t.Run("no token is unauthenticated", func(t *testing.T) {
		h := newGuardedHandler(new(mockGroupReader))
		req := httptest.NewRequest("GET", "/dashboard", nil)
		w := httptest.NewRecorder()
		guardedEndpoint(h, guard.Request{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired trial is bounced to reactivate", func(t *testing.T) {
		reader := new(mockGroupReader)
		yesterday := time.Now().Add(-24 * time.Hour)
		reader.On("SubscriptionState", mock.Anything, "G2").Return(
			&access.SubscriptionState{Status: access.StatusTrialing, TrialEnd: &yesterday}, nil,
		)
		h := newGuardedHandler(reader)

		req := httptest.NewRequest("GET", "/dashboard", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "G2", "admin"))
		w := httptest.NewRecorder()
		guardedEndpoint(h, guard.Request{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), guard.PathReactivate)
		assert.Contains(t, w.Body.String(), "/dashboard")
	})

	t.Run("billing check precedes role check", func(t *testing.T) {
		reader := new(mockGroupReader)
		reader.On("SubscriptionState", mock.Anything, "G2").Return(
			&access.SubscriptionState{Status: access.StatusCanceled}, nil,
		)
		h := newGuardedHandler(reader)

		// Staff user on an admin route with a canceled subscription:
		// the redirect target must be reactivation, not unauthorized.
		req := httptest.NewRequest("GET", "/admin/users", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "G2", "staff"))
		w := httptest.NewRecorder()
		guardedEndpoint(h, guard.Request{RequiredRole: identity.RoleAdmin}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), guard.PathReactivate)
		assert.Contains(t, w.Body.String(), guard.ReasonInactive)
	})

	t.Run("role mismatch on active tenant is unauthorized", func(t *testing.T) {
		reader := new(mockGroupReader)
		reader.On("SubscriptionState", mock.Anything, "G1").Return(
			&access.SubscriptionState{Status: access.StatusActive}, nil,
		)
		h := newGuardedHandler(reader)

		req := httptest.NewRequest("GET", "/admin/users", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "G1", "staff"))
		w := httptest.NewRecorder()
		guardedEndpoint(h, guard.Request{RequiredRole: identity.RoleAdmin}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), guard.PathUnauthorized)
	})

	t.Run("active tenant renders", func(t *testing.T) {
		reader := new(mockGroupReader)
		reader.On("SubscriptionState", mock.Anything, "G1").Return(
			&access.SubscriptionState{Status: access.StatusActive}, nil,
		)
		h := newGuardedHandler(reader)

		req := httptest.NewRequest("GET", "/dashboard", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "G1", "staff"))
		w := httptest.NewRecorder()
		guardedEndpoint(h, guard.Request{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unaffiliated identity is not bounced", func(t *testing.T) {
		reader := new(mockGroupReader)
		h := newGuardedHandler(reader)

		req := httptest.NewRequest("GET", "/onboarding", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "", ""))
		w := httptest.NewRecorder()
		guardedEndpoint(h, guard.Request{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		reader.AssertNotCalled(t, "SubscriptionState", mock.Anything, mock.Anything)
	})
}

// TestPurpose: Validates that client-supplied scope headers are rejected.
// Scope: Unit Test
// Security: Tenant context spoofing prevention (CWE-284)
// Expected: 400 when X-DealerGroup-ID accompanies an authenticated request.
func TestAuthMiddleware_RejectsScopeHeader(t *testing.T) {
	reader := new(mockGroupReader)
	h := newGuardedHandler(reader)

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "G1", "staff"))
	req.Header.Set("X-DealerGroup-ID", "G-other")
	w := httptest.NewRecorder()
	guardedEndpoint(h, guard.Request{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	reader.AssertNotCalled(t, "SubscriptionState", mock.Anything, mock.Anything)
}

// TestPurpose: Validates that a token refresh invalidates the memoized
// access context for the caller's group.
// Scope: Unit Test
// Security: Subscription state changes must reach all guarded routes
// Expected: A canceled group is bounced and stays bounced from the memo;
// after a successful refresh the subscription is re-read and the now-active
// group renders.
func TestRefreshSession_InvalidatesAccessContext(t *testing.T) {
	reader := new(mockGroupReader)
	reader.On("SubscriptionState", mock.Anything, "G1").Return(
		&access.SubscriptionState{Status: access.StatusCanceled}, nil,
	).Once()
	reader.On("SubscriptionState", mock.Anything, "G1").Return(
		&access.SubscriptionState{Status: access.StatusActive}, nil,
	).Once()

	accessToken := signTestToken(t, "G1", "staff")
	provider := new(mockSessionProvider)
	provider.On("Refresh", mock.Anything, "rt-1").Return(&session.Token{
		AccessToken:  accessToken,
		RefreshToken: "rt-2",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil)

	h := newGuardedHandler(reader)
	h.provider = provider

	guarded := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/dashboard", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken)
		w := httptest.NewRecorder()
		guardedEndpoint(h, guard.Request{}).ServeHTTP(w, req)
		return w
	}

	// Canceled subscription bounces, and the second request answers from
	// the memo without touching the store.
	assert.Equal(t, http.StatusForbidden, guarded().Code)
	assert.Equal(t, http.StatusForbidden, guarded().Code)

	req := httptest.NewRequest("POST", "/api/v1/auth/refresh",
		strings.NewReader(`{"refresh_token":"rt-1"}`))
	w := httptest.NewRecorder()
	h.RefreshSession(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// The refresh dropped the memo, so the reactivated group renders.
	assert.Equal(t, http.StatusOK, guarded().Code)
	reader.AssertExpectations(t)
}

// TestPurpose: Validates pending degradation when the access context cannot resolve.
// Scope: Unit Test
// Expected: 503 with Retry-After once the bounded wait elapses, never a denial.
func TestGuardMiddleware_PendingDegradesTo503(t *testing.T) {
	reader := new(mockGroupReader)
	reader.On("SubscriptionState", mock.Anything, "G1").Return(nil, context.DeadlineExceeded)
	h := newGuardedHandler(reader)

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "G1", "staff"))
	w := httptest.NewRecorder()
	guardedEndpoint(h, guard.Request{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}
