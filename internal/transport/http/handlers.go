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
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dealerdesk/dealerdesk/internal/access"
	"github.com/dealerdesk/dealerdesk/internal/audit"
	"github.com/dealerdesk/dealerdesk/internal/dealer"
	"github.com/dealerdesk/dealerdesk/internal/guard"
	"github.com/dealerdesk/dealerdesk/internal/identity"
	"github.com/dealerdesk/dealerdesk/internal/intake"
	"github.com/dealerdesk/dealerdesk/internal/lead"
	"github.com/dealerdesk/dealerdesk/internal/observability/logger"
	"github.com/dealerdesk/dealerdesk/internal/platform/realtime"
	"github.com/dealerdesk/dealerdesk/internal/session"
)

// ObjectSigner issues presigned URLs for the license-image bucket.
type ObjectSigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
	PresignPut(ctx context.Context, key, contentType string) (string, error)
}

// DefaultPendingTimeout bounds how long a request waits on an unresolved
// access context before degrading to 503.
const DefaultPendingTimeout = 10 * time.Second

// Collections bundles the scoped repositories the dashboard pages
// instantiate their per-request resources over.
type Collections struct {
	Dealerships dealer.DealershipRepository
	Users       dealer.UserRepository
	Departments dealer.DepartmentRepository
	Leads       lead.Repository
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	parser         *identity.TokenParser
	provider       session.Provider
	resolver       *access.Resolver
	guard          *guard.Guard
	dealerService  *dealer.Service
	leadService    *lead.Service
	intakeService  *intake.Service
	signer         ObjectSigner
	feed           *realtime.Feed
	collections    Collections
	auditLogger    audit.Logger
	pendingTimeout time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(
	parser *identity.TokenParser,
	provider session.Provider,
	resolver *access.Resolver,
	routeGuard *guard.Guard,
	dealerService *dealer.Service,
	leadService *lead.Service,
	intakeService *intake.Service,
	signer ObjectSigner,
	feed *realtime.Feed,
	collections Collections,
	auditLogger audit.Logger,
	pendingTimeout time.Duration,
) *Handler {
	if pendingTimeout <= 0 {
		pendingTimeout = DefaultPendingTimeout
	}
	return &Handler{
		parser:         parser,
		provider:       provider,
		resolver:       resolver,
		guard:          routeGuard,
		dealerService:  dealerService,
		leadService:    leadService,
		intakeService:  intakeService,
		signer:         signer,
		feed:           feed,
		collections:    collections,
		auditLogger:    auditLogger,
		pendingTimeout: pendingTimeout,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Session endpoints: no guard, a client must always be able to
		// refresh or drop its session.
		r.Post("/auth/refresh", h.RefreshSession)
		r.Post("/auth/signout", h.SignOut)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Use(h.AccessMiddleware)

			r.With(h.Guarded(guard.Request{})).Get("/auth/me", h.GetCurrentIdentity)

			// Scoped reads and writes. Every handler takes its scope from
			// the verified identity, never from the request.
			r.Group(func(r chi.Router) {
				r.Use(h.Guarded(guard.Request{}))

				r.Get("/dealerships", h.ListDealerships)
				r.Get("/users", h.ListUsers)
				r.Get("/leads", h.ListLeads)
				r.Post("/leads", h.CreateLead)
				r.Put("/leads/{leadID}/status", h.UpdateLeadStatus)
				r.Put("/leads/{leadID}/assign", h.AssignLead)
				r.Get("/departments", h.ListDepartments)
				r.Get("/departments/{departmentID}/job-titles", h.ListJobTitles)

				// Paginated dashboard views
				r.Get("/dashboard/dealerships", h.DealershipPage)
				r.Get("/dashboard/users", h.UserPage)
				r.Get("/dashboard/departments", h.DepartmentPage)
				r.Get("/dashboard/leads", h.LeadPage)

				// Realtime alert feed
				r.Get("/alerts/stream", h.StreamAlerts)

				// License intake workflow
				r.Route("/intake", func(r chi.Router) {
					r.Post("/", h.StartIntake)
					r.Post("/{sessionID}/captured", h.MarkIntakeCaptured)
					r.Post("/{sessionID}/decode", h.DecodeIntake)
					r.Post("/{sessionID}/ban-check", h.CheckIntakeBan)
					r.Post("/{sessionID}/submit", h.SubmitIntake)
				})
			})

			// Admin routes: role gate on top of the billing gate.
			r.Group(func(r chi.Router) {
				r.Use(h.Guarded(guard.Request{RequiredRole: identity.RoleAdmin}))

				r.Post("/dealerships", h.CreateDealership)
				r.Put("/dealerships/{dealershipID}", h.UpdateDealership)
				r.Post("/users", h.CreateUser)
				r.Put("/users/{userID}", h.UpdateUser)
				r.Delete("/users/{userID}", h.DeleteUser)
				r.Post("/users/{userID}/dealerships", h.AssignUserDealership)
				r.Post("/departments", h.CreateDepartment)
				r.Post("/departments/{departmentID}/job-titles", h.CreateJobTitle)
				r.Post("/ban-list", h.BanLicense)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "dealerdesk",
	})
}

// RefreshRequest carries the refresh grant.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshSession exchanges a refresh token for a fresh session token.
func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.provider.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		slog.WarnContext(r.Context(), "session refresh failed", logger.Error(err))
		respondError(w, http.StatusUnauthorized, "refresh token rejected")
		return
	}

	// A refresh is an auth event: drop the memoized access context so the
	// next guarded request re-reads the subscription state. This is how a
	// reactivated group comes back without waiting for a sign-out.
	actorID := ""
	groupID := ""
	if ident, perr := h.parser.Parse(token.AccessToken); perr == nil {
		actorID = ident.ID
		if ident.Affiliation != nil {
			groupID = ident.Affiliation.DealerGroupID
		}
		h.resolver.HandleAuthChange(ident)
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:        audit.TypeSessionRefreshed,
		DealerGroup: groupID,
		ActorID:     actorID,
		Resource:    "session",
		IPAddress:   getIPAddress(r),
		UserAgent:   r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token":  token.AccessToken,
		"refresh_token": token.RefreshToken,
		"expires_at":    token.ExpiresAt,
	})
}

// SignOut invalidates the presented session on the platform side.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	raw := bearerToken(r)
	if raw == "" {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	actorID := ""
	groupID := ""
	if ident, err := h.parser.Parse(raw); err == nil {
		actorID = ident.ID
		if ident.Affiliation != nil {
			groupID = ident.Affiliation.DealerGroupID
		}
		h.resolver.HandleAuthChange(nil)
	}

	if err := h.provider.SignOut(r.Context(), raw); err != nil {
		slog.WarnContext(r.Context(), "platform sign-out failed", logger.Error(err))
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:        audit.TypeSignOut,
		DealerGroup: groupID,
		ActorID:     actorID,
		Resource:    "session",
		IPAddress:   getIPAddress(r),
		UserAgent:   r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "signed out",
	})
}

// GetCurrentIdentity returns the verified identity and its access context.
func (h *Handler) GetCurrentIdentity(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())

	resp := map[string]any{
		"user_id":         ident.ID,
		"email":           ident.Email,
		"email_confirmed": ident.EmailConfirmed,
	}
	if ident.Affiliation != nil {
		resp["affiliation"] = map[string]string{
			"dealergroup_id": ident.Affiliation.DealerGroupID,
			"dealership_id":  ident.Affiliation.DealershipID,
			"role":           ident.Affiliation.Role,
		}
	}
	if accessCtx := GetAccess(r.Context()); accessCtx != nil {
		resp["access"] = map[string]any{
			"subscription_status": accessCtx.SubscriptionStatus,
			"active":              accessCtx.Active,
			"trialing":            accessCtx.Trialing,
			"trial_ends_at":       accessCtx.TrialEndsAt,
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
