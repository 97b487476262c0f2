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
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dealerdesk/dealerdesk/internal/audit"
	"github.com/dealerdesk/dealerdesk/internal/guard"
	"github.com/dealerdesk/dealerdesk/internal/identity"
	"github.com/dealerdesk/dealerdesk/internal/observability/logger"
)

// Tenant Context Principles:
// 1. Tenant context is derived EXCLUSIVELY from the verified access token
// 2. Scope headers from the client are never trusted
// 3. An unaffiliated identity has no tenant context; scoped routes reject it
//
// Anti-Patterns (FORBIDDEN):
// - X-DealerGroup-ID or similar headers as a scope source
// - Falling back to a "default" group when affiliation is missing

var guardDecisions, _ = otel.Meter("dealerdesk/transport").Int64Counter(
	"guard_decisions_total",
	metric.WithDescription("Route guard decisions by state and reason"))

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Log request start
			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AuthMiddleware verifies the bearer token and adds the identity to context
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		ident, err := h.parser.Parse(raw)
		if err != nil {
			if errors.Is(err, identity.ErrTokenExpired) {
				respondError(w, http.StatusUnauthorized, "token expired")
				return
			}
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		// Scope headers are never trusted; the token is the only source.
		if r.Header.Get("X-DealerGroup-ID") != "" {
			slog.WarnContext(r.Context(), "scope header spoofing attempt detected on authenticated route",
				logger.UserID(ident.ID),
			)
			respondError(w, http.StatusBadRequest, "X-DealerGroup-ID header is not allowed; scope is derived from the token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessMiddleware resolves the access context for the authenticated
// identity. Resolution failure leaves the context unset; the guard turns
// that into a pending state instead of a denial.
func (h *Handler) AccessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := GetIdentity(r.Context())
		if ident == nil {
			next.ServeHTTP(w, r)
			return
		}

		accessCtx, err := h.resolver.Resolve(r.Context(), ident)
		if err != nil {
			slog.WarnContext(r.Context(), "access context resolution failed",
				logger.Error(err),
				logger.UserID(ident.ID),
			)
			next.ServeHTTP(w, r)
			return
		}
		if accessCtx == nil {
			// Unaffiliated: nothing to attach.
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), accessKey, accessCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Guarded evaluates the route rule list before the handler runs. Pending
// decisions retry resolution within the configured timeout, then degrade to
// 503; denials answer with the redirect target and the preserved origin.
func (h *Handler) Guarded(req guard.Request) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			routeReq := req
			if routeReq.Path == "" {
				routeReq.Path = r.URL.Path
			}

			decision := h.evaluateWithWait(r, routeReq)
			guardDecisions.Add(r.Context(), 1, metric.WithAttributes(
				attribute.String("state", decision.State.String()),
				attribute.String("reason", decision.Reason),
			))

			switch decision.State {
			case guard.StateAllowed:
				next.ServeHTTP(w, r)

			case guard.StatePending:
				w.Header().Set("Retry-After", "2")
				respondError(w, http.StatusServiceUnavailable, "access context is still resolving, retry shortly")

			case guard.StateDenied:
				ident := GetIdentity(r.Context())
				actorID := ""
				groupID := ""
				if ident != nil {
					actorID = ident.ID
					groupID = GetDealerGroupID(r.Context())
				}
				h.auditLogger.Log(r.Context(), audit.Event{
					Type:        audit.TypeGuardDenied,
					DealerGroup: groupID,
					ActorID:     actorID,
					Resource:    routeReq.Path,
					IPAddress:   getIPAddress(r),
					UserAgent:   r.UserAgent(),
					Metadata: map[string]any{
						audit.AttrReason: decision.Reason,
						audit.AttrPath:   decision.From,
					},
				})

				status := http.StatusForbidden
				if decision.Reason == guard.ReasonUnauthenticated {
					status = http.StatusUnauthorized
				}
				respondJSON(w, status, map[string]string{
					"error":       "access denied",
					"reason":      decision.Reason,
					"redirect_to": decision.RedirectTo,
					"from":        decision.From,
				})
			}
		})
	}
}

// evaluateWithWait re-evaluates a pending decision until the deadline. A
// pending state here only ever means an unresolved access context, so each
// retry asks the resolver again.
func (h *Handler) evaluateWithWait(r *http.Request, req guard.Request) guard.Decision {
	snap := h.snapshot(r)
	decision := h.guard.Evaluate(snap, req)
	if decision.State != guard.StatePending || snap.Identity == nil {
		return decision
	}

	deadline := time.Now().Add(h.pendingTimeout)
	for decision.State == guard.StatePending && time.Now().Before(deadline) {
		select {
		case <-r.Context().Done():
			return decision
		case <-time.After(200 * time.Millisecond):
		}

		if accessCtx, err := h.resolver.Resolve(r.Context(), snap.Identity); err == nil {
			snap.Access = accessCtx
		}
		decision = h.guard.Evaluate(snap, req)
	}
	return decision
}

func (h *Handler) snapshot(r *http.Request) guard.Snapshot {
	return guard.Snapshot{
		Identity: GetIdentity(r.Context()),
		Access:   GetAccess(r.Context()),
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
