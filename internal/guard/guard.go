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

package guard

import (
	"github.com/dealerdesk/dealerdesk/internal/access"
	"github.com/dealerdesk/dealerdesk/internal/identity"
)

// State is the outcome class of a route decision.
type State int

const (
	// StatePending means session or access context is still resolving;
	// render a wait affordance, never a redirect.
	StatePending State = iota
	// StateDenied means redirect to Decision.RedirectTo.
	StateDenied
	// StateAllowed means render the requested route.
	StateAllowed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDenied:
		return "denied"
	case StateAllowed:
		return "allowed"
	}
	return "unknown"
}

// Redirect targets.
const (
	PathSignIn       = "/signin"
	PathReactivate   = "/reactivate"
	PathUnauthorized = "/unauthorized"
)

// DefaultExceptionPaths are routes an inactive subscription may still reach:
// the billing flows a locked-out tenant needs in order to become active again.
var DefaultExceptionPaths = []string{PathReactivate, "/admin/upgrade", "/onboarding"}

// Denial reasons, used for audit trails and metrics labels.
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonInactive        = "inactive_subscription"
	ReasonRoleMismatch    = "role_mismatch"
	ReasonSessionPending  = "session_resolving"
	ReasonContextPending  = "access_context_resolving"
)

// Snapshot is the authority state a decision is made against. Identity and
// Access are read-only here; the session store and resolver own them.
type Snapshot struct {
	SessionResolving bool
	Identity         *identity.Identity
	Access           *access.Context
}

// Request describes the route being evaluated.
type Request struct {
	Path string

	// RequiredRole, when set, must match the identity's role exactly.
	RequiredRole string

	// RequireActive marks routes behind a feature flag that needs an
	// active subscription even when the path itself is unguarded.
	RequireActive bool
}

// Decision is the guard's verdict.
type Decision struct {
	State      State
	RedirectTo string
	// From preserves the originally requested path so sign-in can return
	// the user where they were headed.
	From   string
	Reason string
}

// Guard evaluates route requests against an explicit ordered rule list.
// The ordering is load-bearing: billing-state checks must run before role
// checks, and the wait states must never be skipped: skipping them causes
// a flash-redirect to sign-in during a routine token refresh.
type Guard struct {
	exceptions map[string]struct{}
}

// New creates a guard. With no arguments the default exception set applies.
func New(exceptionPaths ...string) *Guard {
	if len(exceptionPaths) == 0 {
		exceptionPaths = DefaultExceptionPaths
	}
	m := make(map[string]struct{}, len(exceptionPaths))
	for _, p := range exceptionPaths {
		m[p] = struct{}{}
	}
	return &Guard{exceptions: m}
}

// Evaluate runs the rule list top to bottom; the first match wins.
// Evaluation is pure: the same snapshot and request always yield the same
// decision.
func (g *Guard) Evaluate(snap Snapshot, req Request) Decision {
	// 1. Session still resolving.
	if snap.SessionResolving {
		return Decision{State: StatePending, Reason: ReasonSessionPending}
	}

	// 2. No identity.
	if snap.Identity == nil {
		return Decision{State: StateDenied, RedirectTo: PathSignIn, From: req.Path, Reason: ReasonUnauthenticated}
	}

	// 3. Affiliated but access context not yet resolved. This also covers
	// transient resolution failures: unknown context is pending, not
	// denied, so an outage never bounces a legitimate user.
	if snap.Identity.Affiliated() && snap.Access == nil {
		return Decision{State: StatePending, Reason: ReasonContextPending}
	}

	// 4. Inactive subscription, outside the exception set.
	if snap.Access != nil && !snap.Access.Active {
		if _, exempt := g.exceptions[req.Path]; !exempt {
			return Decision{State: StateDenied, RedirectTo: PathReactivate, From: req.Path, Reason: ReasonInactive}
		}
	}

	// 5. Role requirement.
	if req.RequiredRole != "" && !snap.Identity.HasRole(req.RequiredRole) {
		return Decision{State: StateDenied, RedirectTo: PathUnauthorized, From: req.Path, Reason: ReasonRoleMismatch}
	}

	// 6. Feature flag requiring an active subscription.
	if req.RequireActive && (snap.Access == nil || !snap.Access.Active) {
		if snap.Access != nil {
			return Decision{State: StateDenied, RedirectTo: PathReactivate, From: req.Path, Reason: ReasonInactive}
		}
		// Unaffiliated identities have no billing context to gate on;
		// the feature stays reachable and the view decides what to show.
	}

	// 7. Allowed.
	return Decision{State: StateAllowed}
}
