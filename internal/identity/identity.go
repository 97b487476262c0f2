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

package identity

import "errors"

// Domain errors
var (
	ErrTokenInvalid = errors.New("access token invalid")
	ErrTokenExpired = errors.New("access token expired")
)

// Roles recognised by the route guard. They come from the auth platform's
// user metadata and are opaque strings everywhere else.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// Identity is the principal issued by the external auth platform. It is
// owned by the session store and read-only to every other component.
type Identity struct {
	ID             string
	Email          string
	EmailConfirmed bool

	// Affiliation is nil for identities that exist but have not been
	// assigned to a dealer group. Callers must treat "unaffiliated" as a
	// distinct state, never as an inactive subscription.
	Affiliation *Affiliation
}

// Affiliation binds an identity to its tenant scope.
type Affiliation struct {
	DealerGroupID string
	DealershipID  string // optional; empty means group-wide access
	Role          string
}

// Affiliated reports whether the identity belongs to a dealer group.
func (i *Identity) Affiliated() bool {
	return i != nil && i.Affiliation != nil && i.Affiliation.DealerGroupID != ""
}

// HasRole reports whether the identity carries the given role.
func (i *Identity) HasRole(role string) bool {
	return i != nil && i.Affiliation != nil && i.Affiliation.Role == role
}
