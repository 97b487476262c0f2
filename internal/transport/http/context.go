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

	"github.com/dealerdesk/dealerdesk/internal/access"
	"github.com/dealerdesk/dealerdesk/internal/identity"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	accessKey   contextKey = "access_context"
)

// GetIdentity retrieves the authenticated identity from context.
func GetIdentity(ctx context.Context) *identity.Identity {
	if val, ok := ctx.Value(identityKey).(*identity.Identity); ok {
		return val
	}
	return nil
}

// GetAccess retrieves the resolved access context. Nil means unaffiliated
// or still unresolved; the guard distinguishes the two.
func GetAccess(ctx context.Context) *access.Context {
	if val, ok := ctx.Value(accessKey).(*access.Context); ok {
		return val
	}
	return nil
}

// GetDealerGroupID retrieves the caller's tenant scope from context.
func GetDealerGroupID(ctx context.Context) string {
	if ident := GetIdentity(ctx); ident != nil && ident.Affiliation != nil {
		return ident.Affiliation.DealerGroupID
	}
	return ""
}
