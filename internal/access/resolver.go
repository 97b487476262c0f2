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

package access

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/dealerdesk/dealerdesk/internal/identity"
)

// GroupReader fetches a dealer group's subscription row. Implemented by the
// postgres store; mocked in tests.
type GroupReader interface {
	SubscriptionState(ctx context.Context, dealerGroupID string) (*SubscriptionState, error)
}

// Resolver derives AccessContexts from identities.
//
// A resolved context is memoized per dealer group and invalidated only on
// auth events or an explicit Refresh, never on a timer. A stale Active flag
// is therefore corrected on the next auth event, matching the upstream
// consistency model.
type Resolver struct {
	reader GroupReader
	cache  *gocache.Cache
	flight singleflight.Group
	now    func() time.Time
}

// NewResolver creates a resolver. The janitor interval only reclaims memory
// for deleted entries; cached contexts themselves do not expire.
func NewResolver(reader GroupReader) *Resolver {
	return &Resolver{
		reader: reader,
		cache:  gocache.New(gocache.NoExpiration, 10*time.Minute),
		now:    time.Now,
	}
}

// Resolve returns the access context for the identity's dealer group.
//
//   - nil identity or no affiliation: (nil, nil), unaffiliated, which is a
//     terminal state, not an error and not "inactive".
//   - lookup failure or missing row: (nil, err), context unknown. Callers
//     must keep treating the state as pending rather than bouncing the user.
//
// Concurrent resolutions for the same group collapse into one fetch.
func (r *Resolver) Resolve(ctx context.Context, ident *identity.Identity) (*Context, error) {
	if !ident.Affiliated() {
		return nil, nil
	}
	groupID := ident.Affiliation.DealerGroupID

	if cached, ok := r.cache.Get(groupID); ok {
		return cached.(*Context), nil
	}

	v, err, _ := r.flight.Do(groupID, func() (any, error) {
		state, err := r.reader.SubscriptionState(ctx, groupID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve access context for group %s: %w", groupID, err)
		}
		derived := Derive(groupID, *state, r.now())
		r.cache.Set(groupID, derived, gocache.NoExpiration)
		return derived, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Context), nil
}

// Refresh drops the memoized context for the identity's group and resolves
// it again.
func (r *Resolver) Refresh(ctx context.Context, ident *identity.Identity) (*Context, error) {
	if ident.Affiliated() {
		r.cache.Delete(ident.Affiliation.DealerGroupID)
	}
	return r.Resolve(ctx, ident)
}

// HandleAuthChange is the session store's OnChange hook. An event carrying
// an affiliated identity (sign-in, token refresh) drops that group's memo;
// any other event flushes the memo entirely so the next resolution
// recomputes from the store.
func (r *Resolver) HandleAuthChange(ident *identity.Identity) {
	if ident.Affiliated() {
		r.cache.Delete(ident.Affiliation.DealerGroupID)
		return
	}
	r.cache.Flush()
}
