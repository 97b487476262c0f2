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

// Package scope provides the one generic tenant-scoped resource that every
// entity collection instantiates. It enforces two invariants the dashboards
// rely on:
//
//   - null-scope guard: no fetch is ever issued while a required scope id
//     is unbound, so an unscoped read that could cross tenants is
//     unrepresentable;
//   - staleness guard: a refetch that starts later always wins, however
//     the underlying reads interleave.
package scope

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter           = otel.Meter("dealerdesk/scope")
	fetchCounter, _ = meter.Int64Counter("scoped_fetches_total",
		metric.WithDescription("Scoped collection fetches issued"))
	staleCounter, _ = meter.Int64Counter("scoped_stale_results_discarded_total",
		metric.WithDescription("Fetch results discarded because a newer fetch superseded them"))
)

// Key names a scope dimension a resource may require.
type Key string

const (
	KeyDealerGroup Key = "dealergroup_id"
	KeyDealership  Key = "dealership_id"
)

// Scope carries the tenant ids a fetch is filtered by.
type Scope struct {
	DealerGroupID string
	DealershipID  string
}

func (s Scope) value(k Key) string {
	switch k {
	case KeyDealerGroup:
		return s.DealerGroupID
	case KeyDealership:
		return s.DealershipID
	}
	return ""
}

// Collection is the observable state of a scoped resource. Collections are
// replaced wholesale on every refresh; there is no incremental update model.
type Collection[T any] struct {
	Items   []T
	Loading bool
	Err     string
}

// FetchFunc loads the collection for a bound scope. Implementations must
// filter by exactly the ids in the scope.
type FetchFunc[T any] func(ctx context.Context, s Scope) ([]T, error)

// Resource is a tenant-scoped collection with supersede-on-refetch
// semantics. It is per-view-instance state, never shared across views.
type Resource[T any] struct {
	fetch    FetchFunc[T]
	required []Key

	mu     sync.Mutex
	scope  Scope
	seq    uint64
	closed bool
	state  Collection[T]
}

// NewResource creates a resource requiring the given scope keys. Resources
// start unbound: empty items, not loading, no error, and no fetch issued.
func NewResource[T any](fetch FetchFunc[T], required ...Key) *Resource[T] {
	if len(required) == 0 {
		required = []Key{KeyDealerGroup}
	}
	return &Resource[T]{fetch: fetch, required: required}
}

// Bind sets the scope and refetches. When any required id is missing the
// resource holds the empty state and performs no network call.
func (r *Resource[T]) Bind(ctx context.Context, s Scope) error {
	r.mu.Lock()
	r.scope = s
	if !r.scopeComplete() {
		r.seq++ // invalidate any in-flight fetch for the old scope
		r.state = Collection[T]{}
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()
	return r.Refetch(ctx)
}

// Refetch reloads the collection. It is idempotent and safe to call
// concurrently with itself: each call claims a sequence token, and a result
// is applied only while its token is still the newest, so a slow early
// fetch can never overwrite a faster later one.
func (r *Resource[T]) Refetch(ctx context.Context) error {
	r.mu.Lock()
	if r.closed || !r.scopeComplete() {
		r.mu.Unlock()
		return nil
	}
	r.seq++
	token := r.seq
	s := r.scope
	r.state.Loading = true
	r.state.Err = ""
	r.mu.Unlock()

	fetchCounter.Add(ctx, 1)
	items, err := r.fetch(ctx, s)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || token != r.seq {
		// Superseded or unmounted: discard the late result.
		staleCounter.Add(ctx, 1)
		return nil
	}
	if err != nil {
		r.state = Collection[T]{Items: r.state.Items, Loading: false, Err: err.Error()}
		return err
	}
	r.state = Collection[T]{Items: items}
	return nil
}

// State returns the current collection snapshot.
func (r *Resource[T]) State() Collection[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Close stops the resource from applying any further results. Late fetches
// finish quietly without touching state.
func (r *Resource[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *Resource[T]) scopeComplete() bool {
	for _, k := range r.required {
		if r.scope.value(k) == "" {
			return false
		}
	}
	return true
}
