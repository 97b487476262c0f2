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

// Package dashboard provides the generic list-page scaffold every entity
// view instantiates: a scoped resource, a local filter, and pagination over
// the filtered items. Mutations run through the page so a successful write
// always triggers a refetch of the backing resource.
package dashboard

import (
	"context"
	"sync"

	"github.com/dealerdesk/dealerdesk/internal/scope"
)

// DefaultPageSize bounds a table page when the caller passes zero.
const DefaultPageSize = 25

// Filter reports whether an item matches the page's current filter.
type Filter[T any] func(T) bool

// View is one rendered page of a filtered collection.
type View[T any] struct {
	Items      []T
	Page       int // zero-based
	PageCount  int
	TotalItems int
	Loading    bool
	Err        string
}

// Page composes a scoped resource with filtering and pagination. Filter and
// page changes are local re-slices of the already-fetched collection; only
// Bind, Refetch, and Mutate touch the repository.
type Page[T any] struct {
	resource *scope.Resource[T]
	pageSize int

	mu     sync.Mutex
	filter Filter[T]
	page   int
}

// NewPage creates a page over the given resource.
func NewPage[T any](resource *scope.Resource[T], pageSize int) *Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Page[T]{resource: resource, pageSize: pageSize}
}

// Bind scopes the backing resource and resets to the first page.
func (p *Page[T]) Bind(ctx context.Context, s scope.Scope) error {
	p.mu.Lock()
	p.page = 0
	p.mu.Unlock()
	return p.resource.Bind(ctx, s)
}

// Refetch reloads the backing resource, keeping filter and page position.
func (p *Page[T]) Refetch(ctx context.Context) error {
	return p.resource.Refetch(ctx)
}

// SetFilter replaces the filter and resets to the first page. A nil filter
// matches everything.
func (p *Page[T]) SetFilter(f Filter[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = f
	p.page = 0
}

// SetPage moves to the given zero-based page. Out-of-range values clamp.
func (p *Page[T]) SetPage(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 0 {
		n = 0
	}
	p.page = n
}

// Mutate runs a write and, when it succeeds, refetches the collection so
// the table never shows pre-mutation data. The mutation error is returned
// as-is; a refetch error surfaces on the view state instead.
func (p *Page[T]) Mutate(ctx context.Context, mutation func(ctx context.Context) error) error {
	if err := mutation(ctx); err != nil {
		return err
	}
	_ = p.resource.Refetch(ctx)
	return nil
}

// View renders the current page of the filtered collection.
func (p *Page[T]) View() View[T] {
	state := p.resource.State()

	p.mu.Lock()
	filter := p.filter
	page := p.page
	p.mu.Unlock()

	filtered := state.Items
	if filter != nil {
		filtered = make([]T, 0, len(state.Items))
		for _, item := range state.Items {
			if filter(item) {
				filtered = append(filtered, item)
			}
		}
	}

	pageCount := (len(filtered) + p.pageSize - 1) / p.pageSize
	if pageCount == 0 {
		pageCount = 1
	}
	if page >= pageCount {
		page = pageCount - 1
	}

	start := page * p.pageSize
	end := start + p.pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return View[T]{
		Items:      filtered[start:end],
		Page:       page,
		PageCount:  pageCount,
		TotalItems: len(filtered),
		Loading:    state.Loading,
		Err:        state.Err,
	}
}

// Close releases the backing resource.
func (p *Page[T]) Close() {
	p.resource.Close()
}
