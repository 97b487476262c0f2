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

package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dealerdesk/dealerdesk/internal/identity"
	"github.com/dealerdesk/dealerdesk/internal/observability/logger"
)

// Domain errors
var (
	ErrNoSession = errors.New("no active session")
)

// Storage keys. StorageKey is versioned; tokens found under the legacy key
// are migrated forward exactly once on boot.
const (
	StorageKey       = "dealerdesk.session.v2"
	LegacyStorageKey = "dealerdesk.session"
)

// Token is the serialized provider session persisted locally.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token is past its expiry.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Provider is the external auth platform's session capability. It is an
// opaque collaborator; this package never reimplements token issuance.
type Provider interface {
	// Refresh exchanges a refresh token for a fresh session token.
	Refresh(ctx context.Context, refreshToken string) (*Token, error)

	// SignOut invalidates the session on the platform side.
	SignOut(ctx context.Context, accessToken string) error
}

// TokenStorage persists a single serialized token per key.
type TokenStorage interface {
	Load(key string) ([]byte, bool, error)
	Store(key string, value []byte) error
	Delete(key string) error
}

// Store owns the current identity. It is the single writer; every other
// component reads or subscribes, never mutates.
type Store struct {
	provider Provider
	storage  TokenStorage
	parser   *identity.TokenParser
	now      func() time.Time

	mu       sync.RWMutex
	token    *Token
	current  *identity.Identity
	resolved bool

	handlerMu sync.Mutex
	handlers  map[int]func(*identity.Identity)
	nextID    int
}

// NewStore creates a session store and loads any persisted token, migrating
// a legacy-keyed token forward first. A persisted token whose access token
// no longer parses leaves the store unresolved until the next Refresh.
func NewStore(provider Provider, storage TokenStorage, parser *identity.TokenParser) *Store {
	s := &Store{
		provider: provider,
		storage:  storage,
		parser:   parser,
		now:      time.Now,
		handlers: make(map[int]func(*identity.Identity)),
	}
	s.migrateLegacyToken()
	s.loadPersisted()
	return s
}

// migrateLegacyToken moves a token stored under the pre-versioned key to the
// current key. Running it when no legacy token exists is a no-op, so it is
// safe on every boot.
func (s *Store) migrateLegacyToken() {
	if _, ok, _ := s.storage.Load(StorageKey); ok {
		return
	}
	raw, ok, err := s.storage.Load(LegacyStorageKey)
	if err != nil || !ok {
		return
	}
	if err := s.storage.Store(StorageKey, raw); err != nil {
		slog.Warn("failed to migrate legacy session token", logger.Error(err))
		return
	}
	_ = s.storage.Delete(LegacyStorageKey)
	slog.Info("migrated legacy session token", logger.String("key", StorageKey))
}

func (s *Store) loadPersisted() {
	raw, ok, err := s.storage.Load(StorageKey)
	if err != nil || !ok {
		s.resolved = true
		return
	}
	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		_ = s.storage.Delete(StorageKey)
		s.resolved = true
		return
	}
	s.token = &tok
	if tok.Expired(s.now()) {
		// Keep the refresh token; identity stays unresolved until Refresh.
		return
	}
	ident, err := s.parser.Parse(tok.AccessToken)
	if err != nil {
		return
	}
	s.current = ident
	s.resolved = true
}

// CurrentIdentity returns the identity for the active session, or nil when
// signed out.
func (s *Store) CurrentIdentity() *identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Resolved reports whether the store has finished establishing its initial
// session state. Route guards render a wait state until this is true.
func (s *Store) Resolved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolved
}

// OnChange registers a handler fired on sign-in, sign-out and token refresh.
// The returned function unsubscribes.
func (s *Store) OnChange(fn func(*identity.Identity)) func() {
	s.handlerMu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = fn
	s.handlerMu.Unlock()
	return func() {
		s.handlerMu.Lock()
		delete(s.handlers, id)
		s.handlerMu.Unlock()
	}
}

func (s *Store) notify(ident *identity.Identity) {
	s.handlerMu.Lock()
	fns := make([]func(*identity.Identity), 0, len(s.handlers))
	for _, fn := range s.handlers {
		fns = append(fns, fn)
	}
	s.handlerMu.Unlock()
	for _, fn := range fns {
		fn(ident)
	}
}

// Refresh re-validates the session against the provider and returns the
// updated identity. A provider outage resolves to nil (logged-out) rather
// than an error: callers must not crash on auth outages. The persisted
// token is kept through transient failures so a later Refresh can recover.
func (s *Store) Refresh(ctx context.Context) *identity.Identity {
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()

	if tok == nil || tok.RefreshToken == "" {
		s.setIdentity(nil, nil, true)
		return nil
	}

	fresh, err := s.provider.Refresh(ctx, tok.RefreshToken)
	if err != nil {
		slog.WarnContext(ctx, "session refresh failed, treating as signed out", logger.Error(err))
		s.setIdentity(nil, tok, true)
		return nil
	}

	ident, err := s.parser.Parse(fresh.AccessToken)
	if err != nil {
		slog.WarnContext(ctx, "refreshed token did not parse", logger.Error(err))
		s.setIdentity(nil, nil, true)
		_ = s.storage.Delete(StorageKey)
		return nil
	}

	if raw, err := json.Marshal(fresh); err == nil {
		if err := s.storage.Store(StorageKey, raw); err != nil {
			slog.WarnContext(ctx, "failed to persist session token", logger.Error(err))
		}
	}
	s.setIdentity(ident, fresh, true)
	return ident
}

// SignOut invalidates the session with the provider, clears the persisted
// token and drops the identity. Provider errors are logged, not returned:
// local sign-out must always succeed.
func (s *Store) SignOut(ctx context.Context) {
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()

	if tok != nil && tok.AccessToken != "" {
		if err := s.provider.SignOut(ctx, tok.AccessToken); err != nil {
			slog.WarnContext(ctx, "provider sign-out failed", logger.Error(err))
		}
	}
	if err := s.storage.Delete(StorageKey); err != nil {
		slog.WarnContext(ctx, "failed to clear persisted session", logger.Error(err))
	}
	s.setIdentity(nil, nil, true)
}

// AccessToken returns the current raw access token, or ErrNoSession.
func (s *Store) AccessToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil || s.current == nil {
		return "", ErrNoSession
	}
	return s.token.AccessToken, nil
}

func (s *Store) setIdentity(ident *identity.Identity, tok *Token, resolved bool) {
	s.mu.Lock()
	wasNil := s.current == nil
	s.current = ident
	s.token = tok
	s.resolved = resolved
	s.mu.Unlock()
	// Fire on sign-in, sign-out and token refresh. A refresh that keeps the
	// same principal still notifies: subscribers use it as their recompute
	// trigger. Only the nil -> nil transition is silent.
	if !wasNil || ident != nil {
		s.notify(ident)
	}
}
