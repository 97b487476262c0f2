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

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the access-token payload issued by the auth platform.
// The platform puts tenant assignment into a user_metadata claim; parsing
// lifts it into the typed Affiliation so presence checks happen exactly once.
type Claims struct {
	jwt.RegisteredClaims

	Email          string       `json:"email"`
	EmailConfirmed bool         `json:"email_confirmed"`
	UserMetadata   UserMetadata `json:"user_metadata"`
}

// UserMetadata is the platform's free-form metadata bag. Only the fields
// this service understands are decoded.
type UserMetadata struct {
	DealerGroupID string `json:"dealergroup_id"`
	DealershipID  string `json:"dealership_id"`
	Role          string `json:"role"`
}

// TokenParser verifies platform access tokens and produces identities.
type TokenParser struct {
	secret []byte
}

// NewTokenParser creates a parser bound to the platform JWT secret.
func NewTokenParser(secret []byte) *TokenParser {
	return &TokenParser{secret: secret}
}

// Parse verifies the raw access token and returns the identity it carries.
// Expired tokens return ErrTokenExpired so callers can attempt a refresh
// instead of treating the principal as hostile.
func (p *TokenParser) Parse(raw string) (*Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	ident := &Identity{
		ID:             claims.Subject,
		Email:          claims.Email,
		EmailConfirmed: claims.EmailConfirmed,
	}
	if claims.UserMetadata.DealerGroupID != "" {
		ident.Affiliation = &Affiliation{
			DealerGroupID: claims.UserMetadata.DealerGroupID,
			DealershipID:  claims.UserMetadata.DealershipID,
			Role:          claims.UserMetadata.Role,
		}
	}
	return ident, nil
}
