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

// Command kiosk is the showroom terminal client. It keeps a platform session
// alive on disk across restarts and prints the identity it resolves, which
// makes it handy for verifying a deployment's auth wiring end to end.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/dealerdesk/dealerdesk/internal/identity"
	"github.com/dealerdesk/dealerdesk/internal/platform/auth"
	"github.com/dealerdesk/dealerdesk/internal/session"
)

func main() {
	_ = godotenv.Load()

	platformURL := os.Getenv("PLATFORM_URL")
	serviceKey := os.Getenv("PLATFORM_ANON_KEY")
	jwtSecret := os.Getenv("PLATFORM_JWT_SECRET")
	if platformURL == "" || jwtSecret == "" {
		fmt.Fprintln(os.Stderr, "PLATFORM_URL and PLATFORM_JWT_SECRET are required")
		os.Exit(1)
	}

	stateDir := os.Getenv("KIOSK_STATE_DIR")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		stateDir = filepath.Join(home, ".dealerdesk-kiosk")
	}

	storage, err := session.NewFileStorage(stateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open session storage: %v\n", err)
		os.Exit(1)
	}

	provider := auth.NewClient(platformURL, serviceKey, 10*time.Second)
	parser := identity.NewTokenParser([]byte(jwtSecret))
	store := session.NewStore(provider, storage, parser)

	unsubscribe := store.OnChange(func(ident *identity.Identity) {
		if ident == nil {
			slog.Info("session ended")
			return
		}
		slog.Info("session established", slog.String("user_id", ident.ID))
	})
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := "status"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "login":
		// Seed the store with a refresh token obtained out of band, then
		// exchange it immediately so the kiosk boots signed in.
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: kiosk login <refresh-token>")
			os.Exit(1)
		}
		seed, _ := json.Marshal(session.Token{RefreshToken: os.Args[2]})
		if err := storage.Store(session.StorageKey, seed); err != nil {
			fmt.Fprintf(os.Stderr, "cannot persist refresh token: %v\n", err)
			os.Exit(1)
		}
		store = session.NewStore(provider, storage, parser)
		if ident := store.Refresh(ctx); ident != nil {
			printIdentity(ident)
		} else {
			fmt.Println("login failed: refresh token rejected")
			os.Exit(1)
		}

	case "refresh":
		if ident := store.Refresh(ctx); ident != nil {
			printIdentity(ident)
		} else {
			fmt.Println("signed out")
		}

	case "status":
		if !store.Resolved() {
			// The persisted token expired; one refresh settles the state.
			store.Refresh(ctx)
		}
		if ident := store.CurrentIdentity(); ident != nil {
			printIdentity(ident)
		} else {
			fmt.Println("signed out")
		}

	case "signout":
		store.SignOut(ctx)
		fmt.Println("signed out")

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want login, status, refresh or signout)\n", cmd)
		os.Exit(1)
	}
}

func printIdentity(ident *identity.Identity) {
	fmt.Printf("signed in as %s (%s)\n", ident.Email, ident.ID)
	if ident.Affiliation != nil {
		fmt.Printf("  dealer group: %s\n", ident.Affiliation.DealerGroupID)
		if ident.Affiliation.DealershipID != "" {
			fmt.Printf("  dealership:   %s\n", ident.Affiliation.DealershipID)
		}
		fmt.Printf("  role:         %s\n", ident.Affiliation.Role)
	} else {
		fmt.Println("  no dealer group affiliation (onboarding pending)")
	}
}
