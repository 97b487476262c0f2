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

import "time"

// SubscriptionStatus is the billing state of a dealer group.
type SubscriptionStatus string

const (
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

// Context is the derived access state for a dealer group. It is never
// mutated in place: the resolver always replaces it wholesale.
//
// Invariant: Active == (Status == "active" || (Trialing && now < TrialEndsAt)).
type Context struct {
	DealerGroupID      string
	SubscriptionStatus SubscriptionStatus
	TrialEndsAt        *time.Time
	Active             bool
	Trialing           bool
}

// SubscriptionState is the raw tenant billing row the resolver derives from.
type SubscriptionState struct {
	Status   SubscriptionStatus
	TrialEnd *time.Time
}

// Derive computes a Context from a subscription row at the given instant.
func Derive(dealerGroupID string, state SubscriptionState, now time.Time) *Context {
	trialing := state.Status == StatusTrialing && state.TrialEnd != nil && state.TrialEnd.After(now)
	return &Context{
		DealerGroupID:      dealerGroupID,
		SubscriptionStatus: state.Status,
		TrialEndsAt:        state.TrialEnd,
		Trialing:           trialing,
		Active:             state.Status == StatusActive || trialing,
	}
}
