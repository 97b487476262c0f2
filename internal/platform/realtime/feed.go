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

// Package realtime carries the lead-alert feed over redis pub/sub. One
// channel per dealer group; a subscriber only ever sees its own group's
// alerts. The feed backs a single dashboard widget, so delivery is fire and
// forget with no replay.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dealerdesk/dealerdesk/internal/lead"
)

// Feed publishes and subscribes to per-group lead alerts.
type Feed struct {
	client *redis.Client
}

// NewFeed creates a feed over the given redis client.
func NewFeed(client *redis.Client) *Feed {
	return &Feed{client: client}
}

func channelFor(dealerGroupID string) string {
	return "alerts:" + dealerGroupID
}

// Publish pushes an alert onto the group's channel.
func (f *Feed) Publish(ctx context.Context, alert lead.Alert) error {
	if alert.DealerGroupID == "" {
		return fmt.Errorf("alert requires a dealer group id")
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}
	if err := f.client.Publish(ctx, channelFor(alert.DealerGroupID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}

// Subscribe streams the group's alerts until the context is canceled or
// Close is called on the returned subscription.
func (f *Feed) Subscribe(ctx context.Context, dealerGroupID string) (*Subscription, error) {
	if dealerGroupID == "" {
		return nil, fmt.Errorf("subscription requires a dealer group id")
	}
	pubsub := f.client.Subscribe(ctx, channelFor(dealerGroupID))

	// Force the SUBSCRIBE round trip so a broken connection fails here,
	// not silently in the receive loop.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to alert feed: %w", err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		alerts: make(chan lead.Alert, 16),
	}
	go sub.run(ctx)
	return sub, nil
}

// Subscription is one group's live alert stream.
type Subscription struct {
	pubsub *redis.PubSub
	alerts chan lead.Alert
}

// Alerts returns the stream. The channel closes when the subscription ends.
func (s *Subscription) Alerts() <-chan lead.Alert {
	return s.alerts
}

// Close tears down the redis subscription.
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.alerts)
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			s.pubsub.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var alert lead.Alert
			if err := json.Unmarshal([]byte(msg.Payload), &alert); err != nil {
				slog.WarnContext(ctx, "dropping malformed alert", slog.String("error", err.Error()))
				continue
			}
			select {
			case s.alerts <- alert:
			default:
				// Slow consumer: drop rather than block the feed.
			}
		}
	}
}
