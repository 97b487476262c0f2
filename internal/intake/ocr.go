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

package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// EdgeDecoder calls the platform's OCR edge function to extract license
// fields from an uploaded image.
type EdgeDecoder struct {
	endpoint   string
	serviceKey string
	client     *http.Client
}

// NewEdgeDecoder creates a decoder for the given edge-function endpoint.
func NewEdgeDecoder(endpoint, serviceKey string, timeout time.Duration) *EdgeDecoder {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &EdgeDecoder{
		endpoint:   endpoint,
		serviceKey: serviceKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type decodeRequest struct {
	ImageURL string `json:"image_url"`
}

// Decode sends the image URL to the edge function and returns the decoded
// license fields.
func (d *EdgeDecoder) Decode(ctx context.Context, imageURL string) (*LicenseData, error) {
	body, err := json.Marshal(decodeRequest{ImageURL: imageURL})
	if err != nil {
		return nil, fmt.Errorf("failed to encode decode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build decode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.serviceKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("license decode call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("license decode returned %d: %s", resp.StatusCode, payload)
	}

	var data LicenseData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode license response: %w", err)
	}
	if data.Number == "" {
		return nil, fmt.Errorf("license decode returned no number")
	}
	return &data, nil
}
