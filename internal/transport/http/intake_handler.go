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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dealerdesk/dealerdesk/internal/intake"
	"github.com/dealerdesk/dealerdesk/internal/observability/logger"
)

// StartIntakeRequest opens an intake session.
type StartIntakeRequest struct {
	DealershipID string `json:"dealership_id"`
}

// StartIntake opens an intake session and returns a presigned upload URL
// for the license image.
func (h *Handler) StartIntake(w http.ResponseWriter, r *http.Request) {
	var req StartIntakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.intakeService.Start(
		r.Context(), GetDealerGroupID(r.Context()), req.DealershipID, GetIdentity(r.Context()).ID,
	)
	if err != nil {
		respondIntakeError(w, err)
		return
	}

	uploadURL := ""
	if h.signer != nil {
		uploadURL, err = h.signer.PresignPut(r.Context(), sess.ImageKey, "image/jpeg")
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to presign license upload", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to prepare upload")
			return
		}
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"step":       sess.Step,
		"expires_at": sess.ExpiresAt,
		"upload_url": uploadURL,
	})
}

// MarkIntakeCaptured confirms the image upload and advances the session.
func (h *Handler) MarkIntakeCaptured(w http.ResponseWriter, r *http.Request) {
	sess, err := h.intakeService.MarkCaptured(
		r.Context(), GetDealerGroupID(r.Context()), chi.URLParam(r, "sessionID"),
	)
	if err != nil {
		respondIntakeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session_id": sess.ID, "step": sess.Step})
}

// DecodeIntake runs OCR over the captured image via a presigned read URL.
func (h *Handler) DecodeIntake(w http.ResponseWriter, r *http.Request) {
	groupID := GetDealerGroupID(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	if h.signer == nil {
		respondError(w, http.StatusNotImplemented, "license decode is not configured")
		return
	}

	// The decoder reads the image straight from storage; the service never
	// proxies image bytes.
	imageURL, err := h.signer.PresignGet(r.Context(), intakeImageKey(groupID, sessionID))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to presign license read", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to read license image")
		return
	}

	sess, err := h.intakeService.Decode(r.Context(), groupID, sessionID, imageURL)
	if err != nil {
		respondIntakeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"step":       sess.Step,
		"license": map[string]string{
			"first_name":    sess.License.FirstName,
			"last_name":     sess.License.LastName,
			"date_of_birth": sess.License.DateOfBirth,
			"expiry":        sess.License.Expiry,
			"province":      sess.License.Province,
		},
	})
}

// CheckIntakeBan runs the ban-list check for the decoded license.
func (h *Handler) CheckIntakeBan(w http.ResponseWriter, r *http.Request) {
	sess, err := h.intakeService.CheckBan(
		r.Context(), GetDealerGroupID(r.Context()), chi.URLParam(r, "sessionID"),
	)
	if err != nil {
		if errors.Is(err, intake.ErrBanned) {
			respondJSON(w, http.StatusOK, map[string]any{
				"session_id": sess.ID,
				"banned":     true,
			})
			return
		}
		respondIntakeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"step":       sess.Step,
		"banned":     false,
	})
}

// SubmitIntake finishes the workflow and returns the created lead.
func (h *Handler) SubmitIntake(w http.ResponseWriter, r *http.Request) {
	l, err := h.intakeService.Submit(
		r.Context(), GetDealerGroupID(r.Context()), chi.URLParam(r, "sessionID"),
	)
	if err != nil {
		respondIntakeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, l)
}

// BanLicenseRequest adds a license to the group's ban list.
type BanLicenseRequest struct {
	LicenseNumber string `json:"license_number"`
	Reason        string `json:"reason"`
}

// BanLicense puts a license digest on the caller's ban list.
func (h *Handler) BanLicense(w http.ResponseWriter, r *http.Request) {
	var req BanLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LicenseNumber == "" {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.intakeService.BanLicense(
		r.Context(), GetDealerGroupID(r.Context()), req.LicenseNumber, req.Reason,
	); err != nil {
		respondIntakeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "license banned"})
}

func intakeImageKey(dealerGroupID, sessionID string) string {
	return "licenses/" + dealerGroupID + "/" + sessionID + ".jpg"
}

func respondIntakeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, intake.ErrMissingScope):
		respondError(w, http.StatusForbidden, "no dealer group scope")
	case errors.Is(err, intake.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "intake session not found")
	case errors.Is(err, intake.ErrSessionExpired):
		respondError(w, http.StatusGone, "intake session expired")
	case errors.Is(err, intake.ErrStepOrder):
		respondError(w, http.StatusConflict, "intake step out of order")
	case errors.Is(err, intake.ErrDecoderUnavailable):
		respondError(w, http.StatusNotImplemented, "license decode is not configured")
	default:
		respondError(w, http.StatusInternalServerError, "operation failed")
	}
}
