package payrollhandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"tutordesk/internal/domain/lessons"
	"tutordesk/internal/domain/payroll"
	"tutordesk/internal/transport/http/api"
	"tutordesk/internal/transport/http/middleware"
	"tutordesk/internal/transport/http/shared"
)

const endpointAddEvent = "payroll.events.add"

type eventResponse struct {
	Added   bool                   `json:"added"`
	Payslip payroll.PayslipSummary `json:"payslip"`
}

// handleAddEvent records a completed lesson. Retries with the same Idempotency-Key and body
// get the first response back; a different body under the same key is a conflict.
func (h *Handler) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
			return
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "failed to read body", requestID)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	idempotencyKey := r.Header.Get("Idempotency-Key")
	requestHash := middleware.RequestHash(raw)
	if idempotencyKey != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.UserID, endpointAddEvent, idempotencyKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), requestID)
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "requestId", requestID, "err", err)
		}
		if found {
			api.Success(w, stored, requestID)
			return
		}
	}

	var body lessons.Completed
	if !shared.DecodeAndValidate(w, r, &body, requestID) {
		return
	}
	p, added, err := h.Lessons.Record(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := eventResponse{Added: added, Payslip: p.Summary()}
	if idempotencyKey != "" && h.Idempotency != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			err = h.Idempotency.Save(r.Context(), user.UserID, endpointAddEvent, idempotencyKey, requestHash, payload)
		}
		if err != nil {
			slog.Warn("idempotency save failed", "requestId", requestID, "err", err)
		}
	}

	if added {
		api.Created(w, response, requestID)
		return
	}
	api.Success(w, response, requestID)
}
