package payrollhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tutordesk/internal/domain/audit"
	"tutordesk/internal/domain/payroll"
	"tutordesk/internal/transport/http/api"
	"tutordesk/internal/transport/http/middleware"
	"tutordesk/internal/transport/http/shared"
)

type queryPayload struct {
	ItemRef string `json:"itemRef" validate:"max=200"`
	Note    string `json:"note" validate:"required,max=2000"`
}

type resolvePayload struct {
	Resolution string `json:"resolution" validate:"required,max=2000"`
}

func (h *Handler) handleAddQuery(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if _, ok := h.loadVisible(w, r); !ok {
		return
	}
	var body queryPayload
	if !shared.DecodeAndValidate(w, r, &body, middleware.GetRequestID(r.Context())) {
		return
	}
	p, err := h.Service.AddQueryNote(r.Context(), chi.URLParam(r, "payslipID"), body.ItemRef, body.Note, user.UserID)
	h.finishQuery(w, r, p, err)
}

func (h *Handler) handleUpdateQuery(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if _, ok := h.loadVisible(w, r); !ok {
		return
	}
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var body queryPayload
	if !shared.DecodeAndValidate(w, r, &body, middleware.GetRequestID(r.Context())) {
		return
	}
	p, err := h.Service.UpdateQueryNote(r.Context(), chi.URLParam(r, "payslipID"), index, body.Note, user.UserID)
	h.finishQuery(w, r, p, err)
}

func (h *Handler) handleDeleteQuery(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if _, ok := h.loadVisible(w, r); !ok {
		return
	}
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	p, err := h.Service.DeleteQueryNote(r.Context(), chi.URLParam(r, "payslipID"), index, user.UserID)
	h.finishQuery(w, r, p, err)
}

func (h *Handler) handleResolveQuery(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var body resolvePayload
	if !shared.DecodeAndValidate(w, r, &body, middleware.GetRequestID(r.Context())) {
		return
	}
	p, err := h.Service.ResolveQueryNote(r.Context(), chi.URLParam(r, "payslipID"), index, body.Resolution, user.UserID)
	h.finishQuery(w, r, p, err)
}

func (h *Handler) finishQuery(w http.ResponseWriter, r *http.Request, p payroll.Payslip, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, audit.ActionPayslipQuery, p.ID, nil, map[string]any{"status": p.Status, "queryNotes": len(p.QueryNotes)})
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}
