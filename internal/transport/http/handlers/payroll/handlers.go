package payrollhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tutordesk/internal/domain/audit"
	"tutordesk/internal/domain/auth"
	"tutordesk/internal/domain/lessons"
	"tutordesk/internal/domain/payroll"
	"tutordesk/internal/domain/rates"
	"tutordesk/internal/transport/http/api"
	"tutordesk/internal/transport/http/middleware"
	"tutordesk/internal/transport/http/shared"
)

type Auditor interface {
	Record(ctx context.Context, e audit.Entry) error
}

type LessonRecorder interface {
	Record(ctx context.Context, lesson lessons.Completed) (payroll.Payslip, bool, error)
}

type Handler struct {
	Service     *payroll.Service
	Lessons     LessonRecorder
	Audit       Auditor
	Idempotency middleware.IdempotencyStore
	Now         func() time.Time
}

func NewHandler(service *payroll.Service, recorder LessonRecorder, auditor Auditor, idem middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Lessons: recorder, Audit: auditor, Idempotency: idem, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLessonEventsAdd)).Post("/events", h.handleAddEvent)

		r.Route("/payslips", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermPayrollRead, auth.PermPayrollReadOwn)).Get("/", h.handleList)
			r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Post("/", h.handleGetOrCreate)

			r.Route("/{payslipID}", func(r chi.Router) {
				r.With(middleware.RequirePermission(auth.PermPayrollRead, auth.PermPayrollReadOwn)).Get("/", h.handleGet)
				r.With(middleware.RequirePermission(auth.PermPayrollRead, auth.PermPayrollReadOwn)).Get("/pdf", h.handlePDF)
				r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Post("/recalculate", h.handleRecalculate)
				r.With(middleware.RequirePermission(auth.PermPayrollStatus)).Put("/status", h.handleUpdateStatus)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(auth.PermPayrollWrite))
					h.registerLineRoutes(r)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(auth.PermPayrollQuery))
					r.Post("/queries", h.handleAddQuery)
					r.Put("/queries/{index}", h.handleUpdateQuery)
					r.Delete("/queries/{index}", h.handleDeleteQuery)
				})
				r.With(middleware.RequirePermission(auth.PermPayrollResolve)).Post("/queries/{index}/resolve", h.handleResolveQuery)
			})
		})
	})
}

type getOrCreatePayload struct {
	UserID    string `json:"userId" validate:"required"`
	PayPeriod string `json:"payPeriod" validate:"required,datetime=2006-01"`
}

type statusPayload struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) handleGetOrCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var body getOrCreatePayload
	if !shared.DecodeAndValidate(w, r, &body, middleware.GetRequestID(r.Context())) {
		return
	}
	p, err := h.Service.GetOrCreateDraft(r.Context(), body.UserID, body.PayPeriod, user.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, audit.ActionPayslipCreated, p.ID, nil, p.Summary())
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	userID := r.URL.Query().Get("userId")
	if userID == "" || !user.Can(auth.PermPayrollRead) {
		userID = user.UserID
	}

	taxYear, err := h.taxYear(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_tax_year", "taxYear must be a year such as 2025", middleware.GetRequestID(r.Context()))
		return
	}

	items, err := h.Service.ListForUser(r.Context(), userID, taxYear)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]payroll.PayslipSummary, 0, len(items))
	for _, p := range items {
		out = append(out, p.Summary())
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(out)))
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) taxYear(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("taxYear")
	if raw == "" {
		return payroll.TaxYear(payroll.PeriodOf(h.Now()))
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		return 0, payroll.ErrInvalidInput
	}
	return year, nil
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	data, encrypted, err := h.Service.PayslipPDF(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if encrypted {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("X-Payslip-Encrypted", "true")
	} else {
		w.Header().Set("Content-Type", "application/pdf")
	}
	w.Header().Set("Content-Disposition", `attachment; filename="payslip-`+p.PayPeriod+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Warn("payslip pdf write failed", "payslipId", p.ID, "err", err)
	}
}

func (h *Handler) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Recalculate(r.Context(), chi.URLParam(r, "payslipID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, audit.ActionPayslipRecalculated, p.ID, nil, p.Summary())
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var body statusPayload
	if !shared.DecodeAndValidate(w, r, &body, middleware.GetRequestID(r.Context())) {
		return
	}
	p, from, err := h.Service.ChangeStatus(r.Context(), chi.URLParam(r, "payslipID"), body.Status, user.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, audit.ActionPayslipStatus, p.ID, map[string]any{"status": from}, map[string]any{"status": p.Status})
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}

// loadVisible fetches the payslip named in the path and hides other tutors' payslips from
// callers that may only read their own.
func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (payroll.Payslip, bool) {
	user, _ := middleware.GetUser(r.Context())
	p, err := h.Service.Get(r.Context(), chi.URLParam(r, "payslipID"))
	if err != nil {
		writeError(w, r, err)
		return payroll.Payslip{}, false
	}
	if p.UserID != user.UserID && !user.Can(auth.PermPayrollRead) {
		writeError(w, r, payroll.ErrPayslipNotFound)
		return payroll.Payslip{}, false
	}
	return p, true
}

func (h *Handler) audit(r *http.Request, action, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	user, _ := middleware.GetUser(r.Context())
	err := h.Audit.Record(r.Context(), audit.Entry{
		ActorID:    user.UserID,
		Action:     action,
		EntityType: audit.EntityPayslip,
		EntityID:   entityID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         r.RemoteAddr,
		Before:     before,
		After:      after,
	})
	if err != nil {
		slog.Warn("audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_index", "index must be an integer", middleware.GetRequestID(r.Context()))
		return 0, false
	}
	return index, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, payroll.ErrPayslipNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "payslip not found", requestID)
	case errors.Is(err, payroll.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, payroll.ErrInvalidIndex):
		api.Fail(w, http.StatusBadRequest, "invalid_index", err.Error(), requestID)
	case errors.Is(err, payroll.ErrInvalidPeriod):
		api.Fail(w, http.StatusBadRequest, "invalid_period", err.Error(), requestID)
	case errors.Is(err, payroll.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "invalid_status", err.Error(), requestID)
	case errors.Is(err, payroll.ErrInvalidInput), errors.Is(err, rates.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "invalid_input", err.Error(), requestID)
	case errors.Is(err, rates.ErrNoRate):
		api.Fail(w, http.StatusUnprocessableEntity, "no_rate", err.Error(), requestID)
	default:
		slog.Error("payroll request failed", "path", r.URL.Path, "requestId", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal error", requestID)
	}
}
