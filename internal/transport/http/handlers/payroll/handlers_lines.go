package payrollhandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"tutordesk/internal/domain/audit"
	"tutordesk/internal/domain/payroll"
	"tutordesk/internal/transport/http/api"
	"tutordesk/internal/transport/http/middleware"
	"tutordesk/internal/transport/http/shared"
)

type linePayload struct {
	Description string          `json:"description" validate:"required,max=200"`
	Amount      decimal.Decimal `json:"amount"`
}

type earningPayload struct {
	Description string          `json:"description" validate:"max=200"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	BaseRate    decimal.Decimal `json:"baseRate"`
	Date        string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type lineOps struct {
	add    func(ctx context.Context, id string, item payroll.LineItem) (payroll.Payslip, error)
	update func(ctx context.Context, id string, index int, item payroll.LineItem) (payroll.Payslip, error)
	remove func(ctx context.Context, id string, index int) (payroll.Payslip, error)
}

func (h *Handler) registerLineRoutes(r chi.Router) {
	lists := map[string]lineOps{
		"bonuses":       {h.Service.AddBonus, h.Service.UpdateBonus, h.Service.RemoveBonus},
		"deductions":    {h.Service.AddDeduction, h.Service.UpdateDeduction, h.Service.RemoveDeduction},
		"misc-earnings": {h.Service.AddMiscEarning, h.Service.UpdateMiscEarning, h.Service.RemoveMiscEarning},
	}
	for name, ops := range lists {
		r.Post("/"+name, h.handleAddLine(ops))
		r.Put("/"+name+"/{index}", h.handleUpdateLine(ops))
		r.Delete("/"+name+"/{index}", h.handleRemoveLine(ops))
	}
	r.Put("/earnings/{index}", h.handleUpdateEarning)
	r.Delete("/earnings/{index}", h.handleRemoveEarning)
}

func (h *Handler) handleAddLine(ops lineOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body linePayload
		if !shared.DecodeAndValidate(w, r, &body, middleware.GetRequestID(r.Context())) {
			return
		}
		p, err := ops.add(r.Context(), chi.URLParam(r, "payslipID"), payroll.LineItem{Description: body.Description, Amount: body.Amount})
		h.finishLineChange(w, r, p, err)
	}
}

func (h *Handler) handleUpdateLine(ops lineOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := pathIndex(w, r)
		if !ok {
			return
		}
		var body linePayload
		if !shared.DecodeAndValidate(w, r, &body, middleware.GetRequestID(r.Context())) {
			return
		}
		p, err := ops.update(r.Context(), chi.URLParam(r, "payslipID"), index, payroll.LineItem{Description: body.Description, Amount: body.Amount})
		h.finishLineChange(w, r, p, err)
	}
}

func (h *Handler) handleRemoveLine(ops lineOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := pathIndex(w, r)
		if !ok {
			return
		}
		p, err := ops.remove(r.Context(), chi.URLParam(r, "payslipID"), index)
		h.finishLineChange(w, r, p, err)
	}
}

func (h *Handler) handleUpdateEarning(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var body earningPayload
	if !shared.DecodeAndValidate(w, r, &body, middleware.GetRequestID(r.Context())) {
		return
	}
	p, err := h.Service.UpdateEarning(r.Context(), chi.URLParam(r, "payslipID"), index, payroll.EarningUpdate{
		Description: body.Description,
		Quantity:    body.Quantity,
		Rate:        body.Rate,
		BaseRate:    body.BaseRate,
		Date:        body.Date,
	})
	h.finishLineChange(w, r, p, err)
}

func (h *Handler) handleRemoveEarning(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	p, err := h.Service.RemoveEarning(r.Context(), chi.URLParam(r, "payslipID"), index)
	h.finishLineChange(w, r, p, err)
}

func (h *Handler) finishLineChange(w http.ResponseWriter, r *http.Request, p payroll.Payslip, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, audit.ActionPayslipLineChanged, p.ID, nil, p.Summary())
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}
