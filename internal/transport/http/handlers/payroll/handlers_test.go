package payrollhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutordesk/internal/domain/audit"
	"tutordesk/internal/domain/auth"
	"tutordesk/internal/domain/lessons"
	"tutordesk/internal/domain/payroll"
	"tutordesk/internal/domain/rates"
	"tutordesk/internal/transport/http/middleware"
)

const testSecret = "handler-test-secret"

var testNow = time.Date(2025, time.April, 20, 9, 0, 0, 0, time.UTC)

type fixedRate struct{}

func (fixedRate) EffectiveRate(ctx context.Context, userID string, asOf time.Time) (rates.Quote, error) {
	if userID == "no-rate" {
		return rates.Quote{}, rates.ErrNoRate
	}
	return rates.Quote{UserID: userID, AsOf: asOf, Rate: decimal.NewFromInt(250)}, nil
}

type memoryIdempotency struct {
	mu   sync.Mutex
	rows map[string][2]string
}

func (m *memoryIdempotency) Check(ctx context.Context, userID, endpoint, key, hash string) (json.RawMessage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[userID+"|"+endpoint+"|"+key]
	if !ok {
		return nil, false, nil
	}
	if row[0] != hash {
		return nil, false, middleware.ErrIdempotencyConflict
	}
	return json.RawMessage(row[1]), true, nil
}

func (m *memoryIdempotency) Save(ctx context.Context, userID, endpoint, key, hash string, response json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows == nil {
		m.rows = map[string][2]string{}
	}
	m.rows[userID+"|"+endpoint+"|"+key] = [2]string{hash, string(response)}
	return nil
}

type recordingAuditor struct {
	entries []audit.Entry
}

func (a *recordingAuditor) Record(ctx context.Context, e audit.Entry) error {
	a.entries = append(a.entries, e)
	return nil
}

type testServer struct {
	router  http.Handler
	store   *payroll.MemoryStore
	service *payroll.Service
	auditor *recordingAuditor
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	store := payroll.NewMemoryStore()
	svc := payroll.NewService(store, payroll.NewReconciler(payroll.DefaultTaxTable(), store),
		payroll.WithClock(func() time.Time { return testNow }))
	auditor := &recordingAuditor{}
	h := NewHandler(svc, lessons.NewRecorder(svc, fixedRate{}, ""), auditor, &memoryIdempotency{})
	h.Now = func() time.Time { return testNow }

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(testSecret))
	r.Route("/api/v1", h.RegisterRoutes)
	return testServer{router: r, store: store, service: svc, auditor: auditor}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, auth.Claims{UserID: userID, RoleName: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (s testServer) do(t *testing.T, method, path, tok, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decodePayslip(t *testing.T, env envelope) payroll.Payslip {
	t.Helper()
	var p payroll.Payslip
	require.NoError(t, json.Unmarshal(env.Data, &p))
	return p
}

const lessonBody = `{"userId":"tutor-1","studentName":"Ada","lessonDate":"2025-04-03","durationHours":2}`

func TestAddEventCreatesDraftAndIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	system := token(t, "lesson-bot", auth.RoleLessonSystem)

	rec, env := s.do(t, http.MethodPost, "/api/v1/payroll/events", system, lessonBody, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first eventResponse
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.True(t, first.Added)
	assert.Equal(t, "2025-04", first.Payslip.PayPeriod)
	assert.Equal(t, "500.00", first.Payslip.Gross.StringFixed(2))

	rec, env = s.do(t, http.MethodPost, "/api/v1/payroll/events", system, lessonBody, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var replay eventResponse
	require.NoError(t, json.Unmarshal(env.Data, &replay))
	assert.Equal(t, first.Payslip.ID, replay.Payslip.ID)

	rec, env = s.do(t, http.MethodPost, "/api/v1/payroll/events", system, lessonBody)
	require.Equal(t, http.StatusOK, rec.Code)
	var dup eventResponse
	require.NoError(t, json.Unmarshal(env.Data, &dup))
	assert.False(t, dup.Added)

	rec, env = s.do(t, http.MethodPost, "/api/v1/payroll/events", system,
		`{"userId":"tutor-1","studentName":"Bo","lessonDate":"2025-04-04","durationHours":1}`, "Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "idempotency_conflict", env.Error.Code)
}

func TestAddEventValidationAndRateErrors(t *testing.T) {
	s := newTestServer(t)
	system := token(t, "lesson-bot", auth.RoleLessonSystem)

	rec, env := s.do(t, http.MethodPost, "/api/v1/payroll/events", system, `{"userId":"tutor-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)

	rec, env = s.do(t, http.MethodPost, "/api/v1/payroll/events", system,
		`{"userId":"no-rate","studentName":"Ada","lessonDate":"2025-04-03","durationHours":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "no_rate", env.Error.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/payroll/events", token(t, "tutor-1", auth.RoleTutor), lessonBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/payroll/events", "", lessonBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLineEditsAndStatusFlow(t *testing.T) {
	s := newTestServer(t)
	admin := token(t, "admin-1", auth.RolePayrollAdmin)

	rec, env := s.do(t, http.MethodPost, "/api/v1/payroll/payslips", admin, `{"userId":"tutor-1","payPeriod":"2025-04"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := decodePayslip(t, env).ID

	rec, env = s.do(t, http.MethodPost, "/api/v1/payroll/payslips/"+id+"/bonuses", admin, `{"description":"Exam prep","amount":"300"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decodePayslip(t, env)
	assert.Equal(t, "300.00", p.TotalBonuses.StringFixed(2))

	rec, env = s.do(t, http.MethodPut, "/api/v1/payroll/payslips/"+id+"/bonuses/4", admin, `{"description":"x","amount":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_index", env.Error.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/payroll/payslips/"+id+"/deductions/abc", admin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = s.do(t, http.MethodPut, "/api/v1/payroll/payslips/"+id+"/status", admin, `{"status":"LOCKED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payroll.StatusLocked, decodePayslip(t, env).Status)

	rec, env = s.do(t, http.MethodPost, "/api/v1/payroll/payslips/"+id+"/misc-earnings", admin, `{"description":"Travel","amount":50}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", env.Error.Code)

	rec, env = s.do(t, http.MethodPut, "/api/v1/payroll/payslips/"+id+"/status", admin, `{"status":"ARCHIVED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_status", env.Error.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/payroll/payslips/"+id+"/recalculate", admin, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	actions := make([]string, 0, len(s.auditor.entries))
	for _, e := range s.auditor.entries {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{
		audit.ActionPayslipCreated,
		audit.ActionPayslipLineChanged,
		audit.ActionPayslipStatus,
		audit.ActionPayslipRecalculated,
	}, actions)
	status := s.auditor.entries[2]
	assert.Equal(t, map[string]any{"status": payroll.StatusDraft}, status.Before)
	assert.Equal(t, map[string]any{"status": payroll.StatusLocked}, status.After)
}

func TestTutorSeesOnlyOwnPayslips(t *testing.T) {
	s := newTestServer(t)
	mine, err := s.service.GetOrCreateDraft(context.Background(), "tutor-1", "2025-04", "")
	require.NoError(t, err)
	theirs, err := s.service.GetOrCreateDraft(context.Background(), "tutor-2", "2025-04", "")
	require.NoError(t, err)

	tutor := token(t, "tutor-1", auth.RoleTutor)
	rec, _ := s.do(t, http.MethodGet, "/api/v1/payroll/payslips/"+mine.ID, tutor, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := s.do(t, http.MethodGet, "/api/v1/payroll/payslips/"+theirs.ID, tutor, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/payroll/payslips?userId=tutor-2&taxYear=2025", tutor, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []payroll.PayslipSummary
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/payroll/payslips/"+mine.ID+"/bonuses", tutor, `{"description":"x","amount":1}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestQueryNoteRoundTrip(t *testing.T) {
	s := newTestServer(t)
	p, err := s.service.GetOrCreateDraft(context.Background(), "tutor-1", "2025-04", "")
	require.NoError(t, err)
	_, err = s.service.UpdateStatus(context.Background(), p.ID, string(payroll.StatusLocked), "admin-1")
	require.NoError(t, err)

	tutor := token(t, "tutor-1", auth.RoleTutor)
	admin := token(t, "admin-1", auth.RolePayrollAdmin)

	rec, env := s.do(t, http.MethodPost, "/api/v1/payroll/payslips/"+p.ID+"/queries", tutor, `{"itemRef":"earnings[0]","note":"Missing lesson"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, payroll.StatusDraft, decodePayslip(t, env).Status)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/payroll/payslips/"+p.ID+"/queries/0/resolve", tutor, `{"resolution":"done"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/api/v1/payroll/payslips/"+p.ID+"/queries/0/resolve", admin, `{"resolution":"Added"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resolved := decodePayslip(t, env)
	assert.Equal(t, payroll.StatusQueryHandled, resolved.Status)
	assert.True(t, resolved.QueryNotes[0].Resolved)
}

func TestPDFDownload(t *testing.T) {
	s := newTestServer(t)
	p, err := s.service.GetOrCreateDraft(context.Background(), "tutor-1", "2025-04", "")
	require.NoError(t, err)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/payroll/payslips/"+p.ID+"/pdf", token(t, "tutor-1", auth.RoleTutor), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestUnknownPayslip(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodPost, "/api/v1/payroll/payslips/missing/recalculate", token(t, "admin-1", auth.RolePayrollAdmin), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error.Code)
}
