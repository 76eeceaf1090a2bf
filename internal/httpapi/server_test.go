package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ggufplan/internal/manager"
	"ggufplan/pkg/types"
)

type mockService struct {
	models  []types.Model
	status  types.StatusResponse
	ready   bool
	planErr error
	plan    types.PlanResponse
	est     types.EstimateResponse
}

func (m *mockService) ListModels() []types.Model { return append([]types.Model(nil), m.models...) }

func (m *mockService) Status(context.Context) types.StatusResponse { return m.status }

func (m *mockService) Ready() bool { return m.ready }

func (m *mockService) Describe(modelID string) (types.EstimateResponse, error) {
	if m.planErr != nil {
		return types.EstimateResponse{}, m.planErr
	}
	return m.est, nil
}

func (m *mockService) PlanLoad(ctx context.Context, modelID string, requestedContext int) (types.PlanResponse, error) {
	if m.planErr != nil {
		return types.PlanResponse{}, m.planErr
	}
	return m.plan, nil
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: []types.Model{{ID: "m1"}, {ID: "m2"}}}
	r := NewMux(svc)
	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Models) != 2 {
		t.Fatalf("models len=%d", len(body.Models))
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{ModelCount: 3}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.ModelCount != 3 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestPlanHandler(t *testing.T) {
	svc := &mockService{plan: types.PlanResponse{
		Model: "m1",
		Plan:  types.LoadPlan{GPULayers: 20, BatchSize: 256, ContextSize: 4096, Tier: types.TierLow},
	}}
	r := NewMux(svc)
	w := postJSON(r, "/plan", `{"model":"m1","context":4096}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.PlanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Plan.GPULayers != 20 || body.Plan.Tier != types.TierLow {
		t.Fatalf("unexpected plan: %+v", body.Plan)
	}
}

func TestEstimateHandler(t *testing.T) {
	svc := &mockService{est: types.EstimateResponse{
		Model:    "m1",
		Estimate: types.MemoryEstimate{TotalBytes: 42},
	}}
	r := NewMux(svc)
	w := postJSON(r, "/estimate", `{"model":"m1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.EstimateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Estimate.TotalBytes != 42 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestPlanModelNotFoundMaps404(t *testing.T) {
	svc := &mockService{planErr: manager.ErrModelNotFound("nope.gguf")}
	r := NewMux(svc)
	w := postJSON(r, "/plan", `{"model":"nope.gguf"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Code != http.StatusNotFound || !strings.Contains(body.Error, "nope.gguf") {
		t.Fatalf("unexpected error payload: %+v", body)
	}
}

func TestPlanHTTPErrorMapping(t *testing.T) {
	svc := &mockService{planErr: mockHTTPError{msg: "cannot size model", code: http.StatusUnprocessableEntity}}
	r := NewMux(svc)
	w := postJSON(r, "/plan", `{"model":"m1"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestPlanGenericErrorMaps500(t *testing.T) {
	svc := &mockService{planErr: errors.New("boom")}
	r := NewMux(svc)
	w := postJSON(r, "/plan", `{"model":"m1"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestPlanBadJSON(t *testing.T) {
	r := NewMux(&mockService{})
	w := postJSON(r, "/plan", "not-json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestPlanNegativeContext(t *testing.T) {
	r := NewMux(&mockService{})
	w := postJSON(r, "/plan", `{"model":"m1","context":-1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestPlanUnsupportedMediaType(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plan", bytes.NewBufferString(`{"model":"m1"}`))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestPlanBodyTooLarge(t *testing.T) {
	r := NewMux(&mockService{})
	big := make([]byte, (1<<20)+10)
	for i := range big {
		big[i] = 'a'
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plan", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too-large body, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	r := NewMux(&mockService{ready: false})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "loading") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestRoutePatternOrPathFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/no-route", nil)
	if got := routePatternOrPath(req); got != "/no-route" {
		t.Fatalf("got %q", got)
	}
}

func TestItoa(t *testing.T) {
	cases := map[int]string{0: "0", 200: "200", 404: "404", 422: "422"}
	for n, want := range cases {
		if got := itoa(n); got != want {
			t.Errorf("itoa(%d) = %q, want %q", n, got, want)
		}
	}
}
