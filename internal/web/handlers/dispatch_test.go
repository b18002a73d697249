package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/postroom/postroom/internal/dispatch"
	"github.com/postroom/postroom/internal/mail"
	"github.com/postroom/postroom/internal/recipient"
)

// stubResolver hands the engine a transport that can never dial, so runs
// started from these tests terminate quickly without touching the network.
type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context) (mail.TransportConfig, error) {
	return mail.TransportConfig{}, nil
}

func setupDispatchTestRouter(recipients *mockRecipientStore, templates *mockTemplateStore) (*chi.Mux, *dispatch.Runner) {
	engine := dispatch.NewEngine(stubResolver{}, &mockSettingsStore{}, &mockEmailLogStore{})
	runner := dispatch.NewRunner(engine)
	handler := NewDispatchHandler(recipient.NewService(recipients), templates, runner)

	r := chi.NewRouter()
	r.Post("/dispatch", handler.HandleStart)
	r.Get("/dispatch/{runID}", handler.HandleGet)
	r.Delete("/dispatch/{runID}", handler.HandleCancel)
	return r, runner
}

func multipartDispatchRequest(t *testing.T, data string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("data", data); err != nil {
		t.Fatalf("failed to write data field: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/dispatch", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func waitForTerminalRun(t *testing.T, router *chi.Mux, runID string) runResponse {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/dispatch/"+runID, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200 polling run, got %d", rr.Code)
		}

		var run runResponse
		if err := json.NewDecoder(rr.Body).Decode(&run); err != nil {
			t.Fatalf("failed to parse run response: %v", err)
		}
		if run.State != string(dispatch.RunStateRunning) {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run never reached a terminal state")
	return runResponse{}
}

func TestHandleStartDispatch_StartsRun(t *testing.T) {
	recipients := newMockRecipientStore()
	r := recipients.addRecipient("alice@example.com", "Acme")
	router, _ := setupDispatchTestRouter(recipients, newMockTemplateStore())

	data := `{"subject": "Hello {{company}}", "body": "Hi", "recipient_ids": ["` + r.PublicID.String() + `"]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, multipartDispatchRequest(t, data))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.RunID == "" {
		t.Fatal("expected a run_id in the response")
	}

	// The stub transport cannot dial, so the run ends in the failed state.
	run := waitForTerminalRun(t, router, resp.RunID)
	if run.State != string(dispatch.RunStateFailed) {
		t.Errorf("expected state failed, got %q", run.State)
	}
	if run.Total != 1 {
		t.Errorf("expected total 1, got %d", run.Total)
	}
}

func TestHandleStartDispatch_TemplateDefaults(t *testing.T) {
	recipients := newMockRecipientStore()
	r := recipients.addRecipient("alice@example.com", "Acme")
	templates := newMockTemplateStore()
	tmpl := templates.addTemplate("welcome", "Hello {{company}}", "Hi {{email}}")
	router, _ := setupDispatchTestRouter(recipients, templates)

	data := `{"template_id": "` + tmpl.PublicID.String() + `", "recipient_ids": ["` + r.PublicID.String() + `"]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, multipartDispatchRequest(t, data))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleStartDispatch_UnknownTemplate(t *testing.T) {
	recipients := newMockRecipientStore()
	r := recipients.addRecipient("alice@example.com", "Acme")
	router, _ := setupDispatchTestRouter(recipients, newMockTemplateStore())

	data := `{"template_id": "00000000-0000-0000-0000-000000000001", "recipient_ids": ["` + r.PublicID.String() + `"]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, multipartDispatchRequest(t, data))

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleStartDispatch_UnknownRecipient(t *testing.T) {
	router, _ := setupDispatchTestRouter(newMockRecipientStore(), newMockTemplateStore())

	data := `{"subject": "Hi", "body": "Hello", "recipient_ids": ["00000000-0000-0000-0000-000000000001"]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, multipartDispatchRequest(t, data))

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleStartDispatch_MissingSubject(t *testing.T) {
	recipients := newMockRecipientStore()
	r := recipients.addRecipient("alice@example.com", "Acme")
	router, _ := setupDispatchTestRouter(recipients, newMockTemplateStore())

	data := `{"body": "Hello", "recipient_ids": ["` + r.PublicID.String() + `"]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, multipartDispatchRequest(t, data))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleStartDispatch_NoRecipients(t *testing.T) {
	router, _ := setupDispatchTestRouter(newMockRecipientStore(), newMockTemplateStore())

	data := `{"subject": "Hi", "body": "Hello", "recipient_ids": []}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, multipartDispatchRequest(t, data))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleStartDispatch_MissingDataField(t *testing.T) {
	router, _ := setupDispatchTestRouter(newMockRecipientStore(), newMockTemplateStore())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/dispatch", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleGetRun_Unknown(t *testing.T) {
	router, _ := setupDispatchTestRouter(newMockRecipientStore(), newMockTemplateStore())

	req := httptest.NewRequest(http.MethodGet, "/dispatch/00000000-0000-0000-0000-000000000001", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleCancelRun_Unknown(t *testing.T) {
	router, _ := setupDispatchTestRouter(newMockRecipientStore(), newMockTemplateStore())

	req := httptest.NewRequest(http.MethodDelete, "/dispatch/00000000-0000-0000-0000-000000000001", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}
