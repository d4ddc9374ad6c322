package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/mail-scheduler/internal/api"
	"github.com/notifyhub/mail-scheduler/internal/repository"
	"github.com/notifyhub/mail-scheduler/internal/service"
)

func newRouter() (http.Handler, *repository.MockStore) {
	store := repository.NewMockStore()
	svc := service.NewSchedulerService(store, nil, zap.NewNop(), service.Hooks{})
	return api.NewRouter(svc, prometheus.NewRegistry(), zap.NewNop()), store
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

const scheduleBody = `{"user_id":"user-1","email":"a@b.com","subject":"Hi","body":"Don't forget","send_time":"2030-01-01T00:00:00"}`

func TestSchedule_Created(t *testing.T) {
	router, _ := newRouter()

	rec := doRequest(t, router, http.MethodPost, "/schedule", scheduleBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["user_id"] != "user-1" {
		t.Fatalf("expected user_id user-1, got %q", resp["user_id"])
	}
	if resp["job_id"] != "email_user-1" {
		t.Fatalf("expected job_id email_user-1, got %q", resp["job_id"])
	}
	if resp["message"] != "scheduled" {
		t.Fatalf("expected message scheduled, got %q", resp["message"])
	}
}

func TestSchedule_GeneratesUserID(t *testing.T) {
	router, _ := newRouter()

	rec := doRequest(t, router, http.MethodPost, "/schedule",
		`{"email":"a@b.com","send_time":"2030-01-01T00:00:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["user_id"] == "" {
		t.Fatal("expected a generated user_id")
	}
	if !strings.HasPrefix(resp["job_id"], "email_") {
		t.Fatalf("unexpected job_id %q", resp["job_id"])
	}
}

func TestSchedule_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"send_time":"2030-01-01T00:00:00"}`},
		{"missing send_time", `{"email":"a@b.com"}`},
		{"unparseable send_time", `{"email":"a@b.com","send_time":"next tuesday"}`},
		{"invalid JSON", `{`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := newRouter()
			rec := doRequest(t, router, http.MethodPost, "/schedule", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}

			var resp map[string]string
			decodeBody(t, rec, &resp)
			if resp["error"] == "" {
				t.Fatal("expected an error message")
			}
		})
	}
}

func TestListNotifications(t *testing.T) {
	router, _ := newRouter()

	doRequest(t, router, http.MethodPost, "/schedule", scheduleBody)

	rec := doRequest(t, router, http.MethodGet, "/notifications", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var list []map[string]any
	decodeBody(t, rec, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(list))
	}
	n := list[0]
	if n["user_id"] != "user-1" || n["to_email"] != "a@b.com" {
		t.Fatalf("unexpected record %+v", n)
	}
	if n["sent"] != false {
		t.Fatal("expected sent=false")
	}
	if n["sent_time"] != nil {
		t.Fatal("expected sent_time=null")
	}
}

func TestListNotifications_EmptyIsArray(t *testing.T) {
	router, _ := newRouter()

	rec := doRequest(t, router, http.MethodGet, "/notifications", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("expected empty array, got %s", body)
	}
}

func TestListJobs(t *testing.T) {
	router, _ := newRouter()

	doRequest(t, router, http.MethodPost, "/schedule", scheduleBody)

	rec := doRequest(t, router, http.MethodGet, "/jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var jobs []struct {
		ID          string   `json:"id"`
		NextRunTime string   `json:"next_run_time"`
		Args        []string `json:"args"`
	}
	decodeBody(t, rec, &jobs)
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].ID != "email_user-1" {
		t.Fatalf("unexpected job id %q", jobs[0].ID)
	}
	if len(jobs[0].Args) != 1 || jobs[0].Args[0] != "user-1" {
		t.Fatalf("expected args [user-1], got %v", jobs[0].Args)
	}
	if jobs[0].NextRunTime == "" {
		t.Fatal("expected next_run_time to be set")
	}
}

func TestCancel(t *testing.T) {
	router, store := newRouter()

	doRequest(t, router, http.MethodPost, "/schedule", scheduleBody)

	rec := doRequest(t, router, http.MethodDelete, "/cancel/email_user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["message"] != "removed email_user-1" {
		t.Fatalf("unexpected message %q", resp["message"])
	}

	if count, _ := store.CountPendingTimers(context.Background()); count != 0 {
		t.Fatalf("expected no timers left, got %d", count)
	}
}

func TestCancel_Unknown(t *testing.T) {
	router, _ := newRouter()

	rec := doRequest(t, router, http.MethodDelete, "/cancel/email_nobody", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["error"] != "job not found" {
		t.Fatalf("unexpected error %q", resp["error"])
	}
}

func TestCancel_AlreadyFired(t *testing.T) {
	router, store := newRouter()

	doRequest(t, router, http.MethodPost, "/schedule", scheduleBody)

	// Simulate the dispatcher consuming the timer.
	if _, err := store.DeleteTimer(context.Background(), "email_user-1"); err != nil {
		t.Fatalf("consume timer: %v", err)
	}

	rec := doRequest(t, router, http.MethodDelete, "/cancel/email_user-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an already-fired job, got %d", rec.Code)
	}
}

func TestHome(t *testing.T) {
	router, _ := newRouter()

	rec := doRequest(t, router, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router, _ := newRouter()

	rec := doRequest(t, router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
