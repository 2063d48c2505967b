package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := New(Config{
		BaseURL:    srv.URL,
		RetryDelay: time.Millisecond,
	})
	return client, srv
}

// --- ResolveLatestVersion Tests ---

func TestResolveLatestVersion(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/models/zeta-model/versions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("expected limit=1, got %q", r.URL.Query().Get("limit"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"versions": []map[string]any{{"version": "zeta-model-v1.0.0"}},
		})
	}))

	version, err := client.ResolveLatestVersion(context.Background(), "zeta-model")
	if err != nil {
		t.Fatalf("ResolveLatestVersion: %v", err)
	}
	if version != "zeta-model-v1.0.0" {
		t.Errorf("version = %q", version)
	}
}

func TestResolveLatestVersion_NoVersions(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"versions": []any{}})
	}))

	_, err := client.ResolveLatestVersion(context.Background(), "zeta-model")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- Error Classification Tests ---

func TestGetVersion_NotFound(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such version"}`, http.StatusNotFound)
	}))

	_, err := client.GetVersion(context.Background(), "zeta-model", "v9.9.9")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListVersions_ValidationErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad limit"}`, http.StatusBadRequest)
	}))

	_, err := client.ListVersions(context.Background(), "zeta-model", -1, 0)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("4xx must not be retried, got %d calls", calls.Load())
	}
}

func TestListVersions_RetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"versions": []map[string]any{{"version": "v1"}},
		})
	}))

	versions, err := client.ListVersions(context.Background(), "zeta-model", 0, 0)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 1 || versions[0].Version != "v1" {
		t.Errorf("unexpected versions %+v", versions)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestListVersions_UpstreamAfterExhaustion(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))

	_, err := client.ListVersions(context.Background(), "zeta-model", 0, 0)
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts (default budget), got %d", calls.Load())
	}
}

// --- Write Tests ---

func TestRegisterVersion_NotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		http.Error(w, "down", http.StatusInternalServerError)
	}))

	_, err := client.RegisterVersion(context.Background(), "zeta-model", "v2", "new version", nil)
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("writes must not be retried, got %d calls", calls.Load())
	}
}

func TestRegisterVersion(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["version"] != "v2" {
			t.Errorf("payload version = %v", payload["version"])
		}
		json.NewEncoder(w).Encode(ModelVersion{Version: "v2", Stage: "staging"})
	}))

	mv, err := client.RegisterVersion(context.Background(), "zeta-model", "v2", "desc", map[string]any{"bits": 8})
	if err != nil {
		t.Fatalf("RegisterVersion: %v", err)
	}
	if mv.Version != "v2" || mv.Stage != "staging" {
		t.Errorf("unexpected version %+v", mv)
	}
}

func TestRecordStageTransition(t *testing.T) {
	var gotPath string
	var payload map[string]any
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))

	err := client.RecordStageTransition(context.Background(), "zeta-model", "v1", "production", "promoted")
	if err != nil {
		t.Fatalf("RecordStageTransition: %v", err)
	}
	if gotPath != "/api/v1/model-versions/set-stage" {
		t.Errorf("path = %s", gotPath)
	}
	if payload["name"] != "zeta-model" || payload["stage"] != "production" {
		t.Errorf("payload = %v", payload)
	}
}

// --- Auth Tests ---

func TestBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "zeta" || pass != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"versions": []any{}})
	}))
	defer srv.Close()

	client := New(Config{
		BaseURL:    srv.URL,
		Username:   "zeta",
		Password:   "secret",
		RetryDelay: time.Millisecond,
	})

	if _, err := client.ListVersions(context.Background(), "m", 0, 0); err != nil {
		t.Fatalf("ListVersions with auth: %v", err)
	}
}

func TestHealthURL(t *testing.T) {
	client := New(Config{BaseURL: "http://registry:8080"})
	if got := client.HealthURL(); got != "http://registry:8080/health" {
		t.Errorf("HealthURL = %q", got)
	}
}
