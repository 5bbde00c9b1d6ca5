package handlers

import (
	"net/http"
	"testing"

	"github.com/soundprediction/textencode/pkg/engine"
)

func TestHealthCheck(t *testing.T) {
	r := newRouter(NewHealthHandler(nil), nil)

	w, response := doRequest(t, r, http.MethodGet, "/health", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if response["status"] != "healthy" {
		t.Errorf("expected status healthy, got %v", response["status"])
	}
	if response["service"] != "textencode" {
		t.Errorf("expected service textencode, got %v", response["service"])
	}
	if _, ok := response["timestamp"]; !ok {
		t.Error("expected timestamp in response")
	}
	if _, ok := response["version"]; !ok {
		t.Error("expected version in response")
	}
}

func TestLivenessCheck(t *testing.T) {
	r := newRouter(NewHealthHandler(nil), nil)

	w, response := doRequest(t, r, http.MethodGet, "/live", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if response["status"] != "alive" {
		t.Errorf("expected status alive, got %v", response["status"])
	}
}

func TestReadinessCheckWithNilEngine(t *testing.T) {
	r := newRouter(NewHealthHandler(nil), nil)

	w, response := doRequest(t, r, http.MethodGet, "/ready", nil)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
	if response["status"] != "not_ready" {
		t.Errorf("expected status not_ready, got %v", response["status"])
	}
}

func TestReadinessCheckWithEngine(t *testing.T) {
	r := newRouter(NewHealthHandler(newTestEngine()), nil)

	w, response := doRequest(t, r, http.MethodGet, "/ready", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if response["status"] != "ready" {
		t.Errorf("expected status ready, got %v", response["status"])
	}
}

func TestReadinessCheckWithoutExtension(t *testing.T) {
	r := newRouter(NewHealthHandler(newTestEngine(engine.WithExtensions())), nil)

	w, _ := doRequest(t, r, http.MethodGet, "/ready", nil)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
}

func TestDetailedHealthCheck(t *testing.T) {
	r := newRouter(NewHealthHandler(newTestEngine()), nil)

	w, response := doRequest(t, r, http.MethodGet, "/health/detailed", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	for _, key := range []string{"build_info", "environment", "checks", "metrics", "engine"} {
		if _, ok := response[key]; !ok {
			t.Errorf("expected %s in response", key)
		}
	}
	checks := response["checks"].(map[string]any)
	if _, ok := checks["system"]; !ok {
		t.Error("expected system check")
	}
}
