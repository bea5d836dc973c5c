package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/akushu/internal/capture"
	"github.com/ayusman/akushu/internal/display"
	"github.com/ayusman/akushu/internal/logging"
	"github.com/ayusman/akushu/internal/store"
)

func get(s *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	t.Run("reports uptime without a runner", func(t *testing.T) {
		rec := get(New(Config{}), "/api/health")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, ok := response["uptime"]; !ok {
			t.Error("expected 'uptime' field in response")
		}
		if _, ok := response["running"]; ok {
			t.Error("'running' must be omitted without a runner")
		}
	})

	t.Run("reports the run state", func(t *testing.T) {
		runner := &stubRunner{running: true}
		rec := get(New(Config{Runner: runner}), "/api/health")

		var response map[string]interface{}
		json.NewDecoder(rec.Body).Decode(&response)
		if response["running"] != true {
			t.Errorf("expected running=true, got %v", response["running"])
		}
	})

	t.Run("only allows GET", func(t *testing.T) {
		s := New(Config{})
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(method, "/api/health", nil))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_RoutesFollowConfig(t *testing.T) {
	db, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer db.Close()

	full := New(Config{
		Store:   db,
		Runner:  &stubRunner{},
		Latest:  display.NewLatest(),
		Preview: capture.NewPreview(false),
		Hub:     NewHub(nil),
	})
	bare := New(Config{})

	tests := []struct {
		target   string
		wantFull int
	}{
		{"/api/session", http.StatusOK},
		{"/api/captures", http.StatusOK},
		{"/api/sessions", http.StatusOK},
		{"/api/settings", http.StatusOK},
		{"/api/photo/latest", http.StatusNotFound}, // nothing captured yet
		{"/api/events", http.StatusBadRequest},     // not a websocket handshake
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if rec := get(full, tt.target); rec.Code != tt.wantFull {
				t.Errorf("configured: expected status %d, got %d", tt.wantFull, rec.Code)
			}
			if rec := get(bare, tt.target); rec.Code != http.StatusNotFound {
				t.Errorf("unconfigured: expected status %d, got %d", http.StatusNotFound, rec.Code)
			}
		})
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	index := "<html><body>Akushu</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(index), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	script := "connect('/api/events')"
	if err := os.WriteFile(filepath.Join(tmpDir, "app.js"), []byte(script), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{"index at root", "/", http.StatusOK, index},
		{"asset", "/app.js", http.StatusOK, script},
		{"missing file", "/nope.html", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(s, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, rec.Body.String())
			}
		})
	}
}

func TestServer_NoStaticDir(t *testing.T) {
	if rec := get(New(Config{}), "/"); rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestHub_LogsWithComponent(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "akushu.log")
	logging.InitLogger("info", logFile)
	t.Cleanup(func() {
		logging.Close()
		logging.InitLogger("info", "")
	})

	// A plain GET is not a websocket handshake, so the upgrade fails and is logged.
	if rec := get(New(Config{Hub: NewHub(nil)}), "/api/events"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "component=hub") {
		t.Errorf("expected hub records to carry component=hub, got %q", data)
	}
}
