package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgallion1/examkb/internal/pipeline"
)

func newLoggedServer(t *testing.T) (*Server, *bytes.Buffer) {
	t.Helper()
	cfg := testConfig()
	p, err := pipeline.New(cfg, pipeline.Options{}, nil)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewServer(p, nil, log, cfg), &buf
}

// requestLines returns the access log entries written to buf.
func requestLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("bad log line %q: %v", sc.Text(), err)
		}
		if entry["msg"] == "request" {
			out = append(out, entry)
		}
	}
	return out
}

func TestAccessLog_CarriesRequestAndRunIDs(t *testing.T) {
	s, buf := newLoggedServer(t)
	rec := serve(s, upload(t, "/api/extract", "xiyao.txt", examText, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	lines := requestLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 access log line, got %d", len(lines))
	}
	entry := lines[0]
	if entry["run_id"] != rec.Header().Get(runIDHeader) {
		t.Errorf("expected run_id %q, got %v", rec.Header().Get(runIDHeader), entry["run_id"])
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Error("expected a request id")
	}
	if entry["level"] != "INFO" || entry["status"] != float64(http.StatusOK) {
		t.Errorf("unexpected entry %v", entry)
	}
	if n, _ := entry["bytes"].(float64); int(n) != rec.Body.Len() {
		t.Errorf("expected bytes %d, got %v", rec.Body.Len(), entry["bytes"])
	}
}

func TestAccessLog_ClientErrorsWarn(t *testing.T) {
	s, buf := newLoggedServer(t)
	serve(s, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	lines := requestLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 access log line, got %d", len(lines))
	}
	if lines[0]["level"] != "WARN" || lines[0]["status"] != float64(http.StatusUnauthorized) {
		t.Errorf("unexpected entry %v", lines[0])
	}
	if _, ok := lines[0]["run_id"]; ok {
		t.Error("expected no run_id outside extraction")
	}
}

func TestRequireAPIKey(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"bearer", "Authorization", "Bearer " + testKey, http.StatusOK},
		{"lowercase scheme", "Authorization", "bearer " + testKey, http.StatusOK},
		{"api key header", "X-API-Key", testKey, http.StatusOK},
		{"basic scheme", "Authorization", "Basic " + testKey, http.StatusUnauthorized},
		{"empty bearer", "Authorization", "Bearer ", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
			req.Header.Set(tt.header, tt.value)
			rec := serve(s, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusUnauthorized {
				var body map[string]string
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
					t.Errorf("expected JSON error body, got %q", rec.Body.String())
				}
			}
		})
	}
}
