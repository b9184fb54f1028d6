package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/glyphmark/internal/history"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	s := New(cfg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func decodeResponse(t *testing.T, resp *http.Response) APIResponse {
	t.Helper()
	defer resp.Body.Close()
	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return apiResp
}

func TestHandleRoot(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	apiResp := decodeResponse(t, resp)
	data, ok := apiResp.Data.(map[string]any)
	if !apiResp.Success || !ok || data["version"] != Version {
		t.Errorf("response = %+v", apiResp)
	}

	resp, err = http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	if apiResp := decodeResponse(t, resp); resp.StatusCode != http.StatusNotFound || apiResp.Error.Code != "NOT_FOUND" {
		t.Errorf("status = %d, error = %+v", resp.StatusCode, apiResp.Error)
	}
}

func TestHandleHealth(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID missing")
	}
	data := decodeResponse(t, resp).Data.(map[string]any)
	if data["status"] != "healthy" || data["targets"].(float64) < 1 || data["history"] != false {
		t.Errorf("health = %v", data)
	}

	resp, err = http.Post(ts.URL+"/health", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /health status = %d", resp.StatusCode)
	}
}

func TestHandleAnnotate(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	tests := []struct {
		name        string
		contentType string
		body        string
		wantType    string
		wantMarkers string
		wantBody    string
	}{
		{
			name:        "html",
			contentType: "text/html",
			body:        "<p>a\u2014b</p><pre>\u2014</pre>",
			wantType:    "text/html; charset=utf-8",
			wantMarkers: "1",
			wantBody:    "<span class=\"ai-detector-highlight ai-detector-u+2014\" data-ai-detector=\"true\" title=\"EM DASH (U+2014) (U+2014)\">\u2014</span>",
		},
		{
			name:        "xhtml",
			contentType: "application/xhtml+xml",
			body:        "<html xmlns=\"http://www.w3.org/1999/xhtml\"><body><p>x\u200By</p></body></html>",
			wantType:    "application/xhtml+xml; charset=utf-8",
			wantMarkers: "1",
			wantBody:    "data-ai-zerowidth=\"true\"",
		},
		{
			name:        "nothing to mark",
			contentType: "text/html",
			body:        "<p>plain</p>",
			wantType:    "text/html; charset=utf-8",
			wantMarkers: "0",
			wantBody:    "<p>plain</p>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/annotate", tt.contentType, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d: %s", resp.StatusCode, body)
			}
			if got := resp.Header.Get("Content-Type"); got != tt.wantType {
				t.Errorf("Content-Type = %q", got)
			}
			if got := resp.Header.Get(MarkersHeader); got != tt.wantMarkers {
				t.Errorf("%s = %q, want %q", MarkersHeader, got, tt.wantMarkers)
			}
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("body missing %q:\n%s", tt.wantBody, body)
			}
		})
	}
}

func TestHandleAnnotateErrors(t *testing.T) {
	_, ts := newTestServer(t, Config{MaxBodyBytes: 64})

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
		wantCode    string
	}{
		{"wrong method", http.MethodGet, "", "", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"too large", http.MethodPost, "text/html", strings.Repeat("x", 100), http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE"},
		{"bad xml", http.MethodPost, "application/xml", "<a><b></a>", http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, ts.URL+"/annotate", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			apiResp := decodeResponse(t, resp)
			if resp.StatusCode != tt.wantStatus || apiResp.Success || apiResp.Error.Code != tt.wantCode {
				t.Errorf("status = %d, error = %+v", resp.StatusCode, apiResp.Error)
			}
		})
	}
}

func TestHandleScanRecordsHistory(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	_, ts := newTestServer(t, Config{History: store})

	resp, err := http.Post(ts.URL+"/scan?source=upload.html", "text/html", strings.NewReader("<p>a\u00A0b\u2009c</p>"))
	if err != nil {
		t.Fatal(err)
	}
	data := decodeResponse(t, resp).Data.(map[string]any)
	if data["markers"] != 2.0 || data["source"] != "upload.html" {
		t.Errorf("report = %v", data)
	}

	runs, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Source != "upload.html" || runs[0].Markers != 2 {
		t.Errorf("runs = %+v", runs)
	}

	resp, err = http.Get(ts.URL + "/history?limit=5")
	if err != nil {
		t.Fatal(err)
	}
	apiResp := decodeResponse(t, resp)
	if apiResp.Meta.Total != 1 {
		t.Errorf("history total = %d", apiResp.Meta.Total)
	}

	resp, err = http.Get(ts.URL + "/history?limit=zero")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", resp.StatusCode)
	}
}

func TestHistoryDisabled(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	resp, err := http.Get(ts.URL + "/history")
	if err != nil {
		t.Fatal(err)
	}
	if apiResp := decodeResponse(t, resp); resp.StatusCode != http.StatusNotFound || apiResp.Error.Code != "HISTORY_DISABLED" {
		t.Errorf("status = %d, error = %+v", resp.StatusCode, apiResp.Error)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t, Config{AllowedOrigins: []string{"http://app.example"}})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/annotate", nil)
	req.Header.Set("Origin", "http://app.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://app.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Expose-Headers"), MarkersHeader) {
		t.Errorf("Expose-Headers = %q", resp.Header.Get("Access-Control-Expose-Headers"))
	}
}
