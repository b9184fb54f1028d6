package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FocuswithJustin/glyphmark/core/dom"
	"github.com/FocuswithJustin/glyphmark/core/errors"
	"github.com/FocuswithJustin/glyphmark/core/report"
	"github.com/FocuswithJustin/glyphmark/internal/history"
	"github.com/FocuswithJustin/glyphmark/internal/logging"
	"github.com/FocuswithJustin/glyphmark/internal/pipeline"
)

// MarkersHeader carries the marker count of an annotated document.
const MarkersHeader = "X-Glyphmark-Markers"

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
	Targets  int    `json:"targets"`
	History  bool   `json:"history"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"name":    "glyphmark API",
		"version": Version,
		"endpoints": []string{
			"GET /health",
			"POST /annotate",
			"POST /scan",
			"GET /sessions",
			"GET /sessions/:id",
			"GET /history",
			"WS /ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	respond(w, http.StatusOK, HealthInfo{
		Status:   "healthy",
		Version:  Version,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Sessions: s.sessions.Len(),
		Targets:  s.cfg.Registry.Len(),
		History:  s.cfg.History != nil,
	})
}

// handleAnnotate returns the annotated document itself.
func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	doc, rep, err := s.annotateBody(r)
	if err != nil {
		respondFailure(w, err)
		return
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		respondFailure(w, err)
		return
	}
	contentType := "text/html; charset=utf-8"
	if doc.Kind() == dom.KindXML {
		contentType = "application/xhtml+xml; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set(MarkersHeader, strconv.Itoa(rep.Markers))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleScan returns only the report.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	_, rep, err := s.annotateBody(r)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respond(w, http.StatusOK, rep)
}

// annotateBody parses the request body, as XML when the content type says
// so, annotates it and records the run when history is enabled.
func (s *Server) annotateBody(r *http.Request) (*dom.Document, *report.Report, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, err
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "request"
	}

	var doc *dom.Document
	format := "HTML"
	if strings.Contains(r.Header.Get("Content-Type"), "xml") {
		format = "XML"
		doc, err = dom.ParseXML(bytes.NewReader(data))
	} else {
		doc, err = dom.ParseHTML(bytes.NewReader(data))
	}
	if err != nil {
		return nil, nil, &errors.ParseError{Format: format, Path: source, Message: err.Error(), Err: errors.ErrInvalidInput}
	}

	rep, err := pipeline.Annotate(doc, s.cfg.Registry, source)
	if err != nil {
		return nil, nil, err
	}
	if s.cfg.History != nil {
		run := history.Run{Source: source, Markers: rep.Markers, ZeroWidth: rep.ZeroWidth, Digest: rep.Digest}
		if _, err := s.cfg.History.Record(r.Context(), run); err != nil {
			logging.WarnContext(r.Context(), "history record failed", "source", source, "error", err)
		}
	}
	return doc, rep, nil
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	sessions := s.sessions.List()
	respondList(w, sessions, len(sessions))
}

// handleSessionByID renders a live session's document.
func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Session not found")
		return
	}
	markup, err := sess.Render()
	if err != nil {
		respondFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(MarkersHeader, strconv.Itoa(sess.Info().Markers))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, markup)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	if s.cfg.History == nil {
		respondError(w, http.StatusNotFound, "HISTORY_DISABLED", "Run history is not configured")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.cfg.History.List(r.Context(), limit)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondList(w, runs, len(runs))
}

// statusFor maps an error to an HTTP status and API error code.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE"
	}
	switch code := errors.Code(err); code {
	case errors.CodeNotFound:
		return http.StatusNotFound, code
	case errors.CodeUnsupported, errors.CodeInvalidInput:
		return http.StatusBadRequest, code
	default:
		return http.StatusInternalServerError, code
	}
}

func respondFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	respondError(w, status, code, err.Error())
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func respondList(w http.ResponseWriter, data any, total int) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Total:     total,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func writeJSON(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
