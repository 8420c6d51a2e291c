package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tkbcal/internal/config"
	"tkbcal/internal/ics"
	appLog "tkbcal/internal/log"
	"tkbcal/internal/model"
	"tkbcal/internal/source"
	"tkbcal/internal/timetable"
)

// maxBodyBytes bounds request bodies; pasted timetables are a few KB.
const maxBodyBytes = 1 << 20

// Server provides the HTTP parse API.
type Server struct {
	cfg    *config.Config
	parser *timetable.Parser
	mux    *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, parser *timetable.Parser) *Server {
	if parser == nil {
		parser = timetable.NewParser(
			timetable.WithLocation(cfg.Location()),
			timetable.WithMaxInput(cfg.MaxInputRunes),
		)
	}
	s := &Server{
		cfg:    cfg,
		parser: parser,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. Empty
// username or password counts as disabled.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="tkbcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves the API on cfg.Listen until ctx is canceled, then
// shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, parser *timetable.Parser) error {
	s := NewServer(cfg, parser)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/parse", s.handleParse)
	s.mux.HandleFunc("/api/parse.ics", s.handleParseICS)
	s.mux.HandleFunc("/api/import", s.handleImport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// parseResponse is the JSON response shape for /api/parse.
type parseResponse struct {
	Events         []model.Event `json:"events"`
	Grammar        string        `json:"grammar,omitempty"`
	Anchor         string        `json:"anchor"`
	AnchorFromText bool          `json:"anchor_from_text"`
	Truncated      bool          `json:"truncated,omitempty"`
}

// handleParse extracts events from a timetable.
//
// POST /api/parse
//   - application/json: {"text": "..."}; text must be a string
//   - text/plain: the timetable itself
//   - text/html: a saved portal page, reduced to text first
//
// With ?weeks=N (N > 1) every event is expanded into N weekly occurrences.
// Text that matches nothing is not an error: the response carries an empty
// events array.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	res, ok := s.analyzeRequest(w, r)
	if !ok {
		return
	}
	events := res.Events
	if weeks := parseIntDefault(r.URL.Query().Get("weeks"), 1); weeks > 1 && len(events) > 0 {
		expanded, err := ics.RepeatWeekly(events, clampWeeks(weeks))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		events = expanded
	}
	writeJSON(w, http.StatusOK, parseResponse{
		Events:         events,
		Grammar:        res.Grammar,
		Anchor:         res.Anchor.Format(model.DateLayout),
		AnchorFromText: res.AnchorFromText,
		Truncated:      res.Truncated,
	})
}

// handleParseICS is /api/parse returning text/calendar.
//
// POST /api/parse.ics?weeks=15
//   - weeks: weekly repetitions, 1..26 (default config repeat_weeks)
func (s *Server) handleParseICS(w http.ResponseWriter, r *http.Request) {
	res, ok := s.analyzeRequest(w, r)
	if !ok {
		return
	}
	weeks := clampWeeks(parseIntDefault(r.URL.Query().Get("weeks"), s.cfg.RepeatWeeks))
	body := ics.Encode(res.Events, ics.EncodeOptions{RepeatWeeks: weeks, Scope: "api"})

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tkb.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// handleImport reads an iCalendar body back into events.
//
// POST /api/import (text/calendar)
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	events, err := ics.Decode(body, ics.DecodeOptions{Location: s.cfg.Location()})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, parseResponse{
		Events: events,
		Anchor: time.Now().In(s.cfg.Location()).Format(model.DateLayout),
	})
}

// analyzeRequest reads the timetable text from r and runs the parser. On
// failure it has already written the error response.
func (s *Server) analyzeRequest(w http.ResponseWriter, r *http.Request) (timetable.Result, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return timetable.Result{}, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return timetable.Result{}, false
	}

	text, err := requestText(r.Header.Get("Content-Type"), body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return timetable.Result{}, false
	}

	res := s.parser.Analyze(text)
	appLog.Info("api parse",
		"bytes", len(body),
		"events", len(res.Events),
		"grammar", res.Grammar,
		"blocks", res.Blocks,
		"truncated", res.Truncated,
	)
	return res, true
}

type parseRequest struct {
	Text *string `json:"text"`
}

var (
	errMissingText = errors.New(`request needs a string "text" field`)
	errNotUTF8     = errors.New("body is not valid UTF-8 text")
)

func requestText(contentType string, body []byte) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/json", "":
		var req parseRequest
		if err := json.Unmarshal(body, &req); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return "", errMissingText
			}
			return "", errors.New("invalid JSON body")
		}
		if req.Text == nil {
			return "", errMissingText
		}
		return *req.Text, nil

	default:
		if !utf8.Valid(body) {
			return "", errNotUTF8
		}
		if strings.Contains(mediaType, "html") {
			text, err := source.HTMLToText(body)
			if err != nil {
				return "", err
			}
			return text, nil
		}
		return string(body), nil
	}
}

// clampWeeks bounds a requested repetition count to 1..config.MaxRepeatWeeks.
func clampWeeks(n int) int {
	return max(1, min(n, config.MaxRepeatWeeks))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
