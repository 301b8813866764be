package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/justinas/alice"
	"github.com/rs/cors"

	"github.com/joescharf/hostel/internal/classify"
	"github.com/joescharf/hostel/internal/dashboard"
	"github.com/joescharf/hostel/internal/filter"
	"github.com/joescharf/hostel/internal/identity"
	"github.com/joescharf/hostel/internal/lifecycle"
	"github.com/joescharf/hostel/internal/llm"
	"github.com/joescharf/hostel/internal/models"
	"github.com/joescharf/hostel/internal/notify"
	"github.com/joescharf/hostel/internal/report"
	"github.com/joescharf/hostel/internal/stats"
	"github.com/joescharf/hostel/internal/store"
)

// DefaultTokenTTL is how long a login token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// Config wires a Server. Dashboard, Identity and JWTSecret are required.
type Config struct {
	Dashboard *dashboard.Service
	Identity  *identity.Provider
	// Hub serves /api/v1/events; nil disables the endpoint.
	Hub *notify.Hub
	// LLM is used by /api/v1/classify when set; keyword rules otherwise.
	LLM         *llm.Client
	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string
	Logger      *slog.Logger
}

// Server provides the REST API handlers.
type Server struct {
	dash     *dashboard.Service
	identity *identity.Provider
	hub      *notify.Hub
	llm      *llm.Client
	tokens   *tokenIssuer
	origins  []string
	logger   *slog.Logger
	now      func() time.Time
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		dash:     cfg.Dashboard,
		identity: cfg.Identity,
		hub:      cfg.Hub,
		llm:      cfg.LLM,
		tokens:   newTokenIssuer(cfg.JWTSecret, ttl),
		origins:  cfg.CORSOrigins,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.healthz)

	mux.HandleFunc("POST /api/v1/auth/login", s.login)
	mux.HandleFunc("POST /api/v1/auth/logout", s.withSession(s.logout))
	mux.HandleFunc("GET /api/v1/me", s.withSession(s.me))

	mux.HandleFunc("GET /api/v1/complaints", s.withSession(s.listComplaints))
	mux.HandleFunc("POST /api/v1/complaints", s.withSession(s.createComplaint))
	mux.HandleFunc("GET /api/v1/complaints/{id}", s.withSession(s.getComplaint))
	mux.HandleFunc("PUT /api/v1/complaints/{id}/status", s.withSession(s.updateStatus))
	mux.HandleFunc("PUT /api/v1/complaints/{id}/assignee", s.withSession(s.assignComplaint))
	mux.HandleFunc("POST /api/v1/complaints/{id}/feedback", s.withSession(s.submitFeedback))

	mux.HandleFunc("GET /api/v1/stats", s.withSession(s.getStats))
	mux.HandleFunc("GET /api/v1/staff", s.withSession(s.listStaff))
	mux.HandleFunc("GET /api/v1/report", s.withSession(s.getReport))
	mux.HandleFunc("POST /api/v1/classify", s.withSession(s.classifyComplaint))
	mux.HandleFunc("GET /api/v1/events", s.withSession(s.events))

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "If-None-Match"},
		ExposedHeaders:   []string{"ETag"},
		// Credentials only for explicit origins; an empty list allows any origin.
		AllowCredentials: len(s.origins) > 0,
	})

	return alice.New(s.recoverPanic, s.logRequest, c.Handler).Then(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps dashboard, lifecycle and store errors to a status code.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var verr *dashboard.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Error(), "fields": verr.Fields})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, identity.ErrMissingCredentials),
		errors.Is(err, lifecycle.ErrInvalidStatus),
		errors.Is(err, lifecycle.ErrInvalidRating),
		errors.Is(err, filter.ErrInvalidQuery),
		errors.Is(err, dashboard.ErrAmbiguousID):
		status = http.StatusBadRequest
	case errors.Is(err, dashboard.ErrUnauthenticated), errors.Is(err, identity.ErrSessionNotFound):
		status = http.StatusUnauthorized
	case errors.Is(err, dashboard.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lifecycle.ErrTransitionNotAllowed), errors.Is(err, lifecycle.ErrFeedbackNotAllowed):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.identity.Active(),
		"revision": s.dash.Revision(),
	})
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Session   *identity.Session `json:"session"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := models.ParseRole(strings.TrimSpace(req.Role))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.identity.Login(r.Context(), req.Email, req.Password, role)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	token, expires, err := s.tokens.issue(sess.ID, s.now())
	if err != nil {
		_ = s.identity.Logout(sess.ID)
		s.writeServiceError(w, err)
		return
	}

	s.logger.Info("user logged in", "user", sess.User.ID, "role", sess.User.Role)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, Session: sess})
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request, sess *identity.Session) {
	if err := s.identity.Logout(sess.ID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, _ *http.Request, sess *identity.Session) {
	writeJSON(w, http.StatusOK, sess)
}

// --- Complaints ---

func (s *Server) listComplaints(w http.ResponseWriter, r *http.Request, sess *identity.Session) {
	q := r.URL.Query()
	query := filter.Query{
		Search:   q.Get("q"),
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Tab:      filter.Tab(q.Get("tab")),
	}

	snap, err := s.dash.List(r.Context(), sess, query)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	etag := fmt.Sprintf(`"%d"`, snap.Revision)
	w.Header().Set("ETag", etag)
	w.Header().Set("Vary", "Authorization")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) createComplaint(w http.ResponseWriter, r *http.Request, sess *identity.Session) {
	var draft models.ComplaintDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	c, err := s.dash.Submit(r.Context(), sess, draft)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) getComplaint(w http.ResponseWriter, r *http.Request, sess *identity.Session) {
	c, err := s.dash.Get(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request, sess *identity.Session) {
	var body struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	status, err := models.ParseStatus(strings.TrimSpace(body.Status))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.dash.UpdateStatus(r.Context(), sess, r.PathValue("id"), status)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) assignComplaint(w http.ResponseWriter, r *http.Request, sess *identity.Session) {
	var body struct {
		Assignee string `json:"assignee"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	c, err := s.dash.Assign(r.Context(), sess, r.PathValue("id"), body.Assignee)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) submitFeedback(w http.ResponseWriter, r *http.Request, sess *identity.Session) {
	var body struct {
		Rating   int    `json:"rating"`
		Feedback string `json:"feedback"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	c, err := s.dash.SubmitFeedback(r.Context(), sess, r.PathValue("id"), body.Rating, body.Feedback)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// --- Stats, staff, report ---

type statsResponse struct {
	Stats stats.Stats  `json:"stats"`
	Cards []stats.Card `json:"cards"`
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request, sess *identity.Session) {
	st, err := s.dash.Stats(r.Context(), sess)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Stats: st, Cards: st.Cards(filter.ViewFor(sess.User.Role))})
}

func (s *Server) listStaff(w http.ResponseWriter, _ *http.Request, sess *identity.Session) {
	staff, err := s.dash.Staff(sess)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, staff)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request, sess *identity.Session) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(report.FormatMarkdown)
	}
	format, err := report.ParseFormat(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	complaints, st, err := s.dash.Export(r.Context(), sess)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if err := report.New(complaints, st, s.now()).Write(w, format); err != nil {
		s.logger.Error("write report", "format", format, "error", err)
	}
}

// --- Classify ---

type classifyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type classifyResponse struct {
	Category models.ComplaintCategory `json:"category"`
	Priority models.ComplaintPriority `json:"priority"`
	Assignee string                   `json:"assignee,omitempty"`
	Reason   string                   `json:"reason,omitempty"`
	Source   string                   `json:"source"`
}

func (s *Server) classifyComplaint(w http.ResponseWriter, r *http.Request, sess *identity.Session) {
	var req classifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "title or description is required")
		return
	}

	if s.llm != nil {
		// Students may not read the staff roster; the model then picks no assignee.
		staff, _ := s.dash.Staff(sess)
		result, err := s.llm.ClassifyComplaint(r.Context(), req.Title, req.Description, staff)
		if err == nil {
			writeJSON(w, http.StatusOK, classifyResponse{
				Category: result.Category,
				Priority: result.Priority,
				Assignee: result.Assignee,
				Reason:   result.Reason,
				Source:   "llm",
			})
			return
		}
		s.logger.Warn("llm classification failed, using keywords", "error", err)
	}

	sug := classify.Suggest(req.Title, req.Description)
	writeJSON(w, http.StatusOK, classifyResponse{Category: sug.Category, Priority: sug.Priority, Source: "keywords"})
}

// --- Events ---

func (s *Server) events(w http.ResponseWriter, r *http.Request, sess *identity.Session) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "live events are disabled")
		return
	}
	s.hub.ServeWS(w, r, sess.User)
}
