package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eagleeye/api/internal/auth"
	"eagleeye/api/internal/export"
	"eagleeye/api/internal/rbac"
	"eagleeye/api/internal/search"
	"eagleeye/api/internal/store"
	"github.com/go-chi/chi/v5"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	router     chi.Router
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	s := &HTTPServer{service: service, corsOrigin: corsOrigin}
	s.router = s.routes()
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.withMiddleware)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/api/health", s.handleHealth)
	r.Head("/api/health", s.handleHealth)
	r.Get("/api/ready", s.handleReady)
	r.Head("/api/ready", s.handleReady)
	if recorder := s.service.Metrics(); recorder != nil {
		r.Handle("/metrics", recorder.Handler())
	}

	r.Post("/api/auth/sign-in", s.handleSignIn)
	r.Get("/api/session", s.handleSession)

	// Public lead form
	r.Post("/api/capture", s.handleCapture)
	r.Get("/api/capture/recent", s.guard(rbac.ActionRead, s.handleRecentCaptures))
	r.Post("/api/exports/{kind}", s.guard(rbac.ActionRead, s.handleExport))

	r.Route("/api/marketing", func(r chi.Router) {
		r.Get("/stats", s.guard(rbac.ActionRead, s.handleStats))

		r.Get("/campaigns", s.guard(rbac.ActionRead, s.handleListCampaigns))
		r.Post("/campaigns", s.guard(rbac.ActionWrite, s.handleCreateCampaign))
		r.Put("/campaigns/{id}", s.guard(rbac.ActionWrite, s.handleUpdateCampaign))
		r.Delete("/campaigns/{id}", s.guard(rbac.ActionWrite, s.handleDeleteCampaign))

		r.Get("/leads", s.guard(rbac.ActionRead, s.handleListLeads))
		r.Post("/leads", s.guard(rbac.ActionWrite, s.handleCreateLead))
		r.Get("/leads/search", s.guard(rbac.ActionRead, s.handleSearchLeads))
		r.Get("/leads/{id}", s.guard(rbac.ActionRead, s.handleGetLead))
		r.Put("/leads/{id}", s.guard(rbac.ActionWrite, s.handleUpdateLead))
		r.Get("/leads/{id}/activities", s.guard(rbac.ActionRead, s.handleListActivities))
		r.Post("/leads/{id}/activities", s.guard(rbac.ActionWrite, s.handleAddActivity))

		r.Get("/neighborhoods", s.guard(rbac.ActionRead, s.handleListNeighborhoods))
		r.Post("/neighborhoods/recompute", s.guard(rbac.ActionAdmin, s.handleRecompute))
		r.Get("/neighborhoods/{neighborhood}/{city}", s.guard(rbac.ActionRead, s.handleGetNeighborhood))

		r.Get("/budget-plans", s.guard(rbac.ActionRead, s.handleListBudgetPlans))
		r.Post("/budget-plans", s.guard(rbac.ActionWrite, s.handleCreateBudgetPlan))
	})

	s.estimatingRoutes(r)
	return r
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, session Session)

// guard resolves the bearer session and checks the role before calling next.
func (s *HTTPServer) guard(action rbac.Action, next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		if !s.service.Can(session.Role, action) {
			s.forbid(w, r, session, string(action))
			return
		}
		next(w, r, session)
	}
}

// forbid writes a 403 Forbidden response and logs the denial
func (s *HTTPServer) forbid(w http.ResponseWriter, r *http.Request, session Session, action string) {
	log.Printf("authz: denied user=%s role=%s action=%s path=%s", session.UserID, session.Role, action, r.URL.Path)
	writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	// Check database connectivity
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	// Captures still land in the database when Redis is down.
	if configured, err := s.service.PingCapture(ctx); configured {
		checks["redis"] = map[string]any{"status": "ok"}
		if err != nil {
			if status == "ready" {
				status = "degraded"
			}
			checks["redis"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     statusCode == http.StatusOK,
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
		return
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"userId":        session.UserID,
		"userName":      session.UserName,
		"email":         session.Email,
		"role":          session.Role,
	})
}

func (s *HTTPServer) handleCapture(w http.ResponseWriter, r *http.Request) {
	var body CaptureInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	lead, err := s.service.CaptureLead(r.Context(), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": lead.ID})
}

func (s *HTTPServer) handleRecentCaptures(w http.ResponseWriter, r *http.Request, session Session) {
	entries, err := s.service.RecentCaptures(r.Context(), r.URL.Query().Get("source"), queryInt(r, "limit", 50))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, session Session) {
	result, err := s.service.Export(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request, session Session) {
	overview, err := s.service.Overview(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *HTTPServer) handleListCampaigns(w http.ResponseWriter, r *http.Request, session Session) {
	query := r.URL.Query()
	campaigns, err := s.service.ListCampaigns(r.Context(), store.CampaignFilter{
		Platform: strings.ToUpper(strings.TrimSpace(query.Get("platform"))),
		Status:   strings.ToUpper(strings.TrimSpace(query.Get("status"))),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": campaigns})
}

func (s *HTTPServer) handleCreateCampaign(w http.ResponseWriter, r *http.Request, session Session) {
	var body CampaignInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	campaign, err := s.service.CreateCampaign(r.Context(), session, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (s *HTTPServer) handleUpdateCampaign(w http.ResponseWriter, r *http.Request, session Session) {
	var body CampaignUpdate
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	campaign, err := s.service.UpdateCampaign(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (s *HTTPServer) handleDeleteCampaign(w http.ResponseWriter, r *http.Request, session Session) {
	if err := s.service.DeleteCampaign(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleListLeads(w http.ResponseWriter, r *http.Request, session Session) {
	query := r.URL.Query()
	leads, err := s.service.ListLeads(r.Context(), store.LeadFilter{
		Source:       strings.ToUpper(strings.TrimSpace(query.Get("source"))),
		Status:       strings.ToUpper(strings.TrimSpace(query.Get("status"))),
		Neighborhood: strings.TrimSpace(query.Get("neighborhood")),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": leads})
}

func (s *HTTPServer) handleCreateLead(w http.ResponseWriter, r *http.Request, session Session) {
	var body LeadInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	lead, err := s.service.CreateLead(r.Context(), session, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (s *HTTPServer) handleSearchLeads(w http.ResponseWriter, r *http.Request, session Session) {
	query := r.URL.Query()
	response := s.service.SearchLeads(r.Context(), search.Query{
		Text:         strings.TrimSpace(query.Get("q")),
		Source:       strings.ToUpper(strings.TrimSpace(query.Get("source"))),
		Status:       strings.ToUpper(strings.TrimSpace(query.Get("status"))),
		Neighborhood: strings.TrimSpace(query.Get("neighborhood")),
		Limit:        queryInt(r, "limit", 20),
		Offset:       queryInt(r, "offset", 0),
	})
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleGetLead(w http.ResponseWriter, r *http.Request, session Session) {
	lead, err := s.service.GetLead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *HTTPServer) handleUpdateLead(w http.ResponseWriter, r *http.Request, session Session) {
	var body LeadUpdate
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	lead, err := s.service.UpdateLead(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *HTTPServer) handleListActivities(w http.ResponseWriter, r *http.Request, session Session) {
	items, err := s.service.ListLeadActivities(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *HTTPServer) handleAddActivity(w http.ResponseWriter, r *http.Request, session Session) {
	var body ActivityInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	activity, err := s.service.AddLeadActivity(r.Context(), session, chi.URLParam(r, "id"), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, activity)
}

func (s *HTTPServer) handleListNeighborhoods(w http.ResponseWriter, r *http.Request, session Session) {
	rows, err := s.service.ListNeighborhoods(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (s *HTTPServer) handleGetNeighborhood(w http.ResponseWriter, r *http.Request, session Session) {
	row, err := s.service.GetNeighborhood(r.Context(),
		pathParam(r, "neighborhood"),
		pathParam(r, "city"),
		r.URL.Query().Get("state"),
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *HTTPServer) handleRecompute(w http.ResponseWriter, r *http.Request, session Session) {
	var body RecomputeInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	row, err := s.service.RecomputeNeighborhood(r.Context(), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *HTTPServer) handleListBudgetPlans(w http.ResponseWriter, r *http.Request, session Session) {
	plans, err := s.service.ListBudgetPlans(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": plans})
}

func (s *HTTPServer) handleCreateBudgetPlan(w http.ResponseWriter, r *http.Request, session Session) {
	var body BudgetPlanInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	plan, err := s.service.CreateBudgetPlan(r.Context(), session, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		if r.Method == http.MethodOptions {
			writeJSON(writer, http.StatusNoContent, map[string]any{})
		} else {
			next.ServeHTTP(writer, r)
		}

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		s.service.Metrics().ObserveRequest(r.Method, route, writer.status)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","route":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			route,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status == http.StatusInternalServerError {
		log.Printf("api: %v", err)
	}
	writeError(w, status, code, message, details)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, store.ErrInvalidReference) {
		return http.StatusUnprocessableEntity, "INVALID_REFERENCE", "Referenced record does not exist", nil
	}
	if errors.Is(err, store.ErrDuplicate) {
		return http.StatusConflict, "DUPLICATE", "Record already exists", nil
	}
	if errors.Is(err, export.ErrUnavailable) {
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export storage not configured", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// pathParam returns the decoded route parameter. chi matches on RawPath when
// it is set, and only then are the params still escaped.
func pathParam(r *http.Request, name string) string {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value
	}
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}

func queryInt(r *http.Request, name string, fallback int) int {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
