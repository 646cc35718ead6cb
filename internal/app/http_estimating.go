package app

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"eagleeye/api/internal/rbac"
	"eagleeye/api/internal/store"
)

func (s *HTTPServer) estimatingRoutes(r chi.Router) {
	r.Route("/api/projects", func(r chi.Router) {
		r.Get("/", s.guard(rbac.ActionRead, s.handleListProjects))
		r.Post("/", s.guard(rbac.ActionWrite, s.handleCreateProject))
		r.Get("/{id}", s.guard(rbac.ActionRead, s.handleGetProject))
		r.Put("/{id}", s.guard(rbac.ActionWrite, s.handleUpdateProject))
		r.Delete("/{id}", s.guard(rbac.ActionWrite, s.handleDeleteProject))
	})

	r.Route("/api/estimates", func(r chi.Router) {
		r.Get("/", s.guard(rbac.ActionRead, s.handleListEstimates))
		r.Post("/", s.guard(rbac.ActionWrite, s.handleCreateEstimate))
		r.Get("/{id}", s.guard(rbac.ActionRead, s.handleGetEstimate))
		r.Put("/{id}", s.guard(rbac.ActionWrite, s.handleUpdateEstimate))
		r.Delete("/{id}", s.guard(rbac.ActionWrite, s.handleDeleteEstimate))
		r.Post("/{id}/line-items", s.guard(rbac.ActionWrite, s.handleAddLineItem))
	})

	r.Route("/api/materials", func(r chi.Router) {
		r.Get("/", s.guard(rbac.ActionRead, s.handleListMaterials))
		r.Post("/", s.guard(rbac.ActionWrite, s.handleCreateMaterial))
		r.Get("/categories", s.guard(rbac.ActionRead, s.handleMaterialCategories))
		r.Get("/{id}", s.guard(rbac.ActionRead, s.handleGetMaterial))
		r.Put("/{id}", s.guard(rbac.ActionWrite, s.handleUpdateMaterial))
		r.Post("/{id}/prices", s.guard(rbac.ActionWrite, s.handleAddMaterialPrice))
	})
}

func (s *HTTPServer) handleListProjects(w http.ResponseWriter, r *http.Request, session Session) {
	query := r.URL.Query()
	projects, err := s.service.ListProjects(r.Context(), store.ProjectFilter{
		Status: strings.ToUpper(strings.TrimSpace(query.Get("status"))),
		LeadID: strings.TrimSpace(query.Get("leadId")),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": projects})
}

func (s *HTTPServer) handleCreateProject(w http.ResponseWriter, r *http.Request, session Session) {
	var body ProjectInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	project, err := s.service.CreateProject(r.Context(), session, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *HTTPServer) handleGetProject(w http.ResponseWriter, r *http.Request, session Session) {
	project, err := s.service.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *HTTPServer) handleUpdateProject(w http.ResponseWriter, r *http.Request, session Session) {
	var body ProjectUpdate
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	project, err := s.service.UpdateProject(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *HTTPServer) handleDeleteProject(w http.ResponseWriter, r *http.Request, session Session) {
	if err := s.service.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleListEstimates(w http.ResponseWriter, r *http.Request, session Session) {
	estimates, err := s.service.ListEstimates(r.Context(), r.URL.Query().Get("projectId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": estimates})
}

func (s *HTTPServer) handleCreateEstimate(w http.ResponseWriter, r *http.Request, session Session) {
	var body EstimateInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	estimate, err := s.service.CreateEstimate(r.Context(), session, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, estimate)
}

func (s *HTTPServer) handleGetEstimate(w http.ResponseWriter, r *http.Request, session Session) {
	estimate, err := s.service.GetEstimate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, estimate)
}

func (s *HTTPServer) handleUpdateEstimate(w http.ResponseWriter, r *http.Request, session Session) {
	var body EstimateUpdate
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	estimate, err := s.service.UpdateEstimate(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, estimate)
}

func (s *HTTPServer) handleDeleteEstimate(w http.ResponseWriter, r *http.Request, session Session) {
	if err := s.service.DeleteEstimate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleAddLineItem(w http.ResponseWriter, r *http.Request, session Session) {
	var body LineItemInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	estimate, err := s.service.AddEstimateLineItem(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, estimate)
}

func (s *HTTPServer) handleListMaterials(w http.ResponseWriter, r *http.Request, session Session) {
	query := r.URL.Query()
	filter := store.MaterialFilter{
		Category: strings.TrimSpace(query.Get("category")),
		Search:   strings.TrimSpace(query.Get("search")),
	}
	if raw := strings.TrimSpace(query.Get("green")); raw != "" {
		green, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "green must be a boolean", nil)
			return
		}
		filter.Green = &green
	}
	materials, err := s.service.ListMaterials(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": materials})
}

func (s *HTTPServer) handleMaterialCategories(w http.ResponseWriter, r *http.Request, session Session) {
	categories, err := s.service.ListMaterialCategories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": categories})
}

func (s *HTTPServer) handleCreateMaterial(w http.ResponseWriter, r *http.Request, session Session) {
	var body MaterialInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	material, err := s.service.CreateMaterial(r.Context(), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, material)
}

func (s *HTTPServer) handleGetMaterial(w http.ResponseWriter, r *http.Request, session Session) {
	material, err := s.service.GetMaterial(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, material)
}

func (s *HTTPServer) handleUpdateMaterial(w http.ResponseWriter, r *http.Request, session Session) {
	var body MaterialUpdate
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	material, err := s.service.UpdateMaterial(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, material)
}

func (s *HTTPServer) handleAddMaterialPrice(w http.ResponseWriter, r *http.Request, session Session) {
	var body MaterialPriceInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	price, err := s.service.AddMaterialPrice(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, price)
}
