package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hellas-direct/intake-assistant/internal/middleware"
	"github.com/hellas-direct/intake-assistant/internal/model"
	"github.com/hellas-direct/intake-assistant/internal/store"
	"github.com/hellas-direct/intake-assistant/pkg/logger"
)

// IncidentHandler serves the operations dashboard's incident lookups.
type IncidentHandler struct {
	store  store.Gateway
	logger *logger.Logger
}

// NewIncidentHandler creates a new incident handler.
func NewIncidentHandler(gw store.Gateway, log *logger.Logger) *IncidentHandler {
	return &IncidentHandler{
		store:  gw,
		logger: log,
	}
}

// List handles GET /api/v1/incidents?registration_number=
func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reg := strings.TrimSpace(r.URL.Query().Get("registration_number"))

	if err := middleware.ValidateRegistrationNumber(reg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	incidents, err := h.store.ListIncidentsByRegistrationNumber(ctx, reg)
	if err != nil {
		h.logger.Error("failed to list incidents", zap.String("registration_number", reg), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list incidents")
		return
	}
	if incidents == nil {
		incidents = []model.Incident{}
	}

	writeJSON(w, http.StatusOK, &model.ListIncidentsResponse{
		Incidents: incidents,
		Total:     len(incidents),
	})
}

// Get handles GET /api/v1/incidents/{id}
func (h *IncidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := middleware.ValidateIncidentID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	inc, err := h.store.GetIncidentByID(ctx, id)
	if err != nil {
		h.logger.Error("failed to get incident", zap.String("incident_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get incident")
		return
	}
	if inc == nil {
		writeError(w, http.StatusNotFound, "incident not found")
		return
	}

	writeJSON(w, http.StatusOK, inc)
}
