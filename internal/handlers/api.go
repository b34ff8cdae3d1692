package handlers

import (
	"net/http"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/arbor"
)

type APIHandler struct {
	backend   BackendHealthReporter
	documents interfaces.DocumentService
	audits    AuditReporter
	logger    arbor.ILogger
}

// NewAPIHandler creates the system handler. audits may be nil when maintenance is disabled.
func NewAPIHandler(backend BackendHealthReporter, documents interfaces.DocumentService, audits AuditReporter, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		backend:   backend,
		documents: documents,
		audits:    audits,
		logger:    logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
	})
}

// HealthHandler reports backend breaker state and index statistics.
// An open breaker is reported as degraded since chat still answers via fallback.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	backend := h.backend.Health()
	status := "ok"
	if backend.BreakerState != "closed" {
		status = "degraded"
	}

	response := map[string]interface{}{
		"status":  status,
		"version": common.GetVersion(),
		"backend": backend,
	}

	stats, err := h.documents.Stats(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Health check could not read index statistics")
		response["status"] = "degraded"
	} else {
		response["index"] = stats
	}

	if h.audits != nil {
		if report := h.audits.LastReport(); report != nil {
			response["audit"] = report
			if len(report.GhostChunks) > 0 && !report.Repaired {
				response["status"] = "degraded"
			}
		}
	}

	WriteJSON(w, http.StatusOK, response)
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
