package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/http/response"
	"github.com/openlegis/openlegis-backend/internal/ingestion/orchestrator"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
	"github.com/openlegis/openlegis-backend/internal/pkg/errs"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
	"github.com/openlegis/openlegis-backend/internal/services"
)

type IngestHandler struct {
	ingest services.IngestService
	log    *logger.Logger
}

func NewIngestHandler(ingest services.IngestService, baseLog *logger.Logger) *IngestHandler {
	return &IngestHandler{
		ingest: ingest,
		log:    baseLog.With("handler", "IngestHandler"),
	}
}

type startRunRequest struct {
	SourceKind string            `json:"source_kind" binding:"required"`
	Limit      int               `json:"limit"`
	Scope      map[string]string `json:"scope"`
}

// StartRun kicks off an ingestion run for one source. The run itself is
// durable; the response only carries the workflow id to poll with.
func (h *IngestHandler) StartRun(c *gin.Context) {
	var req startRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	params := orchestrator.Params{
		Trigger: types.TriggerManual,
		Limit:   req.Limit,
		Scope:   req.Scope,
	}
	workflowID, err := h.ingest.Start(c.Request.Context(), source.Kind(req.SourceKind), params)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrRunActive):
			response.RespondError(c, http.StatusConflict, "run_active", err)
		case errors.Is(err, errs.ErrInvalidArgument):
			response.RespondError(c, http.StatusBadRequest, "invalid_source_kind", err)
		default:
			h.log.Error("start run failed", "source_kind", req.SourceKind, "error", err)
			response.RespondError(c, http.StatusInternalServerError, "start_failed", err)
		}
		return
	}
	response.RespondAccepted(c, gin.H{"workflow_id": workflowID})
}

func (h *IngestHandler) ListRuns(c *gin.Context) {
	kind := c.Query("source_kind")
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = parsed
	}
	runs, err := h.ingest.ListRuns(c.Request.Context(), kind, limit)
	if err != nil {
		h.log.Error("list runs failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}

func (h *IngestHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	run, err := h.ingest.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "run_not_found", err)
			return
		}
		h.log.Error("get run failed", "run_id", id.String(), "error", err)
		response.RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}
