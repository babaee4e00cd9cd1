package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"mppt_sweep/internal/export"
	"mppt_sweep/internal/repository"
	"mppt_sweep/internal/service"
)

const (
	statusOK       = "ok"
	statusStarted  = "started"
	statusAborting = "aborting"

	errListRuns  = "failed to list runs"
	errGetRun    = "failed to load run"
	errExportRun = "failed to export run"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Start a sweep
// @Description  Launches one I-V sweep; rejected with 409 while another run is active
// @Tags         sweep
// @Accept       json
// @Produce      json
// @Param        body  body   service.StartRequest  true  "Sweep request"
// @Success      202   {object}  map[string]string  "status, run_id"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/sweep/start [post]
// @Security     BearerAuth
func (h *Handler) startSweep(c *gin.Context) {
	var req service.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}

	runID, err := h.services.Sweeper.Start(req)
	if err != nil {
		var invalid *service.InvalidConfigError
		switch {
		case errors.Is(err, service.ErrSweepBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.As(err, &invalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logAndJSONError(c, http.StatusInternalServerError, "failed to start sweep", "sweep_start_failed", err)
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": statusStarted, "run_id": runID})
}

// @Summary      Abort the running sweep
// @Description  Cooperative: the in-flight point finishes before the run stops
// @Tags         sweep
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/sweep/abort [post]
// @Security     BearerAuth
func (h *Handler) abortSweep(c *gin.Context) {
	if err := h.services.Sweeper.Abort(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusAborting})
}

// @Summary      Sweep controller status
// @Tags         sweep
// @Produce      json
// @Success      200  {object}  service.Progress
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/sweep/status [get]
// @Security     BearerAuth
func (h *Handler) sweepStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Sweeper.Status())
}

// @Summary      List persisted runs
// @Tags         runs
// @Produce      json
// @Success      200  {array}   models.SweepRun
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/runs [get]
// @Security     BearerAuth
func (h *Handler) listRuns(c *gin.Context) {
	runs, err := h.services.Runs.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListRuns, "runs_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

// @Summary      Get one run with samples
// @Tags         runs
// @Produce      json
// @Param        id   path      string  true  "run id"
// @Success      200  {object}  models.SweepRun
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/runs/{id} [get]
// @Security     BearerAuth
func (h *Handler) getRun(c *gin.Context) {
	run, err := h.services.Runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errGetRun, "run_get_failed", err, "run_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, run)
}

// @Summary      Export a run as CSV
// @Tags         runs
// @Produce      text/csv
// @Param        id   path      string  true  "run id"
// @Success      200  {string}  string  "voltage,current,power rows"
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/runs/{id}/csv [get]
// @Security     BearerAuth
func (h *Handler) exportRunCSV(c *gin.Context) {
	run, err := h.services.Runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errExportRun, "run_export_failed", err, "run_id", c.Param("id"))
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", run.RunID+".csv"))
	if err := export.WriteCSV(c.Writer, run.Samples); err != nil && h.log != nil {
		h.log.Errorw("run_export_write_failed", "run_id", run.RunID, "err", err)
	}
}
