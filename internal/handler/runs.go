package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListRuns godoc
// @Summary      Recent forecast runs
// @Description  Returns the most recent persisted runs of the caller's session
// @Tags         forecast
// @Produce      json
// @Param        X-Session-ID  header  string  false  "Caller session"
// @Param        limit         query   int     false  "Number of runs (default 20, max 200)"  default(20)
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /api/runs [get]
func (h *Handler) ListRuns(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-runs")
	defer span.End()

	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history requires DATABASE_URL"})
		return
	}

	limit := 20
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	session := sessionFrom(c)
	runs, err := h.runs.ListRuns(ctx, session, limit)
	if err != nil {
		writeError(c, span, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "runs": runs})
}
