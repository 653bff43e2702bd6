package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetIndices godoc
// @Summary      Index comparison
// @Description  Brent merged with S&P 500, gold, DXY and TASI: raw rows, relative variation and correlation matrix
// @Tags         series
// @Produce      json
// @Param        X-Session-ID  header  string  false  "Caller session"
// @Param        rows          query   bool    false  "Include merged rows"  default(false)
// @Success      200  {object}  indices.Dataset
// @Failure      502  {object}  map[string]string
// @Router       /api/indices [get]
func (h *Handler) GetIndices(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-indices")
	defer span.End()

	ds, err := h.indices.Build(ctx, sessionFrom(c))
	if err != nil {
		writeError(c, span, err)
		return
	}
	if include, _ := strconv.ParseBool(c.Query("rows")); !include {
		trimmed := *ds
		trimmed.Rows = nil
		ds = &trimmed
	}
	c.JSON(http.StatusOK, ds)
}
