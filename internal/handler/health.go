package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Reports liveness, the number of forecast pages served and whether run history is persisted
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	pages := 0
	if h.pages != nil {
		pages = len(h.pages.List())
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"pages":       pages,
		"run_history": h.runs != nil,
	})
}
