package handler

import (
	"net/http"

	"crude-outlook/internal/config"
	"crude-outlook/internal/domain"
	"crude-outlook/internal/report"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ForecastRequest is the body of POST /api/pages/{page}/forecast. A missing horizon means the page default.
type ForecastRequest struct {
	Horizon      *int     `json:"horizon,omitempty"`
	Trees        *int     `json:"trees,omitempty"`
	LearningRate *float64 `json:"learning_rate,omitempty"`
	MaxDepth     *int     `json:"max_depth,omitempty"`
	LagStrategy  string   `json:"lag_strategy,omitempty" binding:"omitempty,oneof=recursive hold"`
	Origin       string   `json:"origin,omitempty" binding:"omitempty,oneof=last_observation wall_clock"`
}

func (r ForecastRequest) overrides() config.Overrides {
	o := config.Overrides{Trees: r.Trees, LearningRate: r.LearningRate, MaxDepth: r.MaxDepth}
	if r.LagStrategy != "" {
		s := domain.LagStrategy(r.LagStrategy)
		o.LagStrategy = &s
	}
	if r.Origin != "" {
		origin := domain.Origin(r.Origin)
		o.Origin = &origin
	}
	return o
}

// ListPages godoc
// @Summary      List forecast pages
// @Description  Returns every page preset with its horizon bounds and default hyperparameters
// @Tags         forecast
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/pages [get]
func (h *Handler) ListPages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pages": h.pages.List()})
}

// Forecast godoc
// @Summary      Run a forecast
// @Description  Loads the series, trains the page model, evaluates it on the last H days and projects H days ahead
// @Tags         forecast
// @Accept       json
// @Produce      json
// @Param        page          path    string           true   "Page name (modelo, sugestao, xgboost)"
// @Param        X-Session-ID  header  string           false  "Caller session"
// @Param        format        query   string           false  "json or text"  default(json)
// @Param        body          body    ForecastRequest  false  "Horizon and hyperparameter overrides"
// @Success      200  {object}  report.Report
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/pages/{page}/forecast [post]
func (h *Handler) Forecast(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.forecast")
	defer span.End()

	session := sessionFrom(c)
	span.SetAttributes(attribute.String("page", c.Param("page")), attribute.String("session", session))

	page, err := h.pages.Get(c.Param("page"))
	if err != nil {
		writeError(c, span, err)
		return
	}

	var body ForecastRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}
	horizon := page.DefaultHorizon
	if body.Horizon != nil {
		horizon = *body.Horizon
	}

	req, err := page.Request(session, horizon, body.overrides())
	if err != nil {
		writeError(c, span, err)
		return
	}

	res, err := h.forecaster.Run(ctx, req)
	if err != nil {
		writeError(c, span, err)
		return
	}

	rep := report.Build(res)
	if c.Query("format") == "text" {
		c.Status(http.StatusOK)
		c.Header("Content-Type", "text/plain; charset=utf-8")
		if err := report.RenderText(c.Writer, rep); err != nil {
			span.RecordError(err)
		}
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Refresh godoc
// @Summary      Update data
// @Description  Clears every cached series and model of the caller's session
// @Tags         forecast
// @Produce      json
// @Param        X-Session-ID  header  string  false  "Caller session"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.refresh")
	defer span.End()

	session := sessionFrom(c)
	cleared, err := h.forecaster.Refresh(ctx, session)
	if err != nil {
		writeError(c, span, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "cleared": cleared})
}
