package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/techpulse/techpulse-backend/internal/analytics"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
)

type InsightsHandler struct {
	log    *logger.Logger
	engine *analytics.Engine
}

func NewInsightsHandler(log *logger.Logger, engine *analytics.Engine) *InsightsHandler {
	return &InsightsHandler{
		log:    log.With("handler", "InsightsHandler"),
		engine: engine,
	}
}

func (h *InsightsHandler) Technologies(c *gin.Context) {
	window := parseIntQuery(c, "timeWindow", 0)
	items := h.engine.TechnologyMomentumList(window)
	RespondOK(c, ListEnvelope{
		Items:      items,
		Total:      len(items),
		LastUpdate: h.engine.GeneratedAt(),
	})
}

func (h *InsightsHandler) Industries(c *gin.Context) {
	window := parseIntQuery(c, "timeWindow", 0)
	items := h.engine.IndustryGrowthList(window)
	RespondOK(c, ListEnvelope{
		Items:      items,
		Total:      len(items),
		LastUpdate: h.engine.GeneratedAt(),
	})
}

func (h *InsightsHandler) Emerging(c *gin.Context) {
	window := parseIntQuery(c, "timeWindow", 0)
	items := h.engine.EmergingList(window)
	RespondOK(c, ListEnvelope{
		Items:      items,
		Total:      len(items),
		LastUpdate: h.engine.GeneratedAt(),
	})
}

func (h *InsightsHandler) Predictions(c *gin.Context) {
	items := h.engine.Predictions(c.Request.Context())
	RespondOK(c, ListEnvelope{
		Items:      items,
		Total:      len(items),
		LastUpdate: h.engine.GeneratedAt(),
	})
}

func (h *InsightsHandler) LeaderQuotes(c *gin.Context) {
	items := h.engine.LeaderQuotes()
	RespondOK(c, ListEnvelope{
		Items:      items,
		Total:      len(items),
		LastUpdate: h.engine.GeneratedAt(),
	})
}

func (h *InsightsHandler) MetaNarrative(c *gin.Context) {
	RespondOK(c, h.engine.MetaNarrative(c.Request.Context()))
}

func (h *InsightsHandler) CombinedSignal(c *gin.Context) {
	tech := strings.TrimSpace(c.Query("technology"))
	signal, err := h.engine.CombinedSignal(tech)
	if errors.Is(err, analytics.ErrTechnologyRequired) {
		RespondError(c, http.StatusBadRequest, "technology_required", err)
		return
	}
	if err != nil {
		h.log.Error("Combined signal failed", "technology", tech, "error", err.Error())
		RespondError(c, http.StatusInternalServerError, "combined_signal_failed", err)
		return
	}
	RespondOK(c, signal)
}
