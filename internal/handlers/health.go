package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/techpulse/techpulse-backend/internal/catalog"
	"github.com/techpulse/techpulse-backend/internal/ingest"
)

type HealthHandler struct {
	store     *catalog.Store
	scheduler *ingest.Scheduler
	startedAt time.Time
}

func NewHealthHandler(store *catalog.Store, scheduler *ingest.Scheduler) *HealthHandler {
	return &HealthHandler{
		store:     store,
		scheduler: scheduler,
		startedAt: time.Now().UTC(),
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	RespondOK(c, gin.H{
		"status":          "ok",
		"cacheSize":       h.store.Len(),
		"lastFetchTime":   h.store.LastFetchTime(),
		"uptimeSeconds":   int(time.Since(h.startedAt).Seconds()),
		"refreshInFlight": h.scheduler.RefreshInFlight(),
	})
}
