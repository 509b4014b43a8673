// Operational HTTP handlers.
//
// Health probes and the admin cache surface: stats, explicit flush, and list
// warm-up. Prometheus metrics live on /metrics, mounted in the router.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/barinakhq/shelter-backend/internal/cache"
)

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Tags        Ops
// @Produce     json
// @Success     200 {object} map[string]string "{\"status\": \"ok\"}"
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"status": "ok"})
}

// HealthDB godoc
// @ID          healthDB
// @Summary     Readiness probe including the database
// @Tags        Ops
// @Produce     json
// @Success     200 {object} map[string]string "{\"status\": \"ok\"}"
// @Failure     503 {object} handlers.ErrorResponse "Database unreachable"
// @Router      /health/db [get]
func (h *Handlers) HealthDB(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "database unreachable")
		return
	}
	ok(c, http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// CacheStats godoc
// @ID          cacheStats
// @Summary     Cache effectiveness counters (admin)
// @Tags        Ops
// @Produce     json
// @Success     200 {object} cache.Stats
// @Router      /cache/stats [get]
func (h *Handlers) CacheStats(c *gin.Context) {
	ok(c, http.StatusOK, h.cache.Stats())
}

// CacheClear godoc
// @ID          cacheClear
// @Summary     Flush the animal caches (admin)
// @Tags        Ops
// @Produce     json
// @Success     200 {object} map[string]int "{\"cleared\": 12}"
// @Router      /cache/clear [delete]
func (h *Handlers) CacheClear(c *gin.Context) {
	n, err := h.cache.Invalidate(c.Request.Context(), cache.PatternAnimalLists)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	m, err := h.cache.Invalidate(c.Request.Context(), "animal:*")
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	h.cache.ResetStats()
	ok(c, http.StatusOK, gin.H{"cleared": n + m})
}

// CacheWarm godoc
// @ID          cacheWarm
// @Summary     Pre-fill the animal list cache (admin)
// @Tags        Ops
// @Produce     json
// @Success     200 {object} map[string]int "{\"animals\": 57}"
// @Router      /cache/warm [post]
func (h *Handlers) CacheWarm(c *gin.Context) {
	n, err := h.animalSvc.WarmListCache(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"animals": n})
}
