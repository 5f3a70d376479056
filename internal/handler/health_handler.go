package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/blog-api/pkg/response"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	db    *sqlx.DB
	redis *redis.Client
}

// NewHealthHandler creates a health handler. The redis client may be nil when
// caching is disabled.
func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// Health godoc
// @Summary Liveness probe
// @Tags Ops
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"status": "ok"}, nil)
}

// Ready godoc
// @Summary Readiness probe
// @Description Checks database and cache connectivity
// @Tags Ops
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok"}
	status := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["redis"] = "ok"
		}
	}

	response.JSON(c, status, checks, nil)
}
