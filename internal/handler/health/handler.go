package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerState reports the backend circuit breaker state.
type BreakerState interface {
	State() string
}

type Handler struct {
	store   Pinger
	breaker BreakerState
	metrics gin.HandlerFunc
	now     func() time.Time
}

func NewHandler(store Pinger, breaker BreakerState, metrics gin.HandlerFunc) *Handler {
	return &Handler{store: store, breaker: breaker, metrics: metrics, now: time.Now}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
		if h.metrics != nil {
			health.GET("/metrics", h.metrics)
		}
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "time": h.now()})
}

// ReadinessCheck fails when the session store is unreachable. An open
// breaker is reported but does not fail readiness.
func (h *Handler) ReadinessCheck(c *gin.Context) {
	body := gin.H{"status": "ready", "time": h.now()}
	if h.breaker != nil {
		body["backend"] = h.breaker.State()
	}
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			body["status"] = "not ready"
			body["reason"] = "session store unavailable"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
