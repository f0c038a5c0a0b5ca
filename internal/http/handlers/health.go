package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	environment string
	ping        func(context.Context) error
}

// NewHealthHandler reports liveness; ping (optional) checks storage reachability.
func NewHealthHandler(environment string, ping func(context.Context) error) *HealthHandler {
	return &HealthHandler{environment: environment, ping: ping}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":      "ok",
		"environment": h.environment,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			_ = c.Error(err)
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = "unreachable"
		} else {
			body["database"] = "ok"
		}
	}
	c.JSON(status, body)
}
