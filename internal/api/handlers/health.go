package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	HealthCheck() error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func() error

func (f CheckFunc) HealthCheck() error { return f() }

type HealthHandler struct {
	checks map[string]Checker
}

func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// GetHealth returns basic health status - always returns 200 if server is running
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"service": "gridiron-sim",
	})
}

// GetReady returns 200 only when every dependency check passes.
func (h *HealthHandler) GetReady(c *gin.Context) {
	status := make(map[string]string, len(h.checks))
	ready := true
	for name, check := range h.checks {
		if err := check.HealthCheck(); err != nil {
			status[name] = err.Error()
			ready = false
		} else {
			status[name] = "ok"
		}
	}

	if ready {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": status})
	} else {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": status})
	}
}

// PingCheck adapts a context-aware ping to Checker with a short timeout.
func PingCheck(ping func(ctx context.Context) error) Checker {
	return CheckFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return ping(ctx)
	})
}
