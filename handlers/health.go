package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Dzhud/issue-tracker/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Pinger is any dependency that can report its own availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RegisterHealth mounts /health (liveness) and /ready (readiness). /ready
// answers 200 only when every dependency pings within timeout.
func RegisterHealth(r gin.IRouter, deps map[string]Pinger, timeout time.Duration) {
	startTime := time.Now()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		ready := true
		status := make(map[string]bool, len(deps))
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				logger.Warnf("readiness: %s unavailable: %v", name, err)
				status[name] = false
				ready = false
				continue
			}
			status[name] = true
		}

		uptime := time.Since(startTime).Round(time.Second).String()
		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": status, "uptime": uptime})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": status, "uptime": uptime})
	})
}
