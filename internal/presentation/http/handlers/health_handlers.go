// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tallmanjamie/civquest-go/internal/application/container"
)

// HealthHandlers serves liveness and operational status endpoints.
type HealthHandlers struct {
	container *container.Container
	startedAt time.Time
}

// NewHealthHandlers creates health handlers
func NewHealthHandlers(container *container.Container) *HealthHandlers {
	return &HealthHandlers{
		container: container,
		startedAt: time.Now(),
	}
}

// GetHealth handles GET /health - liveness plus a fresh-install hint
// for clients that need to route to the setup flow.
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	setupNeeded := false
	registry := h.container.TenantManager.GetDetector().GetRegistry()
	if registry != nil {
		if info, exists := registry.Tenants["default"]; exists && info.Status == "inactive" {
			setupNeeded = true
		}
	}

	activeTenants, err := h.container.TenantManager.GetActiveTenantCount()
	if err != nil {
		activeTenants = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptime":        time.Since(h.startedAt).Round(time.Second).String(),
		"activeTenants": activeTenants,
		"setupNeeded":   setupNeeded,
	})
}

// GetStatus handles GET /health/status - operational detail for
// monitoring: performance alerts and stream load.
func (h *HealthHandlers) GetStatus(c *gin.Context) {
	alerts := h.container.PerfTracker.GetAlerts()

	alertSummaries := make([]gin.H, 0, len(alerts))
	for _, alert := range alerts {
		alertSummaries = append(alertSummaries, gin.H{
			"operation": alert.Operation,
			"severity":  alert.Severity,
			"message":   alert.Message,
			"tenantId":  alert.TenantID,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"trackerUptime": h.container.PerfTracker.Uptime().Round(time.Second).String(),
		"alerts":        alertSummaries,
	})
}
