// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/performance"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/tenant"
	"github.com/tallmanjamie/civquest-go/internal/presentation/http/middleware"
)

// MapsHandlers serves the tenant's configured map list and its admin
// reload endpoint.
type MapsHandlers struct {
	tenantManager *tenant.Manager
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewMapsHandlers creates map handlers with injected dependencies
func NewMapsHandlers(tenantManager *tenant.Manager, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *MapsHandlers {
	return &MapsHandlers{
		tenantManager: tenantManager,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// GetMaps handles GET /api/v1/maps - returns the raw configured map
// list. Access flags are tenant configuration, not secrets; the
// resolve endpoint decides what the viewer may actually open.
func (h *MapsHandlers) GetMaps(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"maps": tenantCtx.Maps()})
}

// PostReloadMaps handles POST /api/v1/maps/reload - re-reads the map
// list from disk and invalidates cached sharing state for the tenant.
// Admin only: routed behind AdminOnlyMiddleware.
func (h *MapsHandlers) PostReloadMaps(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("post_reload_maps_request", tenantCtx.TenantID)
	defer marker.Complete()

	count, err := h.tenantManager.ReloadMaps(tenantCtx.TenantID)
	if err != nil {
		marker.SetError(err)
		h.logger.Tenant().Error("Map list reload failed", "error", err, "tenantId", tenantCtx.TenantID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Map list reload failed", "details": err.Error()})
		return
	}

	marker.SetSuccess(true)
	h.logger.Tenant().Info("Map list reloaded", "tenantId", tenantCtx.TenantID, "maps", count)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "maps": count})
}
