// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tallmanjamie/civquest-go/internal/application/services"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/performance"
	"github.com/tallmanjamie/civquest-go/internal/presentation/http/middleware"
)

// VisibilityHandlers serves on-demand resolution passes over a tenant's
// configured map list.
type VisibilityHandlers struct {
	visibilityService *services.VisibilityService
	authService       *services.AuthService
	logger            *logging.ChanneledLogger
	perfTracker       *performance.Tracker
}

// NewVisibilityHandlers creates visibility handlers with injected dependencies
func NewVisibilityHandlers(
	visibilityService *services.VisibilityService,
	authService *services.AuthService,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *VisibilityHandlers {
	return &VisibilityHandlers{
		visibilityService: visibilityService,
		authService:       authService,
		logger:            logger,
		perfTracker:       perfTracker,
	}
}

// PostResolve handles POST /api/v1/visibility/resolve - runs one
// resolution pass for the viewer behind the bearer token (anonymous
// when absent) and returns the full result.
func (h *VisibilityHandlers) PostResolve(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("post_resolve_request", tenantCtx.TenantID)
	defer marker.Complete()

	token := bearerToken(c)
	viewer := h.authService.ViewerFromToken(token, tenantCtx)
	maps := tenantCtx.Maps()

	result := h.visibilityService.Resolve(c.Request.Context(), tenantCtx.TenantID, maps, viewer)

	accountID := h.authService.AccountIDFromToken(token, tenantCtx)
	if err := tenantCtx.AuditRepo().StoreResolutionPass(viewer, accountID, result, len(maps)); err != nil {
		h.logger.System().Warn("Resolution audit write failed", "error", err, "tenantId", tenantCtx.TenantID)
	}

	h.logger.System().Info("Resolution pass served",
		"tenantId", tenantCtx.TenantID,
		"hasSession", viewer.HasSession,
		"accessible", len(result.Accessible),
		"duration", time.Since(start))
	marker.SetSuccess(true)

	c.JSON(http.StatusOK, result)
}

// GetAuditSummary handles GET /api/v1/visibility/audit - admin view of
// resolution pass volume over the last day.
func (h *VisibilityHandlers) GetAuditSummary(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	count, err := tenantCtx.AuditRepo().CountPassesSince(since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read audit log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenantId":     tenantCtx.TenantID,
		"since":        since.UTC().Format(time.RFC3339),
		"passesServed": count,
	})
}
