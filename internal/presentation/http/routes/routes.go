// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/tallmanjamie/civquest-go/internal/application/container"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/metrics"
	"github.com/tallmanjamie/civquest-go/internal/presentation/http/handlers"
	"github.com/tallmanjamie/civquest-go/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger, container.PerfTracker)
	visibilityHandlers := handlers.NewVisibilityHandlers(container.VisibilityService, container.AuthService, container.Logger, container.PerfTracker)
	mapsHandlers := handlers.NewMapsHandlers(container.TenantManager, container.Logger, container.PerfTracker)
	streamHandlers := handlers.NewStreamHandlers(container)
	multiTenantHandlers := handlers.NewMultiTenantHandlers(container.MultiTenantService, container.Logger, container.PerfTracker)
	healthHandlers := handlers.NewHealthHandlers(container)

	// Liveness and Prometheus scrape endpoints stay outside tenant scoping.
	r.GET("/health", healthHandlers.GetHealth)
	r.GET("/api/v1/health", healthHandlers.GetHealth)
	r.GET("/health/status", healthHandlers.GetStatus)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Public, non-tenant-specific admin routes for provisioning.
	tenantAPI := r.Group("/api/v1/tenant")
	{
		tenantAPI.POST("/provision", multiTenantHandlers.HandleProvisionTenant)
		tenantAPI.POST("/activation", multiTenantHandlers.HandleActivateTenant)
		tenantAPI.GET("/capacity", multiTenantHandlers.HandleGetCapacity)
	}

	// Fresh-install setup runs before any tenant is active.
	r.POST("/api/v1/setup/initialize", multiTenantHandlers.HandleSetupInitialize)

	// API routes with tenant middleware
	api := r.Group("/api/v1")
	api.Use(middleware.TenantMiddleware(container.TenantManager, container.PerfTracker))
	api.Use(middleware.DomainValidationMiddleware(container.TenantManager))
	{
		// Authentication and identity linking
		auth := api.Group("/auth")
		{
			auth.POST("/admin/login", authHandlers.PostAdminLogin)
			auth.POST("/register", authHandlers.PostRegister)
			auth.POST("/login", authHandlers.PostLogin)
			auth.GET("/status", authHandlers.GetAuthStatus)
			auth.POST("/identity/link", authHandlers.PostLinkIdentity)
			auth.POST("/identity/unlink", authHandlers.PostUnlinkIdentity)
		}

		// Visibility resolution
		visibility := api.Group("/visibility")
		{
			visibility.POST("/resolve", visibilityHandlers.PostResolve)
			visibility.GET("/stream", streamHandlers.GetStream)
			visibility.GET("/audit", authHandlers.AdminOnlyMiddleware(), visibilityHandlers.GetAuditSummary)
		}

		// Configured map list
		api.GET("/maps", mapsHandlers.GetMaps)
		api.POST("/maps/reload", authHandlers.AdminOnlyMiddleware(), mapsHandlers.PostReloadMaps)
	}

	return r
}
