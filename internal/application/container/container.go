// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/tallmanjamie/civquest-go/internal/application/services"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/arcgis"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/email"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/messaging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/performance"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/tenant"
	"github.com/tallmanjamie/civquest-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services (stateless singletons)
	AuthService        *services.AuthService
	VisibilityService  *services.VisibilityService
	MultiTenantService *services.MultiTenantService
	ResolverRegistry   *services.ResolverRegistry

	// Infrastructure Dependencies
	TenantManager *tenant.Manager
	ArcGISClient  *arcgis.Client
	Broadcaster   *messaging.VisibilityBroadcaster
	Logger        *logging.ChanneledLogger
	PerfTracker   *performance.Tracker
}

// NewContainer creates and wires all singleton services
func NewContainer(tenantManager *tenant.Manager, logger *logging.ChanneledLogger) *Container {
	perfTracker := performance.NewTracker(nil)

	arcgisClient := arcgis.NewClient(config.ArcGISPortalURL, tenantManager.GetSharingCache(), logger)
	broadcaster := messaging.NewVisibilityBroadcaster(logger)

	visibilityService := services.NewVisibilityService(arcgisClient, arcgisClient, logger, perfTracker)
	resolverRegistry := services.NewResolverRegistry(visibilityService, broadcaster)

	// The email service is optional: without a Resend API key tenant
	// provisioning still works, the activation link just has to be
	// delivered out of band.
	emailService, err := email.NewService()
	if err != nil {
		logger.Startup().Warn("Email service unavailable, activation emails disabled", "error", err.Error())
	}

	return &Container{
		AuthService:        services.NewAuthService(logger, perfTracker),
		VisibilityService:  visibilityService,
		MultiTenantService: services.NewMultiTenantService(tenantManager, emailService, logger, perfTracker),
		ResolverRegistry:   resolverRegistry,

		TenantManager: tenantManager,
		ArcGISClient:  arcgisClient,
		Broadcaster:   broadcaster,
		Logger:        logger,
		PerfTracker:   perfTracker,
	}
}
