// Package tenant provides tenant detection and validation.
package tenant

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
)

// Detector handles tenant detection from HTTP requests
type Detector struct {
	registry    *TenantRegistry
	registryMu  sync.RWMutex
	multiTenant bool
	logger      *logging.ChanneledLogger
}

// NewDetector creates a new tenant detector
func NewDetector(logger *logging.ChanneledLogger) (*Detector, error) {
	registry, err := LoadTenantRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant registry: %w", err)
	}

	multiTenant := false
	if val := os.Getenv("ENABLE_MULTI_TENANT"); val != "" {
		multiTenant, _ = strconv.ParseBool(val)
	}

	return &Detector{
		registry:    registry,
		multiTenant: multiTenant,
		logger:      logger,
	}, nil
}

// DetectTenant extracts tenant ID from request and auto-registers if needed
func (d *Detector) DetectTenant(c *gin.Context) (string, error) {
	var tenantID string

	if d.multiTenant {
		tenantID = c.GetHeader("X-Tenant-ID")
		// FALLBACK: the browser Websocket API cannot set custom
		// headers, so stream connections pass tenantId as a query param
		if tenantID == "" {
			tenantID = c.Query("tenantId")
		}

		if tenantID == "" {
			return "", fmt.Errorf("missing tenant ID header in multi-tenant mode")
		}
	} else {
		// Single tenant mode - always use "default"
		tenantID = "default"
	}

	d.registryMu.RLock()
	_, exists := d.registry.Tenants[tenantID]
	d.registryMu.RUnlock()

	if !exists {
		// Auto-register tenant if it has a config directory or if it's default
		if tenantID == "default" || d.hasConfigDirectory(tenantID) {
			if err := RegisterTenant(tenantID); err != nil {
				return "", fmt.Errorf("failed to auto-register tenant %s: %w", tenantID, err)
			}
			if err := d.RefreshRegistry(); err != nil {
				return "", fmt.Errorf("failed to reload registry after auto-registration: %w", err)
			}
		} else {
			return "", fmt.Errorf("unknown tenant: %s", tenantID)
		}
	}

	return tenantID, nil
}

// hasConfigDirectory checks if a tenant has a config directory
func (d *Detector) hasConfigDirectory(tenantID string) bool {
	home, err := ConfigHome()
	if err != nil {
		return false
	}

	configDir := filepath.Join(home, "config", tenantID)
	if _, err := os.Stat(configDir); err == nil {
		return true
	}
	return false
}

// RefreshRegistry reloads the registry from disk
func (d *Detector) RefreshRegistry() error {
	registry, err := LoadTenantRegistry()
	if err != nil {
		return err
	}

	d.registryMu.Lock()
	d.registry = registry
	d.registryMu.Unlock()
	return nil
}

// GetRegistry returns the registry as currently loaded
func (d *Detector) GetRegistry() *TenantRegistry {
	d.registryMu.RLock()
	defer d.registryMu.RUnlock()
	return d.registry
}

// GetTenantStatus returns the status of a tenant from the registry
func (d *Detector) GetTenantStatus(tenantID string) string {
	d.registryMu.RLock()
	defer d.registryMu.RUnlock()

	if info, exists := d.registry.Tenants[tenantID]; exists {
		return info.Status
	}
	return "unknown"
}

// ValidateDomain reports whether a domain is allowed for a tenant.
// A "*" entry allows any domain.
func (d *Detector) ValidateDomain(tenantID, domain string) bool {
	d.registryMu.RLock()
	defer d.registryMu.RUnlock()

	info, exists := d.registry.Tenants[tenantID]
	if !exists {
		return false
	}
	for _, allowed := range info.Domains {
		if allowed == "*" || allowed == domain {
			return true
		}
	}
	return false
}

// UpdateTenantStatus updates a tenant's status in the registry and persists it
func (d *Detector) UpdateTenantStatus(tenantID, status, databaseType string) error {
	registry, err := LoadTenantRegistry()
	if err != nil {
		return err
	}

	info, exists := registry.Tenants[tenantID]
	if !exists {
		info = TenantInfo{TenantID: tenantID, Domains: []string{"*"}}
	}
	info.Status = status
	info.DatabaseType = databaseType
	registry.Tenants[tenantID] = info

	if err := SaveTenantRegistry(registry); err != nil {
		return err
	}

	d.registryMu.Lock()
	d.registry = registry
	d.registryMu.Unlock()
	return nil
}
