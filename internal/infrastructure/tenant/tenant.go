// Package tenant manages tenant-specific configurations and context,
// isolating multi-tenancy logic from the rest of the application.
package tenant

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/caching"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
)

// Manager coordinates tenant detection and context creation
type Manager struct {
	detector       *Detector
	sharingCache   caching.SharingCache
	contexts       map[string]*Context
	contextMutexes sync.Map // Per-tenant mutexes for fine-grained locking
	globalMutex    sync.RWMutex
	logger         *logging.ChanneledLogger
}

// NewManager creates and initializes a new tenant manager.
func NewManager(logger *logging.ChanneledLogger) *Manager {
	detector, err := NewDetector(logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize tenant detector: %v", err))
	}

	return &Manager{
		detector:     detector,
		sharingCache: caching.NewSharingCacheFromEnv(logger),
		contexts:     make(map[string]*Context),
		logger:       logger,
	}
}

// GetContext creates or retrieves a tenant context for the request
func (m *Manager) GetContext(c *gin.Context) (*Context, error) {
	tenantID, err := m.detector.DetectTenant(c)
	if err != nil {
		return nil, fmt.Errorf("tenant detection failed: %w", err)
	}

	m.globalMutex.RLock()
	if ctx, exists := m.contexts[tenantID]; exists {
		m.globalMutex.RUnlock()
		if ctx.Database != nil && ctx.Database.Conn != nil {
			return ctx, nil
		}
	} else {
		m.globalMutex.RUnlock()
	}

	tenantMutexInterface, _ := m.contextMutexes.LoadOrStore(tenantID, &sync.Mutex{})
	tenantMutex := tenantMutexInterface.(*sync.Mutex)

	tenantMutex.Lock()
	defer tenantMutex.Unlock()

	m.globalMutex.RLock()
	if ctx, exists := m.contexts[tenantID]; exists {
		m.globalMutex.RUnlock()
		if ctx.Database != nil && ctx.Database.Conn != nil {
			return ctx, nil
		}
	} else {
		m.globalMutex.RUnlock()
	}

	return m.createContext(tenantID)
}

// NewContextFromID creates a new tenant context from a tenant ID string.
func (m *Manager) NewContextFromID(tenantID string) (*Context, error) {
	return m.createContext(tenantID)
}

// createContext creates a new tenant context
func (m *Manager) createContext(tenantID string) (*Context, error) {
	config, err := LoadTenantConfig(tenantID, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant config: %w", err)
	}

	db, err := NewDatabase(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	status := m.detector.GetTenantStatus(tenantID)

	ctx := &Context{
		TenantID:     tenantID,
		Config:       config,
		Database:     db,
		Status:       status,
		SharingCache: m.sharingCache,
		Logger:       m.logger,
	}

	m.globalMutex.Lock()
	m.contexts[tenantID] = ctx
	m.globalMutex.Unlock()

	return ctx, nil
}

// ReloadMaps re-reads a tenant's map configuration document and
// invalidates its sharing cache entries, so the next resolution pass
// sees fresh platform state for the new list.
func (m *Manager) ReloadMaps(tenantID string) (int, error) {
	m.globalMutex.RLock()
	ctx, exists := m.contexts[tenantID]
	m.globalMutex.RUnlock()

	if !exists {
		return 0, fmt.Errorf("no active context for tenant %s", tenantID)
	}

	maps, err := LoadMapsConfig(tenantID)
	if err != nil {
		return 0, err
	}

	ctx.Config.Maps = maps

	if invalidator, ok := m.sharingCache.(interface{ InvalidateTenant(string) }); ok {
		invalidator.InvalidateTenant(tenantID)
	}

	m.logger.Tenant().Info("Tenant map list reloaded", "tenantId", tenantID, "count", len(maps))
	return len(maps), nil
}

// PreActivateAllTenants activates all tenants in the registry during startup
func (m *Manager) PreActivateAllTenants() error {
	registry, err := LoadTenantRegistry()
	if err != nil {
		return fmt.Errorf("failed to load tenant registry for pre-activation: %w", err)
	}

	if len(registry.Tenants) == 0 {
		return nil
	}

	var failedTenants []string

	for tenantID, tenantInfo := range registry.Tenants {
		if tenantInfo.Status == "reserved" {
			continue
		}

		if err := m.preActivateSingleTenant(tenantID); err != nil {
			m.logger.Tenant().Warn("Tenant pre-activation failed", "tenantId", tenantID, "error", err)
			failedTenants = append(failedTenants, tenantID)
			continue
		}
	}

	if err := m.detector.RefreshRegistry(); err != nil {
		return fmt.Errorf("failed to refresh detector registry: %w", err)
	}

	if len(failedTenants) > 0 {
		return fmt.Errorf("pre-activation failed for tenants: %v", failedTenants)
	}

	return nil
}

// preActivateSingleTenant activates a single tenant during startup
func (m *Manager) preActivateSingleTenant(tenantID string) error {
	ctx, err := m.createContext(tenantID)
	if err != nil {
		return fmt.Errorf("failed to create context for tenant %s: %w", tenantID, err)
	}

	if err := ctx.Database.Conn.Ping(); err != nil {
		return fmt.Errorf("database connection test failed for tenant %s: %w", tenantID, err)
	}

	dbType := "sqlite3"
	if ctx.Database.UseTurso {
		dbType = "turso"
	}
	return m.detector.UpdateTenantStatus(tenantID, "active", dbType)
}

// ValidatePreActivation confirms every tenant marked active in the
// registry got a working context during pre-activation.
func (m *Manager) ValidatePreActivation() error {
	registry, err := LoadTenantRegistry()
	if err != nil {
		return fmt.Errorf("failed to load tenant registry for validation: %w", err)
	}

	for tenantID, info := range registry.Tenants {
		if info.Status != "active" {
			continue
		}
		m.globalMutex.RLock()
		_, exists := m.contexts[tenantID]
		m.globalMutex.RUnlock()
		if !exists {
			return fmt.Errorf("tenant %s is active but has no initialized context", tenantID)
		}
	}
	return nil
}

// GetActiveTenantCount returns the number of active tenants
func (m *Manager) GetActiveTenantCount() (int, error) {
	registry, err := LoadTenantRegistry()
	if err != nil {
		return 0, fmt.Errorf("failed to load tenant registry: %w", err)
	}

	activeCount := 0
	for _, tenantInfo := range registry.Tenants {
		if tenantInfo.Status == "active" {
			activeCount++
		}
	}

	return activeCount, nil
}

// GetSharingCache returns the sharing cache for external access
func (m *Manager) GetSharingCache() caching.SharingCache {
	return m.sharingCache
}

// GetDetector returns the detector for external access (needed by startup code)
func (m *Manager) GetDetector() *Detector {
	return m.detector
}

// GetLogger returns the logger for middleware access
func (m *Manager) GetLogger() *logging.ChanneledLogger {
	return m.logger
}

// Close cleans up all tenant contexts
func (m *Manager) Close() error {
	for _, ctx := range m.snapshotContexts() {
		if err := ctx.Close(); err != nil {
			continue
		}
	}

	m.globalMutex.Lock()
	m.contexts = make(map[string]*Context)
	m.globalMutex.Unlock()
	return nil
}

func (m *Manager) snapshotContexts() []*Context {
	m.globalMutex.RLock()
	defer m.globalMutex.RUnlock()

	contexts := make([]*Context, 0, len(m.contexts))
	for _, ctx := range m.contexts {
		contexts = append(contexts, ctx)
	}
	return contexts
}
