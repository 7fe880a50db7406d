// Package tenant handles loading and providing tenant-specific configurations.
package tenant

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/pkg/config"
)

// Config represents the structure of a single tenant's configuration
type Config struct {
	TenantID        string   `json:"tenantId"`
	Domains         []string `json:"domains"`
	Status          string   `json:"status"`
	DatabaseType    string   `json:"databaseType"`
	TursoDatabase   string   `json:"TURSO_DATABASE_URL"`
	TursoToken      string   `json:"TURSO_AUTH_TOKEN"`
	JWTSecret       string   `json:"JWT_SECRET"`
	AESKey          string   `json:"AES_KEY"`
	TursoEnabled    bool     `json:"TURSO_ENABLED"`
	AdminPassword   string   `json:"ADMIN_PASSWORD,omitempty"`
	ActivationToken string   `json:"ACTIVATION_TOKEN,omitempty"`
	ArcGISPortalURL string   `json:"ARCGIS_PORTAL_URL,omitempty"`

	SQLitePath string                 `json:"-"`
	Maps       []visibility.MapConfig `json:"-"`
}

// ConfigHome returns the root directory for all tenant configuration
// and database files.
func ConfigHome() (string, error) {
	if dir := os.Getenv("CIVQUEST_HOME"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find user home directory: %w", err)
	}
	return filepath.Join(homeDir, "civquest-server"), nil
}

// LoadTenantConfig loads configuration for a specific tenant from its env.json file.
func LoadTenantConfig(tenantID string, logger *logging.ChanneledLogger) (*Config, error) {
	home, err := ConfigHome()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(home, "config", tenantID, "env.json")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("tenant config file not found at %s", configPath)
	}

	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not read tenant config file: %w", err)
	}

	var tenantConfig Config
	if err := json.Unmarshal(configFile, &tenantConfig); err != nil {
		return nil, fmt.Errorf("could not parse tenant config json: %w", err)
	}

	// Set computed fields
	tenantConfig.TenantID = tenantID
	tenantConfig.SQLitePath = filepath.Join(home, "db", tenantID, "civquest.db")
	if tenantConfig.ArcGISPortalURL == "" {
		tenantConfig.ArcGISPortalURL = config.ArcGISPortalURL
	}

	// Load the configured map list document
	maps, err := LoadMapsConfig(tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load maps config: %w", err)
	}
	tenantConfig.Maps = maps

	if logger != nil {
		logger.Tenant().Debug("Tenant config loaded", "tenantId", tenantID, "maps", len(maps))
	}

	return &tenantConfig, nil
}

// mapsDocument is the on-disk shape of a tenant's configured map list.
type mapsDocument struct {
	Maps []visibility.MapConfig `json:"maps"`
}

// LoadMapsConfig loads the tenant's configured map list. A missing
// document means the tenant has configured no maps yet.
func LoadMapsConfig(tenantID string) ([]visibility.MapConfig, error) {
	home, err := ConfigHome()
	if err != nil {
		return nil, err
	}

	mapsPath := filepath.Join(home, "config", tenantID, "maps.json")
	if _, err := os.Stat(mapsPath); os.IsNotExist(err) {
		return []visibility.MapConfig{}, nil
	}

	data, err := os.ReadFile(mapsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read maps config: %w", err)
	}

	var doc mapsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse maps config: %w", err)
	}

	return doc.Maps, nil
}

// TenantRegistry holds the global tenant configuration
type TenantRegistry struct {
	Tenants map[string]TenantInfo `json:"tenants"`
}

// TenantInfo holds tenant metadata
type TenantInfo struct {
	TenantID     string   `json:"tenantId"`
	Domains      []string `json:"domains"`
	Status       string   `json:"status"`       // "unknown", "inactive", "reserved", "active"
	DatabaseType string   `json:"databaseType"` // "turso", "sqlite3"
}

func registryPath() (string, error) {
	home, err := ConfigHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config", "civquest", "tenants.json"), nil
}

// LoadTenantRegistry loads the global tenant registry
func LoadTenantRegistry() (*TenantRegistry, error) {
	path, err := registryPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Create default registry if it doesn't exist
		defaultRegistry := &TenantRegistry{
			Tenants: map[string]TenantInfo{
				"default": {
					TenantID:     "default",
					Domains:      []string{"*"},
					Status:       "inactive",
					DatabaseType: "",
				},
			},
		}
		return defaultRegistry, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant registry: %w", err)
	}

	var registry TenantRegistry
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse tenant registry: %w", err)
	}

	return &registry, nil
}

// SaveTenantRegistry persists the registry document.
func SaveTenantRegistry(registry *TenantRegistry) error {
	path, err := registryPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	data, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}

	return nil
}

// RegisterTenant adds a new tenant to the registry
func RegisterTenant(tenantID string) error {
	registry, err := LoadTenantRegistry()
	if err != nil {
		return err
	}

	if _, exists := registry.Tenants[tenantID]; !exists {
		registry.Tenants[tenantID] = TenantInfo{
			TenantID:     tenantID,
			Domains:      []string{"*"},
			Status:       "inactive",
			DatabaseType: "",
		}
		return SaveTenantRegistry(registry)
	}

	return nil
}
