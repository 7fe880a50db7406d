// Package tenant provides tenant context management for multi-tenant support.
package tenant

import (
	domainUser "github.com/tallmanjamie/civquest-go/internal/domain/user"
	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/caching"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	persistenceAnalytics "github.com/tallmanjamie/civquest-go/internal/infrastructure/persistence/analytics"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/persistence/database"
	persistenceUser "github.com/tallmanjamie/civquest-go/internal/infrastructure/persistence/user"
)

// Context holds tenant-specific request context
type Context struct {
	TenantID     string
	Config       *Config
	Database     *Database
	Status       string
	SharingCache caching.SharingCache
	Logger       *logging.ChanneledLogger
}

// Close cleans up the tenant context
func (ctx *Context) Close() error {
	if ctx.Database != nil {
		return ctx.Database.Close()
	}
	return nil
}

// GetTenantID returns the tenant ID for this context
func (ctx *Context) GetTenantID() string {
	return ctx.TenantID
}

// GetConfig returns the tenant configuration
func (ctx *Context) GetConfig() *Config {
	return ctx.Config
}

// GetStatus returns the tenant status
func (ctx *Context) GetStatus() string {
	return ctx.Status
}

// IsActive returns true if the tenant is active
func (ctx *Context) IsActive() bool {
	return ctx.Status == "active"
}

// IsReserved returns true if the tenant is reserved (awaiting activation)
func (ctx *Context) IsReserved() bool {
	return ctx.Status == "reserved"
}

// Maps returns the tenant's configured map list. Read-only to the
// resolution engine; editing happens in the admin console.
func (ctx *Context) Maps() []visibility.MapConfig {
	if ctx.Config == nil {
		return nil
	}
	return ctx.Config.Maps
}

// GetDatabaseInfo returns database connection information for logging
func (ctx *Context) GetDatabaseInfo() string {
	if ctx.Database != nil {
		return ctx.Database.GetConnectionInfo()
	}
	return "no database connection"
}

// =============================================================================
// Repository Factory Methods
// =============================================================================

// AccountRepo returns an account repository instance.
// It returns the interface type from the domain layer.
func (ctx *Context) AccountRepo() domainUser.AccountRepository {
	db := &database.DB{DB: ctx.Database.Conn}
	return persistenceUser.NewSQLAccountRepository(db, ctx.Logger)
}

// IdentityRepo returns a linked-identity repository instance.
func (ctx *Context) IdentityRepo() domainUser.IdentityRepository {
	db := &database.DB{DB: ctx.Database.Conn}
	return persistenceUser.NewSQLIdentityRepository(db, ctx.Logger)
}

// TokenStore returns the delegated-token read capability.
func (ctx *Context) TokenStore() domainUser.TokenStore {
	db := &database.DB{DB: ctx.Database.Conn}
	return persistenceUser.NewSQLTokenStore(db, ctx.Logger, ctx.Config.AESKey)
}

// AuditRepo returns the resolution audit repository instance.
func (ctx *Context) AuditRepo() *persistenceAnalytics.SQLAuditRepository {
	db := &database.DB{DB: ctx.Database.Conn}
	return persistenceAnalytics.NewSQLAuditRepository(db, ctx.Logger)
}
