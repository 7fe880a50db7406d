// Package tenant provides database abstraction for multi-tenant support.
package tenant

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tallmanjamie/civquest-go/pkg/config"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

var (
	connectionPools = make(map[string]*sql.DB)
	poolMutex       = &sync.RWMutex{}
)

// Database wraps a tenant's SQL connection.
type Database struct {
	Conn     *sql.DB
	TenantID string
	UseTurso bool
	isPooled bool
}

// NewDatabase opens (or reuses) the connection for a tenant. Turso is
// preferred when the tenant has it enabled; local SQLite otherwise.
func NewDatabase(cfg *Config) (*Database, error) {
	poolKey := getPoolKey(cfg)

	poolMutex.Lock()
	defer poolMutex.Unlock()

	if pooledConn, exists := connectionPools[poolKey]; exists {
		if err := pooledConn.Ping(); err == nil {
			return &Database{
				Conn:     pooledConn,
				TenantID: cfg.TenantID,
				UseTurso: cfg.TursoDatabase != "",
				isPooled: true,
			}, nil
		}
		pooledConn.Close()
		delete(connectionPools, poolKey)
	}

	var conn *sql.DB
	var err error
	var useTurso bool

	if cfg.TursoEnabled && cfg.TursoDatabase != "" && cfg.TursoToken != "" {
		connStr := cfg.TursoDatabase + "?authToken=" + cfg.TursoToken
		conn, err = sql.Open("libsql", connStr)
		if err != nil || conn.Ping() != nil {
			return nil, fmt.Errorf("tenant %s degraded: turso connection failed", cfg.TenantID)
		}
		useTurso = true
	} else {
		dbDir := filepath.Dir(cfg.SQLitePath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}

		conn, err = sql.Open("sqlite3", cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite connection failed: %w", err)
		}

		if err := conn.Ping(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("SQLite database ping failed: %w", err)
		}
		useTurso = false
	}

	conn.SetMaxOpenConns(config.DBMaxOpenConns)
	conn.SetMaxIdleConns(config.DBMaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute)
	conn.SetConnMaxIdleTime(time.Duration(config.DBConnMaxIdleMinutes) * time.Minute)

	connectionPools[poolKey] = conn

	return &Database{
		Conn:     conn,
		TenantID: cfg.TenantID,
		UseTurso: useTurso,
		isPooled: true,
	}, nil
}

func getPoolKey(cfg *Config) string {
	if cfg.TursoEnabled && cfg.TursoDatabase != "" {
		return "turso:" + cfg.TursoDatabase
	}
	return "sqlite:" + cfg.SQLitePath
}

// Close releases the database handle. Pooled connections stay open for
// reuse across contexts.
func (d *Database) Close() error {
	if d.isPooled {
		return nil
	}
	if d.Conn != nil {
		return d.Conn.Close()
	}
	return nil
}

// GetConnectionInfo returns connection information for logging
func (d *Database) GetConnectionInfo() string {
	if d.UseTurso {
		return fmt.Sprintf("turso connection for tenant %s", d.TenantID)
	}
	return fmt.Sprintf("sqlite connection for tenant %s", d.TenantID)
}
