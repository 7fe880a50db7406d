// Package database provides tenant instantiation
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tallmanjamie/civquest-go/internal/infrastructure/security"
)

// TableCreator handles the creation of the database schema for a new tenant.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all necessary queries to build the tenant's database tables and indexes.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

// SeedInitialContent adds the default accounts required for a new
// tenant to function. The password hash was produced at provisioning
// time, so it is inserted as-is.
func (tc *TableCreator) SeedInitialContent(db *sql.DB, adminEmail, adminPasswordHash string) error {
	// Idempotently create the tenant's admin account.
	var accountID string
	err := db.QueryRow("SELECT id FROM accounts WHERE email = ?", adminEmail).Scan(&accountID)
	if err == sql.ErrNoRows {
		accountID = security.GenerateULID()
		now := time.Now().UTC().Format(time.RFC3339)
		_, err = db.Exec(`INSERT INTO accounts (id, email, display_name, password_hash, role, created_at, changed) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			accountID, adminEmail, "Administrator", adminPasswordHash, "admin", now, now)
		if err != nil {
			return fmt.Errorf("failed to insert admin account: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to check for admin account: %w", err)
	}

	return nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS accounts (id TEXT PRIMARY KEY, email TEXT NOT NULL UNIQUE, display_name TEXT, password_hash TEXT NOT NULL, role TEXT NOT NULL DEFAULT 'viewer', created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, changed TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS arcgis_identities (account_id TEXT PRIMARY KEY REFERENCES accounts(id), arcgis_username TEXT NOT NULL, linked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS delegated_tokens (account_id TEXT PRIMARY KEY REFERENCES accounts(id), access_token TEXT NOT NULL, expires_at TIMESTAMP, stored_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS resolution_audit (id TEXT PRIMARY KEY, account_id TEXT, session_id TEXT, maps_total INTEGER NOT NULL, maps_accessible INTEGER NOT NULL, login_required BOOLEAN NOT NULL DEFAULT 0, resolved_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email)`,
	`CREATE INDEX IF NOT EXISTS idx_arcgis_identities_username ON arcgis_identities(arcgis_username)`,
	`CREATE INDEX IF NOT EXISTS idx_resolution_audit_account_id ON resolution_audit(account_id)`,
	`CREATE INDEX IF NOT EXISTS idx_resolution_audit_resolved_at ON resolution_audit(resolved_at)`,
}
