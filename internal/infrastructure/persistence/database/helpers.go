// Package database provides database helper functions
package database

import (
	"fmt"
	"time"

	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
)

// TestTursoConnection verifies a Turso database is reachable before a
// tenant is provisioned against it.
func TestTursoConnection(databaseURL, authToken string, logger *logging.ChanneledLogger) error {
	start := time.Now()
	logger.Database().Debug("Testing Turso database connection", "databaseURL", databaseURL)

	connStr := fmt.Sprintf("%s?authToken=%s", databaseURL, authToken)

	db, err := NewConnectionWithLogger("libsql", connStr, logger)
	if err != nil {
		logger.Database().Error("Failed to open Turso connection", "error", err.Error(), "databaseURL", databaseURL)
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer db.Close()

	var result int
	err = db.QueryRow("SELECT 1").Scan(&result)
	if err != nil {
		logger.Database().Error("Turso connection test query failed", "error", err.Error(), "databaseURL", databaseURL)
		return fmt.Errorf("connection test query failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("unexpected query result: %d", result)
	}

	logger.Database().Info("Turso connection test successful", "databaseURL", databaseURL, "duration", time.Since(start))
	return nil
}
