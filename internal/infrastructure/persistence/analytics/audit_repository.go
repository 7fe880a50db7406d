// Package analytics provides the concrete SQL-based implementation
// for resolution audit persistence.
//
// Each committed resolution pass leaves one row recording who asked,
// how many maps were considered and how many came back accessible.
// This is SEPARATE from the live Prometheus counters, which reset on
// restart.
package analytics

import (
	"time"

	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/persistence/database"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/security"
)

// SQLAuditRepository handles resolution audit persistence to database.
type SQLAuditRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLAuditRepository creates a new instance of the repository.
func NewSQLAuditRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLAuditRepository {
	return &SQLAuditRepository{
		db:     db,
		logger: logger,
	}
}

// StoreResolutionPass records the outcome of a committed resolution pass.
func (r *SQLAuditRepository) StoreResolutionPass(viewer visibility.Viewer, accountID string, result *visibility.ResolutionResult, mapsTotal int) error {
	const query = `
		INSERT INTO resolution_audit (id, account_id, session_id, maps_total, maps_accessible, login_required, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	auditID := security.GenerateULID()
	start := time.Now()

	_, err := r.db.Exec(
		query,
		auditID,
		accountID,
		viewer.SessionID,
		mapsTotal,
		len(result.Accessible),
		result.LoginRequired,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		r.logger.Database().Error("Resolution audit insert failed",
			"error", err.Error(),
			"auditId", auditID,
			"sessionId", viewer.SessionID)
		return err
	}

	r.logger.Database().Debug("Resolution audit recorded",
		"auditId", auditID,
		"mapsTotal", mapsTotal,
		"mapsAccessible", len(result.Accessible),
		"duration", time.Since(start))
	return nil
}

// CountPassesSince returns the number of committed passes recorded
// after the given time, for the tenant health endpoint.
func (r *SQLAuditRepository) CountPassesSince(since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM resolution_audit WHERE resolved_at >= ?`

	var count int
	err := r.db.QueryRow(query, since.UTC().Format(time.RFC3339)).Scan(&count)
	if err != nil {
		r.logger.Database().Error("Resolution audit count failed", "error", err.Error())
		return 0, err
	}
	return count, nil
}
