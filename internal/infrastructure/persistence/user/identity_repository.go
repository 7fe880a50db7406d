package user

import (
	"database/sql"
	"time"

	"github.com/tallmanjamie/civquest-go/internal/domain/user"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/persistence/database"
)

// SQLIdentityRepository is the SQL-based implementation of the IdentityRepository.
type SQLIdentityRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLIdentityRepository creates a new instance of the repository.
func NewSQLIdentityRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLIdentityRepository {
	return &SQLIdentityRepository{
		db:     db,
		logger: logger,
	}
}

// FindByAccountID retrieves the linked ArcGIS identity for an account.
// Returns nil when the account has no linked identity.
func (r *SQLIdentityRepository) FindByAccountID(accountID string) (*user.LinkedIdentity, error) {
	const query = `
		SELECT account_id, arcgis_username, linked_at
		FROM arcgis_identities
		WHERE account_id = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading linked identity", "accountId", accountID)

	var identity user.LinkedIdentity
	var linkedAtStr string
	err := r.db.QueryRow(query, accountID).Scan(&identity.AccountID, &identity.ArcGISUsername, &linkedAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Database().Debug("No linked identity for account", "accountId", accountID)
			return nil, nil
		}
		r.logger.Database().Error("Failed to load linked identity", "error", err.Error(), "accountId", accountID)
		return nil, err
	}

	identity.LinkedAt, err = parseTimestamp(linkedAtStr)
	if err != nil {
		return nil, err
	}

	r.logger.Database().Info("Linked identity loaded", "accountId", accountID, "arcgisUsername", identity.ArcGISUsername, "duration", time.Since(start))
	return &identity, nil
}

// Link records that an account has been tied to an ArcGIS identity.
// Re-linking replaces any previous identity for the account.
func (r *SQLIdentityRepository) Link(identity *user.LinkedIdentity) error {
	const query = `
		INSERT INTO arcgis_identities (account_id, arcgis_username, linked_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET arcgis_username = excluded.arcgis_username, linked_at = excluded.linked_at`

	start := time.Now()
	r.logger.Database().Debug("Executing identity link", "accountId", identity.AccountID, "arcgisUsername", identity.ArcGISUsername)

	_, err := r.db.Exec(query, identity.AccountID, identity.ArcGISUsername, identity.LinkedAt.Format(time.RFC3339))
	if err != nil {
		r.logger.Database().Error("Identity link failed", "error", err.Error(), "accountId", identity.AccountID)
		return err
	}

	r.logger.Database().Info("Identity link completed", "accountId", identity.AccountID, "arcgisUsername", identity.ArcGISUsername, "duration", time.Since(start))
	return nil
}

// Unlink removes the linked ArcGIS identity for an account.
func (r *SQLIdentityRepository) Unlink(accountID string) error {
	const query = `DELETE FROM arcgis_identities WHERE account_id = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing identity unlink", "accountId", accountID)

	_, err := r.db.Exec(query, accountID)
	if err != nil {
		r.logger.Database().Error("Identity unlink failed", "error", err.Error(), "accountId", accountID)
		return err
	}

	r.logger.Database().Info("Identity unlink completed", "accountId", accountID, "duration", time.Since(start))
	return nil
}
