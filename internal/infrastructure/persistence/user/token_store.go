package user

import (
	"database/sql"
	"time"

	"github.com/tallmanjamie/civquest-go/internal/domain/user"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/persistence/database"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/security"
)

// SQLTokenStore is the SQL-based implementation of the TokenStore.
// Tokens are encrypted at rest with the tenant's AES key when one is
// configured.
type SQLTokenStore struct {
	db     *database.DB
	logger *logging.ChanneledLogger
	aesKey string
}

// NewSQLTokenStore creates a new instance of the store.
func NewSQLTokenStore(db *database.DB, logger *logging.ChanneledLogger, aesKey string) *SQLTokenStore {
	return &SQLTokenStore{
		db:     db,
		logger: logger,
		aesKey: aesKey,
	}
}

// Get retrieves the delegated token for an account. Expired tokens are
// treated as absent so the resolution engine never probes with a dead
// credential.
func (s *SQLTokenStore) Get(accountID string) (*user.StoredToken, error) {
	const query = `
		SELECT access_token, expires_at
		FROM delegated_tokens
		WHERE account_id = ?`

	s.logger.Database().Debug("Loading delegated token", "accountId", accountID)

	var token user.StoredToken
	var expiresAtStr sql.NullString
	err := s.db.QueryRow(query, accountID).Scan(&token.AccessToken, &expiresAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Database().Debug("No delegated token for account", "accountId", accountID)
			return nil, nil
		}
		s.logger.Database().Error("Failed to load delegated token", "error", err.Error(), "accountId", accountID)
		return nil, err
	}

	if expiresAtStr.Valid && expiresAtStr.String != "" {
		token.ExpiresAt, err = parseTimestamp(expiresAtStr.String)
		if err != nil {
			return nil, err
		}
	}

	if token.Expired(time.Now()) {
		s.logger.Database().Debug("Delegated token expired", "accountId", accountID, "expiresAt", token.ExpiresAt)
		return nil, nil
	}

	if s.aesKey != "" {
		plaintext, err := security.Decrypt(token.AccessToken, s.aesKey)
		if err != nil {
			s.logger.Database().Error("Failed to decrypt delegated token", "error", err.Error(), "accountId", accountID)
			return nil, err
		}
		token.AccessToken = plaintext
	}

	return &token, nil
}

// Put stores or replaces the delegated token for an account.
func (s *SQLTokenStore) Put(accountID string, token *user.StoredToken) error {
	const query = `
		INSERT INTO delegated_tokens (account_id, access_token, expires_at, stored_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET access_token = excluded.access_token, expires_at = excluded.expires_at, stored_at = excluded.stored_at`

	start := time.Now()
	s.logger.Database().Debug("Executing delegated token upsert", "accountId", accountID)

	var expiresAt string
	if !token.ExpiresAt.IsZero() {
		expiresAt = token.ExpiresAt.Format(time.RFC3339)
	}

	accessToken := token.AccessToken
	if s.aesKey != "" {
		encrypted, encErr := security.Encrypt(accessToken, s.aesKey)
		if encErr != nil {
			s.logger.Database().Error("Failed to encrypt delegated token", "error", encErr.Error(), "accountId", accountID)
			return encErr
		}
		accessToken = encrypted
	}

	_, err := s.db.Exec(query, accountID, accessToken, expiresAt, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		s.logger.Database().Error("Delegated token upsert failed", "error", err.Error(), "accountId", accountID)
		return err
	}

	s.logger.Database().Info("Delegated token stored", "accountId", accountID, "duration", time.Since(start))
	return nil
}

// Delete removes the delegated token for an account.
func (s *SQLTokenStore) Delete(accountID string) error {
	const query = `DELETE FROM delegated_tokens WHERE account_id = ?`

	s.logger.Database().Debug("Executing delegated token delete", "accountId", accountID)

	_, err := s.db.Exec(query, accountID)
	if err != nil {
		s.logger.Database().Error("Delegated token delete failed", "error", err.Error(), "accountId", accountID)
		return err
	}

	return nil
}
