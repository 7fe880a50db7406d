// Package user provides the concrete SQL-based implementations of
// the user domain repositories (Account, LinkedIdentity, TokenStore).
package user

import (
	"database/sql"
	"time"

	"github.com/tallmanjamie/civquest-go/internal/domain/user"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/persistence/database"
)

// SQLAccountRepository is the SQL-based implementation of the AccountRepository.
type SQLAccountRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLAccountRepository creates a new instance of the repository.
func NewSQLAccountRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLAccountRepository {
	return &SQLAccountRepository{
		db:     db,
		logger: logger,
	}
}

// FindByID retrieves an Account by its unique identifier.
func (r *SQLAccountRepository) FindByID(id string) (*user.Account, error) {
	const query = `
		SELECT id, email, display_name, password_hash, role, created_at, changed
		FROM accounts
		WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading account by ID", "id", id)

	row := r.db.QueryRow(query, id)
	account, err := r.scanAccount(row)
	if err != nil {
		r.logger.Database().Error("Failed to load account by ID", "error", err.Error(), "id", id)
		return nil, err
	}

	if account != nil {
		r.logger.Database().Info("Account loaded by ID", "id", id, "duration", time.Since(start))
	}
	return account, nil
}

// FindByEmail retrieves an Account by its email address.
func (r *SQLAccountRepository) FindByEmail(email string) (*user.Account, error) {
	const query = `
		SELECT id, email, display_name, password_hash, role, created_at, changed
		FROM accounts
		WHERE email = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading account by email", "email", email)

	row := r.db.QueryRow(query, email)
	account, err := r.scanAccount(row)
	if err != nil {
		r.logger.Database().Error("Failed to load account by email", "error", err.Error(), "email", email)
		return nil, err
	}

	if account != nil {
		r.logger.Database().Info("Account loaded by email", "email", email, "accountId", account.ID, "duration", time.Since(start))
	}
	return account, nil
}

// Store saves a new Account to the database.
func (r *SQLAccountRepository) Store(account *user.Account) error {
	const query = `
		INSERT INTO accounts (id, email, display_name, password_hash, role, created_at, changed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing account insert", "id", account.ID, "email", account.Email)

	_, err := r.db.Exec(
		query,
		account.ID,
		account.Email,
		account.DisplayName,
		account.PasswordHash,
		account.Role,
		account.CreatedAt.Format(time.RFC3339),
		account.Changed.Format(time.RFC3339),
	)
	if err != nil {
		r.logger.Database().Error("Account insert failed", "error", err.Error(), "id", account.ID, "email", account.Email)
		return err
	}

	r.logger.Database().Info("Account insert completed", "id", account.ID, "email", account.Email, "duration", time.Since(start))
	return nil
}

// Update modifies an existing Account in the database.
func (r *SQLAccountRepository) Update(account *user.Account) error {
	const query = `
		UPDATE accounts
		SET email = ?, display_name = ?, password_hash = ?, role = ?, changed = ?
		WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing account update", "id", account.ID, "email", account.Email)

	_, err := r.db.Exec(
		query,
		account.Email,
		account.DisplayName,
		account.PasswordHash,
		account.Role,
		account.Changed.Format(time.RFC3339),
		account.ID,
	)
	if err != nil {
		r.logger.Database().Error("Account update failed", "error", err.Error(), "id", account.ID, "email", account.Email)
		return err
	}

	r.logger.Database().Info("Account update completed", "id", account.ID, "email", account.Email, "duration", time.Since(start))
	return nil
}

// scanAccount is a helper function to scan a sql.Row into an Account struct.
func (r *SQLAccountRepository) scanAccount(row *sql.Row) (*user.Account, error) {
	var account user.Account
	var displayName sql.NullString
	var createdAtStr, changedStr string

	err := row.Scan(
		&account.ID,
		&account.Email,
		&displayName,
		&account.PasswordHash,
		&account.Role,
		&createdAtStr,
		&changedStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, err
	}

	if displayName.Valid {
		account.DisplayName = displayName.String
	}

	account.CreatedAt, err = parseTimestamp(createdAtStr)
	if err != nil {
		return nil, err
	}
	account.Changed, err = parseTimestamp(changedStr)
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// parseTimestamp accepts both RFC3339 and the plain SQLite datetime format.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02 15:04:05", s)
	}
	return t, err
}
