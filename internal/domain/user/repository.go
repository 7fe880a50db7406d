// Package user defines the interfaces for accessing viewer accounts and
// their linked ArcGIS identities. These repositories abstract the data
// persistence details, ensuring the resolution engine stays decoupled
// from the database and from ambient credential storage.
package user

import "time"

// Account represents an application-level viewer account in the system.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"` // Never serialize password hash
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	Changed      time.Time `json:"changed"`
}

// LinkedIdentity records that an application account has been linked to
// an upstream ArcGIS identity via the separate linking flow. The
// delegated token lives in TokenStore, not here.
type LinkedIdentity struct {
	AccountID      string    `json:"accountId"`
	ArcGISUsername string    `json:"arcgisUsername"`
	LinkedAt       time.Time `json:"linkedAt"`
}

// StoredToken is a delegated bearer credential for the upstream
// platform, obtained and persisted by the linking flow. The engine only
// checks presence and passes the access token through opaquely.
type StoredToken struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Expired reports whether the token is past its expiry. A zero expiry
// means the upstream never told us and the token is used as-is.
func (t *StoredToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// AccountRepository defines the operations for persisting Account entities.
type AccountRepository interface {
	FindByID(id string) (*Account, error)
	FindByEmail(email string) (*Account, error)
	Store(account *Account) error
	Update(account *Account) error
}

// IdentityRepository defines the operations for linked ArcGIS
// identities. The resolution engine only reads; the linking flow writes.
type IdentityRepository interface {
	FindByAccountID(accountID string) (*LinkedIdentity, error)
	Link(identity *LinkedIdentity) error
	Unlink(accountID string) error
}

// TokenStore is the injected capability for delegated tokens. The
// resolution engine only calls Get. Implementations never hand out
// expired tokens; Get returns nil when no usable token exists for the
// account.
type TokenStore interface {
	Get(accountID string) (*StoredToken, error)
	Put(accountID string, token *StoredToken) error
	Delete(accountID string) error
}
