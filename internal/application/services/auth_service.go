package services

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/tallmanjamie/civquest-go/internal/domain/user"
	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/performance"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/security"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/tenant"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles authentication workflows and JWT operations
type AuthService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthService creates a new authentication service
func NewAuthService(logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthService {
	return &AuthService{
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// AuthResult holds authentication result data
type AuthResult struct {
	Token   string `json:"token"`
	Role    string `json:"role"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RegisterResult holds the result of an account registration
type RegisterResult struct {
	Success bool
	Account *user.Account
	Token   string
	Error   string
}

// AuthenticateAdmin validates the tenant admin password and generates JWT
func (a *AuthService) AuthenticateAdmin(password string, tenantCtx *tenant.Context) *AuthResult {
	var role string

	if tenantCtx.Config.AdminPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(tenantCtx.Config.AdminPassword), []byte(password)); err == nil {
			role = "admin"
		}
	}

	// Fallback for plaintext passwords during transition/testing
	if role == "" && tenantCtx.Config.AdminPassword != "" && password == tenantCtx.Config.AdminPassword {
		role = "admin"
	}

	if role == "" {
		return &AuthResult{
			Success: false,
			Error:   "Invalid credentials",
		}
	}

	claims := jwt.MapClaims{
		"role":     role,
		"tenantId": tenantCtx.Config.TenantID,
		"type":     "admin_auth",
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}

	token, err := a.GenerateJWT(claims, tenantCtx.Config.JWTSecret)
	if err != nil {
		return &AuthResult{Success: false, Error: "Token generation failed"}
	}

	return &AuthResult{Token: token, Role: role, Success: true}
}

// RegisterAccount handles the business logic for creating a new viewer account.
func (a *AuthService) RegisterAccount(email, password, displayName string, tenantCtx *tenant.Context) (*RegisterResult, error) {
	accountRepo := tenantCtx.AccountRepo()

	existing, err := accountRepo.FindByEmail(email)
	if err != nil {
		a.logger.Auth().Error("Database error checking for existing account", "error", err, "email", email)
		return nil, fmt.Errorf("database error checking existing email")
	}
	if existing != nil {
		return &RegisterResult{Success: false, Error: "Email already registered"}, nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		a.logger.Auth().Error("Password hashing failed", "error", err)
		return nil, fmt.Errorf("password hashing failed")
	}

	now := time.Now().UTC()
	account := &user.Account{
		ID:           security.GenerateULID(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hashedPassword),
		Role:         "viewer",
		CreatedAt:    now,
		Changed:      now,
	}

	if err := accountRepo.Store(account); err != nil {
		a.logger.Auth().Error("Failed to store new account", "error", err, "accountId", account.ID)
		return nil, fmt.Errorf("failed to create account")
	}

	token, err := a.issueSessionToken(account, "", tenantCtx)
	if err != nil {
		return nil, fmt.Errorf("token generation failed")
	}

	return &RegisterResult{
		Success: true,
		Account: account,
		Token:   token,
	}, nil
}

// AuthenticateAccount validates viewer credentials and generates a
// session token carrying the linked ArcGIS username when one exists.
func (a *AuthService) AuthenticateAccount(email, password string, tenantCtx *tenant.Context) *AuthResult {
	account, err := tenantCtx.AccountRepo().FindByEmail(email)
	if err != nil {
		a.logger.Auth().Error("Database error during login", "error", err, "email", email)
		return &AuthResult{Success: false, Error: "Login failed"}
	}
	if account == nil {
		return &AuthResult{Success: false, Error: "Invalid credentials"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return &AuthResult{Success: false, Error: "Invalid credentials"}
	}

	arcgisUsername := ""
	identity, err := tenantCtx.IdentityRepo().FindByAccountID(account.ID)
	if err != nil {
		a.logger.Auth().Warn("Could not load linked identity during login", "error", err, "accountId", account.ID)
	} else if identity != nil {
		arcgisUsername = identity.ArcGISUsername
	}

	token, err := a.issueSessionToken(account, arcgisUsername, tenantCtx)
	if err != nil {
		return &AuthResult{Success: false, Error: "Token generation failed"}
	}

	return &AuthResult{Token: token, Role: account.Role, Success: true}
}

// issueSessionToken mints a fresh session for the account.
func (a *AuthService) issueSessionToken(account *user.Account, arcgisUsername string, tenantCtx *tenant.Context) (string, error) {
	session := &security.SessionClaims{
		SessionID:      security.GenerateULID(),
		AccountID:      account.ID,
		TenantID:       tenantCtx.TenantID,
		Role:           account.Role,
		ArcGISUsername: arcgisUsername,
	}
	return security.GenerateSessionToken(session, tenantCtx.Config.JWTSecret)
}

// ViewerFromToken builds the viewer identity context for a resolution
// pass. An empty, expired, or otherwise invalid token yields the
// anonymous viewer rather than an error; the delegated token is only
// attached when the account also has a recorded linked identity.
func (a *AuthService) ViewerFromToken(tokenString string, tenantCtx *tenant.Context) visibility.Viewer {
	if tokenString == "" {
		return visibility.Viewer{}
	}

	claims, err := security.ValidateJWT(tokenString, tenantCtx.Config.JWTSecret)
	if err != nil {
		a.logger.Auth().Debug("Session token rejected", "error", err.Error(), "tenantId", tenantCtx.TenantID)
		return visibility.Viewer{}
	}

	session := security.GetSessionFromClaims(claims)
	if session == nil || session.TenantID != tenantCtx.TenantID {
		return visibility.Viewer{}
	}

	viewer := visibility.Viewer{
		SessionID:  session.SessionID,
		HasSession: true,
	}

	identity, err := tenantCtx.IdentityRepo().FindByAccountID(session.AccountID)
	if err != nil {
		a.logger.Auth().Warn("Could not load linked identity", "error", err, "accountId", session.AccountID)
		return viewer
	}
	if identity == nil {
		return viewer
	}
	viewer.LinkedArcGISUsername = identity.ArcGISUsername

	storedToken, err := tenantCtx.TokenStore().Get(session.AccountID)
	if err != nil {
		a.logger.Auth().Warn("Could not load delegated token", "error", err, "accountId", session.AccountID)
		return viewer
	}
	if storedToken != nil {
		viewer.DelegatedToken = storedToken.AccessToken
	}

	return viewer
}

// AccountIDFromToken returns the account behind a session token, or
// empty when the token is not a valid session for this tenant.
func (a *AuthService) AccountIDFromToken(tokenString string, tenantCtx *tenant.Context) string {
	if tokenString == "" {
		return ""
	}
	claims, err := security.ValidateJWT(tokenString, tenantCtx.Config.JWTSecret)
	if err != nil {
		return ""
	}
	session := security.GetSessionFromClaims(claims)
	if session == nil || session.TenantID != tenantCtx.TenantID {
		return ""
	}
	return session.AccountID
}

// LinkIdentity records an ArcGIS identity for an account and stores its
// delegated token.
func (a *AuthService) LinkIdentity(accountID, arcgisUsername, accessToken string, expiresAt time.Time, tenantCtx *tenant.Context) error {
	identity := &user.LinkedIdentity{
		AccountID:      accountID,
		ArcGISUsername: arcgisUsername,
		LinkedAt:       time.Now().UTC(),
	}
	if err := tenantCtx.IdentityRepo().Link(identity); err != nil {
		a.logger.Auth().Error("Identity link failed", "error", err, "accountId", accountID)
		return err
	}

	if accessToken != "" {
		token := &user.StoredToken{AccessToken: accessToken, ExpiresAt: expiresAt}
		if err := tenantCtx.TokenStore().Put(accountID, token); err != nil {
			a.logger.Auth().Error("Delegated token store failed", "error", err, "accountId", accountID)
			return err
		}
	}

	a.logger.Auth().Info("ArcGIS identity linked", "accountId", accountID, "arcgisUsername", arcgisUsername, "tenantId", tenantCtx.TenantID)
	return nil
}

// UnlinkIdentity removes an account's ArcGIS identity and its token.
func (a *AuthService) UnlinkIdentity(accountID string, tenantCtx *tenant.Context) error {
	if err := tenantCtx.TokenStore().Delete(accountID); err != nil {
		return err
	}
	if err := tenantCtx.IdentityRepo().Unlink(accountID); err != nil {
		return err
	}
	a.logger.Auth().Info("ArcGIS identity unlinked", "accountId", accountID, "tenantId", tenantCtx.TenantID)
	return nil
}

// GenerateJWT creates a JWT token with given claims
func (a *AuthService) GenerateJWT(claims jwt.MapClaims, jwtSecret string) (string, error) {
	if _, ok := claims["iat"]; !ok {
		claims["iat"] = time.Now().UTC().Unix()
	}
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().UTC().Add(24 * time.Hour).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// ValidateAdminToken checks if a token belongs to an admin user
func (a *AuthService) ValidateAdminToken(tokenString string, tenantCtx *tenant.Context) bool {
	return a.ValidateTokenWithRoles(tokenString, tenantCtx, []string{"admin"})
}

// ValidateTokenWithRoles validates a token and checks if the role is in the allowed list
func (a *AuthService) ValidateTokenWithRoles(tokenString string, tenantCtx *tenant.Context, allowedRoles []string) bool {
	if tokenString == "" {
		return false
	}

	claims, err := security.ValidateJWT(tokenString, tenantCtx.Config.JWTSecret)
	if err != nil {
		return false
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "admin_auth" {
		return false
	}

	tokenTenantID, ok := claims["tenantId"].(string)
	if !ok || tokenTenantID != tenantCtx.TenantID {
		return false
	}

	tokenRole, ok := claims["role"].(string)
	if !ok {
		return false
	}

	return slices.Contains(allowedRoles, tokenRole)
}
