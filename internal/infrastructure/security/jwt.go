// Package security provides JWT token utilities
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// SessionClaims carries the viewer identity embedded in a session token.
// ArcGISUsername is empty for accounts with no linked platform identity.
type SessionClaims struct {
	SessionID      string
	AccountID      string
	TenantID       string
	Role           string
	ArcGISUsername string
}

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GetSessionFromClaims extracts session identity from JWT claims.
// Returns nil when the token does not carry a session.
func GetSessionFromClaims(claims jwt.MapClaims) *SessionClaims {
	sessionID, ok := claims["sessionId"].(string)
	if !ok || sessionID == "" {
		return nil
	}

	session := &SessionClaims{SessionID: sessionID}
	if accountID, ok := claims["accountId"].(string); ok {
		session.AccountID = accountID
	}
	if tenantID, ok := claims["tenantId"].(string); ok {
		session.TenantID = tenantID
	}
	if role, ok := claims["role"].(string); ok {
		session.Role = role
	}
	if username, ok := claims["arcgisUsername"].(string); ok {
		session.ArcGISUsername = username
	}
	return session
}

// GenerateSessionToken creates a JWT session token for a viewer
func GenerateSessionToken(session *SessionClaims, jwtSecret string) (string, error) {
	claims := jwt.MapClaims{
		"sessionId":      session.SessionID,
		"accountId":      session.AccountID,
		"tenantId":       session.TenantID,
		"role":           session.Role,
		"arcgisUsername": session.ArcGISUsername,
		"iat":            time.Now().UTC().Unix(),
		"exp":            time.Now().UTC().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}
