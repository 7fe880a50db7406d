package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	secret, err := GenerateSecureKey(64)
	if err != nil {
		t.Fatalf("GenerateSecureKey: %v", err)
	}

	session := &SessionClaims{
		SessionID:      "sess-1",
		AccountID:      "acct-1",
		TenantID:       "default",
		Role:           "viewer",
		ArcGISUsername: "jdoe_city",
	}

	token, err := GenerateSessionToken(session, secret)
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	claims, err := ValidateJWT(token, secret)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}

	got := GetSessionFromClaims(claims)
	if got == nil {
		t.Fatal("expected session claims, got nil")
	}
	if got.SessionID != session.SessionID || got.AccountID != session.AccountID ||
		got.TenantID != session.TenantID || got.Role != session.Role ||
		got.ArcGISUsername != session.ArcGISUsername {
		t.Errorf("round trip mismatch: got %+v want %+v", got, session)
	}
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateSessionToken(&SessionClaims{SessionID: "sess-1", TenantID: "default"}, "secret-a")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if _, err := ValidateJWT(token, "secret-b"); err == nil {
		t.Error("expected validation failure with wrong secret")
	}
}

func TestValidateJWTRejectsExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"sessionId": "sess-1",
		"iat":       time.Now().Add(-48 * time.Hour).Unix(),
		"exp":       time.Now().Add(-24 * time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ValidateJWT(token, "secret"); err == nil {
		t.Error("expected validation failure for expired token")
	}
}

func TestGetSessionFromClaimsWithoutSession(t *testing.T) {
	claims := jwt.MapClaims{"role": "admin", "tenantId": "default", "type": "admin_auth"}
	if got := GetSessionFromClaims(claims); got != nil {
		t.Errorf("expected nil for admin token claims, got %+v", got)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateSecureKey(64)
	if err != nil {
		t.Fatalf("GenerateSecureKey: %v", err)
	}

	plaintexts := []string{
		"",
		"delegated-token-value",
		strings.Repeat("x", 4096),
	}
	for _, plaintext := range plaintexts {
		encrypted, err := Encrypt(plaintext, key)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		if encrypted == plaintext && plaintext != "" {
			t.Errorf("ciphertext equals plaintext for %q", plaintext)
		}
		decrypted, err := Decrypt(encrypted, key)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("round trip mismatch: got %q want %q", decrypted, plaintext)
		}
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	keyA, _ := GenerateSecureKey(64)
	keyB, _ := GenerateSecureKey(64)

	encrypted, err := Encrypt("delegated-token-value", keyA)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(encrypted, keyB); err == nil {
		t.Error("expected decrypt failure with wrong key")
	}
}

func TestEncryptRejectsEmptyKey(t *testing.T) {
	if _, err := Encrypt("data", ""); err == nil {
		t.Error("expected error for empty key")
	}
}
