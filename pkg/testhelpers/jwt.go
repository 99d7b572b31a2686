// Package testhelpers provides utilities for testing ekaya-teamwork components.
package testhelpers

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/auth"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
)

// TestJWTSecret signs tokens issued by NewTestIssuer.
const TestJWTSecret = "teamwork-test-secret"

// NewTestIssuer returns a TokenIssuer with a fixed secret and a one hour TTL.
func NewTestIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer(TestJWTSecret, "ekaya-teamwork-test", time.Hour)
}

// GenerateTestJWT issues an HS256 token for userID.
func GenerateTestJWT(t *testing.T, userID uuid.UUID, email string) string {
	t.Helper()

	token, _, err := NewTestIssuer().Issue(&models.User{ID: userID, Email: email})
	if err != nil {
		t.Fatalf("Failed to issue test token: %v", err)
	}
	return token
}

// GenerateTestJWTWithBearer returns token with "Bearer " prefix for Authorization header.
func GenerateTestJWTWithBearer(t *testing.T, userID uuid.UUID, email string) string {
	return "Bearer " + GenerateTestJWT(t, userID, email)
}
