//go:build integration

package testhelpers

import (
	"testing"

	"github.com/google/uuid"
)

func TestTestDB_MigrationsApplied(t *testing.T) {
	testDB := GetTestDB(t)
	ctx := testDB.ScopedContext(t)

	for _, table := range []string{"roles", "users", "workspaces", "workspace_members", "projects", "tasks"} {
		var exists bool
		err := testDB.DB.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
			table).Scan(&exists)
		if err != nil {
			t.Fatalf("failed to look up %s: %v", table, err)
		}
		if !exists {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestGenerateTestJWT_Validates(t *testing.T) {
	userID := uuid.New()
	token := GenerateTestJWT(t, userID, "ada@example.com")

	claims, err := NewTestIssuer().ValidateToken(token)
	if err != nil {
		t.Fatalf("expected issued token to validate: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Errorf("expected subject %s, got %s", userID, claims.Subject)
	}
}
