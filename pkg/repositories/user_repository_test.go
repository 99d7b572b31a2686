//go:build integration

package repositories

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
)

func TestUserRepository_CreateAndLookup(t *testing.T) {
	tc := setupRepoTest(t)

	user := &models.User{Name: "Ada", Email: "  Ada@Example.COM ", PasswordHash: "hash"}
	require.NoError(t, tc.users.Create(tc.ctx, user))
	assert.Equal(t, "ada@example.com", user.Email)

	byEmail, err := tc.users.GetByEmail(tc.ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Nil(t, byEmail.CurrentWorkspaceID)

	byID, err := tc.users.GetByID(tc.ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", byID.PasswordHash)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	tc := setupRepoTest(t)

	require.NoError(t, tc.users.Create(tc.ctx, &models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "h"}))
	err := tc.users.Create(tc.ctx, &models.User{Name: "Imposter", Email: strings.ToUpper("ada@example.com"), PasswordHash: "h"})
	assert.ErrorIs(t, err, apperrors.ErrEmailTaken)
}

func TestUserRepository_SetCurrentWorkspace(t *testing.T) {
	tc := setupRepoTest(t)
	user := tc.createUser("Ada")
	ws := tc.createWorkspace(user, "Acme")

	require.NoError(t, tc.users.SetCurrentWorkspace(tc.ctx, user.ID, &ws.ID))
	got, err := tc.users.GetByID(tc.ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentWorkspaceID)
	assert.Equal(t, ws.ID, *got.CurrentWorkspaceID)

	require.NoError(t, tc.users.SetCurrentWorkspace(tc.ctx, user.ID, nil))
	got, err = tc.users.GetByID(tc.ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CurrentWorkspaceID)

	err = tc.users.SetCurrentWorkspace(tc.ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_RecordLogin(t *testing.T) {
	tc := setupRepoTest(t)
	user := &models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "h"}
	require.NoError(t, tc.users.Create(tc.ctx, user))

	at := time.Now().Truncate(time.Millisecond)
	require.NoError(t, tc.users.RecordLogin(tc.ctx, user.ID, at))

	got, err := tc.users.GetByID(tc.ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.LastLogin)
	assert.WithinDuration(t, at, *got.LastLogin, time.Millisecond)
}
