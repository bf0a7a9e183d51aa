package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovink/backend/internal/models"
	"lovink/backend/pkg/jwt"
)

func TestStartSession(t *testing.T) {
	db := testDB(t)
	tokens, err := jwt.NewService("secret", "lovink", time.Hour)
	require.NoError(t, err)
	svc := NewUserService(db, tokens)
	ctx := context.Background()

	created, err := svc.StartSession(ctx, &models.SessionRequest{Username: "  sam ", Age: 25})
	require.NoError(t, err)
	require.NotEmpty(t, created.Profile.ID)
	assert.Equal(t, "sam", created.Profile.Username)
	assert.Equal(t, "dark", created.Profile.Theme)

	claims, err := tokens.ValidateToken(created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.Profile.ID, claims.UserID)

	updated, err := svc.StartSession(ctx, &models.SessionRequest{ID: created.Profile.ID, Username: "sammy", Theme: "light"})
	require.NoError(t, err)
	assert.Equal(t, created.Profile.ID, updated.Profile.ID)

	got, err := svc.GetProfile(ctx, created.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "sammy", got.Username)
	assert.Equal(t, "light", got.Theme)
}

func TestStartSessionWithUnknownID(t *testing.T) {
	db := testDB(t)
	tokens, err := jwt.NewService("secret", "lovink", time.Hour)
	require.NoError(t, err)
	svc := NewUserService(db, tokens)

	res, err := svc.StartSession(context.Background(), &models.SessionRequest{ID: "client-made", Username: "kim"})
	require.NoError(t, err)
	assert.Equal(t, "client-made", res.Profile.ID)
}

func TestGetProfileNotFound(t *testing.T) {
	svc := NewUserService(testDB(t), nil)
	_, err := svc.GetProfile(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
