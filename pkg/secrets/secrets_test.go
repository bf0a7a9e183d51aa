package secrets

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovink/backend/pkg/config"
	"lovink/backend/pkg/logger"
)

func TestEnvManager(t *testing.T) {
	t.Setenv("GENERATOR_API_KEY", "k-123")
	ctx := context.Background()

	v, err := EnvManager{}.GetSecret(ctx, "generator.api-key")
	require.NoError(t, err)
	assert.Equal(t, "k-123", v)

	_, err = EnvManager{}.GetSecret(ctx, "nope.missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)
	assert.Equal(t, "fallback", GetWithDefault(ctx, EnvManager{}, "nope.missing", "fallback"))
}

func TestNewManagerRequiresVaultSettings(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	cfg := config.Load()

	m, err := NewManager(cfg, log)
	require.NoError(t, err)
	assert.IsType(t, EnvManager{}, m)

	cfg.Vault.Enabled = true
	cfg.Vault.Token = ""
	_, err = NewManager(cfg, log)
	assert.ErrorIs(t, err, ErrNoVaultToken)
}
