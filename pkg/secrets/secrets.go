package secrets

import (
	"context"
	"errors"
	"os"
	"strings"

	"lovink/backend/pkg/config"
	"lovink/backend/pkg/logger"
)

// ErrSecretNotFound is returned when no source has the key
var ErrSecretNotFound = errors.New("secret not found")

// Manager resolves named secrets
type Manager interface {
	GetSecret(ctx context.Context, key string) (string, error)
}

// GetWithDefault resolves key through m, returning def when missing
func GetWithDefault(ctx context.Context, m Manager, key, def string) string {
	v, err := m.GetSecret(ctx, key)
	if err != nil || v == "" {
		return def
	}
	return v
}

// EnvManager reads secrets from the environment. "jwt.secret" maps to
// JWT_SECRET.
type EnvManager struct{}

func envKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

// GetSecret implements Manager
func (EnvManager) GetSecret(_ context.Context, key string) (string, error) {
	if v := os.Getenv(envKey(key)); v != "" {
		return v, nil
	}
	return "", ErrSecretNotFound
}

// NewManager returns a Vault-backed manager when Vault is enabled, else the
// environment
func NewManager(cfg *config.Config, log *logger.Logger) (Manager, error) {
	if !cfg.Vault.Enabled {
		return EnvManager{}, nil
	}
	return NewVaultManager(cfg, log)
}
