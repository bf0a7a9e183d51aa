package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"

	"lovink/backend/pkg/cache"
	"lovink/backend/pkg/config"
	"lovink/backend/pkg/logger"
)

var (
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// VaultManager reads one KVv2 secret document and falls back to the
// environment for keys it does not hold
type VaultManager struct {
	client *vault.Client
	mount  string
	path   string
	cache  *cache.Cache[string, string]
	env    EnvManager
	log    *logger.Logger
}

// NewVaultManager creates a Vault client from the Vault config section
func NewVaultManager(cfg *config.Config, log *logger.Logger) (*VaultManager, error) {
	vc := cfg.Vault
	if vc.Addr == "" {
		return nil, ErrNoVaultAddress
	}
	if vc.Token == "" {
		return nil, ErrNoVaultToken
	}

	clientCfg := vault.DefaultConfig()
	clientCfg.Address = vc.Addr
	clientCfg.Timeout = 10 * time.Second
	clientCfg.MaxRetries = 3
	client, err := vault.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	client.SetToken(vc.Token)

	return &VaultManager{
		client: client,
		mount:  vc.Mount,
		path:   vc.Path,
		cache:  cache.New[string, string](cache.Options{TTL: 5 * time.Minute}),
		log:    log,
	}, nil
}

// GetSecret implements Manager
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	if v, ok := m.cache.Get(key); ok {
		return v, nil
	}

	v, err := m.fromVault(ctx, key)
	if errors.Is(err, ErrSecretNotFound) {
		v, err = m.env.GetSecret(ctx, key)
	} else if err != nil {
		m.log.LogError(err, "vault read failed, using environment", "key", key)
		v, err = m.env.GetSecret(ctx, key)
	}
	if err != nil {
		return "", err
	}
	m.cache.Set(key, v)
	return v, nil
}

func (m *VaultManager) fromVault(ctx context.Context, key string) (string, error) {
	secret, err := m.client.KVv2(m.mount).Get(ctx, m.path)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", ErrSecretNotFound
		}
		return "", fmt.Errorf("read %s/%s: %w", m.mount, m.path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}
	v, ok := secret.Data[key].(string)
	if !ok || v == "" {
		return "", ErrSecretNotFound
	}
	return v, nil
}

// Close releases the cache
func (m *VaultManager) Close() {
	m.cache.Close()
}
