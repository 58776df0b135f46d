package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/vault/api"
)

// Secrets are the connection strings the pipeline needs. They live in Vault,
// not the environment; a missing key is a startup failure.
type Secrets struct {
	PGURL             string
	NATSURL           string
	KafkaBrokers      string
	SchemaRegistryURL string
}

// SecretManager wraps the Vault API client for reading secrets.
type SecretManager struct {
	client *api.Client
}

// NewSecretManager creates a Vault client pointed at the given address
// and authenticated with the provided token.
func NewSecretManager(address, token string) (*SecretManager, error) {
	cfg := api.DefaultConfig()
	cfg.Address = address

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client initialization failed: %w", err)
	}
	client.SetToken(token)

	return &SecretManager{client: client}, nil
}

// GetSecret reads a secret at the given path and returns the raw data map.
// For KV v2 backends the caller must unwrap the nested "data" key.
func (s *SecretManager) GetSecret(path string) (map[string]interface{}, error) {
	secret, err := s.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret at %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no data found at %s", path)
	}
	return secret.Data, nil
}

// GetKV2 is a convenience wrapper that reads from a KV v2 backend and
// returns the inner "data" map, unwrapping the v2 envelope automatically.
func (s *SecretManager) GetKV2(path string) (map[string]interface{}, error) {
	raw, err := s.GetSecret(path)
	if err != nil {
		return nil, err
	}
	data, ok := raw["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected data format at %s", path)
	}
	return data, nil
}

// LoadSecrets connects to Vault using VAULT_ADDR / VAULT_TOKEN /
// VAULT_SECRET_PATH (with local-dev defaults) and pulls the four connection
// secrets the pipeline requires.
func LoadSecrets() (*Secrets, error) {
	vaultAddr := os.Getenv("VAULT_ADDR")
	if vaultAddr == "" {
		vaultAddr = "http://localhost:8200"
	}
	vaultToken := os.Getenv("VAULT_TOKEN")
	if vaultToken == "" {
		vaultToken = "root"
	}
	secretPath := os.Getenv("VAULT_SECRET_PATH")
	if secretPath == "" {
		secretPath = "secret/data/pms/trade-capture"
	}

	sm, err := NewSecretManager(vaultAddr, vaultToken)
	if err != nil {
		return nil, err
	}
	data, err := sm.GetKV2(secretPath)
	if err != nil {
		return nil, err
	}

	s := &Secrets{}
	for key, dst := range map[string]*string{
		"PG_URL":              &s.PGURL,
		"NATS_URL":            &s.NATSURL,
		"KAFKA_BROKERS":       &s.KafkaBrokers,
		"SCHEMA_REGISTRY_URL": &s.SchemaRegistryURL,
	} {
		v, ok := data[key].(string)
		if !ok || v == "" {
			return nil, fmt.Errorf("secret %s missing or empty at %s", key, secretPath)
		}
		*dst = v
	}
	return s, nil
}
