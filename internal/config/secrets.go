package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// secretStore keeps secrets in a 0600 JSON file in the data directory.
type secretStore struct {
	path string
}

func newSecretStore(dataDir string) secretStore {
	return secretStore{path: filepath.Join(dataDir, "secrets.json")}
}

func (s secretStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var secrets map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

func (s secretStore) Get(key string) (string, error) {
	secrets, err := s.read()
	if err != nil {
		return "", err
	}
	v, ok := secrets[key]
	if !ok {
		return "", fmt.Errorf("secret %q not found", key)
	}
	return v, nil
}

func (s secretStore) Set(key, value string) error {
	secrets, err := s.read()
	if err != nil || secrets == nil {
		secrets = make(map[string]string)
	}
	secrets[key] = value

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, out, 0o600)
}

// GetAPIToken returns the management API token, generating and storing a
// new one on first use. The environment variable wins when set.
func GetAPIToken(dataDir string) (string, error) {
	if tok := os.Getenv("FORLOVE_API_TOKEN"); tok != "" {
		return tok, nil
	}
	store := newSecretStore(dataDir)
	if tok, err := store.Get("server.api_token"); err == nil && tok != "" {
		return tok, nil
	}
	tok := uuid.NewString()
	if err := store.Set("server.api_token", tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
