package config

import (
	"errors"
	"time"
)

// ErrMissingProxyKey is returned by RequireProxyKey when no upstream key is
// configured.
var ErrMissingProxyKey = errors.New("missing required config: proxy API key. Set it via environment variable FORLOVE_PROXY_API_KEY or `forlove config set-secret proxy.api_key`")

type Config struct {
	Server      ServerConfig
	Generator   GeneratorConfig
	Storage     StorageConfig
	Proxy       ProxyConfig
	Entitlement EntitlementConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type GeneratorConfig struct {
	Endpoint    string
	Timeout     time.Duration
	MinInterval time.Duration
}

type StorageConfig struct {
	DataDir string
}

type ProxyConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

type EntitlementConfig struct {
	FullAccess bool
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Port: 4100},
		Generator: GeneratorConfig{
			Endpoint:    "http://127.0.0.1:4100/generate",
			Timeout:     30 * time.Second,
			MinInterval: time.Second,
		},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Proxy: ProxyConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "deepseek/deepseek-chat",
			Temperature: 0.7,
			MaxTokens:   500,
		},
		Entitlement: EntitlementConfig{FullAccess: true},
		Log:         LogConfig{Level: "info"},
	}
}

// Load reads configuration from the JSON file backend at ConfigFilePath,
// then FORLOVE_* environment variables, then the secrets file in the data
// directory for secrets still unset.
func Load() (Config, error) {
	return loadWith(newFileBackend(ConfigFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	secrets := newSecretStore(cfg.Storage.DataDir)
	for _, s := range specs {
		if !s.secret || s.extract(cfg) != "" {
			continue
		}
		if v, err := secrets.Get(s.key); err == nil && v != "" {
			s.apply(&cfg, v)
		}
	}
	return cfg, nil
}

// RequireProxyKey reports ErrMissingProxyKey when the upstream key is unset.
func (c Config) RequireProxyKey() error {
	if c.Proxy.APIKey == "" {
		return ErrMissingProxyKey
	}
	return nil
}
