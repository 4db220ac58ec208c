package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "FORLOVE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "FORLOVE_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "generator.endpoint", typ: kString, env: "FORLOVE_GENERATOR_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Generator.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Generator.Endpoint },
	},
	{
		key: "generator.timeout", typ: kDuration, env: "FORLOVE_GENERATOR_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Generator.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Generator.Timeout },
	},
	{
		key: "generator.min_interval", typ: kDuration, env: "FORLOVE_GENERATOR_MIN_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Generator.MinInterval = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Generator.MinInterval },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FORLOVE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "proxy.base_url", typ: kString, env: "FORLOVE_PROXY_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Proxy.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Proxy.BaseURL },
	},
	{
		key: "proxy.api_key", typ: kString, env: "FORLOVE_PROXY_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Proxy.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Proxy.APIKey },
	},
	{
		key: "proxy.model", typ: kString, env: "FORLOVE_PROXY_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Proxy.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Proxy.Model },
	},
	{
		key: "proxy.temperature", typ: kFloat, env: "FORLOVE_PROXY_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Proxy.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Proxy.Temperature },
	},
	{
		key: "proxy.max_tokens", typ: kInt, env: "FORLOVE_PROXY_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Proxy.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Proxy.MaxTokens },
	},
	{
		key: "entitlement.full_access", typ: kBool, env: "FORLOVE_FULL_ACCESS",
		apply:   func(cfg *Config, v any) { cfg.Entitlement.FullAccess = v.(bool) },
		extract: func(cfg Config) any { return cfg.Entitlement.FullAccess },
	},
	{
		key: "log.level", typ: kString, env: "FORLOVE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parseValue converts raw into the Go type of s.
func parseValue(s keySpec, raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || raw == "" {
			continue
		}
		v, err := parseValue(s, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
