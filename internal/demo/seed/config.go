package seed

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	APIBaseURL     string
	APIKey         string
	Authors        int
	MinBooks       int
	MaxBooks       int
	HTTPTimeout    time.Duration
	Seed           int64
	IncludeClassic bool
}

func DefaultConfig() Config {
	return Config{
		APIBaseURL:     "http://localhost:8080",
		Authors:        5,
		MinBooks:       1,
		MaxBooks:       4,
		HTTPTimeout:    10 * time.Second,
		Seed:           time.Now().UTC().UnixNano(),
		IncludeClassic: true,
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	steps := []func() error{
		func() error { return applyString(lookup, "SHELFCHAT_SEED_API_URL", &cfg.APIBaseURL) },
		func() error { return applyString(lookup, "SHELFCHAT_SEED_API_KEY", &cfg.APIKey) },
		func() error { return applyInt(lookup, "SHELFCHAT_SEED_AUTHORS", &cfg.Authors) },
		func() error { return applyInt(lookup, "SHELFCHAT_SEED_MIN_BOOKS", &cfg.MinBooks) },
		func() error { return applyInt(lookup, "SHELFCHAT_SEED_MAX_BOOKS", &cfg.MaxBooks) },
		func() error { return applyDuration(lookup, "SHELFCHAT_SEED_HTTP_TIMEOUT", &cfg.HTTPTimeout) },
		func() error { return applyInt64(lookup, "SHELFCHAT_SEED_SEED", &cfg.Seed) },
		func() error { return applyBool(lookup, "SHELFCHAT_SEED_INCLUDE_CLASSIC", &cfg.IncludeClassic) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return Config{}, fmt.Errorf("SHELFCHAT_SEED_API_URL is required")
	}
	if cfg.Authors < 0 {
		return Config{}, fmt.Errorf("SHELFCHAT_SEED_AUTHORS must be >= 0")
	}
	if cfg.MinBooks < 0 || cfg.MaxBooks < cfg.MinBooks {
		return Config{}, fmt.Errorf("SHELFCHAT_SEED_MIN_BOOKS must be >= 0 and <= SHELFCHAT_SEED_MAX_BOOKS")
	}
	if cfg.HTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("SHELFCHAT_SEED_HTTP_TIMEOUT must be > 0")
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return cfg, nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
