package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ROLLBAR_"

// Config holds the notifier settings.
type Config struct {
	AccessToken string        `koanf:"access_token"`
	Endpoint    string        `koanf:"endpoint" validate:"required,url"`
	Environment string        `koanf:"environment" validate:"required"`
	CodeVersion string        `koanf:"code_version"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	LogLevel    string        `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogJSON     bool          `koanf:"log_json"`
}

func Default() *Config {
	return &Config{
		Endpoint:    "https://api.rollbar.com/api/1/item/",
		Environment: "production",
		Timeout:     10 * time.Second,
		LogLevel:    "info",
	}
}

// Load resolves the configuration from defaults, then non-empty ROLLBAR_*
// environment variables, then overrides. Override keys use the koanf tag names.
func Load(overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			if value == "" {
				return "", nil
			}
			return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to apply override %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
