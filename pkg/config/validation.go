package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for invalid or inconsistent values.
// Struct-level `validate` tags cover ranges and enumerations; cross-field
// rules are checked explicitly.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}

	if cfg.Mail.Backend == "badger" && cfg.Mail.Path == "" {
		return fmt.Errorf("mail.path is required for the badger backend")
	}

	if cfg.Ping.MinHeartbeat > cfg.Ping.MaxHeartbeat {
		return fmt.Errorf("ping.min_heartbeat (%s) exceeds ping.max_heartbeat (%s)",
			cfg.Ping.MinHeartbeat, cfg.Ping.MaxHeartbeat)
	}
	if cfg.Ping.DefaultHeartbeat < cfg.Ping.MinHeartbeat || cfg.Ping.DefaultHeartbeat > cfg.Ping.MaxHeartbeat {
		return fmt.Errorf("ping.default_heartbeat (%s) outside [%s, %s]",
			cfg.Ping.DefaultHeartbeat, cfg.Ping.MinHeartbeat, cfg.Ping.MaxHeartbeat)
	}

	return nil
}
