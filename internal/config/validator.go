package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for:
//   - A known no_satisfied_child behavior
//   - A positive queue depth and operation timeout
//   - Positive session TTLs and sweep interval
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	if err := cfg.Dialogue.Settings().Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("dialogue: %s", err))
	}
	if cfg.Engine.QueueDepth < 1 {
		errs = append(errs, fmt.Sprintf("engine: queue_depth must be positive, got %d", cfg.Engine.QueueDepth))
	}
	if cfg.Engine.OpTimeoutMs < 1 {
		errs = append(errs, fmt.Sprintf("engine: op_timeout_ms must be positive, got %d", cfg.Engine.OpTimeoutMs))
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"session_idle_ttl_sec", cfg.Engine.SessionIdleTTLSec},
		{"ended_session_ttl_sec", cfg.Engine.EndedSessionTTLSec},
		{"sweep_interval_sec", cfg.Engine.SweepIntervalSec},
	} {
		if f.v < 1 {
			errs = append(errs, fmt.Sprintf("engine: %s must be positive, got %d", f.name, f.v))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
