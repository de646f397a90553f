package config

import "github.com/gyaneshwarpardhi/dlgsystem/internal/dialogue"

// Config is the top-level YAML structure.
type Config struct {
	Version  string       `yaml:"version"`
	Dialogue DialogueConf `yaml:"dialogue"`
	Engine   EngineConf   `yaml:"engine"`
	Memory   MemoryConf   `yaml:"memory"`
}

// DialogueConf tunes traversal.
type DialogueConf struct {
	NoSatisfiedChild string `yaml:"no_satisfied_child"` // warn_and_end | end | continue
	RandomSeed       uint64 `yaml:"random_seed"`        // 0 = time seeded
}

// EngineConf holds the session worker settings.
type EngineConf struct {
	QueueDepth  int `yaml:"queue_depth"`
	OpTimeoutMs int `yaml:"op_timeout_ms"`

	// Sessions untouched for SessionIdleTTLSec, or ended and untouched for
	// EndedSessionTTLSec, are removed every SweepIntervalSec.
	SessionIdleTTLSec  int `yaml:"session_idle_ttl_sec"`
	EndedSessionTTLSec int `yaml:"ended_session_ttl_sec"`
	SweepIntervalSec   int `yaml:"sweep_interval_sec"`
}

// MemoryConf controls the process-wide visit and selection history.
type MemoryConf struct {
	ClearOnReload bool `yaml:"clear_on_reload"`
}

// Settings converts the dialogue section into traversal settings.
func (d DialogueConf) Settings() dialogue.Settings {
	s := dialogue.Settings{
		NoSatisfiedChild: dialogue.NoSatisfiedChildBehavior(d.NoSatisfiedChild),
		RandomSeed:       d.RandomSeed,
	}
	if s.NoSatisfiedChild == "" {
		s.NoSatisfiedChild = dialogue.StuckWarnAndEnd
	}
	return s
}
