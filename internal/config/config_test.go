package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/config"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/dialogue"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dialogue.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader_Defaults(t *testing.T) {
	l, err := config.NewLoader(writeConfig(t, "version: v1\n"))
	if err != nil {
		t.Fatal(err)
	}
	cfg := l.Config()
	if cfg.Engine.QueueDepth != 1024 || cfg.Engine.OpTimeoutMs != 2000 {
		t.Errorf("engine = %+v, want defaults", cfg.Engine)
	}
	if cfg.Engine.SessionIdleTTLSec != 1800 || cfg.Engine.EndedSessionTTLSec != 300 || cfg.Engine.SweepIntervalSec != 60 {
		t.Errorf("session ttls = %+v, want defaults", cfg.Engine)
	}
	if got := cfg.Dialogue.Settings(); got.NoSatisfiedChild != dialogue.StuckWarnAndEnd || got.RandomSeed != 0 {
		t.Errorf("settings = %+v", got)
	}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoader_Values(t *testing.T) {
	l, err := config.NewLoader(writeConfig(t, `
version: v1
dialogue:
  no_satisfied_child: continue
  random_seed: 99
engine:
  queue_depth: 8
  op_timeout_ms: 50
  session_idle_ttl_sec: 600
  ended_session_ttl_sec: 30
  sweep_interval_sec: 5
memory:
  clear_on_reload: true
`))
	if err != nil {
		t.Fatal(err)
	}
	cfg := l.Config()
	s := cfg.Dialogue.Settings()
	if s.NoSatisfiedChild != dialogue.StuckContinue || s.RandomSeed != 99 {
		t.Errorf("settings = %+v", s)
	}
	if cfg.Engine.QueueDepth != 8 || cfg.Engine.OpTimeoutMs != 50 || !cfg.Memory.ClearOnReload {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.Engine.SessionIdleTTLSec != 600 || cfg.Engine.EndedSessionTTLSec != 30 || cfg.Engine.SweepIntervalSec != 5 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoader_Errors(t *testing.T) {
	if _, err := config.NewLoader(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := config.NewLoader(writeConfig(t, "version: [")); err == nil {
		t.Error("malformed YAML accepted")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
		want []string
	}{
		{
			name: "missing version",
			cfg:  config.Config{},
			want: []string{"version is required"},
		},
		{
			name: "everything wrong",
			cfg: config.Config{
				Version:  "v1",
				Dialogue: config.DialogueConf{NoSatisfiedChild: "panic"},
				Engine:   config.EngineConf{QueueDepth: -1, OpTimeoutMs: 0, SessionIdleTTLSec: -5},
			},
			want: []string{"no_satisfied_child", "queue_depth", "op_timeout_ms", "session_idle_ttl_sec", "ended_session_ttl_sec", "sweep_interval_sec"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := config.Validate(&tc.cfg)
			if err == nil {
				t.Fatal("expected an error")
			}
			for _, w := range tc.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q does not mention %q", err, w)
				}
			}
		})
	}
}

func TestLoader_Reload(t *testing.T) {
	path := writeConfig(t, "version: v1\n")
	l, err := config.NewLoader(path)
	if err != nil {
		t.Fatal(err)
	}
	var seen []*config.Config
	l.OnChange(func(c *config.Config) { seen = append(seen, c) })

	if err := os.WriteFile(path, []byte("version: v2\nengine:\n  queue_depth: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := l.Reload()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Version != "v2" || l.Config().Engine.QueueDepth != 4 {
		t.Errorf("reloaded config = %+v", cfg)
	}
	if len(seen) != 1 || seen[0] != cfg {
		t.Errorf("callbacks saw %d configs", len(seen))
	}

	// An invalid file keeps the previous config and skips callbacks.
	if err := os.WriteFile(path, []byte("version: v3\ndialogue:\n  no_satisfied_child: explode\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(); err == nil {
		t.Error("invalid config accepted")
	}
	if l.Config().Version != "v2" || len(seen) != 1 {
		t.Error("invalid reload replaced the config")
	}
}

func TestDefault(t *testing.T) {
	if err := config.Validate(config.Default()); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
