package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenNoFileOrEnv(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlayerName != "Hunter" || cfg.TickInterval != 30*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_YamlOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arise.yaml")
	os.WriteFile(path, []byte("player_name: Jinwoo\ntick_seconds: 10\nrate_limit:\n  per_second: 5\n"), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlayerName != "Jinwoo" || cfg.TickInterval != 10*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.RateLimit.PerSecond != 5 || cfg.RateLimit.Burst != 40 {
		t.Errorf("rate limit = %+v, want override and default", cfg.RateLimit)
	}
}

func TestLoad_EnvBeatsYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arise.yaml")
	os.WriteFile(path, []byte("player_name: Jinwoo\ntick_seconds: 10\n"), 0o644)
	t.Setenv("ARISE_PLAYER_NAME", "Cha Hae-In")
	t.Setenv("ARISE_TICK_SECONDS", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlayerName != "Cha Hae-In" || cfg.TickInterval != 5*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_MissingYamlIsFine(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Errorf("load with missing file: %v", err)
	}
}

func TestLoad_RejectsBadTick(t *testing.T) {
	t.Setenv("ARISE_TICK_SECONDS", "0")
	if _, err := Load(""); err == nil {
		t.Error("zero tick accepted")
	}
}

func TestLoad_IgnoresUnparsableEnvInt(t *testing.T) {
	t.Setenv("ARISE_TICK_SECONDS", "soon")
	cfg, err := Load("")
	if err != nil || cfg.TickSeconds != 30 {
		t.Errorf("cfg = %+v, %v, want default 30", cfg, err)
	}
}
