package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Server.Listen != DefaultListen {
		t.Fatalf("listen=%q", cfg.Server.Listen)
	}
	if cfg.Simulation.Interval != 3*time.Second || cfg.Simulation.Window != 24 {
		t.Fatalf("simulation=%+v", cfg.Simulation)
	}
	if cfg.Analysis.Model != "gemini-3-flash-preview" || cfg.Analysis.ThinkingBudget != 0 {
		t.Fatalf("analysis=%+v", cfg.Analysis)
	}
	if cfg.Log.Capacity != 50 {
		t.Fatalf("capacity=%d", cfg.Log.Capacity)
	}
	if len(cfg.Doctor.STUNServers) != 1 {
		t.Fatalf("stun=%v", cfg.Doctor.STUNServers)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoad_ParsesDurationsAndKeepsDefaults(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	path := filepath.Join(tmp, "sovereign.yaml")
	data := `
server:
  listen: "127.0.0.1:9090"
simulation:
  interval: 500ms
  seed: 42
  drift_all: true
analysis:
  api_key: "from-file"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Listen != "127.0.0.1:9090" {
		t.Fatalf("listen=%q", cfg.Server.Listen)
	}
	if cfg.Simulation.Interval != 500*time.Millisecond || cfg.Simulation.Seed != 42 || !cfg.Simulation.DriftAll {
		t.Fatalf("simulation=%+v", cfg.Simulation)
	}
	if cfg.Simulation.Window != DefaultWindow {
		t.Fatalf("window=%d", cfg.Simulation.Window)
	}
	if cfg.Analysis.APIKey == "from-file" {
		t.Fatalf("api key must not be read from the file")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	cfg := Default()
	env := map[string]string{EnvAPIKey: "k-123", EnvLogLevel: " DEBUG "}
	ApplyEnv(&cfg, func(k string) string { return env[k] })

	if cfg.Analysis.APIKey != "k-123" {
		t.Fatalf("api key=%q", cfg.Analysis.APIKey)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("level=%q", cfg.Log.Level)
	}
}

func TestValidate_ReportsFields(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Analysis.Endpoint = "not a url"
	cfg.Server.AuthSecret = "short"

	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected error")
	}
	got := err.Error()
	for _, want := range []string{"log.level: oneof", "analysis.endpoint: url", "server.auth_secret: min"} {
		if !strings.Contains(got, want) {
			t.Fatalf("error missing %q: %s", want, got)
		}
	}
}

func TestSave_Writes0600(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	path := filepath.Join(tmp, "conf", "sovereign.yaml")
	cfg := Config{Server: ServerConfig{Listen: ":7000"}}
	cfg.Analysis.APIKey = "secret"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode=%o", info.Mode().Perm())
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "secret") {
		t.Fatalf("api key persisted:\n%s", data)
	}
	if !strings.Contains(string(data), "interval: 3s") {
		t.Fatalf("duration not rendered:\n%s", data)
	}
}
