package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSetupWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quant.toml")
	content := `
version = "1.2.3"

[server]
name = "quant-test"
addr = ":0"

[simulation]
paths = 321
seed = 17

[tracing]
enabled = false

[cache]
enabled = true
ttl = "1m"
max_mb = 8
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	rt, err := Setup(Options{ConfigPath: path, Version: "9.9.9"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer rt.Close(context.Background())

	if rt.Config.Simulation.Paths != 321 || rt.Config.Simulation.Seed != 17 {
		t.Errorf("simulation = %+v", rt.Config.Simulation)
	}
	if rt.Config.Version != "9.9.9" {
		t.Errorf("version = %q", rt.Config.Version)
	}
	if rt.Cache == nil {
		t.Error("cache enabled in config but not created")
	}
	if rt.Metrics == nil || rt.Engine == nil || rt.Logger == nil {
		t.Errorf("runtime not fully initialized: %+v", rt)
	}
}

func TestSetupMissingFile(t *testing.T) {
	if _, err := Setup(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")}); err == nil {
		t.Error("expected error for missing config file")
	}
}
