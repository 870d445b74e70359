package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "nope.toml")} {
		fc, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if fc.Simulation.Mu != nil || fc.Simulation.ThetaMin != nil {
			t.Fatalf("Load(%q): want empty config, got %+v", path, fc.Simulation)
		}
	}
}

func TestLoadFillsFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.toml")
	body := `[simulation]
theta-min = 0.005
theta-max = 0.05
mu = 1e-6
recombination = 1e-8
length = 100000
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := fc.Simulation
	if s.ThetaMin == nil || *s.ThetaMin != 0.005 {
		t.Fatalf("ThetaMin = %v, want 0.005", s.ThetaMin)
	}
	if s.Length == nil || *s.Length != 100000 {
		t.Fatalf("Length = %v, want 100000", s.Length)
	}
}

func TestLoadThetaShorthand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.toml")
	if err := os.WriteFile(path, []byte("[simulation]\ntheta = 0.01\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := fc.Simulation
	if s.ThetaMin == nil || s.ThetaMax == nil || *s.ThetaMin != 0.01 || *s.ThetaMax != 0.01 {
		t.Fatalf("theta shorthand not expanded: min=%v max=%v", s.ThetaMin, s.ThetaMax)
	}
}

func TestLoadBrokenFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.toml")
	if err := os.WriteFile(path, []byte("[simulation\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("want error for malformed TOML")
	}
}

func TestToolsFromEnv(t *testing.T) {
	t.Setenv("COALSEQ_ENGINE", "/opt/bin/mycoal")
	t.Setenv("COALSEQ_TOOL_TIMEOUT", "90s")
	tools, err := ToolsFromEnv()
	if err != nil {
		t.Fatalf("ToolsFromEnv: %v", err)
	}
	if tools.Engine != "/opt/bin/mycoal" {
		t.Fatalf("Engine = %q", tools.Engine)
	}
	if tools.ToolTimeout != 90*time.Second {
		t.Fatalf("ToolTimeout = %v", tools.ToolTimeout)
	}
	if tools.SeqGen != "seq-gen" || tools.Infer != "iqtree2" {
		t.Fatalf("defaults not applied: %+v", tools)
	}
}
