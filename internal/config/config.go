// Package config loads the optional TOML parameter file and the
// environment-sourced external-tool settings.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// SimulationConfig mirrors the simulate flags. Pointer fields distinguish
// "absent" from zero so file values only fill flags the user left alone.
type SimulationConfig struct {
	Theta         *float64 `toml:"theta"` // shorthand: sets both bounds
	ThetaMin      *float64 `toml:"theta-min"`
	ThetaMax      *float64 `toml:"theta-max"`
	Mu            *float64 `toml:"mu"`
	Recombination *float64 `toml:"recombination"`
	Length        *int     `toml:"length"`
}

// FileConfig is the top-level layout of a coalseq parameter file.
type FileConfig struct {
	Simulation SimulationConfig `toml:"simulation"`
}

// Load reads a parameter file. An empty path or a missing file yields an
// empty config, not an error; a present-but-broken file is fatal.
func Load(path string) (*FileConfig, error) {
	var fc FileConfig
	if path == "" {
		return &fc, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &fc, nil
	}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if fc.Simulation.Theta != nil {
		if fc.Simulation.ThetaMin == nil {
			fc.Simulation.ThetaMin = fc.Simulation.Theta
		}
		if fc.Simulation.ThetaMax == nil {
			fc.Simulation.ThetaMax = fc.Simulation.Theta
		}
	}
	return &fc, nil
}

// Tools names the external executables and their shared timeout.
type Tools struct {
	Engine      string        `envconfig:"COALSEQ_ENGINE" default:"mscoal"`
	SeqGen      string        `envconfig:"COALSEQ_SEQGEN" default:"seq-gen"`
	SeqGenModel string        `envconfig:"COALSEQ_SEQGEN_MODEL" default:"HKY"`
	SeqGenScale float64       `envconfig:"COALSEQ_SEQGEN_SCALE"`
	Infer       string        `envconfig:"COALSEQ_INFER" default:"iqtree2"`
	ToolTimeout time.Duration `envconfig:"COALSEQ_TOOL_TIMEOUT" default:"10m"`
}

// ToolsFromEnv resolves tool settings from the environment.
func ToolsFromEnv() (Tools, error) {
	var t Tools
	if err := envconfig.Process("", &t); err != nil {
		return Tools{}, err
	}
	return t, nil
}
