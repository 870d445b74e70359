// Package runmeta persists the per-run manifest that downstream stages
// read back: tip count, realized length, sampled parameters.
package runmeta

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

// File is the manifest's name inside a run directory.
const File = "run.toml"

// Manifest records one simulation run. Assembly and windowing rely on
// NTips and RealizedLength; the rest is provenance.
type Manifest struct {
	RunID           string            `toml:"run_id"`
	CreatedAt       time.Time         `toml:"created_at"`
	Seed            int64             `toml:"seed"`
	Theta           float64           `toml:"theta"`
	Ne              float64           `toml:"ne"`
	Mu              float64           `toml:"mu"`
	Recomb          float64           `toml:"recombination_rate"`
	RequestedLength int               `toml:"requested_length"`
	RealizedLength  int               `toml:"realized_length"`
	NTips           int               `toml:"ntips"`
	Intervals       int               `toml:"intervals"`
	Tips            map[string]string `toml:"tips"`
}

// New returns a manifest stamped with a fresh run id and the current time.
func New() *Manifest {
	return &Manifest{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Tips:      map[string]string{},
	}
}

// Write stores the manifest under dir.
func (m *Manifest) Write(dir string) error {
	f, err := os.Create(filepath.Join(dir, File))
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads the manifest from dir.
func Load(dir string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(filepath.Join(dir, File), &m); err != nil {
		return nil, err
	}
	return &m, nil
}
