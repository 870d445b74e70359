// Package seqgen drives the external sequence-evolution tool over every
// serialized local tree, producing one aligned fragment per genomic
// interval.
package seqgen

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"coalseq-core/alignment"
	"coalseq-core/genealogy"
	"coalseq/internal/toolexec"
)

var (
	// ErrMissingLength reports a tree file with no length-table entry.
	ErrMissingLength = errors.New("no recorded length for interval")
	// ErrGeneration reports a failing sequence-evolution run. Partial
	// output is left on disk for diagnosis.
	ErrGeneration = errors.New("sequence generation failed")
)

// Runner holds the external tool's configuration.
type Runner struct {
	Path    string  // sequence-evolution executable
	Model   string  // substitution model, e.g. HKY
	Scale   float64 // branch-scale parameter, 0 = tool default
	Timeout time.Duration
	Log     *logrus.Logger
}

type treeFile struct {
	idx  int
	path string
}

// treeFiles returns interval indices and their tree paths, numerically
// sorted by stem. Directory listing order is never trusted: "10.phy" lists
// before "2.phy" on most filesystems.
func treeFiles(dir string) ([]treeFile, error) {
	td := filepath.Join(dir, genealogy.TreeDir)
	entries, err := os.ReadDir(td)
	if err != nil {
		return nil, err
	}
	var out []treeFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".phy") {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(e.Name(), ".phy"))
		if err != nil {
			continue
		}
		out = append(out, treeFile{idx: idx, path: filepath.Join(td, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].idx < out[j].idx })
	return out, nil
}

// Synthesize generates seqs/{i}.fa for every tree under dir/ms_genetrees,
// looking each interval's site count up in the persisted length table.
// Reruns overwrite fragments in place.
func (r *Runner) Synthesize(ctx context.Context, dir string) error {
	lt, err := genealogy.LoadLengths(filepath.Join(dir, genealogy.LengthFile))
	if err != nil {
		return err
	}
	files, err := treeFiles(dir)
	if err != nil {
		return err
	}
	seqDir := filepath.Join(dir, alignment.SeqDir)
	if err := os.MkdirAll(seqDir, 0o755); err != nil {
		return err
	}

	for _, tf := range files {
		if tf.idx >= len(lt) {
			return fmt.Errorf("%w: interval %d (table has %d entries)", ErrMissingLength, tf.idx, len(lt))
		}
		out := filepath.Join(seqDir, fmt.Sprintf("%d.fa", tf.idx))
		if err := r.generate(ctx, tf.path, lt[tf.idx], out); err != nil {
			return err
		}
		if r.Log != nil {
			r.Log.WithFields(logrus.Fields{"interval": tf.idx, "sites": lt[tf.idx]}).Debug("fragment generated")
		}
	}
	if r.Log != nil {
		r.Log.WithFields(logrus.Fields{"stage": "seqs", "fragments": len(files)}).Info("sequence fragments generated")
	}
	return nil
}

func (r *Runner) generate(ctx context.Context, treePath string, length int, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	model := r.Model
	if model == "" {
		model = "HKY"
	}
	args := []string{"-m" + model, fmt.Sprintf("-l%d", length)}
	if r.Scale > 0 {
		args = append(args, fmt.Sprintf("-s%g", r.Scale))
	}
	args = append(args, treePath)

	runErr := toolexec.Run(ctx, r.Timeout, r.Path, args, nil, w)
	flushErr := w.Flush()
	closeErr := f.Close()
	if runErr != nil {
		// Whatever the tool wrote stays on disk for diagnosis.
		if errors.Is(runErr, toolexec.ErrTimeout) {
			return runErr
		}
		return fmt.Errorf("%w: %s on %s: %v", ErrGeneration, r.Path, treePath, runErr)
	}
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
