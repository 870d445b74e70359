// Package genealogy persists the simulated interval/tree sequence: one
// newick file per genomic interval plus a positional length table, the
// hand-off point between the simulation and sequence-synthesis stages.
package genealogy

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"coalseq-core/coalescent"
)

// Artifact names under the run directory.
const (
	TreeDir    = "ms_genetrees"
	LengthFile = "ms_genetree_lengths"
)

// LengthTable maps interval index (dense, 0-based) to interval length in
// sites.
type LengthTable []int

// Total sums all interval lengths, i.e. the realized chromosome length.
func (lt LengthTable) Total() int {
	n := 0
	for _, l := range lt {
		n += l
	}
	return n
}

// Write persists the table, one integer per line in index order. Reruns
// overwrite.
func (lt LengthTable) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, n := range lt {
		if _, err := fmt.Fprintf(w, "%d\n", n); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadLengths reads a persisted length table. A malformed entry is a hard
// failure, never skipped.
func LoadLengths(path string) (LengthTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lt LengthTable
	for i, line := range strings.Fields(string(b)) {
		n, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("length table %s: entry %d: %q is not an integer", path, i, line)
		}
		if n <= 0 {
			return nil, fmt.Errorf("length table %s: entry %d: non-positive length %d", path, i, n)
		}
		lt = append(lt, n)
	}
	if len(lt) == 0 {
		return nil, fmt.Errorf("length table %s is empty", path)
	}
	return lt, nil
}

// Serialize writes interval i's local tree to dir/ms_genetrees/i.phy, in
// genome order with no gaps, and persists the matching length table. The
// tree directory is replaced wholesale, so a rerun with fewer intervals
// leaves no stale tree files behind.
func Serialize(intervals []coalescent.Interval, dir string) (LengthTable, error) {
	td := filepath.Join(dir, TreeDir)
	if err := os.RemoveAll(td); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(td, 0o755); err != nil {
		return nil, err
	}
	lt := make(LengthTable, 0, len(intervals))
	for i, iv := range intervals {
		nw := strings.TrimRight(iv.Tree, "\n") + "\n"
		path := filepath.Join(td, fmt.Sprintf("%d.phy", i))
		if err := os.WriteFile(path, []byte(nw), 0o644); err != nil {
			return nil, err
		}
		lt = append(lt, iv.Length)
	}
	if err := lt.Write(filepath.Join(dir, LengthFile)); err != nil {
		return nil, err
	}
	return lt, nil
}
