// Package window slices the assembled alignment into sliding analysis
// windows and persists one sequence file per window plus an index table.
package window

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evolbioinfo/goalign/align"

	"coalseq-core/alignment"
)

// ErrInvalidWindow reports window parameters the alignment cannot satisfy.
var ErrInvalidWindow = errors.New("invalid window parameters")

// IndexFile is the window index table's name inside the window directory.
const IndexFile = "_index"

// Window is one analysis window: half-open column range [Start, End).
type Window struct {
	Num   int
	Start int
	End   int
}

// Index maps window number (dense, 0-based) to its column range.
type Index []Window

// Plan computes the window list for a total-column alignment.
//
// The stride loop emits a window while start <= total-size; afterwards, if
// columns remain past the last stride, one clipped window covering
// [total-size, total) is appended. When the final stride landed exactly on
// the end this re-emits that range under a new number — downstream
// numbering depends on it, so the duplicate is deliberate and kept. The one
// exception is size == total (start limit 0): the single full-width window
// already is the whole alignment and nothing is appended.
func Plan(total, size, slide int) (Index, error) {
	if size <= 0 || slide <= 0 {
		return nil, fmt.Errorf("%w: size=%d slide=%d, both must be positive", ErrInvalidWindow, size, slide)
	}
	if size > total {
		return nil, fmt.Errorf("%w: size %d exceeds alignment length %d", ErrInvalidWindow, size, total)
	}

	limit := total - size
	var idx Index
	num, start := 0, 0
	for ; start <= limit; start += slide {
		idx = append(idx, Window{Num: num, Start: start, End: start + size})
		num++
	}
	if limit > 0 && start < total {
		idx = append(idx, Window{Num: num, Start: limit, End: total})
	}
	return idx, nil
}

// Extract writes one file per planned window under dir, named
// {num}_{start}_{end}.fa in the same text format as the full alignment, and
// persists the index table. The plan is validated before anything touches
// the filesystem.
func Extract(al align.Alignment, size, slide int, dir string) (Index, error) {
	idx, err := Plan(al.Length(), size, slide)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	for _, w := range idx {
		sub, err := al.SubAlign(w.Start, w.End-w.Start)
		if err != nil {
			return nil, fmt.Errorf("window %d [%d,%d): %w", w.Num, w.Start, w.End, err)
		}
		rows, err := alignment.RowsOf(sub)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", w.Num, err)
		}
		name := filepath.Join(dir, fmt.Sprintf("%d_%d_%d.fa", w.Num, w.Start, w.End))
		if err := writeWindow(name, rows); err != nil {
			return nil, err
		}
	}
	if err := idx.Write(filepath.Join(dir, IndexFile)); err != nil {
		return nil, err
	}
	return idx, nil
}

func writeWindow(path string, rows []alignment.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := alignment.WriteRows(w, rows); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write persists the index as three parallel integer columns: number,
// start, end.
func (ix Index) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, win := range ix {
		if _, err := fmt.Fprintf(w, "%d\t%d\t%d\n", win.Num, win.Start, win.End); err != nil {
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

// LoadIndex reads a persisted index table back. Malformed lines are hard
// failures.
func LoadIndex(path string) (Index, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ix Index
	for i, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("window index %s: line %d: want 3 columns, got %q", path, i+1, line)
		}
		var vals [3]int
		for j, fld := range fields {
			v, err := strconv.Atoi(fld)
			if err != nil {
				return nil, fmt.Errorf("window index %s: line %d: %q is not an integer", path, i+1, fld)
			}
			vals[j] = v
		}
		ix = append(ix, Window{Num: vals[0], Start: vals[1], End: vals[2]})
	}
	return ix, nil
}
