package alignment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Alignment is the assembled per-taxon sequence table; Rows[i] is tip i.
type Alignment struct {
	Rows []Row
}

// NTips returns the taxon count.
func (a *Alignment) NTips() int { return len(a.Rows) }

// Length returns the site count.
func (a *Alignment) Length() int {
	if len(a.Rows) == 0 {
		return 0
	}
	return len(a.Rows[0].Seq)
}

// discoverFragments lists dir/seqs sorted by numeric stem. Directory listing
// order is never trusted, and the indices must run dense from zero.
func discoverFragments(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, SeqDir))
	if err != nil {
		return nil, err
	}
	type frag struct {
		idx  int
		path string
	}
	var frags []frag
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		idx, err := strconv.Atoi(stem)
		if err != nil {
			continue // not a fragment file
		}
		frags = append(frags, frag{idx: idx, path: filepath.Join(dir, SeqDir, e.Name())})
	}
	sort.Slice(frags, func(i, j int) bool { return frags[i].idx < frags[j].idx })

	paths := make([]string, 0, len(frags))
	for i, f := range frags {
		if f.idx != i {
			return nil, fmt.Errorf("%w: expected fragment %d, found %d", ErrFragmentGap, i, f.idx)
		}
		paths = append(paths, f.path)
	}
	return paths, nil
}

// Assemble concatenates every fragment under dir/seqs, in interval order,
// into one contiguous alignment with ntips rows. Each fragment's rows are
// matched by numeric label, so per-file row order never matters.
func Assemble(dir string, ntips int) (*Alignment, error) {
	if ntips <= 0 {
		return nil, fmt.Errorf("taxon count %d must be positive", ntips)
	}
	paths, err := discoverFragments(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no fragments under %s", ErrFragmentGap, filepath.Join(dir, SeqDir))
	}

	out := &Alignment{Rows: make([]Row, ntips)}
	for i := range out.Rows {
		out.Rows[i] = Row{Index: i, Label: strconv.Itoa(i + 1)}
	}
	for _, p := range paths {
		fr, err := ReadFragment(p, ntips)
		if err != nil {
			return nil, err
		}
		for _, r := range fr.Rows {
			out.Rows[r.Index].Seq = append(out.Rows[r.Index].Seq, r.Seq...)
		}
	}
	return out, nil
}
