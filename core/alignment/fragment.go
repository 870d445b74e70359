// Package alignment assembles per-interval sequence fragments into the full
// per-taxon alignment and renders it in its text and binary on-disk forms.
//
// Fragments are relaxed PHYLIP: a " ntips length" header, then one row per
// taxon with a fixed-width numeric label field and the sequence. Row order
// on disk is whatever the external tool emitted; rows are always re-sorted
// by their numeric label before use.
package alignment

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/evolbioinfo/goalign/align"
	"github.com/evolbioinfo/goalign/io/phylip"
)

var (
	// ErrMalformedFragment reports a fragment file whose header or rows
	// cannot be parsed.
	ErrMalformedFragment = errors.New("malformed fragment")
	// ErrFragmentShape reports a fragment with the wrong number of rows.
	ErrFragmentShape = errors.New("fragment row count mismatch")
	// ErrFragmentGap reports a hole in the fragment index sequence.
	ErrFragmentGap = errors.New("fragment index gap")
)

// SeqDir is the fragment directory under the run directory.
const SeqDir = "seqs"

// Row is one taxon's sequence. Index is the 0-based tip index derived from
// the 1-based label the external tool reported.
type Row struct {
	Index int
	Label string
	Seq   []byte
}

// Fragment is one parsed per-interval block, rows in tip-index order.
type Fragment struct {
	Index  int
	Length int
	Rows   []Row
}

// RowsOf pulls rows out of a goalign alignment and sorts them back into tip
// order. Every label must be a distinct 1-based tip number.
func RowsOf(al align.Alignment) ([]Row, error) {
	rows := make([]Row, 0, al.NbSequences())
	var convErr error
	al.Iterate(func(name, seq string) bool {
		label := strings.TrimSpace(name)
		n, err := strconv.Atoi(label)
		if err != nil || n < 1 {
			convErr = fmt.Errorf("%w: taxon label %q is not a 1-based tip number", ErrMalformedFragment, name)
			return true
		}
		rows = append(rows, Row{Index: n - 1, Label: label, Seq: []byte(seq)})
		return false
	})
	if convErr != nil {
		return nil, convErr
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })
	for i := 1; i < len(rows); i++ {
		if rows[i].Index == rows[i-1].Index {
			return nil, fmt.Errorf("%w: duplicate taxon label %q", ErrMalformedFragment, rows[i].Label)
		}
	}
	return rows, nil
}

// ReadFragment parses one fragment file and checks it against the expected
// taxon count. The header is parsed strictly: a non-integer length is a
// hard failure naming the file.
func ReadFragment(path string, ntips int) (*Fragment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	nl := bytes.IndexByte(b, '\n')
	if nl < 0 {
		return nil, fmt.Errorf("%w: %s: missing header line", ErrMalformedFragment, path)
	}
	fields := strings.Fields(string(b[:nl]))
	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: %s: header %q, want \" ntips length\"", ErrMalformedFragment, path, strings.TrimSpace(string(b[:nl])))
	}
	headRows, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: taxon count %q is not an integer", ErrMalformedFragment, path, fields[0])
	}
	length, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: length %q is not an integer", ErrMalformedFragment, path, fields[1])
	}

	al, err := phylip.NewParser(bytes.NewReader(b), false).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFragment, path, err)
	}
	if headRows != ntips || al.NbSequences() != ntips {
		return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrFragmentShape, path, al.NbSequences(), ntips)
	}
	if al.Length() != length {
		return nil, fmt.Errorf("%w: %s: header says %d sites, rows have %d", ErrMalformedFragment, path, length, al.Length())
	}

	rows, err := RowsOf(al)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, r := range rows {
		if r.Index >= ntips {
			return nil, fmt.Errorf("%w: %s: taxon label %s exceeds tip count %d", ErrFragmentShape, path, r.Label, ntips)
		}
	}
	return &Fragment{Length: length, Rows: rows}, nil
}
