package alignment

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/evolbioinfo/goalign/align"
	"github.com/evolbioinfo/goalign/io/phylip"
)

// Labels occupy a fixed 10-character field, PHYLIP style.
const labelWidth = 10

// WriteRows renders rows in the pipeline's text form: a " ntips length"
// header, then one fixed-width label and sequence per row. The window
// extractor reuses it so window files match the full alignment's format.
func WriteRows(w io.Writer, rows []Row) error {
	length := 0
	if len(rows) > 0 {
		length = len(rows[0].Seq)
	}
	if _, err := fmt.Fprintf(w, " %d %d\n", len(rows), length); err != nil {
		return err
	}
	for _, r := range rows {
		if len(r.Seq) != length {
			return fmt.Errorf("row %s has %d sites, want %d", r.Label, len(r.Seq), length)
		}
		if _, err := fmt.Fprintf(w, "%-*s%s\n", labelWidth, r.Label, r.Seq); err != nil {
			return err
		}
	}
	return nil
}

// WriteText renders the full alignment as text.
func (a *Alignment) WriteText(w io.Writer) error { return WriteRows(w, a.Rows) }

// WriteTextFile persists the text form, overwriting any previous output.
func (a *Alignment) WriteTextFile(path string) error {
	return writeFile(path, a.WriteText)
}

// Binary table layout, little-endian: magic "CSQB", uint32 version, uint32
// ntips, uint64 length, then row-major sequence bytes.
var binMagic = [4]byte{'C', 'S', 'Q', 'B'}

const binVersion uint32 = 1

// WriteBinary renders the alignment as a flat 2-D byte table.
func (a *Alignment) WriteBinary(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, binMagic); err != nil {
		return err
	}
	hdr := []interface{}{binVersion, uint32(a.NTips()), uint64(a.Length())}
	for _, v := range hdr {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, r := range a.Rows {
		if _, err := w.Write(r.Seq); err != nil {
			return err
		}
	}
	return nil
}

// WriteBinaryFile persists the binary form.
func (a *Alignment) WriteBinaryFile(path string) error {
	return writeFile(path, a.WriteBinary)
}

// ReadBinary is the inverse of WriteBinary.
func ReadBinary(r io.Reader) (*Alignment, error) {
	var magic [4]byte
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != binMagic {
		return nil, fmt.Errorf("not a binary alignment (magic %q)", magic)
	}
	var version, ntips uint32
	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != binVersion {
		return nil, fmt.Errorf("unsupported binary alignment version %d", version)
	}
	if err := binary.Read(r, binary.LittleEndian, &ntips); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	a := &Alignment{Rows: make([]Row, ntips)}
	for i := range a.Rows {
		seq := make([]byte, length)
		if _, err := io.ReadFull(r, seq); err != nil {
			return nil, fmt.Errorf("binary alignment truncated at row %d: %w", i, err)
		}
		a.Rows[i] = Row{Index: i, Label: fmt.Sprintf("%d", i+1), Seq: seq}
	}
	return a, nil
}

// LoadText reads a previously written text alignment back through goalign's
// phylip parser, for column slicing by the window extractor.
func LoadText(path string) (align.Alignment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	al, err := phylip.NewParser(bufio.NewReader(f), false).Parse()
	if err != nil {
		return nil, fmt.Errorf("alignment %s: %w", path, err)
	}
	return al, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := render(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
