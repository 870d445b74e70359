package integration

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"coalseq-core/alignment"
	"coalseq-core/genealogy"
	"coalseq-core/simulate"
	"coalseq-core/window"
	"coalseq/internal/app"
	"coalseq/internal/config"
	"coalseq/internal/logging"
	"coalseq/internal/runmeta"
)

// engineScript stands in for an ms-family simulator: it consumes the JSON
// spec and prints two intervals (4 + 6 = 10 sites) for three samples.
const engineScript = `#!/bin/sh
cat >/dev/null
echo '[4]((1:1.0,2:1.0):0.5,3:1.5);'
echo '[6](1:2.0,(2:1.0,3:1.0):1.0);'
echo '//'
`

// seqgenScript stands in for the sequence-evolution tool: it reads the
// requested length from the -l flag and prints a 3-row fragment.
const seqgenScript = `#!/bin/sh
len=0
for a in "$@"; do
  case "$a" in
    -l*) len=${a#-l} ;;
  esac
done
echo " 3 $len"
for pair in "1 A" "2 C" "3 G"; do
  set -- $pair
  row=$(head -c "$len" /dev/zero | tr '\0' "$2")
  printf '%-10s%s\n' "$1" "$row"
done
`

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	bin := t.TempDir()

	tree := filepath.Join(dir, "species.nwk")
	require.NoError(t, os.WriteFile(tree, []byte("(A:1,(B:0.5,C:0.5):0.5);\n"), 0o644))

	o := app.Options{
		Dir:      dir,
		TreeFile: tree,
		Params: simulate.Params{
			ThetaMin:   0.01,
			ThetaMax:   0.01,
			Mu:         1e-6,
			Length:     10,
			Replicates: 1,
		},
		Seed: 7,
		Tools: config.Tools{
			Engine:      writeScript(t, bin, "engine.sh", engineScript),
			SeqGen:      writeScript(t, bin, "seqgen.sh", seqgenScript),
			ToolTimeout: time.Minute,
		},
		Binary:     true,
		WindowSize: 5,
		SlideStep:  3,
		Log:        logging.New(io.Discard, false),
	}

	require.NoError(t, app.RunAll(context.Background(), o))

	// Simulation artifacts.
	lt, err := genealogy.LoadLengths(filepath.Join(dir, genealogy.LengthFile))
	require.NoError(t, err)
	require.Equal(t, genealogy.LengthTable{4, 6}, lt)
	require.FileExists(t, filepath.Join(dir, genealogy.TreeDir, "0.phy"))
	require.FileExists(t, filepath.Join(dir, genealogy.TreeDir, "1.phy"))

	m, err := runmeta.Load(dir)
	require.NoError(t, err)
	require.Equal(t, 3, m.NTips)
	require.Equal(t, 10, m.RealizedLength)
	require.Equal(t, 2, m.Intervals)
	require.Len(t, m.Tips, 3)

	// Fragments and the assembled alignment.
	require.FileExists(t, filepath.Join(dir, alignment.SeqDir, "0.fa"))
	require.FileExists(t, filepath.Join(dir, alignment.SeqDir, "1.fa"))

	al, err := alignment.LoadText(filepath.Join(dir, app.TextAlignmentFile))
	require.NoError(t, err)
	require.Equal(t, 3, al.NbSequences())
	require.Equal(t, 10, al.Length())
	rows, err := alignment.RowsOf(al)
	require.NoError(t, err)
	require.Equal(t, "AAAAAAAAAA", string(rows[0].Seq))
	require.Equal(t, "CCCCCCCCCC", string(rows[1].Seq))
	require.Equal(t, "GGGGGGGGGG", string(rows[2].Seq))

	// --binary adds the flat table; the text form must still be written or
	// the windows stage above would have had nothing to slice.
	bf, err := os.Open(filepath.Join(dir, app.BinaryAlignmentFile))
	require.NoError(t, err)
	defer bf.Close()
	bal, err := alignment.ReadBinary(bf)
	require.NoError(t, err)
	require.Equal(t, 3, bal.NTips())
	require.Equal(t, 10, bal.Length())

	// Windows: size 5, slide 3 over 10 columns.
	wdir := filepath.Join(dir, "windows")
	idx, err := window.LoadIndex(filepath.Join(wdir, window.IndexFile))
	require.NoError(t, err)
	require.Equal(t, window.Index{
		{Num: 0, Start: 0, End: 5},
		{Num: 1, Start: 3, End: 8},
		{Num: 2, Start: 5, End: 10},
	}, idx)
	for _, w := range idx {
		name := fmt.Sprintf("%d_%d_%d.fa", w.Num, w.Start, w.End)
		require.FileExists(t, filepath.Join(wdir, name))
	}
}
