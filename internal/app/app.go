// Package app wires the pipeline stages together. Each stage reads its
// inputs from the run directory and writes its artifacts back there, so
// stages can be run separately or all at once.
package app

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"coalseq-core/alignment"
	"coalseq-core/genealogy"
	"coalseq-core/simulate"
	"coalseq-core/sptree"
	"coalseq-core/window"
	"coalseq/internal/config"
	"coalseq/internal/extcoal"
	"coalseq/internal/runmeta"
	"coalseq/internal/seqgen"
	"coalseq/internal/treeinfer"
)

// Assembled alignment names under the run directory.
const (
	TextAlignmentFile   = "final_seqs.fa"
	BinaryAlignmentFile = "final_seqs.bin"
)

// Options carries everything the stages need. The CLI layer fills them
// from flags, file config and environment.
type Options struct {
	Dir      string // run directory holding all artifacts
	TreeFile string // newick species tree (simulate only)
	Params   simulate.Params
	Seed     int64
	Tools    config.Tools
	Binary   bool // assemble to binary instead of text

	WindowSize int
	SlideStep  int
	WindowDir  string // default: Dir/windows

	Log *logrus.Logger
}

func (o *Options) windowDir() string {
	if o.WindowDir != "" {
		return o.WindowDir
	}
	return filepath.Join(o.Dir, "windows")
}

// Simulate runs the coalescent engine over the species tree and persists
// the local trees, the length table and the run manifest.
func Simulate(ctx context.Context, o Options) error {
	st, err := sptree.FromFile(o.TreeFile)
	if err != nil {
		return err
	}
	eng := &extcoal.Engine{Path: o.Tools.Engine, Timeout: o.Tools.ToolTimeout}
	drv := simulate.New(eng, rand.NewSource(uint64(o.Seed)))

	res, err := drv.Run(ctx, st, o.Params)
	if err != nil {
		return err
	}
	lt, err := genealogy.Serialize(res.Replicate.Intervals, o.Dir)
	if err != nil {
		return err
	}

	m := runmeta.New()
	m.Seed = o.Seed
	m.Theta = res.Theta
	m.Ne = res.Ne
	m.Mu = o.Params.Mu
	m.Recomb = o.Params.Recomb
	m.RequestedLength = o.Params.Length
	m.RealizedLength = lt.Total()
	m.NTips = st.NTips()
	m.Intervals = len(lt)
	for tip, label := range st.Labels() {
		m.Tips[strconv.Itoa(tip)] = label
	}
	if err := m.Write(o.Dir); err != nil {
		return err
	}

	o.Log.WithFields(logrus.Fields{
		"stage":     "simulate",
		"run_id":    m.RunID,
		"theta":     res.Theta,
		"ne":        res.Ne,
		"intervals": m.Intervals,
		"length":    m.RealizedLength,
	}).Info("simulation complete")
	return nil
}

// Synthesize generates per-interval sequence fragments with the external
// sequence-evolution tool.
func Synthesize(ctx context.Context, o Options) error {
	r := &seqgen.Runner{
		Path:    o.Tools.SeqGen,
		Model:   o.Tools.SeqGenModel,
		Scale:   o.Tools.SeqGenScale,
		Timeout: o.Tools.ToolTimeout,
		Log:     o.Log,
	}
	return r.Synthesize(ctx, o.Dir)
}

// Assemble concatenates the fragments into the full alignment. The text
// form is always written: the windows stage reads it back. Binary adds the
// flat table alongside.
func Assemble(_ context.Context, o Options) error {
	m, err := runmeta.Load(o.Dir)
	if err != nil {
		return err
	}
	al, err := alignment.Assemble(o.Dir, m.NTips)
	if err != nil {
		return err
	}
	out := filepath.Join(o.Dir, TextAlignmentFile)
	if err := al.WriteTextFile(out); err != nil {
		return err
	}
	if o.Binary {
		if err := al.WriteBinaryFile(filepath.Join(o.Dir, BinaryAlignmentFile)); err != nil {
			return err
		}
	}
	o.Log.WithFields(logrus.Fields{
		"stage":  "assemble",
		"ntips":  al.NTips(),
		"length": al.Length(),
		"file":   out,
		"binary": o.Binary,
	}).Info("alignment assembled")
	return nil
}

// Windows slices the assembled text alignment into sliding windows.
func Windows(_ context.Context, o Options) error {
	al, err := alignment.LoadText(filepath.Join(o.Dir, TextAlignmentFile))
	if err != nil {
		return err
	}
	idx, err := window.Extract(al, o.WindowSize, o.SlideStep, o.windowDir())
	if err != nil {
		return err
	}
	o.Log.WithFields(logrus.Fields{
		"stage":   "windows",
		"windows": len(idx),
		"size":    o.WindowSize,
		"slide":   o.SlideStep,
	}).Info("windows extracted")
	return nil
}

// Infer runs the external tree-inference tool over every window file.
func Infer(ctx context.Context, o Options) error {
	r := &treeinfer.Runner{Path: o.Tools.Infer, Timeout: o.Tools.ToolTimeout, Log: o.Log}
	return r.InferAll(ctx, o.windowDir())
}

// RunAll executes the full pipeline: simulate, synthesize, assemble,
// windows. Inference stays a separate step; its tool is the heavyweight.
func RunAll(ctx context.Context, o Options) error {
	for _, stage := range []func(context.Context, Options) error{
		Simulate, Synthesize, Assemble, Windows,
	} {
		if err := stage(ctx, o); err != nil {
			return err
		}
	}
	return nil
}
