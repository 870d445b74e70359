// Package cli defines the coalseq command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"coalseq-core/simulate"
	"coalseq/internal/app"
	"coalseq/internal/config"
	"coalseq/internal/logging"
	"coalseq/internal/version"
)

var (
	flagDir     string
	flagConfig  string
	flagVerbose bool

	flagEngine      string
	flagSeqGen      string
	flagInfer       string
	flagToolTimeout time.Duration

	flagTree       string
	flagThetaMin   float64
	flagThetaMax   float64
	flagMu         float64
	flagRecomb     float64
	flagLength     int
	flagReplicates int
	flagSeed       int64

	flagBinary bool

	flagWindowSize int
	flagSlideStep  int
	flagWindowDir  string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coalseq",
		Short:         "coalescent simulation and alignment pipeline",
		Long:          "coalseq simulates recombining coalescent genealogies along a species tree,\nevolves sequences over them, and slices the assembled alignment into\nanalysis windows.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flagDir, "dir", "d", ".", "run directory for all artifacts")
	pf.StringVarP(&flagConfig, "config", "c", "", "TOML parameter file (missing file is ignored)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&flagEngine, "engine", "", "coalescent engine executable (overrides COALSEQ_ENGINE)")
	pf.StringVar(&flagSeqGen, "seqgen", "", "sequence-evolution executable (overrides COALSEQ_SEQGEN)")
	pf.StringVar(&flagInfer, "infer", "", "tree-inference executable (overrides COALSEQ_INFER)")
	pf.DurationVar(&flagToolTimeout, "tool-timeout", 0, "per-invocation timeout for external tools")

	root.AddCommand(
		newSimulateCmd(),
		newSeqsCmd(),
		newAssembleCmd(),
		newWindowsCmd(),
		newInferCmd(),
		newRunCmd(),
	)
	return root
}

func addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&flagTree, "tree", "t", "", "rooted ultrametric species tree (newick)")
	f.Float64Var(&flagThetaMin, "theta-min", 0, "lower bound for uniform theta sampling")
	f.Float64Var(&flagThetaMax, "theta-max", 0, "upper bound for uniform theta sampling")
	f.Float64Var(&flagMu, "mu", 0, "per-site mutation rate")
	f.Float64Var(&flagRecomb, "recombination", 0, "per-site recombination rate")
	f.IntVarP(&flagLength, "length", "l", 0, "chromosome length in sites")
	f.IntVar(&flagReplicates, "replicates", 1, "engine replicates (only the first is kept)")
	f.Int64Var(&flagSeed, "seed", 0, "random seed (default: wall clock)")
	cmd.MarkFlagRequired("tree")
}

func addWindowFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVarP(&flagWindowSize, "size", "s", 0, "window width in columns")
	f.IntVar(&flagSlideStep, "slide", 0, "stride between window starts")
	f.StringVar(&flagWindowDir, "window-dir", "", "output directory (default: <dir>/windows)")
	cmd.MarkFlagRequired("size")
	cmd.MarkFlagRequired("slide")
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "simulate genealogies along the species tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := buildOptions(cmd)
			if err != nil {
				return err
			}
			return app.Simulate(cmd.Context(), o)
		},
	}
	addSimFlags(cmd)
	return cmd
}

func newSeqsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seqs",
		Short: "evolve sequence fragments over the simulated trees",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := buildOptions(cmd)
			if err != nil {
				return err
			}
			return app.Synthesize(cmd.Context(), o)
		},
	}
}

func newAssembleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "concatenate fragments into the full alignment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := buildOptions(cmd)
			if err != nil {
				return err
			}
			return app.Assemble(cmd.Context(), o)
		},
	}
	cmd.Flags().BoolVar(&flagBinary, "binary", false, "also write the binary alignment format")
	return cmd
}

func newWindowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "slice the alignment into sliding windows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := buildOptions(cmd)
			if err != nil {
				return err
			}
			return app.Windows(cmd.Context(), o)
		},
	}
	addWindowFlags(cmd)
	return cmd
}

func newInferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infer",
		Short: "run tree inference over every window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := buildOptions(cmd)
			if err != nil {
				return err
			}
			return app.Infer(cmd.Context(), o)
		},
	}
	cmd.Flags().StringVar(&flagWindowDir, "window-dir", "", "window directory (default: <dir>/windows)")
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "simulate, evolve, assemble and window in one go",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := buildOptions(cmd)
			if err != nil {
				return err
			}
			return app.RunAll(cmd.Context(), o)
		},
	}
	addSimFlags(cmd)
	addWindowFlags(cmd)
	cmd.Flags().BoolVar(&flagBinary, "binary", false, "also write the binary alignment format")
	return cmd
}

// buildOptions layers the three parameter sources: environment tools, then
// the optional file config, then explicit flags (flags win).
func buildOptions(cmd *cobra.Command) (app.Options, error) {
	tools, err := config.ToolsFromEnv()
	if err != nil {
		return app.Options{}, err
	}
	fl := cmd.Flags()
	if fl.Changed("engine") {
		tools.Engine = flagEngine
	}
	if fl.Changed("seqgen") {
		tools.SeqGen = flagSeqGen
	}
	if fl.Changed("infer") {
		tools.Infer = flagInfer
	}
	if fl.Changed("tool-timeout") {
		tools.ToolTimeout = flagToolTimeout
	}

	params := simulate.Params{
		ThetaMin:   flagThetaMin,
		ThetaMax:   flagThetaMax,
		Mu:         flagMu,
		Recomb:     flagRecomb,
		Length:     flagLength,
		Replicates: flagReplicates,
	}
	fc, err := config.Load(flagConfig)
	if err != nil {
		return app.Options{}, err
	}
	applyFileParams(cmd, fc, &params)

	seed := flagSeed
	if !fl.Changed("seed") {
		seed = time.Now().UnixNano()
	}

	return app.Options{
		Dir:        flagDir,
		TreeFile:   flagTree,
		Params:     params,
		Seed:       seed,
		Tools:      tools,
		Binary:     flagBinary,
		WindowSize: flagWindowSize,
		SlideStep:  flagSlideStep,
		WindowDir:  flagWindowDir,
		Log:        logging.New(cmd.ErrOrStderr(), flagVerbose),
	}, nil
}

// applyFileParams fills parameters the user did not set on the command line.
func applyFileParams(cmd *cobra.Command, fc *config.FileConfig, p *simulate.Params) {
	fl := cmd.Flags()
	s := fc.Simulation
	if s.ThetaMin != nil && !fl.Changed("theta-min") {
		p.ThetaMin = *s.ThetaMin
	}
	if s.ThetaMax != nil && !fl.Changed("theta-max") {
		p.ThetaMax = *s.ThetaMax
	}
	if s.Mu != nil && !fl.Changed("mu") {
		p.Mu = *s.Mu
	}
	if s.Recombination != nil && !fl.Changed("recombination") {
		p.Recomb = *s.Recombination
	}
	if s.Length != nil && !fl.Changed("length") {
		p.Length = *s.Length
	}
}

// Execute runs the command tree and maps errors to exit codes.
func Execute(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(argv)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "coalseq: %v\n", err)
		return 1
	}
	return 0
}
