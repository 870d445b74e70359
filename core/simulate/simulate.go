// Package simulate holds the simulation driver: it samples a concrete
// mutation-scaled population size, derives the effective population size,
// builds the demographic model and hands everything to the coalescent
// engine.
package simulate

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"coalseq-core/coalescent"
	"coalseq-core/demography"
	"coalseq-core/sptree"
)

// ErrSimulation reports a rejected parameter set or a failing engine run.
var ErrSimulation = errors.New("simulation failed")

// Params are the population-genetic inputs of one simulation. ThetaMin ==
// ThetaMax pins θ to a fixed value.
type Params struct {
	ThetaMin   float64 // mutation-scaled population size, lower bound
	ThetaMax   float64 // upper bound
	Mu         float64 // per-site mutation rate
	Recomb     float64 // per-site recombination rate
	Length     int     // chromosome length in sites
	Replicates int     // engine replicates requested (>=1)
}

// Validate checks the invariants every run depends on.
func (p Params) Validate() error {
	switch {
	case p.ThetaMin <= 0 || p.ThetaMax <= 0:
		return fmt.Errorf("theta range [%g,%g] must be positive", p.ThetaMin, p.ThetaMax)
	case p.ThetaMin > p.ThetaMax:
		return fmt.Errorf("theta range inverted: %g > %g", p.ThetaMin, p.ThetaMax)
	case p.Mu <= 0:
		return fmt.Errorf("mutation rate %g must be positive", p.Mu)
	case p.Recomb < 0:
		return fmt.Errorf("recombination rate %g must not be negative", p.Recomb)
	case p.Length <= 0:
		return fmt.Errorf("chromosome length %d must be positive", p.Length)
	}
	return nil
}

// Ne converts a mutation-scaled population size to an effective size.
func Ne(theta, mu float64) float64 { return theta / mu / 4 }

// Result is one completed simulation: the sampled parameters and the
// retained replicate.
type Result struct {
	Theta     float64
	Ne        float64
	Seed      int64 // seed forwarded to the engine
	Replicate coalescent.Replicate
}

// Driver runs simulations against an engine with an explicit random source.
// The source is the only randomness used; there is no process-global seed.
type Driver struct {
	eng coalescent.Engine
	rng *rand.Rand
}

// New builds a driver. The same source always yields the same θ draws and
// engine seeds.
func New(eng coalescent.Engine, src rand.Source) *Driver {
	return &Driver{eng: eng, rng: rand.New(src)}
}

// Run samples θ uniformly from [ThetaMin, ThetaMax], derives Ne, builds one
// population per tip plus a zero migration matrix, and invokes the engine.
// Exactly one replicate is retained even when more were requested.
func (d *Driver) Run(ctx context.Context, st *sptree.SpeciesTree, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSimulation, err)
	}

	theta := p.ThetaMin
	if p.ThetaMax > p.ThetaMin {
		theta = distuv.Uniform{Min: p.ThetaMin, Max: p.ThetaMax, Src: d.rng}.Rand()
	}
	ne := Ne(theta, p.Mu)
	if ne <= 0 {
		return nil, fmt.Errorf("%w: derived Ne %g is not positive (theta=%g, mu=%g)", ErrSimulation, ne, theta, p.Mu)
	}

	events, err := demography.Events(st, ne)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSimulation, err)
	}

	n := st.NTips()
	pops := make([]coalescent.PopulationConfig, n)
	for i := range pops {
		pops[i] = coalescent.PopulationConfig{SampleSize: 1, InitialSize: ne}
	}
	mig := make([][]float64, n)
	for i := range mig {
		mig[i] = make([]float64, n) // no ongoing migration, merges only
	}

	reps := p.Replicates
	if reps < 1 {
		reps = 1
	}
	seed := int64(d.rng.Uint64() >> 1)
	spec := coalescent.Spec{
		Length:            p.Length,
		MutationRate:      p.Mu,
		RecombinationRate: p.Recomb,
		Migration:         mig,
		Populations:       pops,
		Events:            events,
		Replicates:        reps,
		Seed:              seed,
	}

	out, err := d.eng.Simulate(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSimulation, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: engine returned no replicates", ErrSimulation)
	}
	rep := out[0]
	if len(rep.Intervals) == 0 {
		return nil, fmt.Errorf("%w: engine returned an empty replicate", ErrSimulation)
	}
	return &Result{Theta: theta, Ne: ne, Seed: seed, Replicate: rep}, nil
}
