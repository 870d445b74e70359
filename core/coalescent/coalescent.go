// Package coalescent defines the boundary contract for the external
// coalescent-with-recombination engine. The pipeline only ever sees the
// engine through these types: a Spec in, ordered interval/local-tree pairs
// out.
package coalescent

import (
	"context"

	"coalseq-core/demography"
)

// PopulationConfig describes one sampled population: how many lineages are
// drawn from it and its initial effective size.
type PopulationConfig struct {
	SampleSize  int     `json:"sample_size"`
	InitialSize float64 `json:"initial_size"`
}

// Interval is one recombination-bounded genomic segment: its length in
// sites and the newick description of the local genealogy valid over it.
type Interval struct {
	Length int    `json:"length"`
	Tree   string `json:"tree"`
}

// Replicate is a single simulated chromosome: contiguous intervals in
// genome order, leftmost first.
type Replicate struct {
	Intervals []Interval `json:"intervals"`
	Mutations int        `json:"mutations"`
}

// TotalLength sums the replicate's interval lengths, i.e. the realized
// chromosome length.
func (r Replicate) TotalLength() int {
	n := 0
	for _, iv := range r.Intervals {
		n += iv.Length
	}
	return n
}

// Spec is everything the engine needs for one simulation.
type Spec struct {
	Length            int                `json:"length"`
	MutationRate      float64            `json:"mutation_rate"`
	RecombinationRate float64            `json:"recombination_rate"`
	Migration         [][]float64        `json:"migration_matrix"`
	Populations       []PopulationConfig `json:"population_configurations"`
	Events            []demography.Event `json:"demographic_events"`
	Replicates        int                `json:"num_replicates"`
	Seed              int64              `json:"seed,omitempty"`
}

// Engine is the simulator behind the contract. Implementations must return
// at least Spec.Replicates replicates or an error.
type Engine interface {
	Simulate(ctx context.Context, spec Spec) ([]Replicate, error)
}
