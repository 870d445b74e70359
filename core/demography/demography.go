// Package demography turns a species tree plus an effective population size
// into the time-ordered population-merge events a coalescent engine consumes.
package demography

import (
	"fmt"
	"sort"

	"coalseq-core/sptree"
)

// Event states that, scanning forward in time from the present, the Source
// population's lineage merges into Dest at Time generations (tree height
// scaled by 2·Ne).
type Event struct {
	Time   float64 `json:"time"`
	Source int     `json:"source"`
	Dest   int     `json:"dest"`
}

// Events builds the merge-event list for st with effective population size
// ne. Populations are tip indices; each internal node merges every child
// lineage into the smallest tip index below it. The result is sorted by
// ascending time, ties keeping tree order.
func Events(st *sptree.SpeciesTree, ne float64) ([]Event, error) {
	if ne <= 0 {
		return nil, fmt.Errorf("effective population size must be positive, got %g", ne)
	}

	// schild: a tip is its own index; an internal node takes the smallest
	// schild among its children. The post-order fold guarantees children
	// are resolved first, and keeps the tree nodes themselves untouched.
	order := st.PostOrderIDs()
	schild := make(map[int]int, len(order))
	for _, id := range order {
		kids := st.Children(id)
		if len(kids) == 0 {
			schild[id] = id
			continue
		}
		m := schild[kids[0]]
		for _, k := range kids[1:] {
			if schild[k] < m {
				m = schild[k]
			}
		}
		schild[id] = m
	}

	// A valid bifurcating tree never produces the same triple twice, but
	// guard against it anyway: emission is set-semantic.
	type key struct {
		t    float64
		s, d int
	}
	seen := make(map[key]struct{})
	var evs []Event
	for _, id := range order {
		kids := st.Children(id)
		if len(kids) < 2 {
			continue
		}
		sc := make([]int, 0, len(kids))
		for _, k := range kids {
			sc = append(sc, schild[k])
		}
		sort.Ints(sc)
		dest := sc[0]
		t := st.Height(id) * 2 * ne
		for _, src := range sc[1:] {
			k := key{t: t, s: src, d: dest}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			evs = append(evs, Event{Time: t, Source: src, Dest: dest})
		}
	}

	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Time < evs[j].Time })
	return evs, nil
}
