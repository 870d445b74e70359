// Package sptree ingests a rooted, ultrametric species tree and exposes the
// topology data the demographic model builder needs: stable integer indices,
// node heights above the leaves, and parent/child structure.
//
// Tips are renamed to their string index at parse time; the original labels
// stay reachable through Label. The underlying gotree tree is never mutated
// after construction.
package sptree

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/evolbioinfo/gotree/io/newick"
	"github.com/evolbioinfo/gotree/tree"
)

// ErrInvalidTree reports a species tree the pipeline cannot use: unparsable
// text, negative or missing branch lengths, or leaves at unequal depths.
var ErrInvalidTree = errors.New("invalid species tree")

// Leaf depths may drift by float noise in hand-edited newick files.
const ultrametricTol = 1e-6

// SpeciesTree is an immutable view over a parsed species tree. Tips carry
// indices 0..NTips-1, internal nodes continue the numbering; both are
// assigned in post-order encounter order, so the same newick text always
// yields the same indexing.
type SpeciesTree struct {
	t         *tree.Tree
	ntips     int
	names     map[int]string  // tip index -> original label
	heights   map[int]float64 // node index -> height above the leaves
	children  map[int][]int   // node index -> child indices
	postorder []int           // node indices, children before parents
	root      int
}

// Parse is the single entry point over the accepted tree inputs: an
// already-parsed gotree tree or a newick description (string or bytes).
func Parse(src interface{}) (*SpeciesTree, error) {
	switch v := src.(type) {
	case *tree.Tree:
		return FromTree(v)
	case string:
		return FromNewick(v)
	case []byte:
		return FromNewick(string(v))
	default:
		return nil, fmt.Errorf("%w: unsupported tree input %T", ErrInvalidTree, src)
	}
}

// FromFile parses a newick species tree from disk.
func FromFile(path string) (*SpeciesTree, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromNewick(string(b))
}

// FromNewick parses a newick description.
func FromNewick(s string) (*SpeciesTree, error) {
	t, err := newick.NewParser(strings.NewReader(s)).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTree, err)
	}
	return FromTree(t)
}

// FromTree indexes and validates an already-parsed tree.
func FromTree(t *tree.Tree) (*SpeciesTree, error) {
	st := &SpeciesTree{
		t:        t,
		names:    make(map[int]string),
		heights:  make(map[int]float64),
		children: make(map[int][]int),
	}

	// Number tips 0..n-1 and internal nodes onward, children before
	// parents, and relabel each tip to its string index.
	ntips := len(t.Tips())
	if ntips < 2 {
		return nil, fmt.Errorf("%w: need at least 2 tips, have %d", ErrInvalidTree, ntips)
	}
	tipID, internalID := 0, ntips
	t.PostOrder(func(cur, prev *tree.Node, e *tree.Edge) bool {
		if cur.Tip() {
			st.names[tipID] = cur.Name()
			cur.SetName(strconv.Itoa(tipID))
			cur.SetId(tipID)
			tipID++
		} else {
			cur.SetId(internalID)
			internalID++
		}
		st.postorder = append(st.postorder, cur.Id())
		return true
	})
	st.ntips = ntips

	// Depths from the root. The traversal hands us the parent edge, which
	// is all we need: height(node) = maxLeafDepth - depth(node).
	depth := make(map[int]float64, len(st.postorder))
	maxDepth := 0.0
	var walkErr error
	t.PreOrder(func(cur, prev *tree.Node, e *tree.Edge) bool {
		if prev == nil {
			st.root = cur.Id()
			depth[cur.Id()] = 0
			return true
		}
		if e.Length() < 0 {
			walkErr = fmt.Errorf("%w: branch above node %d has negative or missing length", ErrInvalidTree, cur.Id())
			return false
		}
		d := depth[prev.Id()] + e.Length()
		depth[cur.Id()] = d
		st.children[prev.Id()] = append(st.children[prev.Id()], cur.Id())
		if d > maxDepth {
			maxDepth = d
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}

	// Ultrametric check: every leaf sits at the same depth, i.e. height 0.
	tol := ultrametricTol * math.Max(1, maxDepth)
	for id := 0; id < ntips; id++ {
		if math.Abs(depth[id]-maxDepth) > tol {
			return nil, fmt.Errorf("%w: not ultrametric (tip %d at depth %g, expected %g)", ErrInvalidTree, id, depth[id], maxDepth)
		}
	}
	for _, id := range st.postorder {
		if id < ntips {
			st.heights[id] = 0
			continue
		}
		st.heights[id] = maxDepth - depth[id]
	}
	return st, nil
}

// NTips returns the number of leaves.
func (st *SpeciesTree) NTips() int { return st.ntips }

// Root returns the root node's index.
func (st *SpeciesTree) Root() int { return st.root }

// Label returns the original label of a tip index.
func (st *SpeciesTree) Label(tip int) (string, bool) {
	name, ok := st.names[tip]
	return name, ok
}

// Labels returns a copy of the tip index -> original label table.
func (st *SpeciesTree) Labels() map[int]string {
	out := make(map[int]string, len(st.names))
	for k, v := range st.names {
		out[k] = v
	}
	return out
}

// Height returns a node's height above the leaves, in the tree's time units.
func (st *SpeciesTree) Height(id int) float64 { return st.heights[id] }

// Children returns a node's child indices in newick order. Tips have none.
func (st *SpeciesTree) Children(id int) []int { return st.children[id] }

// PostOrderIDs returns every node index, children before parents.
func (st *SpeciesTree) PostOrderIDs() []int { return st.postorder }

// Newick renders the relabeled tree.
func (st *SpeciesTree) Newick() string { return st.t.Newick() }
