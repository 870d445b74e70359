// Package extcoal adapts an external coalescent-with-recombination
// executable to the coalescent.Engine contract.
//
// The wire protocol is deliberately thin so any ms-family simulator can be
// wrapped in a few lines of script: the JSON-encoded coalescent.Spec goes to
// the tool's stdin, and the tool prints one line per genomic interval
//
//	[length]newick;
//
// in genome order, with a literal "//" line closing each replicate. Every
// returned tree is re-parsed before acceptance; garbage output is rejected
// here rather than three stages later.
package extcoal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/evolbioinfo/gotree/io/newick"

	"coalseq-core/coalescent"
	"coalseq/internal/toolexec"
)

// Engine shells out to an ms-compatible simulator.
type Engine struct {
	Path    string
	Timeout time.Duration
}

// Simulate implements coalescent.Engine.
func (e *Engine) Simulate(ctx context.Context, spec coalescent.Spec) ([]coalescent.Replicate, error) {
	if e.Path == "" {
		return nil, fmt.Errorf("coalescent engine executable not configured")
	}
	in, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := toolexec.Run(ctx, e.Timeout, e.Path, nil, bytes.NewReader(in), &out); err != nil {
		return nil, err
	}
	reps, err := ParseReplicates(&out)
	if err != nil {
		return nil, err
	}
	if len(reps) < spec.Replicates {
		return nil, fmt.Errorf("engine produced %d replicates, requested %d", len(reps), spec.Replicates)
	}
	return reps, nil
}

// ParseReplicates decodes the engine's interval stream.
func ParseReplicates(r io.Reader) ([]coalescent.Replicate, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20) // local trees can be long

	var reps []coalescent.Replicate
	var cur coalescent.Replicate
	flush := func() {
		if len(cur.Intervals) > 0 {
			reps = append(reps, cur)
			cur = coalescent.Replicate{}
		}
	}
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "//" {
			flush()
			continue
		}
		iv, err := parseInterval(line)
		if err != nil {
			return nil, err
		}
		cur.Intervals = append(cur.Intervals, iv)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return reps, nil
}

func parseInterval(line string) (coalescent.Interval, error) {
	if !strings.HasPrefix(line, "[") {
		return coalescent.Interval{}, fmt.Errorf("engine output: interval line %q lacks [length] prefix", line)
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return coalescent.Interval{}, fmt.Errorf("engine output: unterminated interval length in %q", line)
	}
	n, err := strconv.Atoi(line[1:end])
	if err != nil || n <= 0 {
		return coalescent.Interval{}, fmt.Errorf("engine output: interval length %q in %q", line[1:end], line)
	}
	nw := strings.TrimSpace(line[end+1:])
	if _, err := newick.NewParser(strings.NewReader(nw)).Parse(); err != nil {
		return coalescent.Interval{}, fmt.Errorf("engine output: bad local tree for %d-site interval: %v", n, err)
	}
	return coalescent.Interval{Length: n, Tree: nw}, nil
}
