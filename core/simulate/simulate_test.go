package simulate

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/exp/rand"

	"coalseq-core/coalescent"
	"coalseq-core/sptree"
)

type fakeEngine struct {
	spec coalescent.Spec
	reps []coalescent.Replicate
	err  error
}

func (f *fakeEngine) Simulate(_ context.Context, spec coalescent.Spec) ([]coalescent.Replicate, error) {
	f.spec = spec
	return f.reps, f.err
}

func twoTip(t *testing.T) *sptree.SpeciesTree {
	t.Helper()
	st, err := sptree.FromNewick("(a:1.0,b:1.0);")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return st
}

func okReplicate() []coalescent.Replicate {
	return []coalescent.Replicate{{
		Intervals: []coalescent.Interval{{Length: 10, Tree: "(1:0.1,2:0.1);"}},
	}}
}

func TestRunBuildsSpec(t *testing.T) {
	eng := &fakeEngine{reps: okReplicate()}
	d := New(eng, rand.NewSource(1))
	p := Params{ThetaMin: 0.01, ThetaMax: 0.01, Mu: 1e-8, Recomb: 1e-9, Length: 100}

	res, err := d.Run(context.Background(), twoTip(t), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Theta != 0.01 {
		t.Errorf("theta = %g, want fixed 0.01", res.Theta)
	}
	if want := (0.01 / 1e-8) / 4; res.Ne != want {
		t.Errorf("Ne = %g, want %g", res.Ne, want)
	}

	spec := eng.spec
	if spec.Length != 100 || spec.MutationRate != 1e-8 || spec.RecombinationRate != 1e-9 {
		t.Errorf("rates/length not forwarded: %+v", spec)
	}
	if spec.Replicates != 1 {
		t.Errorf("replicates = %d, want 1", spec.Replicates)
	}
	if len(spec.Populations) != 2 {
		t.Fatalf("populations = %d, want one per tip", len(spec.Populations))
	}
	for i, pc := range spec.Populations {
		if pc.SampleSize != 1 || pc.InitialSize != res.Ne {
			t.Errorf("population %d = %+v", i, pc)
		}
	}
	if len(spec.Migration) != 2 {
		t.Fatalf("migration matrix rows = %d, want 2", len(spec.Migration))
	}
	for i, row := range spec.Migration {
		if len(row) != 2 {
			t.Fatalf("migration row %d has %d cols", i, len(row))
		}
		for j, m := range row {
			if m != 0 {
				t.Errorf("migration[%d][%d] = %g, want 0", i, j, m)
			}
		}
	}
	if len(spec.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(spec.Events))
	}
	if want := 2 * 1.0 * res.Ne; spec.Events[0].Time != want {
		t.Errorf("event time = %g, want %g", spec.Events[0].Time, want)
	}
}

func TestSeedReproducible(t *testing.T) {
	p := Params{ThetaMin: 0.001, ThetaMax: 0.1, Mu: 1e-8, Length: 100}

	run := func(seed uint64) (float64, int64) {
		eng := &fakeEngine{reps: okReplicate()}
		d := New(eng, rand.NewSource(seed))
		res, err := d.Run(context.Background(), twoTip(t), p)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return res.Theta, res.Seed
	}

	t1, s1 := run(42)
	t2, s2 := run(42)
	if t1 != t2 || s1 != s2 {
		t.Errorf("same source, different draws: theta %g/%g seed %d/%d", t1, t2, s1, s2)
	}
	if t1 < p.ThetaMin || t1 > p.ThetaMax {
		t.Errorf("theta %g outside [%g,%g]", t1, p.ThetaMin, p.ThetaMax)
	}
	t3, _ := run(43)
	if t3 == t1 {
		t.Errorf("different sources drew identical theta %g", t3)
	}
}

func TestInvalidParams(t *testing.T) {
	cases := []Params{
		{ThetaMin: 0.1, ThetaMax: 0.01, Mu: 1e-8, Length: 100}, // inverted range
		{ThetaMin: 0, ThetaMax: 0.01, Mu: 1e-8, Length: 100},
		{ThetaMin: 0.01, ThetaMax: 0.01, Mu: 0, Length: 100},
		{ThetaMin: 0.01, ThetaMax: 0.01, Mu: 1e-8, Length: 0},
		{ThetaMin: 0.01, ThetaMax: 0.01, Mu: 1e-8, Recomb: -1, Length: 100},
	}
	for i, p := range cases {
		eng := &fakeEngine{reps: okReplicate()}
		d := New(eng, rand.NewSource(1))
		if _, err := d.Run(context.Background(), twoTip(t), p); !errors.Is(err, ErrSimulation) {
			t.Errorf("case %d: err = %v, want ErrSimulation", i, err)
		}
	}
}

func TestEngineErrorWrapped(t *testing.T) {
	boom := errors.New("pop count mismatch")
	eng := &fakeEngine{err: boom}
	d := New(eng, rand.NewSource(1))
	p := Params{ThetaMin: 0.01, ThetaMax: 0.01, Mu: 1e-8, Length: 100}

	_, err := d.Run(context.Background(), twoTip(t), p)
	if !errors.Is(err, ErrSimulation) {
		t.Fatalf("err = %v, want ErrSimulation", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("engine cause lost: %v", err)
	}
}

func TestEmptyReplicate(t *testing.T) {
	eng := &fakeEngine{reps: []coalescent.Replicate{}}
	d := New(eng, rand.NewSource(1))
	p := Params{ThetaMin: 0.01, ThetaMax: 0.01, Mu: 1e-8, Length: 100}
	if _, err := d.Run(context.Background(), twoTip(t), p); !errors.Is(err, ErrSimulation) {
		t.Fatalf("err = %v, want ErrSimulation", err)
	}
}
