package runmeta

import "testing"

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()

	m := New()
	m.Seed = 42
	m.Theta = 0.01
	m.Ne = 2500
	m.Mu = 1e-6
	m.RequestedLength = 1000
	m.RealizedLength = 998
	m.NTips = 3
	m.Intervals = 7
	m.Tips["0"] = "human"
	m.Tips["1"] = "chimp"
	m.Tips["2"] = "gorilla"

	if err := m.Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.RunID != m.RunID {
		t.Fatalf("RunID = %q, want %q", got.RunID, m.RunID)
	}
	if got.NTips != 3 || got.RealizedLength != 998 || got.Intervals != 7 {
		t.Fatalf("reloaded manifest %+v", got)
	}
	if got.Tips["2"] != "gorilla" {
		t.Fatalf("Tips[2] = %q, want gorilla", got.Tips["2"])
	}
	// Don't depend on TOML keeping sub-second precision.
	if got.CreatedAt.Unix() != m.CreatedAt.Unix() {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, m.CreatedAt)
	}
}

func TestNewAssignsDistinctIDs(t *testing.T) {
	a, b := New(), New()
	if a.RunID == "" || a.RunID == b.RunID {
		t.Fatalf("run ids %q, %q should be distinct and non-empty", a.RunID, b.RunID)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("want error for missing manifest")
	}
}
