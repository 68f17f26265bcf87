package workload

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"sequential", Spec{Pattern: PatternSequential, Keys: 10}, false},
		{"uniform", Spec{Pattern: PatternUniform, Keys: 10}, false},
		{"default pattern", Spec{Keys: 10}, false},
		{"zipf", Spec{Pattern: PatternZipf, Keys: 10}, false},
		{"zipf bad exponent", Spec{Pattern: PatternZipf, Keys: 10, ZipfS: 0.5}, true},
		{"zero keys", Spec{Pattern: PatternUniform}, true},
		{"unknown", Spec{Pattern: "spiral", Keys: 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.spec, 1)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			for range 1000 {
				if k := g.Next(); k < 0 || k >= tt.spec.Keys {
					t.Fatalf("Next() = %d, outside [0, %d)", k, tt.spec.Keys)
				}
			}
		})
	}
}

func TestNew_UnknownPattern(t *testing.T) {
	_, err := New(Spec{Pattern: "spiral", Keys: 1}, 1)
	if !errors.Is(err, ErrUnknownPattern) {
		t.Errorf("New() error = %v, want ErrUnknownPattern", err)
	}
}

func TestNew_Deterministic(t *testing.T) {
	for _, p := range Patterns {
		a, _ := New(Spec{Pattern: p, Keys: 100}, 42)
		b, _ := New(Spec{Pattern: p, Keys: 100}, 42)
		for i := range 100 {
			if x, y := a.Next(), b.Next(); x != y {
				t.Fatalf("%s: draw %d = %d and %d with the same seed", p, i, x, y)
			}
		}
	}
}

func TestSequential(t *testing.T) {
	g := NewSequential(3, 2)
	var got []int64
	for range 5 {
		got = append(got, g.Next())
	}
	if want := []int64{2, 0, 1, 2, 0}; !slices.Equal(got, want) {
		t.Errorf("Next() sequence = %v, want %v", got, want)
	}
}

func TestZipf_Skewed(t *testing.T) {
	g, err := NewZipf(1000, 1.2, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("NewZipf() error = %v", err)
	}
	low := 0
	const draws = 10000
	for range draws {
		if g.Next() < 10 {
			low++
		}
	}
	// The ten hottest keys of a thousand take far more than 1% of draws.
	if low < draws/4 {
		t.Errorf("keys < 10 drawn %d/%d times, want a skewed distribution", low, draws)
	}
}

func TestTrace(t *testing.T) {
	g := NewTrace([]int64{1, 2, 3})
	var got []int64
	for range 7 {
		got = append(got, g.Next())
	}
	if want := []int64{1, 2, 3, 1, 2, 3, 1}; !slices.Equal(got, want) {
		t.Errorf("Next() sequence = %v, want %v", got, want)
	}
}
