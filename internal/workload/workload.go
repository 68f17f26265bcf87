// Package workload generates the key streams client workers replay
// against the cache.
package workload

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// Access patterns accepted by New.
const (
	PatternSequential = "sequential"
	PatternUniform    = "uniform"
	PatternZipf       = "zipf"
)

// Patterns lists the known access patterns.
var Patterns = []string{PatternSequential, PatternUniform, PatternZipf}

// ErrUnknownPattern is returned by New for an unrecognized pattern name.
var ErrUnknownPattern = errors.New("workload: unknown pattern")

// DefaultZipfS is the skew used for the zipf pattern when none is given.
const DefaultZipfS = 1.1

// Generator produces page keys. Generators are not safe for concurrent
// use; each worker owns one.
type Generator interface {
	// Next returns the next key to access.
	Next() int64
}

// Spec describes a generator.
type Spec struct {
	Pattern string
	// Keys is the size of the key space [0, Keys).
	Keys int64
	// ZipfS is the zipf exponent, must be > 1. Zero means DefaultZipfS.
	ZipfS float64
}

// New creates the generator described by spec, seeded with seed. Workers
// derive distinct seeds so their streams differ.
func New(spec Spec, seed uint64) (Generator, error) {
	if spec.Keys <= 0 {
		return nil, fmt.Errorf("workload: key space must be positive, got %d", spec.Keys)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	switch spec.Pattern {
	case PatternSequential:
		// Workers start at different offsets so they do not march in lockstep.
		return NewSequential(spec.Keys, rng.Int64N(spec.Keys)), nil
	case PatternUniform, "":
		return NewUniform(spec.Keys, rng), nil
	case PatternZipf:
		s := spec.ZipfS
		if s == 0 {
			s = DefaultZipfS
		}
		return NewZipf(spec.Keys, s, rng)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, spec.Pattern)
	}
}

// Sequential cycles through [0, keys) in order.
type Sequential struct {
	keys int64
	next int64
}

// NewSequential creates a sequential generator starting at start mod keys.
func NewSequential(keys, start int64) *Sequential {
	return &Sequential{keys: keys, next: ((start % keys) + keys) % keys}
}

func (g *Sequential) Next() int64 {
	k := g.next
	g.next = (g.next + 1) % g.keys
	return k
}

// Uniform picks keys uniformly from [0, keys).
type Uniform struct {
	keys int64
	rng  *rand.Rand
}

// NewUniform creates a uniform generator.
func NewUniform(keys int64, rng *rand.Rand) *Uniform {
	return &Uniform{keys: keys, rng: rng}
}

func (g *Uniform) Next() int64 {
	return g.rng.Int64N(g.keys)
}

// Zipf picks keys with a zipf distribution so low keys are hot.
type Zipf struct {
	z *rand.Zipf
}

// NewZipf creates a zipf generator with exponent s > 1.
func NewZipf(keys int64, s float64, rng *rand.Rand) (*Zipf, error) {
	if s <= 1 {
		return nil, fmt.Errorf("workload: zipf exponent must be > 1, got %v", s)
	}
	return &Zipf{z: rand.NewZipf(rng, s, 1, uint64(keys-1))}, nil
}

func (g *Zipf) Next() int64 {
	return int64(g.z.Uint64())
}

// Trace replays a fixed key sequence, wrapping at the end.
type Trace struct {
	keys []int64
	pos  int
}

// NewTrace creates a generator replaying keys. keys must not be empty.
func NewTrace(keys []int64) *Trace {
	return &Trace{keys: keys}
}

func (g *Trace) Next() int64 {
	k := g.keys[g.pos]
	g.pos = (g.pos + 1) % len(g.keys)
	return k
}
