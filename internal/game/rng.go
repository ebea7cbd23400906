package game

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// RNG is the single source of randomness for a session. Its state is part of
// the snapshot so a restored session replays the same draws.
type RNG struct {
	src *rand.PCG
	r   *rand.Rand
}

func NewRNG(seed uint64) *RNG {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &RNG{src: src, r: rand.New(src)}
}

func (g *RNG) Float64() float64 { return g.r.Float64() }

// Uniform draws from [lo, hi). A degenerate range returns lo.
func (g *RNG) Uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + g.r.Float64()*(hi-lo)
}

// IntBetween draws from [lo, hi] inclusive.
func (g *RNG) IntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.r.IntN(hi-lo+1)
}

func (g *RNG) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	return g.r.IntN(n)
}

func (g *RNG) Chance(p float64) bool {
	return g.r.Float64() < p
}

// Pick returns the index drawn from a categorical distribution. Entries are
// visited in order, so the table order is part of the draw.
func (g *RNG) Pick(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return 0
	}
	x := g.r.Float64() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if x < w {
			return i
		}
		x -= w
	}
	return len(weights) - 1
}

func (g *RNG) Choice(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[g.r.IntN(len(items))]
}

// Read lets the RNG feed uuid generation.
func (g *RNG) Read(p []byte) (int, error) {
	var buf [8]byte
	for i := 0; i < len(p); i += 8 {
		binary.LittleEndian.PutUint64(buf[:], g.r.Uint64())
		copy(p[i:], buf[:])
	}
	return len(p), nil
}

// NewID draws a v4 uuid from the session stream.
func (g *RNG) NewID() string {
	id, err := uuid.NewRandomFromReader(g)
	if err != nil {
		panic(fmt.Sprintf("rng uuid: %v", err))
	}
	return id.String()
}

func (g *RNG) MarshalBinary() ([]byte, error) {
	return g.src.MarshalBinary()
}

func (g *RNG) UnmarshalBinary(data []byte) error {
	src := &rand.PCG{}
	if err := src.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("restore rng: %w", err)
	}
	g.src = src
	g.r = rand.New(src)
	return nil
}
