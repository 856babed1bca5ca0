// Package generator builds shuffled Schulte grids.
package generator

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"

	"github.com/verte-zerg/schulte/internal/model"
)

// Generator produces randomized grids.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded from crypto/rand, falling back to the current time.
func New() *Generator {
	return NewWithSeed(newSeed())
}

// NewWithSeed returns a Generator with a fixed seed.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate returns a uniformly shuffled permutation of 1..size*size laid out row-major.
func (g *Generator) Generate(size int) (model.Grid, error) {
	if err := model.ValidateSize(size); err != nil {
		return model.Grid{}, err
	}
	n := size * size
	cells := make([]int, n)
	for i := range cells {
		cells[i] = i + 1
	}
	// Fisher-Yates.
	for i := n - 1; i > 0; i-- {
		j := g.rnd.Intn(i + 1)
		cells[i], cells[j] = cells[j], cells[i]
	}
	return model.Grid{Size: size, Cells: cells}, nil
}

func newSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
