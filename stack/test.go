package stack

import (
	"io"
	"log/slog"
)

// FixedRand is a Rand that always returns the same values.
type FixedRand struct {
	F float64
	N int
}

func (r FixedRand) Float64() float64 { return r.F }
func (r FixedRand) IntN(n int) int   { return min(r.N, n-1) }

// NewTestGame creates a game where every new block starts at +MoveAmount
// and the color offset is 0.
func NewTestGame() *Game {
	return NewConfigurableGame(FixedRand{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}
