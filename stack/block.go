// Package stack contains the logic of the game: blocks slide back and forth
// on alternating axes and are chopped down to the part that lands on the
// block beneath them.
package stack

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	// MoveAmount bounds the oscillation of an active block on its working plane.
	MoveAmount = 12.0
	// BonusTolerance is the widest gap still counted as a perfect placement.
	BonusTolerance = 0.3

	baseWidth  = 10.0
	baseHeight = 2.0
	baseDepth  = 10.0

	minSpeed = -4.0
)

var baseColor = colorful.Color{R: 0x33 / 255.0, G: 0x33 / 255.0, B: 0x44 / 255.0}

// Plane is the horizontal axis a block moves and shrinks along.
type Plane int

const (
	PlaneZ Plane = iota // Even blocks move along z and shrink in depth.
	PlaneX              // Odd blocks move along x and shrink in width.
)

func planeFor(index int) Plane {
	if index%2 == 1 {
		return PlaneX
	}
	return PlaneZ
}

// axis is the vector component the plane and its dimension live in.
// mgl64 vectors are {x, y, z} for positions and {width, height, depth} for sizes.
func (p Plane) axis() int {
	if p == PlaneX {
		return 0
	}
	return 2
}

func (p Plane) String() string {
	if p == PlaneX {
		return "x"
	}
	return "z"
}

// Dimension names the size component the plane shrinks.
func (p Plane) Dimension() string {
	if p == PlaneX {
		return "width"
	}
	return "depth"
}

type BlockState int

const (
	Active BlockState = iota
	Stopped
	Missed
)

func (s BlockState) String() string {
	switch s {
	case Active:
		return "active"
	case Stopped:
		return "stopped"
	case Missed:
		return "missed"
	default:
		return "unknown"
	}
}

// Rand is the randomness the game needs. *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Geometry is a box anchored at its minimum corner.
type Geometry struct {
	Position  mgl64.Vec3
	Dimension mgl64.Vec3
}

// Placement is the outcome of dropping a block onto its target.
type Placement struct {
	Plane     Plane
	Direction float64
	Bonus     bool
	Overlap   float64
	Placed    *Geometry // nil on a miss
	Chopped   *Geometry // nil on a miss or a bonus
}

// Block is one slab of the tower. Its target is the block right beneath it,
// which the owning Game passes in by index.
type Block struct {
	Index     int
	Plane     Plane
	Dimension mgl64.Vec3
	Position  mgl64.Vec3
	State     BlockState
	Speed     float64
	Direction float64
	Color     colorful.Color

	colorOffset int
}

func newBaseBlock(colorOffset int) Block {
	return Block{
		Plane:       planeFor(0),
		Dimension:   mgl64.Vec3{baseWidth, baseHeight, baseDepth},
		State:       Stopped,
		Color:       baseColor,
		colorOffset: colorOffset,
	}
}

func newBlock(target *Block, r Rand) Block {
	index := target.Index + 1
	b := Block{
		Index:       index,
		Plane:       planeFor(index),
		Dimension:   target.Dimension,
		State:       Active,
		Speed:       max(-0.1-float64(index)*0.005, minSpeed),
		colorOffset: target.colorOffset,
	}
	b.Direction = b.Speed
	b.Position = mgl64.Vec3{target.Position.X(), b.Dimension.Y() * float64(index), target.Position.Z()}
	b.Color = blockColor(index + b.colorOffset)

	start := MoveAmount
	if r.Float64() > 0.5 {
		start = -MoveAmount
	}
	b.Position[b.Plane.axis()] = start
	return b
}

func blockColor(offset int) colorful.Color {
	c := func(phase float64) float64 {
		return (math.Sin(0.3*float64(offset)+phase)*55 + 200) / 255
	}
	return colorful.Color{R: c(0), G: c(2), B: c(4)}
}

// Geometry returns the block's current box.
func (b *Block) Geometry() Geometry {
	return Geometry{Position: b.Position, Dimension: b.Dimension}
}

// Tick advances an active block one step along its working plane. It turns
// around before a step would take it past MoveAmount on either side.
func (b *Block) Tick() {
	if b.State != Active {
		return
	}
	axis := b.Plane.axis()
	switch next := b.Position[axis] + b.Direction; {
	case next > MoveAmount:
		b.Direction = -math.Abs(b.Speed)
	case next < -MoveAmount:
		b.Direction = math.Abs(b.Speed)
	}
	b.Position[axis] += b.Direction
}

// Place stops the block on top of target and splits it into the part that
// overlaps target and the part that falls off. It reports false, and changes
// nothing, when the block is not active.
func (b *Block) Place(target *Block) (Placement, bool) {
	if b.State != Active || target == nil {
		return Placement{}, false
	}
	b.State = Stopped

	axis := b.Plane.axis()
	overlap := target.Dimension[axis] - math.Abs(b.Position[axis]-target.Position[axis])
	p := Placement{Plane: b.Plane, Direction: b.Direction}

	if b.Dimension[axis]-overlap < BonusTolerance {
		p.Bonus = true
		b.Position[0], b.Position[2] = target.Position[0], target.Position[2]
		b.Dimension[0], b.Dimension[2] = target.Dimension[0], target.Dimension[2]
		overlap = b.Dimension[axis]
	}
	p.Overlap = overlap

	if overlap <= 0 {
		b.State = Missed
		b.Dimension[axis] = overlap
		return p, true
	}

	chopped := b.Geometry()
	chopped.Dimension[axis] -= overlap
	b.Dimension[axis] = overlap
	if b.Position[axis] < target.Position[axis] {
		b.Position[axis] = target.Position[axis]
	} else {
		chopped.Position[axis] += overlap
	}

	placed := b.Geometry()
	p.Placed = &placed
	if !p.Bonus {
		p.Chopped = &chopped
	}
	return p, true
}
