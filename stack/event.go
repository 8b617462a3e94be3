package stack

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
)

// Event is something the presentation layer may want to react to.
// Games queue them and hand them out through Events().
type Event interface {
	isEvent()
}

type StateChanged struct {
	From, To State
}

type ScoreChanged struct {
	Score int
}

type NoticeChanged struct {
	Notice string
}

type BlockAdded struct {
	Index    int
	Plane    Plane
	Geometry Geometry
	Color    colorful.Color
}

// BlockMoved is emitted for every active block on every tick.
type BlockMoved struct {
	Index    int
	Plane    Plane
	Position mgl64.Vec3
}

// BlockPlaced carries the result of a placement. FallDirection is +1 or -1
// along Placement.Plane when a piece was chopped off, 0 otherwise.
type BlockPlaced struct {
	Index         int
	Placement     Placement
	FallDirection int
}

// ResetStarted tells the presentation how many placed blocks to animate out,
// how far apart to stagger them, and how long the reset takes overall.
type ResetStarted struct {
	Blocks   int
	Stagger  time.Duration
	Duration time.Duration
}

func (StateChanged) isEvent()  {}
func (ScoreChanged) isEvent()  {}
func (NoticeChanged) isEvent() {}
func (BlockAdded) isEvent()    {}
func (BlockMoved) isEvent()    {}
func (BlockPlaced) isEvent()   {}
func (ResetStarted) isEvent()  {}
