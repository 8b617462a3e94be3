package stack

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

type State int

const (
	Loading State = iota
	Ready
	Playing
	Ended
	Resetting
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Ended:
		return "ended"
	case Resetting:
		return "resetting"
	default:
		return "unknown"
	}
}

const (
	NoticePerfect = "Perfect!"
	NoticeRestart = "Click to restart"

	// removal animation timings the reset waits for.
	resetRemoveTime = 200 * time.Millisecond
	resetStagger    = 20 * time.Millisecond
)

// Pools keeps the geometry handed to the presentation layer.
// It has no effect on gameplay.
type Pools struct {
	Placed  []Geometry
	Chopped []Geometry
	New     []int // indexes of blocks waiting to be placed
}

func (p Pools) copy() Pools {
	return Pools{
		Placed:  slices.Clone(p.Placed),
		Chopped: slices.Clone(p.Chopped),
		New:     slices.Clone(p.New),
	}
}

// Snapshot is a copy of the game that's safe to read while the game moves on.
type Snapshot struct {
	State  State
	Score  int
	Notice string
	Blocks []Block
	Pools  Pools
}

// Game owns the tower and drives it from two inputs: Action, whenever the
// player does something, and Tick, once per frame.
type Game struct {
	state  State
	blocks []Block
	pools  Pools
	score  int
	notice string
	events []Event

	resetElapsed  time.Duration
	resetDuration time.Duration

	colorOffset int
	rand        Rand
	logger      *slog.Logger
	mu          sync.RWMutex
}

func NewGame() *Game {
	seed := uint64(time.Now().UnixNano()) //nolint:gosec
	return NewConfigurableGame(
		rand.New(rand.NewPCG(seed, seed>>1)), //nolint:gosec
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func NewConfigurableGame(r Rand, l *slog.Logger) *Game {
	g := &Game{
		state:       Loading,
		rand:        r,
		logger:      l,
		colorOffset: r.IntN(101),
	}
	g.setup()
	return g
}

func (g *Game) setup() {
	g.blocks = []Block{newBaseBlock(g.colorOffset)}
	g.pools = Pools{}
	g.setState(Ready)
}

// Action reacts to the player according to the current state. It returns
// false when the state ignores actions.
func (g *Game) Action() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case Ready:
		g.startGame()
	case Playing:
		g.placeBlock()
	case Ended:
		g.resetGame()
	case Loading, Resetting:
		g.logger.Debug("action ignored", slog.String("state", g.state.String()))
		return false
	}
	return true
}

// Tick moves every active block one step. While resetting it counts dt
// towards the end of the reset instead; a dt that is not positive doesn't
// count.
func (g *Game) Tick(dt time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == Resetting {
		switch {
		case dt <= 0:
		case dt >= g.resetDuration-g.resetElapsed:
			g.resetElapsed = g.resetDuration
		default:
			g.resetElapsed += dt
		}
		if g.resetElapsed >= g.resetDuration {
			g.finishReset()
		}
		return
	}

	for i := range g.blocks {
		b := &g.blocks[i]
		if b.State != Active {
			continue
		}
		b.Tick()
		g.emit(BlockMoved{Index: b.Index, Plane: b.Plane, Position: b.Position})
	}
}

// FinishReset completes a pending reset right away. Calling it in any other
// state, or twice, does nothing.
func (g *Game) FinishReset() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Resetting {
		return false
	}
	g.finishReset()
	return true
}

// Events returns the events queued since the last call.
func (g *Game) Events() []Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.events
	g.events = nil
	return e
}

// Read returns a copy of the current game that's safe to read concurrently.
func (g *Game) Read() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return &Snapshot{
		State:  g.state,
		Score:  g.score,
		Notice: g.notice,
		Blocks: slices.Clone(g.blocks),
		Pools:  g.pools.copy(),
	}
}

func (g *Game) startGame() {
	g.setScore(0)
	g.setNotice("")
	g.setState(Playing)
	g.addBlock()
}

// addBlock puts a new active block on top of the tower, unless the top
// block missed.
func (g *Game) addBlock() bool {
	last := &g.blocks[len(g.blocks)-1]
	if last.State == Missed {
		return false
	}
	b := newBlock(last, g.rand)
	g.blocks = append(g.blocks, b)
	g.pools.New = append(g.pools.New, b.Index)
	g.emit(BlockAdded{Index: b.Index, Plane: b.Plane, Geometry: b.Geometry(), Color: b.Color})
	return true
}

func (g *Game) placeBlock() {
	i := len(g.blocks) - 1
	if i == 0 {
		return
	}
	current := &g.blocks[i]
	p, ok := current.Place(&g.blocks[i-1])
	if !ok {
		g.logger.Debug("top block is not active", slog.Int("index", i), slog.String("state", current.State.String()))
		return
	}
	g.pools.New = slices.DeleteFunc(g.pools.New, func(n int) bool { return n == i })

	ev := BlockPlaced{Index: i, Placement: p}
	if p.Placed != nil {
		g.pools.Placed = append(g.pools.Placed, *p.Placed)
		g.setScore(len(g.blocks) - 1)
	}
	if p.Chopped != nil {
		g.pools.Chopped = append(g.pools.Chopped, *p.Chopped)
		ev.FallDirection = fallDirection(p)
	}
	g.emit(ev)

	switch {
	case p.Bonus:
		g.setNotice(NoticePerfect)
	case g.notice == NoticePerfect:
		g.setNotice("")
	}

	if current.State == Missed {
		g.endGame()
		return
	}
	g.addBlock()
}

// fallDirection tells which way the chopped piece leaves the tower: away from
// the placed block along the working plane.
func fallDirection(p Placement) int {
	axis := p.Plane.axis()
	if p.Chopped.Position[axis] > p.Placed.Position[axis] {
		return 1
	}
	return -1
}

func (g *Game) endGame() {
	g.setState(Ended)
	g.setNotice(NoticeRestart)
}

func (g *Game) resetGame() {
	g.setState(Resetting)
	n := len(g.pools.Placed)
	g.resetElapsed = 0
	g.resetDuration = resetDuration(n)
	g.emit(ResetStarted{Blocks: n, Stagger: resetStagger, Duration: g.resetDuration})
}

func resetDuration(blocks int) time.Duration {
	return 2*resetRemoveTime + time.Duration(blocks)*resetStagger
}

func (g *Game) finishReset() {
	g.resetElapsed, g.resetDuration = 0, 0
	g.setNotice("")
	g.setup()
}

func (g *Game) setState(s State) {
	if g.state == s {
		return
	}
	g.emit(StateChanged{From: g.state, To: s})
	g.logger.Debug("state changed", slog.String("from", g.state.String()), slog.String("to", s.String()))
	g.state = s
}

func (g *Game) setScore(s int) {
	g.score = s
	g.emit(ScoreChanged{Score: s})
}

func (g *Game) setNotice(n string) {
	if g.notice == n {
		return
	}
	g.notice = n
	g.emit(NoticeChanged{Notice: n})
}

func (g *Game) emit(e Event) {
	g.events = append(g.events, e)
}
