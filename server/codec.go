package server

import (
	"fmt"
	"math"
	"time"

	"stack/stack"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxTickMs is the longest tick a time.Duration can hold; +Inf is above it too.
const maxTickMs = float64(math.MaxInt64 / int64(time.Millisecond))

type InputKind string

const (
	InputAction InputKind = "action"
	InputTick   InputKind = "tick"
)

// Frame is what the server sends after every input: the whole game plus the
// events the input produced.
type Frame struct {
	Session  string
	Snapshot *stack.Snapshot
	Events   []stack.Event
}

var (
	states      = map[string]stack.State{}
	planes      = map[string]stack.Plane{}
	blockStates = map[string]stack.BlockState{}
)

func init() {
	for s := stack.Loading; s <= stack.Resetting; s++ {
		states[s.String()] = s
	}
	for _, p := range []stack.Plane{stack.PlaneX, stack.PlaneZ} {
		planes[p.String()] = p
	}
	for s := stack.Active; s <= stack.Missed; s++ {
		blockStates[s.String()] = s
	}
}

func ActionInput() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"input": structpb.NewStringValue(string(InputAction)),
	}}
}

func TickInput(dt time.Duration) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"input": structpb.NewStringValue(string(InputTick)),
		"dt_ms": structpb.NewNumberValue(float64(dt) / float64(time.Millisecond)),
	}}
}

func DecodeInput(s *structpb.Struct) (InputKind, time.Duration, error) {
	switch k := InputKind(s.GetFields()["input"].GetStringValue()); k {
	case InputAction:
		return k, 0, nil
	case InputTick:
		ms := s.GetFields()["dt_ms"].GetNumberValue()
		if math.IsNaN(ms) || ms < 0 || ms > maxTickMs {
			return "", 0, fmt.Errorf("invalid tick duration %vms", ms)
		}
		return k, time.Duration(ms * float64(time.Millisecond)), nil
	default:
		return "", 0, fmt.Errorf("unknown input %q", k)
	}
}

func EncodeFrame(f Frame) (*structpb.Struct, error) {
	blocks := make([]any, len(f.Snapshot.Blocks))
	for i, b := range f.Snapshot.Blocks {
		blocks[i] = map[string]any{
			"index":     b.Index,
			"plane":     b.Plane.String(),
			"state":     b.State.String(),
			"position":  vec(b.Position),
			"dimension": vec(b.Dimension),
			"speed":     b.Speed,
			"direction": b.Direction,
			"color":     b.Color.Hex(),
		}
	}
	events := make([]any, len(f.Events))
	for i, e := range f.Events {
		events[i] = encodeEvent(e)
	}
	return structpb.NewStruct(map[string]any{
		"session": f.Session,
		"state":   f.Snapshot.State.String(),
		"score":   f.Snapshot.Score,
		"notice":  f.Snapshot.Notice,
		"blocks":  blocks,
		"events":  events,
	})
}

func encodeEvent(e stack.Event) map[string]any {
	switch e := e.(type) {
	case stack.StateChanged:
		return map[string]any{"type": "state", "from": e.From.String(), "to": e.To.String()}
	case stack.ScoreChanged:
		return map[string]any{"type": "score", "score": e.Score}
	case stack.NoticeChanged:
		return map[string]any{"type": "notice", "notice": e.Notice}
	case stack.BlockAdded:
		return map[string]any{
			"type":      "block_added",
			"index":     e.Index,
			"plane":     e.Plane.String(),
			"position":  vec(e.Geometry.Position),
			"dimension": vec(e.Geometry.Dimension),
			"color":     e.Color.Hex(),
		}
	case stack.BlockMoved:
		return map[string]any{"type": "block_moved", "index": e.Index, "plane": e.Plane.String(), "position": vec(e.Position)}
	case stack.BlockPlaced:
		m := map[string]any{
			"type":           "block_placed",
			"index":          e.Index,
			"plane":          e.Placement.Plane.String(),
			"dimension":      e.Placement.Plane.Dimension(),
			"direction":      e.Placement.Direction,
			"bonus":          e.Placement.Bonus,
			"overlap":        e.Placement.Overlap,
			"fall_direction": e.FallDirection,
		}
		if e.Placement.Placed != nil {
			m["placed"] = geometry(*e.Placement.Placed)
		}
		if e.Placement.Chopped != nil {
			m["chopped"] = geometry(*e.Placement.Chopped)
		}
		return m
	case stack.ResetStarted:
		return map[string]any{
			"type":        "reset",
			"blocks":      e.Blocks,
			"stagger_ms":  e.Stagger.Milliseconds(),
			"duration_ms": e.Duration.Milliseconds(),
		}
	default:
		return map[string]any{"type": fmt.Sprintf("%T", e)}
	}
}

func vec(v mgl64.Vec3) []any {
	return []any{v[0], v[1], v[2]}
}

func geometry(g stack.Geometry) map[string]any {
	return map[string]any{"position": vec(g.Position), "dimension": vec(g.Dimension)}
}

func DecodeFrame(s *structpb.Struct) (Frame, error) {
	f := &fields{m: s.AsMap()}
	frame := Frame{
		Session: f.str("session"),
		Snapshot: &stack.Snapshot{
			State:  f.state("state"),
			Score:  int(f.num("score")),
			Notice: f.str("notice"),
		},
	}
	for _, b := range f.list("blocks") {
		bf := f.child(b)
		frame.Snapshot.Blocks = append(frame.Snapshot.Blocks, stack.Block{
			Index:     int(bf.num("index")),
			Plane:     bf.plane("plane"),
			State:     bf.blockState("state"),
			Position:  bf.vec("position"),
			Dimension: bf.vec("dimension"),
			Speed:     bf.num("speed"),
			Direction: bf.num("direction"),
			Color:     bf.color("color"),
		})
	}
	for _, e := range f.list("events") {
		if ev := decodeEvent(f.child(e)); ev != nil {
			frame.Events = append(frame.Events, ev)
		}
	}
	if f.err != nil {
		return Frame{}, fmt.Errorf("failed to decode frame: %w", f.err)
	}
	return frame, nil
}

func decodeEvent(f *fields) stack.Event {
	switch t := f.str("type"); t {
	case "state":
		return stack.StateChanged{From: f.state("from"), To: f.state("to")}
	case "score":
		return stack.ScoreChanged{Score: int(f.num("score"))}
	case "notice":
		return stack.NoticeChanged{Notice: f.str("notice")}
	case "block_added":
		return stack.BlockAdded{
			Index:    int(f.num("index")),
			Plane:    f.plane("plane"),
			Geometry: stack.Geometry{Position: f.vec("position"), Dimension: f.vec("dimension")},
			Color:    f.color("color"),
		}
	case "block_moved":
		return stack.BlockMoved{Index: int(f.num("index")), Plane: f.plane("plane"), Position: f.vec("position")}
	case "block_placed":
		e := stack.BlockPlaced{
			Index: int(f.num("index")),
			Placement: stack.Placement{
				Plane:     f.plane("plane"),
				Direction: f.num("direction"),
				Bonus:     f.boolean("bonus"),
				Overlap:   f.num("overlap"),
			},
			FallDirection: int(f.num("fall_direction")),
		}
		e.Placement.Placed = f.geometry("placed")
		e.Placement.Chopped = f.geometry("chopped")
		return e
	case "reset":
		return stack.ResetStarted{
			Blocks:   int(f.num("blocks")),
			Stagger:  time.Duration(f.num("stagger_ms")) * time.Millisecond,
			Duration: time.Duration(f.num("duration_ms")) * time.Millisecond,
		}
	default:
		f.fail("type", "a known event type")
		return nil
	}
}

// fields reads a decoded Struct and keeps the first error it runs into.
type fields struct {
	m      map[string]any
	err    error
	parent *fields
}

func (f *fields) child(v any) *fields {
	m, ok := v.(map[string]any)
	c := &fields{m: m, parent: f}
	if !ok {
		c.setErr(fmt.Errorf("expected an object, got %T", v))
	}
	return c
}

func (f *fields) setErr(err error) {
	for ; f != nil; f = f.parent {
		if f.err == nil {
			f.err = err
		}
	}
}

func (f *fields) fail(key, want string) {
	f.setErr(fmt.Errorf("field %q: expected %s, got %v", key, want, f.m[key]))
}

func (f *fields) num(key string) float64 {
	v, ok := f.m[key].(float64)
	if !ok {
		f.fail(key, "a number")
	}
	return v
}

func (f *fields) str(key string) string {
	v, ok := f.m[key].(string)
	if !ok {
		f.fail(key, "a string")
	}
	return v
}

func (f *fields) boolean(key string) bool {
	v, ok := f.m[key].(bool)
	if !ok {
		f.fail(key, "a bool")
	}
	return v
}

func (f *fields) list(key string) []any {
	v, ok := f.m[key].([]any)
	if !ok {
		f.fail(key, "a list")
	}
	return v
}

func (f *fields) vec(key string) mgl64.Vec3 {
	var v mgl64.Vec3
	l, ok := f.m[key].([]any)
	if !ok || len(l) != len(v) {
		f.fail(key, "a 3 component vector")
		return v
	}
	for i := range l {
		n, ok := l[i].(float64)
		if !ok {
			f.fail(key, "a 3 component vector")
			return v
		}
		v[i] = n
	}
	return v
}

func (f *fields) geometry(key string) *stack.Geometry {
	if _, ok := f.m[key]; !ok {
		return nil
	}
	g := f.child(f.m[key])
	return &stack.Geometry{Position: g.vec("position"), Dimension: g.vec("dimension")}
}

func (f *fields) color(key string) colorful.Color {
	c, err := colorful.Hex(f.str(key))
	if err != nil {
		f.fail(key, "a hex color")
	}
	return c
}

func (f *fields) state(key string) stack.State {
	s, ok := states[f.str(key)]
	if !ok {
		f.fail(key, "a game state")
	}
	return s
}

func (f *fields) plane(key string) stack.Plane {
	p, ok := planes[f.str(key)]
	if !ok {
		f.fail(key, "a plane")
	}
	return p
}

func (f *fields) blockState(key string) stack.BlockState {
	s, ok := blockStates[f.str(key)]
	if !ok {
		f.fail(key, "a block state")
	}
	return s
}
