package client

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stack/stack"

	"github.com/eiannone/keyboard"
)

type mockGame struct {
	actions int
	ticks   []time.Duration
	err     error
	mu      sync.Mutex
}

func (m *mockGame) Action() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions++
	return m.err
}

func (m *mockGame) Tick(dt time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks = append(m.ticks, dt)
	return nil
}

func (m *mockGame) Read() *stack.Snapshot { return &stack.Snapshot{} }
func (m *mockGame) Events() []stack.Event { return []stack.Event{stack.ScoreChanged{Score: 1}} }

func (m *mockGame) counts() (int, []time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.actions, append([]time.Duration(nil), m.ticks...)
}

type mockRender struct {
	frames chan *stack.Snapshot
}

func (m *mockRender) frame(s *stack.Snapshot) { m.frames <- s }

func (m *mockRender) wait(t *testing.T) {
	t.Helper()
	select {
	case <-m.frames:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for a frame")
	}
}

type mockTicker struct {
	ch   chan time.Time
	stop atomic.Bool
}

func newMockTicker() *mockTicker          { return &mockTicker{ch: make(chan time.Time)} }
func (m *mockTicker) C() <-chan time.Time { return m.ch }
func (m *mockTicker) Stop()               { m.stop.Store(true) }

func newTestClient(game stackGame) (*Client, *mockRender, *mockTicker, chan keyboard.KeyEvent) {
	render := &mockRender{frames: make(chan *stack.Snapshot, 10)}
	ticker := newMockTicker()
	kCh := make(chan keyboard.KeyEvent)
	return &Client{
		game:     game,
		render:   render,
		ticker:   ticker,
		interval: 16 * time.Millisecond,
		logger:   slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})),
		kbCh:     kCh,
	}, render, ticker, kCh
}

func TestClient(t *testing.T) {
	game := &mockGame{}
	cl, render, ticker, kCh := newTestClient(game)

	done := make(chan struct{})
	go func() { cl.Start(); close(done) }()
	render.wait(t)

	// space and enter are actions, anything else is ignored.
	for i, key := range []keyboard.KeyEvent{{Key: keyboard.KeySpace}, {Key: keyboard.KeyEnter}} {
		kCh <- key
		render.wait(t)
		if actions, _ := game.counts(); actions != i+1 {
			t.Errorf("wanted %d actions, got %d", i+1, actions)
		}
	}
	kCh <- keyboard.KeyEvent{Rune: 'x'}

	// the first frame has no previous one to measure against.
	start := time.Now()
	ticker.ch <- start
	render.wait(t)
	ticker.ch <- start.Add(20 * time.Millisecond)
	render.wait(t)
	actions, ticks := game.counts()
	if actions != 2 {
		t.Errorf("wanted 2 actions, got %d", actions)
	}
	if len(ticks) != 2 || ticks[0] != 16*time.Millisecond || ticks[1] != 20*time.Millisecond {
		t.Errorf("wanted ticks [16ms 20ms], got %v", ticks)
	}

	kCh <- keyboard.KeyEvent{Rune: 'q'}
	select {
	case <-time.After(time.Second):
		t.Errorf("timeout waiting for quit")
	case <-done:
	}
	if !ticker.stop.Load() {
		t.Errorf("wanted ticker to be stopped")
	}
}

func TestClientStopsOnError(t *testing.T) {
	game := &mockGame{err: errors.New("connection lost")}
	cl, render, _, kCh := newTestClient(game)

	done := make(chan struct{})
	go func() { cl.Start(); close(done) }()
	render.wait(t)

	kCh <- keyboard.KeyEvent{Key: keyboard.KeySpace}
	select {
	case <-time.After(time.Second):
		t.Errorf("timeout waiting for the client to stop")
	case <-done:
	}
}

func TestLocalGame(t *testing.T) {
	g := localGame{stack.NewTestGame()}
	if err := g.Action(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Tick(16 * time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := g.Read(); s.State != stack.Playing || s.Blocks[1].Position.X() == stack.MoveAmount {
		t.Errorf("wanted a playing game with a moving block, got %+v", s)
	}
}
