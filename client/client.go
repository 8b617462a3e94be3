package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"stack/stack"

	"github.com/eiannone/keyboard"
)

type stackGame interface {
	Action() error
	Tick(time.Duration) error
	Read() *stack.Snapshot
	Events() []stack.Event
}

type renderer interface {
	frame(*stack.Snapshot)
}

// localGame runs the game in process, where nothing can fail.
type localGame struct {
	*stack.Game
}

func (l localGame) Action() error {
	l.Game.Action()
	return nil
}

func (l localGame) Tick(dt time.Duration) error {
	l.Game.Tick(dt)
	return nil
}

type Client struct {
	game     stackGame
	render   renderer
	ticker   Ticker
	interval time.Duration
	logger   *slog.Logger
	kbCh     <-chan keyboard.KeyEvent
}

type Options struct {
	// Address of a bridge server. Empty plays locally.
	Address  string
	// Interval between frames. Zero means 60 frames per second.
	Interval time.Duration
	Rows     int
}

func New(l *slog.Logger, o *Options) (*Client, error) {
	var game stackGame = localGame{stack.NewGame()}
	if o.Address != "" {
		rg, err := NewRemoteGame(context.Background(), o.Address, l)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", o.Address, err)
		}
		game = rg
	}
	kb, err := keyboard.GetKeys(20)
	if err != nil {
		if closer, ok := game.(io.Closer); ok {
			closer.Close() //nolint: errcheck
		}
		return nil, fmt.Errorf("failed to open keyboard: %w", err)
	}
	interval := o.Interval
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &Client{
		game:     game,
		render:   newRender(l, o.Rows),
		ticker:   newWrappedTicker(interval),
		interval: interval,
		logger:   l,
		kbCh:     kb,
	}, nil
}

// Start runs the game until the player quits.
func (c *Client) Start() {
	defer c.ticker.Stop()
	c.render.frame(c.game.Read())

	var last time.Time
	for {
		select {
		case event, ok := <-c.kbCh:
			if !ok {
				c.logger.Error("Keyboard events channel closed unexpectedly")
				return
			}
			if event.Err != nil {
				c.logger.Error("keysEvents error", slog.String("error", event.Err.Error()))
				return
			}
			switch {
			case event.Key == keyboard.KeyCtrlC || event.Key == keyboard.KeyEsc || event.Rune == 'q':
				return
			case event.Key == keyboard.KeySpace || event.Key == keyboard.KeyEnter:
				if err := c.game.Action(); err != nil {
					c.logger.Error("unable to send action", slog.String("error", err.Error()))
					return
				}
			default:
				continue
			}
		case now := <-c.ticker.C():
			dt := c.interval
			if !last.IsZero() {
				dt = now.Sub(last)
			}
			last = now
			if err := c.game.Tick(dt); err != nil {
				c.logger.Error("unable to send tick", slog.String("error", err.Error()))
				return
			}
		}
		c.logEvents(c.game.Events())
		c.render.frame(c.game.Read())
	}
}

// Close releases the keyboard and, when playing remotely, the connection.
func (c *Client) Close() error {
	if err := keyboard.Close(); err != nil {
		return fmt.Errorf("failed to close keyboard: %w", err)
	}
	if closer, ok := c.game.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) logEvents(events []stack.Event) {
	for _, e := range events {
		switch e := e.(type) {
		case stack.BlockMoved:
			// every frame, too noisy.
		case stack.BlockPlaced:
			c.logger.Debug("block placed",
				slog.Int("index", e.Index),
				slog.Bool("bonus", e.Placement.Bonus),
				slog.Float64("overlap", e.Placement.Overlap),
				slog.Int("fall", e.FallDirection))
		case stack.StateChanged:
			c.logger.Debug("state changed", slog.String("from", e.From.String()), slog.String("to", e.To.String()))
		case stack.ResetStarted:
			c.logger.Debug("reset started", slog.Int("blocks", e.Blocks), slog.Duration("duration", e.Duration))
		}
	}
}
