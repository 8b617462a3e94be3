package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"stack/stack"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stackServer struct {
	sessions map[string]struct{}
	newGame  func() *stack.Game
	metrics  *metrics
	logger   *slog.Logger
	mu       sync.Mutex
}

func New(l *slog.Logger, reg prometheus.Registerer) StackServiceServer {
	return newServer(l, reg, stack.NewGame)
}

func newServer(l *slog.Logger, reg prometheus.Registerer, newGame func() *stack.Game) *stackServer {
	return &stackServer{
		sessions: make(map[string]struct{}),
		newGame:  newGame,
		metrics:  newMetrics(reg),
		logger:   l,
	}
}

// Play runs a game for as long as the stream stays open. The first frame is
// sent right away so the client has something to render before any input.
func (s *stackServer) Play(stream PlayServer) error {
	id := uuid.New().String()
	game := s.newGame()
	s.open(id)
	defer s.close(id)
	logger := s.logger.With(slog.String("session", id))
	logger.Info("session started")

	if err := s.send(stream, id, game); err != nil {
		return err
	}
	for {
		in, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("session finished")
				return nil
			}
			if status.Code(err) == codes.Canceled {
				logger.Debug("stream.Recv() closed with Cancel", slog.String("msg", err.Error()))
				return nil
			}
			return fmt.Errorf("failed to receive Play message: %w", err)
		}

		kind, dt, err := DecodeInput(in)
		if err != nil {
			logger.Warn("invalid input", slog.String("error", err.Error()))
			return status.Error(codes.InvalidArgument, err.Error())
		}
		switch kind {
		case InputAction:
			game.Action()
		case InputTick:
			game.Tick(dt)
		}

		if err := s.send(stream, id, game); err != nil {
			return err
		}
	}
}

func (s *stackServer) send(stream PlayServer, id string, game *stack.Game) error {
	events := game.Events()
	snapshot := game.Read()
	s.metrics.observe(events, snapshot)

	msg, err := EncodeFrame(Frame{Session: id, Snapshot: snapshot, Events: events})
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode frame: %v", err)
	}
	if err := stream.Send(msg); err != nil {
		return fmt.Errorf("failed to send Play message: %w", err)
	}
	return nil
}

func (s *stackServer) open(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = struct{}{}
	s.metrics.sessions.Set(float64(len(s.sessions)))
}

func (s *stackServer) close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	s.metrics.sessions.Set(float64(len(s.sessions)))
}

func (s *stackServer) hasSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

func (s *stackServer) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
