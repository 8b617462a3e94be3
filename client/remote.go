package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stack/server"
	"stack/stack"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// RemoteGame plays a game hosted by a bridge server. Every input waits for
// the frame that answers it.
type RemoteGame struct {
	conn     *grpc.ClientConn
	stream   server.PlayClient
	logger   *slog.Logger
	session  string
	snapshot *stack.Snapshot
	events   []stack.Event
	mu       sync.Mutex
}

func NewRemoteGame(ctx context.Context, addr string, l *slog.Logger) (*RemoteGame, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("unable to create gRPC client: %w", err)
	}
	r, err := newRemoteGame(ctx, conn, l)
	if err != nil {
		conn.Close() //nolint: errcheck
		return nil, err
	}
	return r, nil
}

func newRemoteGame(ctx context.Context, conn *grpc.ClientConn, l *slog.Logger) (*RemoteGame, error) {
	stream, err := server.NewStackServiceClient(conn).Play(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to create gRPC Play stream: %w", err)
	}
	r := &RemoteGame{conn: conn, stream: stream, logger: l}
	if err := r.recv(); err != nil {
		return nil, err
	}
	l.Info("remote session started", slog.String("session", r.session))
	return r, nil
}

func (r *RemoteGame) Action() error {
	return r.send(server.ActionInput())
}

func (r *RemoteGame) Tick(dt time.Duration) error {
	return r.send(server.TickInput(dt))
}

func (r *RemoteGame) Read() *stack.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

func (r *RemoteGame) Events() []stack.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.events
	r.events = nil
	return e
}

func (r *RemoteGame) Close() error {
	if err := r.stream.CloseSend(); err != nil {
		r.logger.Error("unable to close Play stream", slog.String("error", err.Error()))
	}
	return r.conn.Close()
}

func (r *RemoteGame) send(in *structpb.Struct) error {
	if err := r.stream.Send(in); err != nil {
		return fmt.Errorf("send() unable to send input: %w", err)
	}
	return r.recv()
}

func (r *RemoteGame) recv() error {
	msg, err := r.stream.Recv()
	if err != nil {
		return fmt.Errorf("recv() unable to receive frame: %w", err)
	}
	f, err := server.DecodeFrame(msg)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = f.Session
	r.snapshot = f.Snapshot
	r.events = append(r.events, f.Events...)
	return nil
}
