package client

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net"
	"testing"
	"time"

	"stack/server"
	"stack/stack"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func TestRemoteGame(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rg, err := newRemoteGame(ctx, testConn(t, logger), logger)
	if err != nil {
		t.Fatalf("unable to start remote game: %v", err)
	}
	defer rg.Close() //nolint: errcheck

	if s := rg.Read(); s.State != stack.Ready || len(s.Blocks) != 1 {
		t.Errorf("wanted a ready game with a base block, got %+v", s)
	}
	if rg.session == "" {
		t.Errorf("wanted a session id")
	}
	rg.Events()

	if err := rg.Action(); err != nil {
		t.Fatalf("unable to send action: %v", err)
	}
	if s := rg.Read(); s.State != stack.Playing || len(s.Blocks) != 2 {
		t.Errorf("wanted a playing game with an active block, got %+v", s)
	}

	if err := rg.Tick(16 * time.Millisecond); err != nil {
		t.Fatalf("unable to send tick: %v", err)
	}
	var moved bool
	for _, e := range rg.Events() {
		if _, ok := e.(stack.BlockMoved); ok {
			moved = true
		}
	}
	if !moved {
		t.Errorf("wanted a BlockMoved event after a tick")
	}
	if e := rg.Events(); e != nil {
		t.Errorf("wanted events to be drained, got %v", e)
	}
}

func testConn(t *testing.T, l *slog.Logger) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	s := grpc.NewServer()
	server.RegisterStackServiceServer(s, server.New(l, nil))
	go func() {
		if err := s.Serve(lis); err != nil {
			log.Printf("unable to serve: %v", err)
		}
	}()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet", grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
		return lis.Dial()
	}), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("error connecting to server: %v", err)
	}
	return conn
}
