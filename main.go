package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"stack/client"
	"stack/config"

	"golang.org/x/term"
)

const (
	hideCursor = "\033[2J\033[?25l" // also clear screen
	showCursor = "\033[2J\033[H\033[?25h"

	// lines of the layout around the tower.
	layoutLines = 8
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default $"+config.EnvPath+")")
	addr := flag.String("addr", "", "bridge server address; empty plays locally")
	fps := flag.Int("fps", 0, "frames per second")
	logFile := flag.String("log", "", "file to write logs to")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *addr != "" {
		cfg.Client.Address = *addr
	}
	if *fps > 0 {
		cfg.Client.FPS = *fps
	}
	if *logFile != "" {
		cfg.Client.LogFile = *logFile
	}

	logger, closeLog, err := newLogger(cfg.Client)
	if err != nil {
		log.Fatal(err)
	}
	defer closeLog()

	rows := cfg.Client.Rows
	if rows <= 0 {
		rows = terminalRows()
	}
	c, err := client.New(logger, &client.Options{
		Address:  cfg.Client.Address,
		Interval: cfg.Client.FrameInterval(),
		Rows:     rows,
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Print(hideCursor)
	c.Start()
	fmt.Print(showCursor)
	if err := c.Close(); err != nil {
		logger.Error("unable to close client", slog.String("error", err.Error()))
	}
}

// newLogger writes JSON logs to the configured file. The terminal belongs to
// the game, so without a file logs are dropped.
func newLogger(c config.ClientConfig) (*slog.Logger, func(), error) {
	if c.LogFile == "" {
		return slog.New(slog.NewJSONHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	l := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: config.Level(c.LogLevel)}))
	return l, func() { f.Close() }, nil
}

func terminalRows() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	_, h, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return max(h-layoutLines, 1)
}
