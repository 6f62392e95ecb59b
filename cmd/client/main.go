package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cachemir/wordtally/internal/logger"
	"github.com/cachemir/wordtally/pkg/config"
	"github.com/cachemir/wordtally/pkg/wordcount"
)

func main() {
	cfg, err := config.LoadClientConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal("Invalid arguments", "err", err)
	}

	if cfg.ShowVersion {
		logger.PrintVersion("wordtally-client")
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v (usage: %s [flags] FILE...)", err, os.Args[0])
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}

	l := logger.New("client")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := wordcount.NewReader(
		wordcount.DialTCP(cfg.Server, time.Duration(cfg.ConnTimeout)*time.Second),
		wordcount.WithChunks(cfg.Chunks),
		wordcount.WithMaxChunkSize(cfg.MaxChunkSize),
		wordcount.WithLogger(l),
	)

	failed := false
	for {
		for _, path := range cfg.Files {
			if ctx.Err() != nil {
				return
			}
			total, err := r.ReadFile(ctx, path)
			if err != nil {
				failed = true
				l.Error("Failed to read file", "path", path, "err", err)
				continue
			}
			fmt.Printf("read %v from %s\n", total, path)
		}
		if !cfg.Loop {
			break
		}
	}

	if failed {
		os.Exit(1)
	}
}
