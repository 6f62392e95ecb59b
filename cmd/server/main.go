package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cachemir/wordtally/internal/logger"
	"github.com/cachemir/wordtally/internal/server"
	"github.com/cachemir/wordtally/pkg/config"
	"github.com/cachemir/wordtally/pkg/store"
)

func main() {
	cfg, err := config.LoadServerConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal("Invalid arguments", "err", err)
	}

	if cfg.ShowVersion {
		logger.PrintVersion("wordtally-server")
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}

	l := logger.New("server")
	l.Info("Starting wordtally server", "addr", cfg.Address(), "log_level", cfg.LogLevel)

	st := store.New()
	srv := server.New(cfg.Address(), st,
		server.WithLogger(l),
		server.WithTimeouts(
			time.Duration(cfg.ReadTimeout)*time.Second,
			time.Duration(cfg.WriteTimeout)*time.Second,
		),
	)

	if err := srv.Listen(); err != nil {
		l.Fatal("Server failed to start", "err", err)
	}

	go func() {
		if err := srv.Serve(); err != nil && !errors.Is(err, server.ErrServerClosed) {
			l.Fatal("Accept loop failed", "err", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	l.Info("Shutting down server...")

	if err := srv.Stop(); err != nil {
		l.Error("Error stopping server", "err", err)
	}

	report(l, st)
	l.Info("Server stopped")
}

// report logs how many words the store holds and, at debug level, every
// word with its count.
func report(l *log.Logger, st *store.Store) {
	l.Info("Stored words", "count", st.Len())
	if l.GetLevel() > log.DebugLevel {
		return
	}

	type entry struct {
		word  string
		count string
	}
	var entries []entry
	_ = st.Walk(func(key string, value []byte) error {
		entries = append(entries, entry{word: key, count: string(value)})
		return nil
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].word < entries[j].word })

	for _, e := range entries {
		l.Debug("count", "word", e.word, "value", e.count)
	}
}
