// Package main implements a real-time audio player that fans decoded samples
// out to the sound card, a waveform scope and a level meter, with a web
// interface for monitoring and silence alerts.
//
// Usage:
//
//	scope [-config path/to/config.json] [file]
//
// If -config is not specified, scope looks for config.json in the same
// directory as the binary. The optional file (WAV, MP3 or Ogg Vorbis) starts
// playing immediately; otherwise a file can be started from the web interface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/oszuidwest/zwfm-scope/internal/config"
	"github.com/oszuidwest/zwfm-scope/internal/notify"
	"github.com/oszuidwest/zwfm-scope/internal/player"
	"github.com/oszuidwest/zwfm-scope/internal/util"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-config file] [-version] [audio file]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	notifier := notify.NewSilenceNotifier(cfg)
	p := player.New(cfg, notifier)
	notifier.Track(p)

	if file := flag.Arg(0); file != "" {
		if err := p.Start(file); err != nil {
			slog.Error("failed to start playback", "file", file, "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), util.ShutdownSignals()...)
	defer stop()

	version := NewVersionChecker()
	go version.Run(ctx)

	srv := NewServer(cfg, p, version, notifier.TestTriggers())
	httpServer := srv.Start()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := p.Stop(); err != nil {
		slog.Error("error stopping player", "error", err)
	}

	slog.Info("shutdown complete")
}
