package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/j-veylop/dify-backup-tui/internal/config"
	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/services"
)

// headless prepares a subcommand run: stderr logging, a started manager and a context
// cancelled on SIGINT/SIGTERM. The returned func releases everything.
func headless(ctx context.Context, cfg *config.Config) (*services.Manager, context.Context, func(), error) {
	logger.Setup(os.Stderr, logger.ParseLevel(cfg.LogLevel))

	mgr, closeManager, err := newManager(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	ch, _ := mgr.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		printProgress(os.Stderr, ch)
	}()

	return mgr, ctx, func() {
		stop()
		mgr.Unsubscribe(ch)
		<-done
		closeManager()
	}, nil
}

// printProgress writes one line per progress step until ch is closed.
func printProgress(w io.Writer, ch <-chan services.ServiceEvent) {
	last := ""
	for event := range ch {
		p, ok := event.(services.ProgressEvent)
		if !ok || p.Text == last {
			continue
		}
		last = p.Text
		fmt.Fprintf(w, "[%3d%%] %s\n", p.Percent, p.Text)
	}
}
