package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/dify-backup-tui/internal/app"
	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/ui/tabs/history"
	"github.com/j-veylop/dify-backup-tui/internal/ui/tabs/info"
	"github.com/j-veylop/dify-backup-tui/internal/ui/tabs/stats"
)

// runTUI runs the interactive program. Logs go to a file because the TUI owns the terminal.
func runTUI(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logFile, err := logger.SetupFile(cfg.LogPath, logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	mgr, closeManager, err := newManager(cfg)
	if err != nil {
		return err
	}
	defer closeManager()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := app.NewModel(ctx, mgr)
	state := model.GetState()
	model.SetTabs([]app.Tab{
		stats.New(state),          // Tab 0: Stats - run statistics and backups
		history.New(mgr),          // Tab 1: History - recorded runs
		info.New(state, cfg, mgr), // Tab 2: Info - configuration and credentials
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	go func() {
		select {
		case <-sigChan:
			cancel()
			p.Send(tea.Quit())
		case <-ctx.Done():
		}
	}()

	logger.Info("tui started", "console", cfg.BaseURL)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
