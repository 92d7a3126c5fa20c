package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mark3labs/specflow/internal/eventbus"
	"github.com/mark3labs/specflow/internal/logger"
	"github.com/mark3labs/specflow/internal/syncengine"
	"github.com/mark3labs/specflow/internal/watcher"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the spec tree and reconcile workflow state until interrupted",
	Long: `Run the File Watcher, the State-Sync Engine, and its periodic health
monitor in the foreground. Every debounced filesystem change is classified;
high impact changes, and medium impact changes that carry a workflow status
change or a handoff, trigger reconciliation against workflow state. Stops
on SIGINT/SIGTERM.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	bus, err := eventbus.New(filepath.Join(".workflow", "eventbus"), eventbus.WithPublishRateLimit(50, 100))
	if err != nil {
		return fmt.Errorf("starting event bus: %w", err)
	}
	defer bus.Close()

	detector := watcher.NewDetector(a.store)
	w := watcher.New(a.cfg.SpecsRoot, a.cfg.WatchDebounce(), bus, detector)

	conflictsDir := filepath.Join(".workflow", "conflicts")
	engine := syncengine.New(a.store, a.mgr, bus, conflictsDir, a.cfg.HealthInterval())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("watch started", "root", a.cfg.SpecsRoot)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error { return engine.Run(gctx) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch stopped: %w", err)
	}
	logger.Info("watch stopped")
	return nil
}
