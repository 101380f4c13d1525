// Package main is the entry point for the LOD simulator.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/quadsphere/internal/config"
	"github.com/Faultbox/quadsphere/internal/logger"
	"github.com/Faultbox/quadsphere/internal/sim"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== QuadSphere LOD Simulator ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if config.SaveRequested() {
		if err := cfg.Save(); err != nil {
			logger.Error("failed to save config", zap.Error(err))
			logger.Sync()
			os.Exit(1)
		}
		logger.Info("config saved", zap.String("path", filepath.Join(config.ConfigDir(), config.FileName)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("simulation error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("simulation closed normally")
}

func run(ctx context.Context, cfg *config.Config) error {
	var wg sync.WaitGroup
	serveCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		wg.Wait()
	}()

	if cfg.Metrics.ListenAddr != "" {
		srv := sim.NewMetricsServer(cfg.Metrics.ListenAddr)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sim.ListenAndServe(serveCtx, srv)
		}()
	}

	s, err := sim.New(cfg)
	if err != nil {
		return err
	}

	runErr := s.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		logger.Info("simulation interrupted")
		runErr = nil
	}

	if runErr == nil && cfg.Export.MeshDump != "" {
		runErr = s.WriteDump(cfg.Export.MeshDump)
	}

	return errors.Join(runErr, s.Close())
}
