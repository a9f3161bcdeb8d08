package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/0xPuncker/cronwatch/internal/api"
	"github.com/0xPuncker/cronwatch/internal/config"
	"github.com/0xPuncker/cronwatch/internal/container"
	"github.com/0xPuncker/cronwatch/pkg/utils"
	"github.com/dimiro1/banner"
	"github.com/mattn/go-colorable"
	"golang.org/x/sync/errgroup"
)

const bannerText = `
{{ .Title "cronwatch" "" 0 }}
{{ .AnsiBackground.BrightBlue }}{{ .AnsiColor.White }}
{{ .AnsiReset }}
`

func main() {
	banner.Init(colorable.NewColorableStdout(), true, true, strings.NewReader(bannerText))

	configPath := flag.String("config", "config/cronwatch.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		utils.NewLogger("info", os.Stderr).Fatalf("Failed to load config: %v", err)
	}
	logger := utils.NewLogger(cfg.LogLevel, os.Stdout)

	c, err := container.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize services: %v", err)
	}

	logger.WithField("jobs_file", cfg.Jobs.File).Info("Using jobs file")
	logger.WithField("crontab_mode", cfg.Crontab.Mode).Info("Using scheduler table")

	if err := c.Scheduler().LoadTasks(cfg.Tasks.Predefined); err != nil {
		logger.Fatalf("Failed to load tasks: %v", err)
	}
	if err := c.Scheduler().Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	server := api.NewServer(cfg.Server, c.Router(), logger)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error {
		c.Poller().Start(gctx)
		return nil
	})

	logger.Infof("Server started on port %s - Press Ctrl+C to stop.", cfg.Server.Port)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down...")
	c.Scheduler().Stop()
}
